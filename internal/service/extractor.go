package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"EventSync/internal/config"
	"EventSync/internal/interfaces"
	"EventSync/internal/llm"
	"EventSync/internal/model"
	"EventSync/internal/venue"

	"github.com/sirupsen/logrus"
)

const defaultSystemRole = "你是专业的活动信息抽取助手，只返回严格的 JSON 对象，不要输出其它文字。"

const promptTemplate = `请从下面的活动内容中抽取信息，以 JSON 对象返回。

活动标题：%s

活动内容：
%s

需要的字段：
1. venue：场地信息 {name 场地名称, address 完整地址, city 城市(台北/台中/高雄等), district 行政区(如 大安區)}
2. ticketing：票务信息 {isFree 是否免费(boolean), minPrice 最低票价(数字，免费为0), maxPrice 最高票价(数字，免费为0), status 售票状态(on_sale/sold_out/upcoming)}
3. category：活动分类，取值 concert/festival/club_event/live_music/dj_set/workshop/conference/party/other
4. genres：音乐类型数组，如 ["indie","rock","electronic"]
5. lineup：演出阵容数组，每项 {name 艺人名称, role 角色(主唱/DJ/嘉宾等), order 出场顺序}
6. startDate：开始时间，ISO 8601
7. endDate：结束时间，ISO 8601

无法确定的字段返回 null 或空数组。`

// 台湾时区，模型给出无时区的时间时按此解释
var taipei = time.FixedZone("Asia/Taipei", 8*3600)

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006/01/02 15:04",
	"2006-01-02",
	"2006/01/02",
}

// FieldExtractor 调用大模型把正文转为 PartialEventFields；失败时返回完整兜底值
type FieldExtractor struct {
	client     interfaces.LLMClient
	resolver   *venue.Resolver
	geocoder   interfaces.Geocoder
	maxContent int
	systemRole string
	degraded   bool
	logger     *logrus.Logger
	now        func() time.Time
}

// NewFieldExtractor geocoder 可为 nil（不启用外部地理编码）
func NewFieldExtractor(cfg *config.LLMConfig, client interfaces.LLMClient, resolver *venue.Resolver, geocoder interfaces.Geocoder, logger *logrus.Logger) *FieldExtractor {
	if resolver == nil {
		resolver = venue.NewResolver()
	}
	maxContent := cfg.MaxContent
	if maxContent <= 0 {
		maxContent = 3000
	}
	systemRole := cfg.SystemRole
	if systemRole == "" {
		systemRole = defaultSystemRole
	}
	return &FieldExtractor{
		client:     client,
		resolver:   resolver,
		geocoder:   geocoder,
		maxContent: maxContent,
		systemRole: systemRole,
		degraded:   cfg.Degraded || client == nil,
		logger:     logger,
		now:        time.Now,
	}
}

// Extract 永不返回错误；Degraded=true 表示整条为兜底值
func (e *FieldExtractor) Extract(ctx context.Context, rawText, title string) *model.PartialEventFields {
	now := e.now()
	if e.degraded {
		return Fallback(now)
	}

	prompt := fmt.Sprintf(promptTemplate, title, model.TruncateRunes(rawText, e.maxContent))
	reply, err := e.client.Complete(ctx, e.systemRole, prompt)
	if err != nil {
		e.logger.WithError(err).WithField("title", title).Warn("字段抽取调用失败，使用兜底值")
		return Fallback(now)
	}

	wire, err := decodeExtraction(reply)
	if err != nil {
		e.logger.WithError(err).WithField("title", title).Warn("字段抽取结果解析失败，使用兜底值")
		return Fallback(now)
	}

	return e.materialize(ctx, wire, now)
}

// Fallback 抽取失败时的完整兜底记录
func Fallback(now time.Time) *model.PartialEventFields {
	return &model.PartialEventFields{
		Venue: model.UnconfirmedVenue(),
		Ticketing: model.Ticketing{
			Status:     model.TicketOnSale,
			PriceRange: model.PriceRange{Min: 0, Max: 0, Currency: model.DefaultCurrency},
			IsFree:     false,
		},
		Category:        model.CategoryOther,
		Genres:          []string{},
		Lineup:          []model.LineupEntry{},
		StartDate:       now,
		EndDate:         now,
		Degraded:        true,
		CategoryGuessed: true,
	}
}

func (e *FieldExtractor) materialize(ctx context.Context, w *extractionWire, now time.Time) *model.PartialEventFields {
	out := &model.PartialEventFields{
		Venue:     e.resolveVenue(ctx, w.Venue),
		Ticketing: buildTicketing(w.Ticketing),
		Genres:    model.NormalizeStringSet(w.Genres),
		Lineup:    buildLineup(w.Lineup),
	}

	if c, ok := model.ParseCategory(w.Category); ok {
		out.Category = c
	} else {
		out.Category = model.CategoryOther
		out.CategoryGuessed = true
	}

	start, okStart := parseDate(w.StartDate)
	end, okEnd := parseDate(w.EndDate)
	switch {
	case okStart && okEnd:
	case okStart:
		end = start
	case okEnd:
		start = end
	default:
		start, end = now, now
	}
	if end.Before(start) {
		end = start
	}
	out.StartDate, out.EndDate = start, end
	return out
}

// resolveVenue 先查静态场地表，再查外部地理编码，最后用默认坐标；模型给出的坐标一律忽略
func (e *FieldExtractor) resolveVenue(ctx context.Context, w *venueWire) model.Venue {
	if w == nil || strings.TrimSpace(w.Name) == "" {
		v := model.UnconfirmedVenue()
		if w != nil {
			v.Address = strings.TrimSpace(w.Address)
			if city := strings.TrimSpace(w.City); city != "" {
				v.City = city
			}
		}
		return v
	}

	v := model.Venue{
		Name:     strings.TrimSpace(w.Name),
		Address:  strings.TrimSpace(w.Address),
		City:     strings.TrimSpace(w.City),
		District: strings.TrimSpace(w.District),
	}

	if rec := e.resolver.Resolve(v.Name); rec != nil {
		v.Location = model.Location{Latitude: rec.Latitude, Longitude: rec.Longitude}
		if v.City == "" {
			v.City = rec.City
		}
		if v.District == "" {
			v.District = rec.District
		}
		e.logger.WithFields(logrus.Fields{"venue": v.Name, "matched": rec.Name}).Debug("场地命中静态表")
	} else if e.geocoder != nil {
		if res := e.geocoder.GeocodeAddress(ctx, v.Name, v.Address, v.City); res != nil {
			v.Location = model.Location{Latitude: res.Latitude, Longitude: res.Longitude}
		}
	}

	if v.Location.IsZero() {
		e.logger.WithField("venue", v.Name).Debug("场地未收录，使用默认坐标")
		v.Location = model.DefaultLocation
	}
	if v.City == "" {
		v.City = model.DefaultCity
	}
	return v
}

func buildTicketing(w *ticketingWire) model.Ticketing {
	t := model.Ticketing{
		Status:     model.TicketOnSale,
		PriceRange: model.PriceRange{Currency: model.DefaultCurrency},
	}
	if w == nil {
		return t
	}
	t.Status = model.ParseTicketStatus(w.Status)
	t.IsFree = bool(w.IsFree)
	if !t.IsFree {
		t.PriceRange.Min = float64(w.MinPrice)
		t.PriceRange.Max = float64(w.MaxPrice)
		if t.PriceRange.Min < 0 {
			t.PriceRange.Min = 0
		}
		if t.PriceRange.Max < t.PriceRange.Min {
			t.PriceRange.Max = t.PriceRange.Min
		}
	}
	return t
}

func buildLineup(in []lineupWire) []model.LineupEntry {
	out := make([]model.LineupEntry, 0, len(in))
	for _, l := range in {
		name := strings.TrimSpace(l.Name)
		if name == "" {
			continue
		}
		out = append(out, model.LineupEntry{Name: name, Role: strings.TrimSpace(l.Role), Order: int(l.Order)})
	}
	return out
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, taipei); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ========== 模型输出的线格式（宽松解析） ==========

type extractionWire struct {
	Venue     *venueWire     `json:"venue"`
	Ticketing *ticketingWire `json:"ticketing"`
	Category  string         `json:"category"`
	Genres    []string       `json:"genres"`
	Lineup    []lineupWire   `json:"lineup"`
	StartDate string         `json:"startDate"`
	EndDate   string         `json:"endDate"`
}

type venueWire struct {
	Name     string `json:"name"`
	Address  string `json:"address"`
	City     string `json:"city"`
	District string `json:"district"`
}

type ticketingWire struct {
	IsFree   flexBool  `json:"isFree"`
	MinPrice flexFloat `json:"minPrice"`
	MaxPrice flexFloat `json:"maxPrice"`
	Status   string    `json:"status"`
}

type lineupWire struct {
	Name  string  `json:"name"`
	Role  string  `json:"role"`
	Order flexInt `json:"order"`
}

func decodeExtraction(reply string) (*extractionWire, error) {
	raw, err := llm.ExtractJSON(reply)
	if err != nil {
		return nil, err
	}
	var w extractionWire
	if err := json.Unmarshal([]byte(raw), &w); err != nil {
		return nil, fmt.Errorf("解析抽取结果失败: %w", err)
	}
	return &w, nil
}

// flexFloat 兼容数字、数字字符串（含千分位/货币符号）与 null
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" || s == "" {
		*f = 0
		return nil
	}
	if unq, err := strconv.Unquote(s); err == nil {
		s = unq
	}
	s = strings.NewReplacer(",", "", "NT$", "", "$", "", "TWD", "", "元", "").Replace(strings.TrimSpace(s))
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = flexFloat(v)
	return nil
}

type flexInt int

func (i *flexInt) UnmarshalJSON(b []byte) error {
	var f flexFloat
	if err := f.UnmarshalJSON(b); err != nil {
		return err
	}
	*i = flexInt(f)
	return nil
}

type flexBool bool

func (fb *flexBool) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if unq, err := strconv.Unquote(s); err == nil {
		s = unq
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "是", "免費", "免费":
		*fb = true
	default:
		*fb = false
	}
	return nil
}
