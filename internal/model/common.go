package model

import (
	"sort"
	"strings"
	"time"
)

// Category 活动分类枚举
type Category string

const (
	CategoryConcert    Category = "concert"
	CategoryFestival   Category = "festival"
	CategoryClubEvent  Category = "club_event"
	CategoryLiveMusic  Category = "live_music"
	CategoryDJSet      Category = "dj_set"
	CategoryWorkshop   Category = "workshop"
	CategoryConference Category = "conference"
	CategoryParty      Category = "party"
	CategoryOther      Category = "other"
)

var validCategories = map[Category]struct{}{
	CategoryConcert: {}, CategoryFestival: {}, CategoryClubEvent: {}, CategoryLiveMusic: {},
	CategoryDJSet: {}, CategoryWorkshop: {}, CategoryConference: {}, CategoryParty: {}, CategoryOther: {},
}

// ParseCategory 非枚举值返回 ok=false
func ParseCategory(s string) (Category, bool) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	_, ok := validCategories[c]
	return c, ok
}

// TicketStatus 售票状态
type TicketStatus string

const (
	TicketOnSale   TicketStatus = "on_sale"
	TicketSoldOut  TicketStatus = "sold_out"
	TicketUpcoming TicketStatus = "upcoming"
	TicketUnknown  TicketStatus = "unknown"
)

// ParseTicketStatus 兼容模型常见输出（coming_soon 等），空串为 on_sale
func ParseTicketStatus(s string) TicketStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "on_sale", "onsale", "available":
		return TicketOnSale
	case "sold_out", "soldout":
		return TicketSoldOut
	case "upcoming", "coming_soon", "not_yet":
		return TicketUpcoming
	default:
		return TicketUnknown
	}
}

const (
	ImageTypeCover   = "cover"
	ImageTypeGallery = "gallery"

	DefaultCurrency = "TWD"

	// UnconfirmedVenueName 场地未确认占位名
	UnconfirmedVenueName = "待確認"
	DefaultCity          = "台北"
)

// DefaultLocation 场地无法解析时使用的台北市中心坐标
var DefaultLocation = Location{Latitude: 25.0330, Longitude: 121.5654}

// UnconfirmedVenue 兜底场地
func UnconfirmedVenue() Venue {
	return Venue{
		Name:     UnconfirmedVenueName,
		City:     DefaultCity,
		Location: DefaultLocation,
	}
}

// NormalizeStringSet 去空白、去重、排序（genres/tags 为无序集合）
func NormalizeStringSet(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		key := strings.ToLower(s)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// TruncateRunes 按字符截断，避免切断多字节字符
func TruncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// IsUpcoming 结束时间严格晚于 now
func IsUpcoming(end, now time.Time) bool {
	return end.After(now)
}
