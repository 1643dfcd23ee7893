package model

import (
	"time"

	"gorm.io/datatypes"
)

// PartialEventFields 字段抽取结果（类型化的模型输出，缺失项已补默认值）
type PartialEventFields struct {
	Venue     Venue
	Ticketing Ticketing
	Category  Category
	Genres    []string
	Lineup    []LineupEntry
	StartDate time.Time
	EndDate   time.Time

	// Degraded 为 true 表示模型调用/解析失败，整条为兜底值
	Degraded bool
	// CategoryGuessed 分类来自兜底而非模型输出
	CategoryGuessed bool
}

// EventCandidate 采集器产出的待入库记录，不含代理ID与版本号
// 指针/nil 切片表示“本次未提供”，合并时保留库中旧值
type EventCandidate struct {
	Source    SourceType
	SourceID  string
	SourceURL string

	Title           string
	Description     string
	DescriptionHTML string
	Summary         string

	StartDate   time.Time
	EndDate     time.Time
	PublishedAt time.Time

	Venue     *Venue
	Ticketing *Ticketing
	Category  Category
	Tags      []string
	Genres    []string
	Organizer *Organizer
	Images    []Image
	Lineup    []LineupEntry

	ScrapedAt time.Time
}

// ToEvent 构造新记录（不含ID/版本/评分），缺失项使用兜底值
func (c *EventCandidate) ToEvent() *CanonicalEvent {
	venue := UnconfirmedVenue()
	if c.Venue != nil {
		venue = *c.Venue
	}
	ticketing := Ticketing{Status: TicketOnSale, PriceRange: PriceRange{Currency: DefaultCurrency}}
	if c.Ticketing != nil {
		ticketing = *c.Ticketing
	}
	organizer := Organizer{}
	if c.Organizer != nil {
		organizer = *c.Organizer
	}
	category := c.Category
	if category == "" {
		category = CategoryOther
	}
	published := c.PublishedAt
	if published.IsZero() {
		published = c.ScrapedAt
	}
	return &CanonicalEvent{
		Source:          c.Source,
		SourceID:        c.SourceID,
		SourceURL:       c.SourceURL,
		Title:           c.Title,
		Description:     c.Description,
		DescriptionHTML: c.DescriptionHTML,
		Summary:         c.Summary,
		StartDate:       c.StartDate,
		EndDate:         c.EndDate,
		PublishedAt:     published,
		Venue:           datatypes.NewJSONType(venue),
		City:            venue.City,
		Ticketing:       datatypes.NewJSONType(ticketing),
		Category:        category,
		Tags:            datatypes.NewJSONType(NormalizeStringSet(c.Tags)),
		Genres:          datatypes.NewJSONType(NormalizeStringSet(c.Genres)),
		Organizer:       datatypes.NewJSONType(organizer),
		Images:          datatypes.NewJSONType(nonNilImages(c.Images)),
		Lineup:          datatypes.NewJSONType(nonNilLineup(c.Lineup)),
		ScrapedAt:       c.ScrapedAt,
		LastCheckedAt:   c.ScrapedAt,
	}
}

// MergeInto 候选值覆盖旧记录中它提供了的字段，未提供的保留旧值；不修改ID/版本/创建时间
func (c *EventCandidate) MergeInto(existing *CanonicalEvent) *CanonicalEvent {
	merged := *existing
	if c.SourceURL != "" {
		merged.SourceURL = c.SourceURL
	}
	if c.Title != "" {
		merged.Title = c.Title
	}
	if c.Description != "" {
		merged.Description = c.Description
	}
	if c.DescriptionHTML != "" {
		merged.DescriptionHTML = c.DescriptionHTML
	}
	if c.Summary != "" {
		merged.Summary = c.Summary
	}
	if !c.StartDate.IsZero() {
		merged.StartDate = c.StartDate
	}
	if !c.EndDate.IsZero() {
		merged.EndDate = c.EndDate
	}
	if !c.PublishedAt.IsZero() {
		merged.PublishedAt = c.PublishedAt
	}
	if c.Venue != nil {
		merged.Venue = datatypes.NewJSONType(*c.Venue)
		merged.City = c.Venue.City
	}
	if c.Ticketing != nil {
		merged.Ticketing = datatypes.NewJSONType(*c.Ticketing)
	}
	if c.Category != "" {
		merged.Category = c.Category
	}
	if c.Tags != nil {
		merged.Tags = datatypes.NewJSONType(NormalizeStringSet(c.Tags))
	}
	if c.Genres != nil {
		merged.Genres = datatypes.NewJSONType(NormalizeStringSet(c.Genres))
	}
	if c.Organizer != nil {
		merged.Organizer = datatypes.NewJSONType(*c.Organizer)
	}
	if c.Images != nil {
		merged.Images = datatypes.NewJSONType(c.Images)
	}
	if c.Lineup != nil {
		merged.Lineup = datatypes.NewJSONType(c.Lineup)
	}
	return &merged
}

func nonNilImages(in []Image) []Image {
	if in == nil {
		return []Image{}
	}
	return in
}

func nonNilLineup(in []LineupEntry) []LineupEntry {
	if in == nil {
		return []LineupEntry{}
	}
	return in
}

// UpsertResult 批量写入统计
type UpsertResult struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Failed   int `json:"failed"`
}

// Add 累加
func (r *UpsertResult) Add(o UpsertResult) {
	r.Inserted += o.Inserted
	r.Updated += o.Updated
	r.Failed += o.Failed
}
