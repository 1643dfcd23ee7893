package adapter

import (
	"context"
	"time"

	"EventSync/internal/config"
	"EventSync/internal/model"
)

const summaryLength = 200

// CandidateOptions 各来源在组装候选时的差异项
type CandidateOptions struct {
	Source          model.SourceType
	Platform        string // 票务平台展示名
	DefaultCategory model.Category
	Tags            []string
	Organizer       model.Organizer
	ScrapedAt       time.Time
}

// BuildCandidate 详情 + 抽取字段 -> 入库候选
func BuildCandidate(raw *model.RawListing, fields *model.PartialEventFields, opts CandidateOptions) *model.EventCandidate {
	if raw == nil || fields == nil {
		return nil
	}
	scrapedAt := opts.ScrapedAt
	if scrapedAt.IsZero() {
		scrapedAt = time.Now()
	}

	url := ""
	if raw.Item != nil {
		url = raw.Item.URL
	}

	category := fields.Category
	if fields.CategoryGuessed && opts.DefaultCategory != "" {
		category = opts.DefaultCategory
	}

	venue := fields.Venue
	ticketing := fields.Ticketing
	ticketing.TicketURL = url
	ticketing.TicketPlatform = opts.Platform
	organizer := opts.Organizer

	summary := raw.Summary
	if summary == "" {
		summary = Summarize(raw.Description, summaryLength)
	}

	images := raw.Images
	if images == nil {
		images = CoverImages(raw.ImageURL)
	}

	var published time.Time
	if raw.PublishedAt != "" {
		if t, err := time.Parse(time.RFC3339, raw.PublishedAt); err == nil {
			published = t
		}
	}

	tags := opts.Tags
	if tags == nil {
		tags = []string{}
	}
	genres := fields.Genres
	if genres == nil {
		genres = []string{}
	}
	lineup := fields.Lineup
	if lineup == nil {
		lineup = []model.LineupEntry{}
	}

	return &model.EventCandidate{
		Source:          opts.Source,
		SourceID:        raw.SourceID,
		SourceURL:       url,
		Title:           raw.Title,
		Description:     raw.Description,
		DescriptionHTML: raw.DescriptionHTML,
		Summary:         summary,
		StartDate:       fields.StartDate,
		EndDate:         fields.EndDate,
		PublishedAt:     published,
		Venue:           &venue,
		Ticketing:       &ticketing,
		Category:        category,
		Tags:            tags,
		Genres:          genres,
		Organizer:       &organizer,
		Images:          images,
		Lineup:          lineup,
		ScrapedAt:       scrapedAt,
	}
}

// SleepContext 固定间隔等待，可被 ctx 打断
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// DefaultCategory 来源配置的默认分类，非法值返回空
func DefaultCategory(cfg *config.SourceConfig) model.Category {
	if c, ok := model.ParseCategory(cfg.DefaultCategory); ok {
		return c
	}
	return ""
}
