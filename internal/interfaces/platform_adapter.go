package interfaces

import (
	"context"

	"EventSync/internal/model"
	"EventSync/internal/venue"
)

// SourceCollector 所有票务来源必须实现的核心接口
type SourceCollector interface {
	// GetName 来源展示名
	GetName() string
	// GetSource 来源枚举
	GetSource() model.SourceType
	// Discover 发现候选活动，结果已按原生ID去重
	Discover(ctx context.Context) ([]*model.ListingItem, error)
	// FetchDetail 拉取详情正文
	FetchDetail(ctx context.Context, item *model.ListingItem) (*model.RawListing, error)
	// BuildCandidate 组装入库候选
	BuildCandidate(raw *model.RawListing, fields *model.PartialEventFields) *model.EventCandidate
}

// FieldExtractor 非结构化正文 -> 结构化字段，永不返回错误
type FieldExtractor interface {
	Extract(ctx context.Context, rawText, title string) *model.PartialEventFields
}

// EventStore 标准化活动的唯一写入方
type EventStore interface {
	UpsertMany(ctx context.Context, candidates []*model.EventCandidate) model.UpsertResult
	DeactivateExpired(ctx context.Context) (int64, error)
}

// LLMClient 单次 chat completion
type LLMClient interface {
	Complete(ctx context.Context, systemMessage, prompt string) (string, error)
}

// Geocoder 外部地理编码，失败返回 nil
type Geocoder interface {
	GeocodeAddress(ctx context.Context, name, address, city string) *venue.GeocodeResult
}

// QualityScorer 完整度评分，纯函数
type QualityScorer interface {
	Score(event *model.CanonicalEvent) int
}
