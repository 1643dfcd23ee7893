package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"EventSync/internal/interfaces"
	"EventSync/internal/model"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// 冲突更新时覆盖的列；id/created_at/scraped_at/is_active 不在其中
var upsertColumns = []string{
	"source_url", "title", "description", "description_html", "summary",
	"start_date", "end_date", "published_at",
	"venue", "city", "ticketing", "category", "tags", "genres", "organizer", "images", "lineup",
	"last_checked_at", "quality_score", "updated_at",
}

// EventFilter 活动列表筛选
type EventFilter struct {
	Category        model.Category
	City            string
	StartDate       *time.Time // 开始时间起
	EndDate         *time.Time // 结束时间止
	IncludeInactive bool
}

// EventRepository 标准化活动仓储，活动表的唯一写入方
type EventRepository struct {
	db     *gorm.DB
	scorer interfaces.QualityScorer
	logger *logrus.Logger
	now    func() time.Time
}

func NewEventRepository(db *gorm.DB, scorer interfaces.QualityScorer, logger *logrus.Logger) *EventRepository {
	return &EventRepository{db: db, scorer: scorer, logger: logger, now: time.Now}
}

// Upsert 按 (source, source_id) 幂等写入，返回稳定的代理ID
// 已存在时候选字段覆盖旧值、未提供的字段保留，version+1
func (r *EventRepository) Upsert(ctx context.Context, cand *model.EventCandidate) (string, bool, error) {
	if cand == nil || cand.Source == "" || cand.SourceID == "" {
		return "", false, fmt.Errorf("候选缺少 source/source_id")
	}

	existing, err := r.findBySourceID(ctx, cand.Source, cand.SourceID)
	if err != nil {
		return "", false, fmt.Errorf("查询已有活动失败: %w", err)
	}

	var row *model.CanonicalEvent
	inserted := existing == nil
	if inserted {
		row = cand.ToEvent()
		row.ID = uuid.NewString()
		row.Version = 1
		row.IsActive = true
	} else {
		row = cand.MergeInto(existing)
		row.LastCheckedAt = cand.ScrapedAt
		if row.LastCheckedAt.IsZero() {
			row.LastCheckedAt = r.now()
		}
		// Create 不会覆盖非零的 UpdatedAt
		row.UpdatedAt = r.now()
	}
	row.QualityScore = r.scorer.Score(row)

	updates := clause.AssignmentColumns(upsertColumns)
	updates = append(updates, clause.Assignment{
		Column: clause.Column{Name: "version"},
		Value:  gorm.Expr("canonical_events.version + 1"),
	})
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "source"}, {Name: "source_id"}},
		DoUpdates: updates,
	}).Create(row).Error; err != nil {
		return "", false, fmt.Errorf("写入活动失败: %w", err)
	}

	// 并发首插时本行的 uuid 可能未落库，以库中为准
	var stored model.CanonicalEvent
	if err := r.db.WithContext(ctx).Select("id").
		Where("source = ? AND source_id = ?", cand.Source, cand.SourceID).
		Take(&stored).Error; err != nil {
		return "", false, fmt.Errorf("读取活动ID失败: %w", err)
	}
	return stored.ID, inserted, nil
}

// UpsertMany 逐条独立写入，单条失败计入 Failed 不影响其他
func (r *EventRepository) UpsertMany(ctx context.Context, candidates []*model.EventCandidate) model.UpsertResult {
	var res model.UpsertResult
	for _, cand := range candidates {
		if ctx.Err() != nil {
			res.Failed++
			continue
		}
		_, inserted, err := r.Upsert(ctx, cand)
		switch {
		case err != nil:
			res.Failed++
			log := r.logger.WithError(err)
			if cand != nil {
				log = log.WithFields(logrus.Fields{"source": cand.Source, "source_id": cand.SourceID})
			}
			log.Warn("活动入库失败")
		case inserted:
			res.Inserted++
		default:
			res.Updated++
		}
	}
	return res
}

// DeactivateExpired 已结束的活动置为失效；只做 true->false，可重复执行
func (r *EventRepository) DeactivateExpired(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).Model(&model.CanonicalEvent{}).
		Where("is_active = ? AND end_date < ?", true, r.now()).
		Update("is_active", false)
	if result.Error != nil {
		return 0, fmt.Errorf("失效过期活动失败: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// ListEvents 按开始时间升序；默认只查有效活动
func (r *EventRepository) ListEvents(ctx context.Context, filter EventFilter, limit, offset int) ([]*model.CanonicalEvent, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	db := r.db.WithContext(ctx).Model(&model.CanonicalEvent{})
	if !filter.IncludeInactive {
		db = db.Where("is_active = ?", true)
	}
	if filter.Category != "" {
		db = db.Where("category = ?", filter.Category)
	}
	if filter.City != "" {
		db = db.Where("city = ?", filter.City)
	}
	if filter.StartDate != nil {
		db = db.Where("start_date >= ?", *filter.StartDate)
	}
	if filter.EndDate != nil {
		db = db.Where("end_date <= ?", *filter.EndDate)
	}
	var list []*model.CanonicalEvent
	if err := db.Order("start_date ASC").Order("id ASC").Offset(offset).Limit(limit).Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// GetEventByID 不存在（或已失效且未要求包含）时返回 nil, nil
func (r *EventRepository) GetEventByID(ctx context.Context, id string, includeInactive bool) (*model.CanonicalEvent, error) {
	db := r.db.WithContext(ctx).Where("id = ?", id)
	if !includeInactive {
		db = db.Where("is_active = ?", true)
	}
	var ev model.CanonicalEvent
	if err := db.Take(&ev).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &ev, nil
}

// Count 活动总数（含失效）
func (r *EventRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.CanonicalEvent{}).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (r *EventRepository) findBySourceID(ctx context.Context, source model.SourceType, sourceID string) (*model.CanonicalEvent, error) {
	var ev model.CanonicalEvent
	err := r.db.WithContext(ctx).Where("source = ? AND source_id = ?", source, sourceID).Take(&ev).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ev, nil
}
