package adapter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"EventSync/internal/config"
	"EventSync/internal/interfaces"
	"EventSync/internal/metrics"
	"EventSync/internal/model"
	"EventSync/internal/utils/retry"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const defaultMaxConsecutiveFailures = 5

// Stage 单个来源在一次运行中的阶段
type Stage string

const (
	StageCollecting Stage = "Collecting" // 发现 + 抓详情
	StageExtracting Stage = "Extracting" // 字段抽取（与抓详情逐条交错）
	StageResolving  Stage = "Resolving"  // 场地/日期已定型，汇总候选
	StageUpserting  Stage = "Upserting"
	StageDone       Stage = "Done"
)

// CollectResult 单个来源一次采集的结果
type CollectResult struct {
	Discovered  int
	FetchFailed int
	Degraded    int
	PastSkipped int
	Aborted     bool
	Candidates  []*model.EventCandidate
}

// Pipeline 来源通用流程：发现 -> 截断 -> 限速并发抓详情 -> 字段抽取 -> 组装候选 -> 过滤过期
type Pipeline struct {
	collector interfaces.SourceCollector
	extractor interfaces.FieldExtractor
	cfg       config.SourceConfig
	metrics   *metrics.Manager
	logger    *logrus.Logger
	now       func() time.Time
	onStage   func(Stage)
}

// NewPipeline metrics 可为 nil
func NewPipeline(collector interfaces.SourceCollector, extractor interfaces.FieldExtractor, cfg config.SourceConfig, m *metrics.Manager, logger *logrus.Logger) *Pipeline {
	return &Pipeline{
		collector: collector,
		extractor: extractor,
		cfg:       cfg,
		metrics:   m,
		logger:    logger,
		now:       time.Now,
	}
}

// OnStage 阶段切换回调
func (p *Pipeline) OnStage(fn func(Stage)) {
	p.onStage = fn
}

func (p *Pipeline) enter(stage Stage) {
	if p.onStage != nil {
		p.onStage(stage)
	}
}

// Collect 只有发现阶段整体失败才返回错误；单条失败记录日志后跳过
func (p *Pipeline) Collect(ctx context.Context) (*CollectResult, error) {
	source := string(p.collector.GetSource())
	log := p.logger.WithField("source", source)

	p.enter(StageCollecting)
	items, err := p.collector.Discover(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s发现活动失败: %w", p.collector.GetName(), err)
	}
	res := &CollectResult{Discovered: len(items)}
	p.metrics.ItemsDiscovered(source, len(items))

	if p.cfg.MaxItems > 0 && len(items) > p.cfg.MaxItems {
		log.WithFields(logrus.Fields{"discovered": len(items), "max_items": p.cfg.MaxItems}).Info("超过单次上限，截断")
		items = items[:p.cfg.MaxItems]
	}
	if len(items) == 0 {
		log.Warn("未发现任何活动")
		return res, nil
	}

	maxFailures := p.cfg.MaxConsecutiveFailures
	if maxFailures <= 0 {
		maxFailures = defaultMaxConsecutiveFailures
	}
	concurrency := p.cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if d := p.cfg.RequestDelay(); d > 0 {
		limiter = rate.NewLimiter(rate.Every(d), 1)
	}

	runCtx, abort := context.WithCancel(ctx)
	defer abort()

	var (
		mu          sync.Mutex
		consecutive int
		slots       = make([]*model.EventCandidate, len(items))
	)

	// 单条失败计数；连续失败过多则放弃剩余条目
	fail := func(err error, item *model.ListingItem) {
		p.metrics.DetailFailed(source)
		log.WithError(err).WithFields(logrus.Fields{"source_id": item.SourceID, "url": item.URL}).Warn("抓取详情失败，跳过")

		mu.Lock()
		defer mu.Unlock()
		res.FetchFailed++
		consecutive++
		if consecutive >= maxFailures && !res.Aborted {
			res.Aborted = true
			log.WithField("consecutive_failures", consecutive).Error("连续失败次数过多，放弃该来源剩余条目")
			abort()
		}
	}

	p.enter(StageExtracting)
	g, gctx := errgroup.WithContext(runCtx)
	g.SetLimit(concurrency)

	for i, item := range items {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					fail(fmt.Errorf("处理条目 panic: %v", r), item)
				}
			}()
			if err := limiter.Wait(gctx); err != nil {
				return nil
			}

			raw, err := p.fetchDetail(gctx, item)
			if err != nil {
				if gctx.Err() != nil {
					return nil
				}
				fail(err, item)
				return nil
			}
			mu.Lock()
			consecutive = 0
			mu.Unlock()

			fields := p.extractor.Extract(gctx, raw.Body, raw.Title)
			if fields.Degraded {
				p.metrics.ExtractionFallback(source)
				mu.Lock()
				res.Degraded++
				mu.Unlock()
			}

			candidate := p.collector.BuildCandidate(raw, fields)
			if candidate == nil {
				return nil
			}
			if !model.IsUpcoming(candidate.EndDate, p.now()) {
				p.metrics.PastEventSkipped(source)
				log.WithFields(logrus.Fields{"source_id": candidate.SourceID, "title": candidate.Title}).Debug("已结束的活动，跳过")
				mu.Lock()
				res.PastSkipped++
				mu.Unlock()
				return nil
			}
			slots[i] = candidate
			return nil
		})
	}
	_ = g.Wait()

	p.enter(StageResolving)
	for _, c := range slots {
		if c != nil {
			res.Candidates = append(res.Candidates, c)
		}
	}
	p.metrics.CandidatesEmitted(source, len(res.Candidates))

	log.WithFields(logrus.Fields{
		"discovered":   res.Discovered,
		"candidates":   len(res.Candidates),
		"fetch_failed": res.FetchFailed,
		"degraded":     res.Degraded,
		"past_skipped": res.PastSkipped,
		"aborted":      res.Aborted,
	}).Info("来源采集完成")

	return res, ctx.Err()
}

func (p *Pipeline) fetchDetail(ctx context.Context, item *model.ListingItem) (*model.RawListing, error) {
	var raw *model.RawListing
	err := retry.DoIfRetryable(ctx, retry.WithRetries(p.cfg.RetryCount), func() error {
		r, err := p.collector.FetchDetail(ctx, item)
		if err != nil {
			return err
		}
		raw = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, fmt.Errorf("详情为空: %s", item.URL)
	}
	return raw, nil
}
