package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"EventSync/internal/adapter"
	"EventSync/internal/interfaces"
	"EventSync/internal/metrics"
	"EventSync/internal/model"

	"github.com/sirupsen/logrus"
)

// ErrRunInProgress 上一次采集尚未结束
var ErrRunInProgress = errors.New("采集任务正在运行")

// ProviderReport 单个来源的运行结果
type ProviderReport struct {
	Source      model.SourceType `json:"source"`
	Name        string           `json:"name"`
	State       adapter.Stage    `json:"state"`
	Discovered  int              `json:"discovered"`
	FetchFailed int              `json:"fetchFailed"`
	Degraded    int              `json:"degraded"`
	PastSkipped int              `json:"pastSkipped"`
	Candidates  int              `json:"candidates"`
	Aborted     bool             `json:"aborted"`
	model.UpsertResult
	Err      error  `json:"-"`
	ErrorMsg string `json:"error,omitempty"`
}

// RunReport 一次全量采集的汇总
type RunReport struct {
	StartedAt  time.Time          `json:"startedAt"`
	FinishedAt time.Time          `json:"finishedAt"`
	Providers  []*ProviderReport  `json:"providers"`
	Discovered int                `json:"discovered"`
	Candidates int                `json:"candidates"`
	Total      model.UpsertResult `json:"total"`
	Cancelled  bool               `json:"cancelled"`
}

// FailedProviders 出错的来源数
func (r *RunReport) FailedProviders() int {
	n := 0
	for _, p := range r.Providers {
		if p.Err != nil {
			n++
		}
	}
	return n
}

// IngestionService 采集编排：唯一同时调用采集器与存储的组件
type IngestionService struct {
	registry  *adapter.CollectorRegistry
	extractor interfaces.FieldExtractor
	store     interfaces.EventStore
	metrics   *metrics.Manager
	logger    *logrus.Logger
	running   atomic.Bool
	now       func() time.Time
}

func NewIngestionService(registry *adapter.CollectorRegistry, extractor interfaces.FieldExtractor, store interfaces.EventStore, m *metrics.Manager, logger *logrus.Logger) *IngestionService {
	return &IngestionService{
		registry:  registry,
		extractor: extractor,
		store:     store,
		metrics:   m,
		logger:    logger,
		now:       time.Now,
	}
}

// Run 按注册顺序逐个来源执行；单个来源失败只记录，继续下一个
// ctx 取消后不再开始新的来源
func (s *IngestionService) Run(ctx context.Context) (*RunReport, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer s.running.Store(false)

	report := &RunReport{StartedAt: s.now()}
	collectors := s.registry.List()
	s.logger.WithField("sources", len(collectors)).Info("开始采集")

	for _, collector := range collectors {
		if ctx.Err() != nil {
			report.Cancelled = true
			s.logger.WithError(ctx.Err()).Warn("采集被取消，跳过剩余来源")
			break
		}
		pr := s.runProvider(ctx, collector)
		report.Providers = append(report.Providers, pr)
		report.Discovered += pr.Discovered
		report.Candidates += pr.Candidates
		report.Total.Add(pr.UpsertResult)
	}

	report.FinishedAt = s.now()
	s.metrics.ObserveRun(report.FinishedAt.Sub(report.StartedAt))
	s.logger.WithFields(logrus.Fields{
		"discovered":       report.Discovered,
		"candidates":       report.Candidates,
		"inserted":         report.Total.Inserted,
		"updated":          report.Total.Updated,
		"failed":           report.Total.Failed,
		"failed_providers": report.FailedProviders(),
		"cost":             report.FinishedAt.Sub(report.StartedAt).String(),
	}).Info("采集完成")
	return report, nil
}

func (s *IngestionService) runProvider(ctx context.Context, collector interfaces.SourceCollector) (pr *ProviderReport) {
	source := collector.GetSource()
	pr = &ProviderReport{Source: source, Name: collector.GetName()}
	log := s.logger.WithField("source", source)

	setState := func(st adapter.Stage) {
		pr.State = st
		log.WithField("state", st).Info("状态切换")
	}
	defer func() {
		if p := recover(); p != nil {
			s.fail(pr, fmt.Errorf("%s采集异常: %v", collector.GetName(), p))
		}
		setState(adapter.StageDone)
	}()

	pipeline := adapter.NewPipeline(collector, s.extractor, s.registry.SourceConfig(source), s.metrics, s.logger)
	pipeline.OnStage(setState)

	res, err := pipeline.Collect(ctx)
	if res != nil {
		pr.Discovered = res.Discovered
		pr.FetchFailed = res.FetchFailed
		pr.Degraded = res.Degraded
		pr.PastSkipped = res.PastSkipped
		pr.Candidates = len(res.Candidates)
		pr.Aborted = res.Aborted
	}
	if err != nil {
		s.fail(pr, err)
		return pr
	}
	if len(res.Candidates) == 0 {
		return pr
	}

	setState(adapter.StageUpserting)
	pr.UpsertResult = s.store.UpsertMany(ctx, res.Candidates)
	s.metrics.UpsertOutcomes(string(source), pr.Inserted, pr.Updated, pr.Failed)
	log.WithFields(logrus.Fields{
		"inserted": pr.Inserted,
		"updated":  pr.Updated,
		"failed":   pr.Failed,
	}).Info("入库完成")
	return pr
}

func (s *IngestionService) fail(pr *ProviderReport, err error) {
	pr.Err = err
	pr.ErrorMsg = err.Error()
	s.metrics.ProviderFailed(string(pr.Source))
	s.logger.WithError(err).WithField("source", pr.Source).Error("来源采集失败")
}

// Sweep 失效已结束的活动
func (s *IngestionService) Sweep(ctx context.Context) (int64, error) {
	n, err := s.store.DeactivateExpired(ctx)
	if err != nil {
		return 0, err
	}
	s.metrics.EventsDeactivated(n)
	s.logger.WithField("deactivated", n).Info("过期活动清理完成")
	return n, nil
}
