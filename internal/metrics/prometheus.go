// Package metrics 采集流水线的 Prometheus 指标
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Upsert 结果标签
const (
	OutcomeInserted = "inserted"
	OutcomeUpdated  = "updated"
	OutcomeFailed   = "failed"
)

// Option 配置 Manager
type Option func(*Manager)

// WithNamespace 指标命名空间
func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

// WithRegistry 使用自定义 registry（测试用）
func WithRegistry(registry *prometheus.Registry) Option {
	return func(m *Manager) {
		if registry != nil {
			m.registry = registry
		}
	}
}

// Manager 所有方法对 nil 接收者安全，未启用指标时可直接传 nil
type Manager struct {
	namespace string
	registry  *prometheus.Registry

	itemsDiscovered    *prometheus.CounterVec
	detailFailures     *prometheus.CounterVec
	extractionFallback *prometheus.CounterVec
	pastEventsSkipped  *prometheus.CounterVec
	candidates         *prometheus.CounterVec
	upserts            *prometheus.CounterVec
	providerFailures   *prometheus.CounterVec
	runDuration        prometheus.Histogram
	eventsDeactivated  prometheus.Counter
}

func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace: "eventsync",
		registry:  prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)
	sourceLabel := []string{"source"}

	m.itemsDiscovered = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "collector",
		Name:      "items_discovered_total",
		Help:      "Listing items discovered per source",
	}, sourceLabel)

	m.detailFailures = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "collector",
		Name:      "detail_failures_total",
		Help:      "Detail fetches that failed after retries",
	}, sourceLabel)

	m.extractionFallback = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "extractor",
		Name:      "fallback_total",
		Help:      "Extractions that degraded to the fallback record",
	}, sourceLabel)

	m.pastEventsSkipped = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "collector",
		Name:      "past_events_skipped_total",
		Help:      "Candidates dropped because their end date is not in the future",
	}, sourceLabel)

	m.candidates = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "collector",
		Name:      "candidates_total",
		Help:      "Candidates handed to the store",
	}, sourceLabel)

	m.upserts = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "store",
		Name:      "upserts_total",
		Help:      "Upsert outcomes per source",
	}, []string{"source", "outcome"})

	m.providerFailures = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "orchestrator",
		Name:      "provider_failures_total",
		Help:      "Providers whose whole collection failed",
	}, sourceLabel)

	m.runDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "orchestrator",
		Name:      "run_duration_seconds",
		Help:      "Duration of a full ingestion run",
		Buckets:   []float64{10, 30, 60, 120, 300, 600, 1200, 3600},
	})

	m.eventsDeactivated = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "store",
		Name:      "events_deactivated_total",
		Help:      "Events flipped inactive by the expiry sweep",
	})
}

// Handler /metrics
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Manager) ItemsDiscovered(source string, n int) {
	if m == nil {
		return
	}
	m.itemsDiscovered.WithLabelValues(source).Add(float64(n))
}

func (m *Manager) DetailFailed(source string) {
	if m == nil {
		return
	}
	m.detailFailures.WithLabelValues(source).Inc()
}

func (m *Manager) ExtractionFallback(source string) {
	if m == nil {
		return
	}
	m.extractionFallback.WithLabelValues(source).Inc()
}

func (m *Manager) PastEventSkipped(source string) {
	if m == nil {
		return
	}
	m.pastEventsSkipped.WithLabelValues(source).Inc()
}

func (m *Manager) CandidatesEmitted(source string, n int) {
	if m == nil {
		return
	}
	m.candidates.WithLabelValues(source).Add(float64(n))
}

// UpsertOutcomes 记录一次批量写入的结果
func (m *Manager) UpsertOutcomes(source string, inserted, updated, failed int) {
	if m == nil {
		return
	}
	m.upserts.WithLabelValues(source, OutcomeInserted).Add(float64(inserted))
	m.upserts.WithLabelValues(source, OutcomeUpdated).Add(float64(updated))
	m.upserts.WithLabelValues(source, OutcomeFailed).Add(float64(failed))
}

func (m *Manager) ProviderFailed(source string) {
	if m == nil {
		return
	}
	m.providerFailures.WithLabelValues(source).Inc()
}

func (m *Manager) ObserveRun(d time.Duration) {
	if m == nil {
		return
	}
	m.runDuration.Observe(d.Seconds())
}

func (m *Manager) EventsDeactivated(n int64) {
	if m == nil {
		return
	}
	m.eventsDeactivated.Add(float64(n))
}
