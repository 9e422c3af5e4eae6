package observability

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/charpstar/pipeline-backend/internal/platform/envutil"
	"github.com/charpstar/pipeline-backend/internal/platform/logger"
)

const namespace = "pipeline"

// Metrics holds the Prometheus collectors for the service. All methods are
// safe on a nil receiver so callers never need to check whether metrics are on.
type Metrics struct {
	reg *prometheus.Registry

	apiRequests *prometheus.CounterVec
	apiLatency  *prometheus.HistogramVec
	apiInflight prometheus.Gauge

	aggOps       *prometheus.CounterVec
	aggLatency   *prometheus.HistogramVec
	aggConflicts *prometheus.CounterVec
	aggRetries   *prometheus.CounterVec

	rollups          *prometheus.CounterVec
	bulkChunks       *prometheus.CounterVec
	catalogTransfers *prometheus.CounterVec
	sideEffects      *prometheus.CounterVec
	deadLetters      *prometheus.CounterVec
	cleanupDeletes   prometheus.Counter
}

var (
	initOnce sync.Once
	current  *Metrics
)

// Enabled reports whether METRICS_ENABLED (default true) is on.
func Enabled() bool {
	return envutil.Bool("METRICS_ENABLED", true)
}

// Init builds the process-wide metrics once. Returns nil when disabled.
func Init(log *logger.Logger) *Metrics {
	initOnce.Do(func() {
		if !Enabled() {
			if log != nil {
				log.Info("metrics disabled")
			}
			return
		}
		current = New(prometheus.NewRegistry())
		if log != nil {
			log.Info("metrics initialized", "namespace", namespace)
		}
	})
	return current
}

// Current returns the metrics built by Init, or nil.
func Current() *Metrics { return current }

// New registers every collector on reg.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		reg: reg,
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "http", Name: "requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		apiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "http", Name: "request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		apiInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "http", Name: "inflight_requests",
			Help: "Requests currently being served.",
		}),
		aggOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "aggregate", Name: "operations_total",
			Help: "Workflow write operations by name and outcome.",
		}, []string{"operation", "status"}),
		aggLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "aggregate", Name: "operation_duration_seconds",
			Help:    "Workflow write latency.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"operation"}),
		aggConflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "aggregate", Name: "conflicts_total",
			Help: "Compare-and-set conflicts by operation.",
		}, []string{"operation"}),
		aggRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "aggregate", Name: "retries_total",
			Help: "Retries by operation.",
		}, []string{"operation"}),
		rollups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "rollup", Name: "recomputes_total",
			Help: "Allocation list recomputes by outcome.",
		}, []string{"outcome"}),
		bulkChunks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "bulk", Name: "chunks_total",
			Help: "Bulk update chunk writes by status.",
		}, []string{"status"}),
		catalogTransfers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "catalog", Name: "transfers_total",
			Help: "Catalog transfer steps by stage and outcome.",
		}, []string{"stage", "outcome"}),
		sideEffects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "side_effect", Name: "tasks_total",
			Help: "Side-effect task transitions by kind and status.",
		}, []string{"kind", "status"}),
		deadLetters: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "side_effect", Name: "dead_letters_total",
			Help: "Side-effect tasks that exhausted their attempts.",
		}, []string{"kind"}),
		cleanupDeletes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "cleanup", Name: "deleted_lists_total",
			Help: "Allocation lists deleted by the sweeper.",
		}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.aggOps, m.aggLatency, m.aggConflicts, m.aggRetries,
		m.rollups, m.bulkChunks, m.catalogTransfers,
		m.sideEffects, m.deadLetters, m.cleanupDeletes,
	)
	return m
}

// Handler serves the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.reg
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.apiRequests.WithLabelValues(strings.ToUpper(method), route, status).Inc()
	m.apiLatency.WithLabelValues(strings.ToUpper(method), route).Observe(dur.Seconds())
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

func (m *Metrics) ObserveAggregateOperation(name, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.aggOps.WithLabelValues(name, status).Inc()
	m.aggLatency.WithLabelValues(name).Observe(dur.Seconds())
}

func (m *Metrics) IncAggregateConflict(name string) {
	if m == nil {
		return
	}
	m.aggConflicts.WithLabelValues(name).Inc()
}

func (m *Metrics) IncAggregateRetry(name string) {
	if m == nil {
		return
	}
	m.aggRetries.WithLabelValues(name).Inc()
}

// IncRollup records one recompute; outcome is approved|reverted|unchanged|failed.
func (m *Metrics) IncRollup(outcome string) {
	if m == nil {
		return
	}
	m.rollups.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncBulkChunk(status string) {
	if m == nil {
		return
	}
	m.bulkChunks.WithLabelValues(status).Inc()
}

func (m *Metrics) AddCatalogTransfer(stage, outcome string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.catalogTransfers.WithLabelValues(stage, outcome).Add(float64(n))
}

func (m *Metrics) IncSideEffect(kind, status string) {
	if m == nil {
		return
	}
	m.sideEffects.WithLabelValues(kind, status).Inc()
}

func (m *Metrics) IncDeadLetter(kind string) {
	if m == nil {
		return
	}
	m.deadLetters.WithLabelValues(kind).Inc()
}

func (m *Metrics) AddCleanupDeleted(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.cleanupDeletes.Add(float64(n))
}
