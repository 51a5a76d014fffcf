package observability

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fieldcare/fieldcare-backend/internal/platform/envutil"
	"github.com/fieldcare/fieldcare-backend/internal/platform/logger"
)

const namespace = "fc"

// Metrics holds the process collectors. All methods are safe on a nil
// receiver so callers never branch on whether metrics are enabled.
type Metrics struct {
	registry *prometheus.Registry

	apiRequests *prometheus.CounterVec
	apiLatency  *prometheus.HistogramVec
	apiInflight prometheus.Gauge

	aggregateOps       *prometheus.CounterVec
	aggregateLatency   *prometheus.HistogramVec
	aggregateConflicts *prometheus.CounterVec
	aggregateRetries   *prometheus.CounterVec

	acquisitions       *prometheus.CounterVec
	acquisitionLatency *prometheus.HistogramVec
	sourceCalls        *prometheus.CounterVec
	sourceLatency      *prometheus.HistogramVec
	cacheLookups       *prometheus.CounterVec
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool {
	return envutil.Bool("METRICS_ENABLED", false)
}

func Current() *Metrics {
	return instance
}

// Init builds the process-wide metrics once. It returns nil when
// METRICS_ENABLED is off.
func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		instance = NewMetrics()
		if log != nil {
			log.Info("prometheus metrics enabled", "namespace", namespace)
		}
	})
	return instance
}

// NewMetrics builds an independent registry; tests use it directly.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "Total API requests by method/route/status.",
		}, []string{"method", "route", "status"}),
		apiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "api_request_duration_seconds",
			Help:      "API request latency in seconds by method/route/status.",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"method", "route", "status"}),
		apiInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "api_inflight_requests",
			Help:      "In-flight API requests.",
		}),
		aggregateOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "aggregate_operations_total",
			Help:      "Aggregate write operations by name and outcome status.",
		}, []string{"operation", "status"}),
		aggregateLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "aggregate_operation_duration_seconds",
			Help:      "Aggregate write latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		aggregateConflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "aggregate_conflicts_total",
			Help:      "Aggregate writes rejected with a conflict.",
		}, []string{"operation"}),
		aggregateRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "aggregate_retryable_total",
			Help:      "Aggregate writes that failed with a retryable error.",
		}, []string{"operation"}),
		acquisitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ndvi_acquisitions_total",
			Help:      "NDVI acquisitions by winning source and kind (measured/estimated/mock).",
		}, []string{"source", "kind"}),
		acquisitionLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ndvi_acquisition_duration_seconds",
			Help:      "End-to-end NDVI acquisition latency in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 40, 80},
		}, []string{"kind"}),
		sourceCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ndvi_source_calls_total",
			Help:      "Vegetation index source calls by source and outcome.",
		}, []string{"source", "outcome"}),
		sourceLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ndvi_source_call_duration_seconds",
			Help:      "Vegetation index source call latency in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 20},
		}, []string{"source"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ndvi_cache_lookups_total",
			Help:      "NDVI acquisition cache lookups by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.aggregateOps, m.aggregateLatency, m.aggregateConflicts, m.aggregateRetries,
		m.acquisitions, m.acquisitionLatency, m.sourceCalls, m.sourceLatency, m.cacheLookups,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) IncInflight() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) DecInflight() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

func (m *Metrics) ObserveAPIRequest(method, route string, status int, dur time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	code := strconv.Itoa(status)
	m.apiRequests.WithLabelValues(method, route, code).Inc()
	m.apiLatency.WithLabelValues(method, route, code).Observe(dur.Seconds())
}

func (m *Metrics) ObserveAggregateOperation(name, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.aggregateOps.WithLabelValues(name, status).Inc()
	m.aggregateLatency.WithLabelValues(name).Observe(dur.Seconds())
}

func (m *Metrics) IncAggregateConflict(name string) {
	if m == nil {
		return
	}
	m.aggregateConflicts.WithLabelValues(name).Inc()
}

func (m *Metrics) IncAggregateRetry(name string) {
	if m == nil {
		return
	}
	m.aggregateRetries.WithLabelValues(name).Inc()
}

func (m *Metrics) ObserveAcquisition(source, kind string, dur time.Duration) {
	if m == nil {
		return
	}
	m.acquisitions.WithLabelValues(source, kind).Inc()
	m.acquisitionLatency.WithLabelValues(kind).Observe(dur.Seconds())
}

// ObserveSourceCall records one adapter call; outcome is "ok", "unavailable" or "timeout".
func (m *Metrics) ObserveSourceCall(source, outcome string, dur time.Duration) {
	if m == nil {
		return
	}
	m.sourceCalls.WithLabelValues(source, outcome).Inc()
	m.sourceLatency.WithLabelValues(source).Observe(dur.Seconds())
}

// IncCacheLookup records "hit", "miss" or "error".
func (m *Metrics) IncCacheLookup(result string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}
