package gopixel

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Request outcomes used as the "outcome" label.
const (
	OutcomeSuccess   = "success"
	OutcomeFailure   = "failure"
	OutcomeThrottled = "throttled"
	OutcomeError     = "error"
	OutcomeCached    = "cached"
)

// MetricsCollector provides Prometheus metrics for API calls, key rotation,
// caching and identity lookups. It is safe for concurrent use and every
// recorder is a no-op on a nil collector.
type MetricsCollector struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	throttlesTotal  *prometheus.CounterVec
	rotationsTotal  prometheus.Counter
	currentKeyIndex prometheus.Gauge

	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec

	identityLookups *prometheus.CounterVec

	errorsTotal *prometheus.CounterVec

	buildInfo *prometheus.GaugeVec

	registry prometheus.Registerer
}

// NewMetricsCollector creates a metrics collector on the default registerer.
func NewMetricsCollector() *MetricsCollector {
	return NewMetricsCollectorWithRegistry(prometheus.DefaultRegisterer)
}

// NewMetricsCollectorWithRegistry creates a collector using supplied registerer.
func NewMetricsCollectorWithRegistry(registry prometheus.Registerer) *MetricsCollector {
	factory := promauto.With(registry)
	mc := &MetricsCollector{
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gopixel_requests_total",
				Help: "Total number of API calls by action and outcome",
			},
			[]string{"action", "outcome"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gopixel_request_duration_seconds",
				Help:    "Duration of API calls in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"action"},
		),
		throttlesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gopixel_throttles_total",
				Help: "Total number of throttled responses by key position",
			},
			[]string{"key_index"},
		),
		rotationsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "gopixel_key_rotations_total",
				Help: "Total number of times the key pool moved to the next key",
			},
		),
		currentKeyIndex: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "gopixel_current_key_index",
				Help: "Position of the key currently used by the pool",
			},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gopixel_cache_hits_total",
				Help: "Total number of response cache hits",
			},
			[]string{"action"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gopixel_cache_misses_total",
				Help: "Total number of response cache misses",
			},
			[]string{"action"},
		),
		identityLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gopixel_identity_lookups_total",
				Help: "Total number of name to uuid resolutions by result",
			},
			[]string{"result"},
		),
		errorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gopixel_errors_total",
				Help: "Total number of errors returned to callers",
			},
			[]string{"type", "action"},
		),
		buildInfo: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "gopixel_build_info",
				Help: "Library build metadata, always 1",
			},
			[]string{"version", "commit", "go_version"},
		),
		registry: registry,
	}
	info := GetVersionInfo()
	mc.buildInfo.WithLabelValues(info["version"], info["commit"], info["go_version"]).Set(1)
	return mc
}

// RecordRequest records request count and duration.
func (mc *MetricsCollector) RecordRequest(action, outcome string, duration time.Duration) {
	if mc == nil {
		return
	}

	mc.requestsTotal.WithLabelValues(action, outcome).Inc()
	mc.requestDuration.WithLabelValues(action).Observe(duration.Seconds())
}

// RecordThrottle counts a throttled response for the key at index.
func (mc *MetricsCollector) RecordThrottle(index int) {
	if mc == nil {
		return
	}

	mc.throttlesTotal.WithLabelValues(strconv.Itoa(index)).Inc()
}

// RecordRotation counts a move to the key at index.
func (mc *MetricsCollector) RecordRotation(index int) {
	if mc == nil {
		return
	}

	mc.rotationsTotal.Inc()
	mc.currentKeyIndex.Set(float64(index))
}

// RecordKeyIndex sets the current key gauge without counting a rotation.
func (mc *MetricsCollector) RecordKeyIndex(index int) {
	if mc == nil {
		return
	}

	mc.currentKeyIndex.Set(float64(index))
}

// RecordCacheHit increments cache hit counter.
func (mc *MetricsCollector) RecordCacheHit(action string) {
	if mc == nil {
		return
	}

	mc.cacheHits.WithLabelValues(action).Inc()
}

// RecordCacheMiss increments cache miss counter.
func (mc *MetricsCollector) RecordCacheMiss(action string) {
	if mc == nil {
		return
	}

	mc.cacheMisses.WithLabelValues(action).Inc()
}

// RecordIdentityLookup counts a resolution with result
// "resolved", "cached", "not_found" or "error".
func (mc *MetricsCollector) RecordIdentityLookup(result string) {
	if mc == nil {
		return
	}

	mc.identityLookups.WithLabelValues(result).Inc()
}

// RecordError increments error counter by type.
func (mc *MetricsCollector) RecordError(errorType, action string) {
	if mc == nil {
		return
	}

	mc.errorsTotal.WithLabelValues(errorType, action).Inc()
}

// GetRegistry exposes the registerer the collector was built on.
func (mc *MetricsCollector) GetRegistry() prometheus.Registerer {
	return mc.registry
}
