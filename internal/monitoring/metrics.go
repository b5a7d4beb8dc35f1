package monitoring

import (
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds application metrics. Counters are mirrored into a Prometheus registry.
type Metrics struct {
	RequestCount  int64
	ErrorCount    int64
	CacheHits     int64
	CacheMisses   int64
	FlaggedTotal  int64
	ModelVersion  int64
	StartTime     time.Time
	totalRespTime int64

	RateLimitRedisErrors    int64
	RateLimitFallbackCount  int64
	RateLimitEndpointBlocks map[string]int64
	RateLimitMutex          sync.RWMutex

	registry          *prometheus.Registry
	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	analyticsRuns     *prometheus.CounterVec
	analyticsDuration *prometheus.HistogramVec
	accountsFlagged   prometheus.Counter
	modelVersion      prometheus.Gauge
	cacheEvents       *prometheus.CounterVec
	rateLimitBlocks   *prometheus.CounterVec
	poolInFlight      prometheus.Gauge
}

// NewMetrics creates a metrics set with its own registry
func NewMetrics() *Metrics {
	m := &Metrics{
		StartTime:               time.Now(),
		RateLimitEndpointBlocks: make(map[string]int64),
		registry:                prometheus.NewRegistry(),

		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "campus_http_requests_total",
			Help: "Total HTTP requests by route and status",
		}, []string{"method", "route", "status"}),

		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "campus_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),

		analyticsRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "campus_analytics_runs_total",
			Help: "Analytics operations by outcome",
		}, []string{"operation", "outcome"}),

		analyticsDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "campus_analytics_duration_seconds",
			Help:    "Time spent fitting and scoring per analytics operation",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}, []string{"operation"}),

		accountsFlagged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "campus_accounts_flagged_total",
			Help: "Accounts flagged by fake profile detection",
		}),

		modelVersion: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "campus_attendance_model_version",
			Help: "Version of the attendance model currently installed",
		}),

		cacheEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "campus_model_cache_events_total",
			Help: "Prediction model cache lookups",
		}, []string{"result"}),

		rateLimitBlocks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "campus_rate_limit_blocks_total",
			Help: "Requests rejected by the rate limiter",
		}, []string{"endpoint"}),

		poolInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "campus_analytics_jobs_in_flight",
			Help: "Analytics jobs currently holding a worker slot",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.analyticsRuns,
		m.analyticsDuration,
		m.accountsFlagged,
		m.modelVersion,
		m.cacheEvents,
		m.rateLimitBlocks,
		m.poolInFlight,
	)
	return m
}

// Registry exposes the underlying registry for tests and extra collectors
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordRequest counts one finished HTTP request
func (m *Metrics) RecordRequest(method, route string, status int, duration time.Duration) {
	atomic.AddInt64(&m.RequestCount, 1)
	atomic.AddInt64(&m.totalRespTime, int64(duration))
	if status >= 400 {
		atomic.AddInt64(&m.ErrorCount, 1)
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordAnalytics counts one analytics run and its duration
func (m *Metrics) RecordAnalytics(operation, outcome string, duration time.Duration) {
	m.analyticsRuns.WithLabelValues(operation, outcome).Inc()
	m.analyticsDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func (m *Metrics) AddFlagged(n int) {
	atomic.AddInt64(&m.FlaggedTotal, int64(n))
	m.accountsFlagged.Add(float64(n))
}

func (m *Metrics) SetModelVersion(v int) {
	atomic.StoreInt64(&m.ModelVersion, int64(v))
	m.modelVersion.Set(float64(v))
}

func (m *Metrics) IncrementCacheHit() {
	atomic.AddInt64(&m.CacheHits, 1)
	m.cacheEvents.WithLabelValues("hit").Inc()
}

func (m *Metrics) IncrementCacheMiss() {
	atomic.AddInt64(&m.CacheMisses, 1)
	m.cacheEvents.WithLabelValues("miss").Inc()
}

// JobStarted and JobFinished track worker pool occupancy
func (m *Metrics) JobStarted() {
	m.poolInFlight.Inc()
}

func (m *Metrics) JobFinished() {
	m.poolInFlight.Dec()
}

func (m *Metrics) IncrementRateLimitRedisError() {
	atomic.AddInt64(&m.RateLimitRedisErrors, 1)
}

func (m *Metrics) IncrementRateLimitFallback() {
	atomic.AddInt64(&m.RateLimitFallbackCount, 1)
}

func (m *Metrics) IncrementRateLimitEndpoint(endpoint string) {
	m.RateLimitMutex.Lock()
	m.RateLimitEndpointBlocks[endpoint]++
	m.RateLimitMutex.Unlock()
	m.rateLimitBlocks.WithLabelValues(endpoint).Inc()
}

// GetStats returns a snapshot used by the health endpoint
func (m *Metrics) GetStats() map[string]interface{} {
	requests := atomic.LoadInt64(&m.RequestCount)
	errorsCount := atomic.LoadInt64(&m.ErrorCount)
	hits := atomic.LoadInt64(&m.CacheHits)
	misses := atomic.LoadInt64(&m.CacheMisses)

	var avgMs float64
	if requests > 0 {
		avgMs = float64(atomic.LoadInt64(&m.totalRespTime)) / float64(requests) / float64(time.Millisecond)
	}
	var errorRate float64
	if requests > 0 {
		errorRate = float64(errorsCount) / float64(requests)
	}
	var hitRate float64
	if hits+misses > 0 {
		hitRate = float64(hits) / float64(hits+misses)
	}

	m.RateLimitMutex.RLock()
	blocks := make(map[string]int64, len(m.RateLimitEndpointBlocks))
	for k, v := range m.RateLimitEndpointBlocks {
		blocks[k] = v
	}
	m.RateLimitMutex.RUnlock()

	return map[string]interface{}{
		"uptime_seconds":         time.Since(m.StartTime).Seconds(),
		"request_count":          requests,
		"error_count":            errorsCount,
		"error_rate":             errorRate,
		"avg_response_time_ms":   avgMs,
		"cache_hit_rate":         hitRate,
		"accounts_flagged":       atomic.LoadInt64(&m.FlaggedTotal),
		"attendance_model":       atomic.LoadInt64(&m.ModelVersion),
		"rate_limit_redis_error": atomic.LoadInt64(&m.RateLimitRedisErrors),
		"rate_limit_fallback":    atomic.LoadInt64(&m.RateLimitFallbackCount),
		"rate_limit_blocks":      blocks,
	}
}
