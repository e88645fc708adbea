package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/tutoring-payments-api/internal/models"
)

// MetricsService owns the Prometheus registry and keeps running totals for snapshots.
type MetricsService struct {
	registry              *prometheus.Registry
	handler               http.Handler
	requestDuration       *prometheus.HistogramVec
	requestTotal          *prometheus.CounterVec
	cacheLatency          prometheus.Observer
	cacheWrite            prometheus.Observer
	cacheHitRatio         prometheus.Gauge
	cacheHits             prometheus.Counter
	cacheMisses           prometheus.Counter
	upstreamQueryDuration *prometheus.HistogramVec
	reportDuration        *prometheus.HistogramVec
	skippedRecords        *prometheus.CounterVec
	remindersQueued       *prometheus.CounterVec

	cacheHitCount              uint64
	cacheMissCount             uint64
	requestCount               uint64
	requestDurationTotal       uint64
	upstreamQueryCount         uint64
	upstreamQueryDurationTotal uint64
	skippedCount               uint64
}

// NewMetricsService registers the collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache lookups",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache writes",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	upstreamQueryDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "upstream_query_duration_seconds",
		Help:    "Duration of RPC and document store queries",
		Buckets: prometheus.DefBuckets,
	}, []string{"query"})

	reportDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "payment_report_duration_seconds",
		Help:    "Time spent building payment reports",
		Buckets: prometheus.DefBuckets,
	}, []string{"report"})

	skippedRecords := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_report_skipped_records_total",
		Help: "Records left out of a payment report because an upstream read failed",
	}, []string{"report", "stage"})

	remindersQueued := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_reminders_queued_total",
		Help: "Payment reminders queued for delivery",
	}, []string{"channel"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		upstreamQueryDuration, reportDuration, skippedRecords, remindersQueued, goroutines)

	return &MetricsService{
		registry:              registry,
		handler:               promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:       requestDuration,
		requestTotal:          requestTotal,
		cacheLatency:          cacheLatency,
		cacheWrite:            cacheWrite,
		cacheHitRatio:         cacheHitRatio,
		cacheHits:             cacheHits,
		cacheMisses:           cacheMisses,
		upstreamQueryDuration: upstreamQueryDuration,
		reportDuration:        reportDuration,
		skippedRecords:        skippedRecords,
		remindersQueued:       remindersQueued,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registry returns the underlying registry.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// RecordCacheOperation records a cache lookup and updates the hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	total := hits + atomic.LoadUint64(&m.cacheMissCount)
	if total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks cache write latency.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveDBQuery records an upstream query. Labels are prefixed "rpc:" or "doc:".
func (m *MetricsService) ObserveDBQuery(label string, duration time.Duration) {
	if m == nil {
		return
	}
	m.upstreamQueryDuration.WithLabelValues(label).Observe(duration.Seconds())
	atomic.AddUint64(&m.upstreamQueryCount, 1)
	atomic.AddUint64(&m.upstreamQueryDurationTotal, uint64(duration.Nanoseconds()))
}

// ObserveReport records how long a report build took.
func (m *MetricsService) ObserveReport(report models.ReportKind, duration time.Duration) {
	if m == nil {
		return
	}
	m.reportDuration.WithLabelValues(string(report)).Observe(duration.Seconds())
}

// RecordSkipped counts records dropped from a report.
func (m *MetricsService) RecordSkipped(report models.ReportKind, skipped []models.SkippedRecord) {
	if m == nil {
		return
	}
	for _, s := range skipped {
		m.skippedRecords.WithLabelValues(string(report), s.Stage).Inc()
	}
	atomic.AddUint64(&m.skippedCount, uint64(len(skipped)))
}

// RecordReminderQueued counts a reminder accepted by the job queue.
func (m *MetricsService) RecordReminderQueued(channel models.NotificationChannel) {
	if m == nil {
		return
	}
	m.remindersQueued.WithLabelValues(string(channel)).Inc()
}

// Snapshot returns aggregated totals for the JSON metrics endpoint.
func (m *MetricsService) Snapshot() models.MetricsSnapshot {
	if m == nil {
		return models.MetricsSnapshot{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)
	queries := atomic.LoadUint64(&m.upstreamQueryCount)
	queryDuration := atomic.LoadUint64(&m.upstreamQueryDurationTotal)

	var cacheRatio float64
	if lookups := hits + misses; lookups > 0 {
		cacheRatio = float64(hits) / float64(lookups)
	}

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	var avgQueryMs float64
	if queries > 0 {
		avgQueryMs = float64(queryDuration) / float64(queries) / float64(time.Millisecond)
	}

	return models.MetricsSnapshot{
		CacheHitRatio:                  cacheRatio,
		CacheHits:                      hits,
		CacheMisses:                    misses,
		RequestsTotal:                  requests,
		AverageRequestDurationMs:       avgRequestMs,
		UpstreamQueryCount:             queries,
		AverageUpstreamQueryDurationMs: avgQueryMs,
		SkippedRecords:                 atomic.LoadUint64(&m.skippedCount),
		Goroutines:                     runtime.NumGoroutine(),
		GeneratedAt:                    time.Now().UTC(),
	}
}
