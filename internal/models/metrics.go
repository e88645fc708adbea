package models

import "time"

// MetricsSnapshot summarizes process metrics for the JSON metrics endpoint.
type MetricsSnapshot struct {
	CacheHitRatio                  float64   `json:"cache_hit_ratio"`
	CacheHits                      uint64    `json:"cache_hits"`
	CacheMisses                    uint64    `json:"cache_misses"`
	RequestsTotal                  uint64    `json:"requests_total"`
	AverageRequestDurationMs       float64   `json:"avg_request_duration_ms"`
	UpstreamQueryCount             uint64    `json:"upstream_query_count"`
	AverageUpstreamQueryDurationMs float64   `json:"avg_upstream_query_duration_ms"`
	SkippedRecords                 uint64    `json:"skipped_records"`
	Goroutines                     int       `json:"goroutines"`
	GeneratedAt                    time.Time `json:"generated_at"`
}
