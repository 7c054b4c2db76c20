package models

import "time"

// SlowOperation identifies one of the slowest operations in a window.
type SlowOperation struct {
	Source     string  `json:"source"`
	Operation  string  `json:"operation"`
	DurationMS float64 `json:"duration_ms"`
}

// SourceStats aggregates the operations of a single source.
type SourceStats struct {
	Count         int     `json:"count"`
	AvgDurationMS float64 `json:"avg_duration_ms"`
	ErrorCount    int     `json:"error_count"`
}

// MetricsSnapshot summarises the current operation window. Snapshots are
// immutable once computed and feed the anomaly detector's baseline.
type MetricsSnapshot struct {
	Timestamp           time.Time              `json:"timestamp"`
	TotalOperations     int                    `json:"total_operations"`
	OperationsPerSecond float64                `json:"operations_per_second"`
	AvgResponseTimeMS   float64                `json:"avg_response_time_ms"`
	ErrorRatePercent    float64                `json:"error_rate_percent"`
	MemoryUsageMB       float64                `json:"memory_usage_mb"`
	ActiveSources       []string               `json:"active_sources"`
	SlowestOperations   []SlowOperation        `json:"slowest_operations"`
	PerSource           map[string]SourceStats `json:"per_source_breakdown"`
}
