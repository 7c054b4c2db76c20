package aggregator

import "runtime"

// SystemMetricsProvider supplies process-level resource readings. The
// aggregator depends only on this interface so tests can inject
// deterministic fixtures.
type SystemMetricsProvider interface {
	MemoryUsageMB() float64
}

// RuntimeProvider reads memory usage from the Go runtime.
type RuntimeProvider struct{}

// MemoryUsageMB returns the current heap allocation in megabytes.
func (RuntimeProvider) MemoryUsageMB() float64 {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return float64(ms.HeapAlloc) / (1024 * 1024)
}

// StaticProvider returns a fixed reading; used in tests and dry runs.
type StaticProvider struct {
	MB float64
}

// MemoryUsageMB returns the configured value.
func (p StaticProvider) MemoryUsageMB() float64 { return p.MB }
