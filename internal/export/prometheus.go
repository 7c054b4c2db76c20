package export

import (
	"fmt"
	"sort"
	"strings"

	"github.com/miradorstack/mirador-sentinel/internal/models"
)

// RenderPrometheus renders one snapshot in the Prometheus text exposition
// format (metric name, TYPE comment, value) so external monitoring can
// scrape the engine's view of its producers.
func RenderPrometheus(snap models.MetricsSnapshot) string {
	var b strings.Builder

	writeMetric(&b, "sentinel_operations_total", "counter", float64(snap.TotalOperations))
	writeMetric(&b, "sentinel_operations_per_second", "gauge", snap.OperationsPerSecond)
	writeMetric(&b, "sentinel_avg_response_time_ms", "gauge", snap.AvgResponseTimeMS)
	writeMetric(&b, "sentinel_error_rate_percent", "gauge", snap.ErrorRatePercent)
	writeMetric(&b, "sentinel_memory_usage_mb", "gauge", snap.MemoryUsageMB)
	writeMetric(&b, "sentinel_active_sources", "gauge", float64(len(snap.ActiveSources)))

	if len(snap.PerSource) > 0 {
		sources := make([]string, 0, len(snap.PerSource))
		for id := range snap.PerSource {
			sources = append(sources, id)
		}
		sort.Strings(sources)

		fmt.Fprintf(&b, "# TYPE sentinel_source_operations_total counter\n")
		for _, id := range sources {
			fmt.Fprintf(&b, "sentinel_source_operations_total{source=%q} %d\n", id, snap.PerSource[id].Count)
		}
		fmt.Fprintf(&b, "# TYPE sentinel_source_errors_total counter\n")
		for _, id := range sources {
			fmt.Fprintf(&b, "sentinel_source_errors_total{source=%q} %d\n", id, snap.PerSource[id].ErrorCount)
		}
	}

	return b.String()
}

func writeMetric(b *strings.Builder, name, metricType string, value float64) {
	fmt.Fprintf(b, "# TYPE %s %s\n", name, metricType)
	fmt.Fprintf(b, "%s %g\n", name, value)
}
