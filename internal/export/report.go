// Package export renders the engine's state for external consumers: a
// Prometheus-compatible text dump and a JSON daily report.
package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/miradorstack/mirador-sentinel/internal/models"
)

// DailyReport bundles the current snapshot with the top findings and a
// natural-language summary for human consumption.
type DailyReport struct {
	GeneratedAt       time.Time                   `json:"generated_at"`
	Snapshot          models.MetricsSnapshot      `json:"snapshot"`
	Anomaly           models.AnomalyScore         `json:"anomaly"`
	Prediction        models.PredictedCrash       `json:"prediction"`
	TopPatterns       []models.PerformancePattern `json:"top_patterns"`
	RecentAdaptations []models.Adaptation         `json:"recent_adaptations"`
	Summary           string                      `json:"summary"`
}

// BuildDailyReport assembles a report from the engine's current state.
func BuildDailyReport(
	now time.Time,
	snap models.MetricsSnapshot,
	score models.AnomalyScore,
	prediction models.PredictedCrash,
	patterns []models.PerformancePattern,
	adaptations []models.Adaptation,
) DailyReport {
	if patterns == nil {
		patterns = []models.PerformancePattern{}
	}
	if adaptations == nil {
		adaptations = []models.Adaptation{}
	}
	return DailyReport{
		GeneratedAt:       now,
		Snapshot:          snap,
		Anomaly:           score,
		Prediction:        prediction,
		TopPatterns:       patterns,
		RecentAdaptations: adaptations,
		Summary:           summarize(snap, score, prediction, len(adaptations)),
	}
}

func summarize(snap models.MetricsSnapshot, score models.AnomalyScore, prediction models.PredictedCrash, adaptations int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Processed %d operations across %d sources at %.2f ops/sec with a %.1f%% error rate. ",
		snap.TotalOperations, len(snap.ActiveSources), snap.OperationsPerSecond, snap.ErrorRatePercent)
	fmt.Fprintf(&b, "Risk level is %s (overall anomaly score %.2f).", score.RiskLevel, score.OverallScore)

	if len(score.DetectedPatterns) > 0 {
		fmt.Fprintf(&b, " Detected: %s.", strings.Join(score.DetectedPatterns, "; "))
	}
	if prediction.Probability > 0.4 {
		fmt.Fprintf(&b, " Crash probability %.0f%% within %d minutes, primary cause: %s.",
			prediction.Probability*100, prediction.PredictedTimeMinutes, prediction.PrimaryCause)
	}
	if adaptations > 0 {
		fmt.Fprintf(&b, " %d adaptation(s) applied recently.", adaptations)
	}

	return b.String()
}
