package detector

import "github.com/miradorstack/mirador-sentinel/internal/models"

// Sub-score thresholds for cause attribution and action assembly.
const (
	primaryCauseCutoff = 0.7
	contributingCutoff = 0.5
	actionCutoff       = 0.6
)

// PredictCrash extrapolates the anomaly-score trend into a failure forecast.
// The prediction derives from the latest score plus the trend over the last
// ten scores; it is computed on demand and never stored.
func (d *Detector) PredictCrash() models.PredictedCrash {
	d.mu.Lock()
	baselineLen := len(d.baseline)
	history := append([]models.AnomalyScore(nil), d.history...)
	d.mu.Unlock()

	prediction := models.PredictedCrash{
		PredictedTimeMinutes: 60,
		PrimaryCause:         "unknown",
		ContributingFactors:  []string{},
		RecommendedActions:   []string{"continue monitoring"},
		Confidence:           clamp01(0.7 + 0.3*float64(len(history))/float64(d.cfg.HistorySize)),
	}

	// Cold start: with an insufficient baseline the forecast stays zero.
	if baselineLen < d.cfg.MinBaseline || len(history) == 0 {
		return prediction
	}

	latest := history[len(history)-1]
	trend := scoreTrend(history)

	prob := latest.OverallScore
	if trend > 0 {
		prob += trend * 0.3
	}
	prediction.Probability = clamp01(prob)

	switch {
	case prediction.Probability > 0.8:
		prediction.PredictedTimeMinutes = 5
	case prediction.Probability > 0.6:
		prediction.PredictedTimeMinutes = 15
	case prediction.Probability > 0.4:
		prediction.PredictedTimeMinutes = 30
	default:
		prediction.PredictedTimeMinutes = 60
	}

	prediction.PrimaryCause = primaryCause(latest)
	prediction.ContributingFactors = contributingFactors(latest)
	prediction.RecommendedActions = recommendedActions(latest)

	return prediction
}

// scoreTrend compares the mean of the last five overall scores to the five
// before that, normalized by the older mean.
func scoreTrend(history []models.AnomalyScore) float64 {
	if len(history) < 10 {
		return 0
	}

	recent := meanOverall(history[len(history)-5:])
	older := meanOverall(history[len(history)-10 : len(history)-5])

	denom := older
	if denom < 0.01 {
		denom = 0.01
	}
	return (recent - older) / denom
}

func meanOverall(scores []models.AnomalyScore) float64 {
	sum := 0.0
	for _, s := range scores {
		sum += s.OverallScore
	}
	return sum / float64(len(scores))
}

func primaryCause(score models.AnomalyScore) string {
	cause := "unknown"
	best := primaryCauseCutoff
	if score.ErrorAnomaly > best {
		cause, best = "high error rate", score.ErrorAnomaly
	}
	if score.MemoryAnomaly > best {
		cause, best = "memory issue", score.MemoryAnomaly
	}
	if score.PerformanceAnomaly > best {
		cause = "performance degradation"
	}
	return cause
}

func contributingFactors(score models.AnomalyScore) []string {
	factors := []string{}
	if score.ErrorAnomaly > contributingCutoff {
		factors = append(factors, "high error rate")
	}
	if score.PerformanceAnomaly > contributingCutoff {
		factors = append(factors, "performance degradation")
	}
	if score.MemoryAnomaly > contributingCutoff {
		factors = append(factors, "memory pressure")
	}
	if score.PatternAnomaly > contributingCutoff {
		factors = append(factors, "abnormal operation patterns")
	}
	return factors
}

func recommendedActions(score models.AnomalyScore) []string {
	actions := []string{}
	if score.ErrorAnomaly > primaryCauseCutoff {
		actions = append(actions, "review failing operations and recent deployments")
	}
	if score.PerformanceAnomaly > actionCutoff {
		actions = append(actions, "profile slow operations and verify caching")
	}
	if score.MemoryAnomaly > actionCutoff {
		actions = append(actions, "reclaim memory or restart the affected process")
	}
	if score.PatternAnomaly > actionCutoff {
		actions = append(actions, "audit sources with recurring failures")
	}
	if len(actions) == 0 {
		actions = append(actions, "continue monitoring")
	}
	return actions
}
