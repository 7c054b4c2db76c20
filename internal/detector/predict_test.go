package detector

import (
	"testing"

	"github.com/miradorstack/mirador-sentinel/internal/models"
)

func historyOf(overalls ...float64) []models.AnomalyScore {
	scores := make([]models.AnomalyScore, 0, len(overalls))
	for _, v := range overalls {
		scores = append(scores, models.AnomalyScore{OverallScore: v})
	}
	return scores
}

func TestPredictColdStart(t *testing.T) {
	d := New(testConfig(), nil, nil)

	pred := d.PredictCrash()
	if pred.Probability != 0 {
		t.Fatalf("expected zero probability on cold start, got %v", pred.Probability)
	}
	if pred.PredictedTimeMinutes != 60 {
		t.Fatalf("expected 60 minute horizon, got %d", pred.PredictedTimeMinutes)
	}
	if pred.PrimaryCause != "unknown" {
		t.Fatalf("expected unknown cause, got %q", pred.PrimaryCause)
	}
	if len(pred.RecommendedActions) != 1 || pred.RecommendedActions[0] != "continue monitoring" {
		t.Fatalf("unexpected actions: %v", pred.RecommendedActions)
	}
	if pred.Confidence != 0.7 {
		t.Fatalf("expected base confidence 0.7 with empty history, got %v", pred.Confidence)
	}
}

func TestPredictRisingTrendRaisesProbability(t *testing.T) {
	d := New(testConfig(), nil, nil)
	seedBaseline(d, 10, 1.0, 50, 100)
	d.history = historyOf(0.1, 0.1, 0.1, 0.1, 0.1, 0.2, 0.2, 0.2, 0.2, 0.2)

	pred := d.PredictCrash()
	// trend = (0.2-0.1)/0.1 = 1.0; probability = 0.2 + 1.0*0.3.
	if pred.Probability < 0.49 || pred.Probability > 0.51 {
		t.Fatalf("expected probability near 0.5, got %v", pred.Probability)
	}
	if pred.PredictedTimeMinutes != 30 {
		t.Fatalf("expected 30 minute horizon, got %d", pred.PredictedTimeMinutes)
	}
}

func TestPredictNegativeTrendIgnored(t *testing.T) {
	d := New(testConfig(), nil, nil)
	seedBaseline(d, 10, 1.0, 50, 100)
	d.history = historyOf(0.8, 0.8, 0.8, 0.8, 0.8, 0.3, 0.3, 0.3, 0.3, 0.3)

	pred := d.PredictCrash()
	// Recovery must not shrink the probability below the latest score.
	if pred.Probability != 0.3 {
		t.Fatalf("expected probability 0.3, got %v", pred.Probability)
	}
}

func TestPredictProbabilityClamped(t *testing.T) {
	d := New(testConfig(), nil, nil)
	seedBaseline(d, 10, 1.0, 50, 100)
	d.history = historyOf(0.01, 0.01, 0.01, 0.01, 0.01, 0.95, 0.95, 0.95, 0.95, 0.95)

	pred := d.PredictCrash()
	if pred.Probability != 1 {
		t.Fatalf("expected clamped probability 1, got %v", pred.Probability)
	}
	if pred.PredictedTimeMinutes != 5 {
		t.Fatalf("expected 5 minute horizon, got %d", pred.PredictedTimeMinutes)
	}
}

func TestPredictCauseAttribution(t *testing.T) {
	d := New(testConfig(), nil, nil)
	seedBaseline(d, 10, 1.0, 50, 100)
	d.history = []models.AnomalyScore{{
		OverallScore:       0.75,
		ErrorAnomaly:       0.9,
		PerformanceAnomaly: 0.65,
		MemoryAnomaly:      0.55,
		PatternAnomaly:     0.6,
	}}

	pred := d.PredictCrash()
	if pred.PrimaryCause != "high error rate" {
		t.Fatalf("expected high error rate cause, got %q", pred.PrimaryCause)
	}

	wantFactors := []string{"high error rate", "performance degradation", "memory pressure", "abnormal operation patterns"}
	if len(pred.ContributingFactors) != len(wantFactors) {
		t.Fatalf("expected %d factors, got %v", len(wantFactors), pred.ContributingFactors)
	}
	for i, f := range wantFactors {
		if pred.ContributingFactors[i] != f {
			t.Fatalf("factor %d = %q, want %q", i, pred.ContributingFactors[i], f)
		}
	}

	if len(pred.RecommendedActions) == 0 || pred.RecommendedActions[0] != "review failing operations and recent deployments" {
		t.Fatalf("unexpected actions: %v", pred.RecommendedActions)
	}
}

func TestPredictConfidenceGrowsWithHistory(t *testing.T) {
	d := New(testConfig(), nil, nil)
	seedBaseline(d, 10, 1.0, 50, 100)
	for i := 0; i < 200; i++ {
		d.DetectAnomalies(snapshotWith(1.0, 50, 100))
	}

	pred := d.PredictCrash()
	if pred.Confidence != 1 {
		t.Fatalf("expected full confidence at history capacity, got %v", pred.Confidence)
	}
}
