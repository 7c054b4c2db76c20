package models

import "time"

// RiskLevel is the four-tier classification derived from the overall anomaly score.
type RiskLevel string

const (
	RiskNormal   RiskLevel = "normal"
	RiskWarning  RiskLevel = "warning"
	RiskAlert    RiskLevel = "alert"
	RiskCritical RiskLevel = "critical"
)

// AnomalyScore scores one snapshot against the rolling baseline. All
// sub-scores and the overall score lie in [0,1]. Scores are immutable once
// computed and are retained in a bounded history.
type AnomalyScore struct {
	Timestamp          time.Time `json:"timestamp"`
	OverallScore       float64   `json:"overall_score"`
	ErrorAnomaly       float64   `json:"error_anomaly"`
	PerformanceAnomaly float64   `json:"performance_anomaly"`
	MemoryAnomaly      float64   `json:"memory_anomaly"`
	PatternAnomaly     float64   `json:"pattern_anomaly"`
	RiskLevel          RiskLevel `json:"risk_level"`
	DetectedPatterns   []string  `json:"detected_patterns"`
}

// PredictedCrash extrapolates the anomaly trend into a failure forecast.
// Derived on demand, never stored.
type PredictedCrash struct {
	Probability          float64  `json:"probability"`
	PredictedTimeMinutes int      `json:"predicted_time_minutes"`
	PrimaryCause         string   `json:"primary_cause"`
	ContributingFactors  []string `json:"contributing_factors"`
	RecommendedActions   []string `json:"recommended_actions"`
	Confidence           float64  `json:"confidence"`
}

// Alert is the payload element handed to notification channels.
type Alert struct {
	Level     string    `json:"level"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}
