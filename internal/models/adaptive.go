package models

import "time"

// CognitiveProcessRecord describes a single decision made by a producer,
// with its timing, resource usage and outcome.
type CognitiveProcessRecord struct {
	SourceID    string    `json:"source_id"`
	ProcessType string    `json:"process_type"`
	DurationMS  float64   `json:"duration_ms"`
	MemoryMB    float64   `json:"memory_mb"`
	Success     bool      `json:"success"`
	Confidence  float64   `json:"confidence"`
	Timestamp   time.Time `json:"timestamp"`
}

// TaskWorkflowRecord describes one step of a multi-step task.
type TaskWorkflowRecord struct {
	SourceID      string    `json:"source_id"`
	WorkflowName  string    `json:"workflow_name"`
	StepName      string    `json:"step_name"`
	DurationMS    float64   `json:"duration_ms"`
	Success       bool      `json:"success"`
	FailureReason string    `json:"failure_reason,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// OutcomeRecord compares a predicted result against the observed one.
type OutcomeRecord struct {
	SourceID       string    `json:"source_id"`
	PredictedScore float64   `json:"predicted_score"`
	ActualScore    float64   `json:"actual_score"`
	Confidence     float64   `json:"confidence"`
	Success        bool      `json:"success"`
	Timestamp      time.Time `json:"timestamp"`
}

// PerformancePattern is a recurring structural regularity detected across
// many adaptive-loop events. Patterns are superseded, never mutated, as new
// evidence arrives.
type PerformancePattern struct {
	ID                 string    `json:"id"`
	PatternType        string    `json:"pattern_type"`
	Description        string    `json:"description"`
	Confidence         float64   `json:"confidence"`
	SupportingEvidence int       `json:"supporting_evidence_count"`
	DetectedAt         time.Time `json:"detected_at"`
}

// Adaptation records an autonomously decided behaviour-parameter change.
// The history is append-only; this core never reverts an adaptation.
type Adaptation struct {
	ID                string    `json:"id"`
	AdaptationType    string    `json:"adaptation_type"`
	Parameter         string    `json:"parameter"`
	Improvement       float64   `json:"improvement"`
	AppliedAt         time.Time `json:"applied_at"`
	TriggeringPattern string    `json:"triggering_pattern_ref"`
}

// AdaptiveStatistics summarises the adaptive loop state.
type AdaptiveStatistics struct {
	Processes         int `json:"processes"`
	Workflows         int `json:"workflows"`
	Outcomes          int `json:"outcomes"`
	Patterns          int `json:"patterns"`
	Adaptations       int `json:"adaptations"`
	RecentAdaptations int `json:"recent_adaptations"`
}
