package adaptive

import (
	"fmt"
	"testing"
	"time"

	"github.com/miradorstack/mirador-sentinel/internal/config"
	"github.com/miradorstack/mirador-sentinel/internal/models"
)

func testLoop() *Loop {
	return NewLoop(config.Default().Adaptive, nil)
}

func outcome(source string, confidence float64, success bool) models.OutcomeRecord {
	return models.OutcomeRecord{
		SourceID:   source,
		Confidence: confidence,
		Success:    success,
		Timestamp:  time.Now(),
	}
}

func TestAnalyzeBelowMinEvidenceEmitsNothing(t *testing.T) {
	loop := testLoop()
	loop.ObserveOutcome(outcome("planner", 0.2, false))
	loop.ObserveOutcome(outcome("planner", 0.3, false))

	loop.Analyze()
	if got := loop.Statistics().Patterns; got != 0 {
		t.Fatalf("expected no patterns below minimum evidence, got %d", got)
	}
}

func TestAnalyzeLowConfidencePattern(t *testing.T) {
	loop := testLoop()
	for i := 0; i < 3; i++ {
		loop.ObserveOutcome(outcome("planner", 0.2, false))
	}

	loop.Analyze()
	patterns := loop.RecentPatterns(10)
	if len(patterns) != 1 {
		t.Fatalf("expected 1 pattern, got %d", len(patterns))
	}
	p := patterns[0]
	if p.PatternType != PatternLowConfidence {
		t.Fatalf("pattern type = %s", p.PatternType)
	}
	if p.SupportingEvidence != 3 {
		t.Fatalf("evidence = %d, want 3", p.SupportingEvidence)
	}
	if p.Confidence != 0.5 {
		t.Fatalf("confidence at bare minimum should be 0.5, got %v", p.Confidence)
	}

	// 0.5 does not clear the 0.6 synthesis threshold.
	if got := loop.Statistics().Adaptations; got != 0 {
		t.Fatalf("expected no adaptation at confidence 0.5, got %d", got)
	}
}

func TestAnalyzeReemitsOnlyWithNewEvidence(t *testing.T) {
	loop := testLoop()
	for i := 0; i < 4; i++ {
		loop.ObserveOutcome(outcome("planner", 0.2, false))
	}

	loop.Analyze()
	loop.Analyze()
	if got := loop.Statistics().Patterns; got != 1 {
		t.Fatalf("unchanged evidence must not re-emit, got %d patterns", got)
	}

	loop.ObserveOutcome(outcome("planner", 0.1, false))
	loop.Analyze()
	if got := loop.Statistics().Patterns; got != 2 {
		t.Fatalf("grown evidence should supersede, got %d patterns", got)
	}
}

func TestAnalyzeSynthesizesAdaptation(t *testing.T) {
	loop := testLoop()
	// 5 low-confidence outcomes: confidence 5/6 clears the 0.6 threshold.
	for i := 0; i < 5; i++ {
		loop.ObserveOutcome(outcome("planner", 0.2, false))
	}

	loop.Analyze()
	adaptations := loop.AdaptationHistory(10)
	if len(adaptations) != 1 {
		t.Fatalf("expected 1 adaptation, got %d", len(adaptations))
	}
	a := adaptations[0]
	if a.AdaptationType != "raise_confidence_threshold" {
		t.Fatalf("adaptation type = %s", a.AdaptationType)
	}
	if a.Parameter != "planner" {
		t.Fatalf("parameter = %s", a.Parameter)
	}
	if a.Improvement != 0.1 {
		t.Fatalf("first synthesis should use the conservative estimate, got %v", a.Improvement)
	}
	if a.TriggeringPattern == "" || a.ID == "" {
		t.Fatalf("adaptation must reference pattern and carry an id: %+v", a)
	}
}

func TestAnalyzeStepFailurePattern(t *testing.T) {
	loop := testLoop()
	for i := 0; i < 5; i++ {
		loop.ObserveTaskWorkflow(models.TaskWorkflowRecord{
			SourceID:      "runner",
			WorkflowName:  "deploy",
			StepName:      "push-image",
			Success:       false,
			FailureReason: "registry timeout",
		})
	}

	loop.Analyze()
	patterns := loop.RecentPatterns(10)
	if len(patterns) != 1 || patterns[0].PatternType != PatternStepFailure {
		t.Fatalf("patterns = %+v", patterns)
	}
	adaptations := loop.AdaptationHistory(10)
	if len(adaptations) != 1 || adaptations[0].AdaptationType != "add_step_retry" {
		t.Fatalf("adaptations = %+v", adaptations)
	}
	if adaptations[0].Parameter != "push-image" {
		t.Fatalf("parameter = %s", adaptations[0].Parameter)
	}
}

func TestAnalyzeRisingDurationPattern(t *testing.T) {
	loop := testLoop()
	// Older half averages 100ms, recent half 300ms: well past the 1.2 factor.
	for i := 0; i < 4; i++ {
		loop.ObserveCognitiveProcess(models.CognitiveProcessRecord{
			SourceID: "svc", ProcessType: "inference", DurationMS: 100,
		})
	}
	for i := 0; i < 4; i++ {
		loop.ObserveCognitiveProcess(models.CognitiveProcessRecord{
			SourceID: "svc", ProcessType: "inference", DurationMS: 300,
		})
	}

	loop.Analyze()
	patterns := loop.RecentPatterns(10)
	if len(patterns) != 1 || patterns[0].PatternType != PatternRisingDuration {
		t.Fatalf("patterns = %+v", patterns)
	}
	adaptations := loop.AdaptationHistory(10)
	if len(adaptations) != 1 || adaptations[0].AdaptationType != "reduce_workload_batch" {
		t.Fatalf("adaptations = %+v", adaptations)
	}
}

func TestAnalyzeStableDurationsStaySilent(t *testing.T) {
	loop := testLoop()
	for i := 0; i < 8; i++ {
		loop.ObserveCognitiveProcess(models.CognitiveProcessRecord{
			SourceID: "svc", ProcessType: "inference", DurationMS: 100,
		})
	}

	loop.Analyze()
	if got := loop.Statistics().Patterns; got != 0 {
		t.Fatalf("stable durations must not produce a pattern, got %d", got)
	}
}

func TestStatisticsCountsAndRecentWindow(t *testing.T) {
	loop := testLoop()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	loop.now = func() time.Time { return base }

	loop.ObserveCognitiveProcess(models.CognitiveProcessRecord{SourceID: "a", ProcessType: "x", DurationMS: 1})
	loop.ObserveTaskWorkflow(models.TaskWorkflowRecord{SourceID: "a", StepName: "s", Success: true})
	for i := 0; i < 5; i++ {
		loop.ObserveOutcome(outcome("planner", 0.2, false))
	}
	loop.Analyze()

	stats := loop.Statistics()
	if stats.Processes != 1 || stats.Workflows != 1 || stats.Outcomes != 5 {
		t.Fatalf("counts = %+v", stats)
	}
	if stats.Adaptations != 1 || stats.RecentAdaptations != 1 {
		t.Fatalf("adaptations = %+v", stats)
	}

	// Move past the recent window: the adaptation ages out of the recent count.
	loop.now = func() time.Time { return base.Add(25 * time.Hour) }
	stats = loop.Statistics()
	if stats.Adaptations != 1 || stats.RecentAdaptations != 0 {
		t.Fatalf("aged stats = %+v", stats)
	}
}

func TestEventLogsBounded(t *testing.T) {
	cfg := config.Default().Adaptive
	cfg.LogCapacity = 10
	loop := NewLoop(cfg, nil)

	for i := 0; i < 25; i++ {
		loop.ObserveOutcome(models.OutcomeRecord{
			SourceID:  fmt.Sprintf("src-%d", i),
			Success:   true,
			Timestamp: time.Now(),
		})
	}
	if got := loop.Statistics().Outcomes; got != 10 {
		t.Fatalf("outcome log should cap at 10, got %d", got)
	}
}
