package adaptive

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/miradorstack/mirador-sentinel/internal/models"
)

// Pattern types emitted by the analysis pass.
const (
	PatternLowConfidence  = "low_confidence_outcomes"
	PatternStepFailure    = "repeated_step_failure"
	PatternRisingDuration = "rising_duration"
)

// lowConfidenceCutoff marks an outcome as uncertain.
const lowConfidenceCutoff = 0.5

// risingFactor is how much the recent half of a process type's durations
// must exceed the older half before the drift counts as systematic.
const risingFactor = 1.2

// conservativeImprovement is the estimate recorded when no post-pattern
// outcome evidence exists yet.
const conservativeImprovement = 0.1

type cluster struct {
	key         string
	patternType string
	subject     string
	evidence    int
	description string
}

// Analyze runs one analysis pass: it scans the event logs for recurring
// clusters, records a PerformancePattern for each cluster whose evidence
// grew since the last pass, and synthesizes an Adaptation for patterns whose
// confidence clears the synthesis threshold. Insufficient evidence simply
// suppresses emission; Analyze never fails.
func (l *Loop) Analyze() {
	l.mu.Lock()
	processes := append([]models.CognitiveProcessRecord(nil), l.processes...)
	workflows := append([]models.TaskWorkflowRecord(nil), l.workflows...)
	outcomes := append([]models.OutcomeRecord(nil), l.outcomes...)
	l.mu.Unlock()

	clusters := make([]cluster, 0)
	clusters = append(clusters, l.lowConfidenceClusters(outcomes)...)
	clusters = append(clusters, l.stepFailureClusters(workflows)...)
	clusters = append(clusters, l.risingDurationClusters(processes)...)

	now := l.now()
	for _, c := range clusters {
		if c.evidence < l.cfg.MinEvidence {
			continue
		}

		l.mu.Lock()
		if l.emittedEvidence[c.key] >= c.evidence {
			l.mu.Unlock()
			continue
		}
		l.emittedEvidence[c.key] = c.evidence

		pattern := models.PerformancePattern{
			ID:                 uuid.NewString(),
			PatternType:        c.patternType,
			Description:        c.description,
			Confidence:         confidenceFor(c.evidence, l.cfg.MinEvidence),
			SupportingEvidence: c.evidence,
			DetectedAt:         now,
		}
		l.patterns = appendBounded(l.patterns, pattern, l.cfg.PatternCapacity)
		l.mu.Unlock()

		l.logger.Debug("pattern detected",
			slog.String("type", pattern.PatternType),
			slog.Float64("confidence", pattern.Confidence),
			slog.Int("evidence", pattern.SupportingEvidence))

		if pattern.Confidence > l.cfg.SynthesisThreshold {
			l.synthesize(pattern, c, outcomes, now)
		}
	}
}

// confidenceFor scales evidence against twice the minimum-evidence
// threshold, so a cluster at the bare minimum sits at 0.5.
func confidenceFor(evidence, minEvidence int) float64 {
	conf := float64(evidence) / float64(2*minEvidence)
	if conf > 1 {
		conf = 1
	}
	return conf
}

func (l *Loop) lowConfidenceClusters(outcomes []models.OutcomeRecord) []cluster {
	counts := map[string]int{}
	for _, o := range outcomes {
		if o.Confidence < lowConfidenceCutoff {
			counts[o.SourceID]++
		}
	}

	clusters := make([]cluster, 0, len(counts))
	for source, n := range counts {
		clusters = append(clusters, cluster{
			key:         "low-confidence:" + source,
			patternType: PatternLowConfidence,
			subject:     source,
			evidence:    n,
			description: fmt.Sprintf("%d low-confidence outcomes from %s", n, source),
		})
	}
	return clusters
}

func (l *Loop) stepFailureClusters(workflows []models.TaskWorkflowRecord) []cluster {
	counts := map[string]int{}
	for _, w := range workflows {
		if !w.Success && w.StepName != "" {
			counts[w.StepName]++
		}
	}

	clusters := make([]cluster, 0, len(counts))
	for step, n := range counts {
		clusters = append(clusters, cluster{
			key:         "step-failure:" + step,
			patternType: PatternStepFailure,
			subject:     step,
			evidence:    n,
			description: fmt.Sprintf("%d workflow failures at step %q", n, step),
		})
	}
	return clusters
}

// risingDurationClusters flags process types whose recent durations
// systematically exceed their earlier ones.
func (l *Loop) risingDurationClusters(processes []models.CognitiveProcessRecord) []cluster {
	byType := map[string][]models.CognitiveProcessRecord{}
	for _, p := range processes {
		if p.ProcessType != "" {
			byType[p.ProcessType] = append(byType[p.ProcessType], p)
		}
	}

	clusters := make([]cluster, 0)
	for processType, recs := range byType {
		if len(recs) < 2*l.cfg.MinEvidence {
			continue
		}
		mid := len(recs) / 2
		older := avgDuration(recs[:mid])
		recent := avgDuration(recs[mid:])
		if older <= 0 || recent <= older*risingFactor {
			continue
		}
		clusters = append(clusters, cluster{
			key:         "rising-duration:" + processType,
			patternType: PatternRisingDuration,
			subject:     processType,
			evidence:    len(recs),
			description: fmt.Sprintf("%s durations rose from %.0fms to %.0fms", processType, older, recent),
		})
	}
	return clusters
}

func avgDuration(recs []models.CognitiveProcessRecord) float64 {
	if len(recs) == 0 {
		return 0
	}
	sum := 0.0
	for _, r := range recs {
		sum += r.DurationMS
	}
	return sum / float64(len(recs))
}

// synthesize records an Adaptation for a sufficiently confident pattern. The
// improvement estimate is the delta between post- and pre-adaptation outcome
// success rates when evidence for a previous adaptation of the same cluster
// exists, otherwise a conservative fixed estimate.
func (l *Loop) synthesize(pattern models.PerformancePattern, c cluster, outcomes []models.OutcomeRecord, now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.adaptedEvidence[c.key] >= c.evidence {
		return
	}
	l.adaptedEvidence[c.key] = c.evidence

	improvement := conservativeImprovement
	if prev, ok := l.adaptedAt[c.key]; ok {
		if delta, measurable := successRateDelta(outcomes, prev); measurable {
			improvement = delta
		}
	}
	l.adaptedAt[c.key] = now

	adaptation := models.Adaptation{
		ID:                uuid.NewString(),
		AdaptationType:    adaptationTypeFor(pattern.PatternType),
		Parameter:         c.subject,
		Improvement:       improvement,
		AppliedAt:         now,
		TriggeringPattern: pattern.ID,
	}
	l.adaptations = appendBounded(l.adaptations, adaptation, l.cfg.PatternCapacity)

	l.logger.Info("adaptation synthesized",
		slog.String("type", adaptation.AdaptationType),
		slog.String("parameter", adaptation.Parameter),
		slog.Float64("improvement", adaptation.Improvement))
}

func adaptationTypeFor(patternType string) string {
	switch patternType {
	case PatternLowConfidence:
		return "raise_confidence_threshold"
	case PatternStepFailure:
		return "add_step_retry"
	case PatternRisingDuration:
		return "reduce_workload_batch"
	default:
		return "tune_parameters"
	}
}

// successRateDelta compares outcome success rates after and before the
// pivot. Both sides need at least one sample to be measurable.
func successRateDelta(outcomes []models.OutcomeRecord, pivot time.Time) (float64, bool) {
	var preOK, preN, postOK, postN int
	for _, o := range outcomes {
		if o.Timestamp.After(pivot) {
			postN++
			if o.Success {
				postOK++
			}
		} else {
			preN++
			if o.Success {
				preOK++
			}
		}
	}
	if preN == 0 || postN == 0 {
		return 0, false
	}

	delta := float64(postOK)/float64(postN) - float64(preOK)/float64(preN)
	if delta < 0 {
		delta = 0
	}
	if delta > 1 {
		delta = 1
	}
	return delta, true
}
