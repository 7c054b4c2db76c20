// Package adaptive detects recurring structure across cognitive, workflow
// and outcome events and synthesizes behaviour adaptations from it.
package adaptive

import (
	"log/slog"
	"sync"
	"time"

	"github.com/miradorstack/mirador-sentinel/internal/config"
	"github.com/miradorstack/mirador-sentinel/internal/models"
)

// Loop owns the adaptive-analysis state: three independent bounded event
// logs plus the pattern and adaptation histories. Each buffer is FIFO with
// eviction at capacity; everything is guarded by one mutex, and analysis
// runs on copies.
type Loop struct {
	mu     sync.Mutex
	cfg    config.AdaptiveConfig
	logger *slog.Logger
	now    func() time.Time

	processes []models.CognitiveProcessRecord
	workflows []models.TaskWorkflowRecord
	outcomes  []models.OutcomeRecord

	patterns    []models.PerformancePattern
	adaptations []models.Adaptation

	// Evidence counts at the last emission, per pattern key. Patterns are
	// superseded only when a cluster's evidence grows.
	emittedEvidence map[string]int
	adaptedEvidence map[string]int
	adaptedAt       map[string]time.Time
}

// NewLoop constructs an adaptive loop.
func NewLoop(cfg config.AdaptiveConfig, logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.LogCapacity <= 0 {
		cfg.LogCapacity = 500
	}
	if cfg.PatternCapacity <= 0 {
		cfg.PatternCapacity = 200
	}
	return &Loop{
		cfg:             cfg,
		logger:          logger,
		now:             time.Now,
		emittedEvidence: map[string]int{},
		adaptedEvidence: map[string]int{},
		adaptedAt:       map[string]time.Time{},
	}
}

// ObserveCognitiveProcess appends a decision record.
func (l *Loop) ObserveCognitiveProcess(rec models.CognitiveProcessRecord) {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = l.now()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.processes = appendBounded(l.processes, rec, l.cfg.LogCapacity)
}

// ObserveTaskWorkflow appends a workflow-step record.
func (l *Loop) ObserveTaskWorkflow(rec models.TaskWorkflowRecord) {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = l.now()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.workflows = appendBounded(l.workflows, rec, l.cfg.LogCapacity)
}

// ObserveOutcome appends a predicted-vs-actual record.
func (l *Loop) ObserveOutcome(rec models.OutcomeRecord) {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = l.now()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.outcomes = appendBounded(l.outcomes, rec, l.cfg.LogCapacity)
}

// Statistics returns counts of retained events, patterns and adaptations,
// plus adaptations applied within the recent window.
func (l *Loop) Statistics() models.AdaptiveStatistics {
	l.mu.Lock()
	defer l.mu.Unlock()

	recent := 0
	cutoff := l.now().Add(-l.cfg.RecentWindow)
	for _, a := range l.adaptations {
		if a.AppliedAt.After(cutoff) {
			recent++
		}
	}

	return models.AdaptiveStatistics{
		Processes:         len(l.processes),
		Workflows:         len(l.workflows),
		Outcomes:          len(l.outcomes),
		Patterns:          len(l.patterns),
		Adaptations:       len(l.adaptations),
		RecentAdaptations: recent,
	}
}

// RecentPatterns returns the most recent n patterns in detection order.
func (l *Loop) RecentPatterns(n int) []models.PerformancePattern {
	l.mu.Lock()
	defer l.mu.Unlock()
	return tail(l.patterns, n)
}

// AdaptationHistory returns the most recent n adaptations in applied order.
func (l *Loop) AdaptationHistory(n int) []models.Adaptation {
	l.mu.Lock()
	defer l.mu.Unlock()
	return tail(l.adaptations, n)
}

func appendBounded[T any](buf []T, item T, capacity int) []T {
	buf = append(buf, item)
	if len(buf) > capacity {
		copy(buf[0:], buf[1:])
		buf = buf[:capacity]
	}
	return buf
}

func tail[T any](buf []T, n int) []T {
	if n <= 0 || len(buf) == 0 {
		return []T{}
	}
	if n > len(buf) {
		n = len(buf)
	}
	return append([]T(nil), buf[len(buf)-n:]...)
}
