// Package aggregator turns the bounded operation window into immutable
// MetricsSnapshot values.
package aggregator

import (
	"sort"
	"time"

	"github.com/miradorstack/mirador-sentinel/internal/models"
)

// RecordSource exposes the operation window consumed by Snapshot.
type RecordSource interface {
	Window() []models.OperationRecord
}

// slowestLimit caps the slowest-operations list in each snapshot.
const slowestLimit = 5

// Aggregator computes rolling performance metrics from the record window.
// Snapshot is read-only with respect to window state; only the uptime
// denominator advances between calls.
type Aggregator struct {
	source    RecordSource
	system    SystemMetricsProvider
	startedAt time.Time
	now       func() time.Time
}

// Option customises an Aggregator.
type Option func(*Aggregator)

// WithClock overrides the wall clock; tests drive uptime deterministically.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		a.now = now
		a.startedAt = now()
	}
}

// New constructs an Aggregator over the given record source. A nil system
// provider falls back to runtime readings.
func New(source RecordSource, system SystemMetricsProvider, opts ...Option) *Aggregator {
	if system == nil {
		system = RuntimeProvider{}
	}
	agg := &Aggregator{
		source:    source,
		system:    system,
		startedAt: time.Now(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(agg)
	}
	return agg
}

// Snapshot computes a MetricsSnapshot from the current window. An empty
// window yields a zero-valued snapshot, never an error.
func (a *Aggregator) Snapshot() models.MetricsSnapshot {
	now := a.now()
	records := a.source.Window()

	snap := models.MetricsSnapshot{
		Timestamp:     now,
		MemoryUsageMB: a.system.MemoryUsageMB(),
		ActiveSources: []string{},
		PerSource:     map[string]models.SourceStats{},
	}
	if len(records) == 0 {
		return snap
	}

	elapsed := now.Sub(a.startedAt).Seconds()
	if elapsed <= 0 {
		elapsed = 1
	}

	errorCount := 0
	durationSum := 0.0
	durationN := 0
	sourceDurations := map[string]float64{}
	sourceDurationN := map[string]int{}

	for _, rec := range records {
		stats := snap.PerSource[rec.SourceID]
		stats.Count++
		if rec.Level == models.LevelError {
			errorCount++
			stats.ErrorCount++
		}
		if rec.HasDuration {
			durationSum += rec.DurationMS
			durationN++
			sourceDurations[rec.SourceID] += rec.DurationMS
			sourceDurationN[rec.SourceID]++
		}
		snap.PerSource[rec.SourceID] = stats
	}

	for id, stats := range snap.PerSource {
		if n := sourceDurationN[id]; n > 0 {
			stats.AvgDurationMS = sourceDurations[id] / float64(n)
			snap.PerSource[id] = stats
		}
		snap.ActiveSources = append(snap.ActiveSources, id)
	}
	sort.Strings(snap.ActiveSources)

	snap.TotalOperations = len(records)
	snap.OperationsPerSecond = float64(len(records)) / elapsed
	snap.ErrorRatePercent = float64(errorCount) / float64(len(records)) * 100
	if durationN > 0 {
		snap.AvgResponseTimeMS = durationSum / float64(durationN)
	}
	snap.SlowestOperations = slowest(records)

	return snap
}

func slowest(records []models.OperationRecord) []models.SlowOperation {
	timed := make([]models.SlowOperation, 0, len(records))
	for _, rec := range records {
		if !rec.HasDuration {
			continue
		}
		timed = append(timed, models.SlowOperation{
			Source:     rec.SourceID,
			Operation:  rec.Operation,
			DurationMS: rec.DurationMS,
		})
	}
	sort.SliceStable(timed, func(i, j int) bool {
		return timed[i].DurationMS > timed[j].DurationMS
	})
	if len(timed) > slowestLimit {
		timed = timed[:slowestLimit]
	}
	return timed
}
