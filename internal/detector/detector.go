// Package detector scores metrics snapshots against a rolling baseline using
// a z-score heuristic, classifies risk, and extrapolates crash predictions.
package detector

import (
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/miradorstack/mirador-sentinel/internal/config"
	"github.com/miradorstack/mirador-sentinel/internal/models"
)

// RecordSource exposes the raw event log for the pattern-anomaly scan.
type RecordSource interface {
	Recent(n int) []models.OperationRecord
}

// Detector maintains the baseline and anomaly-history rings. Both rings are
// guarded by a single mutex; all computation happens on copies taken under
// the lock.
type Detector struct {
	mu       sync.Mutex
	cfg      config.DetectorConfig
	logger   *slog.Logger
	source   RecordSource
	baseline []models.MetricsSnapshot
	history  []models.AnomalyScore
}

// New constructs a Detector. source may be nil, in which case the pattern
// sub-score stays zero.
func New(cfg config.DetectorConfig, logger *slog.Logger, source RecordSource) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{cfg: cfg, logger: logger, source: source}
}

// UpdateBaseline appends a snapshot, evicting the oldest beyond the
// configured baseline size.
func (d *Detector) UpdateBaseline(snap models.MetricsSnapshot) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.baseline = append(d.baseline, snap)
	if len(d.baseline) > d.cfg.BaselineSize {
		copy(d.baseline[0:], d.baseline[1:])
		d.baseline = d.baseline[:d.cfg.BaselineSize]
	}
}

// BaselineLen returns the current baseline size.
func (d *Detector) BaselineLen() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.baseline)
}

// DetectAnomalies scores the current snapshot against the baseline and
// appends the result to the anomaly history. With fewer than MinBaseline
// snapshots the zero/"normal" score is returned (cold start is not an
// error).
func (d *Detector) DetectAnomalies(current models.MetricsSnapshot) models.AnomalyScore {
	d.mu.Lock()
	baseline := append([]models.MetricsSnapshot(nil), d.baseline...)
	d.mu.Unlock()

	score := models.AnomalyScore{
		Timestamp:        current.Timestamp,
		RiskLevel:        models.RiskNormal,
		DetectedPatterns: []string{},
	}

	if len(baseline) >= d.cfg.MinBaseline {
		score.ErrorAnomaly = d.signalAnomaly(current.ErrorRatePercent, baseline, errorRate)
		score.PerformanceAnomaly = d.signalAnomaly(current.AvgResponseTimeMS, baseline, responseTime)
		score.MemoryAnomaly = d.signalAnomaly(current.MemoryUsageMB, baseline, memoryUsage)
		score.PatternAnomaly = d.patternAnomaly()

		w := d.cfg.Weights
		score.OverallScore = clamp01(w.Error*score.ErrorAnomaly +
			w.Performance*score.PerformanceAnomaly +
			w.Memory*score.MemoryAnomaly +
			w.Pattern*score.PatternAnomaly)
		score.RiskLevel = d.riskLevel(score.OverallScore)
		score.DetectedPatterns = d.detectPatterns(current)
	}

	d.mu.Lock()
	d.history = append(d.history, score)
	if len(d.history) > d.cfg.HistorySize {
		copy(d.history[0:], d.history[1:])
		d.history = d.history[:d.cfg.HistorySize]
	}
	d.mu.Unlock()

	if score.RiskLevel != models.RiskNormal {
		d.logger.Warn("anomaly detected",
			slog.Float64("overall_score", score.OverallScore),
			slog.String("risk_level", string(score.RiskLevel)),
			slog.Int("patterns", len(score.DetectedPatterns)))
	}

	return score
}

// LatestScore returns the most recent anomaly score, if any.
func (d *Detector) LatestScore() (models.AnomalyScore, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.history) == 0 {
		return models.AnomalyScore{}, false
	}
	return d.history[len(d.history)-1], true
}

// History returns a copy of the anomaly-score history in append order.
func (d *Detector) History() []models.AnomalyScore {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]models.AnomalyScore(nil), d.history...)
}

type signal int

const (
	errorRate signal = iota
	responseTime
	memoryUsage
)

func signalValue(s models.MetricsSnapshot, which signal) float64 {
	switch which {
	case responseTime:
		return s.AvgResponseTimeMS
	case memoryUsage:
		return s.MemoryUsageMB
	default:
		return s.ErrorRatePercent
	}
}

// signalAnomaly converts the current value's z-score against the baseline
// into [0,1]; a deviation of SaturationStdDevs saturates at 1.
func (d *Detector) signalAnomaly(current float64, baseline []models.MetricsSnapshot, which signal) float64 {
	mean := 0.0
	for _, snap := range baseline {
		mean += signalValue(snap, which)
	}
	mean /= float64(len(baseline))

	variance := 0.0
	for _, snap := range baseline {
		diff := signalValue(snap, which) - mean
		variance += diff * diff
	}
	variance /= float64(len(baseline))
	stdDev := math.Sqrt(variance)
	if stdDev == 0 {
		return 0
	}

	z := math.Abs(current-mean) / stdDev
	return clamp01(z / d.cfg.SaturationStdDevs)
}

// patternAnomaly inspects the raw event log: error-burst ratio and
// slow-operation ratio, each measured against its expected baseline and
// normalized by that expectation.
func (d *Detector) patternAnomaly() float64 {
	if d.source == nil {
		return 0
	}
	recent := d.source.Recent(d.cfg.Signals.BurstWindow)
	if len(recent) == 0 {
		return 0
	}

	errors := 0
	slow := 0
	for _, rec := range recent {
		if rec.Level == models.LevelError {
			errors++
		}
		if rec.HasDuration && rec.DurationMS > d.cfg.Signals.SlowOperationMS {
			slow++
		}
	}

	total := float64(len(recent))
	errExcess := excessRatio(float64(errors)/total, d.cfg.Signals.ExpectedErrorRatio)
	slowExcess := excessRatio(float64(slow)/total, d.cfg.Signals.ExpectedSlowRatio)

	return math.Max(0, math.Max(errExcess, slowExcess))
}

func excessRatio(observed, expected float64) float64 {
	if expected <= 0 {
		return 0
	}
	return clamp01((observed - expected) / expected)
}

func (d *Detector) riskLevel(overall float64) models.RiskLevel {
	switch {
	case overall > d.cfg.Risk.Critical:
		return models.RiskCritical
	case overall > d.cfg.Risk.Alert:
		return models.RiskAlert
	case overall > d.cfg.Risk.Warning:
		return models.RiskWarning
	default:
		return models.RiskNormal
	}
}

// detectPatterns emits human-readable tags for known failure shapes.
func (d *Detector) detectPatterns(current models.MetricsSnapshot) []string {
	tags := []string{}
	sig := d.cfg.Signals

	if current.ErrorRatePercent > sig.ErrorSpikePercent {
		tags = append(tags, "error spike")
	}
	if current.MemoryUsageMB > sig.HighMemoryMB {
		tags = append(tags, "high memory")
	}
	if current.AvgResponseTimeMS > sig.SlowResponseMS {
		tags = append(tags, "slow responses")
	}
	if op, ok := d.repeatedFailure(); ok {
		tags = append(tags, fmt.Sprintf("repeated failures in %s", op))
	}
	if current.ErrorRatePercent > sig.CascadeErrorPercent && current.AvgResponseTimeMS > sig.CascadeLatencyMS {
		tags = append(tags, "cascading failures")
	}

	return tags
}

// repeatedFailure reports an operation name with at least RepeatCount ERROR
// entries among the last RepeatWindow records.
func (d *Detector) repeatedFailure() (string, bool) {
	if d.source == nil {
		return "", false
	}

	counts := map[string]int{}
	best := ""
	for _, rec := range d.source.Recent(d.cfg.Signals.RepeatWindow) {
		if rec.Level != models.LevelError {
			continue
		}
		counts[rec.Operation]++
		if best == "" || counts[rec.Operation] > counts[best] {
			best = rec.Operation
		}
	}
	if best == "" || counts[best] < d.cfg.Signals.RepeatCount {
		return "", false
	}
	return best, true
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
