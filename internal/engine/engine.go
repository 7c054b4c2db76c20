// Package engine wires the sentinel components together, schedules the
// periodic tasks, and exposes the query interface consumed by dashboards
// and the HTTP surface.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/miradorstack/mirador-sentinel/internal/adaptive"
	"github.com/miradorstack/mirador-sentinel/internal/aggregator"
	"github.com/miradorstack/mirador-sentinel/internal/cache"
	"github.com/miradorstack/mirador-sentinel/internal/config"
	"github.com/miradorstack/mirador-sentinel/internal/detector"
	"github.com/miradorstack/mirador-sentinel/internal/export"
	"github.com/miradorstack/mirador-sentinel/internal/healer"
	"github.com/miradorstack/mirador-sentinel/internal/ingest"
	"github.com/miradorstack/mirador-sentinel/internal/metrics"
	"github.com/miradorstack/mirador-sentinel/internal/models"
	"github.com/miradorstack/mirador-sentinel/internal/notify"
	"github.com/miradorstack/mirador-sentinel/internal/scheduler"
	"github.com/miradorstack/mirador-sentinel/internal/utils"
)

// Task names registered with the scheduler.
const (
	TaskSnapshot = "snapshot"
	TaskAdaptive = "adaptive"
	TaskHealing  = "healing"
	TaskReport   = "report"
)

const reportCacheKey = "daily-report"

// Engine is the telemetry-and-self-adaptation core. All mutable state lives
// in owned components; constructing a fresh Engine gives full test
// isolation.
type Engine struct {
	logger *slog.Logger
	cfg    *config.Config

	log       *ingest.Log
	agg       *aggregator.Aggregator
	det       *detector.Detector
	loop      *adaptive.Loop
	heal      *healer.Healer
	notifier  *notify.Dispatcher
	reports   *cache.ReportCache
	runner    scheduler.Runner
	latencies *utils.LatencyTracker

	mu        sync.RWMutex
	lastSnap  models.MetricsSnapshot
	lastScore models.AnomalyScore

	ctx    context.Context
	cancel context.CancelFunc
}

// Option customises engine construction.
type Option func(*options)

type options struct {
	system     aggregator.SystemMetricsProvider
	dispatcher healer.ActionDispatcher
	channels   []notify.Notifier
	runner     scheduler.Runner
	clock      func() time.Time
}

// WithSystemMetrics injects the resource-reading provider.
func WithSystemMetrics(p aggregator.SystemMetricsProvider) Option {
	return func(o *options) { o.system = p }
}

// WithActionDispatcher injects the remediation collaborator.
func WithActionDispatcher(d healer.ActionDispatcher) Option {
	return func(o *options) { o.dispatcher = d }
}

// WithNotifiers configures the notification channels.
func WithNotifiers(channels ...notify.Notifier) Option {
	return func(o *options) { o.channels = channels }
}

// WithRunner injects the periodic-task runner; tests use a ManualRunner.
func WithRunner(r scheduler.Runner) Option {
	return func(o *options) { o.runner = r }
}

// WithClock overrides the wall clock for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.clock = now }
}

// New constructs an Engine and loads the healing rule pack. An invalid rule
// pack fails construction; a missing one is tolerated.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Engine, error) {
	if cfg == nil {
		def := config.Default()
		cfg = &def
	}
	if logger == nil {
		logger = slog.Default()
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.runner == nil {
		o.runner = scheduler.NewCronRunner(logger)
	}

	log := ingest.NewLog(logger, cfg.Ingest.WindowSize)

	var aggOpts []aggregator.Option
	if o.clock != nil {
		aggOpts = append(aggOpts, aggregator.WithClock(o.clock))
	}
	agg := aggregator.New(log, o.system, aggOpts...)
	det := detector.New(cfg.Detector, logger, log)
	loop := adaptive.NewLoop(cfg.Adaptive, logger)
	heal := healer.New(logger, o.dispatcher, cfg.Healer.HistoryCapacity)

	rules, err := healer.LoadRules(cfg.Healer.RulesPath)
	if err != nil {
		return nil, fmt.Errorf("load healing rules: %w", err)
	}
	for _, rule := range rules {
		if err := heal.Register(rule); err != nil {
			return nil, err
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	eng := &Engine{
		logger:    logger,
		cfg:       cfg,
		log:       log,
		agg:       agg,
		det:       det,
		loop:      loop,
		heal:      heal,
		notifier:  notify.NewDispatcher(logger, cfg.Notify.ChannelTimeout, o.channels...),
		reports:   cache.NewReportCache(),
		runner:    o.runner,
		latencies: utils.NewLatencyTracker(1024),
		ctx:       ctx,
		cancel:    cancel,
	}
	eng.lastScore = models.AnomalyScore{RiskLevel: models.RiskNormal, DetectedPatterns: []string{}}

	return eng, nil
}

// RegisterHealingRule adds a rule through the administrative path.
func (e *Engine) RegisterHealingRule(rule healer.Rule) error {
	return e.heal.Register(rule)
}

// Start registers and launches the periodic tasks.
func (e *Engine) Start() error {
	if err := e.runner.Every(e.cfg.Intervals.Snapshot, TaskSnapshot, e.snapshotTick); err != nil {
		return err
	}
	if err := e.runner.Every(e.cfg.Intervals.Adaptive, TaskAdaptive, e.adaptiveTick); err != nil {
		return err
	}
	if err := e.runner.Every(e.cfg.Intervals.Healing, TaskHealing, e.healingTick); err != nil {
		return err
	}
	if err := e.runner.Every(e.cfg.Intervals.Report, TaskReport, e.reportTick); err != nil {
		return err
	}

	e.runner.Start()
	e.logger.Info("sentinel engine started",
		slog.Duration("snapshot_interval", e.cfg.Intervals.Snapshot),
		slog.Duration("adaptive_interval", e.cfg.Intervals.Adaptive),
		slog.Int("healing_rules", e.heal.RuleCount()),
		slog.Int("notification_channels", e.notifier.ChannelCount()))
	return nil
}

// Stop halts all periodic tasks. Already-appended history is preserved.
func (e *Engine) Stop(ctx context.Context) {
	e.cancel()
	e.runner.Stop(ctx)
	e.logger.Info("sentinel engine stopped")
}

// Record ingests one operation record. Fire-and-forget: it never returns an
// error and never blocks beyond a bounded append.
func (e *Engine) Record(sourceID, operation string, level models.Level, durationMS float64, errMsg string) {
	rec := models.OperationRecord{
		SourceID:     sourceID,
		Operation:    operation,
		Level:        level,
		ErrorMessage: errMsg,
	}
	if durationMS > 0 {
		rec.DurationMS = durationMS
		rec.HasDuration = true
	}
	e.Ingest(rec)
}

// Ingest appends a fully-formed operation record.
func (e *Engine) Ingest(rec models.OperationRecord) {
	if e.log.Append(rec) {
		metrics.ObserveIngest(string(rec.Level))
	} else {
		metrics.ObserveDrop()
	}
}

// ObserveCognitiveProcess forwards a decision record to the adaptive loop.
func (e *Engine) ObserveCognitiveProcess(rec models.CognitiveProcessRecord) {
	e.loop.ObserveCognitiveProcess(rec)
}

// ObserveTaskWorkflow forwards a workflow-step record to the adaptive loop.
func (e *Engine) ObserveTaskWorkflow(rec models.TaskWorkflowRecord) {
	e.loop.ObserveTaskWorkflow(rec)
}

// ObserveOutcome forwards a predicted-vs-actual record to the adaptive loop.
func (e *Engine) ObserveOutcome(rec models.OutcomeRecord) {
	e.loop.ObserveOutcome(rec)
}

// GetSnapshot computes a fresh snapshot from the live window.
func (e *Engine) GetSnapshot() models.MetricsSnapshot {
	return e.agg.Snapshot()
}

// GetAnomalyScore returns the most recent anomaly score, or the zero/normal
// score before the first detection tick.
func (e *Engine) GetAnomalyScore() models.AnomalyScore {
	if score, ok := e.det.LatestScore(); ok {
		return score
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastScore
}

// GetCrashPrediction extrapolates the current anomaly trend.
func (e *Engine) GetCrashPrediction() models.PredictedCrash {
	return e.det.PredictCrash()
}

// GetAdaptiveStatistics returns adaptive-loop counters.
func (e *Engine) GetAdaptiveStatistics() models.AdaptiveStatistics {
	return e.loop.Statistics()
}

// GetRecentPatterns returns the most recent n performance patterns.
func (e *Engine) GetRecentPatterns(n int) []models.PerformancePattern {
	return e.loop.RecentPatterns(n)
}

// GetAdaptationHistory returns the most recent n adaptations.
func (e *Engine) GetAdaptationHistory(n int) []models.Adaptation {
	return e.loop.AdaptationHistory(n)
}

// GetHealingHistory returns the healing dispatch history.
func (e *Engine) GetHealingHistory() []healer.DispatchRecord {
	return e.heal.History()
}

// GetLatestReport returns the cached daily report, rebuilding it when the
// cache entry has expired.
func (e *Engine) GetLatestReport() ([]byte, error) {
	if payload, ok := e.reports.Get(reportCacheKey); ok {
		return payload, nil
	}
	return e.buildReport()
}

// PrometheusDump renders the current snapshot in text exposition format.
func (e *Engine) PrometheusDump() string {
	return export.RenderPrometheus(e.GetSnapshot())
}

// snapshotTick aggregates the window, scores it, grows the baseline, and
// raises alerts on elevated risk.
func (e *Engine) snapshotTick() {
	snap := e.agg.Snapshot()
	score := e.det.DetectAnomalies(snap)
	e.det.UpdateBaseline(snap)
	metrics.ObserveDetection(string(score.RiskLevel))

	e.mu.Lock()
	e.lastSnap = snap
	e.lastScore = score
	e.mu.Unlock()

	if score.RiskLevel == models.RiskAlert || score.RiskLevel == models.RiskCritical {
		alerts := buildAlerts(snap, score)
		// Fire-and-forget: the tick never waits on channel I/O.
		go func() {
			for _, failure := range e.notifier.Dispatch(e.ctx, alerts) {
				metrics.ObserveNotificationFailure(failure.Channel)
			}
		}()
	}
}

func (e *Engine) adaptiveTick() {
	start := time.Now()
	e.loop.Analyze()
	elapsed := time.Since(start)
	e.latencies.Observe(elapsed)
	metrics.ObserveAnalysis(elapsed)
}

func (e *Engine) healingTick() {
	e.mu.RLock()
	snap := e.lastSnap
	score := e.lastScore
	e.mu.RUnlock()

	for _, record := range e.heal.Evaluate(e.ctx, snap, score) {
		metrics.ObserveHealing(record.Error != "")
	}
}

func (e *Engine) reportTick() {
	if _, err := e.buildReport(); err != nil {
		e.logger.Warn("daily report refresh failed", slog.Any("error", err))
	}
}

func (e *Engine) buildReport() ([]byte, error) {
	report := export.BuildDailyReport(
		time.Now().UTC(),
		e.GetSnapshot(),
		e.GetAnomalyScore(),
		e.GetCrashPrediction(),
		e.GetRecentPatterns(5),
		e.GetAdaptationHistory(5),
	)
	payload, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("marshal daily report: %w", err)
	}
	e.reports.Set(reportCacheKey, payload, e.cfg.Report.TTL)
	return payload, nil
}

// AnalysisLatencyP95 returns the p95 adaptive analysis latency.
func (e *Engine) AnalysisLatencyP95() time.Duration {
	return e.latencies.Percentile(95)
}

func buildAlerts(snap models.MetricsSnapshot, score models.AnomalyScore) []models.Alert {
	alerts := []models.Alert{
		{
			Level: string(score.RiskLevel),
			Type:  "anomaly",
			Message: fmt.Sprintf("overall anomaly score %.2f (error rate %.1f%%, avg latency %.0fms)",
				score.OverallScore, snap.ErrorRatePercent, snap.AvgResponseTimeMS),
			Timestamp: score.Timestamp,
		},
	}
	for _, tag := range score.DetectedPatterns {
		alerts = append(alerts, models.Alert{
			Level:     string(score.RiskLevel),
			Type:      "pattern",
			Message:   tag,
			Timestamp: score.Timestamp,
		})
	}
	return alerts
}
