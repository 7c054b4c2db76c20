// Package metrics registers the engine's self-instrumentation collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	recordsIngested = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mirador_sentinel",
			Name:      "records_ingested_total",
			Help:      "Operation records accepted, partitioned by level.",
		},
		[]string{"level"},
	)

	recordsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "mirador_sentinel",
			Name:      "records_dropped_total",
			Help:      "Malformed operation records rejected at ingest.",
		},
	)

	detectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mirador_sentinel",
			Name:      "detections_total",
			Help:      "Anomaly detections run, partitioned by risk level.",
		},
		[]string{"risk_level"},
	)

	healingDispatches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mirador_sentinel",
			Name:      "healing_dispatches_total",
			Help:      "Healing actions dispatched, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	notificationFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mirador_sentinel",
			Name:      "notification_failures_total",
			Help:      "Notification channel failures, partitioned by channel.",
		},
		[]string{"channel"},
	)

	analysisDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "mirador_sentinel",
			Name:      "analysis_seconds",
			Help:      "Adaptive analysis pass latency in seconds.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2},
		},
	)
)

// Register attaches the sentinel collectors to the supplied registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		recordsIngested,
		recordsDropped,
		detectionsTotal,
		healingDispatches,
		notificationFailures,
		analysisDuration,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveIngest counts one accepted record.
func ObserveIngest(level string) {
	recordsIngested.WithLabelValues(level).Inc()
}

// ObserveDrop counts one rejected record.
func ObserveDrop() {
	recordsDropped.Inc()
}

// ObserveDetection counts one detection run.
func ObserveDetection(riskLevel string) {
	detectionsTotal.WithLabelValues(riskLevel).Inc()
}

// ObserveHealing counts one healing dispatch attempt.
func ObserveHealing(failed bool) {
	outcome := "success"
	if failed {
		outcome = "error"
	}
	healingDispatches.WithLabelValues(outcome).Inc()
}

// ObserveNotificationFailure counts one channel failure.
func ObserveNotificationFailure(channel string) {
	notificationFailures.WithLabelValues(channel).Inc()
}

// ObserveAnalysis records one adaptive analysis pass duration.
func ObserveAnalysis(d time.Duration) {
	if d < 0 {
		d = 0
	}
	analysisDuration.Observe(d.Seconds())
}
