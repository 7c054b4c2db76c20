package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestRegisterIsIdempotent(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := Register(reg); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := Register(reg); err != nil {
		t.Fatalf("second register should tolerate duplicates: %v", err)
	}
}

func TestObserveHelpers(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := Register(reg); err != nil {
		t.Fatalf("register: %v", err)
	}

	ObserveIngest("SUCCESS")
	ObserveDrop()
	ObserveDetection("alert")
	ObserveHealing(false)
	ObserveHealing(true)
	ObserveNotificationFailure("chat")
	ObserveAnalysis(50 * time.Millisecond)
	ObserveAnalysis(-time.Second)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	seen := map[string]bool{}
	for _, mf := range families {
		seen[mf.GetName()] = true
	}
	for _, name := range []string{
		"mirador_sentinel_records_ingested_total",
		"mirador_sentinel_records_dropped_total",
		"mirador_sentinel_detections_total",
		"mirador_sentinel_healing_dispatches_total",
		"mirador_sentinel_notification_failures_total",
		"mirador_sentinel_analysis_seconds",
	} {
		if !seen[name] {
			t.Fatalf("metric family %s not gathered; got %v", name, seen)
		}
	}
}
