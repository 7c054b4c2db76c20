package ingest

import (
	"fmt"
	"testing"
	"time"

	"github.com/miradorstack/mirador-sentinel/internal/models"
)

func validRecord(op string) models.OperationRecord {
	return models.OperationRecord{
		SourceID:  "svc",
		Operation: op,
		Level:     models.LevelSuccess,
		Timestamp: time.Now(),
	}
}

func TestAppendAcceptsValidRecord(t *testing.T) {
	log := NewLog(nil, 10)
	if !log.Append(validRecord("charge")) {
		t.Fatalf("valid record rejected")
	}
	if log.Len() != 1 || log.Dropped() != 0 {
		t.Fatalf("len=%d dropped=%d", log.Len(), log.Dropped())
	}
}

func TestAppendDropsMalformed(t *testing.T) {
	log := NewLog(nil, 10)

	cases := []struct {
		name string
		rec  models.OperationRecord
	}{
		{"missing source", models.OperationRecord{Operation: "op", Level: models.LevelInfo}},
		{"missing operation", models.OperationRecord{SourceID: "svc", Level: models.LevelInfo}},
		{"unknown level", models.OperationRecord{SourceID: "svc", Operation: "op", Level: "DEBUG"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if log.Append(tc.rec) {
				t.Fatalf("malformed record accepted")
			}
		})
	}

	if log.Len() != 0 {
		t.Fatalf("malformed records must not be stored, len=%d", log.Len())
	}
	if log.Dropped() != 3 {
		t.Fatalf("dropped = %d, want 3", log.Dropped())
	}
}

func TestAppendStampsZeroTimestamp(t *testing.T) {
	log := NewLog(nil, 10)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	log.now = func() time.Time { return fixed }

	rec := validRecord("charge")
	rec.Timestamp = time.Time{}
	log.Append(rec)

	got := log.Window()[0].Timestamp
	if !got.Equal(fixed) {
		t.Fatalf("timestamp = %v, want %v", got, fixed)
	}
}

func TestEvictionKeepsNewestInOrder(t *testing.T) {
	log := NewLog(nil, 5)
	for i := 0; i < 8; i++ {
		log.Append(validRecord(fmt.Sprintf("op-%d", i)))
	}

	window := log.Window()
	if len(window) != 5 {
		t.Fatalf("window length = %d, want 5", len(window))
	}
	for i, rec := range window {
		want := fmt.Sprintf("op-%d", i+3)
		if rec.Operation != want {
			t.Fatalf("window[%d] = %s, want %s", i, rec.Operation, want)
		}
	}
}

func TestRecent(t *testing.T) {
	log := NewLog(nil, 10)
	for i := 0; i < 6; i++ {
		log.Append(validRecord(fmt.Sprintf("op-%d", i)))
	}

	recent := log.Recent(2)
	if len(recent) != 2 || recent[0].Operation != "op-4" || recent[1].Operation != "op-5" {
		t.Fatalf("recent = %v", recent)
	}
	if got := log.Recent(100); len(got) != 6 {
		t.Fatalf("oversized request should return the full window, got %d", len(got))
	}
	if log.Recent(0) != nil {
		t.Fatalf("Recent(0) should be nil")
	}
}

func TestWindowIsCopy(t *testing.T) {
	log := NewLog(nil, 10)
	log.Append(validRecord("charge"))

	window := log.Window()
	window[0].Operation = "mutated"
	if log.Window()[0].Operation != "charge" {
		t.Fatalf("window must be a defensive copy")
	}
}
