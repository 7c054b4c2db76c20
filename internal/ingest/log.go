// Package ingest owns the bounded window of raw operation records consumed
// by the aggregator and the anomaly detector's pattern scan.
package ingest

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/miradorstack/mirador-sentinel/internal/models"
)

// Log is a FIFO-bounded, mutex-guarded operation-record window. Appends are
// fire-and-forget: malformed records are dropped and logged, never surfaced
// to the producer.
type Log struct {
	mu       sync.Mutex
	records  []models.OperationRecord
	capacity int
	dropped  atomic.Uint64
	logger   *slog.Logger
	now      func() time.Time
}

// NewLog constructs a Log retaining up to capacity records.
func NewLog(logger *slog.Logger, capacity int) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	if capacity <= 0 {
		capacity = 1000
	}
	return &Log{
		capacity: capacity,
		logger:   logger,
		now:      time.Now,
	}
}

// Append validates and stores a record, reporting whether it was accepted.
// Records missing a source, operation name, or carrying an unknown level
// are dropped. A zero timestamp is stamped with the current time.
func (l *Log) Append(rec models.OperationRecord) bool {
	if rec.SourceID == "" || rec.Operation == "" || !rec.Level.Valid() {
		l.dropped.Add(1)
		l.logger.Warn("dropping malformed operation record",
			slog.String("source_id", rec.SourceID),
			slog.String("operation", rec.Operation),
			slog.String("level", string(rec.Level)))
		return false
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = l.now()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.records = append(l.records, rec)
	if len(l.records) > l.capacity {
		copy(l.records[0:], l.records[1:])
		l.records = l.records[:l.capacity]
	}
	return true
}

// Window returns a copy of the full record window in append order.
func (l *Log) Window() []models.OperationRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]models.OperationRecord(nil), l.records...)
}

// Recent returns a copy of the most recent n records in append order.
func (l *Log) Recent(n int) []models.OperationRecord {
	l.mu.Lock()
	defer l.mu.Unlock()

	if n <= 0 || len(l.records) == 0 {
		return nil
	}
	if n > len(l.records) {
		n = len(l.records)
	}
	return append([]models.OperationRecord(nil), l.records[len(l.records)-n:]...)
}

// Len returns the number of retained records.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

// Dropped returns the count of malformed records rejected so far.
func (l *Log) Dropped() uint64 {
	return l.dropped.Load()
}
