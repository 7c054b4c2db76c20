package models

import "time"

// Level classifies the outcome of a single operation.
type Level string

const (
	LevelInfo    Level = "INFO"
	LevelSuccess Level = "SUCCESS"
	LevelWarn    Level = "WARN"
	LevelError   Level = "ERROR"
)

// Valid reports whether the level is one of the known values.
func (l Level) Valid() bool {
	switch l {
	case LevelInfo, LevelSuccess, LevelWarn, LevelError:
		return true
	}
	return false
}

// OperationRecord is the structured record emitted by external producers for
// every operation they perform. Records are immutable once created.
type OperationRecord struct {
	SourceID     string    `json:"source_id"`
	Operation    string    `json:"operation_name"`
	Level        Level     `json:"level"`
	DurationMS   float64   `json:"duration_ms,omitempty"`
	HasDuration  bool      `json:"-"`
	ErrorMessage string    `json:"error_message,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}
