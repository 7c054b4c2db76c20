package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/miradorstack/mirador-sentinel/internal/healer"
	"github.com/miradorstack/mirador-sentinel/internal/models"
)

// Sentinel is the engine surface consumed by the HTTP handlers.
type Sentinel interface {
	Ingest(rec models.OperationRecord)
	ObserveCognitiveProcess(rec models.CognitiveProcessRecord)
	ObserveTaskWorkflow(rec models.TaskWorkflowRecord)
	ObserveOutcome(rec models.OutcomeRecord)
	GetSnapshot() models.MetricsSnapshot
	GetAnomalyScore() models.AnomalyScore
	GetCrashPrediction() models.PredictedCrash
	GetAdaptiveStatistics() models.AdaptiveStatistics
	GetRecentPatterns(n int) []models.PerformancePattern
	GetAdaptationHistory(n int) []models.Adaptation
	GetHealingHistory() []healer.DispatchRecord
	GetLatestReport() ([]byte, error)
	PrometheusDump() string
}

// Handlers adapts the engine's query interface to HTTP.
type Handlers struct {
	sentinel Sentinel
}

// NewHandlers constructs the handler set.
func NewHandlers(sentinel Sentinel) *Handlers {
	return &Handlers{sentinel: sentinel}
}

type recordRequest struct {
	SourceID     string     `json:"source_id"`
	Operation    string     `json:"operation_name"`
	Level        string     `json:"level"`
	DurationMS   *float64   `json:"duration_ms"`
	ErrorMessage string     `json:"error_message"`
	Timestamp    *time.Time `json:"timestamp"`
}

// PostRecord ingests one operation record. Ingestion is fire-and-forget:
// structurally valid JSON is always accepted; field-level validation happens
// inside the ingest log, which drops and counts malformed records.
func (h *Handlers) PostRecord(c *gin.Context) {
	var req recordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rec := models.OperationRecord{
		SourceID:     req.SourceID,
		Operation:    req.Operation,
		Level:        models.Level(req.Level),
		ErrorMessage: req.ErrorMessage,
	}
	if req.DurationMS != nil {
		rec.DurationMS = *req.DurationMS
		rec.HasDuration = true
	}
	if req.Timestamp != nil {
		rec.Timestamp = *req.Timestamp
	}

	h.sentinel.Ingest(rec)
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

// PostProcessEvent ingests a cognitive-process record.
func (h *Handlers) PostProcessEvent(c *gin.Context) {
	var rec models.CognitiveProcessRecord
	if err := c.ShouldBindJSON(&rec); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.sentinel.ObserveCognitiveProcess(rec)
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

// PostWorkflowEvent ingests a workflow-step record.
func (h *Handlers) PostWorkflowEvent(c *gin.Context) {
	var rec models.TaskWorkflowRecord
	if err := c.ShouldBindJSON(&rec); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.sentinel.ObserveTaskWorkflow(rec)
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

// PostOutcomeEvent ingests a predicted-vs-actual record.
func (h *Handlers) PostOutcomeEvent(c *gin.Context) {
	var rec models.OutcomeRecord
	if err := c.ShouldBindJSON(&rec); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.sentinel.ObserveOutcome(rec)
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

// GetSnapshot returns the current metrics snapshot.
func (h *Handlers) GetSnapshot(c *gin.Context) {
	c.JSON(http.StatusOK, h.sentinel.GetSnapshot())
}

// GetAnomaly returns the latest anomaly score.
func (h *Handlers) GetAnomaly(c *gin.Context) {
	c.JSON(http.StatusOK, h.sentinel.GetAnomalyScore())
}

// GetPrediction returns the current crash prediction.
func (h *Handlers) GetPrediction(c *gin.Context) {
	c.JSON(http.StatusOK, h.sentinel.GetCrashPrediction())
}

// GetAdaptiveStats returns adaptive-loop counters.
func (h *Handlers) GetAdaptiveStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.sentinel.GetAdaptiveStatistics())
}

// GetPatterns returns the most recent performance patterns.
func (h *Handlers) GetPatterns(c *gin.Context) {
	c.JSON(http.StatusOK, h.sentinel.GetRecentPatterns(limitParam(c, 10)))
}

// GetAdaptations returns the most recent adaptations.
func (h *Handlers) GetAdaptations(c *gin.Context) {
	c.JSON(http.StatusOK, h.sentinel.GetAdaptationHistory(limitParam(c, 10)))
}

// GetHealingHistory returns the healing dispatch history.
func (h *Handlers) GetHealingHistory(c *gin.Context) {
	c.JSON(http.StatusOK, h.sentinel.GetHealingHistory())
}

// GetReport returns the JSON daily report.
func (h *Handlers) GetReport(c *gin.Context) {
	payload, err := h.sentinel.GetLatestReport()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "application/json", payload)
}

// GetPrometheusExport returns the snapshot in text exposition format.
func (h *Handlers) GetPrometheusExport(c *gin.Context) {
	c.String(http.StatusOK, h.sentinel.PrometheusDump())
}

// GetHealth reports liveness.
func (h *Handlers) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "SERVING"})
}

func limitParam(c *gin.Context, fallback int) int {
	raw := c.Query("limit")
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
