package api

import "github.com/gin-gonic/gin"

// RegisterRoutes registers the sentinel endpoints with the router.
//
// Ingestion:
//
//	POST /v1/sentinel/records          - ingest an operation record
//	POST /v1/sentinel/events/process   - ingest a cognitive-process record
//	POST /v1/sentinel/events/workflow  - ingest a workflow-step record
//	POST /v1/sentinel/events/outcome   - ingest an outcome record
//
// Queries:
//
//	GET /v1/sentinel/snapshot           - current metrics snapshot
//	GET /v1/sentinel/anomaly            - latest anomaly score
//	GET /v1/sentinel/prediction         - crash prediction
//	GET /v1/sentinel/adaptive/stats     - adaptive-loop counters
//	GET /v1/sentinel/adaptive/patterns  - recent performance patterns
//	GET /v1/sentinel/adaptive/history   - adaptation history
//	GET /v1/sentinel/healing/history    - healing dispatch history
//	GET /v1/sentinel/report             - JSON daily report
//	GET /v1/sentinel/export/prometheus  - snapshot in text exposition format
//	GET /healthz                        - liveness
func RegisterRoutes(r *gin.Engine, h *Handlers) {
	r.GET("/healthz", h.GetHealth)

	v1 := r.Group("/v1/sentinel")
	{
		v1.POST("/records", h.PostRecord)
		v1.POST("/events/process", h.PostProcessEvent)
		v1.POST("/events/workflow", h.PostWorkflowEvent)
		v1.POST("/events/outcome", h.PostOutcomeEvent)

		v1.GET("/snapshot", h.GetSnapshot)
		v1.GET("/anomaly", h.GetAnomaly)
		v1.GET("/prediction", h.GetPrediction)
		v1.GET("/adaptive/stats", h.GetAdaptiveStats)
		v1.GET("/adaptive/patterns", h.GetPatterns)
		v1.GET("/adaptive/history", h.GetAdaptations)
		v1.GET("/healing/history", h.GetHealingHistory)
		v1.GET("/report", h.GetReport)
		v1.GET("/export/prometheus", h.GetPrometheusExport)
	}
}
