package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appgov "github.com/erp/governance/internal/application/governance"
	"github.com/erp/governance/internal/domain/governance"
	"github.com/erp/governance/internal/interfaces/http/dto"
)

// MetricsHandler exposes sample recording and windowed aggregation over
// the tenant's business metrics
type MetricsHandler struct {
	BaseHandler
	metrics *appgov.MetricsService
	logger  *zap.Logger
}

// NewMetricsHandler creates a new MetricsHandler
func NewMetricsHandler(metrics *appgov.MetricsService, logger *zap.Logger) *MetricsHandler {
	return &MetricsHandler{
		metrics: metrics,
		logger:  logger,
	}
}

// RegisterRoutes registers metrics routes
func (h *MetricsHandler) RegisterRoutes(rg *gin.RouterGroup) {
	metrics := rg.Group("/metrics")
	{
		metrics.POST("/samples", h.Record)
		metrics.GET("/samples", h.Query)
		metrics.POST("/aggregate", h.Aggregate)
	}
}

// Record appends one sample to the tenant's time series
// POST /api/v1/metrics/samples
func (h *MetricsHandler) Record(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant identity required")
		return
	}

	var req dto.RecordMetricRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	sample := governance.MetricSample{
		TenantID: tenantID,
		Name:     req.Name,
		Type:     governance.MetricType(req.Type),
		Value:    req.Value,
		Labels:   req.Labels,
	}
	if req.Timestamp != nil {
		sample.Timestamp = *req.Timestamp
	}

	if err := h.metrics.Record(c.Request.Context(), sample); err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, nil)
}

// Query returns raw samples filtered by name and time range
// GET /api/v1/metrics/samples
func (h *MetricsHandler) Query(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant identity required")
		return
	}

	var req dto.MetricQueryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BindError(c, err)
		return
	}

	samples, err := h.metrics.Query(c.Request.Context(), tenantID, governance.MetricFilter{
		Name:  req.Name,
		Start: req.Start,
		End:   req.End,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dto.MetricSampleResponsesFromSamples(samples))
}

// Aggregate computes one windowed aggregation over recorded samples
// POST /api/v1/metrics/aggregate
func (h *MetricsHandler) Aggregate(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant identity required")
		return
	}

	var req dto.AggregateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	result, err := h.metrics.Aggregate(c.Request.Context(), appgov.AggregateQuery{
		TenantID:   tenantID,
		Metric:     req.Metric,
		Function:   governance.AggregateFunc(req.Function),
		Period:     governance.AggregatePeriod(req.Period),
		Percentile: req.Percentile,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dto.AggregateResultResponseFromResult(result))
}
