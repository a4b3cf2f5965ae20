package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appgov "github.com/erp/governance/internal/application/governance"
	"github.com/erp/governance/internal/domain/governance"
	"github.com/erp/governance/internal/interfaces/http/dto"
)

// BenchmarkHandler exposes anonymized cross-tenant comparisons. Both
// endpoints require the calling tenant to have opted into benchmarking.
type BenchmarkHandler struct {
	BaseHandler
	benchmarks *appgov.BenchmarkService
	logger     *zap.Logger
}

// NewBenchmarkHandler creates a new BenchmarkHandler
func NewBenchmarkHandler(benchmarks *appgov.BenchmarkService, logger *zap.Logger) *BenchmarkHandler {
	return &BenchmarkHandler{
		benchmarks: benchmarks,
		logger:     logger,
	}
}

// RegisterRoutes registers benchmark routes
func (h *BenchmarkHandler) RegisterRoutes(rg *gin.RouterGroup) {
	benchmarks := rg.Group("/benchmarks")
	{
		benchmarks.GET("/compare", h.Compare)
		benchmarks.GET("/industries/:industry", h.IndustrySnapshot)
	}
}

// Compare ranks the tenant against its industry peers for one metric
// GET /api/v1/benchmarks/compare
func (h *BenchmarkHandler) Compare(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant identity required")
		return
	}

	var req dto.BenchmarkCompareRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BindError(c, err)
		return
	}

	comparison, err := h.benchmarks.Compare(c.Request.Context(), tenantID, req.Metric, governance.AggregatePeriod(req.Period))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dto.BenchmarkComparisonResponseFromComparison(comparison))
}

// IndustrySnapshot returns aggregate statistics for one industry. Values
// are derived from consenting tenants only and carry no tenant identity.
// GET /api/v1/benchmarks/industries/:industry
func (h *BenchmarkHandler) IndustrySnapshot(c *gin.Context) {
	industry := c.Param("industry")

	var req dto.BenchmarkCompareRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BindError(c, err)
		return
	}

	snapshot, err := h.benchmarks.IndustrySnapshot(c.Request.Context(), industry, req.Metric, governance.AggregatePeriod(req.Period))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dto.BenchmarkSnapshotResponseFromSnapshot(snapshot))
}
