package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appgov "github.com/erp/governance/internal/application/governance"
	"github.com/erp/governance/internal/domain/governance"
	"github.com/erp/governance/internal/interfaces/http/dto"
)

// QuotaHandler exposes quota consumption and usage reporting
type QuotaHandler struct {
	BaseHandler
	ledger *appgov.LedgerService
	logger *zap.Logger
}

// NewQuotaHandler creates a new QuotaHandler
func NewQuotaHandler(ledger *appgov.LedgerService, logger *zap.Logger) *QuotaHandler {
	return &QuotaHandler{
		ledger: ledger,
		logger: logger,
	}
}

// RegisterRoutes registers quota routes
func (h *QuotaHandler) RegisterRoutes(rg *gin.RouterGroup) {
	quotas := rg.Group("/quotas")
	{
		quotas.POST("/consume", h.Consume)
		quotas.GET("/summary", h.Summary)
	}
}

// Consume checks and records usage against one quota dimension. A
// rejected consumption returns the quota state with a 422 so clients can
// surface the limit to the user.
// POST /api/v1/quotas/consume
func (h *QuotaHandler) Consume(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant identity required")
		return
	}

	var req dto.ConsumeQuotaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	amount := req.Amount
	if amount == 0 {
		amount = 1
	}

	result, err := h.ledger.Consume(c.Request.Context(), tenantID, governance.Dimension(req.Dimension), amount)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	resp := dto.QuotaResultResponseFromResult(result)
	if !result.Allowed {
		// The quota state rides along so clients can show usage to the user
		c.JSON(dto.GetHTTPStatus(dto.ErrCodeQuotaExceeded), dto.Response{
			Data: resp,
			Error: &dto.ErrorInfo{
				Code:      dto.ErrCodeQuotaExceeded,
				Message:   "Quota exceeded for dimension " + string(result.Dimension),
				RequestID: getRequestID(c),
			},
		})
		return
	}
	h.Success(c, resp)
}

// Summary reports the tenant's usage across all dimensions
// GET /api/v1/quotas/summary
func (h *QuotaHandler) Summary(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant identity required")
		return
	}

	summary, err := h.ledger.Summary(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dto.UsageSummaryResponseFromSummary(summary))
}
