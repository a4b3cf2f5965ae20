package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	appgov "github.com/erp/governance/internal/application/governance"
	"github.com/erp/governance/internal/domain/governance"
	"github.com/erp/governance/internal/interfaces/http/dto"
)

// AlertHandler exposes the alert audit trail and its lifecycle
// transitions
type AlertHandler struct {
	BaseHandler
	alerts *appgov.AlertService
	logger *zap.Logger
}

// NewAlertHandler creates a new AlertHandler
func NewAlertHandler(alerts *appgov.AlertService, logger *zap.Logger) *AlertHandler {
	return &AlertHandler{
		alerts: alerts,
		logger: logger,
	}
}

// RegisterRoutes registers alert routes
func (h *AlertHandler) RegisterRoutes(rg *gin.RouterGroup) {
	alerts := rg.Group("/alerts")
	{
		alerts.GET("", h.List)
		alerts.POST("/:id/acknowledge", h.Acknowledge)
		alerts.POST("/:id/resolve", h.Resolve)
	}
}

// List returns the tenant's alerts, most severe and most recent first
// GET /api/v1/alerts
func (h *AlertHandler) List(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant identity required")
		return
	}

	var req dto.AlertListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BindError(c, err)
		return
	}

	alerts, err := h.alerts.List(c.Request.Context(), governance.AlertFilter{
		TenantID:       &tenantID,
		UnresolvedOnly: req.UnresolvedOnly,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dto.AlertResponsesFromAlerts(alerts))
}

// Acknowledge marks an alert as seen by an operator
// POST /api/v1/alerts/:id/acknowledge
func (h *AlertHandler) Acknowledge(c *gin.Context) {
	id, ok := h.alertID(c)
	if !ok {
		return
	}

	alert, err := h.alerts.Acknowledge(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dto.AlertResponseFromAlert(alert))
}

// Resolve closes an alert, allowing its condition to trigger again
// POST /api/v1/alerts/:id/resolve
func (h *AlertHandler) Resolve(c *gin.Context) {
	id, ok := h.alertID(c)
	if !ok {
		return
	}

	alert, err := h.alerts.Resolve(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dto.AlertResponseFromAlert(alert))
}

// alertID binds and parses the alert ID path parameter
func (h *AlertHandler) alertID(c *gin.Context) (uuid.UUID, bool) {
	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BadRequest(c, "Invalid alert ID")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(req.ID)
	if err != nil {
		h.BadRequest(c, "Invalid alert ID")
		return uuid.Nil, false
	}
	return id, true
}
