package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appgov "github.com/erp/governance/internal/application/governance"
	"github.com/erp/governance/internal/interfaces/http/dto"
	"github.com/erp/governance/internal/interfaces/http/middleware"
)

// AdmissionHandler exposes the rate limiter's check and inspection
// endpoints. Regular traffic goes through the rate limit middleware; this
// handler serves explicit checks for clients that meter work before
// performing it.
type AdmissionHandler struct {
	BaseHandler
	admission *appgov.AdmissionService
	logger    *zap.Logger
}

// NewAdmissionHandler creates a new AdmissionHandler
func NewAdmissionHandler(admission *appgov.AdmissionService, logger *zap.Logger) *AdmissionHandler {
	return &AdmissionHandler{
		admission: admission,
		logger:    logger,
	}
}

// RegisterRoutes registers admission routes
func (h *AdmissionHandler) RegisterRoutes(rg *gin.RouterGroup) {
	admission := rg.Group("/admission")
	{
		admission.POST("/check", h.Check)
		admission.POST("/peek", h.Peek)
		admission.POST("/reset", h.Reset)
		admission.GET("/stats", h.Stats)
	}
}

// Check consumes one admission slot and reports the decision
// POST /api/v1/admission/check
func (h *AdmissionHandler) Check(c *gin.Context) {
	var req dto.AdmissionCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	decision := h.admission.Admit(c.Request.Context(), appgov.AdmissionRequest{
		TenantID: middleware.GetJWTTenantID(c),
		APIKeyID: middleware.GetJWTAPIKeyID(c),
		Endpoint: req.Endpoint,
		Cost:     req.Cost,
	})

	h.Success(c, dto.AdmissionDecisionResponseFromDecision(decision))
}

// Reset drops the caller's counting state for one endpoint. Support
// operation used after a configuration change.
// POST /api/v1/admission/reset
func (h *AdmissionHandler) Reset(c *gin.Context) {
	var req dto.AdmissionCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	key := appgov.AdmissionKey(middleware.GetJWTTenantID(c), middleware.GetJWTAPIKeyID(c), req.Endpoint)
	if err := h.admission.ResetState(c.Request.Context(), key); err != nil {
		h.HandleError(c, err)
		return
	}

	h.logger.Info("Admission state reset", zap.String("key", key))
	h.NoContent(c)
}

// Stats reports per-key admission tallies since the last anomaly sweep
// GET /api/v1/admission/stats
func (h *AdmissionHandler) Stats(c *gin.Context) {
	h.Success(c, dto.AdmissionStatsResponseFromStats(h.admission.Stats()))
}

// Peek reports the current decision without consuming an admission slot
// POST /api/v1/admission/peek
func (h *AdmissionHandler) Peek(c *gin.Context) {
	var req dto.AdmissionCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	decision, err := h.admission.Peek(c.Request.Context(), appgov.AdmissionRequest{
		TenantID: middleware.GetJWTTenantID(c),
		APIKeyID: middleware.GetJWTAPIKeyID(c),
		Endpoint: req.Endpoint,
		Cost:     req.Cost,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dto.AdmissionDecisionResponseFromDecision(decision))
}
