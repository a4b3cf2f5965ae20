package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	appgov "github.com/erp/governance/internal/application/governance"
	"github.com/erp/governance/internal/domain/governance"
	"github.com/erp/governance/internal/interfaces/http/dto"
)

// ConfigHandler is the management surface for rate limit configurations
type ConfigHandler struct {
	BaseHandler
	configs *appgov.ConfigService
	logger  *zap.Logger
}

// NewConfigHandler creates a new ConfigHandler
func NewConfigHandler(configs *appgov.ConfigService, logger *zap.Logger) *ConfigHandler {
	return &ConfigHandler{
		configs: configs,
		logger:  logger,
	}
}

// RegisterRoutes registers configuration routes
func (h *ConfigHandler) RegisterRoutes(rg *gin.RouterGroup) {
	configs := rg.Group("/rate-limit-configs")
	{
		configs.POST("", h.Create)
		configs.GET("", h.List)
		configs.GET("/:id", h.Get)
		configs.PUT("/:id", h.Update)
		configs.DELETE("/:id", h.Delete)
	}
}

// Create creates a new rate limit configuration
// POST /api/v1/rate-limit-configs
func (h *ConfigHandler) Create(c *gin.Context) {
	var req dto.CreateConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	cfg, err := h.configs.Create(c.Request.Context(), appgov.CreateConfigInput{
		Scope:      governance.ConfigScope(req.Scope),
		TargetID:   req.TargetID,
		Limits:     req.Limits.ToLimitSet(),
		BurstLimit: req.BurstLimit,
		Priority:   req.Priority,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.logger.Info("Rate limit config created",
		zap.String("id", cfg.ID.String()),
		zap.String("scope", string(cfg.Scope)),
		zap.String("target_id", cfg.TargetID))

	h.Created(c, dto.RateLimitConfigResponseFromConfig(cfg))
}

// List returns all configurations
// GET /api/v1/rate-limit-configs
func (h *ConfigHandler) List(c *gin.Context) {
	configs, err := h.configs.List(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dto.RateLimitConfigResponsesFromConfigs(configs))
}

// Get returns one configuration by ID
// GET /api/v1/rate-limit-configs/:id
func (h *ConfigHandler) Get(c *gin.Context) {
	id, ok := h.configID(c)
	if !ok {
		return
	}

	cfg, err := h.configs.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dto.RateLimitConfigResponseFromConfig(cfg))
}

// Update partially updates a configuration
// PUT /api/v1/rate-limit-configs/:id
func (h *ConfigHandler) Update(c *gin.Context) {
	id, ok := h.configID(c)
	if !ok {
		return
	}

	var req dto.UpdateConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	input := appgov.UpdateConfigInput{
		BurstLimit: req.BurstLimit,
		Priority:   req.Priority,
		Active:     req.Active,
	}
	if req.Limits != nil {
		limits := req.Limits.ToLimitSet()
		input.Limits = &limits
	}

	cfg, err := h.configs.Update(c.Request.Context(), id, input)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dto.RateLimitConfigResponseFromConfig(cfg))
}

// Delete removes a configuration
// DELETE /api/v1/rate-limit-configs/:id
func (h *ConfigHandler) Delete(c *gin.Context) {
	id, ok := h.configID(c)
	if !ok {
		return
	}

	if err := h.configs.Delete(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// configID binds and parses the configuration ID path parameter
func (h *ConfigHandler) configID(c *gin.Context) (uuid.UUID, bool) {
	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BadRequest(c, "Invalid configuration ID")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(req.ID)
	if err != nil {
		h.BadRequest(c, "Invalid configuration ID")
		return uuid.Nil, false
	}
	return id, true
}
