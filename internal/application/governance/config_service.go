package governance

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/erp/governance/internal/domain/governance"
)

// CreateConfigInput contains input for creating a rate limit configuration.
type CreateConfigInput struct {
	Scope      governance.ConfigScope
	TargetID   string
	Limits     governance.LimitSet
	BurstLimit int64
	Priority   int
}

// UpdateConfigInput contains partial updates for a configuration. Nil
// fields are left unchanged.
type UpdateConfigInput struct {
	Limits     *governance.LimitSet
	BurstLimit *int64
	Priority   *int
	Active     *bool
}

// ConfigService is the management surface for rate limit configurations.
// Validation happens here at write time; request-time resolution trusts
// stored configs.
type ConfigService struct {
	configRepo governance.ConfigRepository
	logger     *zap.Logger
}

// NewConfigService creates a new ConfigService
func NewConfigService(configRepo governance.ConfigRepository, logger *zap.Logger) *ConfigService {
	return &ConfigService{
		configRepo: configRepo,
		logger:     logger,
	}
}

// Create validates and persists a new configuration
func (s *ConfigService) Create(ctx context.Context, input CreateConfigInput) (*governance.RateLimitConfig, error) {
	cfg, err := governance.NewRateLimitConfig(input.Scope, input.TargetID, input.Limits)
	if err != nil {
		return nil, err
	}
	cfg.WithBurst(input.BurstLimit).WithPriority(input.Priority)

	if err := s.configRepo.Save(ctx, cfg); err != nil {
		s.logger.Error("Failed to save rate limit config", zap.Error(err))
		return nil, err
	}

	s.logger.Info("Rate limit config created",
		zap.String("id", cfg.ID.String()),
		zap.String("scope", cfg.Scope.String()),
		zap.String("target_id", cfg.TargetID))
	return cfg, nil
}

// Update applies partial changes to an existing configuration and
// revalidates the result
func (s *ConfigService) Update(ctx context.Context, id uuid.UUID, input UpdateConfigInput) (*governance.RateLimitConfig, error) {
	cfg, err := s.configRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Limits != nil {
		cfg.Limits = *input.Limits
	}
	if input.BurstLimit != nil {
		cfg.BurstLimit = *input.BurstLimit
	}
	if input.Priority != nil {
		cfg.Priority = *input.Priority
	}
	if input.Active != nil {
		cfg.Active = *input.Active
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := s.configRepo.Update(ctx, cfg); err != nil {
		s.logger.Error("Failed to update rate limit config",
			zap.String("id", id.String()),
			zap.Error(err))
		return nil, err
	}
	return cfg, nil
}

// Delete removes a configuration
func (s *ConfigService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.configRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Rate limit config deleted", zap.String("id", id.String()))
	return nil
}

// Get returns a configuration by ID
func (s *ConfigService) Get(ctx context.Context, id uuid.UUID) (*governance.RateLimitConfig, error) {
	return s.configRepo.FindByID(ctx, id)
}

// List returns all configurations
func (s *ConfigService) List(ctx context.Context) ([]*governance.RateLimitConfig, error) {
	return s.configRepo.List(ctx)
}
