package governance

import (
	"context"

	"go.uber.org/zap"

	"github.com/erp/governance/internal/domain/governance"
)

// ResolverService resolves the effective rate limits for a request context
// by merging active configurations across scope layers.
type ResolverService struct {
	configRepo governance.ConfigRepository
	logger     *zap.Logger
}

// NewResolverService creates a new ResolverService
func NewResolverService(configRepo governance.ConfigRepository, logger *zap.Logger) *ResolverService {
	return &ResolverService{
		configRepo: configRepo,
		logger:     logger,
	}
}

// Resolve merges matching configurations from broadest to most specific
// scope. Each layer overrides only the window limits it explicitly sets; a
// missing layer changes nothing. With no matching configuration at any
// layer the hard-coded default applies. A failing config source also falls
// back to the default: resolution never blocks a request.
func (s *ResolverService) Resolve(ctx context.Context, tenantID, apiKeyID, endpoint string) governance.EffectiveLimits {
	effective := governance.DefaultEffectiveLimits()

	configs, err := s.configRepo.ListActive(ctx)
	if err != nil {
		s.logger.Error("Failed to load rate limit configs, using defaults",
			zap.String("tenant_id", tenantID),
			zap.Error(err))
		return effective
	}
	if len(configs) == 0 {
		return effective
	}

	byScope := make(map[governance.ConfigScope][]*governance.RateLimitConfig)
	for _, cfg := range configs {
		if cfg.Matches(tenantID, apiKeyID, endpoint) {
			byScope[cfg.Scope] = append(byScope[cfg.Scope], cfg)
		}
	}

	// The hard-coded default acts as the base layer under GLOBAL, so a
	// config that sets only some windows leaves the default for the rest.
	for _, scope := range governance.ScopePrecedence() {
		if winner := governance.SelectConfig(byScope[scope]); winner != nil {
			effective = effective.Apply(winner)
		}
	}
	return effective
}
