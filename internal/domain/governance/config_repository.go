package governance

import (
	"context"

	"github.com/google/uuid"
)

// ConfigRepository persists rate limit configurations. The governance core
// reads them at request time; writes come from the management API only.
type ConfigRepository interface {
	// Save persists a new configuration
	Save(ctx context.Context, cfg *RateLimitConfig) error

	// Update persists changes to an existing configuration
	Update(ctx context.Context, cfg *RateLimitConfig) error

	// Delete removes a configuration, or shared.ErrNotFound
	Delete(ctx context.Context, id uuid.UUID) error

	// FindByID returns the configuration or shared.ErrNotFound
	FindByID(ctx context.Context, id uuid.UUID) (*RateLimitConfig, error)

	// List returns all configurations, active or not
	List(ctx context.Context) ([]*RateLimitConfig, error)

	// ListActive returns only active configurations, the resolution input
	ListActive(ctx context.Context) ([]*RateLimitConfig, error)
}
