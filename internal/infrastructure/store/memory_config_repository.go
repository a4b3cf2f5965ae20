package store

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/erp/governance/internal/domain/governance"
	"github.com/erp/governance/internal/domain/shared"
)

// MemoryConfigRepository implements ConfigRepository with in-process state.
// This is suitable for single-instance deployments and testing.
type MemoryConfigRepository struct {
	mu      sync.RWMutex
	configs map[uuid.UUID]*governance.RateLimitConfig
}

// NewMemoryConfigRepository creates an empty in-memory config repository
func NewMemoryConfigRepository() *MemoryConfigRepository {
	return &MemoryConfigRepository{
		configs: make(map[uuid.UUID]*governance.RateLimitConfig),
	}
}

// cloneConfig copies a config so callers never share the stored instance
func cloneConfig(cfg *governance.RateLimitConfig) *governance.RateLimitConfig {
	c := *cfg
	return &c
}

// Save persists a new configuration
func (r *MemoryConfigRepository) Save(ctx context.Context, cfg *governance.RateLimitConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.configs[cfg.ID]; ok {
		return shared.ErrAlreadyExists
	}
	r.configs[cfg.ID] = cloneConfig(cfg)
	return nil
}

// Update persists changes to an existing configuration
func (r *MemoryConfigRepository) Update(ctx context.Context, cfg *governance.RateLimitConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.configs[cfg.ID]; !ok {
		return shared.ErrNotFound
	}
	r.configs[cfg.ID] = cloneConfig(cfg)
	return nil
}

// Delete removes a configuration
func (r *MemoryConfigRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.configs[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.configs, id)
	return nil
}

// FindByID returns the configuration or shared.ErrNotFound
func (r *MemoryConfigRepository) FindByID(ctx context.Context, id uuid.UUID) (*governance.RateLimitConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.configs[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return cloneConfig(cfg), nil
}

// List returns all configurations, active or not
func (r *MemoryConfigRepository) List(ctx context.Context) ([]*governance.RateLimitConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*governance.RateLimitConfig, 0, len(r.configs))
	for _, cfg := range r.configs {
		out = append(out, cloneConfig(cfg))
	}
	return out, nil
}

// ListActive returns only active configurations
func (r *MemoryConfigRepository) ListActive(ctx context.Context) ([]*governance.RateLimitConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*governance.RateLimitConfig
	for _, cfg := range r.configs {
		if cfg.Active {
			out = append(out, cloneConfig(cfg))
		}
	}
	return out, nil
}

// Ensure MemoryConfigRepository implements ConfigRepository
var _ governance.ConfigRepository = (*MemoryConfigRepository)(nil)
