package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/erp/governance/internal/domain/governance"
	"github.com/erp/governance/internal/domain/shared"
)

// MemoryTenantDirectory implements TenantDirectory from a seeded map.
// In production the directory is fed from the identity module; this
// implementation covers single-instance deployments and testing.
type MemoryTenantDirectory struct {
	mu      sync.RWMutex
	tenants map[uuid.UUID]governance.TenantSettings
}

// NewMemoryTenantDirectory creates a directory seeded with the given
// tenants
func NewMemoryTenantDirectory(tenants map[uuid.UUID]governance.TenantSettings) *MemoryTenantDirectory {
	d := &MemoryTenantDirectory{tenants: make(map[uuid.UUID]governance.TenantSettings, len(tenants))}
	for id, settings := range tenants {
		d.tenants[id] = settings
	}
	return d
}

// Put adds or replaces a tenant's settings
func (d *MemoryTenantDirectory) Put(tenantID uuid.UUID, settings governance.TenantSettings) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tenants[tenantID] = settings
}

// Settings returns the settings for a tenant, or shared.ErrNotFound
func (d *MemoryTenantDirectory) Settings(ctx context.Context, tenantID uuid.UUID) (governance.TenantSettings, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	settings, ok := d.tenants[tenantID]
	if !ok {
		return governance.TenantSettings{}, shared.ErrNotFound
	}
	return settings, nil
}

// TenantIDs lists all known tenants in a stable order
func (d *MemoryTenantDirectory) TenantIDs(ctx context.Context) ([]uuid.UUID, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ids := make([]uuid.UUID, 0, len(d.tenants))
	for id := range d.tenants {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids, nil
}

// Ensure MemoryTenantDirectory implements TenantDirectory
var _ governance.TenantDirectory = (*MemoryTenantDirectory)(nil)
