package store

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/erp/governance/internal/domain/governance"
	"github.com/erp/governance/internal/domain/shared"
)

// MemoryAlertRepository implements AlertRepository with in-process state.
// The single lock makes the dedupe check atomic with creation, which is the
// piece CreateIfAbsent exists for.
type MemoryAlertRepository struct {
	mu     sync.Mutex
	alerts map[uuid.UUID]*governance.Alert

	// open tracks the unresolved alert per dedupe key
	open map[string]uuid.UUID
}

// NewMemoryAlertRepository creates an empty in-memory alert repository
func NewMemoryAlertRepository() *MemoryAlertRepository {
	return &MemoryAlertRepository{
		alerts: make(map[uuid.UUID]*governance.Alert),
		open:   make(map[string]uuid.UUID),
	}
}

// clone copies an alert so callers never share the stored instance
func clone(a *governance.Alert) *governance.Alert {
	c := *a
	return &c
}

// CreateIfAbsent stores the alert unless an unresolved alert with the same
// dedupe key already exists
func (r *MemoryAlertRepository) CreateIfAbsent(ctx context.Context, alert *governance.Alert) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.open[alert.DedupeKey]; ok {
		if existing, found := r.alerts[id]; found && existing.Status() != governance.AlertStatusResolved {
			return false, nil
		}
	}

	r.alerts[alert.ID] = clone(alert)
	r.open[alert.DedupeKey] = alert.ID
	return true, nil
}

// FindByID returns the alert or shared.ErrNotFound
func (r *MemoryAlertRepository) FindByID(ctx context.Context, id uuid.UUID) (*governance.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.alerts[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return clone(a), nil
}

// List returns alerts matching the filter in severity-then-recency order
func (r *MemoryAlertRepository) List(ctx context.Context, filter governance.AlertFilter) ([]*governance.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*governance.Alert
	for _, a := range r.alerts {
		if filter.TenantID != nil && a.TenantID != *filter.TenantID {
			continue
		}
		if filter.UnresolvedOnly && a.Status() == governance.AlertStatusResolved {
			continue
		}
		out = append(out, clone(a))
	}
	governance.SortAlerts(out)
	return out, nil
}

// Update persists lifecycle changes
func (r *MemoryAlertRepository) Update(ctx context.Context, alert *governance.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.alerts[alert.ID]; !ok {
		return shared.ErrNotFound
	}
	r.alerts[alert.ID] = clone(alert)
	if alert.Status() == governance.AlertStatusResolved {
		if id, ok := r.open[alert.DedupeKey]; ok && id == alert.ID {
			delete(r.open, alert.DedupeKey)
		}
	}
	return nil
}

// Ensure MemoryAlertRepository implements AlertRepository
var _ governance.AlertRepository = (*MemoryAlertRepository)(nil)
