package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/erp/governance/internal/domain/governance"
)

// ledgerKey identifies one tenant's ledger row for one dimension
type ledgerKey struct {
	tenantID  uuid.UUID
	dimension governance.Dimension
}

// ledgerRow is the mutable per-period usage state
type ledgerRow struct {
	used        int64
	periodStart time.Time
	periodEnd   time.Time
}

// MemoryLedgerStore implements LedgerStore with in-process state.
// This is suitable for single-instance deployments and testing.
type MemoryLedgerStore struct {
	mu   sync.Mutex
	rows map[ledgerKey]*ledgerRow
}

// NewMemoryLedgerStore creates an empty in-memory ledger store
func NewMemoryLedgerStore() *MemoryLedgerStore {
	return &MemoryLedgerStore{
		rows: make(map[ledgerKey]*ledgerRow),
	}
}

// row returns the ledger row for the period, creating it lazily and
// rolling it over when the caller's period is newer than the stored one.
// A caller still holding the previous period addresses the current row,
// so the reset at a period boundary happens exactly once. Caller must
// hold s.mu.
func (s *MemoryLedgerStore) row(tenantID uuid.UUID, dim governance.Dimension, periodStart, periodEnd time.Time) *ledgerRow {
	k := ledgerKey{tenantID: tenantID, dimension: dim}
	r, ok := s.rows[k]
	if !ok || periodStart.After(r.periodStart) {
		r = &ledgerRow{periodStart: periodStart, periodEnd: periodEnd}
		s.rows[k] = r
	}
	return r
}

// CheckAndConsume debits amount under the store lock, so the check and the
// increment are indivisible
func (s *MemoryLedgerStore) CheckAndConsume(ctx context.Context, tenantID uuid.UUID, dim governance.Dimension, amount, limit int64, periodStart, periodEnd time.Time) (governance.QuotaResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.row(tenantID, dim, periodStart, periodEnd)

	allowed := limit == governance.UnlimitedQuota || r.used+amount <= limit
	if allowed {
		r.used += amount
	}

	q := governance.QuotaDimension{
		TenantID:    tenantID,
		Dimension:   dim,
		Limit:       limit,
		Used:        r.used,
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
	}
	return governance.QuotaResult{
		Allowed:     allowed,
		Dimension:   dim,
		Used:        q.Used,
		Limit:       limit,
		Remaining:   q.Remaining(),
		PercentUsed: q.PercentUsed(),
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
	}, nil
}

// Usage returns the current ledger row without consuming
func (s *MemoryLedgerStore) Usage(ctx context.Context, tenantID uuid.UUID, dim governance.Dimension, limit int64, periodStart, periodEnd time.Time) (governance.QuotaDimension, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.row(tenantID, dim, periodStart, periodEnd)
	return governance.QuotaDimension{
		TenantID:    tenantID,
		Dimension:   dim,
		Limit:       limit,
		Used:        r.used,
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
	}, nil
}

// Ensure MemoryLedgerStore implements LedgerStore
var _ governance.LedgerStore = (*MemoryLedgerStore)(nil)
