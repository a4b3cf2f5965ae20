package store

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erp/governance/internal/domain/governance"
	"github.com/erp/governance/internal/domain/shared"
)

func TestMemoryAlertRepositoryCreateIfAbsent(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

	t.Run("second trigger on the same condition is suppressed", func(t *testing.T) {
		r := NewMemoryAlertRepository()
		a := governance.NewAlert(tenantID, governance.AlertQuotaWarning, governance.SeverityWarning, "invoices at 92%", "k1", now)

		created, err := r.CreateIfAbsent(ctx, a)
		require.NoError(t, err)
		assert.True(t, created)

		dup := governance.NewAlert(tenantID, governance.AlertQuotaWarning, governance.SeverityWarning, "invoices at 93%", "k1", now.Add(time.Minute))
		created, err = r.CreateIfAbsent(ctx, dup)
		require.NoError(t, err)
		assert.False(t, created)
	})

	t.Run("resolving frees the dedupe key", func(t *testing.T) {
		r := NewMemoryAlertRepository()
		a := governance.NewAlert(tenantID, governance.AlertQuotaWarning, governance.SeverityWarning, "invoices at 92%", "k1", now)
		_, err := r.CreateIfAbsent(ctx, a)
		require.NoError(t, err)

		require.NoError(t, a.Resolve(now.Add(time.Minute)))
		require.NoError(t, r.Update(ctx, a))

		again := governance.NewAlert(tenantID, governance.AlertQuotaWarning, governance.SeverityWarning, "invoices at 95%", "k1", now.Add(time.Hour))
		created, err := r.CreateIfAbsent(ctx, again)
		require.NoError(t, err)
		assert.True(t, created, "a resolved alert no longer blocks its condition")
	})

	t.Run("concurrent triggers create exactly one alert", func(t *testing.T) {
		r := NewMemoryAlertRepository()

		var created atomic.Int64
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				a := governance.NewAlert(tenantID, governance.AlertQuotaExceeded, governance.SeverityCritical, "quota exceeded", "race", now)
				ok, err := r.CreateIfAbsent(ctx, a)
				if err == nil && ok {
					created.Add(1)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int64(1), created.Load())
	})
}

func TestMemoryAlertRepositoryList(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	tenantA := uuid.New()
	tenantB := uuid.New()

	r := NewMemoryAlertRepository()
	critical := governance.NewAlert(tenantA, governance.AlertQuotaExceeded, governance.SeverityCritical, "exceeded", "a", now)
	warning := governance.NewAlert(tenantA, governance.AlertQuotaWarning, governance.SeverityWarning, "warning", "b", now.Add(time.Minute))
	other := governance.NewAlert(tenantB, governance.AlertPerformance, governance.SeverityInfo, "slow", "c", now)
	for _, a := range []*governance.Alert{warning, critical, other} {
		_, err := r.CreateIfAbsent(ctx, a)
		require.NoError(t, err)
	}

	t.Run("filters by tenant in severity order", func(t *testing.T) {
		got, err := r.List(ctx, governance.AlertFilter{TenantID: &tenantA})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, critical.ID, got[0].ID)
		assert.Equal(t, warning.ID, got[1].ID)
	})

	t.Run("unresolved only", func(t *testing.T) {
		require.NoError(t, warning.Resolve(now.Add(time.Hour)))
		require.NoError(t, r.Update(ctx, warning))

		got, err := r.List(ctx, governance.AlertFilter{TenantID: &tenantA, UnresolvedOnly: true})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, critical.ID, got[0].ID)
	})
}

func TestMemoryAlertRepositoryFindAndUpdate(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	r := NewMemoryAlertRepository()

	a := governance.NewAlert(uuid.New(), governance.AlertQuotaWarning, governance.SeverityWarning, "warning", "k1", now)
	_, err := r.CreateIfAbsent(ctx, a)
	require.NoError(t, err)

	t.Run("find returns a copy", func(t *testing.T) {
		got, err := r.FindByID(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, a.ID, got.ID)

		require.NoError(t, got.Acknowledge(now.Add(time.Minute)))
		again, err := r.FindByID(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, governance.AlertStatusTriggered, again.Status(), "mutating a returned alert does not touch the store")
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := r.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("update persists lifecycle changes", func(t *testing.T) {
		require.NoError(t, a.Acknowledge(now.Add(time.Minute)))
		require.NoError(t, r.Update(ctx, a))

		got, err := r.FindByID(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, governance.AlertStatusAcknowledged, got.Status())
	})

	t.Run("update of unknown alert fails", func(t *testing.T) {
		stray := governance.NewAlert(uuid.New(), governance.AlertPerformance, governance.SeverityInfo, "stray", "x", now)
		assert.ErrorIs(t, r.Update(ctx, stray), shared.ErrNotFound)
	})
}
