package governance

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/erp/governance/internal/domain/governance"
	"github.com/erp/governance/internal/domain/shared"
	"github.com/erp/governance/internal/infrastructure/store"
)

func newAlertService(t *testing.T) (*AlertService, *shared.ManualClock) {
	t.Helper()
	clock := shared.NewManualClock(time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC))
	return NewAlertService(store.NewMemoryAlertRepository(), clock, zap.NewNop()), clock
}

func quotaResult(dim governance.Dimension, used, limit int64, allowed bool) governance.QuotaResult {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	q := governance.QuotaDimension{Dimension: dim, Limit: limit, Used: used}
	return governance.QuotaResult{
		Allowed:     allowed,
		Dimension:   dim,
		Used:        used,
		Limit:       limit,
		PercentUsed: q.PercentUsed(),
		PeriodStart: start,
		PeriodEnd:   start.AddDate(0, 1, 0),
	}
}

func TestAlertServiceQuotaConsumed(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	t.Run("warning at the threshold", func(t *testing.T) {
		s, _ := newAlertService(t)
		s.QuotaConsumed(ctx, tenantID, quotaResult(governance.DimensionInvoices, 46, 50, true))

		alerts, err := s.List(ctx, governance.AlertFilter{TenantID: &tenantID})
		require.NoError(t, err)
		require.Len(t, alerts, 1)
		assert.Equal(t, governance.AlertQuotaWarning, alerts[0].Type)
		assert.Equal(t, governance.SeverityWarning, alerts[0].Severity)
	})

	t.Run("no alert below the threshold", func(t *testing.T) {
		s, _ := newAlertService(t)
		s.QuotaConsumed(ctx, tenantID, quotaResult(governance.DimensionInvoices, 10, 50, true))

		alerts, err := s.List(ctx, governance.AlertFilter{TenantID: &tenantID})
		require.NoError(t, err)
		assert.Empty(t, alerts)
	})

	t.Run("critical on exhaustion", func(t *testing.T) {
		s, _ := newAlertService(t)
		s.QuotaConsumed(ctx, tenantID, quotaResult(governance.DimensionInvoices, 50, 50, false))

		alerts, err := s.List(ctx, governance.AlertFilter{TenantID: &tenantID})
		require.NoError(t, err)
		require.Len(t, alerts, 1)
		assert.Equal(t, governance.AlertQuotaExceeded, alerts[0].Type)
		assert.Equal(t, governance.SeverityCritical, alerts[0].Severity)
	})

	t.Run("repeat crossings are deduplicated", func(t *testing.T) {
		s, _ := newAlertService(t)
		for used := int64(46); used <= 49; used++ {
			s.QuotaConsumed(ctx, tenantID, quotaResult(governance.DimensionInvoices, used, 50, true))
		}

		alerts, err := s.List(ctx, governance.AlertFilter{TenantID: &tenantID})
		require.NoError(t, err)
		assert.Len(t, alerts, 1)
	})

	t.Run("unlimited dimensions never alert", func(t *testing.T) {
		s, _ := newAlertService(t)
		s.QuotaConsumed(ctx, tenantID, quotaResult(governance.DimensionAPICalls, 1_000_000, governance.UnlimitedQuota, true))

		alerts, err := s.List(ctx, governance.AlertFilter{TenantID: &tenantID})
		require.NoError(t, err)
		assert.Empty(t, alerts)
	})

	t.Run("resolving reopens the condition", func(t *testing.T) {
		s, _ := newAlertService(t)
		s.QuotaConsumed(ctx, tenantID, quotaResult(governance.DimensionInvoices, 46, 50, true))

		alerts, err := s.List(ctx, governance.AlertFilter{TenantID: &tenantID})
		require.NoError(t, err)
		require.Len(t, alerts, 1)

		_, err = s.Resolve(ctx, alerts[0].ID)
		require.NoError(t, err)

		s.QuotaConsumed(ctx, tenantID, quotaResult(governance.DimensionInvoices, 47, 50, true))
		alerts, err = s.List(ctx, governance.AlertFilter{TenantID: &tenantID, UnresolvedOnly: true})
		require.NoError(t, err)
		assert.Len(t, alerts, 1, "a resolved condition can trigger again")
	})
}

func TestAlertServiceEvaluateAdmissionStats(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	t.Run("flags a rejection-heavy key", func(t *testing.T) {
		s, _ := newAlertService(t)
		s.EvaluateAdmissionStats(ctx, tenantID, "t1", KeyStats{Allowed: 2, Rejected: 8})

		alerts, err := s.List(ctx, governance.AlertFilter{TenantID: &tenantID})
		require.NoError(t, err)
		require.Len(t, alerts, 1)
		assert.Equal(t, governance.AlertRateLimitAnomaly, alerts[0].Type)
		assert.Equal(t, governance.SeverityWarning, alerts[0].Severity)
	})

	t.Run("near-total rejection escalates to performance", func(t *testing.T) {
		s, _ := newAlertService(t)
		s.EvaluateAdmissionStats(ctx, tenantID, "t1", KeyStats{Allowed: 1, Rejected: 19})

		alerts, err := s.List(ctx, governance.AlertFilter{TenantID: &tenantID})
		require.NoError(t, err)
		require.Len(t, alerts, 1)
		assert.Equal(t, governance.AlertPerformance, alerts[0].Type)
		assert.Equal(t, governance.SeverityCritical, alerts[0].Severity)
	})

	t.Run("healthy traffic is ignored", func(t *testing.T) {
		s, _ := newAlertService(t)
		s.EvaluateAdmissionStats(ctx, tenantID, "t1", KeyStats{Allowed: 9, Rejected: 1})
		s.EvaluateAdmissionStats(ctx, tenantID, "t2", KeyStats{})

		alerts, err := s.List(ctx, governance.AlertFilter{TenantID: &tenantID})
		require.NoError(t, err)
		assert.Empty(t, alerts)
	})
}

func TestAlertServiceLifecycle(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	s, clock := newAlertService(t)

	s.QuotaConsumed(ctx, tenantID, quotaResult(governance.DimensionInvoices, 46, 50, true))
	alerts, err := s.List(ctx, governance.AlertFilter{TenantID: &tenantID})
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	id := alerts[0].ID

	clock.Advance(time.Minute)
	alert, err := s.Acknowledge(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, governance.AlertStatusAcknowledged, alert.Status())

	clock.Advance(time.Minute)
	alert, err = s.Resolve(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, governance.AlertStatusResolved, alert.Status())

	_, err = s.Resolve(ctx, id)
	assert.Error(t, err, "no transitions out of resolved")

	_, err = s.Acknowledge(ctx, uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
