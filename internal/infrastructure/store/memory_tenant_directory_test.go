package store

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erp/governance/internal/domain/governance"
	"github.com/erp/governance/internal/domain/shared"
)

func TestMemoryTenantDirectory(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	d := NewMemoryTenantDirectory(map[uuid.UUID]governance.TenantSettings{
		tenantID: {Tier: governance.TierPro, Industry: "retail", AllowBenchmarking: true},
	})

	t.Run("returns seeded settings", func(t *testing.T) {
		settings, err := d.Settings(ctx, tenantID)
		require.NoError(t, err)
		assert.Equal(t, governance.TierPro, settings.Tier)
		assert.Equal(t, "retail", settings.Industry)
	})

	t.Run("unknown tenant", func(t *testing.T) {
		_, err := d.Settings(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("lists tenants", func(t *testing.T) {
		other := uuid.New()
		d.Put(other, governance.TenantSettings{Tier: governance.TierFree})

		ids, err := d.TenantIDs(ctx)
		require.NoError(t, err)
		assert.Len(t, ids, 2)
	})
}

func TestStaticReferenceTable(t *testing.T) {
	ctx := context.Background()
	table := NewStaticReferenceTable([]governance.IndustryBenchmark{
		{Industry: "retail", Metric: "monthly_revenue", Average: 50000},
	})

	t.Run("known row", func(t *testing.T) {
		row, err := table.Lookup(ctx, "retail", "monthly_revenue")
		require.NoError(t, err)
		assert.Equal(t, 50000.0, row.Average)
	})

	t.Run("missing row", func(t *testing.T) {
		_, err := table.Lookup(ctx, "mining", "monthly_revenue")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}
