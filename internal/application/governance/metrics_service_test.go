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

type metricsFixture struct {
	service   *MetricsService
	metrics   *store.MemoryMetricsStore
	directory *store.MemoryTenantDirectory
	clock     *shared.ManualClock
	tenantID  uuid.UUID
}

func newMetricsFixture(t *testing.T) *metricsFixture {
	t.Helper()
	tenantID := uuid.New()
	directory := store.NewMemoryTenantDirectory(map[uuid.UUID]governance.TenantSettings{
		tenantID: {Tier: governance.TierPro, AnalyticsEnabled: true, DataRetentionDays: 30},
	})
	metrics := store.NewMemoryMetricsStore()
	clock := shared.NewManualClock(time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC))
	return &metricsFixture{
		service:   NewMetricsService(metrics, directory, clock, zap.NewNop()),
		metrics:   metrics,
		directory: directory,
		clock:     clock,
		tenantID:  tenantID,
	}
}

func (f *metricsFixture) record(t *testing.T, name string, value float64, at time.Time) {
	t.Helper()
	err := f.service.Record(context.Background(), governance.MetricSample{
		TenantID:  f.tenantID,
		Name:      name,
		Type:      governance.MetricTypeGauge,
		Value:     value,
		Timestamp: at,
	})
	require.NoError(t, err)
}

func TestMetricsServiceRecord(t *testing.T) {
	ctx := context.Background()

	t.Run("stamps missing timestamps", func(t *testing.T) {
		f := newMetricsFixture(t)
		err := f.service.Record(ctx, governance.MetricSample{
			TenantID: f.tenantID,
			Name:     "api_latency_ms",
			Type:     governance.MetricTypeGauge,
			Value:    12,
		})
		require.NoError(t, err)

		samples, err := f.service.Query(ctx, f.tenantID, governance.MetricFilter{})
		require.NoError(t, err)
		require.Len(t, samples, 1)
		assert.Equal(t, f.clock.Now(), samples[0].Timestamp)
	})

	t.Run("analytics opt-out drops samples silently", func(t *testing.T) {
		f := newMetricsFixture(t)
		optedOut := uuid.New()
		f.directory.Put(optedOut, governance.TenantSettings{Tier: governance.TierPro, AnalyticsEnabled: false})

		err := f.service.Record(ctx, governance.MetricSample{
			TenantID: optedOut,
			Name:     "api_latency_ms",
			Type:     governance.MetricTypeGauge,
			Value:    12,
		})
		require.NoError(t, err)

		samples, err := f.service.Query(ctx, optedOut, governance.MetricFilter{})
		require.NoError(t, err)
		assert.Empty(t, samples)
	})

	t.Run("rejects invalid samples", func(t *testing.T) {
		f := newMetricsFixture(t)
		assert.Error(t, f.service.Record(ctx, governance.MetricSample{Name: "x", Type: governance.MetricTypeGauge}))
		assert.Error(t, f.service.Record(ctx, governance.MetricSample{TenantID: f.tenantID, Type: governance.MetricTypeGauge}))
		assert.Error(t, f.service.Record(ctx, governance.MetricSample{TenantID: f.tenantID, Name: "x", Type: governance.MetricType("BOGUS")}))
	})
}

func TestMetricsServiceAggregate(t *testing.T) {
	ctx := context.Background()
	f := newMetricsFixture(t)

	base := time.Date(2026, 3, 15, 8, 0, 0, 0, time.UTC)
	for i, v := range []float64{10, 20, 30, 40, 50} {
		f.record(t, "api_latency_ms", v, base.Add(time.Duration(i)*time.Minute))
	}
	// A sample outside the day window must not be aggregated.
	f.record(t, "api_latency_ms", 9999, base.AddDate(0, 0, -2))

	t.Run("aggregates over the period window", func(t *testing.T) {
		result, err := f.service.Aggregate(ctx, AggregateQuery{
			TenantID: f.tenantID,
			Metric:   "api_latency_ms",
			Function: governance.AggregateSum,
			Period:   governance.PeriodDay,
		})
		require.NoError(t, err)
		assert.InDelta(t, 150, result.Value, 1e-9)
		assert.Equal(t, 5, result.SampleCount)
		assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), result.WindowStart)
	})

	t.Run("percentile", func(t *testing.T) {
		result, err := f.service.Aggregate(ctx, AggregateQuery{
			TenantID:   f.tenantID,
			Metric:     "api_latency_ms",
			Function:   governance.AggregatePercentile,
			Period:     governance.PeriodDay,
			Percentile: 0.95,
		})
		require.NoError(t, err)
		assert.InDelta(t, 50, result.Value, 1e-9)
	})

	t.Run("empty selection yields zero", func(t *testing.T) {
		result, err := f.service.Aggregate(ctx, AggregateQuery{
			TenantID: f.tenantID,
			Metric:   "unknown_metric",
			Function: governance.AggregateAvg,
			Period:   governance.PeriodDay,
		})
		require.NoError(t, err)
		assert.Zero(t, result.Value)
		assert.Zero(t, result.SampleCount)
	})

	t.Run("rejects invalid queries", func(t *testing.T) {
		_, err := f.service.Aggregate(ctx, AggregateQuery{TenantID: f.tenantID, Metric: "m", Function: "MEDIAN", Period: governance.PeriodDay})
		assert.Error(t, err)

		_, err = f.service.Aggregate(ctx, AggregateQuery{TenantID: f.tenantID, Metric: "m", Function: governance.AggregatePercentile, Period: governance.PeriodDay, Percentile: 1.5})
		assert.Error(t, err)
	})
}

func TestMetricsServicePurgeExpired(t *testing.T) {
	ctx := context.Background()
	f := newMetricsFixture(t)
	now := f.clock.Now()

	// Tenant retention is 30 days.
	f.record(t, "api_latency_ms", 1, now.AddDate(0, 0, -40))
	f.record(t, "api_latency_ms", 2, now.AddDate(0, 0, -10))
	f.record(t, "api_latency_ms", 3, now)

	purged := f.service.PurgeExpired(ctx)
	assert.Equal(t, 1, purged)

	samples, err := f.service.Query(ctx, f.tenantID, governance.MetricFilter{})
	require.NoError(t, err)
	assert.Len(t, samples, 2)
}
