package governance

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/erp/governance/internal/domain/governance"
	"github.com/erp/governance/internal/domain/shared"
)

// BenchmarkService compares tenants against industry references and builds
// anonymized cross-tenant statistics. Only tenants that opted in via
// AllowBenchmarking participate, on both sides: they may ask for
// comparisons and their data may feed peer statistics.
type BenchmarkService struct {
	tenants   governance.TenantDirectory
	metrics   governance.MetricsStore
	reference governance.ReferenceTable
	clock     shared.Clock
	logger    *zap.Logger
}

// NewBenchmarkService creates a new BenchmarkService
func NewBenchmarkService(tenants governance.TenantDirectory, metrics governance.MetricsStore, reference governance.ReferenceTable, clock shared.Clock, logger *zap.Logger) *BenchmarkService {
	return &BenchmarkService{
		tenants:   tenants,
		metrics:   metrics,
		reference: reference,
		clock:     clock,
		logger:    logger,
	}
}

// tenantValue aggregates one tenant's metric over the period window
func (s *BenchmarkService) tenantValue(ctx context.Context, tenantID uuid.UUID, metric string, period governance.AggregatePeriod) (float64, error) {
	now := s.clock.Now()
	values, err := s.metrics.Values(ctx, tenantID, metric, period.Start(now), now)
	if err != nil {
		return 0, err
	}
	return governance.Aggregate(values, governance.AggregateSum, 0), nil
}

// peerValues collects the metric for every consenting tenant in the
// industry, excluding the asking tenant
func (s *BenchmarkService) peerValues(ctx context.Context, industry, metric string, period governance.AggregatePeriod, exclude uuid.UUID) ([]float64, error) {
	tenantIDs, err := s.tenants.TenantIDs(ctx)
	if err != nil {
		return nil, err
	}

	var peers []float64
	for _, tenantID := range tenantIDs {
		if tenantID == exclude {
			continue
		}
		settings, err := s.tenants.Settings(ctx, tenantID)
		if err != nil || !settings.AllowBenchmarking || settings.Industry != industry {
			continue
		}
		value, err := s.tenantValue(ctx, tenantID, metric, period)
		if err != nil {
			s.logger.Warn("Failed to aggregate peer metric",
				zap.String("tenant_id", tenantID.String()),
				zap.String("metric", metric),
				zap.Error(err))
			continue
		}
		peers = append(peers, value)
	}
	return peers, nil
}

// Compare positions a tenant's metric against its industry. Tenants that
// did not opt into benchmarking get shared.ErrForbidden.
func (s *BenchmarkService) Compare(ctx context.Context, tenantID uuid.UUID, metric string, period governance.AggregatePeriod) (*governance.BenchmarkComparison, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	if !period.IsValid() {
		return nil, shared.NewDomainError("INVALID_AGGREGATION", "Unknown aggregation period")
	}

	settings, err := s.tenants.Settings(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if !settings.AllowBenchmarking {
		return nil, shared.ErrForbidden
	}

	reference, err := s.reference.Lookup(ctx, settings.Industry, metric)
	if err != nil {
		return nil, err
	}

	value, err := s.tenantValue(ctx, tenantID, metric, period)
	if err != nil {
		return nil, err
	}

	peers, err := s.peerValues(ctx, settings.Industry, metric, period, tenantID)
	if err != nil {
		return nil, err
	}

	return &governance.BenchmarkComparison{
		Metric:          metric,
		Value:           value,
		IndustryAverage: reference.Average,
		Percentile:      governance.PercentileRank(value, peers),
		Trend:           governance.TrendFor(value, reference.Average),
	}, nil
}

// IndustrySnapshot builds the anonymized cross-tenant statistics for one
// industry and metric from consenting tenants only. Individual tenants are
// never identifiable in the result.
func (s *BenchmarkService) IndustrySnapshot(ctx context.Context, industry, metric string, period governance.AggregatePeriod) (*governance.BenchmarkSnapshot, error) {
	if industry == "" || metric == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Industry and metric are required")
	}
	if !period.IsValid() {
		return nil, shared.NewDomainError("INVALID_AGGREGATION", "Unknown aggregation period")
	}

	values, err := s.peerValues(ctx, industry, metric, period, uuid.Nil)
	if err != nil {
		return nil, err
	}

	snapshot := governance.NewBenchmarkSnapshot(industry, metric, values, s.clock.Now())
	return &snapshot, nil
}
