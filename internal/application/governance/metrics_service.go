package governance

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/erp/governance/internal/domain/governance"
	"github.com/erp/governance/internal/domain/shared"
)

// AggregateQuery describes one windowed aggregation request.
type AggregateQuery struct {
	TenantID   uuid.UUID
	Metric     string
	Function   governance.AggregateFunc
	Period     governance.AggregatePeriod
	Percentile float64 // only for PERCENTILE, 0..1
}

// AggregateResult carries the aggregation outcome together with the window
// it was computed over.
type AggregateResult struct {
	Metric      string
	Function    governance.AggregateFunc
	Period      governance.AggregatePeriod
	Value       float64
	SampleCount int
	WindowStart time.Time
	WindowEnd   time.Time
}

// MetricsService records per-tenant business metrics and answers windowed
// aggregation queries over them.
type MetricsService struct {
	metrics governance.MetricsStore
	tenants governance.TenantDirectory
	clock   shared.Clock
	logger  *zap.Logger
}

// NewMetricsService creates a new MetricsService
func NewMetricsService(metrics governance.MetricsStore, tenants governance.TenantDirectory, clock shared.Clock, logger *zap.Logger) *MetricsService {
	return &MetricsService{
		metrics: metrics,
		tenants: tenants,
		clock:   clock,
		logger:  logger,
	}
}

// Record appends a sample. A zero timestamp is stamped with the current
// time. Tenants that disabled analytics record nothing; the drop is silent
// so instrumented call sites need no per-tenant branching.
func (s *MetricsService) Record(ctx context.Context, sample governance.MetricSample) error {
	if sample.TenantID == uuid.Nil {
		return shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	if sample.Name == "" {
		return shared.NewDomainError("INVALID_METRIC", "Metric name cannot be empty")
	}
	if !sample.Type.IsValid() {
		return shared.NewDomainError("INVALID_METRIC", "Unknown metric type: "+sample.Type.String())
	}
	if sample.Timestamp.IsZero() {
		sample.Timestamp = s.clock.Now()
	}

	if settings, err := s.tenants.Settings(ctx, sample.TenantID); err == nil && !settings.AnalyticsEnabled {
		return nil
	}

	return s.metrics.Record(ctx, sample)
}

// Query returns matching samples ordered by timestamp descending
func (s *MetricsService) Query(ctx context.Context, tenantID uuid.UUID, filter governance.MetricFilter) ([]governance.MetricSample, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	return s.metrics.Query(ctx, tenantID, filter)
}

// Aggregate computes a windowed aggregation. The window boundaries are
// fixed once at evaluation time. An empty selection yields 0.
func (s *MetricsService) Aggregate(ctx context.Context, q AggregateQuery) (*AggregateResult, error) {
	if q.TenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	if q.Metric == "" {
		return nil, shared.NewDomainError("INVALID_METRIC", "Metric name cannot be empty")
	}
	if !q.Function.IsValid() {
		return nil, shared.NewDomainError("INVALID_AGGREGATION", "Unknown aggregation function")
	}
	if !q.Period.IsValid() {
		return nil, shared.NewDomainError("INVALID_AGGREGATION", "Unknown aggregation period")
	}
	if q.Function == governance.AggregatePercentile && (q.Percentile < 0 || q.Percentile > 1) {
		return nil, shared.NewDomainError("INVALID_AGGREGATION", "Percentile must be between 0 and 1")
	}

	now := s.clock.Now()
	start := q.Period.Start(now)

	values, err := s.metrics.Values(ctx, q.TenantID, q.Metric, start, now)
	if err != nil {
		return nil, err
	}

	return &AggregateResult{
		Metric:      q.Metric,
		Function:    q.Function,
		Period:      q.Period,
		Value:       governance.Aggregate(values, q.Function, q.Percentile),
		SampleCount: len(values),
		WindowStart: start,
		WindowEnd:   now,
	}, nil
}

// PurgeExpired drops samples older than each tenant's retention window.
// Called from the background reaper; returns the total purged count.
func (s *MetricsService) PurgeExpired(ctx context.Context) int {
	now := s.clock.Now()

	tenantIDs, err := s.tenants.TenantIDs(ctx)
	if err != nil {
		s.logger.Error("Failed to list tenants for metric retention", zap.Error(err))
		return 0
	}

	total := 0
	for _, tenantID := range tenantIDs {
		retention := governance.DefaultRetentionDays
		if settings, err := s.tenants.Settings(ctx, tenantID); err == nil && settings.DataRetentionDays > 0 {
			retention = settings.DataRetentionDays
		}
		cutoff := now.AddDate(0, 0, -retention)

		purged, err := s.metrics.Purge(ctx, tenantID, cutoff)
		if err != nil {
			s.logger.Warn("Failed to purge expired metrics",
				zap.String("tenant_id", tenantID.String()),
				zap.Error(err))
			continue
		}
		total += purged
	}
	if total > 0 {
		s.logger.Info("Purged expired metric samples", zap.Int("count", total))
	}
	return total
}
