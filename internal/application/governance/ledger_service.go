package governance

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/erp/governance/internal/domain/governance"
	"github.com/erp/governance/internal/domain/shared"
)

// QuotaObserver is notified after every successful check-and-consume so
// alerting can react to threshold crossings without the ledger knowing
// about alerts.
type QuotaObserver interface {
	QuotaConsumed(ctx context.Context, tenantID uuid.UUID, result governance.QuotaResult)
}

// UsageSummary is one tenant's quota position across all dimensions for the
// current billing period.
type UsageSummary struct {
	TenantID   uuid.UUID
	Tier       governance.Tier
	Dimensions []governance.QuotaDimension

	// SuggestedTier is set when any dimension is at the upgrade threshold
	// and a higher tier exists.
	SuggestedTier *governance.Tier
}

// LedgerService enforces per-tenant usage quotas. Checking and consuming
// are one atomic step in the backing store; the service layers tier
// resolution, billing periods, and upgrade suggestions on top.
type LedgerService struct {
	ledger   governance.LedgerStore
	tenants  governance.TenantDirectory
	observer QuotaObserver
	clock    shared.Clock
	logger   *zap.Logger
}

// NewLedgerService creates a new LedgerService. observer may be nil.
func NewLedgerService(ledger governance.LedgerStore, tenants governance.TenantDirectory, observer QuotaObserver, clock shared.Clock, logger *zap.Logger) *LedgerService {
	return &LedgerService{
		ledger:   ledger,
		tenants:  tenants,
		observer: observer,
		clock:    clock,
		logger:   logger,
	}
}

// tierFor resolves the tenant's tier, falling back to unlimited behavior
// when the directory cannot answer. A broken directory must not block
// business operations.
func (s *LedgerService) tierFor(ctx context.Context, tenantID uuid.UUID) governance.Tier {
	settings, err := s.tenants.Settings(ctx, tenantID)
	if err != nil {
		if err != shared.ErrNotFound {
			s.logger.Error("Failed to resolve tenant tier, treating as unlimited",
				zap.String("tenant_id", tenantID.String()),
				zap.Error(err))
		}
		return governance.TierEnterprise
	}
	return settings.Tier
}

// Consume debits amount against the tenant's quota for the dimension.
// amount defaults to 1. A ledger store failure is logged and the operation
// is allowed: quota accounting degrades before business operations do.
func (s *LedgerService) Consume(ctx context.Context, tenantID uuid.UUID, dim governance.Dimension, amount int64) (governance.QuotaResult, error) {
	if tenantID == uuid.Nil {
		return governance.QuotaResult{}, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	if !dim.IsValid() {
		return governance.QuotaResult{}, shared.NewDomainError("INVALID_DIMENSION", "Unknown quota dimension: "+dim.String())
	}
	if amount <= 0 {
		amount = 1
	}

	tier := s.tierFor(ctx, tenantID)
	limit := governance.TierQuota(tier, dim)
	periodStart, periodEnd := governance.MonthlyPeriod(s.clock.Now())

	result, err := s.ledger.CheckAndConsume(ctx, tenantID, dim, amount, limit, periodStart, periodEnd)
	if err != nil {
		s.logger.Error("Ledger store failed, allowing consumption",
			zap.String("tenant_id", tenantID.String()),
			zap.String("dimension", dim.String()),
			zap.Error(err))
		return governance.QuotaResult{
			Allowed:     true,
			Dimension:   dim,
			Limit:       limit,
			Remaining:   limit,
			PeriodStart: periodStart,
			PeriodEnd:   periodEnd,
		}, nil
	}

	result.SuggestedTier = suggestUpgrade(tier, result.PercentUsed, result.Allowed)

	if s.observer != nil {
		s.observer.QuotaConsumed(ctx, tenantID, result)
	}

	if !result.Allowed {
		s.logger.Info("Quota exceeded, blocking operation",
			zap.String("tenant_id", tenantID.String()),
			zap.String("dimension", dim.String()),
			zap.Int64("used", result.Used),
			zap.Int64("limit", result.Limit))
	}
	return result, nil
}

// suggestUpgrade returns the next tier when usage is at the threshold or
// the request was rejected outright
func suggestUpgrade(tier governance.Tier, percentUsed float64, allowed bool) *governance.Tier {
	if allowed && percentUsed < governance.UpgradeSuggestionThreshold {
		return nil
	}
	next, ok := tier.Next()
	if !ok {
		return nil
	}
	return &next
}

// Summary returns the tenant's usage across all dimensions for the current
// billing period
func (s *LedgerService) Summary(ctx context.Context, tenantID uuid.UUID) (*UsageSummary, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}

	tier := s.tierFor(ctx, tenantID)
	periodStart, periodEnd := governance.MonthlyPeriod(s.clock.Now())

	summary := &UsageSummary{TenantID: tenantID, Tier: tier}
	for _, dim := range governance.AllDimensions() {
		limit := governance.TierQuota(tier, dim)
		usage, err := s.ledger.Usage(ctx, tenantID, dim, limit, periodStart, periodEnd)
		if err != nil {
			s.logger.Warn("Failed to read quota usage",
				zap.String("tenant_id", tenantID.String()),
				zap.String("dimension", dim.String()),
				zap.Error(err))
			continue
		}
		summary.Dimensions = append(summary.Dimensions, usage)

		if summary.SuggestedTier == nil && usage.PercentUsed() >= governance.UpgradeSuggestionThreshold {
			if next, ok := tier.Next(); ok {
				summary.SuggestedTier = &next
			}
		}
	}
	return summary, nil
}
