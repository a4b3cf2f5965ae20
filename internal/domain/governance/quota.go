package governance

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// UnlimitedQuota marks a dimension with no ceiling; usage is still recorded
// for reporting.
const UnlimitedQuota int64 = -1

// Tier is a subscription plan determining quota ceilings.
type Tier string

const (
	TierFree       Tier = "FREE"
	TierBasic      Tier = "BASIC"
	TierPro        Tier = "PRO"
	TierEnterprise Tier = "ENTERPRISE"
)

// String returns the string representation of Tier
func (t Tier) String() string {
	return string(t)
}

// IsValid returns true if the tier is one of the known plans
func (t Tier) IsValid() bool {
	switch t {
	case TierFree, TierBasic, TierPro, TierEnterprise:
		return true
	}
	return false
}

// Next returns the next tier up the ladder, or false from ENTERPRISE
func (t Tier) Next() (Tier, bool) {
	switch t {
	case TierFree:
		return TierBasic, true
	case TierBasic:
		return TierPro, true
	case TierPro:
		return TierEnterprise, true
	}
	return t, false
}

// Dimension is a named, independently metered resource.
type Dimension string

const (
	DimensionAPICalls  Dimension = "apiCalls"
	DimensionInvoices  Dimension = "invoices"
	DimensionOCRPages  Dimension = "ocrPages"
	DimensionStorageMB Dimension = "storageMB"
	DimensionUsers     Dimension = "users"
)

// String returns the string representation of Dimension
func (d Dimension) String() string {
	return string(d)
}

// IsValid returns true if the dimension is metered by the governance core
func (d Dimension) IsValid() bool {
	switch d {
	case DimensionAPICalls, DimensionInvoices, DimensionOCRPages, DimensionStorageMB, DimensionUsers:
		return true
	}
	return false
}

// AllDimensions lists every metered dimension
func AllDimensions() []Dimension {
	return []Dimension{DimensionAPICalls, DimensionInvoices, DimensionOCRPages, DimensionStorageMB, DimensionUsers}
}

// tierQuotas maps tier to per-dimension ceilings. Ceilings are strictly
// increasing FREE < BASIC < PRO, and ENTERPRISE is unlimited on every
// dimension.
var tierQuotas = map[Tier]map[Dimension]int64{
	TierFree: {
		DimensionAPICalls:  1000,
		DimensionInvoices:  50,
		DimensionOCRPages:  10,
		DimensionStorageMB: 1024,
		DimensionUsers:     1,
	},
	TierBasic: {
		DimensionAPICalls:  10000,
		DimensionInvoices:  500,
		DimensionOCRPages:  500,
		DimensionStorageMB: 51200,
		DimensionUsers:     5,
	},
	TierPro: {
		DimensionAPICalls:  100000,
		DimensionInvoices:  10000,
		DimensionOCRPages:  10000,
		DimensionStorageMB: 512000,
		DimensionUsers:     50,
	},
	TierEnterprise: {
		DimensionAPICalls:  UnlimitedQuota,
		DimensionInvoices:  UnlimitedQuota,
		DimensionOCRPages:  UnlimitedQuota,
		DimensionStorageMB: UnlimitedQuota,
		DimensionUsers:     UnlimitedQuota,
	},
}

// TierQuota returns the ceiling for a tier and dimension. Unknown
// combinations are treated as unlimited so a missing table entry can never
// block a business operation.
func TierQuota(tier Tier, dim Dimension) int64 {
	dims, ok := tierQuotas[tier]
	if !ok {
		return UnlimitedQuota
	}
	limit, ok := dims[dim]
	if !ok {
		return UnlimitedQuota
	}
	return limit
}

// QuotaDimension is one tenant's ledger row for one dimension in one
// billing period.
type QuotaDimension struct {
	TenantID    uuid.UUID
	Dimension   Dimension
	Limit       int64 // -1 = unlimited
	Used        int64
	PeriodStart time.Time
	PeriodEnd   time.Time
}

// PercentUsed returns usage as a percentage of the ceiling (0 for
// unlimited dimensions)
func (q *QuotaDimension) PercentUsed() float64 {
	if q.Limit <= 0 {
		return 0
	}
	return float64(q.Used) / float64(q.Limit) * 100
}

// Remaining returns the unconsumed allowance, or -1 for unlimited
func (q *QuotaDimension) Remaining() int64 {
	if q.Limit == UnlimitedQuota {
		return UnlimitedQuota
	}
	remaining := q.Limit - q.Used
	if remaining < 0 {
		return 0
	}
	return remaining
}

// QuotaResult is the outcome of an atomic check-and-consume.
type QuotaResult struct {
	Allowed     bool
	Dimension   Dimension
	Used        int64
	Limit       int64
	Remaining   int64
	PercentUsed float64
	PeriodStart time.Time
	PeriodEnd   time.Time

	// SuggestedTier is set when usage reached the upgrade-suggestion
	// threshold and a higher tier exists.
	SuggestedTier *Tier
}

// UpgradeSuggestionThreshold is the usage percentage at which callers are
// nudged toward the next tier.
const UpgradeSuggestionThreshold = 90.0

// LedgerStore is the backing primitive for quota ledgers. CheckAndConsume
// must be an indivisible read-check-increment per (tenant, dimension): the
// decision and the increment are never visible to other callers as
// separate steps, and a rejected call leaves Used untouched. The first
// call at or after PeriodEnd resets the row exactly once.
type LedgerStore interface {
	// CheckAndConsume debits amount against the dimension's allowance for
	// the period [periodStart, periodEnd). limit -1 always allows but
	// still counts.
	CheckAndConsume(ctx context.Context, tenantID uuid.UUID, dim Dimension, amount, limit int64, periodStart, periodEnd time.Time) (QuotaResult, error)

	// Usage returns the current ledger row without consuming. A row is
	// created lazily with Used=0 when none exists for the period.
	Usage(ctx context.Context, tenantID uuid.UUID, dim Dimension, limit int64, periodStart, periodEnd time.Time) (QuotaDimension, error)
}

// MonthlyPeriod returns the calendar-month billing period containing now
func MonthlyPeriod(now time.Time) (time.Time, time.Time) {
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return start, start.AddDate(0, 1, 0)
}
