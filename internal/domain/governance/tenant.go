package governance

import (
	"context"

	"github.com/google/uuid"
)

// TenantSettings is the read-only slice of tenant configuration the
// governance core needs. It is supplied by the surrounding identity
// module; the core never persists it.
type TenantSettings struct {
	Tier              Tier
	Industry          string
	DataRetentionDays int
	AllowBenchmarking bool
	AnalyticsEnabled  bool
}

// DefaultRetentionDays applies when a tenant has no explicit retention
// setting.
const DefaultRetentionDays = 90

// TenantDirectory resolves tenant settings for governance decisions.
type TenantDirectory interface {
	// Settings returns the settings for a tenant, or shared.ErrNotFound
	Settings(ctx context.Context, tenantID uuid.UUID) (TenantSettings, error)

	// TenantIDs lists all known tenants, used by cross-tenant reporting
	// and the retention reaper
	TenantIDs(ctx context.Context) ([]uuid.UUID, error)
}
