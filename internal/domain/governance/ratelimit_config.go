package governance

import (
	"sort"
	"time"

	"github.com/erp/governance/internal/domain/shared"
)

// ConfigScope identifies the layer a rate limit configuration applies to.
// Scopes are merged from broadest to most specific when resolving the
// effective limits for a request.
type ConfigScope string

const (
	// ScopeGlobal applies to every request regardless of context
	ScopeGlobal ConfigScope = "GLOBAL"

	// ScopeTenant applies to all requests of one tenant
	ScopeTenant ConfigScope = "TENANT"

	// ScopeAPIKey applies to requests authenticated with one API key
	ScopeAPIKey ConfigScope = "API_KEY"

	// ScopeEndpoint applies to requests hitting one endpoint path
	ScopeEndpoint ConfigScope = "ENDPOINT"
)

// String returns the string representation of ConfigScope
func (s ConfigScope) String() string {
	return string(s)
}

// IsValid returns true if the scope is one of the known layers
func (s ConfigScope) IsValid() bool {
	switch s {
	case ScopeGlobal, ScopeTenant, ScopeAPIKey, ScopeEndpoint:
		return true
	}
	return false
}

// ScopePrecedence lists scopes from broadest to most specific. A more
// specific scope overrides only the fields it explicitly sets.
func ScopePrecedence() []ConfigScope {
	return []ConfigScope{ScopeGlobal, ScopeTenant, ScopeAPIKey, ScopeEndpoint}
}

// LimitSet holds request ceilings per window granularity. A zero value
// means the granularity is not limited at this layer.
type LimitSet struct {
	PerSecond int64
	PerMinute int64
	PerHour   int64
	PerDay    int64
}

// Limit returns the ceiling for the given granularity (0 = unset)
func (l LimitSet) Limit(g Granularity) int64 {
	switch g {
	case GranularitySecond:
		return l.PerSecond
	case GranularityMinute:
		return l.PerMinute
	case GranularityHour:
		return l.PerHour
	case GranularityDay:
		return l.PerDay
	}
	return 0
}

// IsEmpty returns true when no granularity is limited
func (l LimitSet) IsEmpty() bool {
	return l.PerSecond == 0 && l.PerMinute == 0 && l.PerHour == 0 && l.PerDay == 0
}

// RateLimitConfig is an administratively managed limit definition for one
// scope layer. The governance core only reads configs at request time;
// create/update/delete happen through the management API.
type RateLimitConfig struct {
	shared.BaseEntity
	Scope      ConfigScope
	TargetID   string // tenant ID, API key ID or endpoint path; empty for GLOBAL
	Limits     LimitSet
	BurstLimit int64
	Priority   int // lower number wins among configs at the same scope
	Active     bool
}

// NewRateLimitConfig creates and validates a new configuration
func NewRateLimitConfig(scope ConfigScope, targetID string, limits LimitSet) (*RateLimitConfig, error) {
	cfg := &RateLimitConfig{
		BaseEntity: shared.NewBaseEntity(),
		Scope:      scope,
		TargetID:   targetID,
		Limits:     limits,
		Active:     true,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects malformed configurations at write time so request-time
// resolution never has to deal with them.
func (c *RateLimitConfig) Validate() error {
	if !c.Scope.IsValid() {
		return shared.NewDomainError("CONFIG_INVALID", "Unknown config scope")
	}
	if c.Scope != ScopeGlobal && c.TargetID == "" {
		return shared.NewDomainError("CONFIG_INVALID", "Target ID is required for non-global scopes")
	}
	if c.Scope == ScopeGlobal && c.TargetID != "" {
		return shared.NewDomainError("CONFIG_INVALID", "Global configs cannot have a target ID")
	}
	if c.Limits.PerSecond < 0 || c.Limits.PerMinute < 0 || c.Limits.PerHour < 0 || c.Limits.PerDay < 0 {
		return shared.NewDomainError("CONFIG_INVALID", "Limits cannot be negative")
	}
	if c.Limits.IsEmpty() {
		return shared.NewDomainError("CONFIG_INVALID", "At least one window limit must be set")
	}
	if c.BurstLimit < 0 {
		return shared.NewDomainError("CONFIG_INVALID", "Burst limit cannot be negative")
	}
	return nil
}

// WithBurst sets the burst headroom
func (c *RateLimitConfig) WithBurst(burst int64) *RateLimitConfig {
	if burst >= 0 {
		c.BurstLimit = burst
	}
	return c
}

// WithPriority sets the precedence within the scope layer
func (c *RateLimitConfig) WithPriority(priority int) *RateLimitConfig {
	c.Priority = priority
	c.UpdatedAt = time.Now()
	return c
}

// Deactivate removes the config from resolution without deleting it
func (c *RateLimitConfig) Deactivate() {
	c.Active = false
	c.UpdatedAt = time.Now()
}

// Matches returns true if the config applies to the given request context
func (c *RateLimitConfig) Matches(tenantID, apiKeyID, endpoint string) bool {
	if !c.Active {
		return false
	}
	switch c.Scope {
	case ScopeGlobal:
		return true
	case ScopeTenant:
		return c.TargetID == tenantID
	case ScopeAPIKey:
		return apiKeyID != "" && c.TargetID == apiKeyID
	case ScopeEndpoint:
		return endpoint != "" && c.TargetID == endpoint
	}
	return false
}

// EffectiveLimits is the merged outcome of config resolution for one
// request. Field-level override: a more specific scope replaces only the
// window limits it explicitly sets.
type EffectiveLimits struct {
	LimitSet
	BurstLimit int64
}

// DefaultEffectiveLimits is the hard-coded fallback used when no config
// matches at any scope: 100 requests per minute, no burst.
func DefaultEffectiveLimits() EffectiveLimits {
	return EffectiveLimits{LimitSet: LimitSet{PerMinute: 100}}
}

// Apply overlays the set fields of cfg onto the effective limits
func (e EffectiveLimits) Apply(cfg *RateLimitConfig) EffectiveLimits {
	if cfg.Limits.PerSecond > 0 {
		e.PerSecond = cfg.Limits.PerSecond
	}
	if cfg.Limits.PerMinute > 0 {
		e.PerMinute = cfg.Limits.PerMinute
	}
	if cfg.Limits.PerHour > 0 {
		e.PerHour = cfg.Limits.PerHour
	}
	if cfg.Limits.PerDay > 0 {
		e.PerDay = cfg.Limits.PerDay
	}
	if cfg.BurstLimit > 0 {
		e.BurstLimit = cfg.BurstLimit
	}
	return e
}

// SelectConfig picks the winning config among candidates at one scope:
// lowest priority number wins, ties broken by most recent creation.
// Returns nil when candidates is empty.
func SelectConfig(candidates []*RateLimitConfig) *RateLimitConfig {
	if len(candidates) == 0 {
		return nil
	}
	sorted := make([]*RateLimitConfig, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Priority != sorted[j].Priority {
			return sorted[i].Priority < sorted[j].Priority
		}
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})
	return sorted[0]
}
