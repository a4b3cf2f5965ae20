package governance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRateLimitConfig(t *testing.T) {
	t.Run("creates valid tenant config", func(t *testing.T) {
		cfg, err := NewRateLimitConfig(ScopeTenant, "tenant-1", LimitSet{PerMinute: 200})

		require.NoError(t, err)
		assert.Equal(t, ScopeTenant, cfg.Scope)
		assert.Equal(t, "tenant-1", cfg.TargetID)
		assert.Equal(t, int64(200), cfg.Limits.PerMinute)
		assert.True(t, cfg.Active)
		assert.Zero(t, cfg.BurstLimit)
	})

	t.Run("creates global config without target", func(t *testing.T) {
		cfg, err := NewRateLimitConfig(ScopeGlobal, "", LimitSet{PerMinute: 100, PerDay: 10000})

		require.NoError(t, err)
		assert.Equal(t, ScopeGlobal, cfg.Scope)
	})

	t.Run("rejects unknown scope", func(t *testing.T) {
		_, err := NewRateLimitConfig(ConfigScope("REGION"), "eu", LimitSet{PerMinute: 10})
		assert.Error(t, err)
	})

	t.Run("rejects non-global scope without target", func(t *testing.T) {
		_, err := NewRateLimitConfig(ScopeAPIKey, "", LimitSet{PerMinute: 10})
		assert.Error(t, err)
	})

	t.Run("rejects global scope with target", func(t *testing.T) {
		_, err := NewRateLimitConfig(ScopeGlobal, "tenant-1", LimitSet{PerMinute: 10})
		assert.Error(t, err)
	})

	t.Run("rejects empty limit set", func(t *testing.T) {
		_, err := NewRateLimitConfig(ScopeTenant, "tenant-1", LimitSet{})
		assert.Error(t, err)
	})

	t.Run("rejects negative limits", func(t *testing.T) {
		_, err := NewRateLimitConfig(ScopeTenant, "tenant-1", LimitSet{PerMinute: -5})
		assert.Error(t, err)
	})
}

func TestRateLimitConfigMatches(t *testing.T) {
	tenantCfg, err := NewRateLimitConfig(ScopeTenant, "tenant-1", LimitSet{PerMinute: 100})
	require.NoError(t, err)
	keyCfg, err := NewRateLimitConfig(ScopeAPIKey, "key-1", LimitSet{PerMinute: 50})
	require.NoError(t, err)
	endpointCfg, err := NewRateLimitConfig(ScopeEndpoint, "/api/v1/invoices", LimitSet{PerSecond: 5})
	require.NoError(t, err)

	t.Run("tenant scope matches tenant", func(t *testing.T) {
		assert.True(t, tenantCfg.Matches("tenant-1", "", ""))
		assert.False(t, tenantCfg.Matches("tenant-2", "", ""))
	})

	t.Run("api key scope requires an api key", func(t *testing.T) {
		assert.True(t, keyCfg.Matches("tenant-1", "key-1", ""))
		assert.False(t, keyCfg.Matches("tenant-1", "", ""))
	})

	t.Run("endpoint scope matches path", func(t *testing.T) {
		assert.True(t, endpointCfg.Matches("tenant-1", "", "/api/v1/invoices"))
		assert.False(t, endpointCfg.Matches("tenant-1", "", "/api/v1/contacts"))
	})

	t.Run("inactive config never matches", func(t *testing.T) {
		tenantCfg.Deactivate()
		assert.False(t, tenantCfg.Matches("tenant-1", "", ""))
	})
}

func TestSelectConfig(t *testing.T) {
	t.Run("returns nil for empty candidates", func(t *testing.T) {
		assert.Nil(t, SelectConfig(nil))
	})

	t.Run("lowest priority number wins", func(t *testing.T) {
		a, _ := NewRateLimitConfig(ScopeTenant, "t", LimitSet{PerMinute: 10})
		a.WithPriority(5)
		b, _ := NewRateLimitConfig(ScopeTenant, "t", LimitSet{PerMinute: 20})
		b.WithPriority(1)

		assert.Same(t, b, SelectConfig([]*RateLimitConfig{a, b}))
	})

	t.Run("ties broken by most recent creation", func(t *testing.T) {
		older, _ := NewRateLimitConfig(ScopeTenant, "t", LimitSet{PerMinute: 10})
		older.CreatedAt = time.Now().Add(-time.Hour)
		newer, _ := NewRateLimitConfig(ScopeTenant, "t", LimitSet{PerMinute: 20})

		assert.Same(t, newer, SelectConfig([]*RateLimitConfig{older, newer}))
	})
}

func TestEffectiveLimitsApply(t *testing.T) {
	t.Run("default is 100 per minute", func(t *testing.T) {
		def := DefaultEffectiveLimits()
		assert.Equal(t, int64(100), def.PerMinute)
		assert.Zero(t, def.PerSecond)
		assert.Zero(t, def.BurstLimit)
	})

	t.Run("overrides only explicitly set fields", func(t *testing.T) {
		base := DefaultEffectiveLimits()
		base.PerDay = 5000

		cfg, _ := NewRateLimitConfig(ScopeAPIKey, "key-1", LimitSet{PerMinute: 30})
		cfg.WithBurst(10)

		merged := base.Apply(cfg)
		assert.Equal(t, int64(30), merged.PerMinute)
		assert.Equal(t, int64(5000), merged.PerDay, "unset field inherits broader scope")
		assert.Equal(t, int64(10), merged.BurstLimit)
	})
}
