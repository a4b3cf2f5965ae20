package governance

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/erp/governance/internal/domain/governance"
	"github.com/erp/governance/internal/domain/shared"
	"github.com/erp/governance/internal/infrastructure/store"
)

func newConfigService() *ConfigService {
	return NewConfigService(store.NewMemoryConfigRepository(), zap.NewNop())
}

func TestConfigServiceCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a valid config", func(t *testing.T) {
		s := newConfigService()
		cfg, err := s.Create(ctx, CreateConfigInput{
			Scope:      governance.ScopeTenant,
			TargetID:   "t1",
			Limits:     governance.LimitSet{PerMinute: 100},
			BurstLimit: 10,
			Priority:   5,
		})
		require.NoError(t, err)
		assert.True(t, cfg.Active)
		assert.Equal(t, int64(10), cfg.BurstLimit)
		assert.Equal(t, 5, cfg.Priority)

		got, err := s.Get(ctx, cfg.ID)
		require.NoError(t, err)
		assert.Equal(t, cfg.ID, got.ID)
	})

	t.Run("rejects invalid configs at write time", func(t *testing.T) {
		s := newConfigService()

		_, err := s.Create(ctx, CreateConfigInput{Scope: governance.ScopeTenant, TargetID: "t1"})
		assert.Error(t, err, "at least one window limit required")

		_, err = s.Create(ctx, CreateConfigInput{Scope: governance.ScopeTenant, Limits: governance.LimitSet{PerMinute: 10}})
		assert.Error(t, err, "tenant scope needs a target")

		_, err = s.Create(ctx, CreateConfigInput{Scope: governance.ScopeGlobal, TargetID: "t1", Limits: governance.LimitSet{PerMinute: 10}})
		assert.Error(t, err, "global scope cannot have a target")

		_, err = s.Create(ctx, CreateConfigInput{Scope: governance.ScopeGlobal, Limits: governance.LimitSet{PerMinute: -1}})
		assert.Error(t, err, "negative limits rejected")
	})
}

func TestConfigServiceUpdate(t *testing.T) {
	ctx := context.Background()
	s := newConfigService()

	cfg, err := s.Create(ctx, CreateConfigInput{
		Scope:    governance.ScopeTenant,
		TargetID: "t1",
		Limits:   governance.LimitSet{PerMinute: 100},
	})
	require.NoError(t, err)

	t.Run("partial update leaves other fields alone", func(t *testing.T) {
		burst := int64(25)
		updated, err := s.Update(ctx, cfg.ID, UpdateConfigInput{BurstLimit: &burst})
		require.NoError(t, err)
		assert.Equal(t, int64(25), updated.BurstLimit)
		assert.Equal(t, int64(100), updated.Limits.PerMinute)
	})

	t.Run("deactivation", func(t *testing.T) {
		inactive := false
		updated, err := s.Update(ctx, cfg.ID, UpdateConfigInput{Active: &inactive})
		require.NoError(t, err)
		assert.False(t, updated.Active)
	})

	t.Run("updates are revalidated", func(t *testing.T) {
		empty := governance.LimitSet{}
		_, err := s.Update(ctx, cfg.ID, UpdateConfigInput{Limits: &empty})
		assert.Error(t, err)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := s.Update(ctx, uuid.New(), UpdateConfigInput{})
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestConfigServiceDelete(t *testing.T) {
	ctx := context.Background()
	s := newConfigService()

	cfg, err := s.Create(ctx, CreateConfigInput{
		Scope:  governance.ScopeGlobal,
		Limits: governance.LimitSet{PerMinute: 100},
	})
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, cfg.ID))
	_, err = s.Get(ctx, cfg.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	assert.ErrorIs(t, s.Delete(ctx, cfg.ID), shared.ErrNotFound)

	list, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}
