package scheduler

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appgov "github.com/erp/governance/internal/application/governance"
	"github.com/erp/governance/internal/domain/governance"
	"github.com/erp/governance/internal/domain/shared"
)

// SweepTask reaps expired rate-limit counter windows so idle keys do not
// accumulate state.
type SweepTask struct {
	store  governance.CounterStore
	clock  shared.Clock
	logger *zap.Logger
}

func NewSweepTask(store governance.CounterStore, clock shared.Clock, logger *zap.Logger) *SweepTask {
	return &SweepTask{store: store, clock: clock, logger: logger}
}

func (t *SweepTask) Name() string { return "counter-sweep" }

func (t *SweepTask) Run(ctx context.Context) error {
	removed := t.store.Sweep(ctx, t.clock.Now())
	if removed > 0 {
		t.logger.Debug("Swept expired counter windows", zap.Int("removed", removed))
	}
	return nil
}

// MetricsPurger drops metric samples past their tenant's retention.
type MetricsPurger interface {
	PurgeExpired(ctx context.Context) int
}

// RetentionTask enforces per-tenant metric retention.
type RetentionTask struct {
	purger MetricsPurger
	logger *zap.Logger
}

func NewRetentionTask(purger MetricsPurger, logger *zap.Logger) *RetentionTask {
	return &RetentionTask{purger: purger, logger: logger}
}

func (t *RetentionTask) Name() string { return "metrics-retention" }

func (t *RetentionTask) Run(ctx context.Context) error {
	purged := t.purger.PurgeExpired(ctx)
	if purged > 0 {
		t.logger.Info("Purged expired metric samples", zap.Int("purged", purged))
	}
	return nil
}

// AdmissionStatsSource exposes the per-key admission tallies accumulated
// since the last sweep.
type AdmissionStatsSource interface {
	Stats() map[string]appgov.KeyStats
	ResetStats()
}

// AnomalyEvaluator turns suspicious admission tallies into alerts.
type AnomalyEvaluator interface {
	EvaluateAdmissionStats(ctx context.Context, tenantID uuid.UUID, key string, stats appgov.KeyStats)
}

// AnomalyTask feeds the admission tallies to the alert evaluator and
// resets them, giving each sweep a fresh observation window.
type AnomalyTask struct {
	source    AdmissionStatsSource
	evaluator AnomalyEvaluator
	logger    *zap.Logger
}

func NewAnomalyTask(source AdmissionStatsSource, evaluator AnomalyEvaluator, logger *zap.Logger) *AnomalyTask {
	return &AnomalyTask{source: source, evaluator: evaluator, logger: logger}
}

func (t *AnomalyTask) Name() string { return "admission-anomaly" }

func (t *AnomalyTask) Run(ctx context.Context) error {
	stats := t.source.Stats()
	for key, st := range stats {
		tenantID, ok := tenantFromKey(key)
		if !ok {
			t.logger.Warn("Skipping admission key without tenant prefix", zap.String("key", key))
			continue
		}
		t.evaluator.EvaluateAdmissionStats(ctx, tenantID, key, st)
	}
	t.source.ResetStats()
	return nil
}

// tenantFromKey extracts the tenant segment of an admission key. Keys are
// pipe-joined with the tenant ID first.
func tenantFromKey(key string) (uuid.UUID, bool) {
	segment, _, _ := strings.Cut(key, "|")
	id, err := uuid.Parse(segment)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
