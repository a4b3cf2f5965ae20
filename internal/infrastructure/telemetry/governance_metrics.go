package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// GovernanceMetrics provides usage-governance metrics: admission decisions,
// quota consumption and alert activity.
type GovernanceMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	admissionTotal    *Counter
	admissionDuration *Histogram
	quotaTotal        *Counter
	upgradeSuggested  *Counter
	alertTriggered    *Counter
	openAlerts        *Gauge

	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once

	alertProvider OpenAlertProvider
}

// OpenAlertProvider reports the number of currently open alerts per
// severity label. Used for periodic gauge collection.
type OpenAlertProvider interface {
	CountOpenAlerts(ctx context.Context) (map[string]int64, error)
}

// GovernanceMetricsConfig holds configuration for governance metrics.
type GovernanceMetricsConfig struct {
	Meter           metric.Meter
	Logger          *zap.Logger
	CollectInterval time.Duration // Default: 1 minute
	AlertProvider   OpenAlertProvider
}

// NewGovernanceMetrics creates a new GovernanceMetrics instance.
func NewGovernanceMetrics(cfg GovernanceMetricsConfig) (*GovernanceMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	gm := &GovernanceMetrics{
		meter:         cfg.Meter,
		logger:        logger,
		stopChan:      make(chan struct{}),
		alertProvider: cfg.AlertProvider,
	}

	var err error

	gm.admissionTotal, err = NewCounter(
		cfg.Meter,
		"governance_admission_total",
		"Total number of rate-limit admission decisions",
		"{requests}",
	)
	if err != nil {
		return nil, err
	}

	gm.admissionDuration, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "governance_admission_duration_seconds",
		Description: "Admission decision latency distribution in seconds",
		Unit:        "s",
		Boundaries:  SmallDurationBuckets,
	})
	if err != nil {
		return nil, err
	}

	gm.quotaTotal, err = NewCounter(
		cfg.Meter,
		"governance_quota_decisions_total",
		"Total number of quota consumption decisions",
		"{decisions}",
	)
	if err != nil {
		return nil, err
	}

	gm.upgradeSuggested, err = NewCounter(
		cfg.Meter,
		"governance_upgrade_suggested_total",
		"Number of quota decisions that carried an upgrade suggestion",
		"{suggestions}",
	)
	if err != nil {
		return nil, err
	}

	gm.alertTriggered, err = NewCounter(
		cfg.Meter,
		"governance_alert_triggered_total",
		"Total number of alerts triggered",
		"{alerts}",
	)
	if err != nil {
		return nil, err
	}

	gm.openAlerts, err = NewGauge(
		cfg.Meter,
		"governance_open_alerts",
		"Number of currently open alerts by severity",
		"{alerts}",
	)
	if err != nil {
		return nil, err
	}

	return gm, nil
}

// RecordAdmission records a rate-limit admission decision and its latency.
func (gm *GovernanceMetrics) RecordAdmission(ctx context.Context, tenantID string, allowed bool, elapsed time.Duration) {
	decision := "allowed"
	if !allowed {
		decision = "rejected"
	}
	gm.admissionTotal.Inc(ctx,
		AttrTenantID.String(tenantID),
		AttrDecision.String(decision),
	)
	gm.admissionDuration.RecordDuration(ctx, elapsed,
		AttrDecision.String(decision),
	)
}

// RecordQuotaDecision records a quota consumption decision.
func (gm *GovernanceMetrics) RecordQuotaDecision(ctx context.Context, tenantID, dimension string, allowed bool) {
	decision := "allowed"
	if !allowed {
		decision = "rejected"
	}
	gm.quotaTotal.Inc(ctx,
		AttrTenantID.String(tenantID),
		AttrDimension.String(dimension),
		AttrDecision.String(decision),
	)
}

// RecordUpgradeSuggested records a quota decision that suggested a tier upgrade.
func (gm *GovernanceMetrics) RecordUpgradeSuggested(ctx context.Context, tenantID, dimension string) {
	gm.upgradeSuggested.Inc(ctx,
		AttrTenantID.String(tenantID),
		AttrDimension.String(dimension),
	)
}

// RecordAlertTriggered records a newly triggered alert.
func (gm *GovernanceMetrics) RecordAlertTriggered(ctx context.Context, alertType, severity string) {
	gm.alertTriggered.Inc(ctx,
		AttrAlertType.String(alertType),
		AttrAlertSeverity.String(severity),
	)
}

// StartPeriodicCollection starts periodic collection of the open-alert
// gauge. Non-blocking; use Stop to halt collection.
func (gm *GovernanceMetrics) StartPeriodicCollection(ctx context.Context, interval time.Duration) {
	gm.collectOnce.Do(func() {
		if interval <= 0 {
			interval = time.Minute
		}
		go gm.runPeriodicCollection(ctx, interval)
	})
}

func (gm *GovernanceMetrics) runPeriodicCollection(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	gm.collectOpenAlerts(ctx)

	for {
		select {
		case <-gm.stopChan:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			gm.collectOpenAlerts(ctx)
		}
	}
}

func (gm *GovernanceMetrics) collectOpenAlerts(ctx context.Context) {
	if gm.alertProvider == nil {
		return
	}

	counts, err := gm.alertProvider.CountOpenAlerts(ctx)
	if err != nil {
		gm.logger.Warn("Failed to count open alerts for metrics", zap.Error(err))
		return
	}
	for severity, count := range counts {
		gm.openAlerts.Record(ctx, count, AttrAlertSeverity.String(severity))
	}
}

// Stop stops the periodic collection.
func (gm *GovernanceMetrics) Stop() {
	gm.stopOnce.Do(func() {
		close(gm.stopChan)
	})
}

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewGovernanceMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
