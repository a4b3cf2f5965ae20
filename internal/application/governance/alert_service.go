package governance

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/erp/governance/internal/domain/governance"
	"github.com/erp/governance/internal/domain/shared"
)

const (
	// AnomalyRejectionThreshold is the rejected-request ratio above which a
	// key's traffic pattern is flagged.
	AnomalyRejectionThreshold = 0.5

	// PerformanceRejectionThreshold is the ratio above which the key is
	// effectively locked out and the alert escalates to PERFORMANCE.
	PerformanceRejectionThreshold = 0.9
)

// AlertService owns the alert lifecycle: evaluating governance signals into
// alerts, deduplicating repeat triggers, and driving acknowledge/resolve.
type AlertService struct {
	alerts governance.AlertRepository
	clock  shared.Clock
	logger *zap.Logger
}

// NewAlertService creates a new AlertService
func NewAlertService(alerts governance.AlertRepository, clock shared.Clock, logger *zap.Logger) *AlertService {
	return &AlertService{
		alerts: alerts,
		clock:  clock,
		logger: logger,
	}
}

// QuotaConsumed evaluates a quota result into alerts. Crossing the warning
// threshold raises one WARNING per dimension and period; exhaustion raises
// one CRITICAL. The repository's dedupe key keeps repeat crossings from
// multiplying alerts.
func (s *AlertService) QuotaConsumed(ctx context.Context, tenantID uuid.UUID, result governance.QuotaResult) {
	period := result.PeriodStart.UTC().Format("2006-01")

	if !result.Allowed || (result.Limit > 0 && result.PercentUsed >= 100) {
		s.trigger(ctx, governance.NewAlert(
			tenantID,
			governance.AlertQuotaExceeded,
			governance.SeverityCritical,
			fmt.Sprintf("Quota exhausted for %s: %d of %d used", result.Dimension, result.Used, result.Limit),
			fmt.Sprintf("%s|%s|%s|%s", tenantID, governance.AlertQuotaExceeded, result.Dimension, period),
			s.clock.Now(),
		))
		return
	}

	if result.Limit > 0 && result.PercentUsed >= governance.UpgradeSuggestionThreshold {
		s.trigger(ctx, governance.NewAlert(
			tenantID,
			governance.AlertQuotaWarning,
			governance.SeverityWarning,
			fmt.Sprintf("Quota for %s at %.1f%% (%d of %d)", result.Dimension, result.PercentUsed, result.Used, result.Limit),
			fmt.Sprintf("%s|%s|%s|%s", tenantID, governance.AlertQuotaWarning, result.Dimension, period),
			s.clock.Now(),
		))
	}
}

// EvaluateAdmissionStats flags keys whose rejected-request ratio crossed
// the anomaly threshold, escalating to a critical PERFORMANCE alert when
// nearly all traffic is rejected. Called from the background sweep with
// the admission tallies since the last run.
func (s *AlertService) EvaluateAdmissionStats(ctx context.Context, tenantID uuid.UUID, key string, stats KeyStats) {
	ratio := stats.RejectedRatio()
	if stats.Allowed+stats.Rejected == 0 || ratio < AnomalyRejectionThreshold {
		return
	}
	alertType := governance.AlertRateLimitAnomaly
	severity := governance.SeverityWarning
	if ratio >= PerformanceRejectionThreshold {
		alertType = governance.AlertPerformance
		severity = governance.SeverityCritical
	}
	s.trigger(ctx, governance.NewAlert(
		tenantID,
		alertType,
		severity,
		fmt.Sprintf("Rate limit rejections at %.0f%% for %s", ratio*100, key),
		fmt.Sprintf("%s|%s|%s", tenantID, alertType, key),
		s.clock.Now(),
	))
}

// trigger stores the alert unless its condition already has an open alert
func (s *AlertService) trigger(ctx context.Context, alert *governance.Alert) {
	created, err := s.alerts.CreateIfAbsent(ctx, alert)
	if err != nil {
		s.logger.Error("Failed to store alert",
			zap.String("tenant_id", alert.TenantID.String()),
			zap.String("type", string(alert.Type)),
			zap.Error(err))
		return
	}
	if created {
		s.logger.Info("Alert triggered",
			zap.String("tenant_id", alert.TenantID.String()),
			zap.String("type", string(alert.Type)),
			zap.String("severity", alert.Severity.String()),
			zap.String("message", alert.Message))
	}
}

// Acknowledge marks an alert as seen by an operator
func (s *AlertService) Acknowledge(ctx context.Context, id uuid.UUID) (*governance.Alert, error) {
	alert, err := s.alerts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := alert.Acknowledge(s.clock.Now()); err != nil {
		return nil, err
	}
	if err := s.alerts.Update(ctx, alert); err != nil {
		return nil, err
	}
	return alert, nil
}

// Resolve closes an alert, freeing its condition for future triggers
func (s *AlertService) Resolve(ctx context.Context, id uuid.UUID) (*governance.Alert, error) {
	alert, err := s.alerts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := alert.Resolve(s.clock.Now()); err != nil {
		return nil, err
	}
	if err := s.alerts.Update(ctx, alert); err != nil {
		return nil, err
	}
	return alert, nil
}

// List returns alerts matching the filter in severity-then-recency order
func (s *AlertService) List(ctx context.Context, filter governance.AlertFilter) ([]*governance.Alert, error) {
	return s.alerts.List(ctx, filter)
}

// Ensure AlertService can observe the quota ledger
var _ QuotaObserver = (*AlertService)(nil)
