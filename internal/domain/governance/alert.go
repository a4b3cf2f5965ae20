package governance

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/erp/governance/internal/domain/shared"
	"github.com/google/uuid"
)

// Severity is the alert severity as a single ordered enumeration.
// The numeric order (CRITICAL < WARNING < INFO) is the one total order
// used by both listing sort and trigger precedence; call sites must not
// re-derive it.
type Severity int

const (
	SeverityCritical Severity = iota
	SeverityWarning
	SeverityInfo
)

// String returns the string representation of Severity
func (s Severity) String() string {
	switch s {
	case SeverityCritical:
		return "CRITICAL"
	case SeverityWarning:
		return "WARNING"
	case SeverityInfo:
		return "INFO"
	}
	return fmt.Sprintf("SEVERITY(%d)", int(s))
}

// ParseSeverity converts a string to a Severity
func ParseSeverity(s string) (Severity, error) {
	switch s {
	case "CRITICAL":
		return SeverityCritical, nil
	case "WARNING":
		return SeverityWarning, nil
	case "INFO":
		return SeverityInfo, nil
	}
	return SeverityInfo, shared.NewDomainError("INVALID_INPUT", "Unknown severity: "+s)
}

// AlertType classifies what triggered an alert.
type AlertType string

const (
	AlertQuotaWarning     AlertType = "QUOTA_WARNING"
	AlertQuotaExceeded    AlertType = "QUOTA_EXCEEDED"
	AlertRateLimitAnomaly AlertType = "RATE_LIMIT_ANOMALY"
	AlertPerformance      AlertType = "PERFORMANCE"
)

// AlertStatus is the lifecycle state of an alert.
type AlertStatus string

const (
	AlertStatusTriggered    AlertStatus = "TRIGGERED"
	AlertStatusAcknowledged AlertStatus = "ACKNOWLEDGED"
	AlertStatusResolved     AlertStatus = "RESOLVED"
)

// Alert records a threshold crossing. Alerts form an audit trail: they are
// never deleted, only resolved. Lifecycle:
// TRIGGERED -> (ACKNOWLEDGED)? -> RESOLVED, with no transitions out of
// RESOLVED.
type Alert struct {
	shared.BaseEntity
	TenantID       uuid.UUID
	Type           AlertType
	Severity       Severity
	Message        string
	TriggeredAt    time.Time
	AcknowledgedAt *time.Time
	ResolvedAt     *time.Time

	// DedupeKey identifies the triggering condition, e.g.
	// "tenant|QUOTA_WARNING|invoices|2026-03". At most one unresolved
	// alert exists per dedupe key.
	DedupeKey string
}

// NewAlert creates a freshly triggered alert
func NewAlert(tenantID uuid.UUID, alertType AlertType, severity Severity, message, dedupeKey string, triggeredAt time.Time) *Alert {
	return &Alert{
		BaseEntity:  shared.NewBaseEntity(),
		TenantID:    tenantID,
		Type:        alertType,
		Severity:    severity,
		Message:     message,
		TriggeredAt: triggeredAt,
		DedupeKey:   dedupeKey,
	}
}

// Status derives the lifecycle state from the timestamps
func (a *Alert) Status() AlertStatus {
	switch {
	case a.ResolvedAt != nil:
		return AlertStatusResolved
	case a.AcknowledgedAt != nil:
		return AlertStatusAcknowledged
	default:
		return AlertStatusTriggered
	}
}

// Acknowledge marks the alert as seen by an operator. Resolved alerts
// cannot be acknowledged; acknowledging twice is rejected.
func (a *Alert) Acknowledge(now time.Time) error {
	if a.ResolvedAt != nil {
		return shared.NewDomainError("INVALID_STATE", "Cannot acknowledge a resolved alert")
	}
	if a.AcknowledgedAt != nil {
		return shared.NewDomainError("INVALID_STATE", "Alert is already acknowledged")
	}
	a.AcknowledgedAt = &now
	a.UpdatedAt = now
	return nil
}

// Resolve closes the alert. Acknowledgement is optional; an alert may go
// straight from TRIGGERED to RESOLVED.
func (a *Alert) Resolve(now time.Time) error {
	if a.ResolvedAt != nil {
		return shared.NewDomainError("INVALID_STATE", "Alert is already resolved")
	}
	a.ResolvedAt = &now
	a.UpdatedAt = now
	return nil
}

// AlertFilter narrows alert listing.
type AlertFilter struct {
	TenantID       *uuid.UUID
	UnresolvedOnly bool
}

// SortAlerts orders alerts by severity (CRITICAL first) then TriggeredAt
// descending, in place.
func SortAlerts(alerts []*Alert) {
	sort.SliceStable(alerts, func(i, j int) bool {
		if alerts[i].Severity != alerts[j].Severity {
			return alerts[i].Severity < alerts[j].Severity
		}
		return alerts[i].TriggeredAt.After(alerts[j].TriggeredAt)
	})
}

// AlertRepository persists alerts. CreateIfAbsent must make the
// open-alert existence check atomic with creation so concurrent triggers
// for the same condition never emit duplicates.
type AlertRepository interface {
	// CreateIfAbsent stores the alert unless an unresolved alert with the
	// same dedupe key already exists. Returns true when the alert was
	// stored.
	CreateIfAbsent(ctx context.Context, alert *Alert) (bool, error)

	// FindByID returns the alert or shared.ErrNotFound
	FindByID(ctx context.Context, id uuid.UUID) (*Alert, error)

	// List returns alerts matching the filter in severity-then-recency
	// order
	List(ctx context.Context, filter AlertFilter) ([]*Alert, error)

	// Update persists lifecycle changes
	Update(ctx context.Context, alert *Alert) error
}
