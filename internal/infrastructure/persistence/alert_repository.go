package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/erp/governance/internal/domain/governance"
	"github.com/erp/governance/internal/domain/shared"
)

// AlertModel is the GORM model for alerts. A partial unique index on
// dedupe_key where resolved_at IS NULL makes CreateIfAbsent atomic: the
// database enforces at most one open alert per condition.
type AlertModel struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID       uuid.UUID `gorm:"type:uuid;not null;index"`
	Type           string    `gorm:"type:varchar(30);not null"`
	Severity       int       `gorm:"not null"`
	Message        string    `gorm:"type:text;not null"`
	DedupeKey      string    `gorm:"column:dedupe_key;type:varchar(255);not null"`
	TriggeredAt    time.Time `gorm:"not null"`
	AcknowledgedAt *time.Time
	ResolvedAt     *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TableName returns the table name for the model
func (AlertModel) TableName() string {
	return "alerts"
}

// ToEntity converts the model to a domain entity
func (m *AlertModel) ToEntity() *governance.Alert {
	return &governance.Alert{
		BaseEntity: shared.BaseEntity{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		TenantID:       m.TenantID,
		Type:           governance.AlertType(m.Type),
		Severity:       governance.Severity(m.Severity),
		Message:        m.Message,
		TriggeredAt:    m.TriggeredAt,
		AcknowledgedAt: m.AcknowledgedAt,
		ResolvedAt:     m.ResolvedAt,
		DedupeKey:      m.DedupeKey,
	}
}

// AlertModelFromEntity creates a model from a domain entity
func AlertModelFromEntity(e *governance.Alert) *AlertModel {
	return &AlertModel{
		ID:             e.ID,
		TenantID:       e.TenantID,
		Type:           string(e.Type),
		Severity:       int(e.Severity),
		Message:        e.Message,
		DedupeKey:      e.DedupeKey,
		TriggeredAt:    e.TriggeredAt,
		AcknowledgedAt: e.AcknowledgedAt,
		ResolvedAt:     e.ResolvedAt,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      e.UpdatedAt,
	}
}

// AlertRepository implements governance.AlertRepository on GORM
type AlertRepository struct {
	db *gorm.DB
}

// NewAlertRepository creates a new alert repository
func NewAlertRepository(db *gorm.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

var _ governance.AlertRepository = (*AlertRepository)(nil)

// CreateIfAbsent stores the alert unless an unresolved alert with the same
// dedupe key already exists. The conflict target matches the partial
// unique index, so the check and the insert are a single statement.
func (r *AlertRepository) CreateIfAbsent(ctx context.Context, alert *governance.Alert) (bool, error) {
	model := AlertModelFromEntity(alert)
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:     []clause.Column{{Name: "dedupe_key"}},
		TargetWhere: clause.Where{Exprs: []clause.Expression{clause.Expr{SQL: "resolved_at IS NULL"}}},
		DoNothing:   true,
	}).Create(model)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// FindByID retrieves an alert by its ID
func (r *AlertRepository) FindByID(ctx context.Context, id uuid.UUID) (*governance.Alert, error) {
	var model AlertModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToEntity(), nil
}

// List retrieves alerts matching the filter, CRITICAL first, then most
// recently triggered
func (r *AlertRepository) List(ctx context.Context, filter governance.AlertFilter) ([]*governance.Alert, error) {
	query := r.db.WithContext(ctx).Model(&AlertModel{})

	if filter.TenantID != nil {
		query = query.Where("tenant_id = ?", *filter.TenantID)
	}
	if filter.UnresolvedOnly {
		query = query.Where("resolved_at IS NULL")
	}

	var models []AlertModel
	err := query.
		Order("severity ASC").
		Order("triggered_at DESC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	alerts := make([]*governance.Alert, len(models))
	for i := range models {
		alerts[i] = models[i].ToEntity()
	}
	return alerts, nil
}

// Update persists lifecycle changes
func (r *AlertRepository) Update(ctx context.Context, alert *governance.Alert) error {
	model := AlertModelFromEntity(alert)
	result := r.db.WithContext(ctx).
		Model(&AlertModel{}).
		Where("id = ?", model.ID).
		Select("*").
		Omit("id", "created_at").
		Updates(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// CountOpenAlerts returns the number of unresolved alerts per severity
// label. Feeds the open-alert gauge.
func (r *AlertRepository) CountOpenAlerts(ctx context.Context) (map[string]int64, error) {
	type row struct {
		Severity int
		Count    int64
	}

	var rows []row
	err := r.db.WithContext(ctx).
		Model(&AlertModel{}).
		Select("severity, COUNT(*) AS count").
		Where("resolved_at IS NULL").
		Group("severity").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[governance.Severity(r.Severity).String()] = r.Count
	}
	return counts, nil
}
