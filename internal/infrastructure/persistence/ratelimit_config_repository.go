package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/erp/governance/internal/domain/governance"
	"github.com/erp/governance/internal/domain/shared"
)

// RateLimitConfigModel is the GORM model for rate limit configurations
type RateLimitConfigModel struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	Scope      string    `gorm:"type:varchar(20);not null;index"`
	TargetID   string    `gorm:"column:target_id;type:varchar(255);not null;default:''"`
	PerSecond  int64     `gorm:"column:per_second;not null;default:0"`
	PerMinute  int64     `gorm:"column:per_minute;not null;default:0"`
	PerHour    int64     `gorm:"column:per_hour;not null;default:0"`
	PerDay     int64     `gorm:"column:per_day;not null;default:0"`
	BurstLimit int64     `gorm:"column:burst_limit;not null;default:0"`
	Priority   int       `gorm:"not null;default:0"`
	Active     bool      `gorm:"not null;default:true;index"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// TableName returns the table name for the model
func (RateLimitConfigModel) TableName() string {
	return "rate_limit_configs"
}

// ToEntity converts the model to a domain entity
func (m *RateLimitConfigModel) ToEntity() *governance.RateLimitConfig {
	return &governance.RateLimitConfig{
		BaseEntity: shared.BaseEntity{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		Scope:    governance.ConfigScope(m.Scope),
		TargetID: m.TargetID,
		Limits: governance.LimitSet{
			PerSecond: m.PerSecond,
			PerMinute: m.PerMinute,
			PerHour:   m.PerHour,
			PerDay:    m.PerDay,
		},
		BurstLimit: m.BurstLimit,
		Priority:   m.Priority,
		Active:     m.Active,
	}
}

// RateLimitConfigModelFromEntity creates a model from a domain entity
func RateLimitConfigModelFromEntity(e *governance.RateLimitConfig) *RateLimitConfigModel {
	return &RateLimitConfigModel{
		ID:         e.ID,
		Scope:      string(e.Scope),
		TargetID:   e.TargetID,
		PerSecond:  e.Limits.PerSecond,
		PerMinute:  e.Limits.PerMinute,
		PerHour:    e.Limits.PerHour,
		PerDay:     e.Limits.PerDay,
		BurstLimit: e.BurstLimit,
		Priority:   e.Priority,
		Active:     e.Active,
		CreatedAt:  e.CreatedAt,
		UpdatedAt:  e.UpdatedAt,
	}
}

// RateLimitConfigRepository implements governance.ConfigRepository on GORM
type RateLimitConfigRepository struct {
	db *gorm.DB
}

// NewRateLimitConfigRepository creates a new rate limit config repository
func NewRateLimitConfigRepository(db *gorm.DB) *RateLimitConfigRepository {
	return &RateLimitConfigRepository{db: db}
}

var _ governance.ConfigRepository = (*RateLimitConfigRepository)(nil)

// Save persists a new configuration
func (r *RateLimitConfigRepository) Save(ctx context.Context, cfg *governance.RateLimitConfig) error {
	model := RateLimitConfigModelFromEntity(cfg)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// Update persists changes to an existing configuration
func (r *RateLimitConfigRepository) Update(ctx context.Context, cfg *governance.RateLimitConfig) error {
	model := RateLimitConfigModelFromEntity(cfg)
	result := r.db.WithContext(ctx).
		Model(&RateLimitConfigModel{}).
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

// Delete removes a configuration
func (r *RateLimitConfigRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&RateLimitConfigModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// FindByID retrieves a configuration by its ID
func (r *RateLimitConfigRepository) FindByID(ctx context.Context, id uuid.UUID) (*governance.RateLimitConfig, error) {
	var model RateLimitConfigModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToEntity(), nil
}

// List retrieves all configurations, active or not
func (r *RateLimitConfigRepository) List(ctx context.Context) ([]*governance.RateLimitConfig, error) {
	var models []RateLimitConfigModel
	err := r.db.WithContext(ctx).
		Order("created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return configsFromModels(models), nil
}

// ListActive retrieves only active configurations
func (r *RateLimitConfigRepository) ListActive(ctx context.Context) ([]*governance.RateLimitConfig, error) {
	var models []RateLimitConfigModel
	err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return configsFromModels(models), nil
}

func configsFromModels(models []RateLimitConfigModel) []*governance.RateLimitConfig {
	configs := make([]*governance.RateLimitConfig, len(models))
	for i := range models {
		configs[i] = models[i].ToEntity()
	}
	return configs
}
