package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/erp/governance/internal/domain/governance"
	"github.com/erp/governance/internal/domain/shared"
)

// AlertModelSQLite is a SQLite-compatible version of AlertModel for testing
type AlertModelSQLite struct {
	ID             string `gorm:"primaryKey"`
	TenantID       string `gorm:"not null;index"`
	Type           string `gorm:"not null"`
	Severity       int    `gorm:"not null"`
	Message        string `gorm:"not null"`
	DedupeKey      string `gorm:"column:dedupe_key;not null"`
	TriggeredAt    time.Time
	AcknowledgedAt *time.Time
	ResolvedAt     *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (AlertModelSQLite) TableName() string {
	return "alerts"
}

func setupAlertTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&AlertModelSQLite{}))
	require.NoError(t, db.Exec(
		"CREATE UNIQUE INDEX idx_alerts_open_dedupe_key ON alerts(dedupe_key) WHERE resolved_at IS NULL",
	).Error)
	return db
}

func newQuotaAlert(tenantID uuid.UUID, severity governance.Severity, triggeredAt time.Time) *governance.Alert {
	return governance.NewAlert(
		tenantID,
		governance.AlertQuotaWarning,
		severity,
		"Quota usage at 92%",
		tenantID.String()+"|QUOTA_WARNING|API_CALLS|2026-03",
		triggeredAt,
	)
}

func TestAlertRepository_CreateIfAbsent(t *testing.T) {
	db := setupAlertTestDB(t)
	repo := NewAlertRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	t.Run("creates first alert", func(t *testing.T) {
		created, err := repo.CreateIfAbsent(ctx, newQuotaAlert(tenantID, governance.SeverityWarning, now))
		require.NoError(t, err)
		assert.True(t, created)
	})

	t.Run("suppresses duplicate while open", func(t *testing.T) {
		created, err := repo.CreateIfAbsent(ctx, newQuotaAlert(tenantID, governance.SeverityWarning, now.Add(time.Minute)))
		require.NoError(t, err)
		assert.False(t, created)
	})

	t.Run("allows re-trigger after resolution", func(t *testing.T) {
		alerts, err := repo.List(ctx, governance.AlertFilter{TenantID: &tenantID, UnresolvedOnly: true})
		require.NoError(t, err)
		require.Len(t, alerts, 1)

		require.NoError(t, alerts[0].Resolve(now.Add(time.Hour)))
		require.NoError(t, repo.Update(ctx, alerts[0]))

		created, err := repo.CreateIfAbsent(ctx, newQuotaAlert(tenantID, governance.SeverityWarning, now.Add(2*time.Hour)))
		require.NoError(t, err)
		assert.True(t, created)
	})
}

func TestAlertRepository_List(t *testing.T) {
	db := setupAlertTestDB(t)
	repo := NewAlertRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()
	otherTenant := uuid.New()
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	warning := governance.NewAlert(tenantID, governance.AlertQuotaWarning, governance.SeverityWarning,
		"warning", "w1", now)
	oldCritical := governance.NewAlert(tenantID, governance.AlertQuotaExceeded, governance.SeverityCritical,
		"old critical", "c1", now.Add(-time.Hour))
	newCritical := governance.NewAlert(tenantID, governance.AlertQuotaExceeded, governance.SeverityCritical,
		"new critical", "c2", now)
	foreign := governance.NewAlert(otherTenant, governance.AlertQuotaWarning, governance.SeverityWarning,
		"foreign", "f1", now)

	for _, a := range []*governance.Alert{warning, oldCritical, newCritical, foreign} {
		created, err := repo.CreateIfAbsent(ctx, a)
		require.NoError(t, err)
		require.True(t, created)
	}

	t.Run("orders by severity then recency", func(t *testing.T) {
		alerts, err := repo.List(ctx, governance.AlertFilter{TenantID: &tenantID})
		require.NoError(t, err)
		require.Len(t, alerts, 3)
		assert.Equal(t, "new critical", alerts[0].Message)
		assert.Equal(t, "old critical", alerts[1].Message)
		assert.Equal(t, "warning", alerts[2].Message)
	})

	t.Run("unresolved only filter", func(t *testing.T) {
		require.NoError(t, warning.Resolve(now.Add(time.Minute)))
		require.NoError(t, repo.Update(ctx, warning))

		alerts, err := repo.List(ctx, governance.AlertFilter{TenantID: &tenantID, UnresolvedOnly: true})
		require.NoError(t, err)
		assert.Len(t, alerts, 2)
	})
}

func TestAlertRepository_Update(t *testing.T) {
	db := setupAlertTestDB(t)
	repo := NewAlertRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	alert := newQuotaAlert(tenantID, governance.SeverityWarning, now)
	created, err := repo.CreateIfAbsent(ctx, alert)
	require.NoError(t, err)
	require.True(t, created)

	require.NoError(t, alert.Acknowledge(now.Add(time.Minute)))
	require.NoError(t, repo.Update(ctx, alert))

	found, err := repo.FindByID(ctx, alert.ID)
	require.NoError(t, err)
	assert.Equal(t, governance.AlertStatusAcknowledged, found.Status())

	missing := newQuotaAlert(uuid.New(), governance.SeverityInfo, now)
	assert.ErrorIs(t, repo.Update(ctx, missing), shared.ErrNotFound)
}

func TestAlertRepository_CountOpenAlerts(t *testing.T) {
	db := setupAlertTestDB(t)
	repo := NewAlertRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	critical := governance.NewAlert(tenantID, governance.AlertQuotaExceeded, governance.SeverityCritical,
		"critical", "c1", now)
	warning := governance.NewAlert(tenantID, governance.AlertQuotaWarning, governance.SeverityWarning,
		"warning", "w1", now)
	resolved := governance.NewAlert(tenantID, governance.AlertQuotaWarning, governance.SeverityWarning,
		"resolved", "w2", now)

	for _, a := range []*governance.Alert{critical, warning, resolved} {
		created, err := repo.CreateIfAbsent(ctx, a)
		require.NoError(t, err)
		require.True(t, created)
	}
	require.NoError(t, resolved.Resolve(now.Add(time.Minute)))
	require.NoError(t, repo.Update(ctx, resolved))

	counts, err := repo.CountOpenAlerts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts["CRITICAL"])
	assert.Equal(t, int64(1), counts["WARNING"])
	assert.NotContains(t, counts, "INFO")
}
