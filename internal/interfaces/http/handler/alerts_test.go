package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appgov "github.com/erp/governance/internal/application/governance"
	"github.com/erp/governance/internal/domain/governance"
	"github.com/erp/governance/internal/domain/shared"
	"github.com/erp/governance/internal/infrastructure/store"
)

func alertTestSetup(t *testing.T) (*AlertHandler, *store.MemoryAlertRepository, uuid.UUID) {
	t.Helper()
	repo := store.NewMemoryAlertRepository()
	clock := shared.NewManualClock(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))
	service := appgov.NewAlertService(repo, clock, zap.NewNop())
	return NewAlertHandler(service, zap.NewNop()), repo, uuid.New()
}

func seedAlert(t *testing.T, repo *store.MemoryAlertRepository, tenantID uuid.UUID, severity governance.Severity, dedupeKey string) *governance.Alert {
	t.Helper()
	alert := governance.NewAlert(tenantID, governance.AlertQuotaWarning, severity,
		"Quota usage above threshold", dedupeKey, time.Date(2026, 3, 10, 11, 0, 0, 0, time.UTC))
	created, err := repo.CreateIfAbsent(context.Background(), alert)
	require.NoError(t, err)
	require.True(t, created)
	return alert
}

func TestAlertList(t *testing.T) {
	handler, repo, tenantID := alertTestSetup(t)
	seedAlert(t, repo, tenantID, governance.SeverityWarning, "k1")
	seedAlert(t, repo, tenantID, governance.SeverityCritical, "k2")
	seedAlert(t, repo, uuid.New(), governance.SeverityInfo, "k3") // other tenant

	engine := newTestEngine(handler, authAs(tenantID, ""))
	w, envelope := doJSON(t, engine, http.MethodGet, "/api/v1/alerts", nil)

	require.Equal(t, http.StatusOK, w.Code)
	alerts := envelope["data"].([]any)
	require.Len(t, alerts, 2)
	// Critical sorts first
	assert.Equal(t, "CRITICAL", alerts[0].(map[string]any)["severity"])
	assert.Equal(t, "WARNING", alerts[1].(map[string]any)["severity"])
}

func TestAlertList_UnresolvedOnly(t *testing.T) {
	handler, repo, tenantID := alertTestSetup(t)
	seedAlert(t, repo, tenantID, governance.SeverityWarning, "open")
	resolved := seedAlert(t, repo, tenantID, governance.SeverityWarning, "closed")
	require.NoError(t, resolved.Resolve(time.Now()))
	require.NoError(t, repo.Update(context.Background(), resolved))

	engine := newTestEngine(handler, authAs(tenantID, ""))
	w, envelope := doJSON(t, engine, http.MethodGet, "/api/v1/alerts?unresolved_only=true", nil)

	require.Equal(t, http.StatusOK, w.Code)
	alerts := envelope["data"].([]any)
	require.Len(t, alerts, 1)
	assert.Equal(t, "TRIGGERED", alerts[0].(map[string]any)["status"])
}

func TestAlertAcknowledge(t *testing.T) {
	handler, repo, tenantID := alertTestSetup(t)
	alert := seedAlert(t, repo, tenantID, governance.SeverityWarning, "k1")

	engine := newTestEngine(handler, authAs(tenantID, ""))
	w, envelope := doJSON(t, engine, http.MethodPost, "/api/v1/alerts/"+alert.ID.String()+"/acknowledge", nil)

	require.Equal(t, http.StatusOK, w.Code)
	data := envelope["data"].(map[string]any)
	assert.Equal(t, "ACKNOWLEDGED", data["status"])
	assert.NotNil(t, data["acknowledged_at"])
}

func TestAlertAcknowledge_Twice(t *testing.T) {
	handler, repo, tenantID := alertTestSetup(t)
	alert := seedAlert(t, repo, tenantID, governance.SeverityWarning, "k1")

	engine := newTestEngine(handler, authAs(tenantID, ""))
	path := "/api/v1/alerts/" + alert.ID.String() + "/acknowledge"

	w, _ := doJSON(t, engine, http.MethodPost, path, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, envelope := doJSON(t, engine, http.MethodPost, path, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "ERR_INVALID_STATE", envelope["error"].(map[string]any)["code"])
}

func TestAlertResolve(t *testing.T) {
	handler, repo, tenantID := alertTestSetup(t)
	alert := seedAlert(t, repo, tenantID, governance.SeverityCritical, "k1")

	engine := newTestEngine(handler, authAs(tenantID, ""))
	w, envelope := doJSON(t, engine, http.MethodPost, "/api/v1/alerts/"+alert.ID.String()+"/resolve", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "RESOLVED", envelope["data"].(map[string]any)["status"])
}

func TestAlertResolve_NotFound(t *testing.T) {
	handler, _, tenantID := alertTestSetup(t)

	engine := newTestEngine(handler, authAs(tenantID, ""))
	w, _ := doJSON(t, engine, http.MethodPost, "/api/v1/alerts/"+uuid.NewString()+"/resolve", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAlertResolve_InvalidID(t *testing.T) {
	handler, _, tenantID := alertTestSetup(t)

	engine := newTestEngine(handler, authAs(tenantID, ""))
	w, _ := doJSON(t, engine, http.MethodPost, "/api/v1/alerts/abc/resolve", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
