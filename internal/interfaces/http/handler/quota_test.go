package handler

import (
	"net/http"
	"strings"
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

func quotaTestSetup(t *testing.T, tier governance.Tier) (*QuotaHandler, uuid.UUID) {
	t.Helper()

	tenantID := uuid.New()
	tenants := store.NewMemoryTenantDirectory(map[uuid.UUID]governance.TenantSettings{
		tenantID: {Tier: tier},
	})
	clock := shared.NewManualClock(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))
	ledger := appgov.NewLedgerService(store.NewMemoryLedgerStore(), tenants, nil, clock, zap.NewNop())
	return NewQuotaHandler(ledger, zap.NewNop()), tenantID
}

func TestQuotaConsume(t *testing.T) {
	handler, tenantID := quotaTestSetup(t, governance.TierFree)
	engine := newTestEngine(handler, authAs(tenantID, ""))

	w, envelope := doJSON(t, engine, http.MethodPost, "/api/v1/quotas/consume",
		strings.NewReader(`{"dimension": "invoices", "amount": 10}`))

	require.Equal(t, http.StatusOK, w.Code)
	data := envelope["data"].(map[string]any)
	assert.Equal(t, true, data["allowed"])
	assert.Equal(t, float64(10), data["used"])
	assert.Equal(t, float64(50), data["limit"])
}

func TestQuotaConsume_Exceeded(t *testing.T) {
	handler, tenantID := quotaTestSetup(t, governance.TierFree)
	engine := newTestEngine(handler, authAs(tenantID, ""))

	// FREE allows 50 invoices per month
	w, _ := doJSON(t, engine, http.MethodPost, "/api/v1/quotas/consume",
		strings.NewReader(`{"dimension": "invoices", "amount": 50}`))
	require.Equal(t, http.StatusOK, w.Code)

	w, envelope := doJSON(t, engine, http.MethodPost, "/api/v1/quotas/consume",
		strings.NewReader(`{"dimension": "invoices", "amount": 1}`))

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	errInfo := envelope["error"].(map[string]any)
	assert.Equal(t, "ERR_QUOTA_EXCEEDED", errInfo["code"])
	// Quota state still rides along for the client
	data := envelope["data"].(map[string]any)
	assert.Equal(t, false, data["allowed"])
	assert.Equal(t, "BASIC", data["suggested_tier"])
}

func TestQuotaConsume_DefaultsAmountToOne(t *testing.T) {
	handler, tenantID := quotaTestSetup(t, governance.TierFree)
	engine := newTestEngine(handler, authAs(tenantID, ""))

	w, envelope := doJSON(t, engine, http.MethodPost, "/api/v1/quotas/consume",
		strings.NewReader(`{"dimension": "users"}`))

	require.Equal(t, http.StatusOK, w.Code)
	data := envelope["data"].(map[string]any)
	assert.Equal(t, float64(1), data["used"])
}

func TestQuotaConsume_UnknownDimension(t *testing.T) {
	handler, tenantID := quotaTestSetup(t, governance.TierFree)
	engine := newTestEngine(handler, authAs(tenantID, ""))

	w, _ := doJSON(t, engine, http.MethodPost, "/api/v1/quotas/consume",
		strings.NewReader(`{"dimension": "gpuHours"}`))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestQuotaConsume_NoTenant(t *testing.T) {
	handler, _ := quotaTestSetup(t, governance.TierFree)
	engine := newTestEngine(handler)

	w, _ := doJSON(t, engine, http.MethodPost, "/api/v1/quotas/consume",
		strings.NewReader(`{"dimension": "invoices"}`))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestQuotaSummary(t *testing.T) {
	handler, tenantID := quotaTestSetup(t, governance.TierBasic)
	engine := newTestEngine(handler, authAs(tenantID, ""))

	_, _ = doJSON(t, engine, http.MethodPost, "/api/v1/quotas/consume",
		strings.NewReader(`{"dimension": "apiCalls", "amount": 100}`))

	w, envelope := doJSON(t, engine, http.MethodGet, "/api/v1/quotas/summary", nil)

	require.Equal(t, http.StatusOK, w.Code)
	data := envelope["data"].(map[string]any)
	assert.Equal(t, tenantID.String(), data["tenant_id"])
	assert.Equal(t, "BASIC", data["tier"])
	dimensions := data["dimensions"].([]any)
	assert.Len(t, dimensions, len(governance.AllDimensions()))
}
