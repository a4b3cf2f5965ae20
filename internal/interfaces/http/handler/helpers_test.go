package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/erp/governance/internal/interfaces/http/middleware"
)

// authAs returns middleware that injects tenant identity the way the JWT
// middleware would after validating a token
func authAs(tenantID uuid.UUID, apiKeyID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.JWTTenantIDKey, tenantID.String())
		c.Set(middleware.JWTAPIKeyIDKey, apiKeyID)
		c.Next()
	}
}

// newTestEngine builds a gin engine with the registrar mounted under
// /api/v1 behind the given middleware
func newTestEngine(registrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}, mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
	engine := gin.New()
	group := engine.Group("/api/v1", mw...)
	registrar.RegisterRoutes(group)
	return engine
}

// doJSON performs a request with an optional JSON body and decodes the
// envelope
func doJSON(t *testing.T, engine *gin.Engine, method, path string, body io.Reader) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	var envelope map[string]any
	if w.Body.Len() > 0 && w.Code != http.StatusNoContent {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	}
	return w, envelope
}
