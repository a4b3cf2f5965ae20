package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	appgov "github.com/erp/governance/internal/application/governance"
	"github.com/erp/governance/internal/domain/governance"
)

type stubAdmitter struct {
	decision appgov.AdmissionDecision
	lastReq  appgov.AdmissionRequest
}

func (s *stubAdmitter) Admit(_ context.Context, req appgov.AdmissionRequest) appgov.AdmissionDecision {
	s.lastReq = req
	return s.decision
}

func rateLimitTestEngine(admitter Admitter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(func(c *gin.Context) {
		c.Set(JWTTenantIDKey, "tenant-1")
		c.Set(JWTAPIKeyIDKey, "key-1")
		c.Next()
	})
	engine.Use(RateLimit(admitter))
	engine.GET("/resource/:id", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return engine
}

func TestRateLimit_Allowed(t *testing.T) {
	admitter := &stubAdmitter{decision: appgov.AdmissionDecision{
		Allowed:     true,
		Granularity: governance.GranularityMinute,
		Limit:       100,
		Remaining:   57,
		ResetAfter:  42 * time.Second,
	}}
	engine := rateLimitTestEngine(admitter)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/resource/1", nil)
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "100", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "57", w.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "42", w.Header().Get("X-RateLimit-Reset"))
	assert.Empty(t, w.Header().Get("Retry-After"))
}

func TestRateLimit_Rejected(t *testing.T) {
	admitter := &stubAdmitter{decision: appgov.AdmissionDecision{
		Allowed:     false,
		Granularity: governance.GranularitySecond,
		Limit:       10,
		Remaining:   0,
		ResetAfter:  700 * time.Millisecond,
		RetryAfter:  700 * time.Millisecond,
	}}
	engine := rateLimitTestEngine(admitter)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/resource/1", nil)
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "ERR_RATE_LIMITED")
	// Sub-second waits round up so clients never retry early
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
}

func TestRateLimit_UsesRouteTemplate(t *testing.T) {
	admitter := &stubAdmitter{decision: appgov.AdmissionDecision{Allowed: true, Limit: 1, Remaining: 1}}
	engine := rateLimitTestEngine(admitter)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/resource/42", nil)
	engine.ServeHTTP(w, req)

	assert.Equal(t, "/resource/:id", admitter.lastReq.Endpoint)
}

func TestRateLimit_SkipsUnauthenticated(t *testing.T) {
	admitter := &stubAdmitter{decision: appgov.AdmissionDecision{Allowed: false}}

	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(RateLimit(admitter))
	engine.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
	assert.Empty(t, admitter.lastReq.TenantID)
}
