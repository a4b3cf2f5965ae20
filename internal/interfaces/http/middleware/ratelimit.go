package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	appgov "github.com/erp/governance/internal/application/governance"
	"github.com/erp/governance/internal/interfaces/http/dto"
)

// Admitter decides whether a request may pass the rate limiter
type Admitter interface {
	Admit(ctx context.Context, req appgov.AdmissionRequest) appgov.AdmissionDecision
}

// RateLimit returns middleware that gates every request through the
// admission service. The decision's binding window is exposed through
// X-RateLimit-* headers; rejected requests get 429 with Retry-After.
func RateLimit(admitter Admitter) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID := GetJWTTenantID(c)
		if tenantID == "" {
			// Unauthenticated paths (health probes) are not metered
			c.Next()
			return
		}

		decision := admitter.Admit(c.Request.Context(), appgov.AdmissionRequest{
			TenantID: tenantID,
			APIKeyID: GetJWTAPIKeyID(c),
			Endpoint: c.FullPath(),
		})

		setRateLimitHeaders(c, decision)

		if !decision.Allowed {
			c.Header("Retry-After", strconv.FormatInt(ceilSeconds(decision.RetryAfter), 10))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.NewErrorResponse(
				dto.ErrCodeRateLimited,
				"Rate limit exceeded. Please try again later.",
			))
			return
		}

		c.Next()
	}
}

// setRateLimitHeaders exposes the binding window on the response
func setRateLimitHeaders(c *gin.Context, d appgov.AdmissionDecision) {
	c.Header("X-RateLimit-Limit", strconv.FormatInt(d.Limit, 10))
	c.Header("X-RateLimit-Remaining", strconv.FormatInt(d.Remaining, 10))
	c.Header("X-RateLimit-Reset", strconv.FormatInt(ceilSeconds(d.ResetAfter), 10))
}

// ceilSeconds rounds a duration up to whole seconds so clients never
// retry before the window actually resets
func ceilSeconds(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	return int64(math.Ceil(d.Seconds()))
}
