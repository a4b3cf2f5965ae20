package dto

import (
	"sort"
	"time"

	appgov "github.com/erp/governance/internal/application/governance"
	"github.com/erp/governance/internal/domain/governance"
)

// AdmissionCheckRequest asks whether a request may pass the rate limiter.
// Tenant and API key identity come from the access token, not the body.
type AdmissionCheckRequest struct {
	Endpoint string `json:"endpoint"`
	Cost     int64  `json:"cost" binding:"omitempty,min=1"`
}

// AdmissionDecisionResponse carries the outcome of an admission check
type AdmissionDecisionResponse struct {
	Allowed           bool    `json:"allowed"`
	Granularity       string  `json:"granularity,omitempty"`
	Limit             int64   `json:"limit"`
	Remaining         int64   `json:"remaining"`
	ResetAfterSeconds float64 `json:"reset_after_seconds"`
	RetryAfterSeconds float64 `json:"retry_after_seconds,omitempty"`
}

// AdmissionDecisionResponseFromDecision converts an admission decision to its response DTO
func AdmissionDecisionResponseFromDecision(d appgov.AdmissionDecision) AdmissionDecisionResponse {
	return AdmissionDecisionResponse{
		Allowed:           d.Allowed,
		Granularity:       string(d.Granularity),
		Limit:             d.Limit,
		Remaining:         d.Remaining,
		ResetAfterSeconds: d.ResetAfter.Seconds(),
		RetryAfterSeconds: d.RetryAfter.Seconds(),
	}
}

// KeyStatsResponse is one key's admission tally
type KeyStatsResponse struct {
	Key       string  `json:"key"`
	Allowed   int64   `json:"allowed"`
	Blocked   int64   `json:"blocked"`
	BlockRate float64 `json:"block_rate"`
}

// AdmissionStatsResponse summarizes admission traffic since the last
// anomaly sweep
type AdmissionStatsResponse struct {
	TotalAllowed int64              `json:"total_allowed"`
	TotalBlocked int64              `json:"total_blocked"`
	Keys         []KeyStatsResponse `json:"keys"`
}

// AdmissionStatsResponseFromStats converts the per-key tallies to their response DTO
func AdmissionStatsResponseFromStats(stats map[string]appgov.KeyStats) AdmissionStatsResponse {
	resp := AdmissionStatsResponse{Keys: make([]KeyStatsResponse, 0, len(stats))}
	for key, st := range stats {
		resp.TotalAllowed += st.Allowed
		resp.TotalBlocked += st.Rejected
		resp.Keys = append(resp.Keys, KeyStatsResponse{
			Key:       key,
			Allowed:   st.Allowed,
			Blocked:   st.Rejected,
			BlockRate: st.RejectedRatio(),
		})
	}
	sort.Slice(resp.Keys, func(i, j int) bool { return resp.Keys[i].Key < resp.Keys[j].Key })
	return resp
}

// ConsumeQuotaRequest records usage against one quota dimension
type ConsumeQuotaRequest struct {
	Dimension string `json:"dimension" binding:"required,dimension"`
	Amount    int64  `json:"amount" binding:"omitempty,min=1"`
}

// QuotaResultResponse carries the outcome of a quota consumption
type QuotaResultResponse struct {
	Allowed       bool      `json:"allowed"`
	Dimension     string    `json:"dimension"`
	Used          int64     `json:"used"`
	Limit         int64     `json:"limit"`
	Remaining     int64     `json:"remaining"`
	PercentUsed   float64   `json:"percent_used"`
	PeriodStart   time.Time `json:"period_start"`
	PeriodEnd     time.Time `json:"period_end"`
	SuggestedTier string    `json:"suggested_tier,omitempty"`
}

// QuotaResultResponseFromResult converts a quota result to its response DTO
func QuotaResultResponseFromResult(r governance.QuotaResult) QuotaResultResponse {
	resp := QuotaResultResponse{
		Allowed:     r.Allowed,
		Dimension:   string(r.Dimension),
		Used:        r.Used,
		Limit:       r.Limit,
		Remaining:   r.Remaining,
		PercentUsed: r.PercentUsed,
		PeriodStart: r.PeriodStart,
		PeriodEnd:   r.PeriodEnd,
	}
	if r.SuggestedTier != nil {
		resp.SuggestedTier = string(*r.SuggestedTier)
	}
	return resp
}

// QuotaDimensionResponse is one dimension's usage within a summary
type QuotaDimensionResponse struct {
	Dimension   string    `json:"dimension"`
	Used        int64     `json:"used"`
	Limit       int64     `json:"limit"`
	PercentUsed float64   `json:"percent_used"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
}

// UsageSummaryResponse reports a tenant's usage across all dimensions
type UsageSummaryResponse struct {
	TenantID      string                   `json:"tenant_id"`
	Tier          string                   `json:"tier"`
	Dimensions    []QuotaDimensionResponse `json:"dimensions"`
	SuggestedTier string                   `json:"suggested_tier,omitempty"`
}

// UsageSummaryResponseFromSummary converts a usage summary to its response DTO
func UsageSummaryResponseFromSummary(s *appgov.UsageSummary) UsageSummaryResponse {
	resp := UsageSummaryResponse{
		TenantID:   s.TenantID.String(),
		Tier:       string(s.Tier),
		Dimensions: make([]QuotaDimensionResponse, 0, len(s.Dimensions)),
	}
	for _, d := range s.Dimensions {
		resp.Dimensions = append(resp.Dimensions, QuotaDimensionResponse{
			Dimension:   string(d.Dimension),
			Used:        d.Used,
			Limit:       d.Limit,
			PercentUsed: d.PercentUsed(),
			PeriodStart: d.PeriodStart,
			PeriodEnd:   d.PeriodEnd,
		})
	}
	if s.SuggestedTier != nil {
		resp.SuggestedTier = string(*s.SuggestedTier)
	}
	return resp
}

// RecordMetricRequest appends one sample to the tenant's time series.
// Timestamp defaults to the server clock when omitted.
type RecordMetricRequest struct {
	Name      string            `json:"name" binding:"required,max=255"`
	Type      string            `json:"type" binding:"omitempty,oneof=COUNTER GAUGE HISTOGRAM SUMMARY"`
	Value     float64           `json:"value"`
	Labels    map[string]string `json:"labels"`
	Timestamp *time.Time        `json:"timestamp"`
}

// MetricQueryRequest filters raw samples by name and time range
type MetricQueryRequest struct {
	Name  string    `form:"name"`
	Start time.Time `form:"start" time_format:"2006-01-02T15:04:05Z07:00"`
	End   time.Time `form:"end" time_format:"2006-01-02T15:04:05Z07:00"`
}

// MetricSampleResponse is one recorded sample
type MetricSampleResponse struct {
	Name      string            `json:"name"`
	Type      string            `json:"type"`
	Value     float64           `json:"value"`
	Labels    map[string]string `json:"labels,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// MetricSampleResponsesFromSamples converts samples to response DTOs
func MetricSampleResponsesFromSamples(samples []governance.MetricSample) []MetricSampleResponse {
	out := make([]MetricSampleResponse, 0, len(samples))
	for _, s := range samples {
		out = append(out, MetricSampleResponse{
			Name:      s.Name,
			Type:      string(s.Type),
			Value:     s.Value,
			Labels:    s.Labels,
			Timestamp: s.Timestamp,
		})
	}
	return out
}

// AggregateRequest asks for a windowed aggregation over recorded samples
type AggregateRequest struct {
	Metric     string  `json:"metric" binding:"required"`
	Function   string  `json:"function" binding:"required,oneof=SUM AVG MIN MAX COUNT PERCENTILE"`
	Period     string  `json:"period" binding:"required,oneof=DAY WEEK MONTH QUARTER YEAR YTD"`
	Percentile float64 `json:"percentile" binding:"omitempty,gt=0,lte=1"`
}

// AggregateResultResponse carries the aggregation outcome and its window
type AggregateResultResponse struct {
	Metric      string    `json:"metric"`
	Function    string    `json:"function"`
	Period      string    `json:"period"`
	Value       float64   `json:"value"`
	SampleCount int       `json:"sample_count"`
	WindowStart time.Time `json:"window_start"`
	WindowEnd   time.Time `json:"window_end"`
}

// AggregateResultResponseFromResult converts an aggregate result to its response DTO
func AggregateResultResponseFromResult(r *appgov.AggregateResult) AggregateResultResponse {
	return AggregateResultResponse{
		Metric:      r.Metric,
		Function:    string(r.Function),
		Period:      string(r.Period),
		Value:       r.Value,
		SampleCount: r.SampleCount,
		WindowStart: r.WindowStart,
		WindowEnd:   r.WindowEnd,
	}
}

// AlertListRequest filters the alert listing
type AlertListRequest struct {
	UnresolvedOnly bool `form:"unresolved_only"`
}

// AlertResponse is one alert in API responses
type AlertResponse struct {
	ID             string     `json:"id"`
	TenantID       string     `json:"tenant_id"`
	Type           string     `json:"type"`
	Severity       string     `json:"severity"`
	Status         string     `json:"status"`
	Message        string     `json:"message"`
	TriggeredAt    time.Time  `json:"triggered_at"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`
}

// AlertResponseFromAlert converts an alert to its response DTO
func AlertResponseFromAlert(a *governance.Alert) AlertResponse {
	return AlertResponse{
		ID:             a.ID.String(),
		TenantID:       a.TenantID.String(),
		Type:           string(a.Type),
		Severity:       a.Severity.String(),
		Status:         string(a.Status()),
		Message:        a.Message,
		TriggeredAt:    a.TriggeredAt,
		AcknowledgedAt: a.AcknowledgedAt,
		ResolvedAt:     a.ResolvedAt,
	}
}

// AlertResponsesFromAlerts converts alerts to response DTOs
func AlertResponsesFromAlerts(alerts []*governance.Alert) []AlertResponse {
	out := make([]AlertResponse, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, AlertResponseFromAlert(a))
	}
	return out
}

// LimitSetRequest is the per-granularity ceilings of a configuration.
// 0 leaves a granularity unlimited.
type LimitSetRequest struct {
	PerSecond int64 `json:"per_second" binding:"omitempty,min=0"`
	PerMinute int64 `json:"per_minute" binding:"omitempty,min=0"`
	PerHour   int64 `json:"per_hour" binding:"omitempty,min=0"`
	PerDay    int64 `json:"per_day" binding:"omitempty,min=0"`
}

// ToLimitSet converts the request to a domain limit set
func (r LimitSetRequest) ToLimitSet() governance.LimitSet {
	return governance.LimitSet{
		PerSecond: r.PerSecond,
		PerMinute: r.PerMinute,
		PerHour:   r.PerHour,
		PerDay:    r.PerDay,
	}
}

// CreateConfigRequest creates a new rate limit configuration
type CreateConfigRequest struct {
	Scope      string          `json:"scope" binding:"required,oneof=GLOBAL TENANT API_KEY ENDPOINT"`
	TargetID   string          `json:"target_id"`
	Limits     LimitSetRequest `json:"limits" binding:"required"`
	BurstLimit int64           `json:"burst_limit" binding:"omitempty,min=0"`
	Priority   int             `json:"priority"`
}

// UpdateConfigRequest partially updates a configuration. Nil fields are
// left unchanged.
type UpdateConfigRequest struct {
	Limits     *LimitSetRequest `json:"limits"`
	BurstLimit *int64           `json:"burst_limit" binding:"omitempty,min=0"`
	Priority   *int             `json:"priority"`
	Active     *bool            `json:"active"`
}

// RateLimitConfigResponse is one configuration in API responses
type RateLimitConfigResponse struct {
	ID         string          `json:"id"`
	Scope      string          `json:"scope"`
	TargetID   string          `json:"target_id,omitempty"`
	Limits     LimitSetRequest `json:"limits"`
	BurstLimit int64           `json:"burst_limit"`
	Priority   int             `json:"priority"`
	Active     bool            `json:"active"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// RateLimitConfigResponseFromConfig converts a configuration to its response DTO
func RateLimitConfigResponseFromConfig(cfg *governance.RateLimitConfig) RateLimitConfigResponse {
	return RateLimitConfigResponse{
		ID:       cfg.ID.String(),
		Scope:    string(cfg.Scope),
		TargetID: cfg.TargetID,
		Limits: LimitSetRequest{
			PerSecond: cfg.Limits.PerSecond,
			PerMinute: cfg.Limits.PerMinute,
			PerHour:   cfg.Limits.PerHour,
			PerDay:    cfg.Limits.PerDay,
		},
		BurstLimit: cfg.BurstLimit,
		Priority:   cfg.Priority,
		Active:     cfg.Active,
		CreatedAt:  cfg.CreatedAt,
		UpdatedAt:  cfg.UpdatedAt,
	}
}

// RateLimitConfigResponsesFromConfigs converts configurations to response DTOs
func RateLimitConfigResponsesFromConfigs(configs []*governance.RateLimitConfig) []RateLimitConfigResponse {
	out := make([]RateLimitConfigResponse, 0, len(configs))
	for _, cfg := range configs {
		out = append(out, RateLimitConfigResponseFromConfig(cfg))
	}
	return out
}

// BenchmarkCompareRequest compares the tenant against its industry peers
type BenchmarkCompareRequest struct {
	Metric string `form:"metric" binding:"required"`
	Period string `form:"period" binding:"required,oneof=DAY WEEK MONTH QUARTER YEAR YTD"`
}

// BenchmarkComparisonResponse is the tenant-vs-peers comparison
type BenchmarkComparisonResponse struct {
	Metric          string  `json:"metric"`
	Value           float64 `json:"value"`
	IndustryAverage float64 `json:"industry_average"`
	Percentile      float64 `json:"percentile"`
	Trend           string  `json:"trend"`
}

// BenchmarkComparisonResponseFromComparison converts a comparison to its response DTO
func BenchmarkComparisonResponseFromComparison(c *governance.BenchmarkComparison) BenchmarkComparisonResponse {
	return BenchmarkComparisonResponse{
		Metric:          c.Metric,
		Value:           c.Value,
		IndustryAverage: c.IndustryAverage,
		Percentile:      c.Percentile,
		Trend:           string(c.Trend),
	}
}

// BenchmarkSnapshotResponse is an industry-wide statistic
type BenchmarkSnapshotResponse struct {
	Industry    string    `json:"industry"`
	Metric      string    `json:"metric"`
	Average     float64   `json:"average"`
	Median      float64   `json:"median"`
	P25         float64   `json:"p25"`
	P75         float64   `json:"p75"`
	P90         float64   `json:"p90"`
	TenantCount int       `json:"tenant_count"`
	ComputedAt  time.Time `json:"computed_at"`
}

// BenchmarkSnapshotResponseFromSnapshot converts a snapshot to its response DTO
func BenchmarkSnapshotResponseFromSnapshot(s *governance.BenchmarkSnapshot) BenchmarkSnapshotResponse {
	return BenchmarkSnapshotResponse{
		Industry:    s.Industry,
		Metric:      s.Metric,
		Average:     s.Average,
		Median:      s.Median,
		P25:         s.P25,
		P75:         s.P75,
		P90:         s.P90,
		TenantCount: s.TenantCount,
		ComputedAt:  s.ComputedAt,
	}
}
