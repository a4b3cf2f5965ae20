package governance

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
)

// MetricType classifies a recorded sample.
type MetricType string

const (
	MetricTypeCounter   MetricType = "COUNTER"
	MetricTypeGauge     MetricType = "GAUGE"
	MetricTypeHistogram MetricType = "HISTOGRAM"
	MetricTypeSummary   MetricType = "SUMMARY"
)

// String returns the string representation of MetricType
func (t MetricType) String() string {
	return string(t)
}

// IsValid returns true if the metric type is known
func (t MetricType) IsValid() bool {
	switch t {
	case MetricTypeCounter, MetricTypeGauge, MetricTypeHistogram, MetricTypeSummary:
		return true
	}
	return false
}

// MetricSample is one immutable numeric observation for a tenant. Samples
// are owned exclusively by the metrics store and never mutated after
// recording; they age out after the tenant's retention window.
type MetricSample struct {
	TenantID  uuid.UUID
	Name      string
	Type      MetricType
	Value     float64
	Labels    map[string]string
	Timestamp time.Time
}

// AggregateFunc is a windowed aggregation over sample values.
type AggregateFunc string

const (
	AggregateSum        AggregateFunc = "SUM"
	AggregateAvg        AggregateFunc = "AVG"
	AggregateMin        AggregateFunc = "MIN"
	AggregateMax        AggregateFunc = "MAX"
	AggregateCount      AggregateFunc = "COUNT"
	AggregatePercentile AggregateFunc = "PERCENTILE"
)

// IsValid returns true if the aggregation function is known
func (f AggregateFunc) IsValid() bool {
	switch f {
	case AggregateSum, AggregateAvg, AggregateMin, AggregateMax, AggregateCount, AggregatePercentile:
		return true
	}
	return false
}

// AggregatePeriod selects the query window, calendar-relative to the
// evaluation instant rather than to sample timestamps.
type AggregatePeriod string

const (
	PeriodDay     AggregatePeriod = "DAY"
	PeriodWeek    AggregatePeriod = "WEEK"
	PeriodMonth   AggregatePeriod = "MONTH"
	PeriodQuarter AggregatePeriod = "QUARTER"
	PeriodYear    AggregatePeriod = "YEAR"
	PeriodYTD     AggregatePeriod = "YTD"
)

// IsValid returns true if the period is known
func (p AggregatePeriod) IsValid() bool {
	switch p {
	case PeriodDay, PeriodWeek, PeriodMonth, PeriodQuarter, PeriodYear, PeriodYTD:
		return true
	}
	return false
}

// Start returns the window start for the period relative to now. Callers
// compute this once per query so window boundaries stay stable within a
// single aggregation call.
func (p AggregatePeriod) Start(now time.Time) time.Time {
	switch p {
	case PeriodDay:
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	case PeriodWeek:
		// Week starts Monday
		weekday := int(now.Weekday())
		if weekday == 0 {
			weekday = 7
		}
		return time.Date(now.Year(), now.Month(), now.Day()-(weekday-1), 0, 0, 0, 0, now.Location())
	case PeriodMonth:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	case PeriodQuarter:
		quarterMonth := time.Month(((int(now.Month())-1)/3)*3 + 1)
		return time.Date(now.Year(), quarterMonth, 1, 0, 0, 0, 0, now.Location())
	case PeriodYear:
		return now.AddDate(-1, 0, 0)
	case PeriodYTD:
		return time.Date(now.Year(), 1, 1, 0, 0, 0, 0, now.Location())
	}
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
}

// Aggregate applies fn over values. An empty selection yields 0 for every
// function; that is documented behavior, not an error. For PERCENTILE the
// values are sorted ascending and index floor(n*p) is taken, clamped to
// [0, n-1].
func Aggregate(values []float64, fn AggregateFunc, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	switch fn {
	case AggregateSum:
		var sum float64
		for _, v := range values {
			sum += v
		}
		return sum
	case AggregateAvg:
		var sum float64
		for _, v := range values {
			sum += v
		}
		return sum / float64(len(values))
	case AggregateCount:
		return float64(len(values))
	case AggregateMin:
		min := values[0]
		for _, v := range values[1:] {
			if v < min {
				min = v
			}
		}
		return min
	case AggregateMax:
		max := values[0]
		for _, v := range values[1:] {
			if v > max {
				max = v
			}
		}
		return max
	case AggregatePercentile:
		return Percentile(values, p)
	}
	return 0
}

// Percentile returns the p-quantile (0 ≤ p ≤ 1) of values by nearest-rank:
// sort ascending, take index floor(n*p) clamped to the valid range.
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	idx := int(math.Floor(float64(len(sorted)) * p))
	if idx < 0 {
		idx = 0
	}
	if idx > len(sorted)-1 {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// MetricFilter narrows a metrics query.
type MetricFilter struct {
	Name  string // empty = all names
	Start time.Time
	End   time.Time // zero = unbounded
}

// MetricsStore is the append-only per-tenant time series. Record is the
// only mutation on the request path; Purge runs from the background reaper
// and must not race destructively with in-flight queries.
type MetricsStore interface {
	// Record appends a sample
	Record(ctx context.Context, sample MetricSample) error

	// Query returns matching samples ordered by timestamp descending
	Query(ctx context.Context, tenantID uuid.UUID, filter MetricFilter) ([]MetricSample, error)

	// Values returns the raw values for one metric in [start, end)
	Values(ctx context.Context, tenantID uuid.UUID, name string, start, end time.Time) ([]float64, error)

	// Purge drops samples recorded before the cutoff and returns the count
	Purge(ctx context.Context, tenantID uuid.UUID, before time.Time) (int, error)
}
