package governance

import (
	"context"
	"time"
)

// BenchmarkTrend positions a tenant's value against the industry average.
type BenchmarkTrend string

const (
	TrendAboveAverage BenchmarkTrend = "ABOVE_AVERAGE"
	TrendAverage      BenchmarkTrend = "AVERAGE"
	TrendBelowAverage BenchmarkTrend = "BELOW_AVERAGE"
)

// TrendFor classifies value against the industry average: ABOVE_AVERAGE at
// or beyond +10%, BELOW_AVERAGE under -10%, AVERAGE in between.
func TrendFor(value, industryAverage float64) BenchmarkTrend {
	switch {
	case value >= 1.1*industryAverage:
		return TrendAboveAverage
	case value < 0.9*industryAverage:
		return TrendBelowAverage
	default:
		return TrendAverage
	}
}

// IndustryBenchmark is one row of the externally maintained reference
// table. The table is refreshed on its own schedule; the governance core
// only reads it.
type IndustryBenchmark struct {
	Industry string
	Metric   string
	Average  float64
}

// ReferenceTable looks up industry reference values.
type ReferenceTable interface {
	// Lookup returns the reference row, or shared.ErrNotFound when the
	// industry/metric pair has no published benchmark
	Lookup(ctx context.Context, industry, metric string) (IndustryBenchmark, error)
}

// BenchmarkComparison is the result of comparing one tenant to its
// industry.
type BenchmarkComparison struct {
	Metric          string
	Value           float64
	IndustryAverage float64
	Percentile      float64 // tenant's rank among peers, 0-100
	Trend           BenchmarkTrend
}

// BenchmarkSnapshot is a derived, non-persistent cross-tenant statistic
// for one industry and metric. It is recomputed on demand from recorded
// samples and never stored as a source of truth.
type BenchmarkSnapshot struct {
	Industry    string
	Metric      string
	Average     float64
	Median      float64
	P25         float64
	P75         float64
	P90         float64
	TenantCount int
	ComputedAt  time.Time
}

// NewBenchmarkSnapshot computes the snapshot statistics from per-tenant
// values (one value per tenant).
func NewBenchmarkSnapshot(industry, metric string, values []float64, computedAt time.Time) BenchmarkSnapshot {
	return BenchmarkSnapshot{
		Industry:    industry,
		Metric:      metric,
		Average:     Aggregate(values, AggregateAvg, 0),
		Median:      Percentile(values, 0.5),
		P25:         Percentile(values, 0.25),
		P75:         Percentile(values, 0.75),
		P90:         Percentile(values, 0.9),
		TenantCount: len(values),
		ComputedAt:  computedAt,
	}
}

// PercentileRank returns the percentage of peer values less than or equal
// to value. An empty peer set ranks at 0.
func PercentileRank(value float64, peers []float64) float64 {
	if len(peers) == 0 {
		return 0
	}
	var atOrBelow int
	for _, p := range peers {
		if p <= value {
			atOrBelow++
		}
	}
	return float64(atOrBelow) / float64(len(peers)) * 100
}
