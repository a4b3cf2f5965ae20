// Package governance provides domain models for the multi-tenant usage
// governance core: per-key rate limiting, tiered quota enforcement,
// metrics aggregation, threshold alerting and cross-tenant benchmarking.
//
// Key Aggregates:
//   - RateLimitConfig: Administratively managed limit definition per scope
//   - QuotaDimension: Per-tenant ledger row for one metered dimension
//   - Alert: Threshold-crossing record with a TRIGGERED/ACKNOWLEDGED/RESOLVED lifecycle
//
// Value Objects:
//   - CounterWindow: Fixed counting window with boundary smoothing
//   - MetricSample: Immutable numeric observation
//   - BenchmarkSnapshot: Derived cross-tenant statistic, never persisted
//
// The package defines the store interfaces (CounterStore, LedgerStore,
// MetricsStore, AlertRepository) whose implementations live under
// internal/infrastructure. The two mutating operations on the request
// path, counter increment and quota consumption, are specified as
// indivisible check-and-increments so any backing store with an atomic
// compare-and-swap (or per-key mutex) satisfies them.
package governance
