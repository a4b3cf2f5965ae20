package governance

import (
	"context"
	"time"
)

// WindowDecision is the outcome of a single-window check-and-increment.
type WindowDecision struct {
	Allowed     bool
	Granularity Granularity
	Limit       int64
	Remaining   int64
	ResetAfter  time.Duration
}

// CounterStore is the backing primitive for rate-limit counters. The
// check-and-increment must be indivisible per (key, granularity): two
// callers racing at the last remaining slot must never both be admitted.
// An in-process implementation may use a per-key mutex; a networked one
// needs an atomic increment (the increment-then-refund pattern satisfies
// the contract as long as the increment itself is atomic).
type CounterStore interface {
	// Increment applies window rollover, then admits and counts cost only
	// when the smoothed effective count stays within allowance. On
	// rejection the count is left unchanged.
	Increment(ctx context.Context, key string, g Granularity, now time.Time, cost, allowance int64) (WindowDecision, error)

	// Refund undoes a previously admitted Increment. Used when a shorter
	// granularity admitted but a longer one rejected the same request.
	Refund(ctx context.Context, key string, g Granularity, now time.Time, cost int64) error

	// Peek returns the decision state without counting
	Peek(ctx context.Context, key string, g Granularity, now time.Time, allowance int64) (WindowDecision, error)

	// Reset drops all counting state for a key
	Reset(ctx context.Context, key string) error

	// Sweep removes expired windows and returns how many were reaped
	Sweep(ctx context.Context, now time.Time) int
}
