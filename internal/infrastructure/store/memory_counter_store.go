package store

import (
	"context"
	"sync"
	"time"

	"github.com/erp/governance/internal/domain/governance"
)

// memoryCounter holds all granularity windows for one key behind its own
// lock, so contended keys do not serialize the whole store.
type memoryCounter struct {
	mu      sync.Mutex
	windows map[governance.Granularity]*governance.CounterWindow
}

// MemoryCounterStore implements CounterStore with in-process state.
// This is suitable for single-instance deployments and testing.
type MemoryCounterStore struct {
	mu       sync.RWMutex
	counters map[string]*memoryCounter
}

// NewMemoryCounterStore creates an empty in-memory counter store
func NewMemoryCounterStore() *MemoryCounterStore {
	return &MemoryCounterStore{
		counters: make(map[string]*memoryCounter),
	}
}

// counter returns the per-key state, creating it on first use
func (s *MemoryCounterStore) counter(key string) *memoryCounter {
	s.mu.RLock()
	c, ok := s.counters[key]
	s.mu.RUnlock()
	if ok {
		return c
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok = s.counters[key]; ok {
		return c
	}
	c = &memoryCounter{windows: make(map[governance.Granularity]*governance.CounterWindow)}
	s.counters[key] = c
	return c
}

// window returns the rolled-over window for one granularity. Caller must
// hold c.mu.
func (c *memoryCounter) window(key string, g governance.Granularity, now time.Time) *governance.CounterWindow {
	w, ok := c.windows[g]
	if !ok {
		w = &governance.CounterWindow{
			Key:         key,
			Granularity: g,
			WindowStart: g.WindowStart(now),
		}
		c.windows[g] = w
	}
	w.Rollover(now)
	return w
}

// Increment admits and counts cost when the smoothed count stays within
// allowance. The per-key lock makes the check and the count indivisible.
func (s *MemoryCounterStore) Increment(ctx context.Context, key string, g governance.Granularity, now time.Time, cost, allowance int64) (governance.WindowDecision, error) {
	c := s.counter(key)
	c.mu.Lock()
	defer c.mu.Unlock()

	w := c.window(key, g, now)
	w.LastSeen = now

	decision := governance.WindowDecision{
		Granularity: g,
		Limit:       allowance,
		ResetAfter:  w.ResetAfter(now),
	}

	if w.SmoothedCount(now)+float64(cost) > float64(allowance) {
		decision.Remaining = remaining(w, now, allowance)
		return decision, nil
	}

	w.Count += cost
	decision.Allowed = true
	decision.Remaining = remaining(w, now, allowance)
	return decision, nil
}

// Refund undoes a previously admitted increment
func (s *MemoryCounterStore) Refund(ctx context.Context, key string, g governance.Granularity, now time.Time, cost int64) error {
	c := s.counter(key)
	c.mu.Lock()
	defer c.mu.Unlock()

	w := c.window(key, g, now)
	w.Count -= cost
	if w.Count < 0 {
		w.Count = 0
	}
	return nil
}

// Peek returns decision state without counting
func (s *MemoryCounterStore) Peek(ctx context.Context, key string, g governance.Granularity, now time.Time, allowance int64) (governance.WindowDecision, error) {
	c := s.counter(key)
	c.mu.Lock()
	defer c.mu.Unlock()

	w := c.window(key, g, now)
	return governance.WindowDecision{
		Allowed:     w.SmoothedCount(now) < float64(allowance),
		Granularity: g,
		Limit:       allowance,
		Remaining:   remaining(w, now, allowance),
		ResetAfter:  w.ResetAfter(now),
	}, nil
}

// Reset drops all counting state for a key
func (s *MemoryCounterStore) Reset(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.counters, key)
	return nil
}

// Sweep removes keys whose windows have all expired and returns how many
// windows were reaped
func (s *MemoryCounterStore) Sweep(ctx context.Context, now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	reaped := 0
	for key, c := range s.counters {
		c.mu.Lock()
		for g, w := range c.windows {
			if w.Expired(now) {
				delete(c.windows, g)
				reaped++
			}
		}
		empty := len(c.windows) == 0
		c.mu.Unlock()
		if empty {
			delete(s.counters, key)
		}
	}
	return reaped
}

// remaining converts the smoothed count into a whole-request remaining
// figure, floored at zero
func remaining(w *governance.CounterWindow, now time.Time, allowance int64) int64 {
	left := float64(allowance) - w.SmoothedCount(now)
	if left < 0 {
		return 0
	}
	return int64(left)
}

// Ensure MemoryCounterStore implements CounterStore
var _ governance.CounterStore = (*MemoryCounterStore)(nil)
