package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/erp/governance/internal/domain/governance"
)

// RedisCounterStore implements CounterStore on Redis, for deployments where
// multiple instances must share rate-limit state. Each (key, granularity,
// window) triple maps to one Redis key holding a plain integer count; the
// previous window's key stays readable for one extra window length so the
// boundary smoothing can weigh it in.
//
// Atomicity follows the increment-then-refund pattern: INCRBY counts the
// request unconditionally, and when the smoothed total lands over the
// allowance the same cost is handed back with DECRBY. Two racing callers can
// both observe the post-increment total, but never both land inside the
// allowance.
type RedisCounterStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisCounterStore creates a counter store on an existing Redis client
func NewRedisCounterStore(client *redis.Client, keyPrefix string) *RedisCounterStore {
	if keyPrefix == "" {
		keyPrefix = "governance:rl:"
	}
	return &RedisCounterStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// windowKey builds the Redis key for one counting window
func (s *RedisCounterStore) windowKey(key string, g governance.Granularity, windowStart time.Time) string {
	return fmt.Sprintf("%s%s:%s:%d", s.keyPrefix, key, g, windowStart.Unix())
}

// prevCount reads the previous window's final count; a missing key means the
// previous window saw no traffic
func (s *RedisCounterStore) prevCount(ctx context.Context, key string, g governance.Granularity, windowStart time.Time) (int64, error) {
	prev, err := s.client.Get(ctx, s.windowKey(key, g, windowStart.Add(-g.Duration()))).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read previous window count: %w", err)
	}
	return prev, nil
}

// Increment counts cost, then refunds it when the smoothed total exceeds the
// allowance
func (s *RedisCounterStore) Increment(ctx context.Context, key string, g governance.Granularity, now time.Time, cost, allowance int64) (governance.WindowDecision, error) {
	windowStart := g.WindowStart(now)
	curKey := s.windowKey(key, g, windowStart)

	prev, err := s.prevCount(ctx, key, g, windowStart)
	if err != nil {
		return governance.WindowDecision{}, err
	}

	pipe := s.client.TxPipeline()
	incr := pipe.IncrBy(ctx, curKey, cost)
	// Keep the key one extra window so the next window can read it as its
	// previous count.
	pipe.Expire(ctx, curKey, 2*g.Duration())
	if _, err := pipe.Exec(ctx); err != nil {
		return governance.WindowDecision{}, fmt.Errorf("failed to increment counter: %w", err)
	}

	w := governance.CounterWindow{
		Key:         key,
		Granularity: g,
		WindowStart: windowStart,
		Count:       incr.Val(),
		PrevCount:   prev,
	}

	decision := governance.WindowDecision{
		Granularity: g,
		Limit:       allowance,
		ResetAfter:  w.ResetAfter(now),
	}

	if w.SmoothedCount(now) > float64(allowance) {
		if err := s.client.DecrBy(ctx, curKey, cost).Err(); err != nil {
			return governance.WindowDecision{}, fmt.Errorf("failed to refund rejected increment: %w", err)
		}
		w.Count -= cost
		decision.Remaining = remaining(&w, now, allowance)
		return decision, nil
	}

	decision.Allowed = true
	decision.Remaining = remaining(&w, now, allowance)
	return decision, nil
}

// Refund undoes a previously admitted increment
func (s *RedisCounterStore) Refund(ctx context.Context, key string, g governance.Granularity, now time.Time, cost int64) error {
	curKey := s.windowKey(key, g, g.WindowStart(now))
	if err := s.client.DecrBy(ctx, curKey, cost).Err(); err != nil {
		return fmt.Errorf("failed to refund counter: %w", err)
	}
	return nil
}

// Peek returns decision state without counting
func (s *RedisCounterStore) Peek(ctx context.Context, key string, g governance.Granularity, now time.Time, allowance int64) (governance.WindowDecision, error) {
	windowStart := g.WindowStart(now)

	cur, err := s.client.Get(ctx, s.windowKey(key, g, windowStart)).Int64()
	if err == redis.Nil {
		cur = 0
	} else if err != nil {
		return governance.WindowDecision{}, fmt.Errorf("failed to read window count: %w", err)
	}

	prev, err := s.prevCount(ctx, key, g, windowStart)
	if err != nil {
		return governance.WindowDecision{}, err
	}

	w := governance.CounterWindow{
		Key:         key,
		Granularity: g,
		WindowStart: windowStart,
		Count:       cur,
		PrevCount:   prev,
	}
	return governance.WindowDecision{
		Allowed:     w.SmoothedCount(now) < float64(allowance),
		Granularity: g,
		Limit:       allowance,
		Remaining:   remaining(&w, now, allowance),
		ResetAfter:  w.ResetAfter(now),
	}, nil
}

// Reset drops all counting state for a key across every granularity and
// window
func (s *RedisCounterStore) Reset(ctx context.Context, key string) error {
	var cursor uint64
	pattern := s.keyPrefix + key + ":*"
	for {
		keys, next, err := s.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return fmt.Errorf("failed to scan counter keys: %w", err)
		}
		if len(keys) > 0 {
			if err := s.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("failed to delete counter keys: %w", err)
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

// Sweep is a no-op: Redis key TTLs reap expired windows
func (s *RedisCounterStore) Sweep(ctx context.Context, now time.Time) int {
	return 0
}

// Ensure RedisCounterStore implements CounterStore
var _ governance.CounterStore = (*RedisCounterStore)(nil)
