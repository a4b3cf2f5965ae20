package governance

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/erp/governance/internal/domain/governance"
	"github.com/erp/governance/internal/domain/shared"
)

// AdmissionRequest identifies one unit of work asking to pass the rate
// limiter.
type AdmissionRequest struct {
	TenantID string
	APIKeyID string
	Endpoint string
	Cost     int64 // defaults to 1
}

// AdmissionDecision is the outcome of an admission check. On rejection
// RetryAfter carries the wait until the binding window resets.
type AdmissionDecision struct {
	Allowed     bool
	Granularity governance.Granularity // the binding (rejecting or tightest) window
	Limit       int64
	Remaining   int64
	ResetAfter  time.Duration
	RetryAfter  time.Duration
}

// KeyStats is the per-key admission tally since the last reset, used by
// anomaly detection.
type KeyStats struct {
	Allowed  int64
	Rejected int64
}

// RejectedRatio returns the share of rejected requests, 0 with no traffic
func (s KeyStats) RejectedRatio() float64 {
	total := s.Allowed + s.Rejected
	if total == 0 {
		return 0
	}
	return float64(s.Rejected) / float64(total)
}

// AdmissionService is the request-path rate limiter. It resolves effective
// limits, then checks every configured window from shortest to longest,
// refunding shorter windows when a longer one rejects so a denied request
// consumes nothing.
type AdmissionService struct {
	counters governance.CounterStore
	resolver *ResolverService
	clock    shared.Clock
	logger   *zap.Logger

	statsMu sync.Mutex
	stats   map[string]*KeyStats
}

// NewAdmissionService creates a new AdmissionService
func NewAdmissionService(counters governance.CounterStore, resolver *ResolverService, clock shared.Clock, logger *zap.Logger) *AdmissionService {
	return &AdmissionService{
		counters: counters,
		resolver: resolver,
		clock:    clock,
		logger:   logger,
		stats:    make(map[string]*KeyStats),
	}
}

// AdmissionKey builds the counter key for a request context. The most
// specific available identity wins so API keys and endpoints count
// independently of their tenant's other traffic.
func AdmissionKey(tenantID, apiKeyID, endpoint string) string {
	parts := []string{tenantID}
	if apiKeyID != "" {
		parts = append(parts, apiKeyID)
	}
	if endpoint != "" {
		parts = append(parts, endpoint)
	}
	return strings.Join(parts, "|")
}

// Admit runs the admission check. Counter store failures are logged and the
// request is admitted: an unavailable limiter must never take the business
// operations down with it.
func (s *AdmissionService) Admit(ctx context.Context, req AdmissionRequest) AdmissionDecision {
	if req.Cost <= 0 {
		req.Cost = 1
	}
	now := s.clock.Now()
	key := AdmissionKey(req.TenantID, req.APIKeyID, req.Endpoint)
	limits := s.resolver.Resolve(ctx, req.TenantID, req.APIKeyID, req.Endpoint)

	type admitted struct {
		g governance.Granularity
	}
	var counted []admitted
	var tightest *governance.WindowDecision

	for _, g := range governance.Granularities() {
		limit := limits.Limit(g)
		if limit <= 0 {
			continue
		}
		allowance := limit + limits.BurstLimit

		decision, err := s.counters.Increment(ctx, key, g, now, req.Cost, allowance)
		if err != nil {
			s.logger.Error("Counter store failed, admitting request",
				zap.String("key", key),
				zap.String("granularity", g.String()),
				zap.Error(err))
			continue
		}

		if !decision.Allowed {
			// Hand back what the shorter windows already counted.
			for _, a := range counted {
				if refundErr := s.counters.Refund(ctx, key, a.g, now, req.Cost); refundErr != nil {
					s.logger.Warn("Failed to refund admitted window",
						zap.String("key", key),
						zap.String("granularity", a.g.String()),
						zap.Error(refundErr))
				}
			}
			s.record(key, false)
			return AdmissionDecision{
				Allowed:     false,
				Granularity: g,
				Limit:       limit,
				Remaining:   decision.Remaining,
				ResetAfter:  decision.ResetAfter,
				RetryAfter:  decision.ResetAfter,
			}
		}

		counted = append(counted, admitted{g: g})
		if tightest == nil || decision.Remaining < tightest.Remaining {
			d := decision
			d.Limit = limit
			tightest = &d
		}
	}

	s.record(key, true)
	if tightest == nil {
		// No window configured or the store was down for all of them.
		return AdmissionDecision{Allowed: true}
	}
	return AdmissionDecision{
		Allowed:     true,
		Granularity: tightest.Granularity,
		Limit:       tightest.Limit,
		Remaining:   tightest.Remaining,
		ResetAfter:  tightest.ResetAfter,
	}
}

// Peek reports the current state of the tightest configured window without
// consuming
func (s *AdmissionService) Peek(ctx context.Context, req AdmissionRequest) (AdmissionDecision, error) {
	now := s.clock.Now()
	key := AdmissionKey(req.TenantID, req.APIKeyID, req.Endpoint)
	limits := s.resolver.Resolve(ctx, req.TenantID, req.APIKeyID, req.Endpoint)

	var tightest *governance.WindowDecision
	for _, g := range governance.Granularities() {
		limit := limits.Limit(g)
		if limit <= 0 {
			continue
		}
		decision, err := s.counters.Peek(ctx, key, g, now, limit+limits.BurstLimit)
		if err != nil {
			return AdmissionDecision{}, err
		}
		if tightest == nil || decision.Remaining < tightest.Remaining {
			d := decision
			d.Limit = limit
			tightest = &d
		}
	}
	if tightest == nil {
		return AdmissionDecision{Allowed: true}, nil
	}
	return AdmissionDecision{
		Allowed:     tightest.Allowed,
		Granularity: tightest.Granularity,
		Limit:       tightest.Limit,
		Remaining:   tightest.Remaining,
		ResetAfter:  tightest.ResetAfter,
	}, nil
}

// ResetState drops all counting state and statistics for a key. Admin
// operation used after config changes or for support interventions.
func (s *AdmissionService) ResetState(ctx context.Context, key string) error {
	if err := s.counters.Reset(ctx, key); err != nil {
		return err
	}
	s.statsMu.Lock()
	delete(s.stats, key)
	s.statsMu.Unlock()
	return nil
}

// record updates the per-key admission tally
func (s *AdmissionService) record(key string, allowed bool) {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	st, ok := s.stats[key]
	if !ok {
		st = &KeyStats{}
		s.stats[key] = st
	}
	if allowed {
		st.Allowed++
	} else {
		st.Rejected++
	}
}

// Stats returns a snapshot of every key's admission tally
func (s *AdmissionService) Stats() map[string]KeyStats {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	out := make(map[string]KeyStats, len(s.stats))
	for key, st := range s.stats {
		out[key] = *st
	}
	return out
}

// ResetStats clears the admission tallies after an anomaly sweep
func (s *AdmissionService) ResetStats() {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	s.stats = make(map[string]*KeyStats)
}
