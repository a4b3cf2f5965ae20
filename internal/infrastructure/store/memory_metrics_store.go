package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/erp/governance/internal/domain/governance"
)

// MemoryMetricsStore implements MetricsStore with per-tenant in-process
// sample slices. Queries copy the matching samples out under the read lock,
// so a concurrent Purge can never mutate a result set a reader is holding.
type MemoryMetricsStore struct {
	mu      sync.RWMutex
	samples map[uuid.UUID][]governance.MetricSample
}

// NewMemoryMetricsStore creates an empty in-memory metrics store
func NewMemoryMetricsStore() *MemoryMetricsStore {
	return &MemoryMetricsStore{
		samples: make(map[uuid.UUID][]governance.MetricSample),
	}
}

// Record appends a sample
func (s *MemoryMetricsStore) Record(ctx context.Context, sample governance.MetricSample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.samples[sample.TenantID] = append(s.samples[sample.TenantID], sample)
	return nil
}

// matches reports whether the sample falls inside the filter
func matches(sample governance.MetricSample, filter governance.MetricFilter) bool {
	if filter.Name != "" && sample.Name != filter.Name {
		return false
	}
	if sample.Timestamp.Before(filter.Start) {
		return false
	}
	if !filter.End.IsZero() && !sample.Timestamp.Before(filter.End) {
		return false
	}
	return true
}

// Query returns matching samples ordered by timestamp descending
func (s *MemoryMetricsStore) Query(ctx context.Context, tenantID uuid.UUID, filter governance.MetricFilter) ([]governance.MetricSample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []governance.MetricSample
	for _, sample := range s.samples[tenantID] {
		if matches(sample, filter) {
			out = append(out, sample)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out, nil
}

// Values returns the raw values for one metric in [start, end)
func (s *MemoryMetricsStore) Values(ctx context.Context, tenantID uuid.UUID, name string, start, end time.Time) ([]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	filter := governance.MetricFilter{Name: name, Start: start, End: end}
	var values []float64
	for _, sample := range s.samples[tenantID] {
		if matches(sample, filter) {
			values = append(values, sample.Value)
		}
	}
	return values, nil
}

// Purge drops samples recorded before the cutoff and returns the count
func (s *MemoryMetricsStore) Purge(ctx context.Context, tenantID uuid.UUID, before time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	old := s.samples[tenantID]
	kept := old[:0:0]
	for _, sample := range old {
		if !sample.Timestamp.Before(before) {
			kept = append(kept, sample)
		}
	}
	purged := len(old) - len(kept)
	if len(kept) == 0 {
		delete(s.samples, tenantID)
	} else {
		s.samples[tenantID] = kept
	}
	return purged, nil
}

// TenantIDs returns every tenant with recorded samples (for the reaper)
func (s *MemoryMetricsStore) TenantIDs(ctx context.Context) []uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]uuid.UUID, 0, len(s.samples))
	for id := range s.samples {
		ids = append(ids, id)
	}
	return ids
}

// Ensure MemoryMetricsStore implements MetricsStore
var _ governance.MetricsStore = (*MemoryMetricsStore)(nil)
