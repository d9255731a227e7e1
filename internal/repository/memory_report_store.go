package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"MarketPhase/internal/domain/models"
	drepo "MarketPhase/internal/domain/repository"
)

// MemoryReportStore keeps the last capacity reports in a ring.
type MemoryReportStore struct {
	mu   sync.RWMutex
	ring []*models.PhaseReport
	next int
	full bool
}

var _ drepo.ReportStore = (*MemoryReportStore)(nil)

func NewMemoryReportStore(capacity int) *MemoryReportStore {
	if capacity <= 0 {
		capacity = 500
	}
	return &MemoryReportStore{ring: make([]*models.PhaseReport, capacity)}
}

func (s *MemoryReportStore) Init(context.Context) error { return nil }

func (s *MemoryReportStore) Save(_ context.Context, r *models.PhaseReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ring[s.next] = r
	s.next = (s.next + 1) % len(s.ring)
	if s.next == 0 {
		s.full = true
	}
	return nil
}

// Range returns the reports inside [from, to], newest timestamp first.
// Concurrent analyses can save out of timestamp order.
func (s *MemoryReportStore) Range(_ context.Context, from, to time.Time, limit int) ([]*models.PhaseReport, error) {
	if limit <= 0 {
		return []*models.PhaseReport{}, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := s.next
	if s.full {
		n = len(s.ring)
	}
	out := make([]*models.PhaseReport, 0, n)
	// Newest insert first, so equal timestamps keep the later save ahead.
	for i := 1; i <= n; i++ {
		r := s.ring[(s.next-i+len(s.ring))%len(s.ring)]
		if r.Timestamp.Before(from) || r.Timestamp.After(to) {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryReportStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.full {
		return len(s.ring)
	}
	return s.next
}

func (s *MemoryReportStore) Health(context.Context) error { return nil }

func (s *MemoryReportStore) Close() error { return nil }
