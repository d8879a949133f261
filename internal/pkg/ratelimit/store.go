package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Store counts requests per key over a sliding window. Implementations must
// be safe for concurrent use.
type Store interface {
	// Allow records one request for key and reports whether it fits within
	// limit requests per window.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type memoryStore struct {
	mu    sync.Mutex
	items map[string][]time.Time
	now   func() time.Time
}

// NewMemoryStore creates a single-process sliding-window store.
func NewMemoryStore() Store {
	return &memoryStore{items: make(map[string][]time.Time), now: time.Now}
}

func (s *memoryStore) Allow(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	if key == "" {
		return false, nil
	}

	now := s.now().UTC()
	cutoff := now.Add(-window)

	s.mu.Lock()
	defer s.mu.Unlock()

	stamps := s.items[key]
	kept := stamps[:0]
	for _, t := range stamps {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}

	if len(kept) >= limit {
		s.items[key] = kept
		return false, nil
	}

	s.items[key] = append(kept, now)
	return true, nil
}
