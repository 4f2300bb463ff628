package gate

import (
	"context"
	"sync"
	"time"

	"github.com/spec-kit/ticket-routing/internal/domain"
)

// RateLimitStore persists per-identifier sliding window state. Get returns
// nil without error for an unknown identifier.
type RateLimitStore interface {
	Get(ctx context.Context, identifier string) (*domain.RateLimitEntry, error)
	Put(ctx context.Context, entry *domain.RateLimitEntry) error
	Sweep(ctx context.Context, idleBefore time.Time) (int, error)
}

// MemoryRateLimitStore is a mutex-guarded map. The single lock is the first
// scaling bottleneck at high submission volume; swap in the redis store for
// a sharded deployment.
type MemoryRateLimitStore struct {
	mu      sync.Mutex
	entries map[string]*domain.RateLimitEntry
}

// NewMemoryRateLimitStore builds an empty store.
func NewMemoryRateLimitStore() *MemoryRateLimitStore {
	return &MemoryRateLimitStore{entries: make(map[string]*domain.RateLimitEntry)}
}

// Get returns a copy of the entry, nil when absent.
func (s *MemoryRateLimitStore) Get(ctx context.Context, identifier string) (*domain.RateLimitEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[identifier]
	if !ok {
		return nil, nil
	}
	copied := *entry
	if entry.BlockUntil != nil {
		until := *entry.BlockUntil
		copied.BlockUntil = &until
	}
	return &copied, nil
}

// Put stores the entry keyed by its identifier.
func (s *MemoryRateLimitStore) Put(ctx context.Context, entry *domain.RateLimitEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *entry
	if entry.BlockUntil != nil {
		until := *entry.BlockUntil
		copied.BlockUntil = &until
	}
	s.entries[entry.Identifier] = &copied
	return nil
}

// Sweep drops entries whose last request predates idleBefore.
func (s *MemoryRateLimitStore) Sweep(ctx context.Context, idleBefore time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dropped := 0
	for identifier, entry := range s.entries {
		if entry.LastRequest.Before(idleBefore) {
			delete(s.entries, identifier)
			dropped++
		}
	}
	return dropped, nil
}
