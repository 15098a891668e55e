package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"whistlemcp/internal/domain"
)

// Store counts requests for a key within a trailing window. CheckAndRecord
// must treat prune-check-append as one logical step per key: a rejected
// request is never recorded, an allowed one always is.
type Store interface {
	CheckAndRecord(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// Limiter applies the fixed per-tool budgets over a Store. The store is an
// interface so the in-memory default can be swapped for the Redis store
// without touching call sites.
type Limiter struct {
	store  Store
	logger *zap.Logger
}

func NewLimiter(store Store, logger *zap.Logger) *Limiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Limiter{
		store:  store,
		logger: logger.Named("ratelimit"),
	}
}

// Allow returns nil when the call may proceed, or a RESOURCE_EXHAUSTED
// error when the key's budget for the tool is spent. Store failures fail
// open: the limiter is a best-effort abuse guard, not a correctness gate.
func (l *Limiter) Allow(ctx context.Context, tool, key string) error {
	limit := domain.RateLimitFor(tool)
	allowed, err := l.store.CheckAndRecord(ctx, key, limit, domain.RateLimitWindow)
	if err != nil {
		l.logger.Warn("rate limit store unavailable, allowing request",
			zap.String("tool", tool),
			zap.Error(err),
		)
		return nil
	}
	if !allowed {
		return domain.E(domain.CodeResourceExhausted, "ratelimit.allow",
			fmt.Sprintf("Rate limit exceeded for %s. Please try again later.", tool), nil)
	}
	return nil
}

// MemoryStore keeps per-key request timestamps in process memory. Entries
// older than the window are pruned lazily on each check; state resets on
// process restart.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string][]time.Time
	now     func() time.Time
}

type MemoryStoreOption func(*MemoryStore)

// WithClock overrides the time source, used by tests to move the window.
func WithClock(now func() time.Time) MemoryStoreOption {
	return func(s *MemoryStore) { s.now = now }
}

func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	s := &MemoryStore{
		entries: make(map[string][]time.Time),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) CheckAndRecord(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := s.now()
	cutoff := now.Add(-window)

	s.mu.Lock()
	defer s.mu.Unlock()

	stamps := s.entries[key]
	kept := stamps[:0]
	for _, stamp := range stamps {
		if stamp.After(cutoff) {
			kept = append(kept, stamp)
		}
	}

	if len(kept) >= limit {
		s.entries[key] = kept
		return false, nil
	}

	s.entries[key] = append(kept, now)
	return true, nil
}

// Len reports the live entry count for a key; exposed for tests.
func (s *MemoryStore) Len(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries[key])
}
