package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/blueprintdash/blueprintdash/pkg/types"
)

// Store is a thread-safe in-memory copy of the most recent blueprint
// collection, addressable by blueprint id. A background goroutine (Run)
// periodically evicts the collection if it has not been replaced within the
// configured TTL.
type Store struct {
	mu        sync.RWMutex
	items     []types.Blueprint
	index     map[string]int
	updatedAt time.Time
	ttl       time.Duration
	now       func() time.Time // injectable for deterministic tests
}

// New creates an empty Store with the given TTL.
func New(ttl time.Duration) *Store {
	return &Store{
		index: make(map[string]int),
		ttl:   ttl,
		now:   time.Now,
	}
}

// Replace swaps in bps as the current collection. Records without an id are
// kept for List but cannot be looked up with Get; for duplicate ids the first
// record wins. The slice is copied so callers may reuse it.
func (s *Store) Replace(bps []types.Blueprint) {
	items := make([]types.Blueprint, len(bps))
	copy(items, bps)
	index := make(map[string]int, len(items))
	for i, bp := range items {
		if bp.ID == "" {
			continue
		}
		if _, dup := index[bp.ID]; dup {
			slog.Warn("store: duplicate blueprint id", "id", bp.ID)
			continue
		}
		index[bp.ID] = i
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = items
	s.index = index
	s.updatedAt = s.now()
}

// Get returns the blueprint with the given id and whether it was found.
// A collection older than the TTL is treated as absent.
func (s *Store) Get(id string) (types.Blueprint, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.liveLocked() {
		return types.Blueprint{}, false
	}
	i, ok := s.index[id]
	if !ok {
		return types.Blueprint{}, false
	}
	return s.items[i], true
}

// List returns the collection in upstream order, or nil when nothing has been
// stored or the collection is stale. A live empty collection is an empty,
// non-nil slice. The returned slice is a copy.
func (s *Store) List() []types.Blueprint {
	out, _ := s.Snapshot()
	return out
}

// Snapshot is List plus the time the collection was last replaced.
// The zero time means nothing has been stored yet (or it was evicted).
func (s *Store) Snapshot() ([]types.Blueprint, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.liveLocked() {
		return nil, s.updatedAt
	}
	out := make([]types.Blueprint, len(s.items))
	copy(out, s.items)
	return out, s.updatedAt
}

// Count returns the number of records currently held, including a stale
// collection that has not been evicted yet.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Evict drops the collection if it was last replaced before now minus TTL.
// It returns the number of records removed.
func (s *Store) Evict(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updatedAt.IsZero() || s.updatedAt.After(now.Add(-s.ttl)) {
		return 0
	}
	n := len(s.items)
	s.items = nil
	s.index = make(map[string]int)
	s.updatedAt = time.Time{}
	return n
}

// Run starts the background TTL eviction loop. It ticks at half the TTL
// (minimum 1 second) and blocks until ctx is cancelled.
func (s *Store) Run(ctx context.Context) {
	interval := s.ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if n := s.Evict(now); n > 0 {
				slog.Info("store: evicted stale blueprints", "count", n)
			}
		}
	}
}

func (s *Store) liveLocked() bool {
	return !s.updatedAt.IsZero() && s.updatedAt.After(s.now().Add(-s.ttl))
}
