package store

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/mvakit/mvakit/internal/pipeline"
)

// Entry is a result together with the time it was stored.
type Entry struct {
	Result    *pipeline.Result
	UpdatedAt time.Time
}

// Store is a thread-safe in-memory result store, keyed by event id. A
// background goroutine (Run) periodically evicts entries older than the
// configured TTL.
type Store struct {
	mu   sync.RWMutex
	data map[string]*Entry
	ttl  time.Duration
	now  func() time.Time // injectable for deterministic tests
}

// New creates a Store with the given TTL.
func New(ttl time.Duration) *Store {
	return &Store{
		data: make(map[string]*Entry),
		ttl:  ttl,
		now:  time.Now,
	}
}

// TTL returns the configured retention duration.
func (s *Store) TTL() time.Duration { return s.ttl }

// Put stores or replaces the result for res.EventID. Callers must not
// modify res after calling Put.
func (s *Store) Put(res *pipeline.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[res.EventID] = &Entry{
		Result:    res,
		UpdatedAt: s.now(),
	}
}

// Get returns the Entry for the given event id and whether one was found.
func (s *Store) Get(eventID string) (*Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.data[eventID]
	return e, ok
}

// List returns all live entries, newest first. Stale entries that have not
// yet been evicted are excluded.
func (s *Store) List() []*Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cutoff := s.now().Add(-s.ttl)
	out := make([]*Entry, 0, len(s.data))
	for _, e := range s.data {
		if e.UpdatedAt.After(cutoff) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out
}

// Count returns the total number of entries currently held, including stale
// ones.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Evict removes entries stored longer ago than the TTL. It returns the
// number of entries removed.
func (s *Store) Evict(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := now.Add(-s.ttl)
	removed := 0
	for id, e := range s.data {
		if !e.UpdatedAt.After(cutoff) {
			delete(s.data, id)
			removed++
		}
	}
	return removed
}

// Run starts the background TTL eviction loop. It ticks at half the TTL
// interval (minimum 1 second) so entries are evicted promptly. Run blocks
// until ctx is cancelled.
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
				slog.Debug("store: evicted stale results", "count", n)
			}
		}
	}
}
