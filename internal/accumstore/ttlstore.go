// Package accumstore provides the ephemeral TTL-bounded keyed store holding
// in-flight sleep accumulators.
package accumstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/the-momentum/open-wearables-sub000/internal/sleep"
)

// TTLStore implements sleep.AccumulatorStore on an in-process cache with
// per-entry TTL. An abandoned accumulator expires once its TTL elapses, which
// is why the sweep process should run well inside the TTL window.
type TTLStore struct {
	cache *gocache.Cache

	mu   sync.Mutex
	open map[string]struct{}
}

// NewTTLStore constructs a store whose entries live for ttl after their last
// write. Expired entries are reaped roughly twice per TTL window.
func NewTTLStore(ttl time.Duration) *TTLStore {
	if ttl <= 0 {
		ttl = 6 * time.Hour
	}
	store := &TTLStore{
		cache: gocache.New(ttl, ttl/2),
		open:  make(map[string]struct{}),
	}
	store.cache.OnEvicted(func(key string, _ interface{}) {
		store.mu.Lock()
		delete(store.open, key)
		store.mu.Unlock()
	})
	return store
}

// Get returns the user's open accumulator, or nil when none exists.
func (s *TTLStore) Get(_ context.Context, userID string) (*sleep.Accumulator, error) {
	value, ok := s.cache.Get(userID)
	if !ok {
		return nil, nil
	}
	acc, ok := value.(*sleep.Accumulator)
	if !ok {
		return nil, fmt.Errorf("unexpected accumulator type %T for user %s", value, userID)
	}
	clone := *acc
	return &clone, nil
}

// Put stores the accumulator and refreshes its TTL.
func (s *TTLStore) Put(_ context.Context, userID string, acc *sleep.Accumulator) error {
	clone := *acc
	s.cache.Set(userID, &clone, gocache.DefaultExpiration)
	s.mu.Lock()
	s.open[userID] = struct{}{}
	s.mu.Unlock()
	return nil
}

// Delete removes the user's accumulator. Deleting an absent key is a no-op.
func (s *TTLStore) Delete(_ context.Context, userID string) error {
	s.cache.Delete(userID)
	s.mu.Lock()
	delete(s.open, userID)
	s.mu.Unlock()
	return nil
}

// OpenUsers lists users with an open accumulator. Entries that expired between
// index and cache reads are skipped.
func (s *TTLStore) OpenUsers(_ context.Context) ([]string, error) {
	s.mu.Lock()
	candidates := make([]string, 0, len(s.open))
	for userID := range s.open {
		candidates = append(candidates, userID)
	}
	s.mu.Unlock()

	users := candidates[:0]
	for _, userID := range candidates {
		if _, ok := s.cache.Get(userID); ok {
			users = append(users, userID)
		}
	}
	return users, nil
}
