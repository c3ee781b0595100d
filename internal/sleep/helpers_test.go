package sleep

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/the-momentum/open-wearables-sub000/internal/domain"
)

// memStore is an in-memory AccumulatorStore for tests.
type memStore struct {
	mu             sync.Mutex
	entries        map[string]*Accumulator
	failNextDelete bool
}

func newMemStore() *memStore {
	return &memStore{entries: make(map[string]*Accumulator)}
}

func (s *memStore) Get(_ context.Context, userID string) (*Accumulator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.entries[userID]
	if !ok {
		return nil, nil
	}
	clone := *acc
	return &clone, nil
}

func (s *memStore) Put(_ context.Context, userID string, acc *Accumulator) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *acc
	s.entries[userID] = &clone
	return nil
}

func (s *memStore) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNextDelete {
		s.failNextDelete = false
		return errors.New("store unavailable")
	}
	delete(s.entries, userID)
	return nil
}

func (s *memStore) OpenUsers(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users := make([]string, 0, len(s.entries))
	for userID := range s.entries {
		users = append(users, userID)
	}
	return users, nil
}

// captureRecorder stores finalized sessions, deduplicating on the record's
// dedupe key like the real repository does.
type captureRecorder struct {
	mu      sync.Mutex
	calls   int
	records []domain.EventRecord
	details []domain.EventRecordDetail
}

func (r *captureRecorder) RecordSleepSession(_ context.Context, record domain.EventRecord, detail domain.EventRecordDetail) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	for _, existing := range r.records {
		if existing.DedupeKey == record.DedupeKey {
			return nil
		}
	}
	r.records = append(r.records, record)
	r.details = append(r.details, detail)
	return nil
}

type testWriter struct {
	t *testing.T
}

func (tw testWriter) Write(p []byte) (int, error) {
	tw.t.Log(string(p))
	return len(p), nil
}
