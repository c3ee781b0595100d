package sleep

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/the-momentum/open-wearables-sub000/internal/domain"
	"github.com/the-momentum/open-wearables-sub000/internal/observability"
)

// Recorder persists finalized sessions. RecordSleepSession must be idempotent
// under the record's dedupe key so a retried finalize never duplicates a row.
type Recorder interface {
	RecordSleepSession(ctx context.Context, record domain.EventRecord, detail domain.EventRecordDetail) error
}

// Config carries the reconstruction tunables.
type Config struct {
	// GapThreshold is the maximum silence between consecutive phase events
	// before the current session is finalized and a new one begun.
	GapThreshold time.Duration
	// RestartRequiresStartPhase controls whether the event that forces a
	// gap finalize must itself be a valid start phase to open the next
	// session. False reproduces the upstream behaviour where any phase
	// restarts after a gap; the start-phase rule then only applies from the
	// no-session state.
	RestartRequiresStartPhase bool
}

// Reconstructor folds per-user phase event streams into discrete sessions.
// Accumulator mutation happens under a per-user lock, so concurrent batches
// for different users proceed independently while one user's fold is serial.
type Reconstructor struct {
	store    AccumulatorStore
	recorder Recorder
	cfg      Config
	logger   *log.Logger

	mu    sync.Mutex
	locks map[string]*userLock
}

// userLock is a reference-counted mutex. The count lets the lock set drop an
// entry once the last holder releases it, so the map does not grow with the
// total number of users ever seen.
type userLock struct {
	mu   sync.Mutex
	refs int
}

// Option configures optional behaviour for the Reconstructor.
type Option func(*Reconstructor)

// WithLogger overrides the logger.
func WithLogger(logger *log.Logger) Option {
	return func(r *Reconstructor) {
		r.logger = logger
	}
}

// NewReconstructor constructs a Reconstructor.
func NewReconstructor(store AccumulatorStore, recorder Recorder, cfg Config, opts ...Option) *Reconstructor {
	if cfg.GapThreshold <= 0 {
		cfg.GapThreshold = time.Hour
	}
	r := &Reconstructor{
		store:    store,
		recorder: recorder,
		cfg:      cfg,
		logger:   log.New(log.Writer(), "[sleep] ", log.LstdFlags),
		locks:    make(map[string]*userLock),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// lockUser acquires the user's mutex, creating the entry on first use.
func (r *Reconstructor) lockUser(userID string) *userLock {
	r.mu.Lock()
	lock, ok := r.locks[userID]
	if !ok {
		lock = &userLock{}
		r.locks[userID] = lock
	}
	lock.refs++
	r.mu.Unlock()

	lock.mu.Lock()
	return lock
}

// unlockUser releases the user's mutex and prunes the entry when no other
// goroutine holds or waits on it.
func (r *Reconstructor) unlockUser(userID string, lock *userLock) {
	lock.mu.Unlock()

	r.mu.Lock()
	lock.refs--
	if lock.refs == 0 {
		delete(r.locks, userID)
	}
	r.mu.Unlock()
}

// Process folds one ordered batch of phase events for a user. Malformed events
// are dropped and logged, out-of-order events are dropped silently, and the
// rest of the batch continues either way.
func (r *Reconstructor) Process(ctx context.Context, userID, dataSourceID string, events []PhaseEvent) error {
	if userID == "" {
		return fmt.Errorf("user id is required")
	}

	lock := r.lockUser(userID)
	defer r.unlockUser(userID, lock)

	acc, err := r.store.Get(ctx, userID)
	if err != nil {
		return err
	}

	for _, event := range events {
		if event.Start.IsZero() || event.End.IsZero() || event.End.Before(event.Start) {
			recordMalformedDrop()
			r.logger.Printf("dropping malformed phase event for user=%s phase=%s start=%v end=%v", userID, event.Phase, event.Start, event.End)
			continue
		}

		acc, err = r.fold(ctx, userID, dataSourceID, acc, event)
		if err != nil {
			return err
		}
	}

	if acc != nil {
		if err := r.store.Put(ctx, userID, acc); err != nil {
			return err
		}
	}
	return nil
}

// fold applies one event against the current accumulator and returns the next
// accumulator state (nil for no active session).
func (r *Reconstructor) fold(ctx context.Context, userID, dataSourceID string, acc *Accumulator, event PhaseEvent) (*Accumulator, error) {
	if acc == nil {
		if !IsStartPhase(event.Phase) {
			return nil, nil
		}
		return newAccumulator(userID, dataSourceID, event), nil
	}

	delta := event.Start.Sub(acc.LastTimestamp)
	switch {
	case delta < 0:
		// Out of order relative to what we already folded; not an error.
		recordOutOfOrderDrop()
		return acc, nil

	case delta > r.cfg.GapThreshold:
		if err := r.finalize(ctx, acc); err != nil {
			return acc, err
		}
		if r.cfg.RestartRequiresStartPhase && !IsStartPhase(event.Phase) {
			return nil, nil
		}
		return newAccumulator(userID, dataSourceID, event), nil

	default:
		acc.add(event.Phase, int64(event.End.Sub(event.Start)/time.Second))
		if event.End.After(acc.LastTimestamp) {
			acc.LastTimestamp = event.End
		}
		return acc, nil
	}
}

func newAccumulator(userID, dataSourceID string, event PhaseEvent) *Accumulator {
	acc := &Accumulator{
		UserID:        userID,
		DataSourceID:  dataSourceID,
		ExternalID:    event.ExternalID,
		SourceLabel:   event.SourceLabel,
		DeviceID:      event.DeviceID,
		Start:         event.Start,
		LastTimestamp: event.End,
	}
	acc.add(event.Phase, int64(event.End.Sub(event.Start)/time.Second))
	return acc
}

// finalize persists the accumulator as one unified sleep session and removes
// it from the ephemeral store. The write is idempotent under the accumulator's
// external id; the store entry survives a failed write so a retry can finish
// the job.
func (r *Reconstructor) finalize(ctx context.Context, acc *Accumulator) error {
	duration := acc.LastTimestamp.Sub(acc.Start)
	totalSleepSec := acc.LightSec + acc.DeepSec + acc.RemSec

	record := domain.EventRecord{
		ID:           uuid.NewString(),
		UserID:       acc.UserID,
		DataSourceID: acc.DataSourceID,
		Category:     domain.CategorySleep,
		StartedAt:    acc.Start,
		EndedAt:      acc.LastTimestamp,
		DurationSec:  int64(duration / time.Second),
		DedupeKey:    dedupeKey(acc),
		CreatedAt:    time.Now().UTC(),
	}
	detail := domain.EventRecordDetail{
		EventID:       record.ID,
		InBedMin:      minutes(acc.InBedSec),
		AwakeMin:      minutes(acc.AwakeSec),
		LightMin:      minutes(acc.LightSec),
		DeepMin:       minutes(acc.DeepSec),
		RemMin:        minutes(acc.RemSec),
		TotalSleepMin: minutes(totalSleepSec),
		DurationMin:   minutes(int64(duration / time.Second)),
		// IsNap and Efficiency have no defined computation yet.
	}

	if err := r.recorder.RecordSleepSession(ctx, record, detail); err != nil {
		return fmt.Errorf("finalize sleep session for user %s: %w", acc.UserID, err)
	}
	if err := r.store.Delete(ctx, acc.UserID); err != nil {
		return err
	}
	recordSessionFinalized()
	observability.RecordEventPersisted(string(domain.CategorySleep), record.EndedAt)
	return nil
}

func dedupeKey(acc *Accumulator) string {
	if acc.ExternalID != "" {
		return fmt.Sprintf("sleep:%s:%s", acc.UserID, acc.ExternalID)
	}
	return fmt.Sprintf("sleep:%s:%d", acc.UserID, acc.Start.Unix())
}

func minutes(seconds int64) *int64 {
	m := seconds / 60
	return &m
}
