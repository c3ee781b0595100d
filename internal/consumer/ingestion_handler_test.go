package consumer

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/the-momentum/open-wearables-sub000/internal/domain"
	"github.com/the-momentum/open-wearables-sub000/internal/identity"
	"github.com/the-momentum/open-wearables-sub000/internal/sleep"
)

// memSourceRepo backs the identity resolver in handler tests.
type memSourceRepo struct {
	mu      sync.Mutex
	sources map[domain.IdentityKey]*domain.DataSource
}

func newMemSourceRepo() *memSourceRepo {
	return &memSourceRepo{sources: make(map[domain.IdentityKey]*domain.DataSource)}
}

func (m *memSourceRepo) FindByIdentity(_ context.Context, provider domain.Provider, key domain.IdentityKey) (*domain.DataSource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	source, ok := m.sources[key]
	if !ok || source.Provider != provider {
		return nil, nil
	}
	clone := *source
	return &clone, nil
}

func (m *memSourceRepo) Insert(_ context.Context, source domain.DataSource) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := source.Identity()
	if _, exists := m.sources[key]; exists {
		return false, nil
	}
	clone := source
	m.sources[key] = &clone
	return true, nil
}

func (m *memSourceRepo) FillOptionalFields(_ context.Context, _ domain.DataSource) error {
	return nil
}

func (m *memSourceRepo) FindByIdentities(_ context.Context, provider domain.Provider, keys []domain.IdentityKey) ([]domain.DataSource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	found := make([]domain.DataSource, 0, len(keys))
	for _, key := range keys {
		if source, ok := m.sources[key]; ok && source.Provider == provider {
			found = append(found, *source)
		}
	}
	return found, nil
}

func (m *memSourceRepo) InsertBatch(_ context.Context, sources []domain.DataSource) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, source := range sources {
		key := source.Identity()
		if _, exists := m.sources[key]; exists {
			continue
		}
		clone := source
		m.sources[key] = &clone
	}
	return nil
}

type noopProvisioner struct{}

func (noopProvisioner) EnsureProviderPriority(context.Context, domain.Provider) error { return nil }

// memAccStore is a minimal sleep.AccumulatorStore for handler tests.
type memAccStore struct {
	mu      sync.Mutex
	entries map[string]*sleep.Accumulator
}

func newMemAccStore() *memAccStore {
	return &memAccStore{entries: make(map[string]*sleep.Accumulator)}
}

func (m *memAccStore) Get(_ context.Context, userID string) (*sleep.Accumulator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.entries[userID]
	if !ok {
		return nil, nil
	}
	clone := *acc
	return &clone, nil
}

func (m *memAccStore) Put(_ context.Context, userID string, acc *sleep.Accumulator) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *acc
	m.entries[userID] = &clone
	return nil
}

func (m *memAccStore) Delete(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, userID)
	return nil
}

func (m *memAccStore) OpenUsers(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	users := make([]string, 0, len(m.entries))
	for userID := range m.entries {
		users = append(users, userID)
	}
	return users, nil
}

// captureEvents records workouts and sleep sessions handed to persistence.
type captureEvents struct {
	mu       sync.Mutex
	workouts []domain.EventRecord
	details  []domain.EventRecordDetail
	sleeps   []domain.EventRecord
}

func (c *captureEvents) RecordWorkout(_ context.Context, record domain.EventRecord, detail domain.EventRecordDetail) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.workouts = append(c.workouts, record)
	c.details = append(c.details, detail)
	return nil
}

func (c *captureEvents) RecordSleepSession(_ context.Context, record domain.EventRecord, _ domain.EventRecordDetail) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, record)
	return nil
}

type handlerFixture struct {
	handler *IngestionHandler
	sources *memSourceRepo
	store   *memAccStore
	events  *captureEvents
}

func newHandlerFixture(t *testing.T) handlerFixture {
	t.Helper()
	logger := log.New(testWriter{t}, "", 0)
	sources := newMemSourceRepo()
	store := newMemAccStore()
	events := &captureEvents{}

	identities := identity.NewResolver(sources, noopProvisioner{}, identity.WithLogger(logger))
	sessions := sleep.NewReconstructor(store, events, sleep.Config{GapThreshold: time.Hour}, sleep.WithLogger(logger))
	return handlerFixture{
		handler: NewIngestionHandler(identities, sessions, events, logger),
		sources: sources,
		store:   store,
		events:  events,
	}
}

func mustMessage(t *testing.T, eventType string, payload any) Message {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return Message{EventType: eventType, Payload: raw}
}

var workoutStart = time.Date(2025, time.March, 10, 7, 0, 0, 0, time.UTC)

func TestHandleWorkoutRecorded(t *testing.T) {
	fx := newHandlerFixture(t)
	ctx := context.Background()

	avgHR := 148.0
	msg := mustMessage(t, EventWorkoutRecorded, WorkoutRecorded{
		UserID:       "user-1",
		Provider:     "garmin",
		DeviceModel:  "Forerunner 265",
		VendorCode:   "trail_running",
		ExternalID:   "g-123",
		StartedAt:    workoutStart,
		EndedAt:      workoutStart.Add(45 * time.Minute),
		AvgHeartRate: &avgHR,
	})
	require.NoError(t, fx.handler.Handle(ctx, msg))

	require.Len(t, fx.events.workouts, 1)
	record := fx.events.workouts[0]
	require.Equal(t, domain.CategoryWorkout, record.Category)
	require.Equal(t, domain.WorkoutRunning, record.WorkoutType)
	require.Equal(t, int64(45*60), record.DurationSec)
	require.Equal(t, "workout:user-1:g-123", record.DedupeKey)
	require.NotEmpty(t, record.DataSourceID)
	require.NoError(t, uuid.Validate(record.ID))
	require.Equal(t, avgHR, *fx.events.details[0].AvgHeartRate)

	// The identity was created as part of handling.
	require.Len(t, fx.sources.sources, 1)
}

func TestHandleWorkoutCompositeVendorCode(t *testing.T) {
	fx := newHandlerFixture(t)
	ctx := context.Background()

	msg := mustMessage(t, EventWorkoutRecorded, WorkoutRecorded{
		UserID:           "user-1",
		Provider:         "polar",
		VendorCode:       "FITNESS_CLASS",
		VendorCodeDetail: "PILATES",
		StartedAt:        workoutStart,
		EndedAt:          workoutStart.Add(30 * time.Minute),
	})
	require.NoError(t, fx.handler.Handle(ctx, msg))

	require.Len(t, fx.events.workouts, 1)
	require.Equal(t, domain.WorkoutPilates, fx.events.workouts[0].WorkoutType)
}

func TestHandleWorkoutInvalidIntervalIsDropped(t *testing.T) {
	fx := newHandlerFixture(t)
	ctx := context.Background()

	msg := mustMessage(t, EventWorkoutRecorded, WorkoutRecorded{
		UserID:     "user-1",
		Provider:   "garmin",
		VendorCode: "running",
		StartedAt:  workoutStart,
		EndedAt:    workoutStart.Add(-time.Minute),
	})
	require.NoError(t, fx.handler.Handle(ctx, msg))
	require.Empty(t, fx.events.workouts)
}

func TestHandleWorkoutUnknownProviderFails(t *testing.T) {
	fx := newHandlerFixture(t)

	msg := mustMessage(t, EventWorkoutRecorded, WorkoutRecorded{
		UserID:     "user-1",
		Provider:   "pebble",
		VendorCode: "running",
		StartedAt:  workoutStart,
		EndedAt:    workoutStart.Add(time.Minute),
	})
	require.ErrorIs(t, fx.handler.Handle(context.Background(), msg), domain.ErrUnknownProvider)
}

func TestHandleWorkoutBatch(t *testing.T) {
	fx := newHandlerFixture(t)
	ctx := context.Background()

	msg := mustMessage(t, EventWorkoutBatch, WorkoutBatch{
		Provider: "fitbit",
		Workouts: []WorkoutRecorded{
			{
				UserID:      "user-1",
				DeviceModel: "Charge 6",
				VendorCode:  "Run",
				StartedAt:   workoutStart,
				EndedAt:     workoutStart.Add(30 * time.Minute),
			},
			{
				UserID:      "user-2",
				DeviceModel: "Sense 2",
				VendorCode:  "Weights",
				StartedAt:   workoutStart,
				EndedAt:     workoutStart.Add(40 * time.Minute),
			},
			// Invalid interval: skipped, the rest of the batch proceeds.
			{
				UserID:     "user-3",
				VendorCode: "Run",
			},
		},
	})
	require.NoError(t, fx.handler.Handle(ctx, msg))

	require.Len(t, fx.events.workouts, 2)
	require.Equal(t, domain.WorkoutRunning, fx.events.workouts[0].WorkoutType)
	require.Equal(t, domain.WorkoutStrengthTraining, fx.events.workouts[1].WorkoutType)
	// Every surviving record points at a resolved data source.
	for _, record := range fx.events.workouts {
		require.NotEmpty(t, record.DataSourceID)
	}
	require.Len(t, fx.sources.sources, 3)
}

func TestHandleSleepPhases(t *testing.T) {
	fx := newHandlerFixture(t)
	ctx := context.Background()

	msg := mustMessage(t, EventSleepPhases, SleepPhases{
		UserID:      "user-1",
		Provider:    "apple",
		DeviceModel: "Apple Watch Series 9",
		Phases: []SleepPhaseEvent{
			{Phase: "IN_BED", StartedAt: workoutStart, EndedAt: workoutStart.Add(5 * time.Minute)},
			{Phase: "asleep_core", StartedAt: workoutStart.Add(5 * time.Minute), EndedAt: workoutStart.Add(35 * time.Minute)},
			// Unknown phase: dropped, the batch continues.
			{Phase: "levitating", StartedAt: workoutStart.Add(35 * time.Minute), EndedAt: workoutStart.Add(40 * time.Minute)},
		},
	})
	require.NoError(t, fx.handler.Handle(ctx, msg))

	acc, err := fx.store.Get(ctx, "user-1")
	require.NoError(t, err)
	require.NotNil(t, acc)
	require.Equal(t, int64(5*60), acc.InBedSec)
	require.Equal(t, int64(30*60), acc.LightSec)
	require.NotEmpty(t, acc.DataSourceID)
}

func TestHandleUnknownEventTypeIsSkipped(t *testing.T) {
	fx := newHandlerFixture(t)

	msg := Message{EventType: "heart_rate.samples", Payload: json.RawMessage(`{}`)}
	require.NoError(t, fx.handler.Handle(context.Background(), msg))
	require.Empty(t, fx.events.workouts)
}
