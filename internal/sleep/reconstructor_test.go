package sleep

import (
	"context"
	"fmt"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/the-momentum/open-wearables-sub000/internal/domain"
)

var base = time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)

func at(minutes int) time.Time {
	return base.Add(time.Duration(minutes) * time.Minute)
}

func event(phase Phase, startMin, endMin int) PhaseEvent {
	return PhaseEvent{
		Phase:       phase,
		Start:       at(startMin),
		End:         at(endMin),
		ExternalID:  fmt.Sprintf("ext-%d", startMin),
		SourceLabel: "SleepTracker",
	}
}

func newTestReconstructor(t *testing.T, cfg Config) (*Reconstructor, *memStore, *captureRecorder) {
	t.Helper()
	store := newMemStore()
	recorder := &captureRecorder{}
	recon := NewReconstructor(store, recorder, cfg, WithLogger(log.New(testWriter{t}, "", 0)))
	return recon, store, recorder
}

func TestAccumulatesSingleSession(t *testing.T) {
	recon, store, recorder := newTestReconstructor(t, Config{GapThreshold: 60 * time.Minute})
	ctx := context.Background()

	events := []PhaseEvent{
		event(PhaseInBed, 0, 5),
		event(PhaseCore, 5, 35),
		event(PhaseAwake, 35, 40),
		event(PhaseDeep, 40, 70),
	}
	require.NoError(t, recon.Process(ctx, "user-1", "src-1", events))

	// The session is still open; nothing finalized yet.
	require.Empty(t, recorder.records)

	acc, err := store.Get(ctx, "user-1")
	require.NoError(t, err)
	require.NotNil(t, acc)
	require.Equal(t, at(0), acc.Start)
	require.Equal(t, at(70), acc.LastTimestamp)
	require.Equal(t, int64(5*60), acc.InBedSec)
	require.Equal(t, int64(30*60), acc.LightSec)
	require.Equal(t, int64(5*60), acc.AwakeSec)
	require.Equal(t, int64(30*60), acc.DeepSec)
	require.Equal(t, int64(0), acc.RemSec)

	// The sweep finalizes it once the device has been quiet past the threshold.
	finalized, err := recon.SweepOnce(ctx, at(70+61))
	require.NoError(t, err)
	require.Equal(t, 1, finalized)

	require.Len(t, recorder.records, 1)
	record := recorder.records[0]
	require.Equal(t, domain.CategorySleep, record.Category)
	require.Equal(t, at(0), record.StartedAt)
	require.Equal(t, at(70), record.EndedAt)
	require.Equal(t, int64(70*60), record.DurationSec)

	detail := recorder.details[0]
	require.Equal(t, int64(30), *detail.LightMin)
	require.Equal(t, int64(5), *detail.AwakeMin)
	require.Equal(t, int64(30), *detail.DeepMin)
	require.Equal(t, int64(5), *detail.InBedMin)
	require.Equal(t, int64(60), *detail.TotalSleepMin)
	require.Nil(t, detail.IsNap)
	require.Nil(t, detail.Efficiency)

	gone, err := store.Get(ctx, "user-1")
	require.NoError(t, err)
	require.Nil(t, gone)
}

func TestGapSplitsIntoTwoSessions(t *testing.T) {
	recon, store, recorder := newTestReconstructor(t, Config{GapThreshold: 60 * time.Minute})
	ctx := context.Background()

	events := []PhaseEvent{
		event(PhaseInBed, 0, 5),
		event(PhaseCore, 5, 35),
		// 90 minute silence, past the 60 minute threshold.
		event(PhaseAwake, 125, 130),
		event(PhaseDeep, 130, 160),
	}
	require.NoError(t, recon.Process(ctx, "user-1", "src-1", events))

	// First session finalized by the gap.
	require.Len(t, recorder.records, 1)
	first := recorder.records[0]
	require.Equal(t, at(0), first.StartedAt)
	require.Equal(t, at(35), first.EndedAt)

	// Second session still accumulating, anchored at the awake event that
	// forced the split (restart does not re-apply the start-phase rule).
	acc, err := store.Get(ctx, "user-1")
	require.NoError(t, err)
	require.NotNil(t, acc)
	require.Equal(t, at(125), acc.Start)
	require.Equal(t, int64(30*60), acc.DeepSec)

	finalized, err := recon.SweepOnce(ctx, at(160+61))
	require.NoError(t, err)
	require.Equal(t, 1, finalized)
	require.Len(t, recorder.records, 2)
}

func TestRestartCanRequireStartPhase(t *testing.T) {
	recon, store, recorder := newTestReconstructor(t, Config{
		GapThreshold:              60 * time.Minute,
		RestartRequiresStartPhase: true,
	})
	ctx := context.Background()

	events := []PhaseEvent{
		event(PhaseInBed, 0, 5),
		event(PhaseCore, 5, 35),
		event(PhaseAwake, 125, 130),
	}
	require.NoError(t, recon.Process(ctx, "user-1", "src-1", events))

	// The gap finalizes the first session; the awake event is not a start
	// phase, so no new accumulator opens.
	require.Len(t, recorder.records, 1)
	acc, err := store.Get(ctx, "user-1")
	require.NoError(t, err)
	require.Nil(t, acc)
}

func TestAwakeNeverStartsSession(t *testing.T) {
	recon, store, recorder := newTestReconstructor(t, Config{GapThreshold: 60 * time.Minute})
	ctx := context.Background()

	require.NoError(t, recon.Process(ctx, "user-1", "src-1", []PhaseEvent{
		event(PhaseAwake, 0, 5),
	}))

	require.Empty(t, recorder.records)
	acc, err := store.Get(ctx, "user-1")
	require.NoError(t, err)
	require.Nil(t, acc)
}

func TestOutOfOrderEventIsDroppedWithoutSideEffects(t *testing.T) {
	recon, store, _ := newTestReconstructor(t, Config{GapThreshold: 60 * time.Minute})
	ctx := context.Background()

	require.NoError(t, recon.Process(ctx, "user-1", "src-1", []PhaseEvent{
		event(PhaseInBed, 0, 5),
		event(PhaseCore, 5, 35),
	}))

	before, err := store.Get(ctx, "user-1")
	require.NoError(t, err)

	// Starts before the accumulator's last timestamp: dropped.
	require.NoError(t, recon.Process(ctx, "user-1", "src-1", []PhaseEvent{
		event(PhaseDeep, 20, 50),
	}))

	after, err := store.Get(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, *before, *after)
}

func TestMalformedEventsAreDroppedAndBatchContinues(t *testing.T) {
	recon, store, _ := newTestReconstructor(t, Config{GapThreshold: 60 * time.Minute})
	ctx := context.Background()

	negative := event(PhaseCore, 35, 5)
	missing := PhaseEvent{Phase: PhaseDeep}

	require.NoError(t, recon.Process(ctx, "user-1", "src-1", []PhaseEvent{
		event(PhaseInBed, 0, 5),
		negative,
		missing,
		event(PhaseCore, 5, 35),
	}))

	acc, err := store.Get(ctx, "user-1")
	require.NoError(t, err)
	require.NotNil(t, acc)
	require.Equal(t, int64(5*60), acc.InBedSec)
	require.Equal(t, int64(30*60), acc.LightSec)
	require.Equal(t, int64(0), acc.DeepSec)
}

func TestUnspecifiedAsleepAccumulatesAsDeep(t *testing.T) {
	recon, store, _ := newTestReconstructor(t, Config{GapThreshold: 60 * time.Minute})
	ctx := context.Background()

	require.NoError(t, recon.Process(ctx, "user-1", "src-1", []PhaseEvent{
		event(PhaseUnspecified, 0, 30),
	}))

	acc, err := store.Get(ctx, "user-1")
	require.NoError(t, err)
	require.NotNil(t, acc)
	require.Equal(t, int64(30*60), acc.DeepSec)
}

func TestFinalizeIsIdempotentUnderExternalID(t *testing.T) {
	recon, store, recorder := newTestReconstructor(t, Config{GapThreshold: 60 * time.Minute})
	ctx := context.Background()

	require.NoError(t, recon.Process(ctx, "user-1", "src-1", []PhaseEvent{
		event(PhaseInBed, 0, 30),
	}))

	// First finalize persists the record but fails to clear the accumulator.
	store.failNextDelete = true
	_, err := recon.SweepOnce(ctx, at(95))
	require.Error(t, err)

	_, err = recon.SweepOnce(ctx, at(95))
	require.NoError(t, err)

	// The recorder deduplicates on the key, so exactly one record exists.
	require.Len(t, recorder.records, 1)
	require.Equal(t, 2, recorder.calls)
}

func TestUserLockSetDoesNotGrowWithUsersSeen(t *testing.T) {
	recon, _, _ := newTestReconstructor(t, Config{GapThreshold: 60 * time.Minute})
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		userID := fmt.Sprintf("user-%d", i)
		require.NoError(t, recon.Process(ctx, userID, "src-1", []PhaseEvent{
			event(PhaseInBed, 0, 5),
			event(PhaseCore, 5, 35),
		}))
	}

	finalized, err := recon.SweepOnce(ctx, at(35+61))
	require.NoError(t, err)
	require.Equal(t, 50, finalized)

	// Every lock entry was released uncontended and pruned.
	recon.mu.Lock()
	remaining := len(recon.locks)
	recon.mu.Unlock()
	require.Zero(t, remaining)
}

func TestConcurrentBatchesForDistinctUsers(t *testing.T) {
	recon, store, _ := newTestReconstructor(t, Config{GapThreshold: 60 * time.Minute})
	ctx := context.Background()

	done := make(chan error, 10)
	for i := 0; i < 10; i++ {
		userID := fmt.Sprintf("user-%d", i)
		go func() {
			done <- recon.Process(ctx, userID, "src-1", []PhaseEvent{
				event(PhaseInBed, 0, 5),
				event(PhaseCore, 5, 35),
			})
		}()
	}
	for i := 0; i < 10; i++ {
		require.NoError(t, <-done)
	}

	users, err := store.OpenUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 10)
}
