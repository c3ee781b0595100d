package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/the-momentum/open-wearables-sub000/internal/domain"
	"github.com/the-momentum/open-wearables-sub000/internal/identity"
	"github.com/the-momentum/open-wearables-sub000/internal/normalize"
	"github.com/the-momentum/open-wearables-sub000/internal/observability"
	"github.com/the-momentum/open-wearables-sub000/internal/sleep"
)

// WorkoutRecorder persists unified workouts, idempotent under the dedupe key.
type WorkoutRecorder interface {
	RecordWorkout(ctx context.Context, record domain.EventRecord, detail domain.EventRecordDetail) error
}

// IngestionHandler routes decoded ingestion records through identity
// resolution, type normalization, and sleep reconstruction.
type IngestionHandler struct {
	identities *identity.Resolver
	sessions   *sleep.Reconstructor
	workouts   WorkoutRecorder
	logger     *log.Logger
}

// NewIngestionHandler constructs an IngestionHandler.
func NewIngestionHandler(identities *identity.Resolver, sessions *sleep.Reconstructor, workouts WorkoutRecorder, logger *log.Logger) *IngestionHandler {
	if logger == nil {
		logger = log.New(log.Writer(), "[ingest] ", log.LstdFlags)
	}
	return &IngestionHandler{
		identities: identities,
		sessions:   sessions,
		workouts:   workouts,
		logger:     logger,
	}
}

// Handle dispatches one decoded message by event type. Unknown event types are
// skipped so new producers can roll out ahead of this consumer.
func (h *IngestionHandler) Handle(ctx context.Context, msg Message) error {
	switch msg.EventType {
	case EventWorkoutRecorded:
		var payload WorkoutRecorded
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return fmt.Errorf("decode %s: %w", msg.EventType, err)
		}
		return h.handleWorkout(ctx, payload)

	case EventWorkoutBatch:
		var payload WorkoutBatch
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return fmt.Errorf("decode %s: %w", msg.EventType, err)
		}
		return h.handleWorkoutBatch(ctx, payload)

	case EventSleepPhases:
		var payload SleepPhases
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return fmt.Errorf("decode %s: %w", msg.EventType, err)
		}
		return h.handleSleepPhases(ctx, payload)

	default:
		h.logger.Printf("skipping unknown event type %q", msg.EventType)
		return nil
	}
}

func (h *IngestionHandler) handleWorkout(ctx context.Context, payload WorkoutRecorded) error {
	provider, err := domain.ParseProvider(payload.Provider)
	if err != nil {
		return fmt.Errorf("workout for user %s: %w", payload.UserID, err)
	}
	if !validInterval(payload.StartedAt, payload.EndedAt) {
		recordDroppedEvent(EventWorkoutRecorded, "malformed_interval")
		h.logger.Printf("dropping workout with invalid interval for user=%s start=%v end=%v", payload.UserID, payload.StartedAt, payload.EndedAt)
		return nil
	}

	source, err := h.identities.EnsureDataSource(ctx, identity.Input{
		UserID:             payload.UserID,
		Provider:           provider,
		DeviceModel:        payload.DeviceModel,
		SoftwareVersion:    payload.SoftwareVersion,
		Source:             payload.Source,
		OriginalSourceName: payload.OriginalSourceName,
	})
	if err != nil {
		return err
	}

	return h.recordWorkout(ctx, provider, source.ID, payload)
}

func (h *IngestionHandler) handleWorkoutBatch(ctx context.Context, payload WorkoutBatch) error {
	provider, err := domain.ParseProvider(payload.Provider)
	if err != nil {
		return err
	}

	identities := make([]identity.BatchIdentity, 0, len(payload.Workouts))
	for _, workout := range payload.Workouts {
		identities = append(identities, identity.BatchIdentity{
			UserID:      workout.UserID,
			DeviceModel: workout.DeviceModel,
			Source:      workout.Source,
		})
	}

	resolved, err := h.identities.EnsureDataSourcesBatch(ctx, provider, identities)
	if err != nil {
		return err
	}

	for _, workout := range payload.Workouts {
		if !validInterval(workout.StartedAt, workout.EndedAt) {
			recordDroppedEvent(EventWorkoutBatch, "malformed_interval")
			h.logger.Printf("dropping batch workout with invalid interval for user=%s", workout.UserID)
			continue
		}
		key := domain.IdentityKey{
			UserID:      workout.UserID,
			DeviceModel: workout.DeviceModel,
			Source:      workout.Source,
		}
		if err := h.recordWorkout(ctx, provider, resolved[key], workout); err != nil {
			return err
		}
	}
	return nil
}

func (h *IngestionHandler) recordWorkout(ctx context.Context, provider domain.Provider, dataSourceID string, payload WorkoutRecorded) error {
	var workoutType domain.WorkoutType
	if payload.VendorCodeDetail != "" {
		workoutType = normalize.NormalizeComposite(provider, payload.VendorCode, payload.VendorCodeDetail)
	} else {
		workoutType = normalize.Normalize(provider, payload.VendorCode)
	}

	record := domain.EventRecord{
		ID:           uuid.NewString(),
		UserID:       payload.UserID,
		DataSourceID: dataSourceID,
		Category:     domain.CategoryWorkout,
		WorkoutType:  workoutType,
		StartedAt:    payload.StartedAt.UTC(),
		EndedAt:      payload.EndedAt.UTC(),
		DurationSec:  int64(payload.EndedAt.Sub(payload.StartedAt) / time.Second),
		DedupeKey:    workoutDedupeKey(payload),
		CreatedAt:    time.Now().UTC(),
	}
	detail := domain.EventRecordDetail{
		EventID:      record.ID,
		AvgHeartRate: payload.AvgHeartRate,
		MaxHeartRate: payload.MaxHeartRate,
		Steps:        payload.Steps,
		EnergyKcal:   payload.EnergyKcal,
	}

	if err := h.workouts.RecordWorkout(ctx, record, detail); err != nil {
		return err
	}
	observability.RecordEventPersisted(string(domain.CategoryWorkout), record.EndedAt)
	return nil
}

func (h *IngestionHandler) handleSleepPhases(ctx context.Context, payload SleepPhases) error {
	provider, err := domain.ParseProvider(payload.Provider)
	if err != nil {
		return fmt.Errorf("sleep phases for user %s: %w", payload.UserID, err)
	}

	source, err := h.identities.EnsureDataSource(ctx, identity.Input{
		UserID:             payload.UserID,
		Provider:           provider,
		DeviceModel:        payload.DeviceModel,
		SoftwareVersion:    payload.SoftwareVersion,
		Source:             payload.Source,
		OriginalSourceName: payload.OriginalSourceName,
	})
	if err != nil {
		return err
	}

	events := make([]sleep.PhaseEvent, 0, len(payload.Phases))
	for _, raw := range payload.Phases {
		phase, ok := sleep.ParsePhase(raw.Phase)
		if !ok {
			recordDroppedEvent(EventSleepPhases, "unknown_phase")
			h.logger.Printf("dropping phase event with unknown phase %q for user=%s", raw.Phase, payload.UserID)
			continue
		}
		events = append(events, sleep.PhaseEvent{
			Phase:       phase,
			Start:       raw.StartedAt.UTC(),
			End:         raw.EndedAt.UTC(),
			ExternalID:  raw.ExternalID,
			SourceLabel: raw.SourceLabel,
			DeviceID:    raw.DeviceID,
		})
	}

	return h.sessions.Process(ctx, payload.UserID, source.ID, events)
}

func workoutDedupeKey(payload WorkoutRecorded) string {
	if payload.ExternalID != "" {
		return fmt.Sprintf("workout:%s:%s", payload.UserID, payload.ExternalID)
	}
	return fmt.Sprintf("workout:%s:%d", payload.UserID, payload.StartedAt.Unix())
}

func validInterval(start, end time.Time) bool {
	return !start.IsZero() && !end.IsZero() && !end.Before(start)
}
