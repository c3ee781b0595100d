package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/the-momentum/open-wearables-sub000/internal/domain"
)

// EventRecordRepository persists unified events and their typed details.
type EventRecordRepository struct {
	pool *pgxpool.Pool
}

// NewEventRecordRepository constructs an EventRecordRepository.
func NewEventRecordRepository(pool *pgxpool.Pool) *EventRecordRepository {
	return &EventRecordRepository{pool: pool}
}

// RecordSleepSession persists one finalized sleep session. Idempotent: a
// retried write with the same dedupe key resolves to the existing row and
// writes nothing new.
func (r *EventRecordRepository) RecordSleepSession(ctx context.Context, record domain.EventRecord, detail domain.EventRecordDetail) error {
	return r.insertEvent(ctx, record, detail)
}

// RecordWorkout persists one unified workout with the same idempotency contract.
func (r *EventRecordRepository) RecordWorkout(ctx context.Context, record domain.EventRecord, detail domain.EventRecordDetail) error {
	return r.insertEvent(ctx, record, detail)
}

func (r *EventRecordRepository) insertEvent(ctx context.Context, record domain.EventRecord, detail domain.EventRecordDetail) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const insertRecord = `INSERT INTO event_records
        (id, user_id, data_source_id, category, workout_type, started_at, ended_at, duration_sec, dedupe_key, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        ON CONFLICT (dedupe_key) DO NOTHING`

	tag, err := tx.Exec(ctx, insertRecord,
		record.ID,
		record.UserID,
		record.DataSourceID,
		record.Category,
		record.WorkoutType,
		record.StartedAt,
		record.EndedAt,
		record.DurationSec,
		record.DedupeKey,
		record.CreatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		// An earlier attempt already persisted this event.
		return tx.Commit(ctx)
	}

	const insertDetail = `INSERT INTO event_record_details
        (event_id, avg_heart_rate, max_heart_rate, steps, energy_kcal,
         in_bed_min, awake_min, light_min, deep_min, rem_min, total_sleep_min, duration_min,
         is_nap, efficiency)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`

	_, err = tx.Exec(ctx, insertDetail,
		record.ID,
		detail.AvgHeartRate,
		detail.MaxHeartRate,
		detail.Steps,
		detail.EnergyKcal,
		detail.InBedMin,
		detail.AwakeMin,
		detail.LightMin,
		detail.DeepMin,
		detail.RemMin,
		detail.TotalSleepMin,
		detail.DurationMin,
		detail.IsNap,
		detail.Efficiency,
	)
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// ListByUser returns a user's events within [from, to), newest first.
func (r *EventRecordRepository) ListByUser(ctx context.Context, userID string, from, to time.Time, limit int) ([]domain.EventRecord, error) {
	const query = `SELECT id, user_id, data_source_id, category, workout_type, started_at, ended_at, duration_sec, dedupe_key, created_at
        FROM event_records
        WHERE user_id=$1 AND started_at >= $2 AND started_at < $3
        ORDER BY started_at DESC, id DESC
        LIMIT $4`

	rows, err := r.pool.Query(ctx, query, userID, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.EventRecord
	for rows.Next() {
		var record domain.EventRecord
		if err := rows.Scan(
			&record.ID,
			&record.UserID,
			&record.DataSourceID,
			&record.Category,
			&record.WorkoutType,
			&record.StartedAt,
			&record.EndedAt,
			&record.DurationSec,
			&record.DedupeKey,
			&record.CreatedAt,
		); err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// GetDetail returns the typed detail for one event, or nil when absent.
func (r *EventRecordRepository) GetDetail(ctx context.Context, eventID string) (*domain.EventRecordDetail, error) {
	const query = `SELECT event_id, avg_heart_rate, max_heart_rate, steps, energy_kcal,
        in_bed_min, awake_min, light_min, deep_min, rem_min, total_sleep_min, duration_min,
        is_nap, efficiency
        FROM event_record_details WHERE event_id=$1`

	rows, err := r.pool.Query(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	var detail domain.EventRecordDetail
	if err := rows.Scan(
		&detail.EventID,
		&detail.AvgHeartRate,
		&detail.MaxHeartRate,
		&detail.Steps,
		&detail.EnergyKcal,
		&detail.InBedMin,
		&detail.AwakeMin,
		&detail.LightMin,
		&detail.DeepMin,
		&detail.RemMin,
		&detail.TotalSleepMin,
		&detail.DurationMin,
		&detail.IsNap,
		&detail.Efficiency,
	); err != nil {
		return nil, err
	}
	return &detail, rows.Err()
}
