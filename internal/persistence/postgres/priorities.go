package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/the-momentum/open-wearables-sub000/internal/domain"
)

// PriorityRepository persists the global provider and device type rankings.
type PriorityRepository struct {
	pool *pgxpool.Pool
}

// NewPriorityRepository constructs a PriorityRepository.
func NewPriorityRepository(pool *pgxpool.Pool) *PriorityRepository {
	return &PriorityRepository{pool: pool}
}

// ProviderPriorities reads the provider ranking table.
func (r *PriorityRepository) ProviderPriorities(ctx context.Context) (map[domain.Provider]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT provider, priority FROM provider_priorities`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	priorities := make(map[domain.Provider]int)
	for rows.Next() {
		var provider domain.Provider
		var priority int
		if err := rows.Scan(&provider, &priority); err != nil {
			return nil, err
		}
		priorities[provider] = priority
	}
	return priorities, rows.Err()
}

// DeviceTypePriorities reads the device type ranking table.
func (r *PriorityRepository) DeviceTypePriorities(ctx context.Context) (map[domain.DeviceType]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT device_type, priority FROM device_type_priorities`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	priorities := make(map[domain.DeviceType]int)
	for rows.Next() {
		var deviceType domain.DeviceType
		var priority int
		if err := rows.Scan(&deviceType, &priority); err != nil {
			return nil, err
		}
		priorities[deviceType] = priority
	}
	return priorities, rows.Err()
}

// UpsertProviderPriority inserts or updates one provider ranking entry.
func (r *PriorityRepository) UpsertProviderPriority(ctx context.Context, provider domain.Provider, priority int) error {
	const stmt = `INSERT INTO provider_priorities (provider, priority) VALUES ($1, $2)
        ON CONFLICT (provider) DO UPDATE SET priority = EXCLUDED.priority`
	_, err := r.pool.Exec(ctx, stmt, provider, priority)
	return err
}

// UpsertDeviceTypePriority inserts or updates one device type ranking entry.
func (r *PriorityRepository) UpsertDeviceTypePriority(ctx context.Context, deviceType domain.DeviceType, priority int) error {
	const stmt = `INSERT INTO device_type_priorities (device_type, priority) VALUES ($1, $2)
        ON CONFLICT (device_type) DO UPDATE SET priority = EXCLUDED.priority`
	_, err := r.pool.Exec(ctx, stmt, deviceType, priority)
	return err
}

// ReplaceProviderPriorities swaps the provider ranking table in one
// transaction; readers never observe a partially-updated ranking.
func (r *PriorityRepository) ReplaceProviderPriorities(ctx context.Context, priorities map[domain.Provider]int) error {
	return r.replaceAll(ctx, `provider_priorities`, func(tx pgx.Tx) error {
		for provider, priority := range priorities {
			if _, err := tx.Exec(ctx, `INSERT INTO provider_priorities (provider, priority) VALUES ($1, $2)`, provider, priority); err != nil {
				return err
			}
		}
		return nil
	})
}

// ReplaceDeviceTypePriorities swaps the device type ranking table in one transaction.
func (r *PriorityRepository) ReplaceDeviceTypePriorities(ctx context.Context, priorities map[domain.DeviceType]int) error {
	return r.replaceAll(ctx, `device_type_priorities`, func(tx pgx.Tx) error {
		for deviceType, priority := range priorities {
			if _, err := tx.Exec(ctx, `INSERT INTO device_type_priorities (device_type, priority) VALUES ($1, $2)`, deviceType, priority); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *PriorityRepository) replaceAll(ctx context.Context, table string, insert func(pgx.Tx) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM `+table); err != nil {
		return err
	}
	if err := insert(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// EnsureProviderPriority provisions a ranking entry if the provider has none.
// A nil priority assigns max(existing)+1.
func (r *PriorityRepository) EnsureProviderPriority(ctx context.Context, provider domain.Provider, priority *int) error {
	const stmt = `INSERT INTO provider_priorities (provider, priority)
        SELECT $1, COALESCE($2::int, (SELECT COALESCE(MAX(priority), 0) + 1 FROM provider_priorities))
        ON CONFLICT (provider) DO NOTHING`
	_, err := r.pool.Exec(ctx, stmt, provider, priority)
	return err
}
