// Package postgres provides pgx-backed persistence for the normalization core.
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/the-momentum/open-wearables-sub000/internal/domain"
)

const dataSourceColumns = `id, user_id, provider, device_model, software_version, source, device_type, original_source_name, created_at, updated_at`

// DataSourceRepository persists canonical data source identities.
type DataSourceRepository struct {
	pool *pgxpool.Pool
}

// NewDataSourceRepository constructs a DataSourceRepository.
func NewDataSourceRepository(pool *pgxpool.Pool) *DataSourceRepository {
	return &DataSourceRepository{pool: pool}
}

// FindByIdentity looks up one row by the identity key, treating absent
// optional components as empty strings. Returns nil when no row matches.
func (r *DataSourceRepository) FindByIdentity(ctx context.Context, provider domain.Provider, key domain.IdentityKey) (*domain.DataSource, error) {
	query := `SELECT ` + dataSourceColumns + ` FROM data_sources
        WHERE user_id=$1 AND provider=$2 AND COALESCE(device_model,'')=$3 AND COALESCE(source,'')=$4`

	rows, err := r.pool.Query(ctx, query, key.UserID, provider, key.DeviceModel, key.Source)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	source, err := scanDataSource(rows)
	if err != nil {
		return nil, err
	}
	return &source, rows.Err()
}

// Insert creates the row, reporting false when a concurrent writer already
// created the same identity. The conflict is absorbed, not surfaced.
func (r *DataSourceRepository) Insert(ctx context.Context, source domain.DataSource) (bool, error) {
	const stmt = `INSERT INTO data_sources (` + dataSourceColumns + `)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        ON CONFLICT (user_id, provider, COALESCE(device_model,''), COALESCE(source,'')) DO NOTHING`

	tag, err := r.pool.Exec(ctx, stmt,
		source.ID,
		source.UserID,
		source.Provider,
		source.DeviceModel,
		source.SoftwareVersion,
		source.Source,
		source.DeviceType,
		source.OriginalSourceName,
		source.CreatedAt,
		source.UpdatedAt,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// FillOptionalFields sets currently-NULL optional columns from the supplied
// row. Populated columns keep their value.
func (r *DataSourceRepository) FillOptionalFields(ctx context.Context, source domain.DataSource) error {
	const stmt = `UPDATE data_sources SET
        device_model = COALESCE(device_model, $2),
        software_version = COALESCE(software_version, $3),
        source = COALESCE(source, $4),
        original_source_name = COALESCE(original_source_name, $5),
        device_type = $6,
        updated_at = $7
        WHERE id = $1`

	_, err := r.pool.Exec(ctx, stmt,
		source.ID,
		source.DeviceModel,
		source.SoftwareVersion,
		source.Source,
		source.OriginalSourceName,
		source.DeviceType,
		source.UpdatedAt,
	)
	return err
}

// FindByIdentities selects every row matching any of the identity tuples.
func (r *DataSourceRepository) FindByIdentities(ctx context.Context, provider domain.Provider, keys []domain.IdentityKey) ([]domain.DataSource, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	args := []interface{}{provider}
	tuples := make([]string, 0, len(keys))
	for _, key := range keys {
		base := len(args)
		tuples = append(tuples, fmt.Sprintf("($%d,$%d,$%d)", base+1, base+2, base+3))
		args = append(args, key.UserID, key.DeviceModel, key.Source)
	}

	query := `SELECT ` + dataSourceColumns + ` FROM data_sources
        WHERE provider=$1 AND (user_id, COALESCE(device_model,''), COALESCE(source,'')) IN (` +
		strings.Join(tuples, ",") + `)`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sources := make([]domain.DataSource, 0, len(keys))
	for rows.Next() {
		source, err := scanDataSource(rows)
		if err != nil {
			return nil, err
		}
		sources = append(sources, source)
	}
	return sources, rows.Err()
}

// InsertBatch bulk-inserts rows, silently dropping any identity a concurrent
// writer created first.
func (r *DataSourceRepository) InsertBatch(ctx context.Context, sources []domain.DataSource) error {
	if len(sources) == 0 {
		return nil
	}

	args := make([]interface{}, 0, len(sources)*10)
	rows := make([]string, 0, len(sources))
	for _, source := range sources {
		base := len(args)
		placeholders := make([]string, 10)
		for i := range placeholders {
			placeholders[i] = fmt.Sprintf("$%d", base+i+1)
		}
		rows = append(rows, "("+strings.Join(placeholders, ",")+")")
		args = append(args,
			source.ID,
			source.UserID,
			source.Provider,
			source.DeviceModel,
			source.SoftwareVersion,
			source.Source,
			source.DeviceType,
			source.OriginalSourceName,
			source.CreatedAt,
			source.UpdatedAt,
		)
	}

	stmt := `INSERT INTO data_sources (` + dataSourceColumns + `) VALUES ` +
		strings.Join(rows, ",") +
		` ON CONFLICT (user_id, provider, COALESCE(device_model,''), COALESCE(source,'')) DO NOTHING`

	_, err := r.pool.Exec(ctx, stmt, args...)
	return err
}

// ListByUser returns every data source registered for the user.
func (r *DataSourceRepository) ListByUser(ctx context.Context, userID string) ([]domain.DataSource, error) {
	query := `SELECT ` + dataSourceColumns + ` FROM data_sources WHERE user_id=$1 ORDER BY created_at, id`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sources []domain.DataSource
	for rows.Next() {
		source, err := scanDataSource(rows)
		if err != nil {
			return nil, err
		}
		sources = append(sources, source)
	}
	return sources, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanDataSource(row scanner) (domain.DataSource, error) {
	var source domain.DataSource
	err := row.Scan(
		&source.ID,
		&source.UserID,
		&source.Provider,
		&source.DeviceModel,
		&source.SoftwareVersion,
		&source.Source,
		&source.DeviceType,
		&source.OriginalSourceName,
		&source.CreatedAt,
		&source.UpdatedAt,
	)
	return source, err
}
