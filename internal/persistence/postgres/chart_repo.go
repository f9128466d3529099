package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sawpanic/astrorun/internal/persistence"
)

// Schema creates the charts table when missing.
const Schema = `
CREATE TABLE IF NOT EXISTS charts (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	birth_date  TEXT NOT NULL,
	birth_time  TEXT NOT NULL,
	city        TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// chartRepo implements persistence.ChartRepo for PostgreSQL
type chartRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewChartRepo creates a new PostgreSQL chart repository
func NewChartRepo(db *sqlx.DB, timeout time.Duration) persistence.ChartRepo {
	return &chartRepo{
		db:      db,
		timeout: timeout,
	}
}

// Upsert inserts the chart or bumps updated_at for an existing id.
func (r *chartRepo) Upsert(ctx context.Context, chart *persistence.Chart) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		INSERT INTO charts (id, name, birth_date, birth_time, city)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			updated_at = now()
		RETURNING created_at, updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		chart.ID, chart.Name, chart.BirthDate, chart.BirthTime, chart.City).
		Scan(&chart.CreatedAt, &chart.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert chart %s: %w", chart.ID, err)
	}
	return nil
}

// Get retrieves one chart by id
func (r *chartRepo) Get(ctx context.Context, id string) (*persistence.Chart, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT id, name, birth_date, birth_time, city, created_at, updated_at
		FROM charts
		WHERE id = $1`

	var chart persistence.Chart
	if err := r.db.QueryRowxContext(ctx, query, id).StructScan(&chart); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrChartNotFound
		}
		return nil, fmt.Errorf("failed to get chart %s: %w", id, err)
	}
	return &chart, nil
}

// List returns charts by most recent update
func (r *chartRepo) List(ctx context.Context, limit int) ([]persistence.Chart, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT id, name, birth_date, birth_time, city, created_at, updated_at
		FROM charts
		ORDER BY updated_at DESC, id
		LIMIT $1`

	var charts []persistence.Chart
	if err := r.db.SelectContext(ctx, &charts, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list charts: %w", err)
	}
	return charts, nil
}
