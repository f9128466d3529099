package persistence

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"
)

// ErrChartNotFound is returned when no chart has the requested id.
var ErrChartNotFound = errors.New("chart not found")

// Chart is a saved birth chart request. Positions are recomputed on read
// and never stored.
type Chart struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	BirthDate string    `json:"birth_date" db:"birth_date"` // YYYY-MM-DD
	BirthTime string    `json:"birth_time" db:"birth_time"` // HH:MM, UTC
	City      string    `json:"city" db:"city"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ChartID derives the stable identity of a chart. City and name are
// compared case-insensitively.
func ChartID(birthDate, birthTime, city, name string) string {
	key := strings.Join([]string{
		strings.TrimSpace(birthDate),
		strings.TrimSpace(birthTime),
		strings.ToLower(strings.TrimSpace(city)),
		strings.ToLower(strings.TrimSpace(name)),
	}, "|")
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])[:16]
}

// ChartRepo stores saved charts.
type ChartRepo interface {
	// Upsert inserts the chart or refreshes an existing one with the same
	// id. CreatedAt and UpdatedAt are filled in on return.
	Upsert(ctx context.Context, chart *Chart) error

	// Get returns ErrChartNotFound for unknown ids.
	Get(ctx context.Context, id string) (*Chart, error)

	// List returns the most recently updated charts first.
	List(ctx context.Context, limit int) ([]Chart, error)
}

// HealthCheck represents repository health status
type HealthCheck struct {
	Healthy        bool           `json:"healthy"`
	Errors         []string       `json:"errors,omitempty"`
	ConnectionPool map[string]int `json:"connection_pool,omitempty"`
	LastCheck      time.Time      `json:"last_check"`
	ResponseTimeMS int64          `json:"response_time_ms"`
}

// RepositoryHealth provides health monitoring for persistence layer
type RepositoryHealth interface {
	Health(ctx context.Context) HealthCheck
	Ping(ctx context.Context) error
}
