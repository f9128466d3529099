// Package astro is the application layer shared by the HTTP API and the CLI:
// position reports, sign lookups, aspects and saved charts.
package astro

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sawpanic/astrorun/internal/domain/calendar"
	"github.com/sawpanic/astrorun/internal/domain/ephemeris"
	"github.com/sawpanic/astrorun/internal/domain/zodiac"
	"github.com/sawpanic/astrorun/internal/persistence"
)

// ErrInvalidChart marks a chart request that fails validation.
var ErrInvalidChart = errors.New("invalid chart")

// Service answers queries against one assembler and chart store.
type Service struct {
	assembler *ephemeris.Assembler
	charts    persistence.ChartRepo
	now       func() time.Time
}

// NewService wires the service. A nil repo keeps charts in memory.
func NewService(assembler *ephemeris.Assembler, charts persistence.ChartRepo) *Service {
	if charts == nil {
		charts = persistence.NewMemoryChartRepo()
	}
	return &Service{assembler: assembler, charts: charts, now: time.Now}
}

// ProviderName names the ephemeris backend in use.
func (s *Service) ProviderName() string {
	return s.assembler.Evaluator().ProviderName()
}

// ParseDate parses a request date; empty text means today.
func (s *Service) ParseDate(text string) (calendar.Date, error) {
	return calendar.Parse(text, s.now)
}

// Planets returns the position report for a date at 00:00 UTC.
func (s *Service) Planets(ctx context.Context, date calendar.Date) ([]ephemeris.EclipticPosition, error) {
	return s.assembler.PositionsForDate(ctx, date)
}

// Now returns the position report at the current instant.
func (s *Service) Now(ctx context.Context) (time.Time, []ephemeris.EclipticPosition, error) {
	instant := s.now().UTC()
	positions, err := s.assembler.PositionsAt(ctx, instant)
	return instant, positions, err
}

// Aspects returns the aspects between bodies on a date.
func (s *Service) Aspects(ctx context.Context, date calendar.Date) ([]ephemeris.Aspect, error) {
	positions, err := s.assembler.PositionsForDate(ctx, date)
	if err != nil {
		return nil, err
	}
	return ephemeris.FindAspects(positions), nil
}

// Sign returns the metadata of the sign ruling a calendar date.
func (s *Service) Sign(date calendar.Date) (zodiac.SignMetadata, error) {
	return zodiac.LookupDate(date)
}

// ChartRequest is the user input for a saved chart.
type ChartRequest struct {
	Name      string `json:"name"`
	BirthDate string `json:"birth_date"`
	BirthTime string `json:"birth_time"`
	City      string `json:"city"`
}

// ChartView is a stored chart with freshly computed positions.
type ChartView struct {
	Chart     persistence.Chart
	Instant   time.Time
	Sign      zodiac.SignMetadata
	Positions []ephemeris.EclipticPosition
	Aspects   []ephemeris.Aspect
}

// SaveChart validates req, stores it under its derived id and returns the
// computed chart. Saving the same request twice yields the same id.
func (s *Service) SaveChart(ctx context.Context, req ChartRequest) (*ChartView, error) {
	chart, err := s.normalize(req)
	if err != nil {
		return nil, err
	}
	if err := s.charts.Upsert(ctx, chart); err != nil {
		return nil, err
	}
	return s.compute(ctx, *chart)
}

// Chart loads a saved chart and recomputes it.
func (s *Service) Chart(ctx context.Context, id string) (*ChartView, error) {
	chart, err := s.charts.Get(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, err
	}
	return s.compute(ctx, *chart)
}

// Charts lists saved charts without computing them.
func (s *Service) Charts(ctx context.Context, limit int) ([]persistence.Chart, error) {
	return s.charts.List(ctx, limit)
}

func (s *Service) normalize(req ChartRequest) (*persistence.Chart, error) {
	c := &persistence.Chart{
		Name:      strings.ToLower(strings.TrimSpace(req.Name)),
		BirthDate: strings.TrimSpace(req.BirthDate),
		BirthTime: strings.TrimSpace(req.BirthTime),
		City:      strings.ToLower(strings.TrimSpace(req.City)),
	}
	required := []struct{ field, value string }{
		{"name", c.Name},
		{"birth_date", c.BirthDate},
		{"birth_time", c.BirthTime},
		{"city", c.City},
	}
	for _, r := range required {
		if r.value == "" {
			return nil, fmt.Errorf("%w: %s is required", ErrInvalidChart, r.field)
		}
	}
	if _, err := s.ParseDate(c.BirthDate); err != nil {
		return nil, err
	}
	if _, err := calendar.ParseClock(c.BirthTime); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidChart, err)
	}
	c.ID = persistence.ChartID(c.BirthDate, c.BirthTime, c.City, c.Name)
	return c, nil
}

func (s *Service) compute(ctx context.Context, chart persistence.Chart) (*ChartView, error) {
	date, err := s.ParseDate(chart.BirthDate)
	if err != nil {
		return nil, err
	}
	clock, err := calendar.ParseClock(chart.BirthTime)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidChart, err)
	}
	sign, err := zodiac.LookupDate(date)
	if err != nil {
		return nil, err
	}

	instant := date.At(clock)
	positions, err := s.assembler.PositionsAt(ctx, instant)
	if err != nil {
		return nil, err
	}
	return &ChartView{
		Chart:     chart,
		Instant:   instant,
		Sign:      sign,
		Positions: positions,
		Aspects:   ephemeris.FindAspects(positions),
	}, nil
}
