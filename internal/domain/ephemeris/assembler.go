package ephemeris

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sawpanic/astrorun/internal/domain/calendar"
	"github.com/sawpanic/astrorun/internal/domain/zodiac"
)

// EclipticPosition is one row of a position report.
type EclipticPosition struct {
	Body          Body
	Longitude     float64
	Latitude      float64
	DistanceAU    float64
	Constellation zodiac.SignName
}

// Assembler evaluates the whole roster and tags each body with its band.
type Assembler struct {
	evaluator   *Evaluator
	concurrency int
}

// NewAssembler creates an assembler. concurrency bounds how many bodies are
// evaluated at once; values below 1 mean one at a time.
func NewAssembler(evaluator *Evaluator, concurrency int) *Assembler {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Assembler{evaluator: evaluator, concurrency: concurrency}
}

// Evaluator exposes the underlying evaluator.
func (a *Assembler) Evaluator() *Evaluator {
	return a.evaluator
}

// PositionsForDate reports every body at 00:00 UTC on date.
func (a *Assembler) PositionsForDate(ctx context.Context, date calendar.Date) ([]EclipticPosition, error) {
	return a.PositionsAt(ctx, date.Midnight())
}

// PositionsAt reports every body at instant, in roster order. The first
// failing body aborts the batch and no partial report is returned.
func (a *Assembler) PositionsAt(ctx context.Context, instant time.Time) ([]EclipticPosition, error) {
	roster := Roster()
	out := make([]EclipticPosition, len(roster))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)

	for i, body := range roster {
		i, body := i, body
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			c, err := a.evaluator.Evaluate(gctx, body, instant)
			if err != nil {
				return err
			}
			out[i] = EclipticPosition{
				Body:          body,
				Longitude:     c.Longitude,
				Latitude:      c.Latitude,
				DistanceAU:    c.DistanceAU,
				Constellation: zodiac.ConstellationForLongitude(c.Longitude),
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
