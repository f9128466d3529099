// Package ephemeris turns provider coordinates into zodiac-tagged position
// reports for the fixed ten-body roster.
package ephemeris

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/sawpanic/astrorun/internal/domain"
	"github.com/sawpanic/astrorun/internal/domain/zodiac"
)

// Coordinates are ecliptic coordinates as reported by a provider.
type Coordinates struct {
	Longitude  float64 // degrees
	Latitude   float64 // degrees
	DistanceAU float64 // distance from Earth
}

// Provider computes body positions. Implementations must be safe for
// concurrent use.
type Provider interface {
	Name() string
	Position(ctx context.Context, body Body, instant time.Time) (Coordinates, error)
}

// Observer is notified after each provider call.
type Observer func(provider string, body Body, elapsed time.Duration, err error)

// Evaluator wraps a Provider and tags its failures.
type Evaluator struct {
	provider Provider
	observer Observer
	now      func() time.Time
}

// EvaluatorOption customizes an Evaluator.
type EvaluatorOption func(*Evaluator)

// WithObserver registers a hook called after every evaluation.
func WithObserver(o Observer) EvaluatorOption {
	return func(e *Evaluator) { e.observer = o }
}

// NewEvaluator creates an evaluator backed by provider.
func NewEvaluator(provider Provider, opts ...EvaluatorOption) *Evaluator {
	e := &Evaluator{provider: provider, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ProviderName returns the name of the backing provider.
func (e *Evaluator) ProviderName() string {
	return e.provider.Name()
}

// Evaluate returns body's coordinates at instant with longitude folded into
// [0,360). Any provider failure, or a non-finite or negative-distance
// result, comes back as a KindEphemeris error naming the body and instant.
func (e *Evaluator) Evaluate(ctx context.Context, body Body, instant time.Time) (Coordinates, error) {
	if !body.Valid() {
		return Coordinates{}, e.fail(body, instant, fmt.Errorf("body not in roster"))
	}

	start := e.now()
	c, err := e.provider.Position(ctx, body, instant)
	if err == nil {
		err = check(c)
	}
	if e.observer != nil {
		e.observer(e.provider.Name(), body, e.now().Sub(start), err)
	}
	if err != nil {
		return Coordinates{}, e.fail(body, instant, err)
	}

	c.Longitude = zodiac.NormalizeLongitude(c.Longitude)
	return c, nil
}

func (e *Evaluator) fail(body Body, instant time.Time, cause error) error {
	return &domain.Error{
		Kind:    domain.KindEphemeris,
		Op:      "evaluate " + e.provider.Name(),
		Body:    body.String(),
		Instant: instant,
		Err:     cause,
	}
}

func check(c Coordinates) error {
	for _, v := range []float64{c.Longitude, c.Latitude, c.DistanceAU} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("provider returned non-finite coordinates %+v", c)
		}
	}
	if c.DistanceAU < 0 {
		return fmt.Errorf("provider returned negative distance %v", c.DistanceAU)
	}
	return nil
}
