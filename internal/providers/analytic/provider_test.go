package analytic

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/astrorun/internal/domain"
	"github.com/sawpanic/astrorun/internal/domain/calendar"
	"github.com/sawpanic/astrorun/internal/domain/ephemeris"
	"github.com/sawpanic/astrorun/internal/domain/zodiac"
)

func newProvider(t *testing.T, frame Frame) *Provider {
	t.Helper()
	p, err := New(Config{Frame: frame})
	require.NoError(t, err)
	return p
}

func TestNewDefaults(t *testing.T) {
	p, err := New(Config{})
	require.NoError(t, err)
	assert.Equal(t, Heliocentric, p.Frame())
	assert.Equal(t, DefaultConfig(), p.config)
	assert.Equal(t, 1800, p.config.MinYear)
	assert.Equal(t, 2200, p.config.MaxYear)
	assert.Equal(t, "analytic", p.Name())

	_, err = New(Config{Frame: "topocentric"})
	assert.Error(t, err)

	_, err = New(Config{Frame: Geocentric, MinYear: 2100, MaxYear: 1900})
	assert.Error(t, err)
}

func TestDayNumber(t *testing.T) {
	// 2000-01-01 00:00 UT is day 1.0 of the series.
	assert.InDelta(t, 1.0, dayNumber(time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)), 1e-9)
	assert.InDelta(t, 1.5, dayNumber(time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC)), 1e-9)
	// Outside the int64 nanosecond range. 1000-01-01 to 2000-01-01 is
	// 800*365.2425 + 73048 = 365242 days.
	assert.InDelta(t, -365241.0, dayNumber(time.Date(1000, 1, 1, 0, 0, 0, 0, time.UTC)), 1e-6)
}

func TestKnownPositions(t *testing.T) {
	p := newProvider(t, Geocentric)
	instant := calendar.MustParse("2024-06-21").Midnight()

	tests := []struct {
		body  ephemeris.Body
		lon   float64
		delta float64
		sign  zodiac.SignName
	}{
		// June solstice was 2024-06-20 20:51 UT.
		{ephemeris.Sun, 90.13, 0.1, zodiac.Cancer},
		{ephemeris.Moon, 256.1, 1.5, zodiac.Sagittarius},
		{ephemeris.Venus, 94.6, 0.5, zodiac.Cancer},
		{ephemeris.Mars, 38.7, 0.5, zodiac.Taurus},
		{ephemeris.Jupiter, 66.0, 0.5, zodiac.Gemini},
		{ephemeris.Pluto, 301.9, 0.5, zodiac.Aquarius},
	}

	for _, tt := range tests {
		t.Run(tt.body.String(), func(t *testing.T) {
			c, err := p.Position(context.Background(), tt.body, instant)
			require.NoError(t, err)
			assert.InDelta(t, tt.lon, c.Longitude, tt.delta)
			assert.Equal(t, tt.sign, zodiac.ConstellationForLongitude(c.Longitude))
		})
	}
}

func TestDistances(t *testing.T) {
	p := newProvider(t, Geocentric)
	instant := calendar.MustParse("2024-06-21").Midnight()

	ranges := map[ephemeris.Body][2]float64{
		ephemeris.Sun:     {0.983, 1.017},
		ephemeris.Moon:    {0.0023, 0.0028},
		ephemeris.Mercury: {0.5, 1.5},
		ephemeris.Venus:   {0.25, 1.75},
		ephemeris.Mars:    {0.37, 2.7},
		ephemeris.Jupiter: {3.9, 6.5},
		ephemeris.Saturn:  {8.0, 11.1},
		ephemeris.Uranus:  {17.2, 21.1},
		ephemeris.Neptune: {28.7, 31.4},
		ephemeris.Pluto:   {28.0, 51.0},
	}

	for _, body := range ephemeris.Roster() {
		c, err := p.Position(context.Background(), body, instant)
		require.NoError(t, err, body.String())
		r := ranges[body]
		assert.GreaterOrEqual(t, c.DistanceAU, r[0], body.String())
		assert.LessOrEqual(t, c.DistanceAU, r[1], body.String())
		assert.GreaterOrEqual(t, c.Longitude, 0.0)
		assert.Less(t, c.Longitude, 360.0)
	}
}

func TestHeliocentricFrame(t *testing.T) {
	geo := newProvider(t, Geocentric)
	helio := newProvider(t, Heliocentric)
	instant := calendar.MustParse("2024-06-21").Midnight()

	g, err := geo.Position(context.Background(), ephemeris.Sun, instant)
	require.NoError(t, err)
	h, err := helio.Position(context.Background(), ephemeris.Sun, instant)
	require.NoError(t, err)

	// Heliocentric "Sun" is Earth, opposite the geocentric Sun.
	assert.InDelta(t, 180, ephemeris.Separation(g.Longitude, h.Longitude), 1e-6)
	assert.InDelta(t, g.DistanceAU, h.DistanceAU, 1e-12)

	// Outer planets shift little between frames.
	g, err = geo.Position(context.Background(), ephemeris.Neptune, instant)
	require.NoError(t, err)
	h, err = helio.Position(context.Background(), ephemeris.Neptune, instant)
	require.NoError(t, err)
	assert.Less(t, ephemeris.Separation(g.Longitude, h.Longitude), 2.5)
}

func TestOutOfRange(t *testing.T) {
	p := newProvider(t, Geocentric)

	_, err := p.Position(context.Background(), ephemeris.Mars, time.Date(2201, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, err, ErrOutOfRange)

	_, err = p.Position(context.Background(), ephemeris.Mars, time.Date(1799, 12, 31, 0, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestPlutoOutsideFitWindow(t *testing.T) {
	p, err := New(Config{Frame: Heliocentric, MinYear: 1000, MaxYear: 3000})
	require.NoError(t, err)

	_, err = p.Position(context.Background(), ephemeris.Pluto, time.Date(2600, 6, 21, 0, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, err, ErrOutOfRange)
	_, err = p.Position(context.Background(), ephemeris.Pluto, time.Date(1500, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, err, ErrOutOfRange)

	// The wider window still serves bodies whose elements cover it.
	_, err = p.Position(context.Background(), ephemeris.Mars, time.Date(2600, 6, 21, 0, 0, 0, 0, time.UTC))
	assert.NoError(t, err)
	_, err = p.Position(context.Background(), ephemeris.Pluto, time.Date(2200, 12, 31, 0, 0, 0, 0, time.UTC))
	assert.NoError(t, err)
}

func TestDefaultFrameIsHeliocentric(t *testing.T) {
	p, err := New(DefaultConfig())
	require.NoError(t, err)
	instant := calendar.MustParse("2024-06-21").Midnight()

	// Earth as seen from the Sun, opposite the geocentric solstice Sun.
	c, err := p.Position(context.Background(), ephemeris.Sun, instant)
	require.NoError(t, err)
	assert.InDelta(t, 270.13, c.Longitude, 0.1)
	assert.Equal(t, zodiac.Capricorn, zodiac.ConstellationForLongitude(c.Longitude))
	assert.InDelta(t, 1.016, c.DistanceAU, 0.002)

	c, err = p.Position(context.Background(), ephemeris.Mars, instant)
	require.NoError(t, err)
	assert.InDelta(t, 3.99, c.Longitude, 0.5)
	assert.Equal(t, zodiac.Aries, zodiac.ConstellationForLongitude(c.Longitude))
}

func TestOutOfRangeThroughEvaluator(t *testing.T) {
	a := ephemeris.NewAssembler(ephemeris.NewEvaluator(newProvider(t, Geocentric)), 2)

	_, err := a.PositionsForDate(context.Background(), calendar.NewDate(2300, time.March, 1))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOutOfRange)
	assert.True(t, domain.IsKind(err, domain.KindEphemeris))
}

func TestUnknownBody(t *testing.T) {
	_, err := newProvider(t, Geocentric).Position(context.Background(), ephemeris.Body(12), time.Now())
	assert.Error(t, err)
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newProvider(t, Geocentric).Position(ctx, ephemeris.Sun, time.Now())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPositionsForSolsticeDate(t *testing.T) {
	a := ephemeris.NewAssembler(ephemeris.NewEvaluator(newProvider(t, Geocentric)), 4)

	got, err := a.PositionsForDate(context.Background(), calendar.MustParse("2024-06-21"))
	require.NoError(t, err)
	require.Len(t, got, 10)
	for i, pos := range got {
		assert.Equal(t, ephemeris.Roster()[i], pos.Body)
		assert.GreaterOrEqual(t, pos.DistanceAU, 0.0)
		assert.GreaterOrEqual(t, pos.Longitude, 0.0)
		assert.Less(t, pos.Longitude, 360.0)
	}
}
