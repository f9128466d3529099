// Package analytic is an in-process ephemeris provider built on mean orbital
// elements with the main periodic perturbations of the Moon, Jupiter, Saturn
// and Uranus. Accuracy is on the order of arc-minutes, which is far finer
// than a 30° zodiac band.
package analytic

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sawpanic/astrorun/internal/domain/ephemeris"
)

// ErrOutOfRange is returned for instants outside the configured year window.
var ErrOutOfRange = errors.New("instant outside supported range")

// Frame selects the origin of reported longitude and latitude.
type Frame string

const (
	Geocentric   Frame = "geocentric"
	Heliocentric Frame = "heliocentric"
)

// Config controls the analytic provider.
type Config struct {
	Frame   Frame `yaml:"frame"`
	MinYear int   `yaml:"min_year"`
	MaxYear int   `yaml:"max_year"`
}

// Pluto's periodic series is fitted to these years only.
const (
	plutoMinYear = 1800
	plutoMaxYear = 2200
)

// DefaultConfig returns the heliocentric frame over the years every body's
// model covers.
func DefaultConfig() Config {
	return Config{
		Frame:   Heliocentric,
		MinYear: plutoMinYear,
		MaxYear: plutoMaxYear,
	}
}

// Provider computes positions locally.
type Provider struct {
	config Config
}

// New validates cfg and returns a provider.
func New(cfg Config) (*Provider, error) {
	switch cfg.Frame {
	case Geocentric, Heliocentric:
	case "":
		cfg.Frame = Heliocentric
	default:
		return nil, fmt.Errorf("unknown frame %q", cfg.Frame)
	}
	if cfg.MinYear == 0 && cfg.MaxYear == 0 {
		d := DefaultConfig()
		cfg.MinYear, cfg.MaxYear = d.MinYear, d.MaxYear
	}
	if cfg.MinYear > cfg.MaxYear {
		return nil, fmt.Errorf("min_year %d after max_year %d", cfg.MinYear, cfg.MaxYear)
	}
	return &Provider{config: cfg}, nil
}

// Name implements ephemeris.Provider.
func (p *Provider) Name() string { return "analytic" }

// Frame returns the configured frame.
func (p *Provider) Frame() Frame { return p.config.Frame }

// Position implements ephemeris.Provider. Latitude and longitude follow the
// configured frame; distance is always measured from Earth.
func (p *Provider) Position(ctx context.Context, body ephemeris.Body, instant time.Time) (ephemeris.Coordinates, error) {
	if err := ctx.Err(); err != nil {
		return ephemeris.Coordinates{}, err
	}
	y := instant.UTC().Year()
	if y < p.config.MinYear || y > p.config.MaxYear {
		return ephemeris.Coordinates{}, fmt.Errorf("%w: year %d not in [%d,%d]",
			ErrOutOfRange, y, p.config.MinYear, p.config.MaxYear)
	}
	if body == ephemeris.Pluto && (y < plutoMinYear || y > plutoMaxYear) {
		return ephemeris.Coordinates{}, fmt.Errorf("%w: no Pluto series for year %d, fitted to [%d,%d]",
			ErrOutOfRange, y, plutoMinYear, plutoMaxYear)
	}

	d := dayNumber(instant)
	sunGeo := sunOrbit(d).position()

	var geo, helio vector
	switch body {
	case ephemeris.Sun:
		geo = sunGeo
		helio = sunGeo.neg() // Earth as seen from the Sun
	case ephemeris.Moon:
		geo = moonGeocentric(d)
		helio = sunGeo.neg().add(geo)
	case ephemeris.Mercury, ephemeris.Venus, ephemeris.Mars, ephemeris.Jupiter,
		ephemeris.Saturn, ephemeris.Uranus, ephemeris.Neptune, ephemeris.Pluto:
		helio = planetHeliocentric(body, d)
		geo = helio.add(sunGeo)
	default:
		return ephemeris.Coordinates{}, fmt.Errorf("analytic provider has no model for %s", body)
	}

	_, _, dist := geo.spherical()
	frame := geo
	if p.config.Frame == Heliocentric {
		frame = helio
	}
	lon, lat, _ := frame.spherical()

	return ephemeris.Coordinates{
		Longitude:  lon,
		Latitude:   lat,
		DistanceAU: dist,
	}, nil
}

// dayNumber counts days from 2000-01-00 00:00 UT (JD 2451543.5).
func dayNumber(t time.Time) float64 {
	t = t.UTC()
	days := float64(t.Unix())/86400 + float64(t.Nanosecond())/float64(24*time.Hour)
	jd := days + 2440587.5
	return jd - 2451543.5
}

func planetHeliocentric(body ephemeris.Body, d float64) vector {
	switch body {
	case ephemeris.Mercury:
		return mercuryOrbit(d).position()
	case ephemeris.Venus:
		return venusOrbit(d).position()
	case ephemeris.Mars:
		return marsOrbit(d).position()
	case ephemeris.Neptune:
		return neptuneOrbit(d).position()
	case ephemeris.Pluto:
		return plutoHeliocentric(d)
	}

	Mj := jupiterOrbit(d).M
	Ms := saturnOrbit(d).M
	Mu := uranusOrbit(d).M

	var o orbit
	var dLon, dLat float64
	switch body {
	case ephemeris.Jupiter:
		o = jupiterOrbit(d)
		dLon = -0.332*sind(2*Mj-5*Ms-67.6) -
			0.056*sind(2*Mj-2*Ms+21) +
			0.042*sind(3*Mj-5*Ms+21) -
			0.036*sind(Mj-2*Ms) +
			0.022*cosd(Mj-Ms) +
			0.023*sind(2*Mj-3*Ms+52) -
			0.016*sind(Mj-5*Ms-69)
	case ephemeris.Saturn:
		o = saturnOrbit(d)
		dLon = 0.812*sind(2*Mj-5*Ms-67.6) -
			0.229*cosd(2*Mj-4*Ms-2) +
			0.119*sind(Mj-2*Ms-3) +
			0.046*sind(2*Mj-6*Ms-69) +
			0.014*sind(Mj-3*Ms+32)
		dLat = -0.020*cosd(2*Mj-4*Ms-2) +
			0.018*sind(2*Mj-6*Ms-49)
	case ephemeris.Uranus:
		o = uranusOrbit(d)
		dLon = 0.040*sind(Ms-2*Mu+6) +
			0.035*sind(Ms-3*Mu+33) -
			0.015*sind(Mj-Mu+20)
	}

	lon, lat, r := o.position().spherical()
	return fromSpherical(lon+dLon, lat+dLat, r)
}

// plutoHeliocentric uses a fitted periodic series valid for 1800-2200,
// referred to the J2000 ecliptic and precessed to the equinox of date.
func plutoHeliocentric(d float64) vector {
	S := 50.03 + 0.033459652*d
	P := 238.95 + 0.003968789*d

	lon := 238.9508 + 0.00400703*d -
		19.799*sind(P) + 19.848*cosd(P) +
		0.897*sind(2*P) - 4.956*cosd(2*P) +
		0.610*sind(3*P) + 1.211*cosd(3*P) -
		0.341*sind(4*P) - 0.190*cosd(4*P) +
		0.128*sind(5*P) - 0.034*cosd(5*P) -
		0.038*sind(6*P) + 0.031*cosd(6*P) +
		0.020*sind(S-P) - 0.010*cosd(S-P)

	lat := -3.9082 -
		5.453*sind(P) - 14.975*cosd(P) +
		3.527*sind(2*P) + 1.673*cosd(2*P) -
		1.051*sind(3*P) + 0.328*cosd(3*P) +
		0.179*sind(4*P) - 0.292*cosd(4*P) +
		0.019*sind(5*P) + 0.100*cosd(5*P) -
		0.031*sind(6*P) - 0.026*cosd(6*P) +
		0.011*cosd(S-P)

	r := 40.72 +
		6.68*sind(P) + 6.90*cosd(P) -
		1.18*sind(2*P) - 0.03*cosd(2*P) +
		0.15*sind(3*P) - 0.14*cosd(3*P)

	return fromSpherical(lon+precessionPerDay*d, lat, r)
}

func moonGeocentric(d float64) vector {
	moon := moonOrbit(d)
	sun := sunOrbit(d)

	Ms := sun.M
	Mm := moon.M
	Ls := Ms + sun.w
	Lm := Mm + moon.w + moon.N
	D := Lm - Ls
	F := Lm - moon.N

	lon, lat, r := moon.position().spherical()

	lon += -1.274*sind(Mm-2*D) +
		0.658*sind(2*D) -
		0.186*sind(Ms) -
		0.059*sind(2*Mm-2*D) -
		0.057*sind(Mm-2*D+Ms) +
		0.053*sind(Mm+2*D) +
		0.046*sind(2*D-Ms) +
		0.041*sind(Mm-Ms) -
		0.035*sind(D) -
		0.031*sind(Mm+Ms) -
		0.015*sind(2*F-2*D) +
		0.011*sind(Mm-4*D)

	lat += -0.173*sind(F-2*D) -
		0.055*sind(Mm-F-2*D) -
		0.046*sind(Mm+F-2*D) +
		0.033*sind(F+2*D) +
		0.017*sind(2*Mm+F)

	r += -0.58*cosd(Mm-2*D) - 0.46*cosd(2*D)

	return fromSpherical(lon, lat, r*earthRadiusAU)
}
