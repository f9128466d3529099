package analytic

import "math"

const (
	deg2rad = math.Pi / 180
	rad2deg = 180 / math.Pi

	// Earth equatorial radius in AU, for the Moon's distance.
	earthRadiusAU = 6378.14 / 149597870.7

	// Ecliptic precession per day, used to bring J2000 Pluto to the equinox of date.
	precessionPerDay = 3.82394e-5
)

// orbit holds mean orbital elements at day number d: longitude of the
// ascending node N, inclination i, argument of perihelion w, mean anomaly M
// (degrees), semi-major axis a and eccentricity e.
type orbit struct {
	N, i, w, a, e, M float64
}

// Element rates are per day since 2000-01-00 00:00 UT (JD 2451543.5).
func sunOrbit(d float64) orbit {
	return orbit{
		N: 0,
		i: 0,
		w: 282.9404 + 4.70935e-5*d,
		a: 1.0,
		e: 0.016709 - 1.151e-9*d,
		M: 356.0470 + 0.9856002585*d,
	}
}

// moonOrbit is geocentric; a is in Earth radii.
func moonOrbit(d float64) orbit {
	return orbit{
		N: 125.1228 - 0.0529538083*d,
		i: 5.1454,
		w: 318.0634 + 0.1643573223*d,
		a: 60.2666,
		e: 0.054900,
		M: 115.3654 + 13.0649929509*d,
	}
}

func mercuryOrbit(d float64) orbit {
	return orbit{
		N: 48.3313 + 3.24587e-5*d,
		i: 7.0047 + 5.00e-8*d,
		w: 29.1241 + 1.01444e-5*d,
		a: 0.387098,
		e: 0.205635 + 5.59e-10*d,
		M: 168.6562 + 4.0923344368*d,
	}
}

func venusOrbit(d float64) orbit {
	return orbit{
		N: 76.6799 + 2.46590e-5*d,
		i: 3.3946 + 2.75e-8*d,
		w: 54.8910 + 1.38374e-5*d,
		a: 0.723330,
		e: 0.006773 - 1.302e-9*d,
		M: 48.0052 + 1.6021302244*d,
	}
}

func marsOrbit(d float64) orbit {
	return orbit{
		N: 49.5574 + 2.11081e-5*d,
		i: 1.8497 - 1.78e-8*d,
		w: 286.5016 + 2.92961e-5*d,
		a: 1.523688,
		e: 0.093405 + 2.516e-9*d,
		M: 18.6021 + 0.5240207766*d,
	}
}

func jupiterOrbit(d float64) orbit {
	return orbit{
		N: 100.4542 + 2.76854e-5*d,
		i: 1.3030 - 1.557e-7*d,
		w: 273.8777 + 1.64505e-5*d,
		a: 5.20256,
		e: 0.048498 + 4.469e-9*d,
		M: 19.8950 + 0.0830853001*d,
	}
}

func saturnOrbit(d float64) orbit {
	return orbit{
		N: 113.6634 + 2.38980e-5*d,
		i: 2.4886 - 1.081e-7*d,
		w: 339.3939 + 2.97661e-5*d,
		a: 9.55475,
		e: 0.055546 - 9.499e-9*d,
		M: 316.9670 + 0.0334442282*d,
	}
}

func uranusOrbit(d float64) orbit {
	return orbit{
		N: 74.0005 + 1.3978e-5*d,
		i: 0.7733 + 1.9e-8*d,
		w: 96.6612 + 3.0565e-5*d,
		a: 19.18171 - 1.55e-8*d,
		e: 0.047318 + 7.45e-9*d,
		M: 142.5905 + 0.011725806*d,
	}
}

func neptuneOrbit(d float64) orbit {
	return orbit{
		N: 131.7806 + 3.0173e-5*d,
		i: 1.7700 - 2.55e-7*d,
		w: 272.8461 - 6.027e-6*d,
		a: 30.05826 + 3.313e-8*d,
		e: 0.008606 + 2.15e-9*d,
		M: 260.2471 + 0.005995147*d,
	}
}

// vector is a rectangular ecliptic position.
type vector struct{ x, y, z float64 }

func (v vector) add(o vector) vector { return vector{v.x + o.x, v.y + o.y, v.z + o.z} }
func (v vector) neg() vector         { return vector{-v.x, -v.y, -v.z} }

// spherical returns longitude and latitude in degrees and the radius.
func (v vector) spherical() (lon, lat, r float64) {
	lon = rev(math.Atan2(v.y, v.x) * rad2deg)
	lat = math.Atan2(v.z, math.Hypot(v.x, v.y)) * rad2deg
	r = math.Sqrt(v.x*v.x + v.y*v.y + v.z*v.z)
	return lon, lat, r
}

func fromSpherical(lon, lat, r float64) vector {
	lon *= deg2rad
	lat *= deg2rad
	return vector{
		x: r * math.Cos(lon) * math.Cos(lat),
		y: r * math.Sin(lon) * math.Cos(lat),
		z: r * math.Sin(lat),
	}
}

// position solves Kepler's equation and rotates the orbit into the ecliptic.
func (o orbit) position() vector {
	M := rev(o.M) * deg2rad
	E := M + o.e*math.Sin(M)*(1+o.e*math.Cos(M))
	for iter := 0; iter < 30; iter++ {
		delta := (E - o.e*math.Sin(E) - M) / (1 - o.e*math.Cos(E))
		E -= delta
		if math.Abs(delta) < 1e-12 {
			break
		}
	}

	xv := o.a * (math.Cos(E) - o.e)
	yv := o.a * math.Sqrt(1-o.e*o.e) * math.Sin(E)
	v := math.Atan2(yv, xv)
	r := math.Hypot(xv, yv)

	N := o.N * deg2rad
	i := o.i * deg2rad
	vw := v + o.w*deg2rad
	return vector{
		x: r * (math.Cos(N)*math.Cos(vw) - math.Sin(N)*math.Sin(vw)*math.Cos(i)),
		y: r * (math.Sin(N)*math.Cos(vw) + math.Cos(N)*math.Sin(vw)*math.Cos(i)),
		z: r * math.Sin(vw) * math.Sin(i),
	}
}

// rev folds degrees into [0,360).
func rev(x float64) float64 {
	x = math.Mod(x, 360)
	if x < 0 {
		x += 360
	}
	return x
}

func sind(x float64) float64 { return math.Sin(x * deg2rad) }
func cosd(x float64) float64 { return math.Cos(x * deg2rad) }
