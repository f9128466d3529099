package ephemeris

import "math"

// AspectType names an angular relationship between two bodies.
type AspectType string

const (
	Conjunction AspectType = "conjunction"
	Sextile     AspectType = "sextile"
	Square      AspectType = "square"
	Trine       AspectType = "trine"
	Opposition  AspectType = "opposition"
)

// DefaultOrb is the tolerance in degrees applied to every aspect.
const DefaultOrb = 8.0

var aspectAngles = []struct {
	kind    AspectType
	degrees float64
}{
	{Conjunction, 0},
	{Sextile, 60},
	{Square, 90},
	{Trine, 120},
	{Opposition, 180},
}

// Aspect is a detected relationship and its deviation from exact.
type Aspect struct {
	Body1 Body
	Body2 Body
	Type  AspectType
	Orb   float64
}

// Separation is the shorter arc between two longitudes, in [0,180].
func Separation(a, b float64) float64 {
	d := math.Mod(math.Abs(a-b), 360)
	return math.Min(d, 360-d)
}

// FindAspects checks every pair of positions, in report order, against each
// aspect angle within DefaultOrb.
func FindAspects(positions []EclipticPosition) []Aspect {
	return FindAspectsWithOrb(positions, DefaultOrb)
}

// FindAspectsWithOrb is FindAspects with a caller-chosen orb.
func FindAspectsWithOrb(positions []EclipticPosition, orb float64) []Aspect {
	var out []Aspect
	for i := 0; i < len(positions); i++ {
		for j := i + 1; j < len(positions); j++ {
			sep := Separation(positions[i].Longitude, positions[j].Longitude)
			for _, a := range aspectAngles {
				if dev := math.Abs(sep - a.degrees); dev <= orb {
					out = append(out, Aspect{
						Body1: positions[i].Body,
						Body2: positions[j].Body,
						Type:  a.kind,
						Orb:   dev,
					})
				}
			}
		}
	}
	return out
}
