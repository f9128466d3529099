package zodiac

import (
	"math"

	"github.com/sawpanic/astrorun/internal/domain"
	"github.com/sawpanic/astrorun/internal/domain/calendar"
)

const bandWidth = 30.0

// ConstellationForLongitude returns the 30° band containing longitude.
// Values outside [0,360) wrap; NaN and ±Inf have no band and yield Unknown.
func ConstellationForLongitude(longitude float64) SignName {
	if math.IsNaN(longitude) || math.IsInf(longitude, 0) {
		return Unknown
	}
	band := math.Floor(longitude / bandWidth)
	index := (int(math.Mod(band, 12)) + 12) % 12
	return signs[index].Name
}

// NormalizeLongitude folds degrees into [0,360).
func NormalizeLongitude(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	// -1e-15 + 360 rounds to 360.
	if deg >= 360 {
		deg = 0
	}
	return deg
}

// SignForDate returns the calendar sign whose range contains the date's
// month-day. The year is ignored.
func SignForDate(d calendar.Date) SignName {
	ordinal := d.Ordinal()
	for _, s := range signs {
		if s.Contains(ordinal) {
			return s.Name
		}
	}
	return Unknown
}

// LookupDate resolves the date to its sign metadata or a KindUnknownSign error.
func LookupDate(d calendar.Date) (SignMetadata, error) {
	name := SignForDate(d)
	if meta, ok := Lookup(name); ok {
		return meta, nil
	}
	return SignMetadata{}, &domain.Error{
		Kind:  domain.KindUnknownSign,
		Op:    "sign for date",
		Input: d.String(),
	}
}
