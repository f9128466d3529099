// Package zodiac maps ecliptic longitudes and calendar dates onto the twelve
// tropical signs.
package zodiac

import (
	"fmt"

	"github.com/sawpanic/astrorun/internal/domain/calendar"
)

// SignName identifies one of the twelve signs, or Unknown.
type SignName string

const (
	Aries       SignName = "Aries"
	Taurus      SignName = "Taurus"
	Gemini      SignName = "Gemini"
	Cancer      SignName = "Cancer"
	Leo         SignName = "Leo"
	Virgo       SignName = "Virgo"
	Libra       SignName = "Libra"
	Scorpio     SignName = "Scorpio"
	Sagittarius SignName = "Sagittarius"
	Capricorn   SignName = "Capricorn"
	Aquarius    SignName = "Aquarius"
	Pisces      SignName = "Pisces"

	Unknown SignName = "Unknown"
)

// Element classifies a sign as Fire, Earth, Air or Water.
type Element string

const (
	Fire  Element = "Fire"
	Earth Element = "Earth"
	Air   Element = "Air"
	Water Element = "Water"
)

// Quality classifies a sign as Cardinal, Fixed or Mutable.
type Quality string

const (
	Cardinal Quality = "Cardinal"
	Fixed    Quality = "Fixed"
	Mutable  Quality = "Mutable"
)

// SignMetadata is one row of the sign table.
type SignMetadata struct {
	Name    SignName
	Start   string // MM-DD, inclusive
	End     string // MM-DD, inclusive
	Element Element
	Quality Quality

	startOrdinal int
	endOrdinal   int
}

// Contains reports whether a 1..366 ordinal falls within the sign's range,
// including ranges that wrap the year boundary.
func (m SignMetadata) Contains(ordinal int) bool {
	if m.startOrdinal <= m.endOrdinal {
		return ordinal >= m.startOrdinal && ordinal <= m.endOrdinal
	}
	return ordinal >= m.startOrdinal || ordinal <= m.endOrdinal
}

// signs is in longitude order, Aries at 0°. The calendar scan uses the same order.
var signs = mustBuild([]SignMetadata{
	{Name: Aries, Start: "03-21", End: "04-19", Element: Fire, Quality: Cardinal},
	{Name: Taurus, Start: "04-20", End: "05-20", Element: Earth, Quality: Fixed},
	{Name: Gemini, Start: "05-21", End: "06-20", Element: Air, Quality: Mutable},
	{Name: Cancer, Start: "06-21", End: "07-22", Element: Water, Quality: Cardinal},
	{Name: Leo, Start: "07-23", End: "08-22", Element: Fire, Quality: Fixed},
	{Name: Virgo, Start: "08-23", End: "09-22", Element: Earth, Quality: Mutable},
	{Name: Libra, Start: "09-23", End: "10-22", Element: Air, Quality: Cardinal},
	{Name: Scorpio, Start: "10-23", End: "11-21", Element: Water, Quality: Fixed},
	{Name: Sagittarius, Start: "11-22", End: "12-21", Element: Fire, Quality: Mutable},
	{Name: Capricorn, Start: "12-22", End: "01-19", Element: Earth, Quality: Cardinal},
	{Name: Aquarius, Start: "01-20", End: "02-18", Element: Air, Quality: Fixed},
	{Name: Pisces, Start: "02-19", End: "03-20", Element: Water, Quality: Mutable},
})

var byName = func() map[SignName]SignMetadata {
	m := make(map[SignName]SignMetadata, len(signs))
	for _, s := range signs {
		m[s.Name] = s
	}
	return m
}()

func mustBuild(rows []SignMetadata) []SignMetadata {
	for i := range rows {
		start, err := calendar.ParseMonthDay(rows[i].Start)
		if err != nil {
			panic(fmt.Sprintf("zodiac table %s: %v", rows[i].Name, err))
		}
		end, err := calendar.ParseMonthDay(rows[i].End)
		if err != nil {
			panic(fmt.Sprintf("zodiac table %s: %v", rows[i].Name, err))
		}
		rows[i].startOrdinal = start
		rows[i].endOrdinal = end
	}
	return rows
}

// Signs returns a copy of the table in longitude order.
func Signs() []SignMetadata {
	out := make([]SignMetadata, len(signs))
	copy(out, signs)
	return out
}

// Lookup returns the metadata for name.
func Lookup(name SignName) (SignMetadata, bool) {
	m, ok := byName[name]
	return m, ok
}
