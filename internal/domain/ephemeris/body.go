package ephemeris

import (
	"fmt"
	"strings"
)

// Body is one of the ten bodies in the position report.
type Body int

const (
	Sun Body = iota
	Moon
	Mercury
	Venus
	Mars
	Jupiter
	Saturn
	Uranus
	Neptune
	Pluto
)

var bodyNames = [...]string{
	Sun:     "Sun",
	Moon:    "Moon",
	Mercury: "Mercury",
	Venus:   "Venus",
	Mars:    "Mars",
	Jupiter: "Jupiter",
	Saturn:  "Saturn",
	Uranus:  "Uranus",
	Neptune: "Neptune",
	Pluto:   "Pluto",
}

func (b Body) String() string {
	if b.Valid() {
		return bodyNames[b]
	}
	return fmt.Sprintf("Body(%d)", int(b))
}

// Valid reports whether b is in the roster.
func (b Body) Valid() bool {
	return b >= Sun && b <= Pluto
}

// Roster returns every body in report order.
func Roster() []Body {
	return []Body{Sun, Moon, Mercury, Venus, Mars, Jupiter, Saturn, Uranus, Neptune, Pluto}
}

// ParseBody resolves a case-insensitive body name.
func ParseBody(name string) (Body, error) {
	for i, n := range bodyNames {
		if strings.EqualFold(n, strings.TrimSpace(name)) {
			return Body(i), nil
		}
	}
	return 0, fmt.Errorf("unknown body %q", name)
}

// MarshalText encodes the body by name.
func (b Body) MarshalText() ([]byte, error) {
	if !b.Valid() {
		return nil, fmt.Errorf("invalid body %d", int(b))
	}
	return []byte(b.String()), nil
}

// UnmarshalText decodes a body name.
func (b *Body) UnmarshalText(text []byte) error {
	parsed, err := ParseBody(string(text))
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}
