// Package sky derives the colours and screen geometry of the day/night scene
// from celestial altitudes.
package sky

import (
	"fmt"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// Color is an 8-bit RGB triple.
type Color struct {
	R, G, B uint8
}

// Preset colours.
var (
	NightColor   = MustParseHex("#070B34")
	SunriseColor = MustParseHex("#7b95b6")
	DayColor     = MustParseHex("#87ceeb")
	SunsetColor  = MustParseHex("#FB9062")

	// FallbackColor is returned by lookups into an empty gradient.
	FallbackColor = NightColor
)

// ParseHex parses "#rrggbb" (or "#rgb").
func ParseHex(s string) (Color, error) {
	c, err := colorful.Hex(s)
	if err != nil {
		return Color{}, fmt.Errorf("parse color %q: %w", s, err)
	}
	r, g, b := c.RGB255()
	return Color{R: r, G: g, B: b}, nil
}

// MustParseHex is ParseHex for package-level presets.
func MustParseHex(s string) Color {
	c, err := ParseHex(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Hex formats the colour as "#rrggbb".
func (c Color) Hex() string {
	return c.colorful().Hex()
}

func (c Color) String() string {
	return c.Hex()
}

// MarshalText encodes the colour as its hex string.
func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.Hex()), nil
}

// UnmarshalText decodes a hex string.
func (c *Color) UnmarshalText(b []byte) error {
	parsed, err := ParseHex(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Blend mixes c toward other by t in RGB space. t=0 returns c.
func (c Color) Blend(other Color, t float64) Color {
	if t <= 0 {
		return c
	}
	if t >= 1 {
		return other
	}
	r, g, b := c.colorful().BlendRgb(other.colorful(), t).Clamped().RGB255()
	return Color{R: r, G: g, B: b}
}

func (c Color) colorful() colorful.Color {
	return colorful.Color{
		R: float64(c.R) / 255,
		G: float64(c.G) / 255,
		B: float64(c.B) / 255,
	}
}

// jsRound rounds half toward positive infinity, matching the increments the
// gradients were originally tuned with.
func jsRound(x float64) int {
	return int(math.Floor(x + 0.5))
}

func clampChannel(v int) uint8 {
	switch {
	case v < 0:
		return 0
	case v > 255:
		return 255
	default:
		return uint8(v)
	}
}
