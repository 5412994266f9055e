package sky

import "math"

const (
	// DefaultTwilightLower is the sun altitude (degrees) at and below which
	// the sky is fully dark.
	DefaultTwilightLower = -6.0
	// DefaultTwilightUpper is the sun altitude (degrees) at and above which
	// the sky is fully bright.
	DefaultTwilightUpper = 6.0

	// StarSweepMinutes is the length of the star field's one-directional sweep.
	StarSweepMinutes = 1400.0
)

// Point is a screen coordinate in the scene's own units.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Brightness converts a sun altitude in degrees to a daylight factor in [0,1]:
// 0 at or below lower, 1 at or above upper, linear in between.
func Brightness(sunAltDeg, lower, upper float64) float64 {
	switch {
	case sunAltDeg >= upper:
		return 1
	case sunAltDeg <= lower:
		return 0
	default:
		return (sunAltDeg - lower) / (upper - lower)
	}
}

// SkyColor picks the gradient entry for a brightness factor.
func SkyColor(brightness float64, g Gradient) Color {
	return g.At(g.Index(brightness))
}

// ScreenPosition places a body at a fixed x. Altitude is in degrees; 90°
// maps to peakY, 0° to horizonY, and negative altitudes fall below the
// horizon.
func ScreenPosition(altDeg, x, horizonY, peakY float64) Point {
	return Point{
		X: x,
		Y: -(horizonY-peakY)*(altDeg/90) + horizonY,
	}
}

// NightOpacity is the opacity of night-only decorations (moon, stars).
func NightOpacity(brightness float64) float64 {
	return 1 - brightness
}

// MountainPaletteIndex selects the mountain colour for a brightness factor.
// Returns -1 for an empty gradient.
func MountainPaletteIndex(brightness float64, g Gradient) int {
	return g.Index(brightness)
}

// StarFieldRotation is the star field's rotation in degrees for a clock
// minute. It sweeps from 180° at midnight through 0° near the end of the day.
func StarFieldRotation(nowMins float64) float64 {
	return 180 * (StarSweepMinutes - nowMins) / StarSweepMinutes
}

// Layout holds the fixed scene geometry.
type Layout struct {
	SunX     float64
	MoonX    float64
	HorizonY float64
	PeakY    float64
}

// DefaultLayout matches the 220x140 scene the browser front end draws into.
func DefaultLayout() Layout {
	return Layout{
		SunX:     110,
		MoonX:    110,
		HorizonY: 70,
		PeakY:    20,
	}
}

// Sun returns the sun's screen point for an altitude in degrees.
func (l Layout) Sun(altDeg float64) Point {
	return ScreenPosition(altDeg, l.SunX, l.HorizonY, l.PeakY)
}

// Moon returns the moon's screen point for an altitude in degrees.
func (l Layout) Moon(altDeg float64) Point {
	return ScreenPosition(altDeg, l.MoonX, l.HorizonY, l.PeakY)
}

// Round2 trims a float to two decimals for presentation.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
