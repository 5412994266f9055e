package sky

import (
	"slices"

	"github.com/litescript/ls-rise/internal/logging"
)

// Default ramp sizes.
const (
	DefaultSkySize      = 60
	DefaultMountainSize = 30
)

// PaletteSpec lists the reference colours and sizes a Palette is built from.
type PaletteSpec struct {
	Sky           []Color
	SkyEvening    []Color
	SkySize       int
	MountainLeft  []Color
	MountainRight []Color
	MountainSize  int
}

// DefaultPaletteSpec is night → sunrise → day for the morning sky,
// night → sunset → day for the evening sky, and two darker night → day ramps
// for the mountains.
func DefaultPaletteSpec() PaletteSpec {
	return PaletteSpec{
		Sky:        []Color{NightColor, SunriseColor, DayColor},
		SkyEvening: []Color{NightColor, SunsetColor, DayColor},
		SkySize:    DefaultSkySize,
		MountainLeft: []Color{
			MustParseHex("#0b0f2e"),
			MustParseHex("#3d5a73"),
			MustParseHex("#4f7d5c"),
		},
		MountainRight: []Color{
			MustParseHex("#05081f"),
			MustParseHex("#2c4256"),
			MustParseHex("#3b6347"),
		},
		MountainSize: DefaultMountainSize,
	}
}

func (s PaletteSpec) equal(o PaletteSpec) bool {
	return s.SkySize == o.SkySize &&
		s.MountainSize == o.MountainSize &&
		slices.Equal(s.Sky, o.Sky) &&
		slices.Equal(s.SkyEvening, o.SkyEvening) &&
		slices.Equal(s.MountainLeft, o.MountainLeft) &&
		slices.Equal(s.MountainRight, o.MountainRight)
}

// Palette holds the precomputed gradients used for per-minute lookups.
type Palette struct {
	spec          PaletteSpec
	Sky           Gradient
	SkyEvening    Gradient
	MountainLeft  Gradient
	MountainRight Gradient
}

// NewPalette builds every gradient in spec.
func NewPalette(spec PaletteSpec, logger *logging.Logger) *Palette {
	return &Palette{
		spec:          spec,
		Sky:           BuildGradient(spec.Sky, spec.SkySize, logger),
		SkyEvening:    BuildGradient(spec.SkyEvening, spec.SkySize, logger),
		MountainLeft:  BuildGradient(spec.MountainLeft, spec.MountainSize, logger),
		MountainRight: BuildGradient(spec.MountainRight, spec.MountainSize, logger),
	}
}

// Rebuild returns p unchanged when spec matches, otherwise a new palette.
func (p *Palette) Rebuild(spec PaletteSpec, logger *logging.Logger) *Palette {
	if p != nil && p.spec.equal(spec) {
		return p
	}
	return NewPalette(spec, logger)
}

// Spec returns the spec the palette was built from.
func (p *Palette) Spec() PaletteSpec {
	return p.spec
}

// SkyFor returns the morning or evening sky ramp. The evening ramp falls back
// to the morning one when it was not configured.
func (p *Palette) SkyFor(evening bool) Gradient {
	if evening && len(p.SkyEvening) > 0 {
		return p.SkyEvening
	}
	return p.Sky
}

// Mountains returns the left and right mountain colours for a brightness.
func (p *Palette) Mountains(brightness float64) (left, right Color) {
	left = p.MountainLeft.At(MountainPaletteIndex(brightness, p.MountainLeft))
	right = p.MountainRight.At(MountainPaletteIndex(brightness, p.MountainRight))
	return left, right
}
