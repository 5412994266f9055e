package sky

import (
	"math"

	"github.com/litescript/ls-rise/internal/logging"
)

// Gradient is a precomputed colour ramp. Index 0 is the first reference
// colour. It is never mutated after BuildGradient returns it.
type Gradient []Color

// BuildGradient builds a ramp of size colours through the reference colours.
// The output is split into len(colors)-1 equal segments; each channel steps by
// an increment rounded once per segment. The end colour of the last segment is
// not appended.
//
// Invalid input (fewer than two colours, or a size that does not split evenly)
// is logged and yields an empty gradient.
func BuildGradient(colors []Color, size int, logger *logging.Logger) Gradient {
	if logger == nil {
		logger = logging.Discard()
	}
	if len(colors) < 2 {
		logger.Warn("gradient needs at least two colors, got %d", len(colors))
		return Gradient{}
	}
	segments := len(colors) - 1
	if size <= 0 || size%segments != 0 {
		logger.Warn("gradient size %d does not split into %d segments", size, segments)
		return Gradient{}
	}

	segLen := size / segments
	out := make(Gradient, 0, size)
	for i := 0; i < segments; i++ {
		from, to := colors[i], colors[i+1]
		rInc := jsRound(float64(int(to.R)-int(from.R)) / float64(segLen))
		gInc := jsRound(float64(int(to.G)-int(from.G)) / float64(segLen))
		bInc := jsRound(float64(int(to.B)-int(from.B)) / float64(segLen))

		for j := 0; j < segLen; j++ {
			out = append(out, Color{
				R: clampChannel(int(from.R) + rInc*j),
				G: clampChannel(int(from.G) + gInc*j),
				B: clampChannel(int(from.B) + bInc*j),
			})
		}
	}
	return out
}

// At returns the colour at i, clamped into range. An empty gradient yields
// FallbackColor.
func (g Gradient) At(i int) Color {
	if len(g) == 0 {
		return FallbackColor
	}
	if i < 0 {
		i = 0
	} else if i >= len(g) {
		i = len(g) - 1
	}
	return g[i]
}

// Index maps a factor in [0,1] to floor(f*(len-1)), clamped. Returns -1 for
// an empty gradient.
func (g Gradient) Index(f float64) int {
	if len(g) == 0 {
		return -1
	}
	if math.IsNaN(f) || f < 0 {
		f = 0
	} else if f > 1 {
		f = 1
	}
	return int(math.Floor(f * float64(len(g)-1)))
}

// Hex returns the gradient as hex strings.
func (g Gradient) Hex() []string {
	out := make([]string, len(g))
	for i, c := range g {
		out[i] = c.Hex()
	}
	return out
}
