package astro

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

const (
	// MoonRadius is the base radius the phase curve is computed for.
	MoonRadius = 10.0

	// QuarterEpsilon nudges an exact quarter moon off the cos(2πc)=0
	// singularity.
	QuarterEpsilon = 1e-4

	// SynodicMonth is the mean new-moon-to-new-moon interval in days.
	SynodicMonth = 29.530588853
)

// ErrEpochsExhausted is returned when no pair of tabulated new moons
// brackets the requested instant.
var ErrEpochsExhausted = errors.New("new moon table does not cover instant")

// MoonPhase is the silhouette geometry for a point in the lunar cycle.
type MoonPhase struct {
	CyclePercent float64 `json:"cycle_percent"` // 0 = new, 0.5 = full
	Radius       float64 `json:"radius"`        // signed terminator radius for MoonRadius
	Sweep        int     `json:"sweep"`         // SVG sweep flag of the terminator arc
	Waxing       bool    `json:"waxing"`
}

// Phase locates now between two tabulated new moons and derives the
// silhouette. Instants outside the table return ErrEpochsExhausted together
// with FallbackPhase.
func Phase(table NewMoonTable, now time.Time) (MoonPhase, error) {
	epochs := table.Epochs
	// first index with epoch > now
	i := sort.Search(len(epochs), func(i int) bool { return epochs[i].After(now) })
	if i == 0 || i == len(epochs) {
		return FallbackPhase(), fmt.Errorf("%w: %s", ErrEpochsExhausted, now.Format(time.RFC3339))
	}

	prev, next := epochs[i-1], epochs[i]
	cycle := float64(now.Sub(prev)) / float64(next.Sub(prev))
	return PhaseFromCycle(cycle), nil
}

// PhaseFromCycle derives the silhouette for a cycle percent. Values outside
// [0,1) wrap; NaN and ±Inf give FallbackPhase.
func PhaseFromCycle(cycle float64) MoonPhase {
	if math.IsNaN(cycle) || math.IsInf(cycle, 0) {
		cycle = fallbackCycle
	}
	cycle = math.Mod(cycle, 1)
	if cycle < 0 {
		cycle++
	}
	if cycle == 0.25 || cycle == 0.75 {
		cycle += QuarterEpsilon
	}

	sweep := 1
	if cycle > 0.25 && cycle < 0.75 {
		sweep = 0
	}

	return MoonPhase{
		CyclePercent: cycle,
		Radius:       MoonRadius / math.Cbrt(math.Cos(2*math.Pi*cycle)),
		Sweep:        sweep,
		Waxing:       cycle <= 0.5,
	}
}

// FallbackPhase is drawn when the new-moon table cannot be used.
func FallbackPhase() MoonPhase {
	return PhaseFromCycle(fallbackCycle)
}

const fallbackCycle = 0.5

// Illumination is the lit fraction of the disc.
func (p MoonPhase) Illumination() float64 {
	return (1 - math.Cos(2*math.Pi*p.CyclePercent)) / 2
}

// AgeDays is the approximate moon age.
func (p MoonPhase) AgeDays() float64 {
	return p.CyclePercent * SynodicMonth
}

var phaseNames = [8]string{
	"New Moon",
	"Waxing Crescent",
	"First Quarter",
	"Waxing Gibbous",
	"Full Moon",
	"Waning Gibbous",
	"Last Quarter",
	"Waning Crescent",
}

var phaseGlyphs = [8]string{"🌑", "🌒", "🌓", "🌔", "🌕", "🌖", "🌗", "🌘"}

func (p MoonPhase) octant() int {
	return int(math.Floor(p.CyclePercent*8+0.5)) % 8
}

// Name is the conventional eight-phase name.
func (p MoonPhase) Name() string {
	return phaseNames[p.octant()]
}

// Glyph is the moon emoji for the phase.
func (p MoonPhase) Glyph() string {
	return phaseGlyphs[p.octant()]
}

// Path returns SVG path data for the lit part of a moon of radius r centred
// at (cx, cy). The terminator runs top to bottom, then the limb closes the
// shape on the lit side; waning moons are mirrored.
func (p MoonPhase) Path(cx, cy, r float64) string {
	tr := math.Abs(p.Radius) * r / MoonRadius
	termSweep, limbSweep := p.Sweep, 0
	if !p.Waxing {
		termSweep, limbSweep = 1-p.Sweep, 1
	}
	return fmt.Sprintf("M %.2f %.2f A %.2f %.2f 0 0 %d %.2f %.2f A %.2f %.2f 0 0 %d %.2f %.2f Z",
		cx, cy-r,
		tr, tr, termSweep, cx, cy+r,
		r, r, limbSweep, cx, cy-r,
	)
}
