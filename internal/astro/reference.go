// Package astro models the sun and moon for the sky clock: calibrated
// single-arch altitude curves, daily position snapshots, and moon phase
// geometry derived from tabulated new-moon epochs.
//
// Unit convention: every altitude and every formula coefficient in this
// package is in degrees. Nothing here normalises by 90; screen mapping does
// that once, in the sky package.
package astro

import (
	"errors"
	"fmt"
	"math"
	"time"
)

const (
	// MinutesPerDay is the length of a clock day in minutes.
	MinutesPerDay = 1440

	// DateLayout is the calendar-day key format of a PositionSnapshot.
	DateLayout = "2006-01-02"
)

// Snapshot sources.
const (
	SourceDefault = "default"
	SourceRemote  = "remote"
	SourceLocal   = "local"
	SourceCache   = "cache"
)

// CelestialReference calibrates one body's altitude curve for a day.
type CelestialReference struct {
	RiseMins    int     `json:"rise_mins" msgpack:"rise"`
	SetMins     int     `json:"set_mins" msgpack:"set"`     // may exceed 1440 when setting after midnight
	Coefficient float64 `json:"coefficient" msgpack:"coef"` // peak altitude in degrees
}

// Validate checks the reference is usable by Altitude.
func (r CelestialReference) Validate() error {
	if r.RiseMins < 0 || r.RiseMins >= MinutesPerDay {
		return fmt.Errorf("rise %d outside [0,%d)", r.RiseMins, MinutesPerDay)
	}
	if r.SetMins <= r.RiseMins {
		return fmt.Errorf("set %d not after rise %d", r.SetMins, r.RiseMins)
	}
	if r.SetMins >= 2*MinutesPerDay {
		return fmt.Errorf("set %d more than a day past midnight", r.SetMins)
	}
	if math.IsNaN(r.Coefficient) || math.IsInf(r.Coefficient, 0) {
		return fmt.Errorf("coefficient %v is not finite", r.Coefficient)
	}
	return nil
}

// Unwrap maps a clock minute onto the reference's window. When the body
// sets after midnight, minutes before the rise that belong to the
// post-midnight tail are shifted forward by a day.
func (r CelestialReference) Unwrap(clockMins float64) float64 {
	if r.SetMins > MinutesPerDay && clockMins < float64(r.RiseMins) &&
		clockMins+MinutesPerDay <= float64(r.SetMins) {
		return clockMins + MinutesPerDay
	}
	return clockMins
}

// Midpoint is the minute of peak altitude.
func (r CelestialReference) Midpoint() float64 {
	return float64(r.RiseMins+r.SetMins) / 2
}

// Progress is the fraction of the rise→set window elapsed at a clock minute,
// clamped to [0,1].
func (r CelestialReference) Progress(clockMins float64) float64 {
	span := float64(r.SetMins - r.RiseMins)
	if span <= 0 {
		return 0
	}
	p := (r.Unwrap(clockMins) - float64(r.RiseMins)) / span
	return math.Max(0, math.Min(1, p))
}

// PositionSnapshot is one calendar day's calibration for the sun and moon.
type PositionSnapshot struct {
	Date          string             `json:"date" msgpack:"date"`
	GivenTimeMins int                `json:"given_time_mins" msgpack:"given"`
	Sun           CelestialReference `json:"sun" msgpack:"sun"`
	Moon          CelestialReference `json:"moon" msgpack:"moon"`
	Source        string             `json:"source" msgpack:"source"`
	FetchedAt     time.Time          `json:"fetched_at" msgpack:"fetched_at"`
}

// DateKey returns the calendar-day key for t in t's location.
func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}

// ValidFor reports whether the snapshot belongs to t's calendar day.
func (s PositionSnapshot) ValidFor(t time.Time) bool {
	return s.Date == DateKey(t)
}

// Validate checks both references and the date key.
func (s PositionSnapshot) Validate() error {
	if _, err := time.Parse(DateLayout, s.Date); err != nil {
		return fmt.Errorf("snapshot date %q: %w", s.Date, err)
	}
	if err := s.Sun.Validate(); err != nil {
		return fmt.Errorf("sun: %w", err)
	}
	if err := s.Moon.Validate(); err != nil {
		return fmt.Errorf("moon: %w", err)
	}
	return nil
}

// Default calibration used when no data is available.
var (
	DefaultSun  = CelestialReference{RiseMins: 6 * 60, SetMins: 18 * 60, Coefficient: 60}
	DefaultMoon = CelestialReference{RiseMins: 18 * 60, SetMins: 30 * 60, Coefficient: 45}
)

// DefaultSnapshot is a flat 6am/6pm day for t's calendar date.
func DefaultSnapshot(t time.Time) PositionSnapshot {
	return PositionSnapshot{
		Date:          DateKey(t),
		GivenTimeMins: 12 * 60,
		Sun:           DefaultSun,
		Moon:          DefaultMoon,
		Source:        SourceDefault,
		FetchedAt:     t,
	}
}

// ErrInvalidTable is returned when a new-moon table cannot be used.
var ErrInvalidTable = errors.New("invalid new moon table")

// NewMoonTable is an ascending list of new-moon instants covering the
// previous, current and next year around Year.
type NewMoonTable struct {
	Year   int         `json:"year" msgpack:"year"`
	Epochs []time.Time `json:"epochs" msgpack:"epochs"`
	Source string      `json:"source" msgpack:"source"`
}

// ValidFor reports whether the table was built for t's year.
func (t NewMoonTable) ValidFor(now time.Time) bool {
	return t.Year == now.Year() && len(t.Epochs) >= 2
}

// Validate checks the table is non-trivial and strictly ascending.
func (t NewMoonTable) Validate() error {
	if len(t.Epochs) < 2 {
		return fmt.Errorf("%w: %d epochs", ErrInvalidTable, len(t.Epochs))
	}
	for i := 1; i < len(t.Epochs); i++ {
		if !t.Epochs[i].After(t.Epochs[i-1]) {
			return fmt.Errorf("%w: epoch %d not after epoch %d", ErrInvalidTable, i, i-1)
		}
	}
	return nil
}

// Observer is a location on Earth.
type Observer struct {
	LatDeg float64 `json:"lat" msgpack:"lat"`
	LonDeg float64 `json:"lon" msgpack:"lon"`
	Name   string  `json:"name,omitempty" msgpack:"name"`
}

// Valid reports whether the coordinates are in range.
func (o Observer) Valid() bool {
	return o.LatDeg >= -90 && o.LatDeg <= 90 && o.LonDeg >= -180 && o.LonDeg <= 180
}

// Located reports whether o is a usable, set location. The zero Observer
// (0, 0) counts as unset.
func (o Observer) Located() bool {
	return o.Valid() && (o.LatDeg != 0 || o.LonDeg != 0)
}

// Key is a coarse cache key for the location, rounded to two decimals.
func (o Observer) Key() string {
	return fmt.Sprintf("%.2f,%.2f", o.LatDeg, o.LonDeg)
}
