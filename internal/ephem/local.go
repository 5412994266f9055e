package ephem

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/nathan-osman/go-sunrise"
	"github.com/sixdouglas/suncalc"

	"github.com/litescript/ls-rise/internal/astro"
)

const (
	// moonScanStep is the sampling interval of the moonrise/moonset search.
	moonScanStep = 10 * time.Minute

	// moonScanSpan covers a rise late in the day and its set the next day.
	moonScanSpan = 2 * astro.MinutesPerDay * time.Minute
)

// LocalAstronomy computes snapshots without network access: sun times from
// go-sunrise, moon times and both altitude samples from suncalc.
type LocalAstronomy struct{}

// NewLocalAstronomy creates a local snapshot source.
func NewLocalAstronomy() *LocalAstronomy {
	return &LocalAstronomy{}
}

// Name implements SnapshotSource.
func (l *LocalAstronomy) Name() string {
	return "local"
}

// Snapshot implements SnapshotSource.
func (l *LocalAstronomy) Snapshot(ctx context.Context, day time.Time, obs astro.Observer) (astro.PositionSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return astro.PositionSnapshot{}, err
	}
	if !obs.Located() {
		return astro.PositionSnapshot{}, fmt.Errorf("%w: %+v", ErrNoLocation, obs)
	}

	y, m, d := day.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, day.Location())

	rise, set := sunrise.SunriseSunset(obs.LatDeg, obs.LonDeg, y, m, d)
	if rise.IsZero() || set.IsZero() {
		return astro.PositionSnapshot{}, fmt.Errorf("%w on %s", ErrNoSunEvent, astro.DateKey(day))
	}
	sunRise := minutesSince(midnight, rise)
	sunSet := minutesSince(midnight, set)
	if sunSet <= sunRise {
		sunSet += astro.MinutesPerDay
	}
	if sunRise < 0 || sunRise >= astro.MinutesPerDay {
		return astro.PositionSnapshot{}, fmt.Errorf("sunrise %d outside %s in %s", sunRise, astro.DateKey(day), day.Location())
	}

	// Sample each body at the middle of its window where the sine is 1.
	sunMid := float64(sunRise+sunSet) / 2
	sunAlt := sunrise.Elevation(obs.LatDeg, obs.LonDeg, minsToTime(day, sunMid))
	sun := astro.Calibrate(sunRise, sunSet, sunAlt, sunMid, astro.DefaultSun.Coefficient)

	moon := astro.DefaultMoon
	if moonRise, moonSet, ok := moonTimes(midnight, obs); ok {
		moonMid := float64(moonRise+moonSet) / 2
		moonAlt := moonAltitude(minsToTime(day, moonMid), obs)
		moon = astro.CelestialReference{
			RiseMins:    moonRise,
			SetMins:     moonSet,
			Coefficient: astro.DefaultMoon.Coefficient,
		}
		if moonAlt > 0 {
			moon.Coefficient = math.Min(moonAlt, 90)
		}
	}

	snap := astro.PositionSnapshot{
		Date:          astro.DateKey(day),
		GivenTimeMins: int(sunMid),
		Sun:           sun,
		Moon:          moon,
		Source:        astro.SourceLocal,
		FetchedAt:     time.Now(),
	}
	if err := snap.Validate(); err != nil {
		return astro.PositionSnapshot{}, fmt.Errorf("local snapshot: %w", err)
	}
	return snap, nil
}

// moonAltitude is the moon's altitude in degrees.
func moonAltitude(t time.Time, obs astro.Observer) float64 {
	return suncalc.GetMoonPosition(t, obs.LatDeg, obs.LonDeg).Altitude * 180 / math.Pi
}

// moonTimes finds the first moonrise on the day starting at midnight and
// the moonset that follows it, by sampling altitude and bisecting each
// horizon crossing to the minute. ok is false when the moon does not rise
// that day or never sets within the scan.
func moonTimes(midnight time.Time, obs astro.Observer) (rise, set int, ok bool) {
	alt := func(t time.Time) float64 { return moonAltitude(t, obs) }

	var riseAt time.Time
	prevT := midnight
	prevA := alt(prevT)
	for off := moonScanStep; off <= moonScanSpan; off += moonScanStep {
		t := midnight.Add(off)
		a := alt(t)
		switch {
		case riseAt.IsZero() && prevA <= 0 && a > 0:
			riseAt = bisectCrossing(alt, prevT, t)
			if minutesSince(midnight, riseAt) >= astro.MinutesPerDay {
				return 0, 0, false
			}
		case !riseAt.IsZero() && prevA > 0 && a <= 0:
			setAt := bisectCrossing(alt, prevT, t)
			return minutesSince(midnight, riseAt), minutesSince(midnight, setAt), true
		}
		prevT, prevA = t, a
	}
	return 0, 0, false
}

// bisectCrossing narrows a sign change of f between lo and hi to a minute.
func bisectCrossing(f func(time.Time) float64, lo, hi time.Time) time.Time {
	loPos := f(lo) > 0
	for hi.Sub(lo) > time.Minute {
		mid := lo.Add(hi.Sub(lo) / 2)
		if (f(mid) > 0) == loPos {
			lo = mid
		} else {
			hi = mid
		}
	}
	return hi
}

// minutesSince is whole minutes from midnight to t, which may be negative
// or exceed a day.
func minutesSince(midnight, t time.Time) int {
	return int(math.Floor(t.Sub(midnight).Minutes()))
}
