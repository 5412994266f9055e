package ephem

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"time"

	"github.com/tidwall/gjson"

	"github.com/litescript/ls-rise/internal/astro"
)

// DefaultAstronomyURL is the ipgeolocation.io astronomy endpoint.
const DefaultAstronomyURL = "https://api.ipgeolocation.io/astronomy"

// ErrNoSunEvent is returned when the sun does not rise or set on a day.
var ErrNoSunEvent = errors.New("sun does not rise or set")

// moonArcMins is the assumed above-horizon span when a day has no moonrise
// or no moonset.
const moonArcMins = 720

// AstronomyAPI fetches rise/set times and altitude samples from an
// ipgeolocation-style astronomy API.
type AstronomyAPI struct {
	httpSource
}

// NewAstronomyAPI creates an astronomy API client.
func NewAstronomyAPI(opts ...Option) *AstronomyAPI {
	return &AstronomyAPI{httpSource: newHTTPSource(DefaultAstronomyURL, opts)}
}

// Name implements SnapshotSource.
func (a *AstronomyAPI) Name() string {
	return "astronomy-api"
}

// Enabled reports whether an API key is configured.
func (a *AstronomyAPI) Enabled() bool {
	return a.apiKey != ""
}

// Snapshot implements SnapshotSource.
func (a *AstronomyAPI) Snapshot(ctx context.Context, day time.Time, obs astro.Observer) (astro.PositionSnapshot, error) {
	if !obs.Located() {
		return astro.PositionSnapshot{}, fmt.Errorf("%w: %+v", ErrNoLocation, obs)
	}
	params := url.Values{}
	params.Set("apiKey", a.apiKey)
	params.Set("lat", strconv.FormatFloat(obs.LatDeg, 'f', 4, 64))
	params.Set("long", strconv.FormatFloat(obs.LonDeg, 'f', 4, 64))
	params.Set("date", astro.DateKey(day))

	body, err := a.get(ctx, a.url+"?"+params.Encode())
	if err != nil {
		return astro.PositionSnapshot{}, fmt.Errorf("astronomy api: %w", err)
	}
	return ParseAstronomy(body, day)
}

// ParseAstronomy validates an astronomy API response and converts it to a
// snapshot for day. Coefficients are back-solved from the sun_altitude and
// moon_altitude samples taken at current_time.
func ParseAstronomy(body []byte, day time.Time) (astro.PositionSnapshot, error) {
	if !gjson.ValidBytes(body) {
		return astro.PositionSnapshot{}, errors.New("astronomy response is not valid JSON")
	}
	r := gjson.ParseBytes(body)

	sunRise, okRise := parseHHMM(r.Get("sunrise").String())
	sunSet, okSet := parseHHMM(r.Get("sunset").String())
	if !okRise || !okSet {
		return astro.PositionSnapshot{}, fmt.Errorf("%w: sunrise %q sunset %q",
			ErrNoSunEvent, r.Get("sunrise").String(), r.Get("sunset").String())
	}
	if sunSet <= sunRise {
		return astro.PositionSnapshot{}, fmt.Errorf("sunset %v not after sunrise %v", sunSet, sunRise)
	}

	moonRise, moonSet := moonWindow(r.Get("moonrise").String(), r.Get("moonset").String())

	snap := astro.PositionSnapshot{
		Date:      astro.DateKey(day),
		Source:    astro.SourceRemote,
		FetchedAt: time.Now(),
		Sun:       astro.CelestialReference{RiseMins: int(sunRise), SetMins: int(sunSet), Coefficient: astro.DefaultSun.Coefficient},
		Moon:      astro.CelestialReference{RiseMins: moonRise, SetMins: moonSet, Coefficient: astro.DefaultMoon.Coefficient},
	}

	if sample, ok := parseHHMM(r.Get("current_time").String()); ok {
		snap.GivenTimeMins = int(sample)
		if alt := r.Get("sun_altitude"); alt.Exists() {
			snap.Sun = astro.Calibrate(snap.Sun.RiseMins, snap.Sun.SetMins, alt.Float(), sample, snap.Sun.Coefficient)
		}
		if alt := r.Get("moon_altitude"); alt.Exists() {
			snap.Moon = astro.Calibrate(snap.Moon.RiseMins, snap.Moon.SetMins, alt.Float(), sample, snap.Moon.Coefficient)
		}
	}

	if err := snap.Validate(); err != nil {
		return astro.PositionSnapshot{}, fmt.Errorf("astronomy response: %w", err)
	}
	return snap, nil
}

// moonWindow turns moonrise/moonset strings into a rise→set window. A set
// earlier than the rise belongs to the next day. A missing event is
// replaced by a fixed arc from the one that is present.
func moonWindow(riseStr, setStr string) (rise, set int) {
	r, okRise := parseHHMM(riseStr)
	s, okSet := parseHHMM(setStr)

	switch {
	case okRise && okSet:
		rise, set = int(r), int(s)
	case okRise:
		rise, set = int(r), int(r)+moonArcMins
	case okSet:
		rise, set = int(s)-moonArcMins, int(s)
		if rise < 0 {
			rise += astro.MinutesPerDay
			set += astro.MinutesPerDay
		}
	default:
		return astro.DefaultMoon.RiseMins, astro.DefaultMoon.SetMins
	}
	if set <= rise {
		set += astro.MinutesPerDay
	}
	return rise, set
}

// minsToTime returns the instant minutes past day's local midnight.
func minsToTime(day time.Time, mins float64) time.Time {
	y, m, d := day.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, day.Location())
	return midnight.Add(time.Duration(math.Round(mins * float64(time.Minute))))
}
