package ephem

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/soniakeys/meeus/v3/julian"
	"github.com/soniakeys/meeus/v3/moonphase"
	"github.com/tidwall/gjson"

	"github.com/litescript/ls-rise/internal/astro"
)

// DefaultUSNOURL is the US Naval Observatory moon phases endpoint.
const DefaultUSNOURL = "https://aa.usno.navy.mil/api/moon/phases/year"

// dedupeWindow merges epochs closer than this; no two new moons are.
const dedupeWindow = 24 * time.Hour

// USNOPhases fetches new-moon dates from the USNO phases API.
type USNOPhases struct {
	httpSource
}

// NewUSNOPhases creates a USNO phases client.
func NewUSNOPhases(opts ...Option) *USNOPhases {
	return &USNOPhases{httpSource: newHTTPSource(DefaultUSNOURL, opts)}
}

// Name implements NewMoonSource.
func (u *USNOPhases) Name() string {
	return "usno"
}

// NewMoons implements NewMoonSource. It fetches the previous, current and
// next year.
func (u *USNOPhases) NewMoons(ctx context.Context, year int) (astro.NewMoonTable, error) {
	var epochs []time.Time
	for y := year - 1; y <= year+1; y++ {
		params := url.Values{}
		params.Set("year", strconv.Itoa(y))
		body, err := u.get(ctx, u.url+"?"+params.Encode())
		if err != nil {
			return astro.NewMoonTable{}, fmt.Errorf("usno %d: %w", y, err)
		}
		got, err := ParseUSNOPhases(body)
		if err != nil {
			return astro.NewMoonTable{}, fmt.Errorf("usno %d: %w", y, err)
		}
		epochs = append(epochs, got...)
	}

	table := astro.NewMoonTable{Year: year, Epochs: normalizeEpochs(epochs), Source: astro.SourceRemote}
	if err := table.Validate(); err != nil {
		return astro.NewMoonTable{}, err
	}
	return table, nil
}

// ParseUSNOPhases extracts the New Moon instants (UTC) from a phases
// response.
func ParseUSNOPhases(body []byte) ([]time.Time, error) {
	if !gjson.ValidBytes(body) {
		return nil, errors.New("phases response is not valid JSON")
	}
	data := gjson.GetBytes(body, "phasedata")
	if !data.IsArray() {
		return nil, errors.New("phases response missing phasedata")
	}

	var out []time.Time
	for _, row := range data.Array() {
		if !strings.EqualFold(row.Get("phase").String(), "New Moon") {
			continue
		}
		mins, ok := parseHHMM(row.Get("time").String())
		if !ok {
			return nil, fmt.Errorf("bad new moon time %q", row.Get("time").String())
		}
		t := time.Date(
			int(row.Get("year").Int()),
			time.Month(row.Get("month").Int()),
			int(row.Get("day").Int()),
			0, 0, 0, 0, time.UTC,
		).Add(time.Duration(mins * float64(time.Minute)))
		out = append(out, t)
	}
	return out, nil
}

// LocalNewMoons computes new moons with Meeus' algorithm.
type LocalNewMoons struct{}

// NewLocalNewMoons creates a local new-moon source.
func NewLocalNewMoons() *LocalNewMoons {
	return &LocalNewMoons{}
}

// Name implements NewMoonSource.
func (l *LocalNewMoons) Name() string {
	return "local"
}

// NewMoons implements NewMoonSource.
func (l *LocalNewMoons) NewMoons(ctx context.Context, year int) (astro.NewMoonTable, error) {
	if err := ctx.Err(); err != nil {
		return astro.NewMoonTable{}, err
	}

	start := time.Date(year-1, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(year+2, 1, 1, 0, 0, 0, 0, time.UTC)

	// moonphase.New returns the new moon nearest a decimal year; stepping
	// by a synodic month visits each one.
	step := astro.SynodicMonth / 365.25
	var epochs []time.Time
	for y := float64(year-1) - step; y < float64(year+2)+step; y += step {
		t := julian.JDToTime(moonphase.New(y)).UTC()
		if t.Before(start) || !t.Before(end) {
			continue
		}
		epochs = append(epochs, t)
	}

	table := astro.NewMoonTable{Year: year, Epochs: normalizeEpochs(epochs), Source: astro.SourceLocal}
	if err := table.Validate(); err != nil {
		return astro.NewMoonTable{}, err
	}
	return table, nil
}

// normalizeEpochs sorts epochs and drops near-duplicates.
func normalizeEpochs(epochs []time.Time) []time.Time {
	sort.Slice(epochs, func(i, j int) bool { return epochs[i].Before(epochs[j]) })
	out := epochs[:0]
	for _, t := range epochs {
		if len(out) > 0 && t.Sub(out[len(out)-1]) < dedupeWindow {
			continue
		}
		out = append(out, t)
	}
	return out
}
