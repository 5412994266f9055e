package scene

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/litescript/ls-rise/internal/astro"
	"github.com/litescript/ls-rise/internal/logging"
	"github.com/litescript/ls-rise/internal/sky"
	"github.com/litescript/ls-rise/internal/state"
	"github.com/litescript/ls-rise/internal/weather"
)

func newTestOrchestrator(t *testing.T) (*Orchestrator, *state.Manager) {
	t.Helper()
	data := state.NewManager(state.DefaultConfig())
	return New(data, DefaultConfig(), logging.Discard()), data
}

func scenarioSnapshot(day time.Time) astro.PositionSnapshot {
	snap := astro.DefaultSnapshot(day)
	snap.Sun = astro.CelestialReference{RiseMins: 360, SetMins: 1080, Coefficient: 65}
	snap.Moon = astro.CelestialReference{RiseMins: 1200, SetMins: 1680, Coefficient: 40}
	snap.Source = astro.SourceRemote
	return snap
}

func scenarioTable(year int) *astro.NewMoonTable {
	return &astro.NewMoonTable{
		Year: year,
		Epochs: []time.Time{
			time.Date(year, 4, 8, 18, 21, 0, 0, time.UTC),
			time.Date(year, 5, 8, 3, 22, 0, 0, time.UTC),
			time.Date(year, 6, 6, 12, 38, 0, 0, time.UTC),
		},
		Source: astro.SourceLocal,
	}
}

func TestRender_NoonScenario(t *testing.T) {
	o, data := newTestOrchestrator(t)
	day := time.Date(2024, 5, 20, 12, 0, 0, 0, time.Local)
	snap := scenarioSnapshot(day)
	data.UpdateSnapshot(&snap, 0, nil)

	sc := o.Render(day, Overrides{})

	if math.Abs(sc.Sun.Altitude-65) > 1e-9 {
		t.Errorf("sun altitude = %v, want 65", sc.Sun.Altitude)
	}
	if sc.Brightness != 1 || sc.NightOpacity != 0 {
		t.Errorf("brightness/opacity = %v/%v, want 1/0", sc.Brightness, sc.NightOpacity)
	}
	if want := o.palette.Sky[len(o.palette.Sky)-1]; sc.SkyColor != want {
		t.Errorf("sky colour = %s, want brightest entry %s", sc.SkyColor, want)
	}
	if sc.Clock != "12:00" || sc.Meridiem != "pm" || sc.Greeting != "Good afternoon." {
		t.Errorf("clock text = %q %q %q", sc.Clock, sc.Meridiem, sc.Greeting)
	}
	if sc.Degraded || sc.Stale || sc.Source != astro.SourceRemote {
		t.Errorf("flags = degraded %v stale %v source %q", sc.Degraded, sc.Stale, sc.Source)
	}

	wantY := -(70.0-20.0)*(65.0/90) + 70
	if math.Abs(sc.Sun.Point.Y-wantY) > 1e-9 || sc.Sun.Point.X != 110 {
		t.Errorf("sun point = %+v, want y %v", sc.Sun.Point, wantY)
	}

	for _, m := range []int{360, 1080} {
		sc = o.Render(day, Overrides{Minute: &m})
		if math.Abs(sc.Sun.Altitude) > 1e-9 {
			t.Errorf("sun altitude at %d = %v, want 0", m, sc.Sun.Altitude)
		}
	}
}

func TestRender_Midnight(t *testing.T) {
	o, data := newTestOrchestrator(t)
	day := time.Date(2024, 5, 20, 0, 0, 0, 0, time.Local)
	snap := scenarioSnapshot(day)
	data.UpdateSnapshot(&snap, 0, nil)

	sc := o.Render(day, Overrides{})
	if sc.Brightness != 0 || sc.NightOpacity != 1 {
		t.Errorf("brightness/opacity = %v/%v, want 0/1", sc.Brightness, sc.NightOpacity)
	}
	if sc.SkyColor != sky.NightColor {
		t.Errorf("sky colour = %s, want night", sc.SkyColor)
	}
	// Moon rose at 20:00 and sets at 04:00: it is up at midnight.
	if !sc.Moon.Above || sc.Moon.Altitude <= 0 {
		t.Errorf("moon should be up at midnight: %+v", sc.Moon.Body)
	}
	if sc.StarRotation != sky.StarFieldRotation(0) {
		t.Errorf("star rotation = %v", sc.StarRotation)
	}
}

func TestRender_ManualAndWallPathsAgree(t *testing.T) {
	o, data := newTestOrchestrator(t)
	wall := time.Date(2024, 5, 20, 7, 42, 31, 0, time.Local)
	snap := scenarioSnapshot(wall)
	data.UpdateSnapshot(&snap, 0, nil)
	data.UpdateNewMoons(scenarioTable(2024), nil)

	fromWall := o.Render(wall, Overrides{})

	minute := 7*60 + 42
	other := time.Date(2024, 5, 20, 22, 1, 0, 0, time.Local)
	manual := o.Render(other, Overrides{Minute: &minute})
	manual.Overridden = false

	a, _ := json.Marshal(fromWall)
	b, _ := json.Marshal(manual)
	if !bytes.Equal(a, b) {
		t.Errorf("scenes differ:\nwall   %s\nmanual %s", a, b)
	}
}

func TestRender_DegradedWithoutSnapshot(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	now := time.Date(2024, 5, 20, 12, 0, 0, 0, time.Local)

	sc := o.Render(now, Overrides{})
	if !sc.Degraded || sc.Source != astro.SourceDefault {
		t.Errorf("degraded = %v source = %q", sc.Degraded, sc.Source)
	}
	if math.Abs(sc.Sun.Altitude-astro.DefaultSun.Coefficient) > 1e-9 {
		t.Errorf("default sun altitude at noon = %v", sc.Sun.Altitude)
	}

	select {
	case <-o.RefreshRequests():
	default:
		t.Error("missing snapshot should request a refresh")
	}
}

func TestRender_StaleSnapshotStillUsed(t *testing.T) {
	o, data := newTestOrchestrator(t)
	yesterday := time.Date(2024, 5, 19, 12, 0, 0, 0, time.Local)
	snap := scenarioSnapshot(yesterday)
	data.UpdateSnapshot(&snap, 0, nil)

	sc := o.Render(yesterday.AddDate(0, 0, 1), Overrides{})
	if !sc.Stale || sc.Degraded {
		t.Errorf("stale = %v degraded = %v", sc.Stale, sc.Degraded)
	}
	if math.Abs(sc.Sun.Altitude-65) > 1e-9 {
		t.Errorf("last-good snapshot not used: altitude %v", sc.Sun.Altitude)
	}
}

func TestRender_MoonPhase(t *testing.T) {
	var buf bytes.Buffer
	data := state.NewManager(state.DefaultConfig())
	o := New(data, DefaultConfig(), logging.NewWithWriter(logging.LevelWarn, &buf))

	now := time.Date(2024, 5, 20, 12, 0, 0, 0, time.UTC)

	sc := o.Render(now, Overrides{})
	if sc.Moon.PhaseOK || sc.Moon.Phase != astro.FallbackPhase() {
		t.Errorf("no table: phase = %+v ok = %v", sc.Moon.Phase, sc.Moon.PhaseOK)
	}
	if !strings.Contains(buf.String(), "moon phase fallback") {
		t.Errorf("missing table not logged: %q", buf.String())
	}

	data.UpdateNewMoons(scenarioTable(2024), nil)
	sc = o.Render(now, Overrides{})
	if !sc.Moon.PhaseOK {
		t.Fatal("phase should resolve within the table")
	}
	if c := sc.Moon.Phase.CyclePercent; c <= 0.3 || c >= 0.5 {
		t.Errorf("cycle = %v, want waxing gibbous range", c)
	}
	if sc.Moon.Path == "" || sc.Moon.Name == "" {
		t.Error("moon path or name empty")
	}

	// Past the last epoch.
	late := time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)
	sc = o.Render(late, Overrides{})
	if sc.Moon.PhaseOK {
		t.Error("exhausted table should not report PhaseOK")
	}

	cycle := 0.1
	sc = o.Render(late, Overrides{Cycle: &cycle})
	if !sc.Moon.PhaseOK || sc.Moon.Phase.CyclePercent != 0.1 || !sc.Overridden {
		t.Errorf("cycle override = %+v", sc.Moon.Phase)
	}
}

func TestRender_WarnsOncePerKind(t *testing.T) {
	var buf bytes.Buffer
	o := New(state.NewManager(state.DefaultConfig()), DefaultConfig(), logging.NewWithWriter(logging.LevelWarn, &buf))
	now := time.Date(2024, 5, 20, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		o.Render(now.Add(time.Duration(i)*time.Minute), Overrides{})
	}
	if n := strings.Count(buf.String(), "moon phase fallback"); n != 1 {
		t.Errorf("warnings = %d, want 1", n)
	}
}

func TestRender_EveningUsesSunsetRamp(t *testing.T) {
	o, data := newTestOrchestrator(t)
	day := time.Date(2024, 5, 20, 0, 0, 0, 0, time.Local)
	snap := scenarioSnapshot(day)
	data.UpdateSnapshot(&snap, 0, nil)

	// Same altitude either side of noon.
	morning, evening := 380, 1060
	am := o.Render(day, Overrides{Minute: &morning})
	pm := o.Render(day, Overrides{Minute: &evening})

	if am.Evening || !pm.Evening {
		t.Fatalf("evening flags = %v/%v", am.Evening, pm.Evening)
	}
	if math.Abs(am.Brightness-pm.Brightness) > 1e-9 {
		t.Fatalf("brightness differs: %v vs %v", am.Brightness, pm.Brightness)
	}
	if am.SkyColor == pm.SkyColor {
		t.Errorf("morning and evening twilight share colour %s", am.SkyColor)
	}
}

func TestRender_Weather(t *testing.T) {
	o, data := newTestOrchestrator(t)
	data.UpdateWeather(&weather.Conditions{TempF: 60, Summary: "Rain"}, nil)

	sc := o.Render(time.Now(), Overrides{})
	if sc.Weather == nil || sc.Weather.Summary != "Rain" {
		t.Errorf("weather = %+v", sc.Weather)
	}
}

func TestSetConfigKeepsPaletteWhenUnchanged(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	before := o.palette

	o.SetConfig(DefaultConfig())
	if o.palette != before {
		t.Error("palette rebuilt for an identical spec")
	}

	cfg := DefaultConfig()
	cfg.Palette.SkySize = 30
	o.SetConfig(cfg)
	if o.palette == before || len(o.palette.Sky) != 30 {
		t.Error("palette not rebuilt for a new size")
	}
}
