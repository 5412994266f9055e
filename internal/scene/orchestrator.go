package scene

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/litescript/ls-rise/internal/astro"
	"github.com/litescript/ls-rise/internal/logging"
	"github.com/litescript/ls-rise/internal/sky"
	"github.com/litescript/ls-rise/internal/state"
)

// errNoTable is reported when no new-moon table has been loaded yet.
var errNoTable = errors.New("no new moon table loaded")

// Config is the render configuration.
type Config struct {
	Palette       sky.PaletteSpec
	Layout        sky.Layout
	TwilightLower float64 // degrees
	TwilightUpper float64 // degrees
}

// DefaultConfig returns the stock palette, layout and civil-twilight
// thresholds.
func DefaultConfig() Config {
	return Config{
		Palette:       sky.DefaultPaletteSpec(),
		Layout:        sky.DefaultLayout(),
		TwilightLower: sky.DefaultTwilightLower,
		TwilightUpper: sky.DefaultTwilightUpper,
	}
}

// Overrides replace wall-clock inputs for a single render.
type Overrides struct {
	Minute *int     // minutes past midnight
	Cycle  *float64 // moon cycle percent
}

// Orchestrator owns the render configuration and reads acquired data from a
// state.Manager. Render is safe for concurrent use.
type Orchestrator struct {
	mu      sync.RWMutex
	cfg     Config
	palette *sky.Palette

	data    *state.Manager
	logger  *logging.Logger
	refresh chan struct{}

	warnMu   sync.Mutex
	lastWarn string
}

// New creates an orchestrator over data. A nil logger discards output.
func New(data *state.Manager, cfg Config, logger *logging.Logger) *Orchestrator {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Orchestrator{
		cfg:     cfg,
		palette: sky.NewPalette(cfg.Palette, logger),
		data:    data,
		logger:  logger,
		refresh: make(chan struct{}, 1),
	}
}

// Data returns the state manager the orchestrator reads from.
func (o *Orchestrator) Data() *state.Manager {
	return o.data
}

// Config returns the current render configuration.
func (o *Orchestrator) Config() Config {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.cfg
}

// SetConfig replaces the render configuration. Gradients are rebuilt only
// when the palette spec changed.
func (o *Orchestrator) SetConfig(cfg Config) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.cfg = cfg
	o.palette = o.palette.Rebuild(cfg.Palette, o.logger)
}

// RefreshRequests delivers a signal whenever a render found the position
// snapshot missing or stale. Signals coalesce.
func (o *Orchestrator) RefreshRequests() <-chan struct{} {
	return o.refresh
}

func (o *Orchestrator) requestRefresh() {
	select {
	case o.refresh <- struct{}{}:
	default:
	}
}

// Render composes the scene for now, applying any overrides. The scene is
// drawn for the instant at the chosen minute on now's calendar day, so the
// wall-clock and override paths agree for equal minutes.
func (o *Orchestrator) Render(now time.Time, ov Overrides) Scene {
	o.mu.RLock()
	cfg, palette := o.cfg, o.palette
	o.mu.RUnlock()

	minute := MinuteOfDay(now)
	if ov.Minute != nil {
		minute = NormalizeMinute(*ov.Minute)
	}
	at := time.Date(now.Year(), now.Month(), now.Day(), minute/60, minute%60, 0, 0, now.Location())

	data := o.data.Snapshot()

	var sc Scene
	sc.Date = astro.DateKey(at)
	sc.Minute = minute
	sc.Clock, sc.Meridiem = FormatMinute(minute)
	sc.Greeting = Greeting(minute / 60)
	sc.Overridden = ov.Minute != nil || ov.Cycle != nil
	sc.Weather = data.Weather

	var pos astro.PositionSnapshot
	if data.Position == nil {
		pos = astro.DefaultSnapshot(at)
		o.requestRefresh()
	} else {
		pos = *data.Position
		if !pos.ValidFor(at) {
			sc.Stale = true
			o.requestRefresh()
		}
	}
	sc.Source = pos.Source
	sc.Degraded = pos.Source == astro.SourceDefault

	mins := float64(minute)

	// Sky colour.
	sunAlt := pos.Sun.AltitudeAt(mins)
	sc.Brightness = sky.Brightness(sunAlt, cfg.TwilightLower, cfg.TwilightUpper)
	sc.Evening = pos.Sun.Unwrap(mins) > pos.Sun.Midpoint()
	sc.SkyColor = sky.SkyColor(sc.Brightness, palette.SkyFor(sc.Evening))

	// Celestial positions.
	sc.Sun = Body{
		Altitude: sunAlt,
		Point:    cfg.Layout.Sun(sunAlt),
		Progress: pos.Sun.Progress(mins),
		Above:    sunAlt > 0,
	}
	moonAlt := pos.Moon.AltitudeAt(mins)
	sc.Moon.Body = Body{
		Altitude: moonAlt,
		Point:    cfg.Layout.Moon(moonAlt),
		Progress: pos.Moon.Progress(mins),
		Above:    moonAlt > 0,
	}
	sc.Moon.Rotation = 90 * (sc.Moon.Progress - 0.5)

	// Night opacity.
	sc.NightOpacity = sky.NightOpacity(sc.Brightness)
	sc.Moon.Opacity = sc.NightOpacity

	// Moon phase.
	phase, ok := o.moonPhase(data.NewMoons, at, ov.Cycle)
	sc.Moon.Phase = phase
	sc.Moon.PhaseOK = ok
	sc.Moon.Path = phase.Path(sc.Moon.Point.X, sc.Moon.Point.Y, astro.MoonRadius)
	sc.Moon.Name = phase.Name()
	sc.Moon.Glyph = phase.Glyph()
	sc.Moon.Illumination = phase.Illumination()

	// Star rotation.
	sc.StarRotation = sky.StarFieldRotation(mins)

	// Mountain colours.
	sc.MountainLeft, sc.MountainRight = palette.Mountains(sc.Brightness)

	return sc
}

func (o *Orchestrator) moonPhase(table *astro.NewMoonTable, at time.Time, cycle *float64) (astro.MoonPhase, bool) {
	if cycle != nil {
		return astro.PhaseFromCycle(*cycle), true
	}
	if table == nil {
		o.warnOnce("missing", errNoTable)
		return astro.FallbackPhase(), false
	}
	if !table.ValidFor(at) {
		o.warnOnce("stale", fmt.Errorf("new moon table for %d is stale", table.Year))
		return astro.FallbackPhase(), false
	}
	phase, err := astro.Phase(*table, at)
	if err != nil {
		o.warnOnce("exhausted", err)
		return phase, false
	}
	o.warnMu.Lock()
	o.lastWarn = ""
	o.warnMu.Unlock()
	return phase, true
}

// warnOnce logs a moon-phase warning unless the previous one had the same
// kind.
func (o *Orchestrator) warnOnce(kind string, err error) {
	o.warnMu.Lock()
	defer o.warnMu.Unlock()
	if kind == o.lastWarn {
		return
	}
	o.lastWarn = kind
	o.logger.Warn("moon phase fallback: %v", err)
}
