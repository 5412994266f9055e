package ephem

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/litescript/ls-rise/internal/astro"
	"github.com/litescript/ls-rise/internal/cache"
	"github.com/litescript/ls-rise/internal/logging"
	"github.com/litescript/ls-rise/internal/state"
	"github.com/litescript/ls-rise/internal/weather"
)

// WeatherSource supplies current conditions.
type WeatherSource interface {
	Enabled() bool
	Current(ctx context.Context, lat, lon float64) (weather.Conditions, error)
}

// Acquirer runs the acquisition chain: cache, then each configured source
// in order, then built-in defaults. Failures are logged and never fatal.
type Acquirer struct {
	snapshots []SnapshotSource
	newMoons  []NewMoonSource
	store     cache.Store
	weather   WeatherSource

	timeout         time.Duration
	weatherInterval time.Duration
	logger          *logging.Logger
	now             func() time.Time
}

// AcquirerOption configures an Acquirer.
type AcquirerOption func(*Acquirer)

// WithSnapshotSources sets the ordered snapshot sources.
func WithSnapshotSources(srcs ...SnapshotSource) AcquirerOption {
	return func(a *Acquirer) {
		a.snapshots = srcs
	}
}

// WithNewMoonSources sets the ordered new-moon sources.
func WithNewMoonSources(srcs ...NewMoonSource) AcquirerOption {
	return func(a *Acquirer) {
		a.newMoons = srcs
	}
}

// WithStore sets the cache consulted before and filled after each source.
func WithStore(s cache.Store) AcquirerOption {
	return func(a *Acquirer) {
		a.store = s
	}
}

// WithWeather enables the weather refresh.
func WithWeather(w WeatherSource, interval time.Duration) AcquirerOption {
	return func(a *Acquirer) {
		a.weather = w
		a.weatherInterval = interval
	}
}

// WithSourceTimeout bounds each source attempt.
func WithSourceTimeout(d time.Duration) AcquirerOption {
	return func(a *Acquirer) {
		a.timeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) AcquirerOption {
	return func(a *Acquirer) {
		a.logger = l
	}
}

// NewAcquirer creates an acquirer. Without sources it only ever yields
// defaults.
func NewAcquirer(opts ...AcquirerOption) *Acquirer {
	a := &Acquirer{
		timeout:         DefaultTimeout,
		weatherInterval: weather.DefaultInterval,
		logger:          logging.Discard(),
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Chain returns the snapshot and new-moon sources for a mode. The remote
// astronomy API is skipped when it has no key.
func Chain(mode Mode, api *AstronomyAPI, phases *USNOPhases) ([]SnapshotSource, []NewMoonSource) {
	local := []SnapshotSource{NewLocalAstronomy()}
	localMoons := []NewMoonSource{NewLocalNewMoons()}

	var remote []SnapshotSource
	if api != nil && api.Enabled() {
		remote = append(remote, api)
	}
	var remoteMoons []NewMoonSource
	if phases != nil {
		remoteMoons = append(remoteMoons, phases)
	}

	switch mode {
	case ModeRemote:
		return remote, remoteMoons
	case ModeLocal:
		return local, localMoons
	default:
		return append(remote, local...), append(remoteMoons, localMoons...)
	}
}

// Snapshot returns day's snapshot for obs. When every source fails, or
// obs is unset, it returns the default snapshot together with the error.
func (a *Acquirer) Snapshot(ctx context.Context, day time.Time, obs astro.Observer) (astro.PositionSnapshot, error) {
	date := astro.DateKey(day)
	if !obs.Located() {
		a.logger.Warn("no location for %s, using defaults", date)
		return astro.DefaultSnapshot(day), fmt.Errorf("%w: %+v", ErrNoLocation, obs)
	}

	if a.store != nil {
		snap, err := a.store.GetSnapshot(ctx, date, obs.Key())
		switch {
		case err == nil && snap.ValidFor(day) && snap.Validate() == nil:
			a.logger.Debug("snapshot %s from cache (%s)", date, snap.Source)
			snap.Source = astro.SourceCache
			return snap, nil
		case err != nil && !errors.Is(err, cache.ErrNotFound):
			a.logger.Warn("cache read %s: %v", date, err)
		}
	}

	var errs []error
	for _, src := range a.snapshots {
		sctx, cancel := context.WithTimeout(ctx, a.timeout)
		snap, err := src.Snapshot(sctx, day, obs)
		cancel()
		if err == nil {
			err = snap.Validate()
		}
		if err != nil {
			a.logger.Warn("snapshot source %s: %v", src.Name(), err)
			errs = append(errs, fmt.Errorf("%s: %w", src.Name(), err))
			continue
		}

		a.logger.Info("snapshot %s from %s: sun %d-%d coef %.1f, moon %d-%d coef %.1f",
			date, src.Name(),
			snap.Sun.RiseMins, snap.Sun.SetMins, snap.Sun.Coefficient,
			snap.Moon.RiseMins, snap.Moon.SetMins, snap.Moon.Coefficient)
		if a.store != nil {
			if err := a.store.PutSnapshot(ctx, obs.Key(), snap); err != nil {
				a.logger.Warn("cache write %s: %v", date, err)
			}
		}
		return snap, nil
	}

	a.logger.Warn("all snapshot sources failed for %s, using defaults", date)
	if len(errs) == 0 {
		errs = append(errs, errors.New("no snapshot sources configured"))
	}
	return astro.DefaultSnapshot(day), errors.Join(errs...)
}

// NewMoons returns the new-moon table for year.
func (a *Acquirer) NewMoons(ctx context.Context, year int) (astro.NewMoonTable, error) {
	if a.store != nil {
		table, err := a.store.GetNewMoons(ctx, year)
		switch {
		case err == nil && table.Year == year && table.Validate() == nil:
			a.logger.Debug("new moons %d from cache", year)
			return table, nil
		case err != nil && !errors.Is(err, cache.ErrNotFound):
			a.logger.Warn("cache read new moons %d: %v", year, err)
		}
	}

	var errs []error
	for _, src := range a.newMoons {
		sctx, cancel := context.WithTimeout(ctx, a.timeout)
		table, err := src.NewMoons(sctx, year)
		cancel()
		if err == nil {
			err = table.Validate()
		}
		if err != nil {
			a.logger.Warn("new moon source %s: %v", src.Name(), err)
			errs = append(errs, fmt.Errorf("%s: %w", src.Name(), err))
			continue
		}

		a.logger.Info("new moons %d from %s: %d epochs", year, src.Name(), len(table.Epochs))
		if a.store != nil {
			if err := a.store.PutNewMoons(ctx, table); err != nil {
				a.logger.Warn("cache write new moons %d: %v", year, err)
			}
		}
		return table, nil
	}

	if len(errs) == 0 {
		errs = append(errs, errors.New("no new moon sources configured"))
	}
	return astro.NewMoonTable{}, errors.Join(errs...)
}

// Refresh acquires whatever st is missing or holds stale for now.
func (a *Acquirer) Refresh(ctx context.Context, st *state.Manager, now time.Time) {
	obs := st.Snapshot().Observer

	if st.NeedsSnapshot(now) {
		start := time.Now()
		snap, err := a.Snapshot(ctx, now, obs)
		st.UpdateSnapshot(&snap, time.Since(start), err)
	}

	if st.NeedsNewMoons(now) {
		table, err := a.NewMoons(ctx, now.Year())
		if err != nil {
			st.UpdateNewMoons(nil, err)
		} else {
			st.UpdateNewMoons(&table, nil)
		}
	}
}

// RefreshWeather updates st's weather if a source is enabled.
func (a *Acquirer) RefreshWeather(ctx context.Context, st *state.Manager) {
	if a.weather == nil || !a.weather.Enabled() {
		return
	}
	obs := st.Snapshot().Observer
	if !obs.Located() {
		a.logger.Debug("weather: %v", ErrNoLocation)
		st.UpdateWeather(nil, ErrNoLocation)
		return
	}
	wctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	cond, err := a.weather.Current(wctx, obs.LatDeg, obs.LonDeg)
	if err != nil {
		a.logger.Warn("weather: %v", err)
		st.UpdateWeather(nil, err)
		return
	}
	st.UpdateWeather(&cond, nil)
}

// Run refreshes st immediately, then whenever the refresh interval passes
// or a signal arrives on requests, until ctx is done.
func (a *Acquirer) Run(ctx context.Context, st *state.Manager, requests <-chan struct{}) {
	a.Refresh(ctx, st, a.now())
	a.RefreshWeather(ctx, st)

	interval := st.RefreshInterval()
	if interval <= 0 {
		interval = state.DefaultConfig().RefreshInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var weatherTick <-chan time.Time
	if a.weather != nil && a.weather.Enabled() && a.weatherInterval > 0 {
		wt := time.NewTicker(a.weatherInterval)
		defer wt.Stop()
		weatherTick = wt.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.Refresh(ctx, st, a.now())
		case <-requests:
			a.Refresh(ctx, st, a.now())
		case <-weatherTick:
			a.RefreshWeather(ctx, st)
		}
	}
}
