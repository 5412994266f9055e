// Command ls-rise is a sky clock: the sky colour, sun, moon and stars for
// the current minute, in the terminal or over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/litescript/ls-rise/internal/astro"
	"github.com/litescript/ls-rise/internal/cache"
	"github.com/litescript/ls-rise/internal/config"
	"github.com/litescript/ls-rise/internal/ephem"
	"github.com/litescript/ls-rise/internal/logging"
	"github.com/litescript/ls-rise/internal/scene"
	"github.com/litescript/ls-rise/internal/server"
	"github.com/litescript/ls-rise/internal/state"
	"github.com/litescript/ls-rise/internal/ui"
	"github.com/litescript/ls-rise/internal/version"
	"github.com/litescript/ls-rise/internal/weather"
)

// CLI flags for headless mode
var (
	configPath  string
	onceMode    bool
	format      string
	serveMode   bool
	minuteFlag  int
	cycleFlag   float64
	versionMode bool
)

func main() {
	fs := pflag.NewFlagSet("ls-rise", pflag.ExitOnError)
	config.RegisterFlags(fs)
	fs.StringVar(&configPath, "config", "", "Config file (default: $XDG_CONFIG_HOME/ls-rise/config.yaml)")
	fs.BoolVar(&onceMode, "once", false, "Print the current scene and exit")
	fs.StringVar(&format, "format", "text", "Output format for --once: text or json")
	fs.BoolVar(&serveMode, "serve", false, "Serve the HTTP API instead of the TUI")
	fs.IntVar(&minuteFlag, "minute", -1, "Render this minute of the day instead of the wall clock (--once)")
	fs.Float64Var(&cycleFlag, "cycle", -1, "Render this moon cycle (0 new, 0.5 full) (--once)")
	fs.BoolVar(&versionMode, "version", false, "Print version and exit")
	_ = fs.Parse(os.Args[1:])

	if versionMode {
		fmt.Println(version.UserAgent)
		return
	}

	isTTY := term.IsTerminal(int(os.Stdout.Fd()))
	tuiMode := !onceMode && !serveMode && isTTY
	if !onceMode && !serveMode && !isTTY {
		onceMode = true
	}

	// long-running modes pick up palette and twilight edits without a restart
	var reload chan configReload
	var cfg *config.Config
	var err error
	if onceMode {
		cfg, err = config.Load(configPath, fs)
	} else {
		reload = make(chan configReload, 1)
		cfg, err = config.Watch(configPath, fs, func(next *config.Config, err error) {
			select {
			case reload <- configReload{next, err}:
			default:
			}
		})
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		os.Exit(1)
	}

	// Set up logging
	logger, closeLog, err := newLogger(cfg.Logging, tuiMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := setup(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer a.store.Close()

	if reload != nil {
		go watchConfig(ctx, a, reload, logger)
	}

	switch {
	case onceMode:
		err = runOnce(ctx, a)
	case serveMode:
		err = runServer(ctx, a, cfg.Server.Addr, logger)
	default:
		err = runTUI(ctx, a, cfg.Render.PollInterval)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app holds the wired components.
type app struct {
	state    *state.Manager
	orch     *scene.Orchestrator
	acquirer *ephem.Acquirer
	store    cache.Store
}

func newLogger(cfg config.LoggingConfig, tuiMode bool) (*logging.Logger, func(), error) {
	level := logging.ParseLevel(cfg.Level)
	if cfg.File == "" {
		if tuiMode {
			// stderr would tear the alternate screen
			return logging.Discard(), func() {}, nil
		}
		return logging.New(level), func() {}, nil
	}

	f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	logger := logging.NewWithWriter(level, f)
	return logger, func() {
		logger.Sync()
		f.Close()
	}, nil
}

func setup(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*app, error) {
	store, err := cache.Open(ctx, cache.Config{
		Backend:       cfg.Cache.Backend,
		Path:          cfg.Cache.Path,
		RedisAddr:     cfg.Cache.RedisAddr,
		RedisPassword: cfg.Cache.RedisPassword,
		RedisDB:       cfg.Cache.RedisDB,
		TTL:           cfg.Cache.TTL,
	})
	if err != nil {
		logger.Warn("cache unavailable, using memory: %v", err)
		store = cache.NewMemory()
	}

	mode := ephem.ParseMode(cfg.Astronomy.Mode)
	api := ephem.NewAstronomyAPI(
		ephem.WithURL(cfg.Astronomy.URL),
		ephem.WithAPIKey(cfg.Astronomy.APIKey),
		ephem.WithTimeout(cfg.Astronomy.Timeout),
	)
	phases := ephem.NewUSNOPhases(
		ephem.WithURL(cfg.Moon.URL),
		ephem.WithTimeout(cfg.Astronomy.Timeout),
	)
	snapshotSources, moonSources := ephem.Chain(mode, api, phases)

	wx := weather.NewClient(
		weather.WithURL(cfg.Weather.URL),
		weather.WithAPIKey(cfg.Weather.APIKey),
		weather.WithUnits(cfg.Weather.Units),
	)

	acquirer := ephem.NewAcquirer(
		ephem.WithSnapshotSources(snapshotSources...),
		ephem.WithNewMoonSources(moonSources...),
		ephem.WithStore(store),
		ephem.WithWeather(wx, cfg.Weather.Interval),
		ephem.WithSourceTimeout(cfg.Astronomy.Timeout),
		ephem.WithLogger(logger.Named("ephem")),
	)

	stateCfg := state.DefaultConfig()
	stateCfg.RefreshInterval = cfg.State.RefreshInterval
	stateCfg.MaxEvents = cfg.State.MaxEvents
	st := state.NewManager(stateCfg)
	st.SetObserver(resolveObserver(ctx, cfg, mode, logger))

	sceneCfg, err := sceneConfig(cfg)
	if err != nil {
		store.Close()
		return nil, err
	}

	logger.Debug("sources: mode=%s snapshots=%d new-moons=%d cache=%s",
		mode, len(snapshotSources), len(moonSources), cfg.Cache.Backend)

	return &app{
		state:    st,
		orch:     scene.New(st, sceneCfg, logger.Named("scene")),
		acquirer: acquirer,
		store:    store,
	}, nil
}

func sceneConfig(cfg *config.Config) (scene.Config, error) {
	palette, err := cfg.Palette()
	if err != nil {
		return scene.Config{}, err
	}
	sceneCfg := scene.DefaultConfig()
	sceneCfg.Palette = palette
	sceneCfg.TwilightLower = cfg.Render.TwilightLower
	sceneCfg.TwilightUpper = cfg.Render.TwilightUpper
	return sceneCfg, nil
}

type configReload struct {
	cfg *config.Config
	err error
}

// watchConfig applies reloaded render settings until ctx is done.
func watchConfig(ctx context.Context, a *app, reload <-chan configReload, logger *logging.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case r := <-reload:
			if r.err != nil {
				logger.Warn("%v", r.err)
				continue
			}
			next := r.cfg
			sceneCfg, err := sceneConfig(next)
			if err != nil {
				logger.Warn("config reload: %v", err)
				continue
			}
			a.orch.SetConfig(sceneCfg)
			a.state.SetRefreshInterval(next.State.RefreshInterval)
			logger.Info("config reloaded")
		}
	}
}

// resolveObserver uses configured coordinates, then IP geolocation unless
// running offline.
func resolveObserver(ctx context.Context, cfg *config.Config, mode ephem.Mode, logger *logging.Logger) astro.Observer {
	loc := cfg.Location
	if loc.HasCoordinates() {
		return astro.Observer{LatDeg: loc.Lat, LonDeg: loc.Lon, Name: loc.Name}
	}
	if loc.Auto && mode != ephem.ModeLocal {
		locator := ephem.NewLocator(
			ephem.WithURL(loc.LocateURL),
			ephem.WithTimeout(cfg.Astronomy.Timeout),
		)
		obs, err := locator.Locate(ctx)
		if err == nil {
			logger.Info("located at %s (%s)", obs.Key(), obs.Name)
			return obs
		}
		logger.Warn("locate: %v", err)
	}
	logger.Warn("no location configured; set location.lat and location.lon")
	return astro.Observer{}
}

func runOnce(ctx context.Context, a *app) error {
	now := time.Now()
	a.acquirer.Refresh(ctx, a.state, now)
	a.acquirer.RefreshWeather(ctx, a.state)

	var ov scene.Overrides
	if minuteFlag >= 0 {
		ov.Minute = &minuteFlag
	}
	if cycleFlag >= 0 {
		ov.Cycle = &cycleFlag
	}
	sc := a.orch.Render(now, ov)

	switch format {
	case "json":
		if err := sc.WriteJSON(os.Stdout); err != nil {
			return fmt.Errorf("write JSON to stdout: %w", err)
		}
	case "text":
		sc.WriteSummary(os.Stdout)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
	return nil
}

func runServer(ctx context.Context, a *app, addr string, logger *logging.Logger) error {
	go a.acquirer.Run(ctx, a.state, a.orch.RefreshRequests())

	srv := server.New(a.orch, server.WithLogger(logger.Named("http")))
	return srv.ListenAndServe(ctx, addr)
}

func runTUI(ctx context.Context, a *app, poll time.Duration) error {
	// Start acquisition in background
	go a.acquirer.Run(ctx, a.state, a.orch.RefreshRequests())

	p := tea.NewProgram(ui.New(a.orch, poll), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("running TUI: %w", err)
	}
	return nil
}
