// Package config loads ls-rise settings from a config file, LSRISE_*
// environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/litescript/ls-rise/internal/cache"
	"github.com/litescript/ls-rise/internal/sky"
)

// EnvPrefix is prepended to every environment override, e.g.
// LSRISE_LOCATION_LAT.
const EnvPrefix = "LSRISE"

// Config represents the complete application configuration
type Config struct {
	Location  LocationConfig  `mapstructure:"location"`
	Astronomy AstronomyConfig `mapstructure:"astronomy"`
	Moon      MoonConfig      `mapstructure:"moon"`
	Weather   WeatherConfig   `mapstructure:"weather"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Render    RenderConfig    `mapstructure:"render"`
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	State     StateConfig     `mapstructure:"state"`
}

// LocationConfig holds the observer location.
type LocationConfig struct {
	Lat       float64 `mapstructure:"lat"`
	Lon       float64 `mapstructure:"lon"`
	Name      string  `mapstructure:"name"`
	Auto      bool    `mapstructure:"auto"`
	LocateURL string  `mapstructure:"locate_url"`
}

// HasCoordinates reports whether a location was configured. (0, 0) counts
// as unset.
func (l LocationConfig) HasCoordinates() bool {
	return l.Lat != 0 || l.Lon != 0
}

// AstronomyConfig holds the daily sun/moon API settings.
type AstronomyConfig struct {
	URL     string        `mapstructure:"url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
	Mode    string        `mapstructure:"mode"`
}

// MoonConfig holds the new-moon table API settings.
type MoonConfig struct {
	URL string `mapstructure:"url"`
}

// WeatherConfig holds the optional weather API settings.
type WeatherConfig struct {
	URL      string        `mapstructure:"url"`
	APIKey   string        `mapstructure:"api_key"`
	Units    string        `mapstructure:"units"`
	Interval time.Duration `mapstructure:"interval"`
}

// CacheConfig selects where acquired data is kept between runs.
type CacheConfig struct {
	Backend       string        `mapstructure:"backend"`
	Path          string        `mapstructure:"path"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	TTL           time.Duration `mapstructure:"ttl"`
}

// RenderConfig holds the appearance settings.
type RenderConfig struct {
	PollInterval  time.Duration `mapstructure:"poll_interval"`
	TwilightLower float64       `mapstructure:"twilight_lower"`
	TwilightUpper float64       `mapstructure:"twilight_upper"`
	Sky           []string      `mapstructure:"sky"`
	SkyEvening    []string      `mapstructure:"sky_evening"`
	SkySize       int           `mapstructure:"sky_size"`
	MountainLeft  []string      `mapstructure:"mountain_left"`
	MountainRight []string      `mapstructure:"mountain_right"`
	MountainSize  int           `mapstructure:"mountain_size"`
}

// ServerConfig holds the HTTP API settings.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// StateConfig holds the refresh cadence of acquired data.
type StateConfig struct {
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	MaxEvents       int           `mapstructure:"max_events"`
}

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"lat":       "location.lat",
	"lon":       "location.lon",
	"mode":      "astronomy.mode",
	"cache":     "cache.backend",
	"addr":      "server.addr",
	"log-level": "logging.level",
	"log-file":  "logging.file",
}

// RegisterFlags defines the flags that override config keys.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.Float64("lat", 0, "Observer latitude in degrees")
	fs.Float64("lon", 0, "Observer longitude in degrees")
	fs.String("mode", "auto", "Data sources: auto, remote, local")
	fs.String("cache", cache.BackendSQLite, "Cache backend: sqlite, redis, memory")
	fs.String("addr", ":8080", "HTTP listen address for --serve")
	fs.String("log-level", "info", "Log level (debug, info, warn, error)")
	fs.String("log-file", "", "Write logs to this file")
}

// Load reads configuration from path (or the default search path when
// path is empty), the environment and fs. fs may be nil.
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	v, err := newViper(path, fs)
	if err != nil {
		return nil, err
	}
	return decode(v)
}

// Watch loads the configuration like Load, then calls onChange each time
// the config file is rewritten. Decoding and validation errors are passed
// to onChange instead of the new config.
func Watch(path string, fs *pflag.FlagSet, onChange func(*Config, error)) (*Config, error) {
	v, err := newViper(path, fs)
	if err != nil {
		return nil, err
	}
	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	if v.ConfigFileUsed() == "" {
		return cfg, nil
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		next, err := decode(v)
		if err == nil {
			err = next.Validate()
		}
		if err != nil {
			onChange(nil, fmt.Errorf("reload %s: %w", e.Name, err))
			return
		}
		onChange(next, nil)
	})
	v.WatchConfig()
	return cfg, nil
}

func newViper(path string, fs *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if fs != nil {
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		return v, nil
	}

	v.SetConfigName("config")
	if dir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(dir, "ls-rise"))
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return v, nil
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	v.SetDefault("location.lat", 0.0)
	v.SetDefault("location.lon", 0.0)
	v.SetDefault("location.name", "")
	v.SetDefault("location.auto", true)
	v.SetDefault("location.locate_url", "http://ip-api.com/json")

	v.SetDefault("astronomy.url", "https://api.ipgeolocation.io/astronomy")
	v.SetDefault("astronomy.api_key", "")
	v.SetDefault("astronomy.timeout", "10s")
	v.SetDefault("astronomy.mode", "auto")

	v.SetDefault("moon.url", "https://aa.usno.navy.mil/api/moon/phases/year")

	v.SetDefault("weather.url", "https://api.openweathermap.org/data/2.5/weather")
	v.SetDefault("weather.api_key", "")
	v.SetDefault("weather.units", "imperial")
	v.SetDefault("weather.interval", "20m")

	v.SetDefault("cache.backend", cache.BackendSQLite)
	v.SetDefault("cache.path", defaultCachePath())
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.redis_password", "")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.ttl", "0s")

	spec := sky.DefaultPaletteSpec()
	v.SetDefault("render.poll_interval", "250ms")
	v.SetDefault("render.twilight_lower", sky.DefaultTwilightLower)
	v.SetDefault("render.twilight_upper", sky.DefaultTwilightUpper)
	v.SetDefault("render.sky", hexList(spec.Sky))
	v.SetDefault("render.sky_evening", hexList(spec.SkyEvening))
	v.SetDefault("render.sky_size", spec.SkySize)
	v.SetDefault("render.mountain_left", hexList(spec.MountainLeft))
	v.SetDefault("render.mountain_right", hexList(spec.MountainRight))
	v.SetDefault("render.mountain_size", spec.MountainSize)

	v.SetDefault("server.addr", ":8080")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file", "")

	v.SetDefault("state.refresh_interval", "15m")
	v.SetDefault("state.max_events", 50)
}

func defaultCachePath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "ls-rise.db"
	}
	return filepath.Join(dir, "ls-rise", "cache.db")
}

func hexList(colors []sky.Color) []string {
	out := make([]string, len(colors))
	for i, c := range colors {
		out[i] = c.Hex()
	}
	return out
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	if c.Location.Lat < -90 || c.Location.Lat > 90 {
		return fmt.Errorf("location.lat must be between -90 and 90")
	}
	if c.Location.Lon < -180 || c.Location.Lon > 180 {
		return fmt.Errorf("location.lon must be between -180 and 180")
	}

	switch c.Astronomy.Mode {
	case "auto", "remote", "local":
	default:
		return fmt.Errorf("astronomy.mode must be one of auto, remote, local")
	}
	if c.Astronomy.Timeout <= 0 {
		return fmt.Errorf("astronomy.timeout must be positive")
	}

	switch c.Weather.Units {
	case "imperial", "metric":
	default:
		return fmt.Errorf("weather.units must be imperial or metric")
	}
	if c.Weather.APIKey != "" && c.Weather.Interval < time.Minute {
		return fmt.Errorf("weather.interval must be at least 1 minute")
	}

	switch c.Cache.Backend {
	case cache.BackendSQLite:
		if c.Cache.Path == "" {
			return fmt.Errorf("cache.path is required for the sqlite backend")
		}
	case cache.BackendRedis:
		if c.Cache.RedisAddr == "" {
			return fmt.Errorf("cache.redis_addr is required for the redis backend")
		}
	case cache.BackendMemory:
	default:
		return fmt.Errorf("cache.backend must be one of sqlite, redis, memory")
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl must not be negative")
	}

	if c.Render.PollInterval <= 0 {
		return fmt.Errorf("render.poll_interval must be positive")
	}
	if c.Render.TwilightLower >= c.Render.TwilightUpper {
		return fmt.Errorf("render.twilight_lower must be below render.twilight_upper")
	}
	if _, err := c.Palette(); err != nil {
		return err
	}

	if c.State.RefreshInterval < time.Minute {
		return fmt.Errorf("state.refresh_interval must be at least 1 minute")
	}
	if c.State.MaxEvents < 1 {
		return fmt.Errorf("state.max_events must be at least 1")
	}

	return nil
}

// Palette parses the render colours. Short lists and non-positive sizes are
// left to the gradient builder, which renders them as an empty gradient.
func (c *Config) Palette() (sky.PaletteSpec, error) {
	spec := sky.PaletteSpec{
		SkySize:      c.Render.SkySize,
		MountainSize: c.Render.MountainSize,
	}
	lists := []struct {
		key string
		src []string
		dst *[]sky.Color
	}{
		{"render.sky", c.Render.Sky, &spec.Sky},
		{"render.sky_evening", c.Render.SkyEvening, &spec.SkyEvening},
		{"render.mountain_left", c.Render.MountainLeft, &spec.MountainLeft},
		{"render.mountain_right", c.Render.MountainRight, &spec.MountainRight},
	}
	for _, l := range lists {
		colors, err := parseColors(l.src)
		if err != nil {
			return sky.PaletteSpec{}, fmt.Errorf("%s: %w", l.key, err)
		}
		*l.dst = colors
	}
	return spec, nil
}

func parseColors(hex []string) ([]sky.Color, error) {
	out := make([]sky.Color, 0, len(hex))
	for _, h := range hex {
		c, err := sky.ParseHex(h)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}
