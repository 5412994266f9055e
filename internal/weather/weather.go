// Package weather fetches current conditions for the clock's weather line.
package weather

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tidwall/gjson"

	"github.com/litescript/ls-rise/internal/version"
)

const (
	// DefaultURL is the OpenWeatherMap current-weather endpoint.
	DefaultURL = "https://api.openweathermap.org/data/2.5/weather"

	// DefaultTimeout for HTTP requests.
	DefaultTimeout = 10 * time.Second

	// DefaultInterval is how often conditions are refreshed.
	DefaultInterval = 20 * time.Minute
)

// ErrNoAPIKey is returned when the client has no key configured.
var ErrNoAPIKey = errors.New("weather API key not configured")

// Conditions is the current weather at a location.
type Conditions struct {
	TempF     float64   `json:"temp_f"`
	Summary   string    `json:"summary"`
	FetchedAt time.Time `json:"fetched_at"`
}

// String renders the conditions for the weather line, e.g. "71°F Clouds".
// The temperature is truncated, not rounded.
func (c Conditions) String() string {
	temp := int(math.Trunc(c.TempF))
	if c.Summary == "" {
		return fmt.Sprintf("%d°F", temp)
	}
	return fmt.Sprintf("%d°F %s", temp, c.Summary)
}

// Client queries the weather API.
type Client struct {
	client  *http.Client
	url     string
	apiKey  string
	units   string
	timeout time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithURL overrides the endpoint.
func WithURL(u string) Option {
	return func(c *Client) {
		c.url = u
	}
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithUnits sets the unit system sent to the API ("imperial" or "metric").
// Temperatures are always reported in Fahrenheit.
func WithUnits(units string) Option {
	return func(c *Client) {
		c.units = units
	}
}

// WithTimeout sets the HTTP request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.client = hc
	}
}

// NewClient creates a weather client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		url:     DefaultURL,
		units:   "imperial",
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.client == nil {
		c.client = &http.Client{Timeout: c.timeout}
	}
	return c
}

// Enabled reports whether the client has an API key.
func (c *Client) Enabled() bool {
	return c.apiKey != ""
}

// Current fetches conditions at lat/lon.
func (c *Client) Current(ctx context.Context, lat, lon float64) (Conditions, error) {
	if !c.Enabled() {
		return Conditions{}, ErrNoAPIKey
	}

	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(lat, 'f', 4, 64))
	params.Set("lon", strconv.FormatFloat(lon, 'f', 4, 64))
	params.Set("units", c.units)
	params.Set("appid", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url+"?"+params.Encode(), nil)
	if err != nil {
		return Conditions{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", version.UserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return Conditions{}, fmt.Errorf("fetch weather: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Conditions{}, fmt.Errorf("weather returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Conditions{}, fmt.Errorf("read response body: %w", err)
	}

	cond, err := Parse(body, c.units)
	if err != nil {
		return Conditions{}, err
	}
	cond.FetchedAt = time.Now()
	return cond, nil
}

// Parse extracts conditions from a current-weather response body.
func Parse(body []byte, units string) (Conditions, error) {
	if !gjson.ValidBytes(body) {
		return Conditions{}, errors.New("weather response is not valid JSON")
	}
	temp := gjson.GetBytes(body, "main.temp")
	if !temp.Exists() {
		return Conditions{}, errors.New("weather response missing main.temp")
	}

	f := temp.Float()
	if units == "metric" {
		f = f*9/5 + 32
	}
	return Conditions{
		TempF:   f,
		Summary: gjson.GetBytes(body, "weather.0.main").String(),
	}, nil
}
