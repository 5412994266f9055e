package ephem

import (
	"context"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/litescript/ls-rise/internal/astro"
)

// DefaultLocateURL is an IP geolocation endpoint returning lat/lon JSON.
const DefaultLocateURL = "http://ip-api.com/json/"

// Locator resolves the observer from the machine's public IP.
type Locator struct {
	httpSource
}

// NewLocator creates an IP geolocation client.
func NewLocator(opts ...Option) *Locator {
	return &Locator{httpSource: newHTTPSource(DefaultLocateURL, opts)}
}

// Locate returns the observer for the current public IP.
func (l *Locator) Locate(ctx context.Context) (astro.Observer, error) {
	body, err := l.get(ctx, l.url)
	if err != nil {
		return astro.Observer{}, fmt.Errorf("%w: %v", ErrNoLocation, err)
	}
	return ParseLocation(body)
}

// ParseLocation reads lat, lon and an optional city from a geolocation
// response.
func ParseLocation(body []byte) (astro.Observer, error) {
	if !gjson.ValidBytes(body) {
		return astro.Observer{}, fmt.Errorf("%w: response is not valid JSON", ErrNoLocation)
	}
	res := gjson.GetManyBytes(body, "lat", "lon", "city", "status")
	lat, lon, city, status := res[0], res[1], res[2], res[3]

	if status.Exists() && status.String() != "success" {
		return astro.Observer{}, fmt.Errorf("%w: status %q", ErrNoLocation, status.String())
	}
	if !lat.Exists() || !lon.Exists() {
		return astro.Observer{}, fmt.Errorf("%w: response missing lat/lon", ErrNoLocation)
	}

	obs := astro.Observer{LatDeg: lat.Float(), LonDeg: lon.Float(), Name: city.String()}
	if !obs.Valid() {
		return astro.Observer{}, fmt.Errorf("%w: coordinates out of range %+v", ErrNoLocation, obs)
	}
	return obs, nil
}
