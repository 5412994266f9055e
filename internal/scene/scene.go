// Package scene turns a clock minute and the acquired sky data into the
// bundle the presentation layers draw.
package scene

import (
	"github.com/litescript/ls-rise/internal/astro"
	"github.com/litescript/ls-rise/internal/sky"
	"github.com/litescript/ls-rise/internal/weather"
)

// Body is a sun or moon placement.
type Body struct {
	Altitude float64   `json:"altitude"` // degrees
	Point    sky.Point `json:"point"`
	Progress float64   `json:"progress"` // fraction of rise→set elapsed
	Above    bool      `json:"above"`
}

// Moon is the moon's placement plus its silhouette.
type Moon struct {
	Body
	Rotation     float64         `json:"rotation"` // degrees
	Opacity      float64         `json:"opacity"`
	Phase        astro.MoonPhase `json:"phase"`
	PhaseOK      bool            `json:"phase_ok"`
	Path         string          `json:"path"`
	Name         string          `json:"name"`
	Glyph        string          `json:"glyph"`
	Illumination float64         `json:"illumination"`
}

// Scene is everything the presentation layer needs for one minute.
type Scene struct {
	Date     string `json:"date"`
	Minute   int    `json:"minute"`
	Clock    string `json:"clock"`
	Meridiem string `json:"meridiem"`
	Greeting string `json:"greeting"`

	SkyColor     sky.Color `json:"sky_color"`
	Evening      bool      `json:"evening"`
	Brightness   float64   `json:"brightness"`
	NightOpacity float64   `json:"night_opacity"`

	Sun  Body `json:"sun"`
	Moon Moon `json:"moon"`

	StarRotation  float64   `json:"star_rotation"`
	MountainLeft  sky.Color `json:"mountain_left"`
	MountainRight sky.Color `json:"mountain_right"`

	Source     string `json:"source"`
	Degraded   bool   `json:"degraded"` // built-in defaults in use
	Stale      bool   `json:"stale"`    // snapshot from another day
	Overridden bool   `json:"overridden"`

	Weather *weather.Conditions `json:"weather,omitempty"`
}
