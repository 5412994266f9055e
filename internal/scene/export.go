package scene

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// WriteJSON writes the scene as indented JSON.
func (s Scene) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// WriteSummary writes a short text report of the scene.
func (s Scene) WriteSummary(w io.Writer) {
	fmt.Fprintf(w, "%s %s  %s  (%s)\n", s.Clock, s.Meridiem, s.Greeting, s.Date)
	fmt.Fprintln(w, strings.Repeat("─", 48))

	fmt.Fprintf(w, "%-6s %s  brightness %.2f  %s\n", "Sky", s.SkyColor.Hex(), s.Brightness, skyTime(s))
	fmt.Fprintf(w, "%-6s %6.1f°  %-7s %3.0f%% of arc\n", "Sun", s.Sun.Altitude, upDown(s.Sun.Above), s.Sun.Progress*100)
	fmt.Fprintf(w, "%-6s %6.1f°  %-7s %3.0f%% of arc\n", "Moon", s.Moon.Altitude, upDown(s.Moon.Above), s.Moon.Progress*100)
	fmt.Fprintf(w, "%-6s %s %s, %.0f%% lit", "Phase", s.Moon.Glyph, s.Moon.Name, s.Moon.Illumination*100)
	if !s.Moon.PhaseOK {
		fmt.Fprint(w, " (estimated)")
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%-6s %.1f°\n", "Stars", s.StarRotation)
	if s.Weather != nil {
		fmt.Fprintf(w, "%-6s %s\n", "Wx", s.Weather.String())
	}

	fmt.Fprintln(w, strings.Repeat("─", 48))
	source := s.Source
	switch {
	case s.Degraded:
		source += " (built-in defaults)"
	case s.Stale:
		source += " (stale)"
	}
	fmt.Fprintf(w, "Source: %s\n", source)
}

func skyTime(s Scene) string {
	if s.Evening {
		return "evening"
	}
	return "morning"
}

func upDown(above bool) string {
	if above {
		return "up"
	}
	return "down"
}
