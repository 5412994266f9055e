// Package ephem acquires the daily sun/moon calibration and the new-moon
// table from web APIs or from local ephemeris calculations.
package ephem

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/litescript/ls-rise/internal/astro"
)

// ErrNoLocation is returned when no observer location could be determined.
var ErrNoLocation = errors.New("no observer location")

// SnapshotSource supplies a calendar day's position snapshot for a location.
type SnapshotSource interface {
	// Name returns the source name for display/logging.
	Name() string

	// Snapshot returns the calibration for day's calendar date in day's
	// location.
	Snapshot(ctx context.Context, day time.Time, obs astro.Observer) (astro.PositionSnapshot, error)
}

// NewMoonSource supplies the new-moon table for a year. Tables cover the
// previous, current and next year.
type NewMoonSource interface {
	Name() string
	NewMoons(ctx context.Context, year int) (astro.NewMoonTable, error)
}

// Mode represents which data sources to use.
type Mode int

const (
	ModeAuto   Mode = iota // Try the web APIs, fall back to local calculation
	ModeRemote             // Web APIs only
	ModeLocal              // Local calculation only, no network
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeRemote:
		return "remote"
	case ModeLocal:
		return "local"
	case ModeAuto:
		return "auto"
	default:
		return "unknown"
	}
}

// ParseMode parses a mode string.
func ParseMode(s string) Mode {
	switch s {
	case "remote":
		return ModeRemote
	case "local":
		return ModeLocal
	default:
		return ModeAuto
	}
}

// parseHHMM converts "HH:MM" (optionally followed by ":SS" or ":SS.mmm") to
// minutes past midnight. ok is false for "-:-" and other placeholders.
func parseHHMM(s string) (mins float64, ok bool) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, false
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, false
	}
	var sec float64
	if len(parts) == 3 {
		if sec, err = strconv.ParseFloat(parts[2], 64); err != nil || sec < 0 || sec >= 60 {
			return 0, false
		}
	}
	return float64(h*60+m) + sec/60, true
}
