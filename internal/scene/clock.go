package scene

import (
	"fmt"
	"time"

	"github.com/litescript/ls-rise/internal/astro"
)

// ClockState is the minute the scene is drawn for and the last minute the
// clock reported.
type ClockState struct {
	Minute       int `json:"minute"`        // [0,1439]
	LastObserved int `json:"last_observed"` // -1 before the first poll
}

// Clock detects minute boundaries. It has a single mutator: the UI loop.
type Clock struct {
	state    ClockState
	override *int
}

// NewClock returns a clock that reports a change on its first poll.
func NewClock() *Clock {
	return &Clock{state: ClockState{LastObserved: -1}}
}

// MinuteOfDay returns minutes past local midnight.
func MinuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// NormalizeMinute folds any minute count into [0,1439].
func NormalizeMinute(m int) int {
	m %= astro.MinutesPerDay
	if m < 0 {
		m += astro.MinutesPerDay
	}
	return m
}

// Poll samples wall time. changed is true only when the minute-of-day
// differs from the last observed one. While an override is active the wall
// clock is ignored.
func (c *Clock) Poll(t time.Time) (minute int, changed bool) {
	if c.override != nil {
		return c.state.Minute, false
	}
	return c.observe(MinuteOfDay(t))
}

// Override pins the clock to minute until ClearOverride.
func (c *Clock) Override(minute int) (int, bool) {
	m := NormalizeMinute(minute)
	c.override = &m
	return c.observe(m)
}

// ClearOverride returns the clock to wall time. The next Poll reports a
// change if the wall minute differs from the overridden one.
func (c *Clock) ClearOverride() {
	c.override = nil
}

// Overridden reports whether the clock is pinned.
func (c *Clock) Overridden() bool {
	return c.override != nil
}

// State returns the current clock state.
func (c *Clock) State() ClockState {
	return c.state
}

func (c *Clock) observe(m int) (int, bool) {
	changed := m != c.state.LastObserved
	c.state.Minute = m
	c.state.LastObserved = m
	return m, changed
}

// FormatClock renders t as 12-hour clock text and meridiem, e.g. "6:05", "am".
func FormatClock(t time.Time) (string, string) {
	return FormatMinute(MinuteOfDay(t))
}

// FormatMinute renders a minute of the day as 12-hour clock text. Midnight
// and noon read 12.
func FormatMinute(minute int) (string, string) {
	minute = NormalizeMinute(minute)
	h, m := minute/60, minute%60
	meridiem := "am"
	if h >= 12 {
		meridiem = "pm"
	}
	h %= 12
	if h == 0 {
		h = 12
	}
	return fmt.Sprintf("%d:%02d", h, m), meridiem
}

// Greeting returns the time-of-day greeting for an hour in [0,23].
func Greeting(hour int) string {
	switch {
	case hour >= 22 || hour <= 3:
		return "Good night."
	case hour >= 18:
		return "Good evening."
	case hour >= 12:
		return "Good afternoon."
	default:
		return "Good morning."
	}
}
