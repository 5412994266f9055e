// Package state provides thread-safe storage for acquired sky data.
package state

import (
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/litescript/ls-rise/internal/astro"
	"github.com/litescript/ls-rise/internal/weather"
)

// EventType represents the type of state change event.
type EventType string

const (
	EventSnapshotLoaded EventType = "SNAPSHOT_LOADED"
	EventDayRollover    EventType = "DAY_ROLLOVER"
	EventNewMoonsLoaded EventType = "NEW_MOONS_LOADED"
	EventWeatherUpdated EventType = "WEATHER_UPDATED"
	EventFetchFailed    EventType = "FETCH_FAILED"
)

// Event represents a change in the acquired data.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source,omitempty"`
	Key       string    `json:"key,omitempty"` // date or year the data is valid for
	Detail    string    `json:"detail,omitempty"`
}

// Manager handles all shared acquisition state with thread-safe access.
type Manager struct {
	mu sync.RWMutex

	observer astro.Observer
	snapshot *astro.PositionSnapshot
	newMoons *astro.NewMoonTable
	weather  *weather.Conditions

	lastFetch     time.Time
	lastError     error
	fetchDuration time.Duration

	// Event log (ring buffer)
	events       []Event
	maxEvents    int
	eventWriteAt int

	// gen counts recorded events so readers can detect changes cheaply.
	gen uint64

	refreshInterval time.Duration
}

// Config holds configuration for the state manager.
type Config struct {
	MaxEvents       int
	RefreshInterval time.Duration
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() Config {
	return Config{
		MaxEvents:       50,
		RefreshInterval: 15 * time.Minute,
	}
}

// NewManager creates a new state manager.
func NewManager(cfg Config) *Manager {
	maxEvents := cfg.MaxEvents
	if maxEvents <= 0 {
		maxEvents = 50
	}
	return &Manager{
		maxEvents:       maxEvents,
		events:          make([]Event, 0, maxEvents),
		refreshInterval: cfg.RefreshInterval,
	}
}

// SetObserver records where the data is being computed for.
func (m *Manager) SetObserver(obs astro.Observer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observer = obs
}

// UpdateSnapshot records the outcome of a snapshot acquisition. A nil snap
// keeps the last good snapshot in place.
func (m *Manager) UpdateSnapshot(snap *astro.PositionSnapshot, fetchDuration time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	m.lastFetch = now
	m.lastError = err
	m.fetchDuration = fetchDuration

	if err != nil {
		m.addEvent(Event{Type: EventFetchFailed, Timestamp: now, Detail: err.Error()})
	}
	if snap == nil {
		return
	}

	if m.snapshot != nil && m.snapshot.Date != snap.Date {
		m.addEvent(Event{Type: EventDayRollover, Timestamp: now, Key: snap.Date})
	}
	m.addEvent(Event{Type: EventSnapshotLoaded, Timestamp: now, Source: snap.Source, Key: snap.Date})

	cp := *snap
	m.snapshot = &cp
}

// UpdateNewMoons records a new-moon table. A nil table keeps the previous one.
func (m *Manager) UpdateNewMoons(table *astro.NewMoonTable, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if err != nil {
		m.addEvent(Event{Type: EventFetchFailed, Timestamp: now, Detail: err.Error()})
	}
	if table == nil {
		return
	}

	cp := *table
	cp.Epochs = slices.Clone(table.Epochs)
	m.newMoons = &cp
	m.addEvent(Event{
		Type:      EventNewMoonsLoaded,
		Timestamp: now,
		Source:    table.Source,
		Key:       strconv.Itoa(table.Year),
	})
}

// UpdateWeather records current conditions. A nil value keeps the previous
// conditions.
func (m *Manager) UpdateWeather(cond *weather.Conditions, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if err != nil {
		m.addEvent(Event{Type: EventFetchFailed, Timestamp: now, Source: "weather", Detail: err.Error()})
	}
	if cond == nil {
		return
	}
	cp := *cond
	m.weather = &cp
	m.addEvent(Event{Type: EventWeatherUpdated, Timestamp: now, Detail: cond.String()})
}

// addEvent adds an event to the ring buffer.
func (m *Manager) addEvent(e Event) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	m.gen++
	if len(m.events) < m.maxEvents {
		m.events = append(m.events, e)
	} else {
		m.events[m.eventWriteAt] = e
		m.eventWriteAt = (m.eventWriteAt + 1) % m.maxEvents
	}
}

// Generation increases whenever an update records an event.
func (m *Manager) Generation() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.gen
}

// Snapshot represents an immutable snapshot of current state.
type Snapshot struct {
	Observer      astro.Observer
	Position      *astro.PositionSnapshot
	NewMoons      *astro.NewMoonTable
	Weather       *weather.Conditions
	LastFetch     time.Time
	LastError     error
	FetchDuration time.Duration
	Events        []Event
}

// Snapshot returns a consistent snapshot of current state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := Snapshot{
		Observer:      m.observer,
		LastFetch:     m.lastFetch,
		LastError:     m.lastError,
		FetchDuration: m.fetchDuration,
		Events:        m.getEventsOrdered(),
	}
	if m.snapshot != nil {
		cp := *m.snapshot
		snap.Position = &cp
	}
	if m.newMoons != nil {
		cp := *m.newMoons
		cp.Epochs = slices.Clone(m.newMoons.Epochs)
		snap.NewMoons = &cp
	}
	if m.weather != nil {
		cp := *m.weather
		snap.Weather = &cp
	}
	return snap
}

// getEventsOrdered returns events in chronological order.
func (m *Manager) getEventsOrdered() []Event {
	if len(m.events) == 0 {
		return nil
	}

	if len(m.events) < m.maxEvents {
		result := make([]Event, len(m.events))
		copy(result, m.events)
		return result
	}

	// Ring buffer is full, reorder from oldest to newest
	result := make([]Event, m.maxEvents)
	for i := 0; i < m.maxEvents; i++ {
		idx := (m.eventWriteAt + i) % m.maxEvents
		result[i] = m.events[idx]
	}
	return result
}

// RecentEvents returns the last n events.
func (m *Manager) RecentEvents(n int) []Event {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := m.getEventsOrdered()
	if len(all) <= n {
		return all
	}
	return all[len(all)-n:]
}

// NeedsSnapshot reports whether the held snapshot is missing, belongs to a
// different calendar day than now, or is only the built-in default.
func (m *Manager) NeedsSnapshot(now time.Time) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot == nil || !m.snapshot.ValidFor(now) || m.snapshot.Source == astro.SourceDefault
}

// NeedsNewMoons reports whether the held table is missing or from another
// year.
func (m *Manager) NeedsNewMoons(now time.Time) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.newMoons == nil || !m.newMoons.ValidFor(now)
}

// RefreshInterval returns the configured refresh interval.
func (m *Manager) RefreshInterval() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.refreshInterval
}

// SetRefreshInterval updates the refresh interval.
func (m *Manager) SetRefreshInterval(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshInterval = d
}

// HasData returns true once a position snapshot has been stored.
func (m *Manager) HasData() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot != nil
}
