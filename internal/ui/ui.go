// Package ui provides the terminal sky clock using Bubble Tea.
package ui

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/litescript/ls-rise/internal/scene"
	"github.com/litescript/ls-rise/internal/version"
)

// Debug key steps.
const (
	minuteStep = 10
	cycleStep  = 0.05
)

// DefaultPollInterval is how often the wall clock is sampled.
const DefaultPollInterval = 250 * time.Millisecond

// Msg types for Bubble Tea
type (
	// TickMsg triggers a clock poll.
	TickMsg time.Time
)

// Model is the root Bubble Tea model.
type Model struct {
	// Dependencies
	orch  *scene.Orchestrator
	clock *scene.Clock
	sky   SkyView
	poll  time.Duration
	now   func() time.Time

	// UI state
	width  int
	height int
	ready  bool

	// Last render
	scene    scene.Scene
	rendered bool
	gen      uint64

	// Moon cycle override, nil follows the new-moon table
	cycle *float64
}

// New creates a new root UI model. A non-positive poll uses
// DefaultPollInterval.
func New(orch *scene.Orchestrator, poll time.Duration) Model {
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	return Model{
		orch:  orch,
		clock: scene.NewClock(),
		sky:   NewSkyView(),
		poll:  poll,
		now:   time.Now,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tickCmd(m.poll)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "right", "l":
			m.shiftMinute(minuteStep)
		case "left", "h":
			m.shiftMinute(-minuteStep)
		case "]":
			m.shiftCycle(cycleStep)
		case "[":
			m.shiftCycle(-cycleStep)
		case "r":
			m.reset()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true

	case TickMsg:
		t := time.Time(msg)
		_, changed := m.clock.Poll(t)
		if changed || !m.rendered || m.orch.Data().Generation() != m.gen {
			m.render(t)
		}
		return m, tickCmd(m.poll)
	}

	return m, nil
}

// render recomposes the scene for t with the active overrides.
func (m *Model) render(t time.Time) {
	ov := scene.Overrides{Cycle: m.cycle}
	if m.clock.Overridden() {
		minute := m.clock.State().Minute
		ov.Minute = &minute
	}
	m.gen = m.orch.Data().Generation()
	m.scene = m.orch.Render(t, ov)
	m.rendered = true
}

func (m *Model) shiftMinute(delta int) {
	m.clock.Override(m.clock.State().Minute + delta)
	m.render(m.now())
}

func (m *Model) shiftCycle(delta float64) {
	base := m.scene.Moon.Phase.CyclePercent
	if m.cycle != nil {
		base = *m.cycle
	}
	c := wrapCycle(base + delta)
	m.cycle = &c
	m.render(m.now())
}

func (m *Model) reset() {
	m.clock.ClearOverride()
	m.cycle = nil
	now := m.now()
	m.clock.Poll(now)
	m.render(now)
}

// wrapCycle folds a cycle percent into [0,1), rounding away float drift
// from repeated steps.
func wrapCycle(c float64) float64 {
	c = math.Round(c*1e6) / 1e6
	c = math.Mod(c, 1)
	if c < 0 {
		c++
	}
	return c
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready || !m.rendered {
		return "Initializing..."
	}

	header := m.renderHeader()
	footer := m.renderFooter()
	skyHeight := m.height - lipgloss.Height(header) - lipgloss.Height(footer)
	canvas := m.sky.Render(m.scene, m.orch.Config().Layout, m.width, skyHeight)

	return header + "\n" + canvas + "\n" + footer
}

func (m Model) renderHeader() string {
	sc := m.scene
	clockStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("255"))
	meridiemStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	greetStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(sc.SkyColor.Hex()))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("60"))

	var b strings.Builder
	b.WriteString("  " + clockStyle.Render(sc.Clock) + " " + meridiemStyle.Render(sc.Meridiem))
	b.WriteString("   " + greetStyle.Render(sc.Greeting))
	b.WriteString("\n  ")
	if sc.Weather != nil {
		b.WriteString(meridiemStyle.Render(sc.Weather.String()) + dimStyle.Render("  ·  "))
	}
	b.WriteString(dimStyle.Render(fmt.Sprintf("%s %s  %.0f%% lit", sc.Moon.Glyph, sc.Moon.Name, sc.Moon.Illumination*100)))
	return b.String()
}

func (m Model) renderFooter() string {
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("60"))
	warnStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#E84A27"))
	accentStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#7B2CBF"))

	return "  " + m.statusLine(dimStyle, warnStyle, accentStyle) + "\n  " +
		dimStyle.Render("←/→: ±10 min | [/]: moon cycle | r: reset | q: quit")
}

func (m Model) statusLine(dim, warn, accent lipgloss.Style) string {
	sc := m.scene
	data := m.orch.Data().Snapshot()

	var parts []string
	switch {
	case sc.Degraded:
		parts = append(parts, warn.Render("default sky (no data)"))
	case sc.Stale:
		parts = append(parts, warn.Render("stale data from "+sc.Source))
	default:
		parts = append(parts, dim.Render("source: "+sc.Source))
	}
	if !data.LastFetch.IsZero() {
		parts = append(parts, dim.Render("updated "+humanize.Time(data.LastFetch)))
	}
	if !sc.Moon.PhaseOK {
		parts = append(parts, warn.Render("moon phase estimated"))
	}
	if m.clock.Overridden() || m.cycle != nil {
		parts = append(parts, accent.Render(fmt.Sprintf("override %s %s, cycle %.2f",
			sc.Clock, sc.Meridiem, sc.Moon.Phase.CyclePercent)))
	}
	parts = append(parts, dim.Render("v"+version.Version))
	return strings.Join(parts, dim.Render(" | "))
}

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}
