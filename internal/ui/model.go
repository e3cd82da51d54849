// ABOUTME: Bubbletea model for the transport TUI
// ABOUTME: Shows the current cue, position, meters and output health
package ui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/cuedeck/cuedeck/internal/clock"
	tea "github.com/charmbracelet/bubbletea"
)

const seekStepMs = 5000

// Model represents the TUI state
type Model struct {
	// Cue
	cue      string
	cueIndex int
	cueCount int
	deck     string
	mode     string

	// Transport
	state      string
	positionMs int
	durationMs int
	volume     int
	meterL     float32
	meterR     float32

	// Output
	backend      string
	device       string
	drift        float64
	driftQuality clock.Quality
	nonFinite    uint64
	panics       uint64

	// Preload
	preloadEnabled bool
	preloadActive  int
	cachedCues     int

	showDebug bool
	controls  *Controls

	// Dimensions
	width  int
	height int
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case StatusMsg:
		m.applyStatus(msg)
	}

	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	s := ""
	s += m.renderHeader()
	s += m.renderCue()
	s += m.renderTransport()
	s += m.renderOutput()

	if m.showDebug {
		s += m.renderDebug()
	}

	s += m.renderHelp()

	return s
}

func (m Model) renderHeader() string {
	mode := m.mode
	if mode == "" {
		mode = "none"
	}
	return fmt.Sprintf(`┌─ cuedeck ────────────────────────────────────────────┐
│ State:  %-12s Transition: %-20s │
├──────────────────────────────────────────────────────┤
`, strings.ToUpper(m.state), mode)
}

func (m Model) renderCue() string {
	if m.cue == "" {
		return "│ No cue loaded                                        │\n"
	}
	name := truncate(filepath.Base(m.cue), 34)
	return fmt.Sprintf("│ Cue %d/%d: %-34s %6s │\n", m.cueIndex+1, m.cueCount, name, m.deck)
}

func (m Model) renderTransport() string {
	progress := 0
	if m.durationMs > 0 {
		progress = m.positionMs * 100 / m.durationMs
	}
	remaining := max(m.durationMs-m.positionMs, 0)

	return fmt.Sprintf("│ %s / %s  -%s  [%s] %3d%% │\n"+
		"│ Volume: [%s] %3d%%%-24s │\n"+
		"│ Level:  L [%s] R [%s]%-12s │\n",
		formatMs(m.positionMs), formatMs(m.durationMs), formatMs(remaining),
		renderBar(progress, 100, 12), progress,
		renderBar(m.volume, 100, 10), m.volume, "",
		renderBar(meterPercent(m.meterL), 100, 10), renderBar(meterPercent(m.meterR), 100, 10), "")
}

func (m Model) renderOutput() string {
	device := m.device
	if device == "" {
		device = "default"
	}
	return fmt.Sprintf(`├──────────────────────────────────────────────────────┤
│ Output: %-8s %-35s │
│ Clock:  %-8s drift %+.3f%%%-22s │
│ Cache:  %d cues, %d loading%-26s │
`, m.backend, truncate(device, 35), m.driftQuality, m.drift*100, "", m.cachedCues, m.preloadActive, "")
}

func (m Model) renderHelp() string {
	return `│ space:Play/Pause  n:Next  s:Stop  ←/→:Seek  q:Quit   │
└──────────────────────────────────────────────────────┘
`
}

func (m Model) renderDebug() string {
	return fmt.Sprintf(`│ DEBUG:                                               │
│   Non-finite blocks: %-8d Panics: %-14d │
│   Preload enabled: %-34v │
`, m.nonFinite, m.panics, m.preloadEnabled)
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		if m.controls != nil {
			select {
			case m.controls.Quit <- struct{}{}:
			default:
			}
		}
		return m, tea.Quit
	case " ", "space":
		m.send(Command{Kind: CmdTogglePause})
	case "n":
		m.send(Command{Kind: CmdNext})
	case "s":
		m.send(Command{Kind: CmdStop})
	case "left":
		m.send(Command{Kind: CmdSeek, Value: -seekStepMs})
	case "right":
		m.send(Command{Kind: CmdSeek, Value: seekStepMs})
	case "up":
		m.volume = min(m.volume+5, 100)
		m.send(Command{Kind: CmdVolume, Value: m.volume})
	case "down":
		m.volume = max(m.volume-5, 0)
		m.send(Command{Kind: CmdVolume, Value: m.volume})
	case "d":
		m.showDebug = !m.showDebug
	}

	return m, nil
}

// send delivers a command without blocking the UI
func (m Model) send(cmd Command) {
	if m.controls == nil {
		return
	}
	select {
	case m.controls.Commands <- cmd:
	default:
	}
}

// applyStatus updates model from status message
func (m *Model) applyStatus(msg StatusMsg) {
	if msg.Cue != "" {
		m.cue = msg.Cue
		m.cueIndex = msg.CueIndex
		m.cueCount = msg.CueCount
		m.deck = msg.Deck
	}
	if msg.Mode != "" {
		m.mode = msg.Mode
	}
	if msg.State != "" {
		m.state = msg.State
	}
	if msg.PositionMs != nil {
		m.positionMs = *msg.PositionMs
	}
	if msg.DurationMs != nil {
		m.durationMs = *msg.DurationMs
	}
	if msg.Volume != nil {
		m.volume = *msg.Volume
	}
	if msg.Meters {
		m.meterL = msg.MeterL
		m.meterR = msg.MeterR
	}
	if msg.Backend != "" {
		m.backend = msg.Backend
		m.device = msg.Device
		m.drift = msg.Drift
		m.driftQuality = msg.DriftQuality
		m.nonFinite = msg.NonFinite
		m.panics = msg.Panics
	}
	if msg.Preload {
		m.preloadEnabled = msg.PreloadEnabled
		m.preloadActive = msg.PreloadActive
		m.cachedCues = msg.CachedCues
	}
}

// StatusMsg updates TUI state. Zero values leave the current state alone;
// pointer fields distinguish an explicit zero.
type StatusMsg struct {
	Cue      string
	CueIndex int
	CueCount int
	Deck     string
	Mode     string

	State      string
	PositionMs *int
	DurationMs *int
	Volume     *int

	Meters bool
	MeterL float32
	MeterR float32

	Backend      string
	Device       string
	Drift        float64
	DriftQuality clock.Quality
	NonFinite    uint64
	Panics       uint64

	Preload        bool
	PreloadEnabled bool
	PreloadActive  int
	CachedCues     int
}

// Utility functions
func renderBar(value, total, width int) string {
	if total <= 0 {
		return strings.Repeat("░", width)
	}
	filled := min(max(value, 0)*width/total, width)
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func meterPercent(peak float32) int {
	return int(min(max(peak, 0), 1) * 100)
}

func formatMs(ms int) string {
	total := max(ms, 0) / 1000
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length-3] + "..."
}
