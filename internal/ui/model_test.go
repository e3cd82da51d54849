// ABOUTME: Tests for TUI model and state management
// ABOUTME: Tests status updates, key handling, and rendering helpers
package ui

import (
	"strings"
	"testing"

	"github.com/cuedeck/cuedeck/internal/clock"
	tea "github.com/charmbracelet/bubbletea"
)

func intPtr(v int) *int { return &v }

func TestNewModel(t *testing.T) {
	model := NewModel(nil) // Controls are optional for testing

	if model.volume != 100 {
		t.Errorf("expected default volume 100, got %d", model.volume)
	}

	if model.state != "stopped" {
		t.Errorf("expected initial state 'stopped', got '%s'", model.state)
	}

	if model.showDebug {
		t.Error("expected showDebug to be false initially")
	}
}

func TestStatusMsgCue(t *testing.T) {
	model := NewModel(nil)

	model.applyStatus(StatusMsg{
		Cue:      "/show/intro.flac",
		CueIndex: 1,
		CueCount: 4,
		Deck:     "deck-b",
	})

	if model.cue != "/show/intro.flac" {
		t.Errorf("expected cue '/show/intro.flac', got '%s'", model.cue)
	}
	if model.cueIndex != 1 || model.cueCount != 4 {
		t.Errorf("expected cue 1 of 4, got %d of %d", model.cueIndex, model.cueCount)
	}
	if model.deck != "deck-b" {
		t.Errorf("expected deck 'deck-b', got '%s'", model.deck)
	}
}

func TestStatusMsgTransport(t *testing.T) {
	model := NewModel(nil)

	model.applyStatus(StatusMsg{
		State:      "playing",
		PositionMs: intPtr(1500),
		DurationMs: intPtr(60000),
	})

	if model.state != "playing" {
		t.Errorf("expected state 'playing', got '%s'", model.state)
	}
	if model.positionMs != 1500 {
		t.Errorf("expected position 1500, got %d", model.positionMs)
	}
	if model.durationMs != 60000 {
		t.Errorf("expected duration 60000, got %d", model.durationMs)
	}

	// An explicit zero position is applied
	model.applyStatus(StatusMsg{PositionMs: intPtr(0)})
	if model.positionMs != 0 {
		t.Errorf("expected position reset to 0, got %d", model.positionMs)
	}
}

func TestStatusMsgZeroValuesKeepState(t *testing.T) {
	model := NewModel(nil)
	model.applyStatus(StatusMsg{State: "paused", Volume: intPtr(40), Mode: "crossfade"})

	model.applyStatus(StatusMsg{})

	if model.state != "paused" {
		t.Error("state should not be cleared by an empty message")
	}
	if model.volume != 40 {
		t.Error("volume should not be cleared by an empty message")
	}
	if model.mode != "crossfade" {
		t.Error("mode should not be cleared by an empty message")
	}
}

func TestStatusMsgVolumeZero(t *testing.T) {
	model := NewModel(nil)

	model.applyStatus(StatusMsg{Volume: intPtr(0)})

	if model.volume != 0 {
		t.Errorf("expected explicit volume 0, got %d", model.volume)
	}
}

func TestStatusMsgOutput(t *testing.T) {
	model := NewModel(nil)

	model.applyStatus(StatusMsg{
		Backend:      "malgo",
		Device:       "USB DAC",
		Drift:        0.0002,
		DriftQuality: clock.QualityGood,
		NonFinite:    3,
	})

	if model.backend != "malgo" || model.device != "USB DAC" {
		t.Errorf("unexpected output %s/%s", model.backend, model.device)
	}
	if model.driftQuality != clock.QualityGood {
		t.Errorf("expected good drift quality, got %v", model.driftQuality)
	}
	if model.nonFinite != 3 {
		t.Errorf("expected 3 non-finite blocks, got %d", model.nonFinite)
	}
}

func TestStatusMsgMetersAndPreload(t *testing.T) {
	model := NewModel(nil)

	model.applyStatus(StatusMsg{Meters: true, MeterL: 0.5, MeterR: 0.25})
	if model.meterL != 0.5 || model.meterR != 0.25 {
		t.Errorf("unexpected meters %v/%v", model.meterL, model.meterR)
	}

	model.applyStatus(StatusMsg{Preload: true, PreloadEnabled: true, PreloadActive: 2, CachedCues: 5})
	if !model.preloadEnabled || model.preloadActive != 2 || model.cachedCues != 5 {
		t.Error("preload status not applied")
	}
}

func TestKeysSendCommands(t *testing.T) {
	ctrl := NewControls()
	var m tea.Model = NewModel(ctrl)

	keys := []struct {
		key  tea.KeyMsg
		want Command
	}{
		{tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}, Command{Kind: CmdTogglePause}},
		{tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'n'}}, Command{Kind: CmdNext}},
		{tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'s'}}, Command{Kind: CmdStop}},
		{tea.KeyMsg{Type: tea.KeyLeft}, Command{Kind: CmdSeek, Value: -5000}},
		{tea.KeyMsg{Type: tea.KeyRight}, Command{Kind: CmdSeek, Value: 5000}},
		{tea.KeyMsg{Type: tea.KeyDown}, Command{Kind: CmdVolume, Value: 95}},
	}

	for _, k := range keys {
		m, _ = m.Update(k.key)
		select {
		case got := <-ctrl.Commands:
			if got != k.want {
				t.Errorf("key %q: expected %+v, got %+v", k.key.String(), k.want, got)
			}
		default:
			t.Errorf("key %q: no command sent", k.key.String())
		}
	}
}

func TestQuitKey(t *testing.T) {
	ctrl := NewControls()
	model := NewModel(ctrl)

	_, cmd := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatal("expected quit command")
	}

	select {
	case <-ctrl.Quit:
	default:
		t.Error("expected quit signal on controls")
	}
}

func TestFullCommandChannelDoesNotBlock(t *testing.T) {
	ctrl := &Controls{Commands: make(chan Command), Quit: make(chan struct{}, 1)}
	var m tea.Model = NewModel(ctrl)

	// Unbuffered with no reader: must return immediately
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'n'}})
	if m == nil {
		t.Fatal("expected model")
	}
}

func TestVolumeKeysClamp(t *testing.T) {
	var m tea.Model = NewModel(nil)

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	if m.(Model).volume != 100 {
		t.Errorf("volume should stay at 100, got %d", m.(Model).volume)
	}
}

func TestViewRendersCue(t *testing.T) {
	var m tea.Model = NewModel(nil)
	if m.View() != "Loading..." {
		t.Error("expected loading view before the first resize")
	}

	m, _ = m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	m, _ = m.Update(StatusMsg{
		Cue:        "/show/intro.flac",
		CueCount:   2,
		State:      "playing",
		PositionMs: intPtr(65000),
		DurationMs: intPtr(125000),
	})

	view := m.View()
	for _, want := range []string{"intro.flac", "PLAYING", "01:05", "02:05", "Cue 1/2"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestTruncateFunction(t *testing.T) {
	tests := []struct {
		input    string
		maxLen   int
		expected string
	}{
		{"short", 10, "short"},
		{"this is longer than allowed", 10, "this is..."},
		{"", 10, ""},
		{"abcd", 4, "abcd"},
		{"abcde", 4, "a..."},
	}

	for _, tt := range tests {
		result := truncate(tt.input, tt.maxLen)
		if result != tt.expected {
			t.Errorf("truncate(%q, %d) = %q, expected %q",
				tt.input, tt.maxLen, result, tt.expected)
		}
	}
}

func TestFormatMs(t *testing.T) {
	tests := []struct {
		ms       int
		expected string
	}{
		{0, "00:00"},
		{999, "00:00"},
		{61000, "01:01"},
		{-5, "00:00"},
		{3600000, "60:00"},
	}

	for _, tt := range tests {
		if got := formatMs(tt.ms); got != tt.expected {
			t.Errorf("formatMs(%d) = %q, expected %q", tt.ms, got, tt.expected)
		}
	}
}

func TestRenderBar(t *testing.T) {
	if got := renderBar(50, 100, 10); got != "█████░░░░░" {
		t.Errorf("unexpected half bar %q", got)
	}
	if got := renderBar(150, 100, 4); got != "████" {
		t.Errorf("bar should clamp to width, got %q", got)
	}
	if got := renderBar(1, 0, 3); got != "░░░" {
		t.Errorf("zero total should render empty, got %q", got)
	}
}
