// ABOUTME: TUI initialization and control
// ABOUTME: Wraps the bubbletea program for the transport view
package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// CommandKind is a transport action requested from the keyboard
type CommandKind int

const (
	CmdTogglePause CommandKind = iota
	CmdNext
	CmdStop
	CmdSeek
	CmdVolume
)

// Command is sent to the controller when a key is pressed. Value is the
// seek offset in milliseconds for CmdSeek and the new volume for CmdVolume.
type Command struct {
	Kind  CommandKind
	Value int
}

// Controls holds channels from the TUI to the controller
type Controls struct {
	Commands chan Command
	Quit     chan struct{}
}

// NewControls creates a new control handler
func NewControls() *Controls {
	return &Controls{
		Commands: make(chan Command, 16),
		Quit:     make(chan struct{}, 1),
	}
}

// NewModel creates a new TUI model
func NewModel(ctrl *Controls) Model {
	return Model{
		volume:   100,
		state:    "stopped",
		controls: ctrl,
	}
}

// Run creates the TUI program; the caller runs it
func Run(ctrl *Controls) (*tea.Program, error) {
	p := tea.NewProgram(NewModel(ctrl), tea.WithAltScreen())
	return p, nil
}
