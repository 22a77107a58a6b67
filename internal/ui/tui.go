// ABOUTME: TUI initialization and control plumbing
// ABOUTME: Wraps the bubbletea program and carries key commands to the host loop
package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Command is a playback action requested from the keyboard.
type Command int

const (
	CmdTogglePause Command = iota
	CmdStop
	CmdNext
	CmdVolumeUp
	CmdVolumeDown
	CmdSpeedUp
	CmdSpeedDown
)

// Control holds the channels the TUI uses to reach the host loop.
type Control struct {
	Commands chan Command
	Quit     chan struct{}
}

// NewControl creates the control channel set.
func NewControl() *Control {
	return &Control{
		Commands: make(chan Command, 10),
		Quit:     make(chan struct{}, 1),
	}
}

// NewModel creates a TUI model bound to the given control channels.
func NewModel(ctrl *Control) Model {
	return Model{
		ctrl:   ctrl,
		state:  "idle",
		volume: 1.0,
		speed:  1.0,
	}
}

// Run starts the TUI program.
func Run(ctrl *Control) (*tea.Program, error) {
	p := tea.NewProgram(NewModel(ctrl), tea.WithAltScreen())
	return p, nil
}
