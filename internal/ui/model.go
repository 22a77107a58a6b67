// ABOUTME: Bubbletea model for the player TUI
// ABOUTME: Defines application state, key handling, and rendering
package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// boxInnerWidth is the content width inside the frame, excluding the border
// runes and their padding spaces.
const boxInnerWidth = 52

// Model represents the TUI state.
type Model struct {
	ctrl *Control

	// Track
	title      string
	position   int
	trackCount int

	// Stream
	sampleRate int
	channels   int

	// Playback
	state  string
	volume float32
	speed  float64

	// Pipeline
	bufferFrames int

	// Dimensions
	width  int
	height int
}

// StatusMsg updates the TUI state from the host loop.
type StatusMsg struct {
	Title        string
	Position     int
	TrackCount   int
	SampleRate   int
	Channels     int
	State        string
	Volume       *float32
	Speed        float64
	BufferFrames *int
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages.
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

// View renders the TUI.
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	s := ""
	s += m.renderHeader()
	s += m.renderTrackInfo()
	s += m.renderControls()
	s += m.renderHelp()

	return s
}

// renderHeader renders the title bar and playback state.
func (m Model) renderHeader() string {
	top := "┌─ Cadenza Player " + strings.Repeat("─", boxInnerWidth-15) + "┐\n"
	rule := "├" + strings.Repeat("─", boxInnerWidth+2) + "┤\n"
	return top + boxRow("State: "+m.state) + rule
}

// renderTrackInfo renders the current track and stream format.
func (m Model) renderTrackInfo() string {
	if m.title == "" {
		return boxRow("No track loaded")
	}

	s := boxRow(fmt.Sprintf("Track %d/%d: %s",
		m.position, m.trackCount, truncate(m.title, 40)))
	s += boxRow(fmt.Sprintf("Format: %dHz %s",
		m.sampleRate, channelName(m.channels)))
	return s
}

// renderControls renders volume, speed, and buffer fill.
func (m Model) renderControls() string {
	volumeBar := renderBar(int(m.volume*100), 200, 10)

	return boxRow("") +
		boxRow(fmt.Sprintf("Volume: [%s] %3.0f%%", volumeBar, m.volume*100)) +
		boxRow(fmt.Sprintf("Speed:  %.2fx", m.speed)) +
		boxRow(fmt.Sprintf("Buffer: %d frames", m.bufferFrames))
}

// renderHelp renders keyboard shortcuts.
func (m Model) renderHelp() string {
	return boxRow("space:Pause n:Next s:Stop ↑/↓:Vol ←/→:Speed q:Quit") +
		"└" + strings.Repeat("─", boxInnerWidth+2) + "┘\n"
}

// boxRow frames one content line, padding by rune count so multibyte glyphs
// do not skew the right border.
func boxRow(content string) string {
	runes := []rune(content)
	if len(runes) > boxInnerWidth {
		runes = runes[:boxInnerWidth]
	}
	pad := boxInnerWidth - len(runes)
	return "│ " + string(runes) + strings.Repeat(" ", pad) + " │\n"
}

// handleKey handles keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.requestQuit()
		return m, tea.Quit
	case " ":
		m.send(CmdTogglePause)
	case "n":
		m.send(CmdNext)
	case "s":
		m.send(CmdStop)
	case "up":
		m.send(CmdVolumeUp)
	case "down":
		m.send(CmdVolumeDown)
	case "right":
		m.send(CmdSpeedUp)
	case "left":
		m.send(CmdSpeedDown)
	}

	return m, nil
}

// send forwards a command without blocking the update loop.
func (m Model) send(cmd Command) {
	if m.ctrl == nil {
		return
	}
	select {
	case m.ctrl.Commands <- cmd:
	default:
	}
}

func (m Model) requestQuit() {
	if m.ctrl == nil {
		return
	}
	select {
	case m.ctrl.Quit <- struct{}{}:
	default:
	}
}

// applyStatus updates the model from a status message.
func (m *Model) applyStatus(msg StatusMsg) {
	if msg.Title != "" {
		m.title = msg.Title
		m.position = msg.Position
		m.trackCount = msg.TrackCount
	}
	if msg.SampleRate != 0 {
		m.sampleRate = msg.SampleRate
		m.channels = msg.Channels
	}
	if msg.State != "" {
		m.state = msg.State
	}
	if msg.Volume != nil {
		m.volume = *msg.Volume
	}
	if msg.Speed != 0 {
		m.speed = msg.Speed
	}
	if msg.BufferFrames != nil {
		m.bufferFrames = *msg.BufferFrames
	}
}

// truncate limits s to max characters.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

// channelName names common channel counts.
func channelName(channels int) string {
	switch channels {
	case 1:
		return "mono"
	case 2:
		return "stereo"
	default:
		return fmt.Sprintf("%dch", channels)
	}
}

// renderBar draws a filled/empty bar of the given width.
func renderBar(value, max, width int) string {
	if max <= 0 {
		max = 1
	}
	filled := value * width / max
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}

	bar := ""
	for i := 0; i < width; i++ {
		if i < filled {
			bar += "█"
		} else {
			bar += "░"
		}
	}
	return bar
}
