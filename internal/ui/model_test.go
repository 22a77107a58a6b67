// ABOUTME: Tests for TUI model and state management
// ABOUTME: Tests status updates, key commands, and rendering helpers
package ui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestNewModel(t *testing.T) {
	model := NewModel(nil) // Control is optional for testing

	if model.state != "idle" {
		t.Errorf("expected initial state idle, got %q", model.state)
	}
	if model.volume != 1.0 {
		t.Errorf("expected default volume 1.0, got %v", model.volume)
	}
	if model.speed != 1.0 {
		t.Errorf("expected default speed 1.0, got %v", model.speed)
	}
}

func TestStatusMsgTrack(t *testing.T) {
	model := NewModel(nil)

	model.applyStatus(StatusMsg{
		Title:      "test-song",
		Position:   2,
		TrackCount: 5,
		SampleRate: 44100,
		Channels:   2,
		State:      "playing",
	})

	if model.title != "test-song" {
		t.Errorf("expected title 'test-song', got %q", model.title)
	}
	if model.position != 2 || model.trackCount != 5 {
		t.Errorf("expected position 2/5, got %d/%d", model.position, model.trackCount)
	}
	if model.sampleRate != 44100 || model.channels != 2 {
		t.Errorf("expected 44100Hz stereo, got %dHz %dch", model.sampleRate, model.channels)
	}
	if model.state != "playing" {
		t.Errorf("expected state playing, got %q", model.state)
	}
}

func TestStatusMsgVolumeZeroIsApplied(t *testing.T) {
	model := NewModel(nil)

	zero := float32(0)
	model.applyStatus(StatusMsg{Volume: &zero})

	if model.volume != 0 {
		t.Errorf("expected volume 0, got %v", model.volume)
	}
}

func TestKeyCommandsForwarded(t *testing.T) {
	ctrl := NewControl()
	model := NewModel(ctrl)

	tests := []struct {
		key  string
		want Command
	}{
		{" ", CmdTogglePause},
		{"n", CmdNext},
		{"s", CmdStop},
		{"up", CmdVolumeUp},
		{"down", CmdVolumeDown},
		{"right", CmdSpeedUp},
		{"left", CmdSpeedDown},
	}

	for _, tt := range tests {
		model.handleKey(keyMsg(tt.key))

		select {
		case got := <-ctrl.Commands:
			if got != tt.want {
				t.Errorf("key %q: expected command %d, got %d", tt.key, tt.want, got)
			}
		default:
			t.Errorf("key %q: no command forwarded", tt.key)
		}
	}
}

func TestQuitKeySignalsHost(t *testing.T) {
	ctrl := NewControl()
	model := NewModel(ctrl)

	_, cmd := model.handleKey(keyMsg("q"))
	if cmd == nil {
		t.Error("expected tea.Quit command")
	}

	select {
	case <-ctrl.Quit:
	default:
		t.Error("expected quit signal on control channel")
	}
}

func TestViewRendersWithoutTrack(t *testing.T) {
	model := NewModel(nil)
	model.width = 80
	model.height = 24

	view := model.View()
	if view == "" {
		t.Error("expected non-empty view")
	}
}

func TestViewRowsAligned(t *testing.T) {
	model := NewModel(nil)
	model.width = 80
	model.height = 24

	vol := float32(1.5)
	frames := 12345
	model.applyStatus(StatusMsg{
		Title:        "a-track-title",
		Position:     3,
		TrackCount:   9,
		SampleRate:   48000,
		Channels:     6,
		State:        "playing",
		Volume:       &vol,
		Speed:        1.25,
		BufferFrames: &frames,
	})

	lines := strings.Split(strings.TrimRight(model.View(), "\n"), "\n")
	if len(lines) < 5 {
		t.Fatalf("expected a full frame, got %d lines", len(lines))
	}

	width := len([]rune(lines[0]))
	for i, line := range lines {
		if got := len([]rune(line)); got != width {
			t.Errorf("line %d is %d runes wide, expected %d: %q", i, got, width, line)
		}
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly-ten", 11, "exactly-ten"},
		{"a-rather-long-title", 10, "a-rathe..."},
	}

	for _, tt := range tests {
		if got := truncate(tt.in, tt.max); got != tt.want {
			t.Errorf("truncate(%q, %d): expected %q, got %q", tt.in, tt.max, tt.want, got)
		}
	}
}

func TestRenderBar(t *testing.T) {
	bar := renderBar(100, 200, 10)
	if len([]rune(bar)) != 10 {
		t.Errorf("expected 10-rune bar, got %d", len([]rune(bar)))
	}

	full := renderBar(400, 200, 10)
	for _, r := range full {
		if r != '█' {
			t.Errorf("expected fully filled bar, got %q", full)
			break
		}
	}
}

// keyMsg builds a KeyMsg for a key name used by handleKey.
func keyMsg(key string) tea.KeyMsg {
	switch key {
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
}
