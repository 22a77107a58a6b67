// ABOUTME: Entry point for the Cadenza audio player
// ABOUTME: Parses CLI flags, builds the playlist, and runs the host control loop
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Cadenza-Audio/cadenza-go/internal/logging"
	"github.com/Cadenza-Audio/cadenza-go/internal/player"
	"github.com/Cadenza-Audio/cadenza-go/internal/playlist"
	"github.com/Cadenza-Audio/cadenza-go/internal/ui"
	"github.com/Cadenza-Audio/cadenza-go/internal/version"
	tea "github.com/charmbracelet/bubbletea"
)

var (
	loop       = flag.Bool("loop", false, "Restart the playlist when it ends")
	volume     = flag.Float64("volume", 1.0, "Initial volume (0.0-2.0)")
	speed      = flag.Float64("speed", 1.0, "Initial speed multiplier (0.5-2.0)")
	logFile    = flag.String("log-file", "cadenza-player.log", "Log file path")
	noTUI      = flag.Bool("no-tui", false, "Disable TUI, use streaming logs instead")
	streamLogs = flag.Bool("stream-logs", false, "Alias for -no-tui")
	noAudio    = flag.Bool("no-audio", false, "Run without an audio device (silent sink)")
)

func main() {
	flag.Parse()

	files := flag.Args()
	if len(files) == 0 {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <audio files...>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	// Determine if we should use TUI or streaming logs
	useTUI := !(*noTUI || *streamLogs)

	// Set up logging
	f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer func() { _ = f.Close() }()

	if useTUI {
		// TUI mode: log only to file
		log.SetOutput(f)
	} else {
		// Streaming logs mode: log to both stdout and file
		multiWriter := io.MultiWriter(os.Stdout, f)
		log.SetOutput(multiWriter)
	}

	log.Printf("Starting %s %s with %d track(s)", version.Product, version.Version, len(files))

	list := playlist.New(files, *loop)

	pl := player.New(player.Config{
		DisableDevice: *noAudio,
		Logger:        logging.Default(),
	})
	pl.SetVolume(float32(*volume))
	pl.SetSpeed(*speed)

	// TUI setup
	var tuiProg *tea.Program
	var ctrl *ui.Control

	if useTUI {
		ctrl = ui.NewControl()
		tuiProg, err = ui.Run(ctrl)
		if err != nil {
			log.Fatalf("Failed to start TUI: %v", err)
		}
		go tuiProg.Run()
	}

	// Helper to update TUI
	updateTUI := func(msg ui.StatusMsg) {
		if tuiProg != nil {
			tuiProg.Send(msg)
		}
	}

	// Handle shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	stop := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		runPlaylist(pl, list, ctrl, updateTUI, stop)
	}()

	// Wait for playlist exhaustion, a quit from the TUI, or an OS signal
	select {
	case <-done:
	case <-quitChan(ctrl):
		log.Printf("Received quit signal from TUI")
		close(stop)
		<-done
	case <-sigChan:
		log.Printf("Shutdown signal received")
		close(stop)
		<-done
	}

	pl.Stop()

	if tuiProg != nil {
		tuiProg.Quit()
	}

	log.Printf("Player stopped")
}

// runPlaylist walks the playlist, playing each track to completion and
// handling TUI commands along the way. Returns when the playlist is
// exhausted or stop is closed.
func runPlaylist(pl *player.Player, list *playlist.Playlist, ctrl *ui.Control, updateTUI func(ui.StatusMsg), stop <-chan struct{}) {
	track, ok := list.Current()
	for ok {
		select {
		case <-stop:
			return
		default:
		}

		if err := pl.Load(track.Path); err != nil {
			log.Printf("Skipping %s: %v", track.Path, err)
			track, ok = list.Advance()
			continue
		}
		if err := pl.Play(); err != nil {
			log.Printf("Playback failed for %s: %v", track.Path, err)
			track, ok = list.Advance()
			continue
		}

		log.Printf("Playing %d/%d: %s", list.Position(), list.Len(), track.Title)
		updateTUI(ui.StatusMsg{
			Title:      track.Title,
			Position:   list.Position(),
			TrackCount: list.Len(),
			SampleRate: pl.SampleRate(),
			Channels:   pl.Channels(),
		})

		if !playTrack(pl, ctrl, updateTUI, stop) {
			return
		}
		track, ok = list.Advance()
	}

	log.Printf("Playlist finished")
}

// playTrack polls the player until the current track ends, applying TUI
// commands as they arrive. Returns false when playback should not continue
// to the next track.
func playTrack(pl *player.Player, ctrl *ui.Control, updateTUI func(ui.StatusMsg), stop <-chan struct{}) bool {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return false

		case cmd := <-commandChan(ctrl):
			switch cmd {
			case ui.CmdTogglePause:
				if pl.IsPaused() {
					pl.Resume()
				} else {
					pl.Pause()
				}
			case ui.CmdNext:
				return true
			case ui.CmdStop:
				pl.Stop()
				return false
			case ui.CmdVolumeUp:
				pl.SetVolume(pl.Volume() + 0.1)
			case ui.CmdVolumeDown:
				pl.SetVolume(pl.Volume() - 0.1)
			case ui.CmdSpeedUp:
				pl.SetSpeed(pl.Speed() + 0.1)
			case ui.CmdSpeedDown:
				pl.SetSpeed(pl.Speed() - 0.1)
			}
			sendStatus(pl, updateTUI)

		case <-ticker.C:
			sendStatus(pl, updateTUI)

			if pl.IsFinished() {
				if err := pl.Err(); err != nil {
					log.Printf("Track ended with decode error: %v", err)
				}
				return true
			}
		}
	}
}

// sendStatus pushes the current playback state to the TUI.
func sendStatus(pl *player.Player, updateTUI func(ui.StatusMsg)) {
	vol := pl.Volume()
	buffered := pl.Buffered()

	updateTUI(ui.StatusMsg{
		State:        pl.State().String(),
		Volume:       &vol,
		Speed:        pl.Speed(),
		BufferFrames: &buffered,
	})
}

// commandChan returns the TUI command channel, or nil when running headless
// so the select arm never fires.
func commandChan(ctrl *ui.Control) <-chan ui.Command {
	if ctrl == nil {
		return nil
	}
	return ctrl.Commands
}

// quitChan returns the TUI quit channel, or nil when running headless.
func quitChan(ctrl *ui.Control) <-chan struct{} {
	if ctrl == nil {
		return nil
	}
	return ctrl.Quit
}
