// ABOUTME: Playback orchestrator owning the decoder, ring buffer, and decode goroutine
// ABOUTME: The sole arbiter of lifecycle state transitions
package player

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Cadenza-Audio/cadenza-go/internal/audio"
	"github.com/Cadenza-Audio/cadenza-go/internal/decode"
	"github.com/Cadenza-Audio/cadenza-go/internal/logging"
	"github.com/Cadenza-Audio/cadenza-go/internal/output"
)

// State is the playback lifecycle state.
type State int

const (
	StateIdle State = iota
	StateLoaded
	StatePlaying
	StatePaused
	StateStopping
	StateFinished
	StateError
)

// String returns the state name for logs and the TUI.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoaded:
		return "loaded"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateStopping:
		return "stopping"
	case StateFinished:
		return "finished"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Speed multiplier bounds.
const (
	MinSpeed = 0.5
	MaxSpeed = 2.0
)

const (
	// pauseInterval is how often the paused decode loop re-checks its flags.
	pauseInterval = 10 * time.Millisecond

	// backoffInterval is the retry sleep when the ring buffer is full.
	backoffInterval = 5 * time.Millisecond

	// drainInterval paces the best-effort drain wait during Stop.
	drainInterval = 10 * time.Millisecond
)

// Config holds player configuration.
type Config struct {
	// FramesPerCallback is forwarded to the audio output.
	FramesPerCallback int

	// DisableDevice forces the silent sink; used headless and in tests.
	DisableDevice bool

	// Open overrides media opening. Nil means decode.Open.
	Open func(path string) (decode.Decoder, error)

	// Logger receives lifecycle and error messages. Defaults to
	// logging.Default.
	Logger logging.Logger
}

// Player owns one decoder and one ring buffer and runs the decode loop on a
// background goroutine. Lifecycle methods are serialized by an internal
// mutex; Load and Stop join the decode goroutine before touching the
// decoder or ring buffer, so no use-after-release race exists. The decode
// goroutine communicates back only through the atomic finished/stop flags.
type Player struct {
	cfg  Config
	log  logging.Logger
	open func(path string) (decode.Decoder, error)

	mu          sync.Mutex
	state       State
	dec         decode.Decoder
	out         *output.Output
	currentFile string
	done        chan struct{}

	paused        atomic.Bool
	stopRequested atomic.Bool
	finished      atomic.Bool

	speed  atomic.Uint64 // float64 bits
	volume float32       // carried across loads; live value lives in the output

	errMu   sync.Mutex
	lastErr error
}

// New creates an idle player.
func New(cfg Config) *Player {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	open := cfg.Open
	if open == nil {
		open = decode.Open
	}

	p := &Player{
		cfg:    cfg,
		log:    cfg.Logger,
		open:   open,
		state:  StateIdle,
		volume: 1.0,
	}
	p.speed.Store(math.Float64bits(1.0))
	return p
}

// Load tears down any current playback, opens the file, and builds a fresh
// ring buffer matching the stream's sample rate and channel count. On
// failure no resources are retained and the player is left idle.
func (p *Player) Load(path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLocked()

	dec, err := p.open(path)
	if err != nil {
		p.log.Logf(logging.LevelError, "failed to load %s: %v", path, err)
		return fmt.Errorf("load %s: %w", path, err)
	}

	out, err := output.New(audio.Format{
		SampleRate: dec.SampleRate(),
		Channels:   dec.Channels(),
	}, output.Config{
		FramesPerCallback: p.cfg.FramesPerCallback,
		DisableDevice:     p.cfg.DisableDevice,
		Logger:            p.log,
	})
	if err != nil {
		dec.Close()
		p.log.Logf(logging.LevelError, "failed to initialize output for %s: %v", path, err)
		return fmt.Errorf("load %s: %w", path, err)
	}
	out.SetVolume(p.volume)

	p.dec = dec
	p.out = out
	p.currentFile = path
	p.finished.Store(false)
	p.setErr(nil)
	p.state = StateLoaded

	p.log.Logf(logging.LevelInfo, "loaded %s: %dHz, %d channels",
		path, dec.SampleRate(), dec.Channels())
	return nil
}

// Play starts playback from Loaded, or resumes from Paused. Calling Play
// while already playing is a no-op.
func (p *Player) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.state {
	case StatePlaying:
		return nil
	case StatePaused:
		p.paused.Store(false)
		p.state = StatePlaying
		p.log.Logf(logging.LevelInfo, "resumed %s", p.currentFile)
		return nil
	case StateLoaded:
	default:
		return fmt.Errorf("cannot play from state %s", p.state)
	}

	if err := p.out.Start(); err != nil {
		p.log.Logf(logging.LevelError, "failed to start output: %v", err)
		return fmt.Errorf("play: %w", err)
	}

	p.stopRequested.Store(false)
	p.finished.Store(false)
	p.paused.Store(false)

	p.done = make(chan struct{})
	go p.decodeLoop(p.dec, p.out, p.done)

	p.state = StatePlaying
	p.log.Logf(logging.LevelInfo, "playing %s", p.currentFile)
	return nil
}

// Pause suspends decoding. Audio already in the ring buffer keeps draining,
// so playback trails off rather than cutting instantly.
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StatePlaying {
		return
	}
	p.paused.Store(true)
	p.state = StatePaused
	p.log.Logf(logging.LevelInfo, "paused %s", p.currentFile)
}

// Resume continues playback after Pause.
func (p *Player) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StatePaused {
		return
	}
	p.paused.Store(false)
	p.state = StatePlaying
	p.log.Logf(logging.LevelInfo, "resumed %s", p.currentFile)
}

// Stop requests the decode loop to exit, joins it, waits best-effort for
// buffered audio to drain, halts the device, and releases the decoder and
// ring buffer. Stopping an idle player is a no-op.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

// stopLocked implements Stop with p.mu held. Load reuses it for the
// implicit teardown of the previous decoder/ring buffer pair.
func (p *Player) stopLocked() {
	if p.state == StateIdle {
		return
	}
	p.state = StateStopping

	p.stopRequested.Store(true)
	p.paused.Store(false)

	// join: the sole serialization point against the decode goroutine
	if p.done != nil {
		<-p.done
		p.done = nil
	}

	if p.out != nil {
		p.drainOutput()
		p.out.Stop()
		p.out = nil
	}
	if p.dec != nil {
		p.dec.Close()
		p.dec = nil
	}

	p.finished.Store(false)
	p.setErr(nil)
	p.currentFile = ""
	p.state = StateIdle
	p.log.Log(logging.LevelInfo, "stopped")
}

// drainOutput waits for already-queued audio to play out so a stop does not
// truncate it. The wait is bounded by the time the buffered frames need at
// the device rate, plus margin, in case the consumer has already halted.
func (p *Player) drainOutput() {
	used := p.out.Used()
	if used == 0 {
		return
	}

	budget := time.Duration(used)*time.Second/time.Duration(p.out.SampleRate()) + 500*time.Millisecond
	deadline := time.Now().Add(budget)

	for p.out.Used() > 0 && time.Now().Before(deadline) {
		time.Sleep(drainInterval)
	}
}

// SetVolume clamps and applies the playback volume. Effective immediately;
// the value survives track loads.
func (p *Player) SetVolume(v float32) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if v < 0 {
		v = 0
	}
	if v > output.MaxVolume {
		v = output.MaxVolume
	}
	p.volume = v
	if p.out != nil {
		p.out.SetVolume(v)
	}
}

// Volume returns the current volume setting.
func (p *Player) Volume() float32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

// SetSpeed clamps and applies the playback speed multiplier. The decode
// loop picks it up on its next batch; no re-decode occurs.
func (p *Player) SetSpeed(s float64) {
	if s < MinSpeed {
		s = MinSpeed
	}
	if s > MaxSpeed {
		s = MaxSpeed
	}
	p.speed.Store(math.Float64bits(s))
}

// Speed returns the current speed multiplier.
func (p *Player) Speed() float64 {
	return math.Float64frombits(p.speed.Load())
}

// State returns the lifecycle state, folding in the terminal flag the
// decode goroutine may have set since the last control call.
func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.finished.Load() && (p.state == StatePlaying || p.state == StatePaused) {
		if p.Err() != nil {
			return StateError
		}
		return StateFinished
	}
	return p.state
}

// IsPlaying reports whether audio is actively being produced.
func (p *Player) IsPlaying() bool { return p.State() == StatePlaying }

// IsPaused reports whether playback is paused.
func (p *Player) IsPaused() bool { return p.State() == StatePaused }

// IsFinished reports whether the decode loop reached end of stream or a
// decode error. This is the host's cue to advance to the next track.
func (p *Player) IsFinished() bool { return p.finished.Load() }

// Err returns the decode error that terminated playback, if any.
func (p *Player) Err() error {
	p.errMu.Lock()
	defer p.errMu.Unlock()
	return p.lastErr
}

// SampleRate returns the loaded stream's sample rate, or 0 when idle.
func (p *Player) SampleRate() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.out == nil {
		return 0
	}
	return p.out.SampleRate()
}

// Channels returns the loaded stream's channel count, or 0 when idle.
func (p *Player) Channels() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.out == nil {
		return 0
	}
	return p.out.Channels()
}

// CurrentFile returns the path of the loaded track, or "".
func (p *Player) CurrentFile() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.currentFile
}

// Buffered returns the ring buffer's current frame count, or 0 when idle.
func (p *Player) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.out == nil {
		return 0
	}
	return p.out.Used()
}

func (p *Player) setErr(err error) {
	p.errMu.Lock()
	p.lastErr = err
	p.errMu.Unlock()
}

// decodeLoop is the producer side of the pipeline: decode a batch, convert
// to float, resample for speed, and push it into the ring buffer with
// bounded retry. It runs until end of stream, a decode error, or a stop
// request, and touches nothing on the player except the atomic flags.
func (p *Player) decodeLoop(dec decode.Decoder, out *output.Output, done chan struct{}) {
	defer close(done)

	channels := dec.Channels()
	resampler := newSpeedResampler(channels)

	for {
		if p.stopRequested.Load() {
			return
		}
		if p.paused.Load() {
			time.Sleep(pauseInterval)
			continue
		}

		batch, err := dec.Decode()
		if err != nil {
			p.log.Logf(logging.LevelError, "decode error: %v", err)
			p.setErr(err)
			p.finished.Store(true)
			return
		}
		if len(batch) == 0 {
			p.log.Log(logging.LevelInfo, "end of stream")
			p.finished.Store(true)
			return
		}

		pcm := audio.ToFloat32(batch)
		// Decoders yield whole frames; a partial one could never be written
		// below, so drop it rather than wedge the retry loop.
		if rem := len(pcm) % channels; rem != 0 {
			p.log.Logf(logging.LevelWarn, "dropping %d trailing samples of a partial frame", rem)
			pcm = pcm[:len(pcm)-rem]
		}
		if len(pcm) == 0 {
			continue
		}
		if speed := p.Speed(); speed != 1.0 {
			pcm = resampler.Process(pcm, speed)
		}

		for off := 0; off < len(pcm); {
			n := out.Write(pcm[off:])
			off += n * channels
			if off >= len(pcm) {
				break
			}
			// buffer momentarily full: back off instead of spinning, but
			// keep a stop from waiting longer than one interval
			if p.stopRequested.Load() {
				return
			}
			time.Sleep(backoffInterval)
		}
	}
}
