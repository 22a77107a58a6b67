// ABOUTME: Lock-free single-producer/single-consumer ring buffer bound to the audio device
// ABOUTME: The consumer path applies volume, clamps samples, and zero-fills underruns
package output

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Cadenza-Audio/cadenza-go/internal/audio"
	"github.com/Cadenza-Audio/cadenza-go/internal/logging"
)

// MaxVolume caps the software volume boost.
const MaxVolume = 2.0

const (
	defaultFramesPerCallback = 1024
	defaultBufferSeconds     = 2
)

// Config controls output construction.
type Config struct {
	// FramesPerCallback is the frame count drained per device callback.
	// Defaults to 1024.
	FramesPerCallback int

	// BufferSeconds sizes the ring buffer; the frame capacity is rounded up
	// to the next power of two. Defaults to 2.
	BufferSeconds int

	// DisableDevice skips the audio device and uses the silent sink.
	DisableDevice bool

	// Logger receives output lifecycle messages. Defaults to logging.Default.
	Logger logging.Logger
}

// Output is a fixed-capacity SPSC ring buffer of interleaved float32 frames
// feeding the audio device. Exactly one goroutine may call Write; the device
// (or the silent sink) drains through ReadFrames on its own goroutine.
//
// head and tail are the only cross-thread mutable state. The producer
// publishes head after copying samples in, the consumer publishes tail after
// copying samples out; Go's sync/atomic is sequentially consistent, which
// subsumes the acquire/release pairing this protocol needs. One slot stays
// permanently free so head == tail always means empty, never full.
type Output struct {
	buf               []float32
	capacity          uint32 // frames, power of two
	mask              uint32
	channels          int
	sampleRate        int
	framesPerCallback int

	head atomic.Uint32 // next write slot
	tail atomic.Uint32 // next read slot

	volume atomic.Uint32 // float32 bits

	log logging.Logger

	mu      sync.Mutex // guards start/stop transitions only
	started bool
	dummy   bool
	player  devicePlayer
	stop    chan struct{}
	drained sync.WaitGroup
}

// New allocates a ring buffer holding at least BufferSeconds of audio at the
// stream's sample rate and binds it to the audio device. When no usable
// device exists the output falls back to a silent sink so the rest of the
// pipeline still runs.
func New(format audio.Format, cfg Config) (*Output, error) {
	if format.SampleRate <= 0 || format.Channels <= 0 {
		return nil, fmt.Errorf("invalid output format: %dHz, %d channels",
			format.SampleRate, format.Channels)
	}
	if cfg.FramesPerCallback <= 0 {
		cfg.FramesPerCallback = defaultFramesPerCallback
	}
	if cfg.BufferSeconds <= 0 {
		cfg.BufferSeconds = defaultBufferSeconds
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}

	capacity := uint32(audio.NextPowerOfTwo(format.SampleRate * cfg.BufferSeconds))

	o := &Output{
		buf:               make([]float32, int(capacity)*format.Channels),
		capacity:          capacity,
		mask:              capacity - 1,
		channels:          format.Channels,
		sampleRate:        format.SampleRate,
		framesPerCallback: cfg.FramesPerCallback,
		log:               cfg.Logger,
	}
	o.volume.Store(math.Float32bits(1.0))

	if cfg.DisableDevice {
		o.dummy = true
		o.log.Log(logging.LevelInfo, "audio device disabled, using silent sink")
		return o, nil
	}

	if err := o.openDevice(); err != nil {
		o.log.Logf(logging.LevelWarn,
			"no usable audio device (%v), falling back to silent sink", err)
		o.dummy = true
	}

	return o, nil
}

// Start begins draining the ring buffer, either through the device callback
// or the silent sink. Starting an already started output is a no-op.
func (o *Output) Start() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.started {
		return nil
	}

	if o.dummy {
		o.stop = make(chan struct{})
		o.drained.Add(1)
		go o.runSilentSink(o.stop)
	} else {
		player, err := newDevicePlayer(o)
		if err != nil {
			return fmt.Errorf("failed to start audio device: %w", err)
		}
		o.player = player
	}

	o.started = true
	o.log.Logf(logging.LevelInfo, "audio output started: %dHz, %d channels, %d frame ring",
		o.sampleRate, o.channels, o.capacity)
	return nil
}

// Stop halts draining. It blocks until the consumer has fully ceased, so no
// further reads from the buffer occur after it returns.
func (o *Output) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.started {
		return
	}

	if o.dummy {
		close(o.stop)
		o.drained.Wait()
		o.stop = nil
	} else {
		o.player.Close()
		o.player = nil
	}

	o.started = false
	o.log.Log(logging.LevelInfo, "audio output stopped")
}

// Write copies up to len(samples)/channels frames into free slots and
// returns the number of frames written, which may be less than requested
// when the buffer is near full. It never blocks and never allocates.
// Only a single producer goroutine may call Write.
func (o *Output) Write(samples []float32) int {
	ch := uint32(o.channels)
	frames := uint32(len(samples)) / ch

	head := o.head.Load()
	tail := o.tail.Load()

	// one slot stays free to disambiguate empty from full
	free := (tail - head - 1) & o.mask

	n := frames
	if n > free {
		n = free
	}

	for f := uint32(0); f < n; f++ {
		idx := ((head + f) & o.mask) * ch
		copy(o.buf[idx:idx+ch], samples[f*ch:(f+1)*ch])
	}

	// publish only after every sample is copied
	o.head.Store((head + n) & o.mask)
	return int(n)
}

// ReadFrames is the consumer routine invoked on the device goroutine. It
// fills dst with up to len(dst)/channels frames, applying the current volume
// and hard-clamping each sample to [-1, 1]. Any shortfall is zero filled so
// an underrun plays silence instead of stale frames. Returns the number of
// frames read from the buffer.
func (o *Output) ReadFrames(dst []float32) int {
	ch := uint32(o.channels)
	frames := uint32(len(dst)) / ch

	tail := o.tail.Load()
	head := o.head.Load()

	used := (head - tail) & o.mask

	n := frames
	if n > used {
		n = used
	}

	vol := o.Volume()
	for f := uint32(0); f < n; f++ {
		idx := ((tail + f) & o.mask) * ch
		base := f * ch
		for c := uint32(0); c < ch; c++ {
			s := o.buf[idx+c] * vol
			if s > 1.0 {
				s = 1.0
			} else if s < -1.0 {
				s = -1.0
			}
			dst[base+c] = s
		}
	}

	for i := int(n * ch); i < len(dst); i++ {
		dst[i] = 0
	}

	// publish only after every sample is read out
	o.tail.Store((tail + n) & o.mask)
	return int(n)
}

// Used returns the frame count currently buffered. Snapshot consistency
// only; the value may be stale the instant it returns.
func (o *Output) Used() int {
	return int((o.head.Load() - o.tail.Load()) & o.mask)
}

// Free returns the writable frame count. Snapshot consistency only.
func (o *Output) Free() int {
	return int((o.tail.Load() - o.head.Load() - 1) & o.mask)
}

// Capacity returns the total frame capacity; Used + Free is always
// Capacity - 1 because of the reserved slot.
func (o *Output) Capacity() int { return int(o.capacity) }

// SampleRate returns the configured device sample rate.
func (o *Output) SampleRate() int { return o.sampleRate }

// Channels returns the interleaved channel count.
func (o *Output) Channels() int { return o.channels }

// SetVolume sets the playback volume, clamped to [0, MaxVolume]. Effective
// on the next consumer callback.
func (o *Output) SetVolume(v float32) {
	if v < 0 {
		v = 0
	}
	if v > MaxVolume {
		v = MaxVolume
	}
	o.volume.Store(math.Float32bits(v))
}

// Volume returns the current playback volume.
func (o *Output) Volume() float32 {
	return math.Float32frombits(o.volume.Load())
}

// runSilentSink drains the ring buffer at the device callback cadence so the
// pipeline keeps flowing without audio hardware.
func (o *Output) runSilentSink(stop chan struct{}) {
	defer o.drained.Done()

	interval := time.Second * time.Duration(o.framesPerCallback) / time.Duration(o.sampleRate)
	if interval <= 0 {
		interval = time.Millisecond
	}
	scratch := make([]float32, o.framesPerCallback*o.channels)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			o.ReadFrames(scratch)
		}
	}
}
