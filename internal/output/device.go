// ABOUTME: oto device binding for the ring buffer consumer
// ABOUTME: Adapts ReadFrames to oto's pull-model float32 sample stream
package output

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/Cadenza-Audio/cadenza-go/internal/logging"
	"github.com/ebitengine/oto/v3"
)

// devicePlayer is the subset of *oto.Player the output needs.
type devicePlayer interface {
	Close() error
}

// oto allows a single context per process, so it is shared across loads.
var (
	otoMu       sync.Mutex
	otoCtx      *oto.Context
	otoRate     int
	otoChannels int
)

// openDevice ensures the shared oto context exists. oto cannot reconfigure a
// live context, so a later load with a different stream format keeps the
// device format and the reader converts to it (see formatConverter).
func (o *Output) openDevice() error {
	otoMu.Lock()
	defer otoMu.Unlock()

	if otoCtx != nil {
		if otoRate != o.sampleRate || otoChannels != o.channels {
			o.log.Logf(logging.LevelWarn,
				"stream format %dHz %dch differs from device format %dHz %dch; converting on the device path",
				o.sampleRate, o.channels, otoRate, otoChannels)
		}
		return nil
	}

	op := &oto.NewContextOptions{
		SampleRate:   o.sampleRate,
		ChannelCount: o.channels,
		Format:       oto.FormatFloat32LE,
		BufferSize:   time.Second * time.Duration(o.framesPerCallback) / time.Duration(o.sampleRate),
	}

	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return fmt.Errorf("failed to create oto context: %w", err)
	}
	<-ready

	otoCtx = ctx
	otoRate = o.sampleRate
	otoChannels = o.channels
	return nil
}

// newDevicePlayer binds the ring buffer to the shared context and starts the
// device pulling. The returned player's Close stops the pulling before it
// returns.
func newDevicePlayer(o *Output) (devicePlayer, error) {
	otoMu.Lock()
	defer otoMu.Unlock()

	if otoCtx == nil {
		return nil, fmt.Errorf("audio device not opened")
	}

	r := &deviceReader{
		out:    o,
		frames: make([]float32, o.framesPerCallback*o.channels),
	}
	if otoRate != o.sampleRate || otoChannels != o.channels {
		r.conv = newFormatConverter(o.sampleRate, o.channels, otoRate, otoChannels)
	}
	p := otoCtx.NewPlayer(r)
	p.Play()
	return p, nil
}

// deviceReader adapts the ring buffer's consumer routine to oto's pull
// model. oto invokes Read on its own audio goroutine; this path touches only
// the atomic cursors and the fixed backing array, and reuses its scratch
// buffers so the steady state never allocates. conv is nil while the stream
// format matches the device.
type deviceReader struct {
	out    *Output
	frames []float32
	conv   *formatConverter
	dev    []float32
}

func (r *deviceReader) Read(p []byte) (int, error) {
	if r.conv != nil {
		return r.readConverted(p)
	}

	frameBytes := 4 * r.out.channels
	frames := len(p) / frameBytes
	if frames == 0 {
		for i := range p {
			p[i] = 0
		}
		return len(p), nil
	}

	samples := frames * r.out.channels
	if len(r.frames) < samples {
		r.frames = make([]float32, samples)
	}
	buf := r.frames[:samples]

	r.out.ReadFrames(buf)

	for i, s := range buf {
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(s))
	}
	return samples * 4, nil
}

// readConverted drains the ring in the stream format and hands the device
// frames in its own format. Short reads are fine; oto calls again.
func (r *deviceReader) readConverted(p []byte) (int, error) {
	dstCh := r.conv.dstCh
	dstFrames := len(p) / (4 * dstCh)
	if dstFrames == 0 {
		for i := range p {
			p[i] = 0
		}
		return len(p), nil
	}

	srcFrames := int(float64(dstFrames) * r.conv.step)
	if srcFrames < 2 {
		srcFrames = 2
	}
	srcSamples := srcFrames * r.conv.srcCh
	if len(r.frames) < srcSamples {
		r.frames = make([]float32, srcSamples)
	}
	src := r.frames[:srcSamples]
	r.out.ReadFrames(src)

	dstSamples := dstFrames * dstCh
	if len(r.dev) < dstSamples {
		r.dev = make([]float32, dstSamples)
	}
	dst := r.dev[:dstSamples]

	n := r.conv.convert(src, dst)
	if n == 0 {
		// not enough source for a single output frame; hand back silence
		for i := 0; i < dstCh*4; i++ {
			p[i] = 0
		}
		return dstCh * 4, nil
	}

	for i := 0; i < n*dstCh; i++ {
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(dst[i]))
	}
	return n * dstCh * 4, nil
}

// formatConverter converts stream-format frames to the device format when
// the shared context predates a stream with a different rate or channel
// count. Rate conversion is linear interpolation with a one-frame carry, the
// same scheme the playback speed control uses; channel remixing replicates
// mono, averages down to mono, and otherwise copies matching channels.
type formatConverter struct {
	srcCh, dstCh int
	step         float64 // source frames consumed per device frame
	pos          float64
	last         []float32
	hasLast      bool
	scratch      []float32
	frame        []float32
}

func newFormatConverter(srcRate, srcCh, dstRate, dstCh int) *formatConverter {
	return &formatConverter{
		srcCh: srcCh,
		dstCh: dstCh,
		step:  float64(srcRate) / float64(dstRate),
		last:  make([]float32, srcCh),
		frame: make([]float32, srcCh),
	}
}

// convert consumes src (whole stream frames) and fills dst with as many
// whole device frames as it yields, returning the device frame count. The
// fractional position and final source frame carry across calls.
func (c *formatConverter) convert(src, dst []float32) int {
	in := src
	if c.hasLast {
		need := len(src) + c.srcCh
		if cap(c.scratch) < need {
			c.scratch = make([]float32, need)
		}
		in = c.scratch[:need]
		copy(in, c.last)
		copy(in[c.srcCh:], src)
	}

	frames := len(in) / c.srcCh
	maxOut := len(dst) / c.dstCh

	out := 0
	for out < maxOut {
		i := int(c.pos)
		if i+1 >= frames {
			break
		}
		frac := float32(c.pos - float64(i))
		base := i * c.srcCh
		for ch := 0; ch < c.srcCh; ch++ {
			a := in[base+ch]
			b := in[base+c.srcCh+ch]
			c.frame[ch] = a + (b-a)*frac
		}
		remixFrame(c.frame, dst[out*c.dstCh:(out+1)*c.dstCh])
		out++
		c.pos += c.step
	}

	if frames > 0 {
		copy(c.last, in[(frames-1)*c.srcCh:frames*c.srcCh])
		c.hasLast = true
		c.pos -= float64(frames - 1)
		if c.pos < 0 {
			c.pos = 0
		}
	}
	return out
}

// remixFrame maps one interleaved frame onto a frame with a possibly
// different channel count.
func remixFrame(src, dst []float32) {
	switch {
	case len(src) == len(dst):
		copy(dst, src)
	case len(src) == 1:
		for i := range dst {
			dst[i] = src[0]
		}
	case len(dst) == 1:
		var sum float32
		for _, s := range src {
			sum += s
		}
		dst[0] = sum / float32(len(src))
	default:
		n := copy(dst, src)
		for i := n; i < len(dst); i++ {
			dst[i] = 0
		}
	}
}
