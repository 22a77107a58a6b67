// ABOUTME: Streaming linear-interpolation resampler for the speed control
// ABOUTME: Carries its fractional position across batches so chunk seams do not click
package player

// speedResampler stretches or squeezes batches of interleaved frames by the
// playback speed factor. At speed s it advances the read position s source
// frames per output frame, interpolating between neighbors. The final frame
// of each batch and the fractional overrun carry into the next call, so the
// resampler lags the stream by exactly one frame.
type speedResampler struct {
	channels int
	pos      float64   // fractional read position into the current batch
	last     []float32 // final frame of the previous batch
	hasLast  bool
	scratch  []float32
}

func newSpeedResampler(channels int) *speedResampler {
	return &speedResampler{
		channels: channels,
		last:     make([]float32, 0, channels),
	}
}

// Process resamples one batch. The input is not retained. Runs on the
// decode goroutine, so allocation is acceptable here.
func (r *speedResampler) Process(in []float32, speed float64) []float32 {
	ch := r.channels
	if len(in) < ch {
		return nil
	}

	// Prepend the carried frame so interpolation spans the batch seam.
	frames := in
	if r.hasLast {
		r.scratch = append(append(r.scratch[:0], r.last...), in...)
		frames = r.scratch
	}
	n := len(frames) / ch

	out := make([]float32, 0, (int(float64(n)/speed)+1)*ch)
	pos := r.pos
	for int(pos)+1 < n {
		i := int(pos)
		frac := float32(pos - float64(i))
		base := i * ch
		for c := 0; c < ch; c++ {
			a := frames[base+c]
			b := frames[base+ch+c]
			out = append(out, a+(b-a)*frac)
		}
		pos += speed
	}

	// Carry the final frame and the fractional overrun.
	r.last = append(r.last[:0], frames[(n-1)*ch:n*ch]...)
	r.hasLast = true
	r.pos = pos - float64(n-1)

	return out
}
