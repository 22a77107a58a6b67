// ABOUTME: Tests for the SPSC ring buffer and its consumer routine
// ABOUTME: Covers capacity invariants, underrun silence, volume clamp, and wrap-around
package output

import (
	"testing"
	"time"

	"github.com/Cadenza-Audio/cadenza-go/internal/audio"
	"github.com/Cadenza-Audio/cadenza-go/internal/logging"
)

// newTestOutput builds a silent-sink output with the given frame capacity.
// The capacity must be a power of two; the sample rate is abused as the
// sizing knob since capacity = NextPowerOfTwo(rate * seconds).
func newTestOutput(t *testing.T, capacityFrames, channels int) *Output {
	t.Helper()

	o, err := New(audio.Format{SampleRate: capacityFrames, Channels: channels}, Config{
		BufferSeconds: 1,
		DisableDevice: true,
		Logger:        logging.Nop(),
	})
	if err != nil {
		t.Fatalf("failed to create output: %v", err)
	}
	if o.Capacity() != capacityFrames {
		t.Fatalf("expected capacity %d, got %d", capacityFrames, o.Capacity())
	}
	return o
}

// frames builds count interleaved frames all holding value.
func frames(value float32, count, channels int) []float32 {
	out := make([]float32, count*channels)
	for i := range out {
		out[i] = value
	}
	return out
}

func TestCapacityInvariant(t *testing.T) {
	o := newTestOutput(t, 16, 2)

	check := func(when string) {
		if o.Used()+o.Free() != o.Capacity()-1 {
			t.Errorf("%s: used(%d) + free(%d) != capacity-1 (%d)",
				when, o.Used(), o.Free(), o.Capacity()-1)
		}
	}

	check("empty")
	o.Write(frames(0.1, 5, 2))
	check("after write 5")
	o.Write(frames(0.1, 100, 2))
	check("after overfull write")
	o.ReadFrames(make([]float32, 6*2))
	check("after read 6")
	o.ReadFrames(make([]float32, 100*2))
	check("after draining read")
}

func TestWriteNeverOverfills(t *testing.T) {
	o := newTestOutput(t, 8, 1)

	n := o.Write(frames(0.5, 20, 1))
	if n != 7 {
		t.Errorf("expected 7 frames written into capacity-8 buffer, got %d", n)
	}
	if o.Free() != 0 {
		t.Errorf("expected full buffer, free=%d", o.Free())
	}

	if n := o.Write(frames(0.5, 1, 1)); n != 0 {
		t.Errorf("expected 0 frames written when full, got %d", n)
	}
}

func TestRoundTripPreservesSequence(t *testing.T) {
	o := newTestOutput(t, 16, 2)

	// Write 10 distinct frames, drain in two chunks of 5, twice over, so the
	// cursors cross the wrap point mid-test.
	var next float32
	read := make([]float32, 5*2)
	var want float32

	for round := 0; round < 4; round++ {
		in := make([]float32, 10*2)
		for f := 0; f < 10; f++ {
			next += 0.001
			in[f*2] = next
			in[f*2+1] = -next
		}
		if n := o.Write(in); n != 10 {
			t.Fatalf("round %d: expected 10 frames written, got %d", round, n)
		}

		for chunk := 0; chunk < 2; chunk++ {
			if n := o.ReadFrames(read); n != 5 {
				t.Fatalf("round %d chunk %d: expected 5 frames read, got %d", round, chunk, n)
			}
			for f := 0; f < 5; f++ {
				want += 0.001
				if read[f*2] != want || read[f*2+1] != -want {
					t.Fatalf("round %d chunk %d frame %d: expected (%v,%v), got (%v,%v)",
						round, chunk, f, want, -want, read[f*2], read[f*2+1])
				}
			}
		}
	}
}

func TestUnderrunYieldsSilence(t *testing.T) {
	o := newTestOutput(t, 8, 2)

	if n := o.Write(frames(0.5, 5, 2)); n != 5 {
		t.Fatalf("expected 5 frames written, got %d", n)
	}
	if o.Used() != 5 || o.Free() != 2 {
		t.Fatalf("expected used=5 free=2, got used=%d free=%d", o.Used(), o.Free())
	}

	// Request 8 frames: 5 real frames then exact zeros
	dst := frames(99, 8, 2)
	if n := o.ReadFrames(dst); n != 5 {
		t.Fatalf("expected 5 frames read, got %d", n)
	}
	for i := 0; i < 5*2; i++ {
		if dst[i] != 0.5 {
			t.Errorf("sample %d: expected 0.5, got %v", i, dst[i])
		}
	}
	for i := 5 * 2; i < 8*2; i++ {
		if dst[i] != 0 {
			t.Errorf("sample %d: expected exact zero on underrun, got %v", i, dst[i])
		}
	}

	if o.Used() != 0 {
		t.Errorf("expected empty buffer after drain, used=%d", o.Used())
	}
}

func TestVolumeAppliedAndClamped(t *testing.T) {
	o := newTestOutput(t, 8, 1)

	o.SetVolume(2.0)
	o.Write([]float32{0.9, -0.9, 0.25, -0.25})

	dst := make([]float32, 4)
	o.ReadFrames(dst)

	want := []float32{1.0, -1.0, 0.5, -0.5}
	for i, w := range want {
		if dst[i] != w {
			t.Errorf("sample %d: expected %v, got %v", i, w, dst[i])
		}
	}
}

func TestVolumeClampNeverExceedsUnity(t *testing.T) {
	o := newTestOutput(t, 32, 1)

	o.SetVolume(5.0) // clamped to MaxVolume
	if o.Volume() != MaxVolume {
		t.Fatalf("expected volume clamp to %v, got %v", float32(MaxVolume), o.Volume())
	}

	in := []float32{1.0, -1.0, 0.7, -0.7, 0.1, 0.0}
	o.Write(in)

	dst := make([]float32, len(in))
	o.ReadFrames(dst)

	for i, s := range dst {
		if s > 1.0 || s < -1.0 {
			t.Errorf("sample %d: magnitude exceeds 1.0 after boost: %v", i, s)
		}
	}
}

func TestSetVolumeClampsNegative(t *testing.T) {
	o := newTestOutput(t, 8, 1)

	o.SetVolume(-1)
	if o.Volume() != 0 {
		t.Errorf("expected negative volume clamped to 0, got %v", o.Volume())
	}
}

func TestSilentSinkDrains(t *testing.T) {
	o, err := New(audio.Format{SampleRate: 800, Channels: 2}, Config{
		FramesPerCallback: 64,
		BufferSeconds:     1,
		DisableDevice:     true,
		Logger:            logging.Nop(),
	})
	if err != nil {
		t.Fatalf("failed to create output: %v", err)
	}

	if err := o.Start(); err != nil {
		t.Fatalf("failed to start: %v", err)
	}
	defer o.Stop()

	o.Write(frames(0.5, 100, 2))

	deadline := time.After(2 * time.Second)
	for o.Used() > 0 {
		select {
		case <-deadline:
			t.Fatalf("silent sink did not drain, used=%d", o.Used())
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
}

func TestStartStopIdempotent(t *testing.T) {
	o := newTestOutput(t, 8, 1)

	o.Stop() // never started

	if err := o.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := o.Start(); err != nil {
		t.Fatalf("second start failed: %v", err)
	}

	o.Stop()
	o.Stop()
}

func TestConcurrentProducerConsumer(t *testing.T) {
	o := newTestOutput(t, 64, 1)

	const total = 5000
	done := make(chan struct{})

	go func() {
		defer close(done)
		for i := 0; i < total; {
			v := (float32(i) + 1) / float32(total+1)
			if n := o.Write([]float32{v}); n == 1 {
				i++
			} else {
				time.Sleep(time.Microsecond)
			}
		}
	}()

	dst := make([]float32, 32)
	var want int
	deadline := time.After(5 * time.Second)
	for want < total {
		select {
		case <-deadline:
			t.Fatalf("timed out after %d of %d samples", want, total)
		default:
		}

		n := o.ReadFrames(dst)
		for i := 0; i < n; i++ {
			expect := (float32(want) + 1) / float32(total+1)
			if dst[i] != expect {
				t.Fatalf("sample %d: expected %v, got %v", want, expect, dst[i])
			}
			want++
		}
	}
	<-done
}
