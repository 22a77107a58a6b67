// ABOUTME: Shared audio type definitions and sample conversion helpers
// ABOUTME: Defines stream formats and the int16-to-float32 producer boundary
package audio

// Format describes a decoded PCM stream.
type Format struct {
	SampleRate int
	Channels   int
}

// SampleToFloat32 converts a decoder-native int16 sample to the ring
// buffer's float32 representation. The divisor is 32768 so that -32768
// maps to exactly -1.0 and 32767 stays below 1.0.
func SampleToFloat32(s int16) float32 {
	return float32(s) / 32768.0
}

// ToFloat32 converts a batch of interleaved int16 samples. This is the
// single place int16 PCM crosses into float; nothing downstream re-derives
// the conversion.
func ToFloat32(samples []int16) []float32 {
	out := make([]float32, len(samples))
	for i, s := range samples {
		out[i] = SampleToFloat32(s)
	}
	return out
}

// NextPowerOfTwo rounds v up to the next power of two. Returns 1 for v <= 0.
func NextPowerOfTwo(v int) int {
	if v <= 0 {
		return 1
	}
	v--
	v |= v >> 1
	v |= v >> 2
	v |= v >> 4
	v |= v >> 8
	v |= v >> 16
	v |= v >> 32
	return v + 1
}
