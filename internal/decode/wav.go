// ABOUTME: WAV decoder backed by go-audio/wav
// ABOUTME: Scales 8/16/24/32-bit PCM down to the int16 pipeline format
package decode

import (
	"fmt"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// framesPerBatch sizes decoder scratch buffers in frames, so batches stay
// whole-frame aligned for any channel count.
const framesPerBatch = 1024

// WAVDecoder decodes a RIFF/WAVE file to interleaved int16 PCM.
type WAVDecoder struct {
	file       *os.File
	dec        *wav.Decoder
	buf        *goaudio.IntBuffer
	sampleRate int
	channels   int
	bitDepth   int
}

// OpenWAV opens a WAV file for decoding.
func OpenWAV(path string) (*WAVDecoder, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open wav file: %w", err)
	}

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		f.Close()
		return nil, fmt.Errorf("invalid wav file: %s", path)
	}

	channels := int(dec.NumChans)
	sampleRate := int(dec.SampleRate)

	return &WAVDecoder{
		file:       f,
		dec:        dec,
		sampleRate: sampleRate,
		channels:   channels,
		bitDepth:   int(dec.BitDepth),
		buf: &goaudio.IntBuffer{
			Format: &goaudio.Format{
				NumChannels: channels,
				SampleRate:  sampleRate,
			},
			Data: make([]int, framesPerBatch*channels),
		},
	}, nil
}

// SampleRate returns the stream sample rate.
func (d *WAVDecoder) SampleRate() int { return d.sampleRate }

// Channels returns the number of interleaved channels.
func (d *WAVDecoder) Channels() int { return d.channels }

// Decode returns the next batch of interleaved int16 samples.
func (d *WAVDecoder) Decode() ([]int16, error) {
	n, err := d.dec.PCMBuffer(d.buf)
	if err != nil {
		return nil, fmt.Errorf("wav decode: %w", err)
	}
	// a data chunk truncated mid-frame yields a short tail; discard it
	n -= n % d.channels
	if n == 0 {
		return nil, nil
	}

	samples := make([]int16, n)
	for i := 0; i < n; i++ {
		samples[i] = scaleToInt16(d.buf.Data[i], d.bitDepth)
	}
	return samples, nil
}

// Close closes the underlying file.
func (d *WAVDecoder) Close() error {
	return d.file.Close()
}

// scaleToInt16 maps a PCM sample at the given bit depth into int16 range.
// 8-bit WAV samples are unsigned per the RIFF spec.
func scaleToInt16(v, bitDepth int) int16 {
	switch bitDepth {
	case 8:
		return int16((v - 128) << 8)
	case 16:
		return int16(v)
	case 24:
		return int16(v >> 8)
	case 32:
		return int16(v >> 16)
	default:
		return int16(v)
	}
}
