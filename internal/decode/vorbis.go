// ABOUTME: Ogg Vorbis decoder backed by jfreymuth/oggvorbis
// ABOUTME: Quantizes the library's float32 output to the int16 pipeline format
package decode

import (
	"fmt"
	"io"
	"os"

	"github.com/jfreymuth/oggvorbis"
)

// VorbisDecoder decodes an Ogg Vorbis file to interleaved int16 PCM.
type VorbisDecoder struct {
	file *os.File
	dec  *oggvorbis.Reader
	buf  []float32
}

// OpenVorbis opens an Ogg Vorbis file for decoding.
func OpenVorbis(path string) (*VorbisDecoder, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ogg file: %w", err)
	}

	dec, err := oggvorbis.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to decode ogg vorbis: %w", err)
	}

	return &VorbisDecoder{
		file: f,
		dec:  dec,
		// oggvorbis requires the read buffer length to be a multiple of the
		// channel count, which also keeps batches whole-frame aligned
		buf: make([]float32, framesPerBatch*dec.Channels()),
	}, nil
}

// SampleRate returns the stream sample rate.
func (d *VorbisDecoder) SampleRate() int { return d.dec.SampleRate() }

// Channels returns the number of interleaved channels.
func (d *VorbisDecoder) Channels() int { return d.dec.Channels() }

// Decode returns the next batch of interleaved int16 samples.
func (d *VorbisDecoder) Decode() ([]int16, error) {
	n, err := d.dec.Read(d.buf)
	if n == 0 {
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("vorbis decode: %w", err)
		}
		return nil, nil
	}

	samples := make([]int16, n)
	for i := 0; i < n; i++ {
		v := d.buf[i]
		if v > 1.0 {
			v = 1.0
		} else if v < -1.0 {
			v = -1.0
		}
		samples[i] = int16(v * 32767)
	}
	return samples, nil
}

// Close closes the underlying file.
func (d *VorbisDecoder) Close() error {
	return d.file.Close()
}
