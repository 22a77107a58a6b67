// ABOUTME: MP3 decoder backed by hajimehoshi/go-mp3
// ABOUTME: Converts the library's 16-bit LE byte stream to int16 batches
package decode

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	mp3 "github.com/hajimehoshi/go-mp3"
)

// MP3Decoder decodes an MP3 file to interleaved int16 PCM.
type MP3Decoder struct {
	file *os.File
	dec  *mp3.Decoder
	buf  []byte
}

// OpenMP3 opens an MP3 file for decoding.
func OpenMP3(path string) (*MP3Decoder, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open mp3 file: %w", err)
	}

	dec, err := mp3.NewDecoder(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to decode mp3: %w", err)
	}

	return &MP3Decoder{
		file: f,
		dec:  dec,
		buf:  make([]byte, 8192),
	}, nil
}

// SampleRate returns the stream sample rate.
func (d *MP3Decoder) SampleRate() int { return d.dec.SampleRate() }

// Channels returns 2; go-mp3 always outputs stereo.
func (d *MP3Decoder) Channels() int { return 2 }

// Decode returns the next batch of interleaved int16 samples.
func (d *MP3Decoder) Decode() ([]int16, error) {
	// ReadFull keeps batches whole-frame aligned; a plain Read may split a
	// 4-byte stereo frame across calls
	n, err := io.ReadFull(d.dec, d.buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, fmt.Errorf("mp3 decode: %w", err)
	}
	n -= n % 4
	if n == 0 {
		return nil, nil
	}

	// go-mp3 yields 16-bit little-endian PCM bytes, two per sample
	samples := make([]int16, n/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(d.buf[i*2:]))
	}
	return samples, nil
}

// Close closes the underlying file.
func (d *MP3Decoder) Close() error {
	return d.file.Close()
}
