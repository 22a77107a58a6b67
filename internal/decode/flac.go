// ABOUTME: FLAC decoder backed by mewkiz/flac
// ABOUTME: Interleaves per-channel subframes and scales them to int16
package decode

import (
	"fmt"
	"io"
	"os"

	"github.com/mewkiz/flac"
)

// FLACDecoder decodes a FLAC file to interleaved int16 PCM.
type FLACDecoder struct {
	file       *os.File
	stream     *flac.Stream
	sampleRate int
	channels   int
	bitDepth   int
}

// OpenFLAC opens a FLAC file for decoding.
func OpenFLAC(path string) (*FLACDecoder, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open flac file: %w", err)
	}

	stream, err := flac.New(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to decode flac: %w", err)
	}

	info := stream.Info

	return &FLACDecoder{
		file:       f,
		stream:     stream,
		sampleRate: int(info.SampleRate),
		channels:   int(info.NChannels),
		bitDepth:   int(info.BitsPerSample),
	}, nil
}

// SampleRate returns the stream sample rate.
func (d *FLACDecoder) SampleRate() int { return d.sampleRate }

// Channels returns the number of interleaved channels.
func (d *FLACDecoder) Channels() int { return d.channels }

// Decode parses the next FLAC frame and returns its samples interleaved.
func (d *FLACDecoder) Decode() ([]int16, error) {
	frame, err := d.stream.ParseNext()
	if err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("flac decode: %w", err)
	}

	blockSize := int(frame.BlockSize)
	samples := make([]int16, blockSize*d.channels)

	// FLAC stores one subframe per channel at the stream's bit depth
	shift := d.bitDepth - 16
	for i := 0; i < blockSize; i++ {
		for ch := 0; ch < d.channels; ch++ {
			sample := frame.Subframes[ch].Samples[i]
			if shift > 0 {
				sample >>= shift
			} else if shift < 0 {
				sample <<= -shift
			}
			samples[i*d.channels+ch] = int16(sample)
		}
	}
	return samples, nil
}

// Close closes the underlying file.
func (d *FLACDecoder) Close() error {
	return d.file.Close()
}
