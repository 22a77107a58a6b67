// ABOUTME: Decoder interface and container selection by file extension
// ABOUTME: Every decoder yields interleaved signed 16-bit PCM batches
package decode

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrUnsupportedFormat is returned by Open for unrecognized file extensions.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// Decoder yields interleaved signed 16-bit PCM from an opened media file.
// SampleRate and Channels are valid after a successful Open and fixed for
// the decoder's lifetime.
type Decoder interface {
	// Decode returns the next batch of interleaved int16 samples. Batches
	// contain whole frames only: the length is a multiple of Channels().
	// An empty batch with a nil error means end of stream.
	Decode() ([]int16, error)

	// SampleRate returns the output sample rate in Hz.
	SampleRate() int

	// Channels returns the number of interleaved channels.
	Channels() int

	// Close releases decoder resources.
	Close() error
}

// Open creates a decoder for the given file, selected by extension.
func Open(path string) (Decoder, error) {
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".mp3":
		return OpenMP3(path)
	case ".wav":
		return OpenWAV(path)
	case ".ogg":
		return OpenVorbis(path)
	case ".flac":
		return OpenFLAC(path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}
