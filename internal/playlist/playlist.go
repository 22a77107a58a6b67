// ABOUTME: Ordered track list with loop-aware advancement
// ABOUTME: Host-side policy; the player only executes what it is handed
package playlist

import (
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Track is one playlist entry.
type Track struct {
	ID    uuid.UUID
	Path  string
	Title string
}

// Playlist is an ordered list of tracks with a cursor. Looping policy lives
// here, not in the player.
type Playlist struct {
	tracks []Track
	index  int
	loop   bool
}

// New builds a playlist from file paths. Titles are derived from the base
// file name.
func New(paths []string, loop bool) *Playlist {
	tracks := make([]Track, 0, len(paths))
	for _, path := range paths {
		name := filepath.Base(path)
		tracks = append(tracks, Track{
			ID:    uuid.New(),
			Path:  path,
			Title: strings.TrimSuffix(name, filepath.Ext(name)),
		})
	}
	return &Playlist{tracks: tracks, loop: loop}
}

// Len returns the number of tracks.
func (p *Playlist) Len() int { return len(p.tracks) }

// Current returns the track under the cursor, or false when the playlist is
// empty or exhausted.
func (p *Playlist) Current() (Track, bool) {
	if p.index < 0 || p.index >= len(p.tracks) {
		return Track{}, false
	}
	return p.tracks[p.index], true
}

// Advance moves to the next track, wrapping when the playlist loops.
// Returns false when the playlist is exhausted.
func (p *Playlist) Advance() (Track, bool) {
	if len(p.tracks) == 0 {
		return Track{}, false
	}
	p.index++
	if p.index >= len(p.tracks) {
		if !p.loop {
			return Track{}, false
		}
		p.index = 0
	}
	return p.tracks[p.index], true
}

// Position returns the 1-based cursor position for display.
func (p *Playlist) Position() int { return p.index + 1 }
