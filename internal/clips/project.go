package clips

import (
	"fmt"
	"math"
)

const (
	// FormatVersion is written into every saved project
	FormatVersion = "1.0.0"

	// MinDuration is the floor of the derived project duration
	MinDuration = 60.0
)

// Project owns the track and clip collections of one document
type Project struct {
	Version string
	Name    string
	Tracks  []Track
	Clips   []Clip
}

// NewProject returns an empty project with the default lanes
func NewProject(name string) *Project {
	return &Project{
		Version: FormatVersion,
		Name:    name,
		Tracks:  DefaultTracks(),
		Clips:   []Clip{},
	}
}

// Duration derives the project length from its clips
func (p *Project) Duration() float64 {
	return Duration(p.Clips)
}

// Duration is max(MinDuration, latest clip end)
func Duration(clips []Clip) float64 {
	d := MinDuration
	for _, c := range clips {
		d = math.Max(d, c.End())
	}
	return d
}

// OrderedTracks returns the tracks in compositing order, top first
func (p *Project) OrderedTracks() []Track {
	return sortTracks(p.Tracks)
}

// TrackIndex returns the position of id in compositing order, or -1
func (p *Project) TrackIndex(id string) int {
	for i, t := range p.OrderedTracks() {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// Track looks up a track by id
func (p *Project) Track(id string) (Track, bool) {
	for _, t := range p.Tracks {
		if t.ID == id {
			return t, true
		}
	}
	return Track{}, false
}

// DefaultTrackFor picks the lane a new clip of kind k lands on: the first
// text lane for text, the first audio lane for audio, the first video lane
// otherwise, falling back to the first track.
func (p *Project) DefaultTrackFor(k Kind) (Track, bool) {
	want := TrackVideo
	switch k {
	case KindAudio:
		want = TrackAudio
	case KindText:
		want = TrackText
	}

	ordered := p.OrderedTracks()
	for _, t := range ordered {
		if t.Kind == want {
			return t, true
		}
	}
	if len(ordered) > 0 {
		return ordered[0], true
	}
	return Track{}, false
}

// Find returns the index of clip id in p.Clips
func (p *Project) Find(id string) (int, bool) {
	for i, c := range p.Clips {
		if c.ID == id {
			return i, true
		}
	}
	return -1, false
}

// Clip returns a copy of clip id
func (p *Project) Clip(id string) (Clip, bool) {
	if i, ok := p.Find(id); ok {
		return p.Clips[i].Clone(), true
	}
	return Clip{}, false
}

// Clone deep-copies the project
func (p *Project) Clone() *Project {
	return &Project{
		Version: p.Version,
		Name:    p.Name,
		Tracks:  append([]Track(nil), p.Tracks...),
		Clips:   CloneAll(p.Clips),
	}
}

// Validate checks every clip, the uniqueness of clip and track ids, and that
// each clip sits on an existing track that accepts its kind
func (p *Project) Validate() error {
	tracks := make(map[string]Track, len(p.Tracks))
	for _, t := range p.Tracks {
		if _, dup := tracks[t.ID]; dup {
			return fmt.Errorf("duplicate track id %s", t.ID)
		}
		tracks[t.ID] = t
	}

	seen := make(map[string]bool, len(p.Clips))
	for _, c := range p.Clips {
		if err := c.Validate(); err != nil {
			return err
		}
		if seen[c.ID] {
			return fmt.Errorf("duplicate clip id %s", c.ID)
		}
		seen[c.ID] = true

		t, ok := tracks[c.TrackID]
		if !ok {
			return fmt.Errorf("clip %s: %w: %q", c.ID, ErrTrackNotFound, c.TrackID)
		}
		if !Compatible(c.Kind(), t.Kind) {
			return fmt.Errorf("clip %s on %s: %w", c.ID, t.ID, ErrIncompatible)
		}
	}
	return nil
}

// CloneAll deep-copies a clip collection
func CloneAll(clips []Clip) []Clip {
	out := make([]Clip, len(clips))
	for i, c := range clips {
		out[i] = c.Clone()
	}
	return out
}
