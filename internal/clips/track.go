package clips

import "sort"

// TrackKind is the lane type of a track
type TrackKind string

const (
	TrackVideo TrackKind = "video"
	TrackAudio TrackKind = "audio"
	TrackText  TrackKind = "text"
)

// Track is an ordered lane. Lower DisplayOrder sits higher in the
// compositing stack.
type Track struct {
	ID           string    `json:"id" validate:"required"`
	Kind         TrackKind `json:"type" validate:"required,oneof=video audio text"`
	Name         string    `json:"name"`
	DisplayOrder int       `json:"displayOrder"`
}

// DefaultTracks is the lane set of a new project
func DefaultTracks() []Track {
	return []Track{
		{ID: "video-1", Kind: TrackVideo, Name: "Video 1", DisplayOrder: 0},
		{ID: "text-1", Kind: TrackText, Name: "Text", DisplayOrder: 1},
		{ID: "audio-1", Kind: TrackAudio, Name: "Audio 1", DisplayOrder: 2},
	}
}

// Compatible reports whether a clip of kind k may live on a track of kind tk.
// Audio stays on audio lanes, pictures stay off them, text goes anywhere.
func Compatible(k Kind, tk TrackKind) bool {
	switch k {
	case KindAudio:
		return tk == TrackAudio
	case KindText:
		return true
	default:
		return tk != TrackAudio
	}
}

// sortTracks orders tracks by DisplayOrder, keeping declaration order on ties
func sortTracks(tracks []Track) []Track {
	out := append([]Track(nil), tracks...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DisplayOrder < out[j].DisplayOrder
	})
	return out
}
