package timeline

import (
	"github.com/kikiluvv/vibecut/internal/clips"
	"github.com/kikiluvv/vibecut/internal/timing"
)

// Edge is the part of a clip a drag gesture grabbed
type Edge string

const (
	EdgeLeft  Edge = "left"
	EdgeRight Edge = "right"
	EdgeMove  Edge = "move"
)

// Valid reports whether e is a known edge
func (e Edge) Valid() bool {
	return e == EdgeLeft || e == EdgeRight || e == EdgeMove
}

// DragState is Idle when ClipID is empty, Dragging otherwise.
type DragState struct {
	ClipID     string
	Edge       Edge
	GrabOffset float64
}

// Idle reports whether no drag is in progress
func (s DragState) Idle() bool {
	return s.ClipID == ""
}

// PointerSample is one pointer position, already mapped to timeline seconds.
// TrackID names the lane under the pointer, empty when there is none.
type PointerSample struct {
	Time    float64
	TrackID string
}

// DragEnv is the read-only context a drag transition is evaluated against
type DragEnv struct {
	Clips     []clips.Clip
	Tracks    []clips.Track
	Duration  float64
	Playhead  float64
	Threshold float64
}

// BeginDrag enters Dragging. For a move the grab offset keeps the pointer at
// the same place inside the clip for the whole gesture.
func BeginDrag(c clips.Clip, edge Edge, pointer float64) DragState {
	s := DragState{ClipID: c.ID, Edge: edge}
	if edge == EdgeMove {
		s.GrabOffset = pointer - c.Offset
	}
	return s
}

// EndDrag returns to Idle
func EndDrag(DragState) DragState {
	return DragState{}
}

// NextDrag computes the changes a pointer sample implies for clip c. The
// second result is false when the sample is rejected; the caller keeps the
// gesture alive and leaves the clip untouched.
func NextDrag(s DragState, c clips.Clip, sample PointerSample, env DragEnv) (clips.Changes, bool) {
	if s.Idle() || s.ClipID != c.ID {
		return clips.Changes{}, false
	}

	targets := SnapTargets(env.Clips, c.ID, env.Duration, env.Playhead)

	switch s.Edge {
	case EdgeLeft:
		t, _ := Snap(sample.Time, targets, env.Threshold)
		if t < 0 {
			return clips.Changes{}, false
		}
		start := c.SourceRange.Start + (t - c.Offset)
		if start < 0 || start >= c.SourceRange.End {
			return clips.Changes{}, false
		}
		r := timing.Range{Start: start, End: c.SourceRange.End}
		return clips.Changes{SourceRange: &r, Offset: clips.Ptr(t)}, true

	case EdgeRight:
		t, _ := Snap(sample.Time, targets, env.Threshold)
		end := c.SourceRange.Start + (t - c.Offset)
		if end <= c.SourceRange.Start {
			return clips.Changes{}, false
		}
		if c.SourceDuration != nil && end > *c.SourceDuration {
			end = *c.SourceDuration
		}
		if end <= c.SourceRange.Start {
			return clips.Changes{}, false
		}
		r := timing.Range{Start: c.SourceRange.Start, End: end}
		return clips.Changes{SourceRange: &r}, true

	case EdgeMove:
		offset, _ := SnapSpan(sample.Time-s.GrabOffset, c.Duration(), targets, env.Threshold)
		if offset < 0 {
			offset = 0
		}
		ch := clips.Changes{Offset: clips.Ptr(offset)}
		if track := retarget(c, sample.TrackID, env.Tracks); track != c.TrackID {
			ch.TrackID = clips.Ptr(track)
		}
		return ch, true
	}

	return clips.Changes{}, false
}

// retarget returns the lane a moved clip should land on: the hovered lane
// when it exists and accepts the clip, its current lane otherwise.
func retarget(c clips.Clip, hovered string, tracks []clips.Track) string {
	if hovered == "" {
		return c.TrackID
	}
	for _, t := range tracks {
		if t.ID == hovered && clips.Compatible(c.Kind(), t.Kind) {
			return t.ID
		}
	}
	return c.TrackID
}
