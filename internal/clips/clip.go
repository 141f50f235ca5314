package clips

import (
	"errors"
	"fmt"

	"github.com/kikiluvv/vibecut/internal/timing"
)

// Kind identifies which payload a clip carries
type Kind string

const (
	KindVideo Kind = "video"
	KindAudio Kind = "audio"
	KindImage Kind = "image"
	KindText  Kind = "text"
)

// Valid reports whether k is a known clip kind
func (k Kind) Valid() bool {
	switch k {
	case KindVideo, KindAudio, KindImage, KindText:
		return true
	}
	return false
}

// Visual reports whether clips of this kind composite as a picture layer
func (k Kind) Visual() bool {
	return k == KindVideo || k == KindImage
}

const (
	// DefaultLength is the provisional length given to a new clip before its
	// source metadata is known.
	DefaultLength = 5.0

	// SplitDeadZone is the minimum distance a split point must keep from
	// either edge of the source range.
	SplitDeadZone = 0.1
)

var (
	ErrClipNotFound  = errors.New("clip not found")
	ErrTrackNotFound = errors.New("track not found")
	ErrInvalidRange  = errors.New("invalid source range")
	ErrKindMismatch  = errors.New("payload kind does not match clip kind")
	ErrIncompatible  = errors.New("clip kind not allowed on track")
)

// Clip is a placed segment of media or text on the timeline
type Clip struct {
	ID             string
	Source         string
	SourceRange    timing.Range
	SourceDuration *float64
	Offset         float64
	TrackID        string
	Style          Style
	Filters        Filters
	Effect         string
	Keyframes      Keyframes
	Transition     *Transition
	Animation      *Animation
	Payload        Payload
}

// Transition describes an authored transition into the clip
type Transition struct {
	Type     string  `json:"type"`
	Duration float64 `json:"duration"`
}

// Animation describes an authored entrance animation
type Animation struct {
	Type     string  `json:"type"`
	Duration float64 `json:"duration"`
}

// Kind returns the kind of the clip's payload
func (c Clip) Kind() Kind {
	if c.Payload == nil {
		return KindVideo
	}
	return c.Payload.Kind()
}

// Duration is the effective on-timeline duration
func (c Clip) Duration() float64 {
	return c.SourceRange.Duration()
}

// End returns the timeline time at which the clip stops being active
func (c Clip) End() float64 {
	return c.Offset + c.Duration()
}

// Span returns the clip's footprint on the timeline
func (c Clip) Span() timing.Range {
	return timing.Range{Start: c.Offset, End: c.End()}
}

// Volume returns the clip's gain, 1 when unset or when the clip is silent.
func (c Clip) Volume() float64 {
	switch p := c.Payload.(type) {
	case *VideoPayload:
		if p.Volume != nil {
			return *p.Volume
		}
	case *AudioPayload:
		if p.Volume != nil {
			return *p.Volume
		}
	}
	return 1
}

// Audible reports whether the clip contributes an audio stream
func (c Clip) Audible() bool {
	switch p := c.Payload.(type) {
	case *VideoPayload:
		return p.HasAudio == nil || *p.HasAudio
	case *AudioPayload:
		return true
	}
	return false
}

// Content returns the text payload, empty for non-text clips
func (c Clip) Content() string {
	if p, ok := c.Payload.(*TextPayload); ok {
		return p.Content
	}
	return ""
}

// Thumbnails returns the preview strip of a video clip
func (c Clip) Thumbnails() []string {
	if p, ok := c.Payload.(*VideoPayload); ok {
		return p.Thumbnails
	}
	return nil
}

// Clone returns a deep copy that shares no mutable state with c
func (c Clip) Clone() Clip {
	out := c
	if c.SourceDuration != nil {
		out.SourceDuration = Ptr(*c.SourceDuration)
	}
	out.Style = c.Style.Clone()
	out.Filters = c.Filters.Clone()
	out.Keyframes = c.Keyframes.Clone()
	if c.Transition != nil {
		t := *c.Transition
		out.Transition = &t
	}
	if c.Animation != nil {
		a := *c.Animation
		out.Animation = &a
	}
	if c.Payload != nil {
		out.Payload = c.Payload.clone()
	}
	return out
}

// Validate checks the clip's structural invariants
func (c Clip) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("clip has no id")
	}
	if !c.Kind().Valid() {
		return fmt.Errorf("clip %s: unknown kind %q", c.ID, c.Kind())
	}
	if !c.SourceRange.Valid() {
		return fmt.Errorf("clip %s: %w [%v, %v)", c.ID, ErrInvalidRange, c.SourceRange.Start, c.SourceRange.End)
	}
	if c.SourceDuration != nil && c.SourceRange.End > *c.SourceDuration+timing.Epsilon {
		return fmt.Errorf("clip %s: %w: end %v past source duration %v", c.ID, ErrInvalidRange, c.SourceRange.End, *c.SourceDuration)
	}
	if c.Offset < 0 {
		return fmt.Errorf("clip %s: negative timeline offset %v", c.ID, c.Offset)
	}
	return nil
}

// NewClip builds a clip with the defaults for its kind and the provisional
// [0, DefaultLength) range.
func NewClip(id string, kind Kind, source string, offset float64, trackID string) Clip {
	c := Clip{
		ID:          id,
		Source:      source,
		SourceRange: timing.Range{Start: 0, End: DefaultLength},
		Offset:      offset,
		TrackID:     trackID,
		Style:       DefaultStyle(kind),
	}

	switch kind {
	case KindAudio:
		c.Payload = &AudioPayload{}
		c.SourceDuration = Ptr(DefaultLength)
	case KindImage:
		c.Payload = &ImagePayload{}
	case KindText:
		c.Payload = &TextPayload{Content: DefaultText}
	default:
		c.Payload = &VideoPayload{}
		c.SourceDuration = Ptr(DefaultLength)
	}

	return c
}

// SplitAt cuts the clip at source time m. It returns false when m falls in the
// dead zone around either edge of the source range.
func (c Clip) SplitAt(m float64, secondID string) (Clip, Clip, bool) {
	if m <= c.SourceRange.Start+SplitDeadZone || m >= c.SourceRange.End-SplitDeadZone {
		return Clip{}, Clip{}, false
	}

	first := c.Clone()
	first.SourceRange.End = m

	second := c.Clone()
	second.ID = secondID
	second.SourceRange.Start = m
	second.Offset = c.Offset + (m - c.SourceRange.Start)

	return first, second, true
}

// Changes is a partial update; nil fields are left untouched.
type Changes struct {
	Source         *string
	SourceRange    *timing.Range
	SourceDuration *float64
	Offset         *float64
	TrackID        *string
	Style          *Style
	Filters        *Filters
	Effect         *string
	Keyframes      *Keyframes
	Transition     *Transition
	Animation      *Animation
	Payload        Payload
}

// Empty reports whether the change set would modify nothing
func (ch Changes) Empty() bool {
	return ch.Source == nil && ch.SourceRange == nil && ch.SourceDuration == nil &&
		ch.Offset == nil && ch.TrackID == nil && ch.Style == nil && ch.Filters == nil &&
		ch.Effect == nil && ch.Keyframes == nil && ch.Transition == nil &&
		ch.Animation == nil && ch.Payload == nil
}

// Apply shallow-merges ch onto a copy of c
func (c Clip) Apply(ch Changes) (Clip, error) {
	out := c.Clone()

	if ch.Payload != nil {
		if ch.Payload.Kind() != c.Kind() {
			return c, fmt.Errorf("clip %s: %w", c.ID, ErrKindMismatch)
		}
		out.Payload = ch.Payload.clone()
	}
	if ch.Source != nil {
		out.Source = *ch.Source
	}
	if ch.SourceRange != nil {
		out.SourceRange = *ch.SourceRange
	}
	if ch.SourceDuration != nil {
		out.SourceDuration = Ptr(*ch.SourceDuration)
	}
	if ch.Offset != nil {
		out.Offset = *ch.Offset
	}
	if ch.TrackID != nil {
		out.TrackID = *ch.TrackID
	}
	if ch.Style != nil {
		out.Style = ch.Style.Clone()
	}
	if ch.Filters != nil {
		out.Filters = ch.Filters.Clone()
	}
	if ch.Effect != nil {
		out.Effect = *ch.Effect
	}
	if ch.Keyframes != nil {
		out.Keyframes = ch.Keyframes.Clone()
	}
	if ch.Transition != nil {
		t := *ch.Transition
		out.Transition = &t
	}
	if ch.Animation != nil {
		a := *ch.Animation
		out.Animation = &a
	}

	return out, nil
}

// Ptr returns a pointer to v
func Ptr[T any](v T) *T {
	return &v
}
