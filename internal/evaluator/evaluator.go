// Package evaluator resolves what a composition shows and plays at a given
// timeline time. The layer order it produces is the order the render
// compiler composites in, so preview and export agree.
package evaluator

import (
	"sort"

	"github.com/kikiluvv/vibecut/internal/clips"
	"github.com/kikiluvv/vibecut/internal/timing"
)

// IsActive reports whether c covers timeline time t. The interval is
// half-open so adjacent clips hand off without overlap.
func IsActive(c clips.Clip, t float64) bool {
	return c.Span().Contains(t)
}

// SourceTime maps timeline time t into c's source media. Only meaningful
// when IsActive(c, t).
func SourceTime(c clips.Clip, t float64) float64 {
	return t - c.Offset + c.SourceRange.Start
}

// Interpolate returns the value of prop at timeline time t. Keyframe times
// are relative to the clip's offset. Values clamp to the first and last
// keyframe; between two keyframes they are linearly interpolated.
func Interpolate(c clips.Clip, prop string, t, fallback float64) float64 {
	kfs := c.Keyframes.Sorted(prop)
	if len(kfs) == 0 {
		return fallback
	}
	return Sample(kfs, t-c.Offset)
}

// Sample evaluates sorted keyframes at in-clip time tau
func Sample(kfs []clips.Keyframe, tau float64) float64 {
	first, last := kfs[0], kfs[len(kfs)-1]
	if tau <= first.Time {
		return first.Value
	}
	if tau >= last.Time {
		return last.Value
	}

	for i := 0; i < len(kfs)-1; i++ {
		a, b := kfs[i], kfs[i+1]
		if tau < a.Time || tau > b.Time {
			continue
		}
		if tau == b.Time {
			return b.Value
		}
		span := b.Time - a.Time
		if span <= 0 {
			return b.Value
		}
		return timing.Lerp(a.Value, b.Value, (tau-a.Time)/span)
	}
	return last.Value
}

// Layer is a picture layer resolved at one instant
type Layer struct {
	ClipID     string
	Kind       clips.Kind
	Source     string
	TrackID    string
	TrackIndex int
	SourceTime float64
	Opacity    float64
	Scale      float64
	X          float64
	Y          float64
	Filter     string
	Style      clips.Style
}

// TextLayer is a text overlay resolved at one instant
type TextLayer struct {
	ClipID  string
	Content string
	Opacity float64
	Scale   float64
	X       float64
	Y       float64
	Filter  string
	Style   clips.Style
}

// Voice is an audio stream playing at one instant
type Voice struct {
	ClipID     string
	Source     string
	SourceTime float64
	Volume     float64
}

// Frame is everything the composition shows and plays at Time
type Frame struct {
	Time   float64
	Layers []Layer
	Text   []TextLayer
	Audio  []Voice
}

// Top returns the uppermost picture layer
func (f Frame) Top() (Layer, bool) {
	if len(f.Layers) == 0 {
		return Layer{}, false
	}
	return f.Layers[len(f.Layers)-1], true
}

// LayerOrder sorts picture clips into compositing order, bottom first:
// higher track index first, then ascending offset. Clips on unknown tracks
// sort as index -1, i.e. on top.
func LayerOrder(p *clips.Project, list []clips.Clip) []clips.Clip {
	out := append([]clips.Clip(nil), list...)
	index := make(map[string]int, len(p.Tracks))
	for i, t := range p.OrderedTracks() {
		index[t.ID] = i
	}
	trackIndex := func(id string) int {
		if i, ok := index[id]; ok {
			return i
		}
		return -1
	}

	sort.SliceStable(out, func(i, j int) bool {
		ti, tj := trackIndex(out[i].TrackID), trackIndex(out[j].TrackID)
		if ti != tj {
			return ti > tj
		}
		return out[i].Offset < out[j].Offset
	})
	return out
}

// Evaluate samples the project at timeline time t
func Evaluate(p *clips.Project, t float64) Frame {
	f := Frame{Time: t}

	var visual []clips.Clip
	for _, c := range p.Clips {
		if !IsActive(c, t) {
			continue
		}
		switch {
		case c.Kind().Visual():
			visual = append(visual, c)
		case c.Kind() == clips.KindText:
			f.Text = append(f.Text, TextLayer{
				ClipID:  c.ID,
				Content: c.Content(),
				Opacity: Interpolate(c, clips.PropOpacity, t, c.Style.OpacityOr(1)),
				Scale:   Interpolate(c, clips.PropScale, t, c.Style.ScaleOr(1)),
				X:       Interpolate(c, clips.PropX, t, 0),
				Y:       Interpolate(c, clips.PropY, t, 0),
				Filter:  c.Filters.Expression(c.Effect),
				Style:   c.Style,
			})
		}
		if c.Audible() {
			f.Audio = append(f.Audio, Voice{
				ClipID:     c.ID,
				Source:     c.Source,
				SourceTime: SourceTime(c, t),
				Volume:     c.Volume(),
			})
		}
	}

	for _, c := range LayerOrder(p, visual) {
		f.Layers = append(f.Layers, Layer{
			ClipID:     c.ID,
			Kind:       c.Kind(),
			Source:     c.Source,
			TrackID:    c.TrackID,
			TrackIndex: p.TrackIndex(c.TrackID),
			SourceTime: SourceTime(c, t),
			Opacity:    Interpolate(c, clips.PropOpacity, t, c.Style.OpacityOr(1)),
			Scale:      Interpolate(c, clips.PropScale, t, c.Style.ScaleOr(1)),
			X:          Interpolate(c, clips.PropX, t, 0),
			Y:          Interpolate(c, clips.PropY, t, 0),
			Filter:     c.Filters.Expression(c.Effect),
			Style:      c.Style,
		})
	}

	return f
}
