package clips

import "sort"

// Animatable property names
const (
	PropOpacity = "opacity"
	PropScale   = "scale"
	PropX       = "x"
	PropY       = "y"
)

// Keyframe is a value sample at a time relative to the clip's timeline offset
type Keyframe struct {
	Time  float64 `json:"time"`
	Value float64 `json:"value"`
}

// Keyframes maps a property name to its samples
type Keyframes map[string][]Keyframe

// Sorted returns the samples of prop ordered by time. The stored list is not
// modified.
func (k Keyframes) Sorted(prop string) []Keyframe {
	list := k[prop]
	if len(list) == 0 {
		return nil
	}
	out := append([]Keyframe(nil), list...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Time < out[j].Time
	})
	return out
}

// Has reports whether prop has at least one sample
func (k Keyframes) Has(prop string) bool {
	return len(k[prop]) > 0
}

// With returns a copy where prop holds list
func (k Keyframes) With(prop string, list []Keyframe) Keyframes {
	out := k.Clone()
	if out == nil {
		out = Keyframes{}
	}
	out[prop] = append([]Keyframe(nil), list...)
	return out
}

// Clone deep-copies the map
func (k Keyframes) Clone() Keyframes {
	if k == nil {
		return nil
	}
	out := make(Keyframes, len(k))
	for prop, list := range k {
		out[prop] = append([]Keyframe(nil), list...)
	}
	return out
}
