package timeline

import (
	"math"

	"github.com/kikiluvv/vibecut/internal/clips"
)

// SnapTargets collects {0, duration, playhead} and the edges of every clip
// except the one identified by exclude.
func SnapTargets(all []clips.Clip, exclude string, duration, playhead float64) []float64 {
	targets := []float64{0, duration, playhead}
	for _, c := range all {
		if c.ID == exclude {
			continue
		}
		targets = append(targets, c.Offset, c.End())
	}
	return targets
}

// Snap moves t onto the nearest target strictly closer than threshold.
// The second result reports whether a snap happened.
func Snap(t float64, targets []float64, threshold float64) (float64, bool) {
	best := math.Inf(1)
	snapped := t
	found := false
	for _, p := range targets {
		d := math.Abs(t - p)
		if d < threshold && d < best {
			best = d
			snapped = p
			found = true
		}
	}
	return snapped, found
}

// SnapSpan snaps a span of the given length by testing its leading and
// trailing edges independently; the smaller correction wins. It returns the
// corrected start.
func SnapSpan(start, length float64, targets []float64, threshold float64) (float64, bool) {
	best := math.Inf(1)
	out := start
	found := false
	for _, p := range targets {
		if d := math.Abs(start - p); d < threshold && d < best {
			best = d
			out = p
			found = true
		}
		if d := math.Abs(start + length - p); d < threshold && d < best {
			best = d
			out = p - length
			found = true
		}
	}
	return out, found
}
