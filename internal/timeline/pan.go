package timeline

import (
	"math"

	"github.com/kikiluvv/vibecut/internal/timing"
)

// PanState tracks a pointer-down on empty timeline space
type PanState struct {
	Active      bool
	StartX      float64
	StartScroll float64
	MaxMove     float64
}

// PanResult is the outcome of releasing a pan gesture
type PanResult struct {
	Seek       bool
	SeekTime   float64
	ScrollLeft float64
}

// BeginPan starts a pan capture at pointer x
func BeginPan(x float64, v Viewport) PanState {
	return PanState{Active: true, StartX: x, StartScroll: v.ScrollLeft}
}

// PanTo returns the updated pan state and the scroll offset for pointer x
func PanTo(s PanState, x float64, v Viewport) (PanState, float64) {
	if !s.Active {
		return s, v.ScrollLeft
	}
	dx := x - s.StartX
	s.MaxMove = math.Max(s.MaxMove, math.Abs(dx))

	maxScroll := math.Max(0, v.ContentWidth()-v.Width)
	return s, timing.Clamp(s.StartScroll-dx, 0, maxScroll)
}

// EndPan resolves the gesture. A release within PanSeekThresholdPx of the
// press point is a click and seeks to the pressed position; anything else
// keeps the scroll offset set while dragging.
func EndPan(s PanState, x float64, v Viewport) PanResult {
	if !s.Active {
		return PanResult{ScrollLeft: v.ScrollLeft}
	}

	if math.Abs(x-s.StartX) < PanSeekThresholdPx {
		w := v.ContentWidth()
		pct := 0.0
		if w > 0 {
			pct = timing.Clamp((x+v.ScrollLeft)/w, 0, 1)
		}
		return PanResult{Seek: true, SeekTime: pct * v.Duration, ScrollLeft: v.ScrollLeft}
	}

	return PanResult{ScrollLeft: v.ScrollLeft}
}
