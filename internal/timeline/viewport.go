package timeline

import "github.com/kikiluvv/vibecut/internal/timing"

const (
	// SnapThresholdPx is the screen-space snapping tolerance
	SnapThresholdPx = 10.0

	// PanSeekThresholdPx is the displacement under which a pan is treated as a click
	PanSeekThresholdPx = 5.0

	MinZoom = 0.1
	MaxZoom = 10.0
)

// Viewport maps timeline pixels to seconds. Width is the visible lane width
// at zoom 1; the scrollable content is Width*Zoom pixels wide and spans
// Duration seconds.
type Viewport struct {
	Width      float64
	Zoom       float64
	ScrollLeft float64
	Duration   float64
}

// ContentWidth is the full scrollable width in pixels
func (v Viewport) ContentWidth() float64 {
	zoom := v.Zoom
	if zoom == 0 {
		zoom = 1
	}
	return v.Width * timing.Clamp(zoom, MinZoom, MaxZoom)
}

// TimeAt converts a pointer x (relative to the visible lane) into seconds
func (v Viewport) TimeAt(x float64) float64 {
	w := v.ContentWidth()
	if w <= 0 {
		return 0
	}
	return (x + v.ScrollLeft) / w * v.Duration
}

// PixelAt converts seconds into a content pixel position
func (v Viewport) PixelAt(t float64) float64 {
	if v.Duration <= 0 {
		return 0
	}
	return t / v.Duration * v.ContentWidth()
}

// SnapThreshold returns SnapThresholdPx expressed in seconds at the current zoom
func (v Viewport) SnapThreshold() float64 {
	w := v.ContentWidth()
	if w <= 0 {
		return 0
	}
	return SnapThresholdPx / w * v.Duration
}

// WithZoom returns the viewport with zoom clamped to [MinZoom, MaxZoom]
func (v Viewport) WithZoom(z float64) Viewport {
	v.Zoom = timing.Clamp(z, MinZoom, MaxZoom)
	return v
}

// Wheel applies a wheel delta the way the timeline does: scrolling up zooms in.
func (v Viewport) Wheel(deltaY float64) Viewport {
	zoom := v.Zoom
	if zoom == 0 {
		zoom = 1
	}
	return v.WithZoom(zoom - deltaY*0.001)
}
