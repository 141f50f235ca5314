// Package timing holds the time-range and interpolation helpers shared by
// the composition model, the evaluator and the render compiler
package timing

import (
	"math"
	"strconv"
	"strings"
)

// Epsilon absorbs float drift when comparing seconds
const Epsilon = 1e-9

// Range is a half-open window [Start, End) in seconds
type Range struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Duration returns End - Start
func (r Range) Duration() float64 {
	return r.End - r.Start
}

// Contains reports whether t lies in [Start, End)
func (r Range) Contains(t float64) bool {
	return t >= r.Start && t < r.End
}

// Valid reports whether the range is non-negative and non-empty
func (r Range) Valid() bool {
	return r.Start >= 0 && r.End > r.Start
}

// Shift moves both ends by d
func (r Range) Shift(d float64) Range {
	return Range{Start: r.Start + d, End: r.End + d}
}

// Lerp linearly interpolates between a and b
func Lerp(a, b, f float64) float64 {
	return a + (b-a)*f
}

// Clamp restricts v to [lo, hi]
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Within reports whether |a-b| is strictly below tol
func Within(a, b, tol float64) bool {
	return math.Abs(a-b) < tol
}

// FormatSeconds renders v with the shortest exact decimal form, so the same
// composition always yields the same filter graph text
func FormatSeconds(v float64) string {
	if v == 0 {
		return "0"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Millis converts seconds to whole milliseconds, rounding half away from zero
func Millis(v float64) int64 {
	return int64(math.Round(v * 1000))
}

// ParseLength reads the numeric prefix of a CSS-like length ("12px", "50%",
// "1.5"). The second result is false when no number could be read
func ParseLength(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) {
		c := s[end]
		if (c >= '0' && c <= '9') || c == '.' || ((c == '-' || c == '+') && end == 0) {
			end++
			continue
		}
		break
	}
	if end == 0 {
		return 0, false
	}
	v, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
