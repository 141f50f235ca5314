package clips

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Style holds the CSS-like positional and visual properties of a clip.
// Lengths are kept as strings ("50%", "12px") the way they are authored.
type Style struct {
	Left       string     `json:"left,omitempty"`
	Top        string     `json:"top,omitempty"`
	Width      string     `json:"width,omitempty"`
	Height     string     `json:"height,omitempty"`
	Transform  string     `json:"transform,omitempty"`
	FontSize   string     `json:"fontSize,omitempty"`
	FontFamily string     `json:"fontFamily,omitempty"`
	FontWeight string     `json:"fontWeight,omitempty"`
	Color      string     `json:"color,omitempty"`
	TextShadow string     `json:"textShadow,omitempty"`
	Opacity    *FlexFloat `json:"opacity,omitempty"`
	Scale      *FlexFloat `json:"scale,omitempty"`
	Rotation   *FlexFloat `json:"rotation,omitempty"`
}

// DefaultStyle returns the initial style for a clip kind
func DefaultStyle(k Kind) Style {
	switch k {
	case KindVideo:
		return Style{
			Left:      "50%",
			Top:       "50%",
			Width:     "100%",
			Height:    "100%",
			Transform: "translate(-50%, -50%)",
		}
	case KindImage:
		return Style{
			Left:    "50%",
			Top:     "50%",
			Scale:   Flex(1),
			Opacity: Flex(1),
		}
	case KindText:
		return Style{
			Left:       "50%",
			Top:        "50%",
			FontSize:   "40px",
			Color:      "white",
			FontWeight: "bold",
			TextShadow: "2px 2px 4px black",
		}
	}
	return Style{}
}

// Clone returns a copy that shares no pointers with s
func (s Style) Clone() Style {
	out := s
	if s.Opacity != nil {
		out.Opacity = Flex(float64(*s.Opacity))
	}
	if s.Scale != nil {
		out.Scale = Flex(float64(*s.Scale))
	}
	if s.Rotation != nil {
		out.Rotation = Flex(float64(*s.Rotation))
	}
	return out
}

// OpacityOr returns the authored opacity or def
func (s Style) OpacityOr(def float64) float64 {
	if s.Opacity == nil {
		return def
	}
	return float64(*s.Opacity)
}

// ScaleOr returns the authored scale or def. A zero scale counts as unset.
func (s Style) ScaleOr(def float64) float64 {
	if s.Scale == nil || *s.Scale == 0 {
		return def
	}
	return float64(*s.Scale)
}

// FlexFloat is a number that may be written in JSON either as a number or
// as a numeric string such as "0.5".
type FlexFloat float64

// Flex returns a pointer to v as a FlexFloat
func Flex(v float64) *FlexFloat {
	f := FlexFloat(v)
	return &f
}

func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexFloat(n)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("expected number or numeric string, got %s", string(data))
	}
	s = strings.TrimSpace(s)
	if s == "" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid numeric string %q: %w", s, err)
	}
	*f = FlexFloat(n)
	return nil
}
