package render

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/kikiluvv/vibecut/internal/clips"
	"github.com/kikiluvv/vibecut/internal/timing"
)

var cssFunc = regexp.MustCompile(`([a-zA-Z-]+)\(([^)]*)\)`)

// ParseFilterExpression reads a legacy "name(value) name(value)" effect string
func ParseFilterExpression(expr string) clips.Filters {
	var out clips.Filters
	for _, m := range cssFunc.FindAllStringSubmatch(expr, -1) {
		out = out.Set(strings.ToLower(m[1]), strings.TrimSpace(m[2]))
	}
	return out
}

// amount reads "50%" as 0.5 and a bare number as itself
func amount(v string) (float64, bool) {
	n, ok := timing.ParseLength(v)
	if !ok {
		return 0, false
	}
	if strings.HasSuffix(strings.TrimSpace(v), "%") {
		n /= 100
	}
	return n, true
}

// sepia matrix rows, blended with identity by the filter amount
var sepiaMatrix = [3][3]float64{
	{0.393, 0.769, 0.189},
	{0.349, 0.686, 0.168},
	{0.272, 0.534, 0.131},
}

// translateFilters converts CSS filter functions into engine filters.
// Neutral values produce nothing. The opacity() function is returned
// separately so it can fold into the layer's alpha.
func translateFilters(fs clips.Filters) (out []string, opacity float64, warnings []string) {
	opacity = 1
	for _, f := range fs {
		name := strings.ToLower(f.Name)

		if name == "blur" || name == "hue-rotate" {
			v, ok := timing.ParseLength(f.Value)
			if !ok {
				warnings = append(warnings, fmt.Sprintf("filter %s: cannot read %q", name, f.Value))
				continue
			}
			if v == 0 {
				continue
			}
			if name == "blur" {
				out = append(out, "gblur=sigma="+num(v))
			} else {
				out = append(out, "hue=h="+num(v))
			}
			continue
		}

		a, ok := amount(f.Value)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("filter %s: cannot read %q", name, f.Value))
			continue
		}

		switch name {
		case "grayscale":
			a = timing.Clamp(a, 0, 1)
			if a > 0 {
				out = append(out, "hue=s="+num(1-a))
			}
		case "sepia":
			a = timing.Clamp(a, 0, 1)
			if a > 0 {
				out = append(out, sepia(a))
			}
		case "invert":
			a = timing.Clamp(a, 0, 1)
			switch {
			case a >= 1:
				out = append(out, "negate")
			case a > 0:
				e := fmt.Sprintf("'val+%s*(maxval-2*val)'", num(a))
				out = append(out, fmt.Sprintf("lutrgb=r=%s:g=%s:b=%s", e, e, e))
			}
		case "contrast":
			if a != 1 {
				out = append(out, "eq=contrast="+num(a))
			}
		case "saturate":
			if a != 1 {
				out = append(out, "eq=saturation="+num(a))
			}
		case "brightness":
			if a != 1 {
				out = append(out, fmt.Sprintf("colorchannelmixer=rr=%s:gg=%s:bb=%s", num(a), num(a), num(a)))
			}
		case "opacity":
			opacity *= timing.Clamp(a, 0, 1)
		default:
			warnings = append(warnings, fmt.Sprintf("filter %s has no export equivalent", name))
		}
	}
	return out, opacity, warnings
}

func sepia(a float64) string {
	names := [3][3]string{
		{"rr", "rg", "rb"},
		{"gr", "gg", "gb"},
		{"br", "bg", "bb"},
	}
	parts := make([]string, 0, 9)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			id := 0.0
			if i == j {
				id = 1
			}
			v := timing.Lerp(id, sepiaMatrix[i][j], a)
			parts = append(parts, fmt.Sprintf("%s=%.4f", names[i][j], v))
		}
	}
	return "colorchannelmixer=" + strings.Join(parts, ":")
}
