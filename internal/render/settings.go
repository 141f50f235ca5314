package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Resolution presets offered by the export dialog
var Presets = map[string]string{
	"720p":  "1280x720",
	"1080p": "1920x1080",
	"4k":    "3840x2160",
}

// Settings are the user-facing export options
type Settings struct {
	Resolution string  `json:"resolution" yaml:"resolution" validate:"required"`
	Format     string  `json:"format" yaml:"format" validate:"required,oneof=mp4 webm mov"`
	FrameRate  float64 `json:"frameRate" yaml:"frame_rate" validate:"gt=0,lte=240"`
}

// DefaultSettings is 1080p H.264 at 30 fps
func DefaultSettings() Settings {
	return Settings{
		Resolution: "1920x1080",
		Format:     "mp4",
		FrameRate:  30,
	}
}

// WithDefaults fills zero fields from DefaultSettings
func (s Settings) WithDefaults() Settings {
	def := DefaultSettings()
	if s.Resolution == "" {
		s.Resolution = def.Resolution
	}
	if s.Format == "" {
		s.Format = def.Format
	}
	if s.FrameRate == 0 {
		s.FrameRate = def.FrameRate
	}
	return s
}

// Validate checks the struct tags and that the resolution parses
func (s Settings) Validate() error {
	if err := validate.Struct(s); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			return fmt.Errorf("invalid export settings: %s", strings.Join(FormatValidationErrors(verrs), "; "))
		}
		return err
	}
	if _, _, err := ParseResolution(s.Resolution); err != nil {
		return err
	}
	return nil
}

// Size returns the canvas size in "WxH" form
func (s Settings) Size() (string, error) {
	w, h, err := ParseResolution(s.Resolution)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%dx%d", w, h), nil
}

// ParseResolution accepts "WxH" or a preset name such as "1080p"
func ParseResolution(s string) (int, int, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if preset, ok := Presets[s]; ok {
		s = preset
	}

	parts := strings.Split(s, "x")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid resolution %q", s)
	}
	w, err1 := strconv.Atoi(parts[0])
	h, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("invalid resolution %q", s)
	}
	return w, h, nil
}

// FormatValidationErrors turns validator errors into readable lines
func FormatValidationErrors(errs validator.ValidationErrors) []string {
	out := make([]string, 0, len(errs))
	for _, err := range errs {
		line := fmt.Sprintf("field '%s' failed on the '%s' tag", err.Field(), err.Tag())
		if err.Param() != "" {
			line = fmt.Sprintf("%s (value: %s)", line, err.Param())
		}
		out = append(out, line)
	}
	return out
}
