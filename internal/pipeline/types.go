package pipeline

import (
	"context"
	"time"

	"github.com/kikiluvv/vibecut/internal/clips"
	"github.com/kikiluvv/vibecut/internal/ffmpeg"
	"github.com/kikiluvv/vibecut/internal/render"
)

// Engine runs and probes media. *ffmpeg.Executor satisfies it.
type Engine interface {
	Run(ctx context.Context, opts ffmpeg.RunOptions) error
	ProbeMedia(ctx context.Context, path string) (*ffmpeg.MediaInfo, error)
}

// Result is the outcome of an export. Failures carry a readable message
// instead of an error.
type Result struct {
	Success  bool
	Path     string
	Message  string
	Warnings []string
	Took     time.Duration
}

// ExportOptions configures one export
type ExportOptions struct {
	Settings render.Settings
	Output   string
	Progress ffmpeg.ProgressFunc
}

// ImportOptions says where an imported file lands. A zero Kind is
// detected from the file extension.
type ImportOptions struct {
	Kind    clips.Kind
	At      *float64
	TrackID string
}

// Config holds pipeline-specific configuration
type Config struct {
	// ProbeWorkers bounds concurrent ffprobe calls
	ProbeWorkers int
	Compiler     render.Options
	// ProxyVideo enables proxy generation for imported video
	ProxyVideo bool
}

// DefaultConfig probes four files at a time and makes proxies
func DefaultConfig() *Config {
	return &Config{
		ProbeWorkers: 4,
		ProxyVideo:   true,
	}
}
