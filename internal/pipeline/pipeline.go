// Package pipeline orchestrates export and import around the timeline.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/kikiluvv/vibecut/internal/clips"
	"github.com/kikiluvv/vibecut/internal/ffmpeg"
	"github.com/kikiluvv/vibecut/internal/jobs"
	"github.com/kikiluvv/vibecut/internal/render"
	"github.com/kikiluvv/vibecut/internal/timeline"
	"github.com/kikiluvv/vibecut/pkg/util"
)

// Pipeline orchestrates exports and media imports
type Pipeline struct {
	logger      zerolog.Logger
	config      *Config
	engine      Engine
	compiler    *render.Compiler
	derivatives *jobs.Derivatives
}

// New creates a new pipeline instance. derivatives may be nil, in which
// case imports skip proxies and thumbnails.
func New(logger zerolog.Logger, cfg *Config, engine Engine, derivatives *jobs.Derivatives) *Pipeline {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.ProbeWorkers <= 0 {
		cfg.ProbeWorkers = 1
	}

	return &Pipeline{
		logger:      logger.With().Str("component", "pipeline").Logger(),
		config:      cfg,
		engine:      engine,
		compiler:    render.NewCompiler(cfg.Compiler),
		derivatives: derivatives,
	}
}

// Compile builds the export graph without running it
func (p *Pipeline) Compile(snapshot *clips.Project, s render.Settings) (*render.Graph, error) {
	return p.compiler.Compile(snapshot, s)
}

// Export renders snapshot to opts.Output. The snapshot is copied first so
// later edits cannot affect a running export.
func (p *Pipeline) Export(ctx context.Context, snapshot *clips.Project, opts ExportOptions) Result {
	start := time.Now()
	if snapshot == nil {
		return Result{Message: "project cannot be nil"}
	}
	if opts.Output == "" {
		return Result{Message: "output path cannot be empty"}
	}
	proj := snapshot.Clone()

	p.logger.Info().
		Str("project", proj.Name).
		Str("output", opts.Output).
		Int("clips", len(proj.Clips)).
		Msg("starting export")

	p.fillAudioFlags(ctx, proj)

	graph, err := p.compiler.Compile(proj, opts.Settings)
	if err != nil {
		p.logger.Error().Err(err).Msg("failed to compile render graph")
		return Result{Message: err.Error()}
	}
	for _, w := range graph.Warnings {
		p.logger.Warn().Str("warning", w).Msg("export approximation")
	}

	if dir := filepath.Dir(opts.Output); dir != "" {
		if err := util.EnsureDir(dir); err != nil {
			return Result{Message: fmt.Sprintf("failed to create output directory: %v", err)}
		}
	}

	err = p.engine.Run(ctx, ffmpeg.RunOptions{
		Args:            graph.Args(opts.Output),
		Duration:        graph.Duration,
		ProgressHandler: opts.Progress,
	})
	if err != nil {
		p.logger.Error().Err(err).Msg("export failed")
		return Result{Message: err.Error(), Warnings: graph.Warnings, Took: time.Since(start)}
	}

	took := time.Since(start)
	p.logger.Info().
		Str("output", opts.Output).
		Dur("took", took).
		Msg("export complete")

	return Result{Success: true, Path: opts.Output, Warnings: graph.Warnings, Took: took}
}

// fillAudioFlags probes video sources whose audio presence is unknown so
// silent files are left out of the mix
func (p *Pipeline) fillAudioFlags(ctx context.Context, proj *clips.Project) {
	var unknown []string
	seen := map[string]bool{}
	for _, c := range proj.Clips {
		v, ok := c.Payload.(*clips.VideoPayload)
		if c.Kind() != clips.KindVideo || c.Source == "" || seen[c.Source] {
			continue
		}
		if ok && v.HasAudio != nil {
			continue
		}
		seen[c.Source] = true
		unknown = append(unknown, c.Source)
	}
	if len(unknown) == 0 {
		return
	}

	infos := p.ProbeAll(ctx, unknown)
	for i := range proj.Clips {
		c := &proj.Clips[i]
		info, ok := infos[c.Source]
		if !ok || c.Kind() != clips.KindVideo {
			continue
		}
		v, _ := c.Payload.(*clips.VideoPayload)
		if v == nil {
			v = &clips.VideoPayload{}
			c.Payload = v
		}
		if v.HasAudio == nil {
			v.HasAudio = clips.Ptr(info.HasAudio)
		}
	}
}

// ProbeAll probes paths concurrently. Files that fail to probe are
// logged and left out of the result.
func (p *Pipeline) ProbeAll(ctx context.Context, paths []string) map[string]*ffmpeg.MediaInfo {
	var mu sync.Mutex
	out := make(map[string]*ffmpeg.MediaInfo, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.config.ProbeWorkers)
	for _, path := range paths {
		path := path
		g.Go(func() error {
			info, err := p.engine.ProbeMedia(gctx, path)
			if err != nil {
				p.logger.Warn().Err(err).Str("path", path).Msg("probe failed")
				return nil
			}
			mu.Lock()
			out[path] = info
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return out
}

var extKinds = map[string]clips.Kind{
	".mp4": clips.KindVideo, ".mov": clips.KindVideo, ".mkv": clips.KindVideo,
	".webm": clips.KindVideo, ".avi": clips.KindVideo, ".m4v": clips.KindVideo,
	".mp3": clips.KindAudio, ".wav": clips.KindAudio, ".m4a": clips.KindAudio,
	".aac": clips.KindAudio, ".ogg": clips.KindAudio, ".flac": clips.KindAudio,
	".png": clips.KindImage, ".jpg": clips.KindImage, ".jpeg": clips.KindImage,
	".gif": clips.KindImage, ".webp": clips.KindImage, ".bmp": clips.KindImage,
}

// KindForPath guesses the clip kind from a file extension
func KindForPath(path string) (clips.Kind, error) {
	k, ok := extKinds[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return "", fmt.Errorf("unsupported media type %q", filepath.Ext(path))
	}
	return k, nil
}

// Imported is a clip that was added to the timeline while its metadata is
// still being discovered
type Imported struct {
	Clip clips.Clip
	done chan struct{}
}

// Wait blocks until background discovery has finished or ctx ends
func (im *Imported) Wait(ctx context.Context) error {
	select {
	case <-im.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Import adds path to the timeline straight away, then in the background
// swaps in a proxy, fills the real duration and audio flag and attaches a
// thumbnail strip. Each discovery is applied outside undo history.
func (p *Pipeline) Import(ctx context.Context, eng *timeline.Engine, path string, opts ImportOptions) (*Imported, error) {
	kind := opts.Kind
	if kind == "" {
		k, err := KindForPath(path)
		if err != nil {
			return nil, err
		}
		kind = k
	}

	c, err := eng.AddClip(kind, path, opts.At, opts.TrackID)
	if err != nil {
		return nil, err
	}

	im := &Imported{Clip: c, done: make(chan struct{})}
	go func() {
		defer close(im.done)
		p.discover(ctx, eng, c)
	}()
	return im, nil
}

func (p *Pipeline) discover(ctx context.Context, eng *timeline.Engine, c clips.Clip) {
	sel := timeline.Selector{ID: c.ID}
	log := p.logger.With().Str("clip", c.ID).Str("source", c.Source).Logger()

	if c.Kind() == clips.KindVideo && p.config.ProxyVideo && p.derivatives != nil {
		if proxy := p.derivatives.Proxy(ctx, c.Source); proxy != c.Source {
			eng.ApplyMetadata(sel, timeline.Metadata{Source: clips.Ptr(proxy)})
			log.Debug().Str("proxy", proxy).Msg("switched to proxy")
		}
	}

	if c.Kind() != clips.KindVideo && c.Kind() != clips.KindAudio {
		return
	}

	info, err := p.engine.ProbeMedia(ctx, c.Source)
	if err != nil {
		log.Warn().Err(err).Msg("metadata discovery failed, keeping provisional duration")
		return
	}
	m := timeline.Metadata{}
	if info.Duration > 0 {
		m.Duration = clips.Ptr(info.Duration)
	}
	if c.Kind() == clips.KindVideo {
		m.HasAudio = clips.Ptr(info.HasAudio)
	}
	eng.ApplyMetadata(sel, m)
	log.Info().Float64("duration", info.Duration).Bool("audio", info.HasAudio).Msg("metadata discovered")

	if c.Kind() == clips.KindVideo && p.derivatives != nil {
		frames := p.derivatives.Thumbnails(ctx, c.Source, info.Duration)
		if len(frames) > 0 {
			eng.ApplyMetadata(sel, timeline.Metadata{Thumbnails: frames})
		}
	}
}
