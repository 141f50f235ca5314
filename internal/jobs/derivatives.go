package jobs

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"

	"github.com/kikiluvv/vibecut/internal/ffmpeg"
	"github.com/kikiluvv/vibecut/pkg/util"
)

// Runner executes one engine invocation
type Runner interface {
	Run(ctx context.Context, opts ffmpeg.RunOptions) error
}

// Config controls where derivatives go and how they are encoded
type Config struct {
	ProxyDir     string
	ThumbnailDir string

	ProxyHeight int
	ProxyCRF    int
	ProxyPreset string

	ThumbnailHeight int
	// TargetFrames is how many thumbnails a clip should get, before the
	// rate is clamped to [MinRate, MaxRate].
	TargetFrames float64
	MinRate      float64
	MaxRate      float64
	// More than ReuseThreshold existing frames means the strip is done
	ReuseThreshold int
}

// DefaultConfig places derivatives under dataDir
func DefaultConfig(dataDir string) Config {
	return Config{
		ProxyDir:        filepath.Join(dataDir, "proxies"),
		ThumbnailDir:    filepath.Join(dataDir, "thumbnails"),
		ProxyHeight:     720,
		ProxyCRF:        28,
		ProxyPreset:     "ultrafast",
		ThumbnailHeight: 64,
		TargetFrames:    20,
		MinRate:         0.5,
		MaxRate:         2,
		ReuseThreshold:  5,
	}
}

// ThreadBudget returns how many encoder threads background jobs may use:
// half the logical cores, so preview playback keeps the rest.
func ThreadBudget() int {
	n, err := cpu.Counts(true)
	if err != nil || n < 2 {
		return 1
	}
	return n / 2
}

// Derivatives generates proxies and thumbnail strips through a Queue
type Derivatives struct {
	logger zerolog.Logger
	runner Runner
	queue  *Queue
	cfg    Config
}

// NewDerivatives creates a generator that submits its work to queue
func NewDerivatives(logger zerolog.Logger, runner Runner, queue *Queue, cfg Config) *Derivatives {
	return &Derivatives{
		logger: logger.With().Str("component", "derivatives").Logger(),
		runner: runner,
		queue:  queue,
		cfg:    cfg,
	}
}

// ProxyPath is where the proxy for src lives
func (d *Derivatives) ProxyPath(src string) string {
	return filepath.Join(d.cfg.ProxyDir, "proxy_"+filepath.Base(src))
}

// Proxy returns a lightweight copy of src for preview. It never fails: any
// error, including ctx ending, yields src itself.
func (d *Derivatives) Proxy(ctx context.Context, src string) string {
	path, err := d.ProxyAsync(src).Wait(ctx)
	if err != nil {
		return src
	}
	return path
}

// ProxyAsync queues a proxy job and returns its handle
func (d *Derivatives) ProxyAsync(src string) *Pending[string] {
	if existing, ok := d.existingProxy(src); ok {
		return Resolved(existing)
	}
	p, err := Enqueue(d.queue, "proxy "+filepath.Base(src), func(ctx context.Context) string {
		return d.makeProxy(ctx, src)
	})
	if err != nil {
		d.logger.Warn().Err(err).Str("src", src).Msg("proxy not queued, using original")
		return Resolved(src)
	}
	return p
}

func (d *Derivatives) existingProxy(src string) (string, bool) {
	out := d.ProxyPath(src)
	st, err := os.Stat(out)
	if err != nil {
		return "", false
	}
	if st.Size() > 0 {
		return out, true
	}
	d.logger.Info().Str("proxy", out).Msg("found empty proxy, regenerating")
	if err := os.Remove(out); err != nil {
		d.logger.Warn().Err(err).Str("proxy", out).Msg("failed to remove empty proxy")
	}
	return "", false
}

func (d *Derivatives) makeProxy(ctx context.Context, src string) string {
	// an earlier job may have produced it while this one waited
	if existing, ok := d.existingProxy(src); ok {
		return existing
	}
	if err := util.EnsureDir(d.cfg.ProxyDir); err != nil {
		d.logger.Error().Err(err).Msg("failed to create proxy directory")
		return src
	}

	out := d.ProxyPath(src)
	err := d.runner.Run(ctx, ffmpeg.RunOptions{Args: d.ProxyArgs(src, out)})
	if err != nil {
		d.logger.Error().Err(err).Str("src", src).Msg("proxy generation failed, using original")
		util.CleanupFiles(out)
		return src
	}

	d.logger.Info().Str("src", src).Str("proxy", out).Msg("proxy ready")
	return out
}

// ProxyArgs returns the transcode arguments for a proxy of src
func (d *Derivatives) ProxyArgs(src, out string) []string {
	vf := ffmpeg.NewFilterBuilder().ScaleHeight(d.cfg.ProxyHeight).Build()
	return []string{
		"-i", src,
		"-vf", vf,
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-preset", d.cfg.ProxyPreset,
		"-crf", strconv.Itoa(d.cfg.ProxyCRF),
		"-profile:v", "baseline",
		"-level", "3.0",
		"-movflags", "+faststart",
		out,
	}
}

// ThumbnailRate is the sampling rate in frames per second that spreads
// TargetFrames over duration seconds, clamped to [MinRate, MaxRate].
func (d *Derivatives) ThumbnailRate(duration float64) float64 {
	return ThumbnailRate(duration, d.cfg)
}

// ThumbnailRate computes the sampling rate for cfg
func ThumbnailRate(duration float64, cfg Config) float64 {
	if duration <= 0 {
		return cfg.MinRate
	}
	return max(cfg.MinRate, min(cfg.MaxRate, cfg.TargetFrames/duration))
}

// Thumbnails returns an ordered strip of frames from src. Failures yield an
// empty list.
func (d *Derivatives) Thumbnails(ctx context.Context, src string, duration float64) []string {
	frames, err := d.ThumbnailsAsync(src, duration).Wait(ctx)
	if err != nil {
		return []string{}
	}
	return frames
}

// ThumbnailsAsync queues a thumbnail job and returns its handle
func (d *Derivatives) ThumbnailsAsync(src string, duration float64) *Pending[[]string] {
	p, err := Enqueue(d.queue, "thumbnails "+filepath.Base(src), func(ctx context.Context) []string {
		return d.makeThumbnails(ctx, src, duration)
	})
	if err != nil {
		d.logger.Warn().Err(err).Str("src", src).Msg("thumbnails not queued")
		return Resolved([]string{})
	}
	return p
}

func (d *Derivatives) thumbPrefix(src string) string {
	sum := md5.Sum([]byte(src))
	return "thumb_" + hex.EncodeToString(sum[:]) + "_"
}

func (d *Derivatives) makeThumbnails(ctx context.Context, src string, duration float64) []string {
	if err := util.EnsureDir(d.cfg.ThumbnailDir); err != nil {
		d.logger.Error().Err(err).Msg("failed to create thumbnail directory")
		return []string{}
	}

	prefix := d.thumbPrefix(src)
	if existing := d.listThumbnails(prefix); len(existing) > d.cfg.ReuseThreshold {
		d.logger.Debug().Str("src", src).Int("frames", len(existing)).Msg("reusing thumbnails")
		return existing
	}

	rate := d.ThumbnailRate(duration)
	vf := ffmpeg.NewFilterBuilder().FPS(rate).ScaleHeight(d.cfg.ThumbnailHeight).Build()
	pattern := filepath.Join(d.cfg.ThumbnailDir, prefix+"%d.jpg")

	err := d.runner.Run(ctx, ffmpeg.RunOptions{Args: []string{"-i", src, "-vf", vf, pattern}})
	if err != nil {
		d.logger.Error().Err(err).Str("src", src).Msg("thumbnail generation failed")
		return []string{}
	}

	frames := d.listThumbnails(prefix)
	d.logger.Info().Str("src", src).Int("frames", len(frames)).Float64("rate", rate).Msg("thumbnails ready")
	return frames
}

var frameIndex = regexp.MustCompile(`_(\d+)\.jpg$`)

// listThumbnails returns the frames with prefix sorted by frame number
func (d *Derivatives) listThumbnails(prefix string) []string {
	entries, err := os.ReadDir(d.cfg.ThumbnailDir)
	if err != nil {
		return []string{}
	}

	type frame struct {
		name string
		n    int
	}
	var frames []frame
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".jpg") {
			continue
		}
		n := 0
		if m := frameIndex.FindStringSubmatch(name); m != nil {
			n, _ = strconv.Atoi(m[1])
		}
		frames = append(frames, frame{name, n})
	}
	sort.SliceStable(frames, func(i, j int) bool { return frames[i].n < frames[j].n })

	out := make([]string, 0, len(frames))
	for _, f := range frames {
		out = append(out, filepath.Join(d.cfg.ThumbnailDir, f.name))
	}
	return out
}
