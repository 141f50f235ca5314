package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/kikiluvv/vibecut/internal/jobs"
	"github.com/kikiluvv/vibecut/internal/media"
	"github.com/kikiluvv/vibecut/internal/render"
)

type contextKey string

const configKey contextKey = "config"

var validate = validator.New()

// Config holds all application configuration
type Config struct {
	// Core settings
	WorkDir string `yaml:"work_dir"`
	// DataDir holds proxies and thumbnails
	DataDir string `yaml:"data_dir"`

	// FFmpeg settings
	FFmpeg FFmpegConfig `yaml:"ffmpeg"`

	// Export defaults
	Export render.Settings `yaml:"export"`

	// Media server settings
	Server ServerConfig `yaml:"server"`

	// Proxy and thumbnail settings
	Derivatives DerivativeConfig `yaml:"derivatives"`
}

type FFmpegConfig struct {
	BinaryPath   string `yaml:"binary_path"`
	ProbePath    string `yaml:"probe_path"`
	Threads      int    `yaml:"threads" validate:"gte=0"`
	Preset       string `yaml:"preset" validate:"omitempty,oneof=ultrafast superfast veryfast faster fast medium slow slower veryslow"`
	CRF          int    `yaml:"crf" validate:"gte=0,lte=63"`
	FontFile     string `yaml:"font_file"`
	ProbeWorkers int    `yaml:"probe_workers" validate:"gte=0"`
}

type ServerConfig struct {
	Addr         string `yaml:"addr" validate:"required"`
	MaxChunkMB   int64  `yaml:"max_chunk_mb" validate:"gt=0"`
	AllowOrigins string `yaml:"allow_origins"`
}

type DerivativeConfig struct {
	ProxyHeight     int     `yaml:"proxy_height" validate:"gt=0"`
	ProxyCRF        int     `yaml:"proxy_crf" validate:"gte=0,lte=51"`
	ProxyPreset     string  `yaml:"proxy_preset" validate:"required"`
	ThumbnailHeight int     `yaml:"thumbnail_height" validate:"gt=0"`
	TargetFrames    float64 `yaml:"target_frames" validate:"gt=0"`
	MinRate         float64 `yaml:"min_rate" validate:"gt=0"`
	MaxRate         float64 `yaml:"max_rate" validate:"gtefield=MinRate"`
	ReuseThreshold  int     `yaml:"reuse_threshold" validate:"gte=0"`
}

// Load reads configuration from file or returns defaults
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path == "" {
		path = findConfigFile()
	}

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks every section
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			return fmt.Errorf("invalid config: %s", strings.Join(render.FormatValidationErrors(verrs), "; "))
		}
		return err
	}
	return nil
}

// Marshal encodes the configuration as YAML
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// Save writes configuration to file
func (c *Config) Save(path string) error {
	data, err := c.Marshal()
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0644)
}

// Jobs returns the derivative settings for the job queue
func (c *Config) Jobs() jobs.Config {
	jc := jobs.DefaultConfig(c.DataDir)
	d := c.Derivatives
	jc.ProxyHeight = d.ProxyHeight
	jc.ProxyCRF = d.ProxyCRF
	jc.ProxyPreset = d.ProxyPreset
	jc.ThumbnailHeight = d.ThumbnailHeight
	jc.TargetFrames = d.TargetFrames
	jc.MinRate = d.MinRate
	jc.MaxRate = d.MaxRate
	jc.ReuseThreshold = d.ReuseThreshold
	return jc
}

// Media returns the media server settings
func (c *Config) Media() media.ServerConfig {
	return media.ServerConfig{
		Addr:         c.Server.Addr,
		MaxChunk:     c.Server.MaxChunkMB * 1024 * 1024,
		AllowOrigins: c.Server.AllowOrigins,
	}
}

// Compiler returns the encoder options for exports
func (c *Config) Compiler() render.Options {
	return render.Options{
		FontFile: c.FFmpeg.FontFile,
		Preset:   c.FFmpeg.Preset,
		CRF:      c.FFmpeg.CRF,
	}
}

func defaultConfig() *Config {
	return &Config{
		WorkDir: "./work",
		DataDir: defaultDataDir(),
		FFmpeg: FFmpegConfig{
			BinaryPath:   "ffmpeg",
			ProbePath:    "ffprobe",
			Threads:      0,
			Preset:       "medium",
			ProbeWorkers: 4,
		},
		Export: render.DefaultSettings(),
		Server: ServerConfig{
			Addr:         "127.0.0.1:7878",
			MaxChunkMB:   50,
			AllowOrigins: "*",
		},
		Derivatives: DerivativeConfig{
			ProxyHeight:     720,
			ProxyCRF:        28,
			ProxyPreset:     "ultrafast",
			ThumbnailHeight: 64,
			TargetFrames:    20,
			MinRate:         0.5,
			MaxRate:         2,
			ReuseThreshold:  5,
		},
	}
}

// defaultDataDir is the per-user directory for generated media
func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "vibecut")
	}
	return filepath.Join(".", ".vibecut")
}

func findConfigFile() string {
	candidates := []string{
		"./vibecut.yaml",
		"./vibecut.yml",
		filepath.Join(os.Getenv("HOME"), ".vibecut", "config.yaml"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// WithConfig stores config in context
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey, cfg)
}

// FromContext retrieves config from context
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(configKey).(*Config); ok {
		return cfg
	}
	return defaultConfig()
}

// Default returns the built-in configuration
func Default() *Config {
	return defaultConfig()
}
