package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/kikiluvv/vibecut/internal/config"
	"github.com/kikiluvv/vibecut/internal/evaluator"
	"github.com/kikiluvv/vibecut/internal/ffmpeg"
	"github.com/kikiluvv/vibecut/internal/media"
	"github.com/kikiluvv/vibecut/internal/pipeline"
	"github.com/kikiluvv/vibecut/internal/shell"
	"github.com/kikiluvv/vibecut/internal/timeline"
	"github.com/kikiluvv/vibecut/pkg/util"
)

var (
	exportOutput     string
	exportResolution string
	exportFormat     string
	exportFPS        float64
	evalAt           string
	thumbsDuration   float64
	configForce      bool
)

var exportCmd = &cobra.Command{
	Use:   "export [project file]",
	Short: "Render a project to a video file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())

		project, err := loadProject(args[0])
		if err != nil {
			return err
		}

		rt, err := newServices(cfg)
		if err != nil {
			return err
		}
		defer rt.Close()

		settings := cfg.Export
		if exportResolution != "" {
			settings.Resolution = exportResolution
		}
		if exportFormat != "" {
			settings.Format = exportFormat
		}
		if exportFPS > 0 {
			settings.FrameRate = exportFPS
		}

		output := exportOutput
		if output == "" {
			base := strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
			output = filepath.Join(cfg.WorkDir, base+"."+settings.WithDefaults().Format)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		res := rt.pipeline.Export(ctx, project, pipeline.ExportOptions{
			Settings: settings,
			Output:   output,
			Progress: progressLogger(log.Logger),
		})
		for _, w := range res.Warnings {
			log.Warn().Msg(w)
		}
		if !res.Success {
			return fmt.Errorf("export failed: %s", res.Message)
		}

		log.Info().
			Str("output", res.Path).
			Dur("took", res.Took).
			Msg("export complete")
		return nil
	},
}

// progressLogger logs export progress once per ten percent and at the end
func progressLogger(logger zerolog.Logger) ffmpeg.ProgressFunc {
	last := -1
	return func(p *ffmpeg.Progress) {
		pct := int(p.Percentage)
		if last >= 0 && pct/10 == last/10 && !p.Done {
			return
		}
		last = pct
		logger.Info().
			Int("percent", pct).
			Str("time", p.Time).
			Str("speed", p.Speed).
			Bool("done", p.Done).
			Msg("exporting")
	}
}

var evalCmd = &cobra.Command{
	Use:   "eval [project file]",
	Short: "Show the layers visible and audible at a time",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		project, err := loadProject(args[0])
		if err != nil {
			return err
		}

		at, err := util.ParseTimestamp(evalAt)
		if err != nil {
			return err
		}

		shell.PrintFrame(cmd.OutOrStdout(), evaluator.Evaluate(project, at.Seconds()))
		return nil
	},
}

var shellCmd = &cobra.Command{
	Use:   "shell [project file]",
	Short: "Edit a timeline interactively",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())

		eng := timeline.New(log.Logger, nil)
		var path string
		if len(args) == 1 {
			project, err := loadProject(args[0])
			if err != nil {
				return err
			}
			eng.Load(project)
			path = args[0]
		}

		var pipe *pipeline.Pipeline
		rt, err := newServices(cfg)
		if err != nil {
			log.Warn().Err(err).Msg("ffmpeg unavailable, import discovery and export disabled")
		} else {
			defer rt.Close()
			pipe = rt.pipeline
		}

		sh := shell.New(log.Logger, eng, pipe, cfg.Export, cmd.OutOrStdout())
		sh.SetPath(path)
		return sh.Run()
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve local media files over HTTP with range support",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return media.NewServer(log.Logger, cfg.Media()).Listen(ctx)
	},
}

var proxyCmd = &cobra.Command{
	Use:   "proxy [media file]",
	Short: "Generate a low-resolution editing proxy",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newServices(config.FromContext(cmd.Context()))
		if err != nil {
			return err
		}
		defer rt.Close()

		out := rt.derivatives.Proxy(cmd.Context(), args[0])
		fmt.Fprintln(cmd.OutOrStdout(), out)
		return nil
	},
}

var thumbsCmd = &cobra.Command{
	Use:   "thumbs [media file]",
	Short: "Extract a thumbnail strip",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newServices(config.FromContext(cmd.Context()))
		if err != nil {
			return err
		}
		defer rt.Close()

		duration := thumbsDuration
		if duration <= 0 {
			info, err := rt.executor.ProbeMedia(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			duration = info.Duration
		}

		thumbs := rt.derivatives.Thumbnails(cmd.Context(), args[0], duration)
		if len(thumbs) == 0 {
			return fmt.Errorf("no thumbnails extracted from %s", args[0])
		}
		for _, t := range thumbs {
			fmt.Fprintln(cmd.OutOrStdout(), t)
		}
		return nil
	},
}

var probeCmd = &cobra.Command{
	Use:   "probe [media files...]",
	Short: "Print duration, streams and codecs of media files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newServices(config.FromContext(cmd.Context()))
		if err != nil {
			return err
		}
		defer rt.Close()

		infos := rt.pipeline.ProbeAll(cmd.Context(), args)
		paths := make([]string, 0, len(infos))
		for p := range infos {
			paths = append(paths, p)
		}
		sort.Strings(paths)

		w := cmd.OutOrStdout()
		for _, p := range paths {
			info := infos[p]
			fmt.Fprintf(w, "%s\n  duration %s\n", p, util.FormatDuration(time.Duration(info.Duration*float64(time.Second))))
			if info.HasVideo {
				fmt.Fprintf(w, "  video    %s %dx%d @ %.3g fps\n", info.VideoCodec, info.Width, info.Height, info.FPS)
			}
			if info.HasAudio {
				fmt.Fprintf(w, "  audio    %s\n", info.AudioCodec)
			}
		}
		if missing := len(args) - len(infos); missing > 0 {
			return fmt.Errorf("%d of %d files could not be probed", missing, len(args))
		}
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Config management commands",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())
		data, err := cfg.Marshal()
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the default configuration",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "vibecut.yaml"
		if len(args) == 1 {
			path = args[0]
		}
		if util.FileExists(path) && !configForce {
			return fmt.Errorf("%s already exists, use --force to overwrite", path)
		}
		if err := config.Default().Save(path); err != nil {
			return err
		}
		log.Info().Str("path", path).Msg("config written")
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (default: <work_dir>/<project>.<format>)")
	exportCmd.Flags().StringVar(&exportResolution, "resolution", "", "WIDTHxHEIGHT or 720p, 1080p, 4k")
	exportCmd.Flags().StringVar(&exportFormat, "format", "", "mp4, webm or mov")
	exportCmd.Flags().Float64Var(&exportFPS, "fps", 0, "output frame rate")

	evalCmd.Flags().StringVar(&evalAt, "at", "0", "timeline time (seconds or HH:MM:SS)")
	thumbsCmd.Flags().Float64Var(&thumbsDuration, "duration", 0, "source duration in seconds (probed when omitted)")
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite an existing file")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}
