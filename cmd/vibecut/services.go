package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/kikiluvv/vibecut/internal/clips"
	"github.com/kikiluvv/vibecut/internal/config"
	"github.com/kikiluvv/vibecut/internal/ffmpeg"
	"github.com/kikiluvv/vibecut/internal/jobs"
	"github.com/kikiluvv/vibecut/internal/pipeline"
	"github.com/kikiluvv/vibecut/internal/projectfile"
)

// services wires the ffmpeg executor, the derivative job queue and the pipeline
type services struct {
	executor    *ffmpeg.Executor
	queue       *jobs.Queue
	derivatives *jobs.Derivatives
	pipeline    *pipeline.Pipeline
}

func newServices(cfg *config.Config) (*services, error) {
	threads := cfg.FFmpeg.Threads
	if threads == 0 {
		threads = jobs.ThreadBudget()
	}

	executor, err := ffmpeg.NewWithPaths(log.Logger, cfg.FFmpeg.BinaryPath, cfg.FFmpeg.ProbePath, threads)
	if err != nil {
		return nil, err
	}

	queue := jobs.NewQueue(log.Logger)
	derivatives := jobs.NewDerivatives(log.Logger, executor, queue, cfg.Jobs())

	pipeCfg := &pipeline.Config{
		ProbeWorkers: cfg.FFmpeg.ProbeWorkers,
		Compiler:     cfg.Compiler(),
		ProxyVideo:   true,
	}

	return &services{
		executor:    executor,
		queue:       queue,
		derivatives: derivatives,
		pipeline:    pipeline.New(log.Logger, pipeCfg, executor, derivatives),
	}, nil
}

// Close drains outstanding proxy and thumbnail jobs
func (r *services) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := r.queue.Close(ctx); err != nil {
		log.Warn().Err(err).Msg("job queue did not drain")
	}
}

func loadProject(path string) (*clips.Project, error) {
	out := projectfile.NewStore(log.Logger, projectfile.FixedDialog{}).LoadFrom(path)
	if !out.Success {
		return nil, fmt.Errorf("%s: %s", path, out.Message)
	}
	return out.Document.Project(), nil
}
