package pipeline

import (
	"context"
	"log/slog"

	"math-shorts-pipeline/internal/artifact"
	"math-shorts-pipeline/internal/audio"
	"math-shorts-pipeline/internal/combine"
	"math-shorts-pipeline/internal/config"
	"math-shorts-pipeline/internal/events"
	"math-shorts-pipeline/internal/history"
	"math-shorts-pipeline/internal/logging"
	"math-shorts-pipeline/internal/publish"
	"math-shorts-pipeline/internal/render"
	"math-shorts-pipeline/internal/script"
	"math-shorts-pipeline/internal/shell"
	"math-shorts-pipeline/internal/topic"
)

// Build wires the production stages from cfg. Optional collaborators that
// cannot be reached (Redis, NATS, YouTube credentials) are logged and left
// out; the pipeline itself still works without them.
func Build(ctx context.Context, cfg *config.Config, runner shell.Runner, log *slog.Logger) (*Pipeline, error) {
	if log == nil {
		log = slog.Default()
	}
	if runner == nil {
		runner = shell.Exec{}
	}
	store, err := artifact.New(cfg.Paths.Output)
	if err != nil {
		return nil, err
	}

	gen := script.New(cfg.Script, runner, script.Options{Logger: logging.Stage(log, "generate")})
	opts := Options{
		Config:      cfg,
		Store:       store,
		Selector:    topic.New(cfg.Topic, cfg.Paths.Output, topic.WithLogger(logging.Stage(log, "select"))),
		Generator:   gen,
		Synthesizer: audio.New(cfg.Audio, runner, logging.Stage(log, "synthesize")),
		Renderer:    render.New(cfg.Render, runner, logging.Stage(log, "render")),
		Combiner:    combine.New(cfg.Combine, runner, logging.Stage(log, "combine")),
		Logger:      log,
	}
	closers := []func() error{gen.Close}

	if cfg.Upload.Enabled {
		creds, err := publish.CredentialsFromEnv()
		if err != nil {
			log.Warn("upload enabled but disabled for this process", "error", err)
		} else {
			opts.Uploader = publish.NewYouTube(ctx, cfg.Upload, creds, logging.Stage(log, "publish"))
		}
	}

	if cfg.History.RedisURL != "" {
		rh, err := history.NewRedis(cfg.History.RedisURL, cfg.History.Key, cfg.History.MaxRuns)
		if err == nil {
			err = rh.Ping(ctx)
		}
		if err != nil {
			if rh != nil {
				_ = rh.Close()
			}
			log.Warn("redis history unavailable, keeping history in memory", "error", err)
			opts.History = history.NewMemory(cfg.History.MaxRuns)
		} else {
			opts.History = rh
			closers = append(closers, rh.Close)
		}
	} else {
		opts.History = history.NewMemory(cfg.History.MaxRuns)
	}

	if cfg.Events.NATSURL != "" {
		em, err := events.Connect(ctx, cfg.Events.NATSURL, cfg.Events.Subject)
		if err != nil {
			log.Warn("run events disabled", "error", err)
		} else {
			opts.Events = em
			closers = append(closers, em.Close)
		}
	}

	p, err := New(opts)
	if err != nil {
		return nil, err
	}
	p.closers = closers
	return p, nil
}
