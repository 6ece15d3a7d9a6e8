// Package pipeline sequences the stages of one short:
// select → generate → synthesize → render → combine → publish.
//
// Every run works in its own artifact directory and saves its state after
// each stage. Only a fully combined video is promoted to the output root;
// a fatal stage error aborts the run and leaves its directory on disk for
// inspection. Publishing is optional and its failure only downgrades the
// run to partial.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"math-shorts-pipeline/internal/artifact"
	"math-shorts-pipeline/internal/config"
	"math-shorts-pipeline/internal/history"
	"math-shorts-pipeline/internal/logging"
	"math-shorts-pipeline/internal/publish"
	"math-shorts-pipeline/internal/script"
	"math-shorts-pipeline/internal/types"
)

// Stage contracts. The concrete implementations live in their own packages.
type (
	TopicSelector interface {
		Select(ctx context.Context, name string) (*types.Topic, error)
	}
	ScriptGenerator interface {
		Generate(ctx context.Context, topic types.Topic, opts config.Resolved) (*script.Result, error)
	}
	Synthesizer interface {
		Synthesize(ctx context.Context, text, dir string) (*types.AudioArtifact, error)
	}
	SceneRenderer interface {
		Render(ctx context.Context, topic types.Topic, s *types.Script, backend string, durationSec float64, dir string) (*types.SceneArtifact, error)
	}
	Combiner interface {
		Combine(ctx context.Context, scene *types.SceneArtifact, audio *types.AudioArtifact, dir string) (*types.FinalVideo, error)
	}
	EventEmitter interface {
		RunCompleted(ctx context.Context, r *types.RunResult) error
	}
)

// Options wires a Pipeline. Uploader, History and Events are optional.
type Options struct {
	Config      *config.Config
	Store       *artifact.Store
	Selector    TopicSelector
	Generator   ScriptGenerator
	Synthesizer Synthesizer
	Renderer    SceneRenderer
	Combiner    Combiner
	Uploader    publish.Uploader
	History     history.Store
	Events      EventEmitter
	Logger      *slog.Logger
	// NewRunID defaults to the first 8 characters of a UUID
	NewRunID func() string
}

// Pipeline is safe for concurrent runs
type Pipeline struct {
	opts    Options
	log     *slog.Logger
	closers []func() error
}

func New(opts Options) (*Pipeline, error) {
	switch {
	case opts.Config == nil:
		return nil, errors.New("pipeline: config is required")
	case opts.Store == nil:
		return nil, errors.New("pipeline: artifact store is required")
	case opts.Selector == nil, opts.Generator == nil, opts.Synthesizer == nil,
		opts.Renderer == nil, opts.Combiner == nil:
		return nil, errors.New("pipeline: every stage must be set")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.NewRunID == nil {
		opts.NewRunID = func() string { return uuid.NewString()[:8] }
	}
	return &Pipeline{opts: opts, log: opts.Logger}, nil
}

// Store exposes the artifact store for status queries
func (p *Pipeline) Store() *artifact.Store { return p.opts.Store }

// History returns the run history store, nil when none is wired
func (p *Pipeline) History() history.Store { return p.opts.History }

// Config returns the configuration the pipeline was built with
func (p *Pipeline) Config() *config.Config { return p.opts.Config }

// Close releases clients opened by Build
func (p *Pipeline) Close() error {
	var errs []error
	for i := len(p.closers) - 1; i >= 0; i-- {
		errs = append(errs, p.closers[i]())
	}
	return errors.Join(errs...)
}

// run carries the mutable state of one Run
type run struct {
	res *types.RunResult
	dir *artifact.Run
	log *slog.Logger
}

// Run executes every stage for one short. The returned result is never nil;
// Status and Error describe how far it got.
func (p *Pipeline) Run(ctx context.Context, req config.RunOptions) *types.RunResult {
	opts := req.Resolve(p.opts.Config)
	r := &run{res: &types.RunResult{
		RunID:     p.opts.NewRunID(),
		Status:    types.StatusSuccess,
		Timings:   []types.StageTiming{},
		StartedAt: time.Now().UTC(),
	}}
	r.log = p.log.With("run_id", r.res.RunID)
	r.log.Info("run started", "topic", opts.Topic, "provider", opts.Provider, "backend", opts.Backend, "max_words", opts.MaxWords)

	defer p.finish(ctx, r)

	dir, err := p.opts.Store.NewRun(r.res.RunID)
	if err != nil {
		p.fail(r, types.StageSelect, err)
		return r.res
	}
	r.dir = dir

	var (
		topic *types.Topic
		s     *types.Script
		audio *types.AudioArtifact
		scene *types.SceneArtifact
		final *types.FinalVideo
	)

	ok := p.stage(ctx, r, types.StageSelect, func(ctx context.Context) error {
		t, err := p.opts.Selector.Select(ctx, opts.Topic)
		if err != nil {
			return err
		}
		topic, r.res.Topic = t, t
		return dir.SaveJSON(artifact.TopicFile, t)
	}) && p.stage(ctx, r, types.StageGenerate, func(ctx context.Context) error {
		out, err := p.opts.Generator.Generate(ctx, *topic, opts)
		if err != nil {
			return err
		}
		s, r.res.Script = out.Script, out.Script
		return dir.SaveJSON(artifact.ScriptFile, out.Script)
	}) && p.stage(ctx, r, types.StageSynthesize, func(ctx context.Context) error {
		a, err := p.opts.Synthesizer.Synthesize(ctx, s.FullText(), dir.Dir)
		audio = a
		return err
	}) && p.stage(ctx, r, types.StageRender, func(ctx context.Context) error {
		sc, err := p.opts.Renderer.Render(ctx, *topic, s, opts.Backend, opts.DurationSec, dir.Dir)
		scene = sc
		return err
	}) && p.stage(ctx, r, types.StageCombine, func(ctx context.Context) error {
		f, err := p.opts.Combiner.Combine(ctx, scene, audio, dir.Dir)
		if err != nil {
			return err
		}
		final = f
		path, err := p.opts.Store.Promote(f.Path, topic.Name)
		if err != nil {
			return err
		}
		r.res.OutputPath, r.res.DurationSec = path, f.DurationSec
		return nil
	})
	if !ok {
		return r.res
	}

	r.res.Metadata = publish.Metadata(*topic, s, p.opts.Config.Upload)
	if p.opts.Uploader != nil {
		p.publish(ctx, r)
	}
	r.log.Info("run finished", "status", r.res.Status, "output", r.res.OutputPath,
		"duration_sec", final.DurationSec, "size_bytes", final.SizeBytes)
	return r.res
}

// stage times fn, records a fatal error and saves state. It reports whether
// the run may continue.
func (p *Pipeline) stage(ctx context.Context, r *run, stage types.Stage, fn func(context.Context) error) bool {
	log := logging.Stage(r.log, string(stage))
	start := time.Now()
	err := ctx.Err()
	if err == nil {
		err = fn(ctx)
	}
	elapsed := time.Since(start)
	r.res.AddTiming(stage, elapsed)

	if err != nil {
		log.Error("stage failed", "error", err, "elapsed", elapsed)
		p.fail(r, stage, err)
	} else {
		log.Info("stage done", "elapsed", elapsed)
	}
	p.save(r)
	return err == nil
}

func (p *Pipeline) fail(r *run, stage types.Stage, err error) {
	r.res.Status = types.StatusFailure
	r.res.Error = types.NewStageError(stage, err)
}

// publish is best effort: a failed upload keeps the video and marks the run partial
func (p *Pipeline) publish(ctx context.Context, r *run) {
	log := logging.Stage(r.log, string(types.StagePublish))
	start := time.Now()
	url, err := p.opts.Uploader.Upload(ctx, r.res.OutputPath, r.res.Metadata)
	r.res.AddTiming(types.StagePublish, time.Since(start))
	if err != nil {
		log.Warn("upload failed, keeping local video", "error", err)
		r.res.Status = types.StatusPartial
		r.res.Error = types.NewStageError(types.StagePublish, err)
	} else {
		r.res.YouTubeURL = url
		log.Info("uploaded", "url", url)
	}
	p.save(r)
}

func (p *Pipeline) save(r *run) {
	if r.dir == nil {
		return
	}
	if err := r.dir.SaveJSON(artifact.StateFile, r.res); err != nil {
		r.log.Warn("save pipeline state", "error", err)
	}
}

// finish stamps the result and notifies history and events. Neither can
// change the run's status.
func (p *Pipeline) finish(ctx context.Context, r *run) {
	r.res.CompletedAt = time.Now().UTC()
	p.save(r)
	if r.res.Error != nil && r.res.Status == types.StatusFailure {
		r.log.Error("run failed", "stage", r.res.Error.Stage, "cause", r.res.Error.Cause)
	}

	// the caller's ctx may already be cancelled; bookkeeping still gets a chance
	bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if p.opts.History != nil {
		if err := p.opts.History.Add(bg, history.FromResult(r.res)); err != nil {
			r.log.Warn("record run history", "error", err)
		}
	}
	if p.opts.Events != nil {
		if err := p.opts.Events.RunCompleted(bg, r.res); err != nil {
			r.log.Warn("emit run event", "error", err)
		}
	}
}

// ScriptResult is the answer of the script-only operation
type ScriptResult struct {
	Topic    *types.Topic     `json:"topic"`
	Script   *types.Script    `json:"script"`
	Attempts []script.Attempt `json:"attempts"`
}

// GenerateScript selects a topic and writes its script without producing media
func (p *Pipeline) GenerateScript(ctx context.Context, req config.RunOptions) (*ScriptResult, error) {
	opts := req.Resolve(p.opts.Config)
	topic, err := p.opts.Selector.Select(ctx, opts.Topic)
	if err != nil {
		return nil, types.NewStageError(types.StageSelect, err)
	}
	out, err := p.opts.Generator.Generate(ctx, *topic, opts)
	if err != nil {
		return nil, types.NewStageError(types.StageGenerate, err)
	}
	return &ScriptResult{Topic: topic, Script: out.Script, Attempts: out.Attempts}, nil
}

// BatchResult reports one batch item
type BatchResult struct {
	Index      int               `json:"index"`
	RunID      string            `json:"run_id"`
	Topic      string            `json:"topic"`
	Status     types.Status      `json:"status"`
	OutputPath string            `json:"output_path,omitempty"`
	Error      *types.StageError `json:"error,omitempty"`
}

// Batch runs items one after another. An item's failure never stops the
// batch; a cancelled ctx fails the remaining items at their first stage.
func (p *Pipeline) Batch(ctx context.Context, items []config.RunOptions) []BatchResult {
	out := make([]BatchResult, 0, len(items))
	for i, item := range items {
		res := p.Run(ctx, item)
		br := BatchResult{
			Index:      i,
			RunID:      res.RunID,
			Topic:      item.Topic,
			Status:     res.Status,
			OutputPath: res.OutputPath,
			Error:      res.Error,
		}
		if res.Topic != nil {
			br.Topic = res.Topic.Name
		}
		out = append(out, br)
	}
	p.log.Info("batch finished", "items", len(items), "failed", countStatus(out, types.StatusFailure))
	return out
}

func countStatus(rs []BatchResult, st types.Status) int {
	n := 0
	for _, r := range rs {
		if r.Status == st {
			n++
		}
	}
	return n
}

// String is used by the CLI summary line
func (b BatchResult) String() string {
	if b.Error != nil {
		return fmt.Sprintf("#%d %s: %s (%v)", b.Index, b.Topic, b.Status, b.Error)
	}
	return fmt.Sprintf("#%d %s: %s %s", b.Index, b.Topic, b.Status, b.OutputPath)
}
