// Package render produces the silent scene video for a topic.
//
// The template is chosen by an ordered keyword table (see DefaultTable) and
// drawn by one of two backends: ffmpeg drawtext cards, or a manim scene.
package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"math-shorts-pipeline/internal/artifact"
	"math-shorts-pipeline/internal/config"
	"math-shorts-pipeline/internal/shell"
	"math-shorts-pipeline/internal/types"
)

var ErrUnknownBackend = errors.New("unknown render backend")

// Job is everything a backend needs for one scene
type Job struct {
	Template    Template
	Topic       types.Topic
	Script      *types.Script
	Cards       []Card
	DurationSec float64
	Dir         string // run directory
	OutPath     string
	TopicJSON   string // path of the saved topic artifact
	ScriptJSON  string // path of the saved script artifact
}

// Backend draws a Job into Job.OutPath
type Backend interface {
	Name() string
	Render(ctx context.Context, job Job) error
}

// Renderer picks a template, lays it out and hands it to a backend
type Renderer struct {
	table    TemplateTable
	backends map[string]Backend
	runner   shell.Runner
	log      *slog.Logger
}

// New wires the ffmpeg and manim backends
func New(cfg config.RenderConfig, runner shell.Runner, log *slog.Logger) *Renderer {
	if log == nil {
		log = slog.Default()
	}
	return &Renderer{
		table: DefaultTable(),
		backends: map[string]Backend{
			"ffmpeg": &FFmpeg{Runner: runner, Cfg: cfg},
			"manim":  &Manim{Runner: runner, Cfg: cfg},
		},
		runner: runner,
		log:    log,
	}
}

// Render draws the scene for topic into dir/scene.mp4 and measures it
func (r *Renderer) Render(ctx context.Context, topic types.Topic, script *types.Script, backend string, durationSec float64, dir string) (*types.SceneArtifact, error) {
	be, ok := r.backends[backend]
	if !ok {
		return nil, fmt.Errorf("%q: %w", backend, ErrUnknownBackend)
	}

	tpl := r.table.Match(topic.Name)
	dur := tpl.Duration(script, durationSec)
	job := Job{
		Template:    tpl,
		Topic:       topic,
		Script:      script,
		Cards:       tpl.Layout(topic, script, dur),
		DurationSec: dur,
		Dir:         dir,
		OutPath:     filepath.Join(dir, artifact.SceneFile),
		TopicJSON:   filepath.Join(dir, artifact.TopicFile),
		ScriptJSON:  filepath.Join(dir, artifact.ScriptFile),
	}
	r.log.Info("rendering scene", "template", tpl.ID, "backend", be.Name(), "duration_sec", dur)

	if err := be.Render(ctx, job); err != nil {
		return nil, err
	}
	measured, err := shell.ProbeDuration(ctx, r.runner, job.OutPath)
	if err != nil {
		return nil, fmt.Errorf("measure scene: %w", err)
	}
	return &types.SceneArtifact{
		Path:        job.OutPath,
		DurationSec: measured,
		Template:    tpl.ID,
		Backend:     be.Name(),
	}, nil
}
