// Package combine muxes the rendered scene with the narration into one MP4
package combine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"math-shorts-pipeline/internal/artifact"
	"math-shorts-pipeline/internal/config"
	"math-shorts-pipeline/internal/shell"
	"math-shorts-pipeline/internal/types"
)

var ErrMissingInput = errors.New("missing combine input")

// Combiner reconciles durations and shells out to ffmpeg
type Combiner struct {
	cfg    config.CombineConfig
	runner shell.Runner
	log    *slog.Logger
}

func New(cfg config.CombineConfig, runner shell.Runner, log *slog.Logger) *Combiner {
	if log == nil {
		log = slog.Default()
	}
	if cfg.AudioBitrate == "" {
		cfg.AudioBitrate = "192k"
	}
	return &Combiner{cfg: cfg, runner: runner, log: log}
}

// Combine writes dir/combined.mp4 and returns it with its measured length
func (c *Combiner) Combine(ctx context.Context, scene *types.SceneArtifact, audio *types.AudioArtifact, dir string) (*types.FinalVideo, error) {
	if scene == nil || audio == nil {
		return nil, ErrMissingInput
	}
	for _, p := range []string{scene.Path, audio.Path} {
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMissingInput, err)
		}
	}

	plan := Reconcile(scene.DurationSec, audio.DurationSec, c.cfg.PadSec)
	out := filepath.Join(dir, artifact.CombinedFile)
	c.log.Info("combining", "mode", plan.Mode, "scene_sec", scene.DurationSec,
		"audio_sec", audio.DurationSec, "output_sec", plan.OutputSec)

	if _, err := c.runner.Run(ctx, "ffmpeg", c.args(plan, scene.Path, audio.Path, out)...); err != nil {
		return nil, fmt.Errorf("ffmpeg combine: %w", err)
	}

	measured, err := shell.ProbeDuration(ctx, c.runner, out)
	if err != nil {
		return nil, fmt.Errorf("measure combined video: %w", err)
	}
	info, err := os.Stat(out)
	if err != nil {
		return nil, fmt.Errorf("combined video: %w", err)
	}
	return &types.FinalVideo{Path: out, DurationSec: measured, SizeBytes: info.Size()}, nil
}

func (c *Combiner) args(plan Plan, video, audio, out string) []string {
	args := []string{"-y",
		"-i", video,
		"-i", audio,
		"-map", "0:v:0",
		"-map", "1:a:0",
	}
	switch plan.Mode {
	case Freeze:
		args = append(args,
			"-vf", fmt.Sprintf("tpad=stop_mode=clone:stop_duration=%.3f", plan.HoldSec),
			"-c:v", "libx264", "-preset", "fast", "-crf", "22", "-pix_fmt", "yuv420p",
		)
	case Trim:
		args = append(args, "-c:v", "libx264", "-preset", "fast", "-crf", "22", "-pix_fmt", "yuv420p")
	default:
		args = append(args, "-c:v", "copy")
	}
	return append(args,
		"-t", fmt.Sprintf("%.3f", plan.OutputSec),
		"-c:a", "aac",
		"-b:a", c.cfg.AudioBitrate,
		"-movflags", "+faststart",
		out,
	)
}
