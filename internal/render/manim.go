package render

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"math-shorts-pipeline/internal/config"
	"math-shorts-pipeline/internal/shell"
)

// Environment handed to the manim scene script
const (
	EnvTopicJSON  = "MATHSHORTS_TOPIC_JSON"
	EnvScriptJSON = "MATHSHORTS_SCRIPT_JSON"
	EnvDuration   = "MATHSHORTS_DURATION"
	EnvTemplate   = "MATHSHORTS_TEMPLATE"
)

const manimOutputName = "manim_scene"

// Manim renders a Scene class from the configured manim script. With
// render.manim_scene set, that one class draws every topic and reads the
// template id from MATHSHORTS_TEMPLATE; otherwise the template's own class runs.
type Manim struct {
	Runner shell.Runner
	Cfg    config.RenderConfig
}

func (m *Manim) Name() string { return "manim" }

func (m *Manim) Render(ctx context.Context, job Job) error {
	if _, err := m.Runner.LookPath("manim"); err != nil {
		return fmt.Errorf("manim: %w", err)
	}
	if _, err := os.Stat(m.Cfg.ManimScript); err != nil {
		return fmt.Errorf("manim script: %w", err)
	}

	mediaDir := filepath.Join(job.Dir, "media")
	scene := m.Cfg.ManimScene
	if scene == "" {
		scene = job.Template.Scene
	}
	quality := m.Cfg.ManimQuality
	if quality == "" {
		quality = "qh"
	}
	args := []string{
		"-" + quality,
		"--format=mp4",
		"--fps", fmt.Sprint(m.Cfg.FPS),
		"--resolution", fmt.Sprintf("%d,%d", m.Cfg.Width, m.Cfg.Height),
		"--media_dir", mediaDir,
		"-o", manimOutputName,
		m.Cfg.ManimScript,
		scene,
	}
	env := []string{
		EnvTopicJSON + "=" + job.TopicJSON,
		EnvScriptJSON + "=" + job.ScriptJSON,
		EnvDuration + "=" + fmt.Sprintf("%.3f", job.DurationSec),
		EnvTemplate + "=" + job.Template.ID,
	}
	if _, err := shell.RunWithEnv(ctx, m.Runner, env, "manim", args...); err != nil {
		return fmt.Errorf("manim render: %w", err)
	}

	// manim nests output under media/videos/<script>/<quality>/
	produced, err := findFile(mediaDir, manimOutputName+".mp4")
	if err != nil {
		return err
	}
	if err := os.Rename(produced, job.OutPath); err != nil {
		return fmt.Errorf("move manim output: %w", err)
	}
	return nil
}

var errFound = errors.New("found")

func findFile(root, name string) (string, error) {
	var hit string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && d.Name() == name {
			hit = path
			return errFound
		}
		return nil
	})
	if hit != "" {
		return hit, nil
	}
	if err == nil {
		err = fs.ErrNotExist
	}
	return "", fmt.Errorf("manim output %s not found: %w", name, err)
}
