// Package shell runs the external tools the pipeline delegates to
// (ffmpeg, ffprobe, TTS engines, manim, local model binaries).
package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// ErrNotFound is returned when a binary is not on PATH
var ErrNotFound = errors.New("executable not found")

// Runner executes a command and returns its stdout.
// Implementations must honour ctx cancellation.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
	LookPath(name string) (string, error)
}

// EnvRunner is implemented by runners that can add environment variables
// for a single command
type EnvRunner interface {
	RunEnv(ctx context.Context, env []string, name string, args ...string) ([]byte, error)
}

// RunWithEnv uses RunEnv when r supports it and plain Run otherwise
func RunWithEnv(ctx context.Context, r Runner, env []string, name string, args ...string) ([]byte, error) {
	if er, ok := r.(EnvRunner); ok {
		return er.RunEnv(ctx, env, name, args...)
	}
	return r.Run(ctx, name, args...)
}

// Exec runs real processes with os/exec
type Exec struct {
	// Env is appended to the parent environment when non-empty
	Env []string
}

func (e Exec) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return e.RunEnv(ctx, nil, name, args...)
}

func (e Exec) RunEnv(ctx context.Context, env []string, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if extra := append(append([]string(nil), e.Env...), env...); len(extra) > 0 {
		cmd.Env = append(cmd.Environ(), extra...)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
		}
		return stdout.Bytes(), fmt.Errorf("%s failed: %w: %s", name, err, tail(stderr.String(), 400))
	}
	return stdout.Bytes(), nil
}

func (Exec) LookPath(name string) (string, error) {
	p, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	return p, nil
}

// ProbeDuration uses ffprobe to read a media file's duration in seconds
func ProbeDuration(ctx context.Context, r Runner, path string) (float64, error) {
	out, err := r.Run(ctx, "ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	dur, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("parse ffprobe duration %q: %w", strings.TrimSpace(string(out)), err)
	}
	if dur <= 0 {
		return 0, fmt.Errorf("ffprobe reported non-positive duration %.3f for %s", dur, path)
	}
	return dur, nil
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
