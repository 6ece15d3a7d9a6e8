// Package audio turns script text into a narration file.
package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"math-shorts-pipeline/internal/config"
	"math-shorts-pipeline/internal/shell"
	"math-shorts-pipeline/internal/types"
)

// baseName is the narration file name inside a run directory, without extension
const baseName = "audio"

var (
	ErrNoText           = errors.New("nothing to synthesize")
	ErrAllEnginesFailed = errors.New("all TTS engines failed")
)

// Synthesizer tries each engine in order, retrying with linear backoff
type Synthesizer struct {
	engines  []Engine
	runner   shell.Runner
	attempts int
	delay    time.Duration
	log      *slog.Logger
}

// New builds the engine chain: TTS_COMMAND (when set), edge-tts, espeak-ng
func New(cfg config.AudioConfig, runner shell.Runner, log *slog.Logger) *Synthesizer {
	var engines []Engine
	if cmd := strings.TrimSpace(os.Getenv("TTS_COMMAND")); cmd != "" {
		engines = append(engines, &Command{Runner: runner, Command: cmd})
	}
	engines = append(engines,
		NewEdgeTTS(runner, cfg.Accent),
		&Espeak{Runner: runner, Voice: cfg.EspeakVoice, Rate: cfg.EspeakRate},
	)
	return NewWithEngines(cfg, runner, log, engines...)
}

// NewWithEngines uses an explicit engine order
func NewWithEngines(cfg config.AudioConfig, runner shell.Runner, log *slog.Logger, engines ...Engine) *Synthesizer {
	if log == nil {
		log = slog.Default()
	}
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	return &Synthesizer{
		engines:  engines,
		runner:   runner,
		attempts: attempts,
		delay:    time.Duration(cfg.RetryDelayMs) * time.Millisecond,
		log:      log,
	}
}

// Engines lists the engine names in fallback order
func (s *Synthesizer) Engines() []string {
	names := make([]string, len(s.engines))
	for i, e := range s.engines {
		names[i] = e.Name()
	}
	return names
}

// Synthesize writes the narration for text into dir and measures it
func (s *Synthesizer) Synthesize(ctx context.Context, text, dir string) (*types.AudioArtifact, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrNoText
	}

	var errs []error
	for _, eng := range s.engines {
		if err := eng.Available(); err != nil {
			s.log.Warn("tts engine unavailable", "engine", eng.Name(), "err", err)
			errs = append(errs, fmt.Errorf("%s: %w", eng.Name(), err))
			continue
		}

		out := filepath.Join(dir, baseName+eng.Ext())
		art, err := s.tryEngine(ctx, eng, text, out)
		if err == nil {
			s.log.Info("narration ready", "engine", eng.Name(), "duration_sec", art.DurationSec, "path", out)
			return art, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", eng.Name(), err))
		if ctx.Err() != nil {
			break
		}
		s.log.Warn("tts engine failed, trying next", "engine", eng.Name(), "err", err)
	}
	return nil, fmt.Errorf("%w: %w", ErrAllEnginesFailed, errors.Join(errs...))
}

func (s *Synthesizer) tryEngine(ctx context.Context, eng Engine, text, out string) (*types.AudioArtifact, error) {
	var err error
	for attempt := 1; attempt <= s.attempts; attempt++ {
		if err = s.once(ctx, eng, text, out); err == nil {
			dur, perr := shell.ProbeDuration(ctx, s.runner, out)
			if perr == nil {
				return &types.AudioArtifact{Path: out, DurationSec: dur, Engine: eng.Name()}, nil
			}
			err = perr
		}
		if attempt == s.attempts {
			break
		}
		s.log.Debug("tts attempt failed, retrying", "engine", eng.Name(), "attempt", attempt, "err", err)
		if serr := sleep(ctx, time.Duration(attempt)*s.delay); serr != nil {
			return nil, serr
		}
	}
	return nil, err
}

func (s *Synthesizer) once(ctx context.Context, eng Engine, text, out string) error {
	_ = os.Remove(out)
	if err := eng.Synthesize(ctx, text, out); err != nil {
		return err
	}
	fi, err := os.Stat(out)
	if err != nil {
		return fmt.Errorf("no output written: %w", err)
	}
	if fi.Size() == 0 {
		return fmt.Errorf("empty output %s", out)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
