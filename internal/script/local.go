package script

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"math-shorts-pipeline/internal/config"
	"math-shorts-pipeline/internal/shell"
	"math-shorts-pipeline/internal/types"
)

// ErrClosed is returned after LocalModel.Close
var ErrClosed = errors.New("local model closed")

// LocalModel runs an installed llama.cpp style binary against a model file.
//
// It is a lazily initialised, process-wide service: binary and model are
// resolved once on first use, one inference runs at a time and Close tears
// the service down. The Generator owns the single instance.
type LocalModel struct {
	cfg    config.LocalConfig
	runner shell.Runner

	once    sync.Once
	binary  string
	initErr error

	mu     sync.Mutex
	closed bool
}

// NewLocalModel does no I/O; resolution happens on first Generate
func NewLocalModel(cfg config.LocalConfig, runner shell.Runner) *LocalModel {
	return &LocalModel{cfg: cfg, runner: runner}
}

func (m *LocalModel) Name() string { return "local" }

func (m *LocalModel) init() {
	if m.cfg.Binary == "" || m.cfg.ModelPath == "" {
		m.initErr = fmt.Errorf("local model not configured: %w", ErrUnavailable)
		return
	}
	bin, err := m.runner.LookPath(m.cfg.Binary)
	if err != nil {
		m.initErr = fmt.Errorf("%s: %w: %v", m.cfg.Binary, ErrUnavailable, err)
		return
	}
	if fi, err := os.Stat(m.cfg.ModelPath); err != nil || fi.IsDir() {
		m.initErr = fmt.Errorf("model file %s: %w", m.cfg.ModelPath, ErrUnavailable)
		return
	}
	m.binary = bin
}

// Ready resolves the service and reports why it cannot run, if it cannot
func (m *LocalModel) Ready() error {
	m.once.Do(m.init)
	return m.initErr
}

func (m *LocalModel) Generate(ctx context.Context, req Request) (*types.Script, error) {
	if err := m.Ready(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}

	if m.cfg.TimeoutSec > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(m.cfg.TimeoutSec)*time.Second)
		defer cancel()
	}

	maxTokens := m.cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 400
	}
	temp := req.Temperature
	if temp == 0 {
		temp = 0.7
	}
	args := []string{
		"-m", m.cfg.ModelPath,
		"-p", fullPrompt(req),
		"-n", strconv.Itoa(maxTokens),
		"--temp", strconv.FormatFloat(temp, 'f', 2, 64),
		"-no-cnv",
		"--no-display-prompt",
	}
	out, err := m.runner.Run(ctx, m.binary, args...)
	if err != nil {
		return nil, fmt.Errorf("local inference: %w", err)
	}

	s, err := parseResponse(req.Topic, string(out))
	if err != nil {
		return nil, err
	}
	s.Model = m.cfg.ModelPath
	return s, nil
}

// Close stops accepting requests; an in-flight inference finishes first
func (m *LocalModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
