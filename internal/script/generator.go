package script

import (
	"context"
	"log/slog"
	"time"

	"math-shorts-pipeline/internal/config"
	"math-shorts-pipeline/internal/shell"
	"math-shorts-pipeline/internal/types"
)

// Generator is the script stage: it owns the providers, runs the fallback
// machine and applies the word budget to whatever script comes out
type Generator struct {
	machine     Machine
	local       *LocalModel
	temperature float64
	log         *slog.Logger
}

// Options replace the providers built from config, mostly in tests.
// A nil field keeps the configured provider.
type Options struct {
	Daemon    Provider
	Local     Provider
	Requested map[string]Provider
	Logger    *slog.Logger
}

// New builds every configured provider. Nothing is contacted until Generate.
func New(cfg config.ScriptConfig, runner shell.Runner, opts Options) *Generator {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	ollama := NewOllama(cfg.Ollama, cfg.Temperature)
	local := NewLocalModel(cfg.Local, runner)

	requested := map[string]Provider{
		"ollama": ollama,
		"local":  local,
		"openai": NewOpenAI(cfg.OpenAI, cfg.Temperature),
		"gemini": NewGemini(cfg.Gemini, cfg.Temperature),
	}
	for name, p := range opts.Requested {
		requested[name] = p
	}

	g := &Generator{
		machine: Machine{
			Requested: requested,
			Daemon:    ollama,
			Local:     local,
			Static:    Static{},
			Log:       log,
		},
		local:       local,
		temperature: cfg.Temperature,
		log:         log,
	}
	if opts.Daemon != nil {
		g.machine.Daemon = opts.Daemon
	}
	if opts.Local != nil {
		g.machine.Local = opts.Local
	}
	return g
}

// Result is a generated script with the provider trail behind it
type Result struct {
	Script   *types.Script `json:"script"`
	Attempts []Attempt     `json:"attempts"`
	Elapsed  time.Duration `json:"elapsed"`
}

// Generate runs the machine for one topic. The error is only non-nil when
// every provider, static included, failed.
func (g *Generator) Generate(ctx context.Context, topic types.Topic, opts config.Resolved) (*Result, error) {
	start := time.Now()
	plan := PlanFor(opts.Provider, opts.Model)
	req := Request{Topic: topic, Model: opts.Model, MaxWords: opts.MaxWords, Temperature: g.temperature}

	g.log.Debug("script plan", "start", plan.Start.String(), "requested", plan.Requested, "model", opts.Model)
	out := g.machine.Run(ctx, plan, req)
	if out.Final != Done {
		return &Result{Attempts: out.Attempts, Elapsed: time.Since(start)}, out.Err()
	}

	s := out.Script
	s.Topic = topic.Name
	Truncate(s, opts.MaxWords)
	g.log.Info("script ready", "provider", s.Provider, "words", s.WordCount, "est_sec", s.EstimatedSeconds())
	return &Result{Script: s, Attempts: out.Attempts, Elapsed: time.Since(start)}, nil
}

// Close tears down the local model service
func (g *Generator) Close() error {
	return g.local.Close()
}
