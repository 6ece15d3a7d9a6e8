package config

import "strings"

// RunOptions is the per-run configuration surface accepted by the CLI and
// the REST boundary. Zero values mean "use the configured default".
type RunOptions struct {
	Topic       string  `json:"topic,omitempty" yaml:"topic"`
	Provider    string  `json:"provider,omitempty" yaml:"provider"`
	Model       string  `json:"model,omitempty" yaml:"model"`
	MaxWords    int     `json:"max_words,omitempty" yaml:"max_words"`
	Backend     string  `json:"backend,omitempty" yaml:"backend"`
	DurationSec float64 `json:"duration,omitempty" yaml:"duration"`
}

// Resolved holds the options after defaults were applied
type Resolved struct {
	Topic       string
	Provider    string
	Model       string
	MaxWords    int
	Backend     string
	DurationSec float64
}

// Resolve fills absent or unrecognised values from cfg. Model is left as the
// caller gave it: a caller-named model is what makes a run "requested".
// "requested" is accepted as a provider meaning "use Model".
func (o RunOptions) Resolve(cfg *Config) Resolved {
	r := Resolved{
		Topic:       strings.TrimSpace(o.Topic),
		Provider:    strings.ToLower(strings.TrimSpace(o.Provider)),
		Model:       strings.TrimSpace(o.Model),
		MaxWords:    o.MaxWords,
		Backend:     strings.ToLower(strings.TrimSpace(o.Backend)),
		DurationSec: o.DurationSec,
	}

	if r.Provider == "requested" {
		r.Provider = ""
		if r.Model == "" {
			r.Provider = cfg.Script.Provider
		}
	}
	if r.Provider != "" && !contains(Providers, r.Provider) {
		r.Provider = cfg.Script.Provider
	}
	if r.Provider == "" && r.Model == "" {
		r.Provider = cfg.Script.Provider
	}
	if r.MaxWords <= 0 {
		r.MaxWords = cfg.Script.MaxWords
	}
	if !contains(Backends, r.Backend) {
		r.Backend = cfg.Render.Backend
	}
	if r.DurationSec <= 0 {
		r.DurationSec = cfg.Render.DurationSec
	}
	return r
}
