package script

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"math-shorts-pipeline/internal/config"
	"math-shorts-pipeline/internal/types"
)

// tagsTimeout bounds the reachability probe so an absent daemon fails fast
const tagsTimeout = 2 * time.Second

// Ollama talks to a local Ollama daemon
type Ollama struct {
	baseURL     string
	preferred   []string
	fallback    string
	temperature float64
	timeout     time.Duration
}

// NewOllama creates the local daemon provider
func NewOllama(cfg config.OllamaConfig, temperature float64) *Ollama {
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Ollama{
		baseURL:     strings.TrimRight(cfg.URL, "/"),
		preferred:   cfg.Preferred,
		fallback:    cfg.Fallback,
		temperature: temperature,
		timeout:     timeout,
	}
}

func (o *Ollama) Name() string { return "ollama" }

func (o *Ollama) client() (*api.Client, error) {
	base, err := url.Parse(o.baseURL)
	if err != nil || base.Host == "" {
		return nil, fmt.Errorf("ollama url %q: %w", o.baseURL, ErrUnavailable)
	}
	return api.NewClient(base, &http.Client{Timeout: o.timeout}), nil
}

func (o *Ollama) Generate(ctx context.Context, req Request) (*types.Script, error) {
	client, err := o.client()
	if err != nil {
		return nil, err
	}
	installed, err := o.installedModels(ctx, client)
	if err != nil {
		return nil, fmt.Errorf("ollama at %s: %w: %v", o.baseURL, ErrUnavailable, err)
	}
	model := o.pickModel(req.Model, installed)

	temp := req.Temperature
	if temp == 0 {
		temp = o.temperature
	}
	stream := false
	var out strings.Builder
	err = client.Generate(ctx, &api.GenerateRequest{
		Model:   model,
		Prompt:  userPrompt(req),
		System:  systemPrompt,
		Stream:  &stream,
		Format:  json.RawMessage(`"json"`),
		Options: map[string]any{"temperature": temp},
	}, func(resp api.GenerateResponse) error {
		out.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ollama generate: %w", err)
	}

	s, err := parseResponse(req.Topic, out.String())
	if err != nil {
		return nil, err
	}
	s.Model = model
	return s, nil
}

func (o *Ollama) installedModels(ctx context.Context, client *api.Client) (map[string]bool, error) {
	ctx, cancel := context.WithTimeout(ctx, tagsTimeout)
	defer cancel()

	list, err := client.List(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[string]bool, len(list.Models))
	for _, m := range list.Models {
		names[strings.ToLower(m.Name)] = true
	}
	return names, nil
}

// pickModel prefers the requested model, then the preferred list, then the
// configured fallback
func (o *Ollama) pickModel(requested string, installed map[string]bool) string {
	if requested != "" && installed[strings.ToLower(requested)] {
		return requested
	}
	for _, cand := range o.preferred {
		if installed[strings.ToLower(cand)] {
			return cand
		}
	}
	return o.fallback
}
