package script

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"math-shorts-pipeline/internal/config"
	"math-shorts-pipeline/internal/types"
)

// Gemini calls the Gemini API through the genai SDK
type Gemini struct {
	cfg         config.GeminiConfig
	apiKey      string
	temperature float64
}

func NewGemini(cfg config.GeminiConfig, temperature float64) *Gemini {
	return &Gemini{cfg: cfg, apiKey: config.APIKey(cfg.APIKeyEnv), temperature: temperature}
}

func (g *Gemini) Name() string { return "gemini" }

func (g *Gemini) Generate(ctx context.Context, req Request) (*types.Script, error) {
	if g.apiKey == "" {
		return nil, fmt.Errorf("%s not set: %w", g.cfg.APIKeyEnv, ErrUnavailable)
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  g.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}

	model := req.Model
	if model == "" {
		model = g.cfg.Model
	}
	temp := req.Temperature
	if temp == 0 {
		temp = g.temperature
	}

	resp, err := client.Models.GenerateContent(ctx, model, genai.Text(userPrompt(req)), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		Temperature:       genai.Ptr(float32(temp)),
		ResponseMIMEType:  "application/json",
	})
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w", err)
	}

	s, err := parseResponse(req.Topic, resp.Text())
	if err != nil {
		return nil, err
	}
	s.Model = model
	return s, nil
}
