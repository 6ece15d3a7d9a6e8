package script

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"math-shorts-pipeline/internal/config"
	"math-shorts-pipeline/internal/types"
)

// OpenAI calls any OpenAI-compatible chat completions API (Groq by default)
type OpenAI struct {
	cfg         config.OpenAIConfig
	apiKey      string
	temperature float64
}

// NewOpenAI reads the API key from the configured environment variable
func NewOpenAI(cfg config.OpenAIConfig, temperature float64) *OpenAI {
	return &OpenAI{cfg: cfg, apiKey: config.APIKey(cfg.APIKeyEnv), temperature: temperature}
}

func (o *OpenAI) Name() string { return "openai" }

func (o *OpenAI) Generate(ctx context.Context, req Request) (*types.Script, error) {
	if o.apiKey == "" {
		return nil, fmt.Errorf("%s not set: %w", o.cfg.APIKeyEnv, ErrUnavailable)
	}
	opts := []option.RequestOption{option.WithAPIKey(o.apiKey)}
	if o.cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(o.cfg.BaseURL))
	}
	client := openai.NewClient(opts...)

	model := req.Model
	if model == "" {
		model = o.cfg.Model
	}
	temp := req.Temperature
	if temp == 0 {
		temp = o.temperature
	}

	resp, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt(req)),
		},
		Model:       model,
		Temperature: openai.Float(temp),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{Type: "json_object"},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices", ErrEmptyResponse)
	}

	s, err := parseResponse(req.Topic, strings.TrimSpace(resp.Choices[0].Message.Content))
	if err != nil {
		return nil, err
	}
	s.Model = model
	return s, nil
}
