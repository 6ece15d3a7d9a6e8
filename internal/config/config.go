package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// DefaultPath is used when no --config flag is given
const DefaultPath = "config.yaml"

// Config mirrors config.yaml (or config.toml)
type Config struct {
	Server  ServerConfig  `yaml:"server" toml:"server"`
	Paths   PathsConfig   `yaml:"paths" toml:"paths"`
	Topic   TopicConfig   `yaml:"topic" toml:"topic"`
	Script  ScriptConfig  `yaml:"script" toml:"script"`
	Audio   AudioConfig   `yaml:"audio" toml:"audio"`
	Render  RenderConfig  `yaml:"render" toml:"render"`
	Combine CombineConfig `yaml:"combine" toml:"combine"`
	Upload  UploadConfig  `yaml:"upload" toml:"upload"`
	History HistoryConfig `yaml:"history" toml:"history"`
	Events  EventsConfig  `yaml:"events" toml:"events"`
}

type ServerConfig struct {
	Addr      string `yaml:"addr" toml:"addr"`
	LogFormat string `yaml:"log_format" toml:"log_format"` // text | json
	LogLevel  string `yaml:"log_level" toml:"log_level"`
}

type PathsConfig struct {
	Output string `yaml:"output" toml:"output"`
}

type TopicConfig struct {
	Source           string `yaml:"source" toml:"source"` // curated | wikipedia | reddit
	Policy           string `yaml:"policy" toml:"policy"` // random | round_robin
	Category         string `yaml:"category" toml:"category"`
	SummarySentences int    `yaml:"summary_sentences" toml:"summary_sentences"`
	WikipediaURL     string `yaml:"wikipedia_url" toml:"wikipedia_url"`
	Subreddit        string `yaml:"subreddit" toml:"subreddit"`
	TimeoutSec       int    `yaml:"timeout_sec" toml:"timeout_sec"`
}

type ScriptConfig struct {
	Provider    string       `yaml:"provider" toml:"provider"`
	Model       string       `yaml:"model" toml:"model"`
	MaxWords    int          `yaml:"max_words" toml:"max_words"`
	Temperature float64      `yaml:"temperature" toml:"temperature"`
	Ollama      OllamaConfig `yaml:"ollama" toml:"ollama"`
	Local       LocalConfig  `yaml:"local" toml:"local"`
	OpenAI      OpenAIConfig `yaml:"openai" toml:"openai"`
	Gemini      GeminiConfig `yaml:"gemini" toml:"gemini"`
}

type OllamaConfig struct {
	URL        string   `yaml:"url" toml:"url"`
	Preferred  []string `yaml:"preferred_models" toml:"preferred_models"`
	Fallback   string   `yaml:"fallback_model" toml:"fallback_model"`
	TimeoutSec int      `yaml:"timeout_sec" toml:"timeout_sec"`
}

type LocalConfig struct {
	Binary     string `yaml:"binary" toml:"binary"`
	ModelPath  string `yaml:"model_path" toml:"model_path"`
	MaxTokens  int    `yaml:"max_tokens" toml:"max_tokens"`
	TimeoutSec int    `yaml:"timeout_sec" toml:"timeout_sec"`
}

type OpenAIConfig struct {
	BaseURL   string `yaml:"base_url" toml:"base_url"`
	APIKeyEnv string `yaml:"api_key_env" toml:"api_key_env"`
	Model     string `yaml:"model" toml:"model"`
}

type GeminiConfig struct {
	APIKeyEnv string `yaml:"api_key_env" toml:"api_key_env"`
	Model     string `yaml:"model" toml:"model"`
}

type AudioConfig struct {
	Accent       string `yaml:"accent" toml:"accent"` // british | american
	MaxAttempts  int    `yaml:"max_attempts" toml:"max_attempts"`
	RetryDelayMs int    `yaml:"retry_delay_ms" toml:"retry_delay_ms"`
	EspeakVoice  string `yaml:"espeak_voice" toml:"espeak_voice"`
	EspeakRate   int    `yaml:"espeak_rate" toml:"espeak_rate"`
}

type RenderConfig struct {
	Backend      string  `yaml:"backend" toml:"backend"` // ffmpeg | manim
	DurationSec  float64 `yaml:"duration_sec" toml:"duration_sec"`
	Width        int     `yaml:"width" toml:"width"`
	Height       int     `yaml:"height" toml:"height"`
	FPS          int     `yaml:"fps" toml:"fps"`
	Font         string  `yaml:"font" toml:"font"`
	ManimScript  string  `yaml:"manim_script" toml:"manim_script"`
	ManimScene   string  `yaml:"manim_scene" toml:"manim_scene"` // empty uses each template's own Scene class
	ManimQuality string  `yaml:"manim_quality" toml:"manim_quality"`
}

type CombineConfig struct {
	PadSec       float64 `yaml:"pad_sec" toml:"pad_sec"`
	AudioBitrate string  `yaml:"audio_bitrate" toml:"audio_bitrate"`
}

type UploadConfig struct {
	Enabled         bool   `yaml:"enabled" toml:"enabled"`
	Visibility      string `yaml:"visibility" toml:"visibility"`
	CategoryID      string `yaml:"category_id" toml:"category_id"`
	MadeForKids     bool   `yaml:"made_for_kids" toml:"made_for_kids"`
	DefaultLanguage string `yaml:"default_language" toml:"default_language"`
}

type HistoryConfig struct {
	RedisURL string `yaml:"redis_url" toml:"redis_url"`
	Key      string `yaml:"key" toml:"key"`
	MaxRuns  int    `yaml:"max_runs" toml:"max_runs"`
}

type EventsConfig struct {
	NATSURL string `yaml:"nats_url" toml:"nats_url"`
	Subject string `yaml:"subject" toml:"subject"`
}

var (
	ErrUnknownProvider = errors.New("unknown script provider")
	ErrUnknownBackend  = errors.New("unknown render backend")
	ErrInvalidValue    = errors.New("invalid config value")
)

// Providers recognised by the script stage
var Providers = []string{"auto", "static", "ollama", "local", "openai", "gemini"}

// Backends recognised by the render stage
var Backends = []string{"ffmpeg", "manim"}

// Default returns the documented defaults
func Default() *Config {
	return &Config{
		Server: ServerConfig{Addr: ":8000", LogFormat: "text", LogLevel: "info"},
		Paths:  PathsConfig{Output: "output"},
		Topic: TopicConfig{
			Source:           "curated",
			Policy:           "random",
			Category:         "Mathematics",
			SummarySentences: 3,
			WikipediaURL:     "https://en.wikipedia.org",
			Subreddit:        "math",
			TimeoutSec:       10,
		},
		Script: ScriptConfig{
			Provider:    "auto",
			MaxWords:    150,
			Temperature: 0.7,
			Ollama: OllamaConfig{
				URL:        "http://127.0.0.1:11434",
				Preferred:  []string{"qwen3:4b", "qwen2.5:4b", "qwen2.5:7b", "qwen:4b"},
				Fallback:   "llama3.1",
				TimeoutSec: 60,
			},
			Local: LocalConfig{
				Binary:     "llama-cli",
				ModelPath:  "models/qwen3-4b.gguf",
				MaxTokens:  400,
				TimeoutSec: 120,
			},
			OpenAI: OpenAIConfig{
				BaseURL:   "https://api.groq.com/openai/v1",
				APIKeyEnv: "GROQ_API_KEY",
				Model:     "llama-3.1-8b-instant",
			},
			Gemini: GeminiConfig{APIKeyEnv: "GEMINI_API_KEY", Model: "gemini-2.0-flash"},
		},
		Audio: AudioConfig{
			Accent:       "british",
			MaxAttempts:  3,
			RetryDelayMs: 2000,
			EspeakVoice:  "en-gb",
			EspeakRate:   165,
		},
		Render: RenderConfig{
			Backend:      "ffmpeg",
			Width:        1080,
			Height:       1920,
			FPS:          30,
			Font:         "DejaVuSans",
			ManimScript:  "scripts/render_manim_shorts.py",
			ManimScene:   "STEMScene",
			ManimQuality: "qh",
		},
		Combine: CombineConfig{PadSec: 0.5, AudioBitrate: "192k"},
		Upload: UploadConfig{
			Visibility:      "private",
			CategoryID:      "27",
			DefaultLanguage: "en",
		},
		History: HistoryConfig{Key: "mathshorts:runs", MaxRuns: 200},
		Events:  EventsConfig{Subject: "mathshorts.run.completed"},
	}
}

// Load reads a YAML (or .toml) file over the defaults.
// A missing file at DefaultPath is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && path == DefaultPath {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse toml config %s: %w", path, err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse yaml config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the pipeline cannot act on
func (c *Config) Validate() error {
	if !contains(Providers, c.Script.Provider) {
		return fmt.Errorf("script.provider %q: %w", c.Script.Provider, ErrUnknownProvider)
	}
	if !contains(Backends, c.Render.Backend) {
		return fmt.Errorf("render.backend %q: %w", c.Render.Backend, ErrUnknownBackend)
	}
	switch {
	case c.Script.MaxWords < 0:
		return fmt.Errorf("script.max_words must be >= 0: %w", ErrInvalidValue)
	case c.Render.DurationSec < 0:
		return fmt.Errorf("render.duration_sec must be >= 0: %w", ErrInvalidValue)
	case c.Combine.PadSec < 0:
		return fmt.Errorf("combine.pad_sec must be >= 0: %w", ErrInvalidValue)
	case c.Render.Width <= 0 || c.Render.Height <= 0 || c.Render.FPS <= 0:
		return fmt.Errorf("render width/height/fps must be positive: %w", ErrInvalidValue)
	case c.Paths.Output == "":
		return fmt.Errorf("paths.output is required: %w", ErrInvalidValue)
	}
	switch c.Topic.Source {
	case "curated", "wikipedia", "reddit":
	default:
		return fmt.Errorf("topic.source %q: %w", c.Topic.Source, ErrInvalidValue)
	}
	switch c.Topic.Policy {
	case "random", "round_robin":
	default:
		return fmt.Errorf("topic.policy %q: %w", c.Topic.Policy, ErrInvalidValue)
	}
	return nil
}

// APIKey reads a secret named by an *_env setting
func APIKey(envName string) string {
	if envName == "" {
		return ""
	}
	return os.Getenv(envName)
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
