package types

import (
	"strings"
	"time"
)

// Topic is the subject of one video, produced by the topic stage
type Topic struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Summary  string `json:"summary"`
	Source   string `json:"source"`
}

// Script is the narration plan for one video
type Script struct {
	Topic     string   `json:"topic"`
	Hook      string   `json:"hook"`
	Points    []string `json:"points"`
	CTA       string   `json:"cta"`
	WordCount int      `json:"word_count"` // advisory, used for render pacing only
	Provider  string   `json:"provider"`
	Model     string   `json:"model,omitempty"`
}

// FullText is the exact text handed to the TTS engine
func (s *Script) FullText() string {
	parts := make([]string, 0, len(s.Points)+2)
	if s.Hook != "" {
		parts = append(parts, s.Hook)
	}
	for _, p := range s.Points {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if s.CTA != "" {
		parts = append(parts, s.CTA)
	}
	return strings.Join(parts, " ")
}

// CountWords recomputes WordCount from the script text and returns it
func (s *Script) CountWords() int {
	s.WordCount = len(strings.Fields(s.FullText()))
	return s.WordCount
}

// EstimatedSeconds is a pacing hint (~0.5s per spoken word)
func (s *Script) EstimatedSeconds() float64 {
	return float64(s.WordCount) * 0.5
}

// AudioArtifact is the narration file with its measured duration
type AudioArtifact struct {
	Path        string  `json:"path"`
	DurationSec float64 `json:"duration_sec"`
	Engine      string  `json:"engine"`
}

// SceneArtifact is the silent rendered animation
type SceneArtifact struct {
	Path        string  `json:"path"`
	DurationSec float64 `json:"duration_sec"`
	Template    string  `json:"template"`
	Backend     string  `json:"backend"`
}

// FinalVideo is the muxed deliverable
type FinalVideo struct {
	Path        string  `json:"path"`
	DurationSec float64 `json:"duration_sec"`
	SizeBytes   int64   `json:"size_bytes"`
}

// VideoMetadata holds upload metadata for automation hooks
type VideoMetadata struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	CategoryID  string   `json:"category_id"`
	Visibility  string   `json:"visibility"`
}

// Status of a pipeline run
type Status string

const (
	StatusSuccess Status = "success"
	StatusPartial Status = "partial"
	StatusFailure Status = "failure"
)

// StageTiming records how long a stage took
type StageTiming struct {
	Stage   Stage   `json:"stage"`
	Seconds float64 `json:"seconds"`
}

// RunResult is returned by the orchestrator and serialized by the API
type RunResult struct {
	RunID       string         `json:"run_id"`
	Status      Status         `json:"status"`
	Topic       *Topic         `json:"topic,omitempty"`
	Script      *Script        `json:"script,omitempty"`
	OutputPath  string         `json:"output_path,omitempty"`
	DurationSec float64        `json:"duration_sec,omitempty"`
	Timings     []StageTiming  `json:"timings"`
	Error       *StageError    `json:"error,omitempty"`
	Metadata    *VideoMetadata `json:"metadata,omitempty"`
	YouTubeURL  string         `json:"youtube_url,omitempty"`
	StartedAt   time.Time      `json:"started_at"`
	CompletedAt time.Time      `json:"completed_at"`
}

// AddTiming appends a stage timing
func (r *RunResult) AddTiming(stage Stage, d time.Duration) {
	r.Timings = append(r.Timings, StageTiming{Stage: stage, Seconds: d.Seconds()})
}
