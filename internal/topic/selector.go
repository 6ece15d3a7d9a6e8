// Package topic picks the math topic a video is about.
//
// A Selector draws candidates from one Source (the curated list, a Wikipedia
// search or a subreddit), picks one with the configured policy and enriches
// its summary from the Wikipedia REST API. The built-in blurbs of the curated
// list keep selection working offline.
package topic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"math-shorts-pipeline/internal/artifact"
	"math-shorts-pipeline/internal/config"
	"math-shorts-pipeline/internal/textutil"
	"math-shorts-pipeline/internal/types"
)

const (
	PolicyRandom     = "random"
	PolicyRoundRobin = "round_robin"

	// CursorFile holds the round-robin position under the output root
	CursorFile = "topic_cursor.json"

	maxAttempts = 3
)

// Source yields candidate topics
type Source interface {
	Name() string
	Candidates(ctx context.Context) ([]types.Topic, error)
}

// Summarizer fetches a reference summary for a topic title
type Summarizer interface {
	Summary(ctx context.Context, title string) (string, error)
}

// Selector picks one topic per run
type Selector struct {
	source     Source
	fallback   Source
	summarizer Summarizer
	policy     string
	category   string
	sentences  int
	cursorPath string
	log        *slog.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// Option customises a Selector
type Option func(*Selector)

// WithSource replaces the configured source
func WithSource(src Source) Option { return func(s *Selector) { s.source = src } }

// WithSummarizer replaces the Wikipedia summary client; nil disables enrichment
func WithSummarizer(sum Summarizer) Option { return func(s *Selector) { s.summarizer = sum } }

// WithRand makes random selection reproducible
func WithRand(r *rand.Rand) Option { return func(s *Selector) { s.rng = r } }

func WithLogger(l *slog.Logger) Option { return func(s *Selector) { s.log = l } }

// New builds a Selector from the topic config. An empty wikipedia_url turns
// summary enrichment off.
func New(cfg config.TopicConfig, outputDir string, opts ...Option) *Selector {
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	curated := Curated{Category: cfg.Category}

	s := &Selector{
		fallback:   curated,
		policy:     cfg.Policy,
		category:   cfg.Category,
		sentences:  cfg.SummarySentences,
		cursorPath: filepath.Join(outputDir, CursorFile),
		log:        slog.Default(),
		rng:        rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x9e3779b97f4a7c15)),
	}

	var wiki *Wiki
	if cfg.WikipediaURL != "" {
		wiki = NewWiki(cfg.WikipediaURL, timeout)
		s.summarizer = wiki
	}

	switch cfg.Source {
	case "wikipedia":
		if wiki != nil {
			s.source = &WikipediaSource{Wiki: wiki, Category: cfg.Category}
		}
	case "reddit":
		s.source = &RedditSource{Subreddit: cfg.Subreddit, Category: cfg.Category, Sentences: cfg.SummarySentences}
	}
	if s.source == nil {
		s.source = curated
	}

	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Select returns the topic for a run. A non-empty name bypasses selection
// and only looks up its summary.
func (s *Selector) Select(ctx context.Context, name string) (*types.Topic, error) {
	if name = strings.TrimSpace(name); name != "" {
		return s.explicit(ctx, name), nil
	}

	candidates, err := s.candidates(ctx)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		t, err := s.pick(candidates)
		if err != nil {
			return nil, err
		}
		if err := s.enrich(ctx, &t); err != nil {
			lastErr = err
			s.log.Warn("topic rejected, picking another", "topic", t.Name, "attempt", attempt, "err", err)
			continue
		}
		s.log.Info("topic selected", "topic", t.Name, "source", t.Source, "policy", s.policy)
		return &t, nil
	}
	return nil, fmt.Errorf("no usable topic after %d attempts: %w", maxAttempts, lastErr)
}

func (s *Selector) candidates(ctx context.Context) ([]types.Topic, error) {
	cands, err := s.source.Candidates(ctx)
	if err == nil && len(cands) > 0 {
		return cands, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if s.source.Name() == s.fallback.Name() {
		if err == nil {
			err = errors.New("empty topic list")
		}
		return nil, err
	}
	s.log.Warn("topic source unavailable, using curated list", "source", s.source.Name(), "err", err)
	return s.fallback.Candidates(ctx)
}

func (s *Selector) explicit(ctx context.Context, name string) *types.Topic {
	t := types.Topic{Name: name, Category: s.category, Source: "request"}
	if blurb, ok := Blurb(name); ok {
		t.Summary = blurb
	}
	if err := s.enrich(ctx, &t); err != nil {
		t.Summary = fmt.Sprintf("%s is a topic in %s.", name, strings.ToLower(s.category))
	}
	return &t
}

// enrich replaces the summary with the Wikipedia extract when reachable,
// keeping any built-in summary otherwise
func (s *Selector) enrich(ctx context.Context, t *types.Topic) error {
	if s.summarizer != nil {
		sum, err := s.summarizer.Summary(ctx, t.Name)
		if err == nil {
			t.Summary = textutil.FirstSentences(sum, s.sentences)
			return nil
		}
		if t.Summary == "" {
			return err
		}
		s.log.Debug("wikipedia summary unavailable, using built-in", "topic", t.Name, "err", err)
	}
	if t.Summary == "" {
		return fmt.Errorf("no summary for %q", t.Name)
	}
	t.Summary = textutil.FirstSentences(t.Summary, s.sentences)
	return nil
}

func (s *Selector) pick(cands []types.Topic) (types.Topic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.policy != PolicyRoundRobin {
		return cands[s.rng.IntN(len(cands))], nil
	}

	var cur struct {
		Next int `json:"next"`
	}
	if data, err := os.ReadFile(s.cursorPath); err == nil {
		_ = json.Unmarshal(data, &cur)
	}
	idx := cur.Next % len(cands)
	if idx < 0 {
		idx = 0
	}
	cur.Next = idx + 1
	if err := artifact.WriteJSON(s.cursorPath, cur); err != nil {
		return types.Topic{}, fmt.Errorf("save topic cursor: %w", err)
	}
	return cands[idx], nil
}
