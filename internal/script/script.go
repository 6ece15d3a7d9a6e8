// Package script turns a topic into a narration script.
//
// Providers are tried by an explicit state machine (see Machine). Every LLM
// provider shares one prompt and one response parser; the static provider
// builds a script from the topic summary alone and never fails.
package script

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"math-shorts-pipeline/internal/textutil"
	"math-shorts-pipeline/internal/types"
)

var (
	// ErrUnavailable means the provider is not installed, reachable or configured
	ErrUnavailable = errors.New("provider unavailable")
	// ErrEmptyResponse means the provider answered without usable text
	ErrEmptyResponse = errors.New("provider returned no usable script")
)

// Request is what every provider receives
type Request struct {
	Topic       types.Topic
	Model       string
	MaxWords    int
	Temperature float64
}

// Provider produces a script for a topic
type Provider interface {
	Name() string
	Generate(ctx context.Context, req Request) (*types.Script, error)
}

const systemPrompt = `You write scripts for 30-60 second educational math YouTube Shorts.
Open with a one-line hook, explain the idea in two or three short points and end with a one-line call to action.
Use simple spoken language. No markdown, no emojis, no formulas that cannot be read aloud.
Respond with ONLY valid JSON: {"hook": "...", "points": ["...", "..."], "cta": "..."}`

func userPrompt(req Request) string {
	words := req.MaxWords
	if words <= 0 {
		words = 150
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Write an engaging ~%d-word educational script about %s.\n\n", words, req.Topic.Name)
	if req.Topic.Summary != "" {
		fmt.Fprintf(&sb, "Context: %s\n\n", textutil.Truncate(req.Topic.Summary, 800))
	}
	sb.WriteString("Rules:\n- Hook first\n- Simple language\n- Clear flow\n- Plain text inside the JSON fields\n")
	return sb.String()
}

// fullPrompt is used by providers without a separate system role
func fullPrompt(req Request) string {
	return systemPrompt + "\n\n" + userPrompt(req)
}

type scriptJSON struct {
	Hook   string   `json:"hook"`
	Points []string `json:"points"`
	CTA    string   `json:"cta"`
}

// parseResponse turns raw model output into a script. JSON output is
// preferred; plain prose is split into hook, points and closing line.
func parseResponse(topic types.Topic, raw string) (*types.Script, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrEmptyResponse
	}

	var js scriptJSON
	if err := json.Unmarshal([]byte(cleanJSON(raw)), &js); err == nil && strings.TrimSpace(js.Hook) != "" {
		s := &types.Script{Topic: topic.Name, Hook: strings.TrimSpace(js.Hook), CTA: strings.TrimSpace(js.CTA)}
		for _, p := range js.Points {
			if p = strings.TrimSpace(p); p != "" {
				s.Points = append(s.Points, p)
			}
		}
		if s.CTA == "" {
			s.CTA = pickCTA(topic.Name)
		}
		if len(s.Points) == 0 {
			return nil, fmt.Errorf("%w: no points", ErrEmptyResponse)
		}
		return s, nil
	}

	sentences := textutil.SplitSentences(stripMarkdown(raw))
	if len(sentences) < 2 {
		return nil, fmt.Errorf("%w: %d sentence(s)", ErrEmptyResponse, len(sentences))
	}
	s := &types.Script{Topic: topic.Name, Hook: sentences[0]}
	body := sentences[1:]
	if last := body[len(body)-1]; len(body) > 1 && looksLikeCTA(last) {
		s.CTA = last
		body = body[:len(body)-1]
	} else {
		s.CTA = pickCTA(topic.Name)
	}
	s.Points = body
	return s, nil
}

var ctaWords = []string{"subscribe", "follow", "like", "share", "comment"}

func looksLikeCTA(sentence string) bool {
	l := strings.ToLower(sentence)
	for _, w := range ctaWords {
		if strings.Contains(l, w) {
			return true
		}
	}
	return false
}

// cleanJSON strips markdown fences if the model wraps its answer in ```json ... ```
func cleanJSON(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)
	// some local models prepend a sentence before the object
	if i := strings.Index(s, "{"); i > 0 {
		if j := strings.LastIndex(s, "}"); j > i {
			s = s[i : j+1]
		}
	}
	return s
}

func stripMarkdown(s string) string {
	r := strings.NewReplacer("**", "", "__", "", "#", "", "`", "")
	lines := strings.Split(r.Replace(s), "\n")
	for i, l := range lines {
		l = strings.TrimSpace(l)
		l = strings.TrimLeft(l, "-*• ")
		lines[i] = l
	}
	return strings.Join(lines, " ")
}
