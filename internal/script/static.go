package script

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"

	"math-shorts-pipeline/internal/textutil"
	"math-shorts-pipeline/internal/types"
)

const (
	maxStaticPoints = 3
	minPointChars   = 20
)

// hookRule pairs a topic keyword with its hook. Order matters: the first
// keyword found in the lower-cased topic name wins.
type hookRule struct {
	keyword string
	format  string
}

var hookRules = []hookRule{
	{"theorem", "A legendary result: %s!"},
	{"equation", "The famous %s explained!"},
	{"number", "What makes %s special?"},
	{"sequence", "The fascinating %s!"},
	{"paradox", "Can you solve %s?"},
	{"problem", "The mind-bending %s!"},
	{"constant", "The mysterious number %s!"},
	{"function", "Understanding %s!"},
	{"formula", "The powerful %s!"},
}

const defaultHook = "Let's explore %s!"

// ctas are kept to five words or fewer so hook and cta fit small budgets
var ctas = []string{
	"Like and subscribe for more!",
	"Follow for daily math shorts!",
	"Subscribe for more math lessons!",
	"Share this with math lovers!",
	"Tap like if you learned!",
}

// Static builds a script from the topic summary alone
type Static struct{}

func (Static) Name() string { return "static" }

func (s Static) Generate(_ context.Context, req Request) (*types.Script, error) {
	return s.Build(req.Topic), nil
}

// Build is deterministic: the same topic always yields the same script
func (Static) Build(topic types.Topic) *types.Script {
	return &types.Script{
		Topic:  topic.Name,
		Hook:   hookFor(topic.Name),
		Points: keyPoints(topic.Summary, topic.Name),
		CTA:    pickCTA(topic.Name),
	}
}

func hookFor(name string) string {
	lower := strings.ToLower(name)
	for _, r := range hookRules {
		if strings.Contains(lower, r.keyword) {
			return fmt.Sprintf(r.format, name)
		}
	}
	return fmt.Sprintf(defaultHook, name)
}

// keyPoints keeps the first sentences longer than minPointChars. A summary
// without such sentences is used whole so the script is never empty.
func keyPoints(summary, name string) []string {
	var points []string
	for _, s := range textutil.SplitSentences(summary) {
		if len(s) > minPointChars {
			points = append(points, s)
			if len(points) == maxStaticPoints {
				break
			}
		}
	}
	if len(points) == 0 {
		if summary = strings.TrimSpace(summary); summary != "" {
			return []string{summary}
		}
		return []string{fmt.Sprintf("%s is one of the great ideas in mathematics.", name)}
	}
	return points
}

func pickCTA(name string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.ToLower(name)))
	return ctas[h.Sum32()%uint32(len(ctas))]
}
