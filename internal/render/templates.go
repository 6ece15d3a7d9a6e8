package render

import (
	"math"
	"strings"

	"math-shorts-pipeline/internal/types"
)

// Template is a declarative scene description: colours, a headline formula
// and a few static lines, plus the manim scene that draws it in full
type Template struct {
	ID         string
	Scene      string // manim Scene class
	Background string
	Accent     string
	Formula    string
	Lines      []string
	// FixedSec pins the scene length; zero derives it from the script
	FixedSec float64
}

const (
	secondsPerWord = 0.5
	minSceneSec    = 10.0
	maxSceneSec    = 60.0
)

var (
	pascalTriangle = Template{
		ID: "pascal_triangle", Scene: "PascalTriangleScene",
		Background: "0x101820", Accent: "0xFEE715", Formula: "C(n,k) = C(n-1,k-1) + C(n-1,k)",
		Lines:    []string{"1", "1 1", "1 2 1", "1 3 3 1", "1 4 6 4 1"},
		FixedSec: 20,
	}
	fibonacci = Template{
		ID: "fibonacci", Scene: "FibonacciScene",
		Background: "0x0B1D26", Accent: "0xF2A541", Formula: "F(n) = F(n-1) + F(n-2)",
		Lines: []string{"0, 1, 1, 2, 3, 5, 8, 13, 21 ..."},
	}
	pythagorean = Template{
		ID: "pythagorean", Scene: "PythagoreanScene",
		Background: "0x14213D", Accent: "0xFCA311", Formula: "a² + b² = c²",
		Lines: []string{"3² + 4² = 5²"},
	}
	piTemplate = Template{
		ID: "pi", Scene: "PiScene",
		Background: "0x1B1B3A", Accent: "0x6DD3CE", Formula: "π = C / d",
		Lines: []string{"3.14159 26535 89793 ..."},
	}
	eulerIdentity = Template{
		ID: "euler_identity", Scene: "EulerIdentityScene",
		Background: "0x000000", Accent: "0xE0AAFF", Formula: "e^(iπ) + 1 = 0",
		Lines:    []string{"e, i, π, 1, 0"},
		FixedSec: 15,
	}
	goldenRatio = Template{
		ID: "golden_ratio", Scene: "GoldenRatioScene",
		Background: "0x2D1E2F", Accent: "0xFFD166", Formula: "φ = (1 + √5) / 2",
		Lines: []string{"φ ≈ 1.6180339887"},
	}
	primes = Template{
		ID: "primes", Scene: "PrimesScene",
		Background: "0x0D1B2A", Accent: "0x90E0EF", Formula: "2, 3, 5, 7, 11, 13 ...",
		Lines: []string{"Only 1 and itself divide it"},
	}
	fractal = Template{
		ID: "fractal", Scene: "FractalScene",
		Background: "0x03071E", Accent: "0xF48C06", Formula: "z → z² + c",
		Lines: []string{"Infinite detail at every scale"},
	}
	circle = Template{
		ID: "circle", Scene: "CircleScene",
		Background: "0x0A2463", Accent: "0x3E92CC", Formula: "A = πr²",
		Lines: []string{"C = 2πr"},
	}
	quadratic = Template{
		ID: "quadratic", Scene: "QuadraticScene",
		Background: "0x1D3557", Accent: "0xE63946", Formula: "x = (-b ± √(b² - 4ac)) / 2a",
	}
	generic = Template{
		ID: "default", Scene: "STEMScene",
		Background: "0x111111", Accent: "0x4CC9F0",
	}
)

// Duration resolves the scene length: an explicit request wins, then the
// template's fixed length, then the script pacing clamped to a sane range
func (t Template) Duration(script *types.Script, requested float64) float64 {
	if requested > 0 {
		return requested
	}
	if t.FixedSec > 0 {
		return t.FixedSec
	}
	est := 0.0
	if script != nil {
		words := script.WordCount
		if words == 0 {
			words = len(strings.Fields(script.FullText()))
		}
		est = float64(words) * secondsPerWord
	}
	return math.Min(maxSceneSec, math.Max(minSceneSec, est))
}

// Card is one timed text overlay
type Card struct {
	Text     string
	FontSize int
	Color    string
	Y        float64 // fraction of frame height
	Start    float64
	End      float64
}

const wrapWidth = 26

// Layout turns a template and a script into timed cards. Title and formula
// stay on screen; narration captions follow each other, each getting a share
// of the duration proportional to its word count.
func (t Template) Layout(topic types.Topic, script *types.Script, dur float64) []Card {
	cards := []Card{{Text: topic.Name, FontSize: 72, Color: t.Accent, Y: 0.12, Start: 0, End: dur}}
	if t.Formula != "" {
		cards = append(cards, Card{Text: t.Formula, FontSize: 60, Color: "white", Y: 0.28, Start: 0, End: dur})
	}
	for i, l := range t.Lines {
		cards = append(cards, Card{Text: l, FontSize: 44, Color: t.Accent, Y: 0.38 + float64(i)*0.04, Start: 0, End: dur})
	}

	var segments []string
	if script != nil {
		segments = append(segments, script.Hook)
		segments = append(segments, script.Points...)
		segments = append(segments, script.CTA)
	}
	total := 0
	for _, s := range segments {
		total += len(strings.Fields(s))
	}
	if total == 0 {
		return cards
	}

	at := 0.0
	for _, s := range segments {
		words := len(strings.Fields(s))
		if words == 0 {
			continue
		}
		end := at + dur*float64(words)/float64(total)
		for i, line := range wrap(s, wrapWidth) {
			cards = append(cards, Card{Text: line, FontSize: 48, Color: "white", Y: 0.62 + float64(i)*0.035, Start: at, End: end})
		}
		at = end
	}
	return cards
}

// wrap breaks s into lines of at most width runes, on word boundaries
func wrap(s string, width int) []string {
	var lines []string
	var cur []string
	n := 0
	for _, w := range strings.Fields(s) {
		l := len([]rune(w))
		if n > 0 && n+1+l > width {
			lines = append(lines, strings.Join(cur, " "))
			cur, n = nil, 0
		}
		if n > 0 {
			n++
		}
		cur = append(cur, w)
		n += l
	}
	if len(cur) > 0 {
		lines = append(lines, strings.Join(cur, " "))
	}
	return lines
}
