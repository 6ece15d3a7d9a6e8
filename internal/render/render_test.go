package render

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"math-shorts-pipeline/internal/config"
	"math-shorts-pipeline/internal/logging"
	"math-shorts-pipeline/internal/shell"
	"math-shorts-pipeline/internal/types"
)

func TestDefaultTable_Match(t *testing.T) {
	table := DefaultTable()
	tests := []struct {
		topic string
		want  string
	}{
		{"Pascal's triangle", "pascal_triangle"},
		{"Triangle", "default"},
		{"Fibonacci Sequence", "fibonacci"},
		{"FIBONACCI prime", "fibonacci"}, // first match wins over "prime"
		{"Pythagorean theorem", "pythagorean"},
		{"Pi", "pi"},
		{" pi ", "pi"},
		{"π day", "pi"},
		{"Pineapple", "default"},
		{"Euler's identity", "euler_identity"},
		{"Euler's formula", "euler_identity"},
		{"Euler characteristic", "default"},
		{"Golden ratio", "golden_ratio"},
		{"Mersenne prime", "primes"},
		{"Mandelbrot set", "fractal"},
		{"Sphere", "circle"},
		{"Quadratic equation", "quadratic"},
		{"Collatz conjecture", "default"},
		{"", "default"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, table.Match(tt.topic).ID, tt.topic)
	}
}

func TestTemplateTable_CustomOrderAndDefault(t *testing.T) {
	a := Template{ID: "a"}
	b := Template{ID: "b"}
	table := TemplateTable{
		Bindings: []Binding{
			{Contains("x"), a},
			{Contains("xy"), b},
			{nil, b},
		},
		Default: Template{ID: "fallback"},
	}
	assert.Equal(t, "a", table.Match("XYZ").ID)
	assert.Equal(t, "fallback", table.Match("nothing").ID)
	assert.Equal(t, []string{"a", "b", "b", "fallback"}, table.IDs())
}

func TestTemplate_Duration(t *testing.T) {
	s := &types.Script{Hook: "Hi.", CTA: "Bye."}
	s.WordCount = 40

	assert.Equal(t, 33.0, generic.Duration(s, 33))
	assert.Equal(t, pascalTriangle.FixedSec, pascalTriangle.Duration(s, 0))
	assert.Equal(t, 20.0, generic.Duration(s, 0))
	assert.Equal(t, minSceneSec, generic.Duration(&types.Script{Hook: "Short."}, 0))
	s.WordCount = 1000
	assert.Equal(t, maxSceneSec, generic.Duration(s, 0))
	assert.Equal(t, minSceneSec, generic.Duration(nil, 0))
}

func TestTemplate_LayoutSplitsTimeByWords(t *testing.T) {
	s := &types.Script{
		Hook:   "One two three.",
		Points: []string{"Four five six."},
		CTA:    "Ten eleven twelve!",
	}
	cards := fibonacci.Layout(types.Topic{Name: "Fibonacci"}, s, 9)

	// title, formula, one static line, then three captions
	require.Len(t, cards, 6)
	assert.Equal(t, "Fibonacci", cards[0].Text)
	assert.Equal(t, fibonacci.Formula, cards[1].Text)

	captions := cards[3:]
	assert.InDelta(t, 0, captions[0].Start, 1e-9)
	assert.InDelta(t, 3, captions[0].End, 1e-9)
	assert.InDelta(t, 6, captions[1].End, 1e-9)
	assert.InDelta(t, 9, captions[2].End, 1e-9)
}

func TestWrap(t *testing.T) {
	assert.Equal(t, []string{"aaa bbb", "ccc"}, wrap("aaa bbb ccc", 7))
	assert.Equal(t, []string{"supercalifragilistic"}, wrap("supercalifragilistic", 5))
	assert.Nil(t, wrap("  ", 5))
}

func TestEscapeDrawtext(t *testing.T) {
	assert.Equal(t, `Euler’s identity\: e^(iπ) + 1 = 0`, escapeDrawtext("Euler's identity: e^(iπ) + 1 = 0"))
	assert.Equal(t, `100\% \[ok\]\, yes\; no`, escapeDrawtext("100% [ok], yes; no"))
	assert.Equal(t, `a\\\\b`, escapeDrawtext(`a\b`))
}

func renderFake(dur string) *shell.Fake {
	return &shell.Fake{Handler: func(name string, args []string) ([]byte, error) {
		switch name {
		case "ffmpeg":
			return nil, os.WriteFile(args[len(args)-1], []byte("mp4"), 0o644)
		case "ffprobe":
			return []byte(dur), nil
		}
		return nil, nil
	}}
}

func TestRenderer_FFmpeg(t *testing.T) {
	dir := t.TempDir()
	fake := renderFake("20.000")
	r := New(config.Default().Render, fake, logging.Discard())

	topic := types.Topic{Name: "Fibonacci Sequence"}
	s := &types.Script{Hook: "The fascinating Fibonacci Sequence!", Points: []string{"Each term adds the two before it."}, CTA: "Follow for more!"}
	s.CountWords()

	scene, err := r.Render(context.Background(), topic, s, "ffmpeg", 20, dir)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "scene.mp4"), scene.Path)
	assert.Equal(t, "fibonacci", scene.Template)
	assert.Equal(t, "ffmpeg", scene.Backend)
	assert.InDelta(t, 20.0, scene.DurationSec, 1e-9)

	calls := fake.CallsTo("ffmpeg")
	require.Len(t, calls, 1)
	line := calls[0].Line()
	assert.Contains(t, line, "color=c=0x0B1D26:s=1080x1920:r=30:d=20.000")
	assert.Contains(t, line, "text='Fibonacci Sequence'")
	assert.Contains(t, line, "-t 20.000")
	assert.Len(t, fake.CallsTo("ffprobe"), 1)
}

func TestRenderer_Failures(t *testing.T) {
	r := New(config.Default().Render, &shell.Fake{Handler: func(name string, _ []string) ([]byte, error) {
		return nil, errors.New("encoder missing")
	}}, logging.Discard())

	_, err := r.Render(context.Background(), types.Topic{Name: "Pi"}, nil, "ffmpeg", 0, t.TempDir())
	assert.ErrorContains(t, err, "encoder missing")

	_, err = r.Render(context.Background(), types.Topic{Name: "Pi"}, nil, "blender", 0, t.TempDir())
	assert.ErrorIs(t, err, ErrUnknownBackend)
}

func manimFake(dir string) *shell.Fake {
	return &shell.Fake{Handler: func(name string, args []string) ([]byte, error) {
		switch name {
		case "manim":
			nested := filepath.Join(dir, "media", "videos", "render_manim_shorts", "1920p30")
			if err := os.MkdirAll(nested, 0o755); err != nil {
				return nil, err
			}
			return nil, os.WriteFile(filepath.Join(nested, manimOutputName+".mp4"), []byte("mp4"), 0o644)
		case "ffprobe":
			return []byte("15.0"), nil
		}
		return nil, nil
	}}
}

func manimConfig(t *testing.T) config.RenderConfig {
	cfg := config.Default().Render
	cfg.ManimScript = filepath.Join(t.TempDir(), "render_manim_shorts.py")
	require.NoError(t, os.WriteFile(cfg.ManimScript, []byte("# scenes"), 0o644))
	return cfg
}

func TestRenderer_Manim(t *testing.T) {
	dir := t.TempDir()
	fake := manimFake(dir)
	r := New(manimConfig(t), fake, logging.Discard())

	scene, err := r.Render(context.Background(), types.Topic{Name: "Euler's identity"}, nil, "manim", 0, dir)
	require.NoError(t, err)
	assert.Equal(t, "euler_identity", scene.Template)
	assert.FileExists(t, filepath.Join(dir, "scene.mp4"))

	calls := fake.CallsTo("manim")
	require.Len(t, calls, 1)
	line := calls[0].Line()
	assert.True(t, strings.HasPrefix(line, "manim -qh --format=mp4 --fps 30 --resolution 1080,1920"), line)
	assert.True(t, strings.HasSuffix(line, " STEMScene"), line)
	assert.Contains(t, calls[0].Env, EnvTemplate+"=euler_identity")
	assert.Contains(t, calls[0].Env, EnvDuration+"=15.000")
	assert.Contains(t, calls[0].Env, EnvTopicJSON+"="+filepath.Join(dir, "topic.json"))
}

func TestRenderer_ManimPerTemplateScenes(t *testing.T) {
	dir := t.TempDir()
	fake := manimFake(dir)
	cfg := manimConfig(t)
	cfg.ManimScene = ""
	r := New(cfg, fake, logging.Discard())

	_, err := r.Render(context.Background(), types.Topic{Name: "Fibonacci Sequence"}, nil, "manim", 0, dir)
	require.NoError(t, err)
	line := fake.CallsTo("manim")[0].Line()
	assert.True(t, strings.HasSuffix(line, " FibonacciScene"), line)
}

func TestRenderer_ManimMissing(t *testing.T) {
	fake := &shell.Fake{Missing: map[string]bool{"manim": true}}
	r := New(config.Default().Render, fake, logging.Discard())
	_, err := r.Render(context.Background(), types.Topic{Name: "Pi"}, nil, "manim", 0, t.TempDir())
	assert.ErrorIs(t, err, shell.ErrNotFound)
}
