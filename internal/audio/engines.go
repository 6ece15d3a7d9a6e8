package audio

import (
	"context"
	"strconv"
	"strings"

	"math-shorts-pipeline/internal/shell"
)

// Engine converts text into one audio file
type Engine interface {
	Name() string
	// Ext is the file extension the engine writes, with the dot
	Ext() string
	// Available reports why the engine cannot run, or nil
	Available() error
	Synthesize(ctx context.Context, text, outPath string) error
}

// voices maps the configured accent to an edge-tts voice
var voices = map[string]string{
	"british":  "en-GB-RyanNeural",
	"american": "en-US-GuyNeural",
}

// EdgeTTS is the primary engine: Microsoft neural voices through the edge-tts CLI
type EdgeTTS struct {
	Runner shell.Runner
	Voice  string
}

func NewEdgeTTS(runner shell.Runner, accent string) *EdgeTTS {
	voice, ok := voices[strings.ToLower(accent)]
	if !ok {
		voice = voices["british"]
	}
	return &EdgeTTS{Runner: runner, Voice: voice}
}

func (e *EdgeTTS) Name() string { return "edge-tts" }
func (e *EdgeTTS) Ext() string  { return ".mp3" }

func (e *EdgeTTS) Available() error {
	_, err := e.Runner.LookPath("edge-tts")
	return err
}

func (e *EdgeTTS) Synthesize(ctx context.Context, text, outPath string) error {
	_, err := e.Runner.Run(ctx, "edge-tts",
		"--voice", e.Voice,
		"--text", text,
		"--write-media", outPath,
	)
	return err
}

// Espeak is the offline fallback
type Espeak struct {
	Runner shell.Runner
	Voice  string
	Rate   int
}

func (e *Espeak) Name() string { return "espeak-ng" }
func (e *Espeak) Ext() string  { return ".wav" }

func (e *Espeak) Available() error {
	_, err := e.Runner.LookPath("espeak-ng")
	return err
}

func (e *Espeak) Synthesize(ctx context.Context, text, outPath string) error {
	args := []string{"-w", outPath}
	if e.Voice != "" {
		args = append(args, "-v", e.Voice)
	}
	if e.Rate > 0 {
		args = append(args, "-s", strconv.Itoa(e.Rate))
	}
	// text may start with "-"
	_, err := e.Runner.Run(ctx, "espeak-ng", append(args, "--", text)...)
	return err
}

// Command runs a user-supplied TTS program that accepts
// --text "..." --output path. Python scripts are run with python3.
type Command struct {
	Runner  shell.Runner
	Command string
}

func (c *Command) Name() string { return "command" }
func (c *Command) Ext() string  { return ".mp3" }

func (c *Command) bin() string {
	if strings.HasSuffix(c.Command, ".py") {
		return "python3"
	}
	return c.Command
}

func (c *Command) Available() error {
	_, err := c.Runner.LookPath(c.bin())
	return err
}

func (c *Command) Synthesize(ctx context.Context, text, outPath string) error {
	args := []string{"--text", text, "--output", outPath}
	if c.bin() == "python3" {
		args = append([]string{c.Command}, args...)
	}
	_, err := c.Runner.Run(ctx, c.bin(), args...)
	return err
}
