package audio

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"math-shorts-pipeline/internal/config"
	"math-shorts-pipeline/internal/logging"
	"math-shorts-pipeline/internal/shell"
)

func testConfig() config.AudioConfig {
	cfg := config.Default().Audio
	cfg.RetryDelayMs = 0
	return cfg
}

// argAfter returns the value following flag in args
func argAfter(args []string, flag string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag {
			return args[i+1]
		}
	}
	return ""
}

// ttsFake writes a small file for TTS binaries and reports dur from ffprobe.
// failing binaries return an error every time.
func ttsFake(dur string, failing ...string) *shell.Fake {
	fail := map[string]bool{}
	for _, f := range failing {
		fail[f] = true
	}
	return &shell.Fake{Handler: func(name string, args []string) ([]byte, error) {
		if fail[name] {
			return nil, errors.New(name + " exploded")
		}
		switch name {
		case "edge-tts":
			return nil, os.WriteFile(argAfter(args, "--write-media"), []byte("mp3"), 0o644)
		case "espeak-ng":
			return nil, os.WriteFile(argAfter(args, "-w"), []byte("wav"), 0o644)
		case "ffprobe":
			return []byte(dur + "\n"), nil
		}
		return nil, nil
	}}
}

func TestSynthesize_PrimaryEngine(t *testing.T) {
	t.Setenv("TTS_COMMAND", "")
	dir := t.TempDir()
	fake := ttsFake("12.48")
	s := New(testConfig(), fake, logging.Discard())

	art, err := s.Synthesize(context.Background(), "Hello math world.", dir)
	require.NoError(t, err)

	assert.Equal(t, "edge-tts", art.Engine)
	assert.Equal(t, filepath.Join(dir, "audio.mp3"), art.Path)
	assert.InDelta(t, 12.48, art.DurationSec, 1e-9)

	calls := fake.CallsTo("edge-tts")
	require.Len(t, calls, 1)
	assert.Equal(t, "en-GB-RyanNeural", argAfter(calls[0].Args, "--voice"))
	assert.Empty(t, fake.CallsTo("espeak-ng"))
}

func TestSynthesize_FallsBackAfterRetries(t *testing.T) {
	t.Setenv("TTS_COMMAND", "")
	dir := t.TempDir()
	fake := ttsFake("3.5", "edge-tts")
	s := New(testConfig(), fake, logging.Discard())

	art, err := s.Synthesize(context.Background(), "Offline please.", dir)
	require.NoError(t, err)

	assert.Equal(t, "espeak-ng", art.Engine)
	assert.Equal(t, filepath.Join(dir, "audio.wav"), art.Path)
	assert.Len(t, fake.CallsTo("edge-tts"), testConfig().MaxAttempts)
	assert.Len(t, fake.CallsTo("espeak-ng"), 1)
}

func TestEspeak_TextAfterOptionTerminator(t *testing.T) {
	fake := ttsFake("1")
	e := &Espeak{Runner: fake, Voice: "en-gb", Rate: 165}
	out := filepath.Join(t.TempDir(), "audio.wav")

	require.NoError(t, e.Synthesize(context.Background(), "-1 is less than zero.", out))
	calls := fake.CallsTo("espeak-ng")
	require.Len(t, calls, 1)
	args := calls[0].Args
	require.GreaterOrEqual(t, len(args), 2)
	assert.Equal(t, []string{"--", "-1 is less than zero."}, args[len(args)-2:])
	assert.Equal(t, out, argAfter(args, "-w"))
}

func TestSynthesize_MissingPrimarySkipsRetries(t *testing.T) {
	t.Setenv("TTS_COMMAND", "")
	fake := ttsFake("2")
	fake.Missing = map[string]bool{"edge-tts": true}
	s := New(testConfig(), fake, logging.Discard())

	art, err := s.Synthesize(context.Background(), "Hi.", t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "espeak-ng", art.Engine)
	assert.Empty(t, fake.CallsTo("edge-tts"))
}

func TestSynthesize_BothEnginesFail(t *testing.T) {
	t.Setenv("TTS_COMMAND", "")
	fake := ttsFake("2", "edge-tts", "espeak-ng")
	s := New(testConfig(), fake, logging.Discard())

	_, err := s.Synthesize(context.Background(), "Doomed.", t.TempDir())
	require.ErrorIs(t, err, ErrAllEnginesFailed)
	assert.ErrorContains(t, err, "espeak-ng exploded")
}

func TestSynthesize_UnmeasurableAudioIsFailure(t *testing.T) {
	t.Setenv("TTS_COMMAND", "")
	fake := ttsFake("N/A")
	s := New(testConfig(), fake, logging.Discard())

	_, err := s.Synthesize(context.Background(), "Hi.", t.TempDir())
	require.ErrorIs(t, err, ErrAllEnginesFailed)
	assert.ErrorContains(t, err, "parse ffprobe duration")
}

func TestSynthesize_EmptyText(t *testing.T) {
	s := NewWithEngines(testConfig(), &shell.Fake{}, logging.Discard())
	_, err := s.Synthesize(context.Background(), "   ", t.TempDir())
	assert.ErrorIs(t, err, ErrNoText)
}

func TestSynthesize_CommandEngineFirst(t *testing.T) {
	t.Setenv("TTS_COMMAND", "tts/say.py")
	fake := ttsFake("4")
	fake.Handler = func(name string, args []string) ([]byte, error) {
		switch name {
		case "python3":
			assert.Equal(t, "tts/say.py", args[0])
			return nil, os.WriteFile(argAfter(args, "--output"), []byte("x"), 0o644)
		case "ffprobe":
			return []byte("4"), nil
		}
		return nil, errors.New("unexpected " + name)
	}
	s := New(testConfig(), fake, logging.Discard())
	assert.Equal(t, []string{"command", "edge-tts", "espeak-ng"}, s.Engines())

	art, err := s.Synthesize(context.Background(), "Custom voice.", t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "command", art.Engine)
}

func TestEdgeVoiceByAccent(t *testing.T) {
	assert.Equal(t, "en-US-GuyNeural", NewEdgeTTS(nil, "American").Voice)
	assert.Equal(t, "en-GB-RyanNeural", NewEdgeTTS(nil, "klingon").Voice)
}

func TestSleepHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleep(ctx, 0), context.Canceled)
}
