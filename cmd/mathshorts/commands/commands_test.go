package commands

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"math-shorts-pipeline/internal/pipeline"
	"math-shorts-pipeline/internal/script"
	"math-shorts-pipeline/internal/shell"
)

func init() { disableColor() }

// offlineConfig writes a config that never touches the network
func offlineConfig(t *testing.T) (path, output string) {
	t.Helper()
	t.Setenv("TTS_COMMAND", "")
	dir := t.TempDir()
	output = filepath.Join(dir, "output")
	cfg := `
server:
  log_level: error
paths:
  output: ` + output + `
topic:
  wikipedia_url: ""
script:
  provider: static
  ollama:
    url: http://127.0.0.1:1
audio:
  retry_delay_ms: 0
`
	path = filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	return path, output
}

func execute(t *testing.T, a *app, args ...string) (string, string, error) {
	t.Helper()
	root := newRootCmd(a)
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func argAfter(args []string, flag string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag {
			return args[i+1]
		}
	}
	return ""
}

func mediaFake() *shell.Fake {
	return &shell.Fake{
		Missing: map[string]bool{"llama-cli": true},
		Handler: func(name string, args []string) ([]byte, error) {
			switch name {
			case "edge-tts":
				return nil, os.WriteFile(argAfter(args, "--write-media"), []byte("mp3"), 0o644)
			case "ffmpeg":
				return nil, os.WriteFile(args[len(args)-1], []byte("mp4"), 0o644)
			case "ffprobe":
				return []byte("11.0"), nil
			}
			return nil, errors.New("unexpected " + name)
		},
	}
}

func TestRoot_ShowsHelp(t *testing.T) {
	out, _, err := execute(t, &app{})
	require.NoError(t, err)
	assert.Contains(t, out, "Usage:")
	for _, sub := range []string{"run", "script", "batch", "serve"} {
		assert.Contains(t, out, sub)
	}
}

func TestRoot_RejectsUnknownFlags(t *testing.T) {
	_, _, err := execute(t, &app{}, "--topic", "Pi")
	assert.Error(t, err)
}

func TestRoot_BadConfig(t *testing.T) {
	_, stderr, err := execute(t, &app{}, "script", "--config", filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
	assert.Contains(t, stderr, "Could not load configuration")
}

func TestScriptCommand(t *testing.T) {
	cfg, _ := offlineConfig(t)
	out, _, err := execute(t, &app{runner: mediaFake()}, "script", "-c", cfg, "--topic", "Fibonacci Sequence", "--max-words", "10")
	require.NoError(t, err)

	var res pipeline.ScriptResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "Fibonacci Sequence", res.Topic.Name)
	assert.Equal(t, "static", res.Script.Provider)
	assert.LessOrEqual(t, res.Script.WordCount, 10)
	require.NotEmpty(t, res.Attempts)
	assert.Equal(t, script.FallbackStatic, res.Attempts[len(res.Attempts)-1].State)
}

func TestRunCommand(t *testing.T) {
	cfg, output := offlineConfig(t)
	out, _, err := execute(t, &app{runner: mediaFake()}, "run", "-c", cfg, "-t", "Golden ratio")
	require.NoError(t, err)
	assert.Contains(t, out, "complete")
	assert.Contains(t, out, "final_Golden_ratio.mp4")
	assert.FileExists(t, filepath.Join(output, "final_Golden_ratio.mp4"))
}

func TestRunCommand_JSONFailure(t *testing.T) {
	cfg, _ := offlineConfig(t)
	fake := mediaFake()
	fake.Missing["edge-tts"] = true
	fake.Missing["espeak-ng"] = true

	out, _, err := execute(t, &app{runner: fake}, "run", "-c", cfg, "-t", "Pi", "--json")
	require.Error(t, err)

	var res map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "failure", res["status"])
	assert.Equal(t, "synthesize", res["error"].(map[string]any)["stage"])
}

func TestBatchCommand(t *testing.T) {
	cfg, output := offlineConfig(t)
	file := filepath.Join(t.TempDir(), "prompts.csv")
	require.NoError(t, os.WriteFile(file, []byte("topic,backend\nPi,ffmpeg\nPrime number,\n"), 0o644))

	out, _, err := execute(t, &app{runner: mediaFake()}, "batch", "-c", cfg, "--file", file)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "success"))
	assert.FileExists(t, filepath.Join(output, batchResultsFile))
}

func TestBatchCommand_MissingFile(t *testing.T) {
	cfg, _ := offlineConfig(t)
	_, stderr, err := execute(t, &app{}, "batch", "-c", cfg, "--file", filepath.Join(t.TempDir(), "none.csv"))
	assert.Error(t, err)
	assert.Contains(t, stderr, "Could not read batch file")
}
