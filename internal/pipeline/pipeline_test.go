package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"math-shorts-pipeline/internal/artifact"
	"math-shorts-pipeline/internal/config"
	"math-shorts-pipeline/internal/history"
	"math-shorts-pipeline/internal/logging"
	"math-shorts-pipeline/internal/script"
	"math-shorts-pipeline/internal/types"
)

type stubSelector struct{ err error }

func (s stubSelector) Select(_ context.Context, name string) (*types.Topic, error) {
	if s.err != nil {
		return nil, s.err
	}
	if name == "" {
		name = "Golden ratio"
	}
	return &types.Topic{Name: name, Category: "Mathematics", Summary: "A ratio.", Source: "curated"}, nil
}

type stubGenerator struct{ err error }

func (g stubGenerator) Generate(_ context.Context, topic types.Topic, opts config.Resolved) (*script.Result, error) {
	if g.err != nil {
		return &script.Result{}, g.err
	}
	s := script.Static{}.Build(topic)
	script.Truncate(s, opts.MaxWords)
	s.Provider = "static"
	return &script.Result{Script: s}, nil
}

type stubSynth struct{ err error }

func (s stubSynth) Synthesize(_ context.Context, text, dir string) (*types.AudioArtifact, error) {
	if s.err != nil {
		return nil, s.err
	}
	p := filepath.Join(dir, "audio.mp3")
	return &types.AudioArtifact{Path: p, DurationSec: 12, Engine: "stub"}, os.WriteFile(p, []byte(text), 0o644)
}

type stubRenderer struct {
	err     error
	backend string
}

func (r *stubRenderer) Render(_ context.Context, topic types.Topic, _ *types.Script, backend string, _ float64, dir string) (*types.SceneArtifact, error) {
	r.backend = backend
	if r.err != nil {
		return nil, r.err
	}
	p := filepath.Join(dir, "scene.mp4")
	return &types.SceneArtifact{Path: p, DurationSec: 20, Template: "golden_ratio"}, os.WriteFile(p, []byte("scene"), 0o644)
}

type stubCombiner struct{ err error }

func (c stubCombiner) Combine(_ context.Context, scene *types.SceneArtifact, audio *types.AudioArtifact, dir string) (*types.FinalVideo, error) {
	if c.err != nil {
		return nil, c.err
	}
	p := filepath.Join(dir, "combined.mp4")
	return &types.FinalVideo{Path: p, DurationSec: audio.DurationSec + 0.5, SizeBytes: 8}, os.WriteFile(p, []byte("combined"), 0o644)
}

type stubUploader struct{ err error }

func (u stubUploader) Upload(context.Context, string, *types.VideoMetadata) (string, error) {
	if u.err != nil {
		return "", u.err
	}
	return "https://www.youtube.com/watch?v=stub", nil
}

type recordingEmitter struct {
	mu   sync.Mutex
	runs []*types.RunResult
	err  error
}

func (e *recordingEmitter) RunCompleted(_ context.Context, r *types.RunResult) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.runs = append(e.runs, r)
	return e.err
}

func newTestPipeline(t *testing.T, mutate func(*Options)) (*Pipeline, *Options) {
	t.Helper()
	store, err := artifact.New(t.TempDir())
	require.NoError(t, err)
	n := 0
	opts := Options{
		Config:      config.Default(),
		Store:       store,
		Selector:    stubSelector{},
		Generator:   stubGenerator{},
		Synthesizer: stubSynth{},
		Renderer:    &stubRenderer{},
		Combiner:    stubCombiner{},
		History:     history.NewMemory(10),
		Events:      &recordingEmitter{},
		Logger:      logging.Discard(),
		NewRunID: func() string {
			n++
			return fmt.Sprintf("run%04d", n)
		},
	}
	if mutate != nil {
		mutate(&opts)
	}
	p, err := New(opts)
	require.NoError(t, err)
	return p, &opts
}

func TestNew_RequiresStages(t *testing.T) {
	_, err := New(Options{Config: config.Default()})
	assert.Error(t, err)
}

func TestRun_Success(t *testing.T) {
	p, opts := newTestPipeline(t, nil)

	res := p.Run(context.Background(), config.RunOptions{Topic: "Golden ratio", Backend: "manim"})

	require.Equal(t, types.StatusSuccess, res.Status, "%v", res.Error)
	assert.Nil(t, res.Error)
	assert.Equal(t, opts.Store.FinalPath("Golden ratio"), res.OutputPath)
	assert.FileExists(t, res.OutputPath)
	assert.InDelta(t, 12.5, res.DurationSec, 1e-9)
	assert.Equal(t, "manim", opts.Renderer.(*stubRenderer).backend)
	assert.Equal(t, "Golden ratio Explained! #Shorts", res.Metadata.Title)
	assert.Empty(t, res.YouTubeURL)

	var stages []types.Stage
	for _, tm := range res.Timings {
		stages = append(stages, tm.Stage)
	}
	assert.Equal(t, []types.Stage{"select", "generate", "synthesize", "render", "combine"}, stages)

	var state types.RunResult
	dir := filepath.Join(opts.Store.Root, "runs", res.RunID)
	data, err := os.ReadFile(filepath.Join(dir, artifact.StateFile))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &state))
	assert.Equal(t, types.StatusSuccess, state.Status)
	assert.Equal(t, res.OutputPath, state.OutputPath)
	assert.FileExists(t, filepath.Join(dir, artifact.TopicFile))
	assert.FileExists(t, filepath.Join(dir, artifact.ScriptFile))

	recs, err := opts.History.Recent(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, res.RunID, recs[0].RunID)
	assert.Len(t, opts.Events.(*recordingEmitter).runs, 1)
}

func TestRun_FatalStagesAbort(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		stage    types.Stage
		sentinel error
		mutate   func(*Options)
		timings  int
	}{
		{types.StageSelect, types.ErrSelection, func(o *Options) { o.Selector = stubSelector{err: boom} }, 1},
		{types.StageGenerate, types.ErrGeneration, func(o *Options) { o.Generator = stubGenerator{err: boom} }, 2},
		{types.StageSynthesize, types.ErrSynthesis, func(o *Options) { o.Synthesizer = stubSynth{err: boom} }, 3},
		{types.StageRender, types.ErrRender, func(o *Options) { o.Renderer = &stubRenderer{err: boom} }, 4},
		{types.StageCombine, types.ErrCombine, func(o *Options) { o.Combiner = stubCombiner{err: boom} }, 5},
	}
	for _, tt := range tests {
		t.Run(string(tt.stage), func(t *testing.T) {
			p, opts := newTestPipeline(t, tt.mutate)

			res := p.Run(context.Background(), config.RunOptions{})

			assert.Equal(t, types.StatusFailure, res.Status)
			require.NotNil(t, res.Error)
			assert.Equal(t, tt.stage, res.Error.Stage)
			assert.ErrorIs(t, res.Error, boom)
			assert.ErrorIs(t, res.Error, tt.sentinel)
			assert.Empty(t, res.OutputPath)
			assert.Len(t, res.Timings, tt.timings)

			videos, err := opts.Store.FinalVideos()
			require.NoError(t, err)
			assert.Empty(t, videos, "nothing is promoted after a fatal error")

			recs, _ := opts.History.Recent(context.Background(), 1)
			require.Len(t, recs, 1)
			assert.Equal(t, tt.stage, recs[0].Stage)
		})
	}
}

func TestRun_UploadFailureIsPartial(t *testing.T) {
	p, _ := newTestPipeline(t, func(o *Options) { o.Uploader = stubUploader{err: errors.New("quota")} })

	res := p.Run(context.Background(), config.RunOptions{Topic: "Pi"})

	assert.Equal(t, types.StatusPartial, res.Status)
	assert.NotEmpty(t, res.OutputPath)
	require.NotNil(t, res.Error)
	assert.Equal(t, types.StagePublish, res.Error.Stage)
	assert.ErrorIs(t, res.Error, types.ErrPublish)
}

func TestRun_UploadSuccess(t *testing.T) {
	p, _ := newTestPipeline(t, func(o *Options) { o.Uploader = stubUploader{} })

	res := p.Run(context.Background(), config.RunOptions{Topic: "Pi"})

	assert.Equal(t, types.StatusSuccess, res.Status)
	assert.Equal(t, "https://www.youtube.com/watch?v=stub", res.YouTubeURL)
	assert.Len(t, res.Timings, 6)
}

func TestRun_BookkeepingFailuresDoNotChangeStatus(t *testing.T) {
	p, _ := newTestPipeline(t, func(o *Options) {
		o.Events = &recordingEmitter{err: errors.New("nats down")}
	})
	res := p.Run(context.Background(), config.RunOptions{})
	assert.Equal(t, types.StatusSuccess, res.Status)
}

func TestRun_CancelledContext(t *testing.T) {
	p, opts := newTestPipeline(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := p.Run(ctx, config.RunOptions{})

	assert.Equal(t, types.StatusFailure, res.Status)
	assert.Equal(t, types.StageSelect, res.Error.Stage)
	assert.ErrorIs(t, res.Error, context.Canceled)
	assert.Len(t, opts.Events.(*recordingEmitter).runs, 1)
}

func TestGenerateScript(t *testing.T) {
	p, _ := newTestPipeline(t, nil)

	out, err := p.GenerateScript(context.Background(), config.RunOptions{Topic: "Fibonacci Sequence", MaxWords: 10})
	require.NoError(t, err)
	assert.Equal(t, "Fibonacci Sequence", out.Topic.Name)
	assert.LessOrEqual(t, out.Script.WordCount, 10)

	p, _ = newTestPipeline(t, func(o *Options) { o.Generator = stubGenerator{err: errors.New("all down")} })
	_, err = p.GenerateScript(context.Background(), config.RunOptions{})
	var se *types.StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, types.StageGenerate, se.Stage)
}

type flakySynth struct{ failOn string }

func (f flakySynth) Synthesize(ctx context.Context, text, dir string) (*types.AudioArtifact, error) {
	if f.failOn != "" && strings.Contains(text, f.failOn) {
		return nil, errors.New("engine crashed")
	}
	return stubSynth{}.Synthesize(ctx, text, dir)
}

func TestBatch_ContinuesPastFailures(t *testing.T) {
	p, _ := newTestPipeline(t, func(o *Options) { o.Synthesizer = flakySynth{failOn: "Tesseract"} })

	out := p.Batch(context.Background(), []config.RunOptions{
		{Topic: "Pi"},
		{Topic: "Tesseract"},
		{Topic: "Prime number"},
	})

	require.Len(t, out, 3)
	assert.Equal(t, types.StatusSuccess, out[0].Status)
	assert.NotEmpty(t, out[0].OutputPath)
	assert.Equal(t, types.StatusFailure, out[1].Status)
	assert.Equal(t, types.StageSynthesize, out[1].Error.Stage)
	assert.Empty(t, out[1].OutputPath)
	assert.Equal(t, 2, out[2].Index)
	assert.Equal(t, "Prime number", out[2].Topic)
	assert.Equal(t, types.StatusSuccess, out[2].Status)
	assert.Contains(t, out[1].String(), "Tesseract")
}
