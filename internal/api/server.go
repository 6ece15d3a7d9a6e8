// Package api exposes the pipeline over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"math-shorts-pipeline/internal/artifact"
	"math-shorts-pipeline/internal/config"
	"math-shorts-pipeline/internal/history"
	"math-shorts-pipeline/internal/pipeline"
	"math-shorts-pipeline/internal/types"
)

const (
	maxBodyBytes    = 1 << 20
	defaultRunLimit = 20
	defaultAuto     = 3
	maxAuto         = 10
	maxBatchItems   = 50
)

// stageRequest tags errors caused by the request itself
const stageRequest = "request"

// Pipeline is what the handlers drive
type Pipeline interface {
	Run(ctx context.Context, req config.RunOptions) *types.RunResult
	GenerateScript(ctx context.Context, req config.RunOptions) (*pipeline.ScriptResult, error)
	Batch(ctx context.Context, items []config.RunOptions) []pipeline.BatchResult
}

// Options for NewServer. History and Templates may be empty.
type Options struct {
	Pipeline  Pipeline
	Store     *artifact.Store
	History   history.Store
	Templates []string
	Logger    *slog.Logger
}

type server struct {
	Options
}

// NewServer builds the HTTP handler
func NewServer(opts Options) http.Handler {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	s := &server{Options: opts}

	mux := http.NewServeMux()
	mux.Handle("GET /{$}", HealthHandler())
	mux.Handle("GET /health", HealthHandler())
	mux.HandleFunc("GET /status", s.status)
	mux.HandleFunc("GET /runs", s.runs)
	mux.HandleFunc("GET /templates", s.templates)
	mux.HandleFunc("POST /run-animation", s.run)
	mux.HandleFunc("POST /runs", s.run)
	mux.HandleFunc("POST /script", s.script)
	mux.HandleFunc("POST /batch", s.batch)
	mux.HandleFunc("POST /auto-generate-videos", s.auto)
	return s.logRequests(mux)
}

// HealthHandler answers {"status":"ok"}
func HealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, `{"status":"ok"}`)
	})
}

type statusResponse struct {
	Status      string              `json:"status"`
	TotalVideos int                 `json:"total_videos"`
	Latest      *artifact.VideoInfo `json:"latest_video,omitempty"`
}

func (s *server) status(w http.ResponseWriter, r *http.Request) {
	latest, n, err := s.Store.Latest()
	switch {
	case errors.Is(err, artifact.ErrNoVideos):
		writeJSON(w, http.StatusOK, statusResponse{Status: "no final videos"})
	case err != nil:
		writeError(w, http.StatusInternalServerError, "status", err)
	default:
		writeJSON(w, http.StatusOK, statusResponse{Status: "operational", TotalVideos: n, Latest: &latest})
	}
}

func (s *server) runs(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, stageRequest, fmt.Errorf("limit must be a positive integer, got %q", v))
			return
		}
		limit = n
	}
	recs := []history.Record{}
	if s.History != nil {
		got, err := s.History.Recent(r.Context(), limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "history", err)
			return
		}
		recs = append(recs, got...)
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": recs})
}

func (s *server) templates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"templates": s.Templates})
}

func (s *server) run(w http.ResponseWriter, r *http.Request) {
	var req config.RunOptions
	if !decode(w, r, &req) {
		return
	}
	res := s.Pipeline.Run(r.Context(), req)
	if res.Status == types.StatusFailure {
		writeJSON(w, http.StatusInternalServerError, res.Error)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *server) script(w http.ResponseWriter, r *http.Request) {
	var req config.RunOptions
	if !decode(w, r, &req) {
		return
	}
	out, err := s.Pipeline.GenerateScript(r.Context(), req)
	if err != nil {
		var se *types.StageError
		if errors.As(err, &se) {
			writeJSON(w, http.StatusInternalServerError, se)
			return
		}
		writeError(w, http.StatusInternalServerError, string(types.StageGenerate), err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type batchRequest struct {
	Prompts []config.RunOptions `json:"prompts"`
}

type batchResponse struct {
	Total     int                    `json:"total"`
	Succeeded int                    `json:"succeeded"`
	Failed    int                    `json:"failed"`
	Results   []pipeline.BatchResult `json:"results"`
}

func newBatchResponse(results []pipeline.BatchResult) batchResponse {
	resp := batchResponse{Total: len(results), Results: results}
	for _, r := range results {
		if r.Status == types.StatusFailure {
			resp.Failed++
		} else {
			resp.Succeeded++
		}
	}
	return resp
}

func (s *server) batch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if !decode(w, r, &req) {
		return
	}
	switch {
	case len(req.Prompts) == 0:
		writeError(w, http.StatusBadRequest, stageRequest, pipeline.ErrEmptyBatch)
		return
	case len(req.Prompts) > maxBatchItems:
		writeError(w, http.StatusBadRequest, stageRequest, fmt.Errorf("at most %d prompts per batch", maxBatchItems))
		return
	}
	// item failures are reported in the body, not the status code
	writeJSON(w, http.StatusOK, newBatchResponse(s.Pipeline.Batch(r.Context(), req.Prompts)))
}

type autoRequest struct {
	Count    int    `json:"count"`
	Provider string `json:"provider"`
	Backend  string `json:"backend"`
	MaxWords int    `json:"max_words"`
}

// auto runs count pipeline passes with selector-chosen topics
func (s *server) auto(w http.ResponseWriter, r *http.Request) {
	var req autoRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Count <= 0 {
		req.Count = defaultAuto
	}
	if req.Count > maxAuto {
		writeError(w, http.StatusBadRequest, stageRequest, fmt.Errorf("count must be at most %d", maxAuto))
		return
	}
	items := make([]config.RunOptions, req.Count)
	for i := range items {
		items[i] = config.RunOptions{Provider: req.Provider, Backend: req.Backend, MaxWords: req.MaxWords}
	}
	writeJSON(w, http.StatusOK, newBatchResponse(s.Pipeline.Batch(r.Context(), items)))
}

// decode reads an optional JSON body. It writes the 400 itself.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, stageRequest, fmt.Errorf("read body: %w", err))
		return false
	}
	if len(body) == 0 {
		return true
	}
	if err := json.Unmarshal(body, v); err != nil {
		writeError(w, http.StatusBadRequest, stageRequest, fmt.Errorf("invalid json: %w", err))
		return false
	}
	return true
}

type errorBody struct {
	Stage string `json:"stage"`
	Cause string `json:"cause"`
}

func writeError(w http.ResponseWriter, code int, stage string, err error) {
	writeJSON(w, code, errorBody{Stage: stage, Cause: err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.Logger.Info("http", "method", r.Method, "path", r.URL.Path, "status", rec.code, "elapsed", time.Since(start))
	})
}
