// Package artifact is the on-disk hand-off between pipeline stages.
//
// Every run writes into its own directory under <output>/runs/<run id>/, so
// stages of concurrent runs never share an intermediate path. Only the final
// video is promoted into <output>/ and that promotion is an atomic rename:
// two runs on the same topic end with one complete file at one path (last
// rename wins), never a mix of both.
package artifact

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"math-shorts-pipeline/internal/types"
)

// Fixed per-run filenames
const (
	TopicFile    = "topic.json"
	ScriptFile   = "script.json"
	StateFile    = "pipeline_state.json"
	SceneFile    = "scene.mp4"
	CombinedFile = "combined.mp4"
	FinalPrefix  = "final_"
	FinalExt     = ".mp4"
	runsDirName  = "runs"
	dirPerm      = 0o755
	filePerm     = 0o644
)

// ErrNoVideos is returned by Latest when no final video exists yet
var ErrNoVideos = errors.New("no final videos found")

// Store is rooted at the configured output directory
type Store struct {
	Root string
}

// New creates the output root if needed
func New(root string) (*Store, error) {
	if err := os.MkdirAll(filepath.Join(root, runsDirName), dirPerm); err != nil {
		return nil, fmt.Errorf("create output dir %s: %w", root, err)
	}
	return &Store{Root: root}, nil
}

// Run is the artifact directory of one pipeline run
type Run struct {
	ID  string
	Dir string
}

// NewRun creates the run-scoped directory
func (s *Store) NewRun(runID string) (*Run, error) {
	if runID == "" || strings.ContainsAny(runID, `/\`) || runID == "." || runID == ".." {
		return nil, fmt.Errorf("invalid run id %q", runID)
	}
	dir := filepath.Join(s.Root, runsDirName, runID)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, fmt.Errorf("create run dir: %w", err)
	}
	return &Run{ID: runID, Dir: dir}, nil
}

// Path returns the location of a named artifact inside the run
func (r *Run) Path(name string) string {
	return filepath.Join(r.Dir, name)
}

// SaveJSON writes v as indented JSON into the run directory
func (r *Run) SaveJSON(name string, v any) error {
	return WriteJSON(r.Path(name), v)
}

// LoadJSON reads a JSON artifact written by an earlier stage
func (r *Run) LoadJSON(name string, v any) error {
	data, err := os.ReadFile(r.Path(name))
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	return nil
}

// WriteJSON atomically replaces path with the JSON encoding of v
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	return writeAtomic(path, data)
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, filePerm); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename into %s: %w", path, err)
	}
	return nil
}

// FinalPath is where the deliverable for a topic lands
func (s *Store) FinalPath(topicName string) string {
	return filepath.Join(s.Root, FinalPrefix+types.SanitizeName(topicName)+FinalExt)
}

// Promote moves a finished video from a run directory to its final path.
// The run directory and the output root share a filesystem, so the rename
// is atomic and readers never observe a partially written file.
func (s *Store) Promote(src, topicName string) (string, error) {
	dst := s.FinalPath(topicName)
	if err := os.Rename(src, dst); err != nil {
		return "", fmt.Errorf("promote %s: %w", filepath.Base(src), err)
	}
	abs, err := filepath.Abs(dst)
	if err != nil {
		return dst, nil
	}
	return abs, nil
}

// VideoInfo describes one final video in the output directory
type VideoInfo struct {
	Name     string    `json:"name"`
	Path     string    `json:"path"`
	SizeMB   float64   `json:"size_mb"`
	Modified time.Time `json:"modified"`
}

// FinalVideos lists final_*.mp4, newest first
func (s *Store) FinalVideos() ([]VideoInfo, error) {
	matches, err := filepath.Glob(filepath.Join(s.Root, FinalPrefix+"*"+FinalExt))
	if err != nil {
		return nil, err
	}
	videos := make([]VideoInfo, 0, len(matches))
	for _, m := range matches {
		fi, err := os.Stat(m)
		if err != nil || fi.IsDir() {
			continue
		}
		videos = append(videos, VideoInfo{
			Name:     fi.Name(),
			Path:     m,
			SizeMB:   float64(fi.Size()) / (1024 * 1024),
			Modified: fi.ModTime(),
		})
	}
	sort.Slice(videos, func(i, j int) bool {
		return videos[i].Modified.After(videos[j].Modified)
	})
	return videos, nil
}

// Latest returns the most recently written final video
func (s *Store) Latest() (VideoInfo, int, error) {
	videos, err := s.FinalVideos()
	if err != nil {
		return VideoInfo{}, 0, err
	}
	if len(videos) == 0 {
		return VideoInfo{}, 0, ErrNoVideos
	}
	return videos[0], len(videos), nil
}
