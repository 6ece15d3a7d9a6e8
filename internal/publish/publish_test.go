package publish

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"math-shorts-pipeline/internal/config"
	"math-shorts-pipeline/internal/logging"
	"math-shorts-pipeline/internal/types"
)

func TestMetadata(t *testing.T) {
	cfg := config.Default().Upload
	topic := types.Topic{Name: "Euler's identity", Category: "Complex analysis"}
	script := &types.Script{Hook: "A legendary result: Euler's identity!"}

	meta := Metadata(topic, script, cfg)

	assert.Equal(t, "Euler's identity Explained! #Shorts", meta.Title)
	assert.Contains(t, meta.Description, "A legendary result: Euler's identity!")
	assert.Contains(t, meta.Description, "Complex analysis")
	assert.True(t, strings.HasSuffix(meta.Description, "#Education #Eulersidentity"), meta.Description)
	assert.Equal(t, []string{"math", "mathematics", "education", "shorts", "stem", "quick learning", "euler's identity", "complex analysis"}, meta.Tags)
	assert.Equal(t, cfg.CategoryID, meta.CategoryID)
	assert.Equal(t, "private", meta.Visibility)
}

func TestMetadata_LongTitleAndDefaults(t *testing.T) {
	long := strings.Repeat("Banach ", 30)
	meta := Metadata(types.Topic{Name: long}, nil, config.UploadConfig{})

	assert.LessOrEqual(t, len([]rune(meta.Title)), maxTitleRunes)
	assert.True(t, strings.HasSuffix(meta.Title, titleSuffix))
	assert.Contains(t, meta.Description, "Mathematics")
	assert.Contains(t, meta.Tags, "mathematics")
}

func TestCredentialsFromEnv(t *testing.T) {
	t.Setenv(EnvClientID, "id")
	t.Setenv(EnvClientSecret, "")
	t.Setenv(EnvRefreshToken, "tok")
	_, err := CredentialsFromEnv()
	assert.ErrorIs(t, err, ErrMissingCredentials)

	t.Setenv(EnvClientSecret, "secret")
	c, err := CredentialsFromEnv()
	require.NoError(t, err)
	assert.Equal(t, Credentials{ClientID: "id", ClientSecret: "secret", RefreshToken: "tok"}, c)
}

func TestYouTube_Upload(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.URL.Path, "videos")
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), "Pi Explained! #Shorts")
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"abc123"}`)
	}))
	defer srv.Close()

	video := filepath.Join(t.TempDir(), "final_Pi.mp4")
	require.NoError(t, os.WriteFile(video, []byte("mp4"), 0o644))

	y := newYouTube(config.Default().Upload, srv.Client(), srv.URL+"/", logging.Discard())
	meta := Metadata(types.Topic{Name: "Pi"}, nil, config.Default().Upload)

	url, err := y.Upload(context.Background(), video, meta)
	require.NoError(t, err)
	assert.Equal(t, "https://www.youtube.com/watch?v=abc123", url)
	assert.Equal(t, int32(1), hits.Load())
}

func TestYouTube_UploadErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":403,"message":"quota exceeded"}}`, http.StatusForbidden)
	}))
	defer srv.Close()

	video := filepath.Join(t.TempDir(), "v.mp4")
	require.NoError(t, os.WriteFile(video, []byte("mp4"), 0o644))
	y := newYouTube(config.Default().Upload, srv.Client(), srv.URL+"/", logging.Discard())

	_, err := y.Upload(context.Background(), video, &types.VideoMetadata{Title: "x"})
	assert.ErrorContains(t, err, "youtube upload")

	_, err = y.Upload(context.Background(), filepath.Join(t.TempDir(), "missing.mp4"), &types.VideoMetadata{Title: "x"})
	assert.ErrorIs(t, err, os.ErrNotExist)
}
