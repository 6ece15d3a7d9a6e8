package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"math-shorts-pipeline/internal/config"
	"math-shorts-pipeline/internal/types"
)

// Environment variables holding the OAuth client and refresh token
const (
	EnvClientID     = "YOUTUBE_CLIENT_ID"
	EnvClientSecret = "YOUTUBE_CLIENT_SECRET"
	EnvRefreshToken = "YOUTUBE_REFRESH_TOKEN"
)

var ErrMissingCredentials = errors.New("youtube credentials not set")

// Uploader publishes a finished video and returns its public URL
type Uploader interface {
	Upload(ctx context.Context, videoPath string, meta *types.VideoMetadata) (string, error)
}

// Credentials for the OAuth refresh-token flow
type Credentials struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
}

// CredentialsFromEnv reads the three YOUTUBE_* variables
func CredentialsFromEnv() (Credentials, error) {
	c := Credentials{
		ClientID:     os.Getenv(EnvClientID),
		ClientSecret: os.Getenv(EnvClientSecret),
		RefreshToken: os.Getenv(EnvRefreshToken),
	}
	if c.ClientID == "" || c.ClientSecret == "" || c.RefreshToken == "" {
		return c, fmt.Errorf("%w: need %s, %s and %s", ErrMissingCredentials, EnvClientID, EnvClientSecret, EnvRefreshToken)
	}
	return c, nil
}

// YouTube uploads through the Data API v3
type YouTube struct {
	cfg      config.UploadConfig
	client   *http.Client
	endpoint string
	log      *slog.Logger
}

// NewYouTube builds an uploader whose HTTP client refreshes the access token
// from creds on first use
func NewYouTube(ctx context.Context, cfg config.UploadConfig, creds Credentials, log *slog.Logger) *YouTube {
	conf := &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{youtube.YoutubeUploadScope, youtube.YoutubeScope},
	}
	// expired on purpose so the first call refreshes
	token := &oauth2.Token{RefreshToken: creds.RefreshToken, Expiry: time.Now().Add(-time.Hour)}
	return newYouTube(cfg, oauth2.NewClient(ctx, conf.TokenSource(ctx, token)), "", log)
}

func newYouTube(cfg config.UploadConfig, client *http.Client, endpoint string, log *slog.Logger) *YouTube {
	if log == nil {
		log = slog.Default()
	}
	return &YouTube{cfg: cfg, client: client, endpoint: endpoint, log: log}
}

func (y *YouTube) Upload(ctx context.Context, videoPath string, meta *types.VideoMetadata) (string, error) {
	if meta == nil {
		return "", errors.New("upload: nil metadata")
	}
	opts := []option.ClientOption{option.WithHTTPClient(y.client)}
	if y.endpoint != "" {
		opts = append(opts, option.WithEndpoint(y.endpoint))
	}
	svc, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return "", fmt.Errorf("youtube service: %w", err)
	}

	f, err := os.Open(videoPath)
	if err != nil {
		return "", fmt.Errorf("open video: %w", err)
	}
	defer f.Close()

	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:                meta.Title,
			Description:          meta.Description,
			Tags:                 meta.Tags,
			CategoryId:           meta.CategoryID,
			DefaultLanguage:      y.cfg.DefaultLanguage,
			DefaultAudioLanguage: y.cfg.DefaultLanguage,
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus:           meta.Visibility,
			SelfDeclaredMadeForKids: y.cfg.MadeForKids,
		},
	}

	y.log.Info("uploading", "title", meta.Title, "visibility", meta.Visibility)
	uploaded, err := svc.Videos.Insert([]string{"snippet", "status"}, video).Media(f).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("youtube upload: %w", err)
	}
	url := "https://www.youtube.com/watch?v=" + uploaded.Id
	y.log.Info("uploaded", "video_id", uploaded.Id, "url", url)
	return url, nil
}
