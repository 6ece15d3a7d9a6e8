package topic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"math-shorts-pipeline/internal/types"
)

const userAgent = "MathShortsPipeline/1.0 (educational)"

var (
	ErrPageNotFound   = errors.New("wikipedia page not found")
	ErrDisambiguation = errors.New("wikipedia title is ambiguous")
)

// Wiki talks to the Wikipedia REST and MediaWiki APIs
type Wiki struct {
	baseURL    string
	httpClient *http.Client
}

// NewWiki creates a client for baseURL (e.g. https://en.wikipedia.org)
func NewWiki(baseURL string, timeout time.Duration) *Wiki {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Wiki{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Summary returns the lead extract of the page titled title
func (w *Wiki) Summary(ctx context.Context, title string) (string, error) {
	endpoint := fmt.Sprintf("%s/api/rest_v1/page/summary/%s",
		w.baseURL, url.PathEscape(strings.ReplaceAll(title, " ", "_")))

	var result struct {
		Type    string `json:"type"`
		Title   string `json:"title"`
		Extract string `json:"extract"`
	}
	if err := w.getJSON(ctx, endpoint, &result); err != nil {
		return "", err
	}
	if result.Type == "disambiguation" {
		return "", fmt.Errorf("%q: %w", title, ErrDisambiguation)
	}
	extract := strings.TrimSpace(result.Extract)
	if extract == "" {
		return "", fmt.Errorf("%q has no extract: %w", title, ErrPageNotFound)
	}
	return extract, nil
}

// Search runs a full-text search and returns matching page titles
func (w *Wiki) Search(ctx context.Context, query string, limit int) ([]string, error) {
	q := url.Values{}
	q.Set("action", "query")
	q.Set("list", "search")
	q.Set("format", "json")
	q.Set("srsearch", query)
	q.Set("srlimit", fmt.Sprint(limit))
	endpoint := w.baseURL + "/w/api.php?" + q.Encode()

	var result struct {
		Query struct {
			Search []struct {
				Title string `json:"title"`
			} `json:"search"`
		} `json:"query"`
	}
	if err := w.getJSON(ctx, endpoint, &result); err != nil {
		return nil, err
	}
	titles := make([]string, 0, len(result.Query.Search))
	for _, r := range result.Query.Search {
		titles = append(titles, r.Title)
	}
	return titles, nil
}

func (w *Wiki) getJSON(ctx context.Context, endpoint string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrPageNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("wikipedia returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

// seedQueries drive the wikipedia source
var seedQueries = []string{
	"famous mathematical theorem",
	"unsolved problem in mathematics",
	"number theory sequence",
	"mathematical constant",
}

// mathKeywords keep search hits that read like short-friendly math topics
var mathKeywords = []string{
	"theorem", "conjecture", "number", "equation", "sequence", "function",
	"paradox", "problem", "ratio", "triangle", "prime", "constant",
	"formula", "identity", "geometry", "distribution", "series", "law",
}

// WikipediaSource searches Wikipedia for math topics
type WikipediaSource struct {
	Wiki     *Wiki
	Category string
	Limit    int
}

func (s *WikipediaSource) Name() string { return "wikipedia" }

func (s *WikipediaSource) Candidates(ctx context.Context) ([]types.Topic, error) {
	limit := s.Limit
	if limit <= 0 {
		limit = 20
	}
	seen := make(map[string]bool)
	var out []types.Topic
	var lastErr error
	for _, q := range seedQueries {
		titles, err := s.Wiki.Search(ctx, q, limit)
		if err != nil {
			lastErr = err
			continue
		}
		for _, t := range titles {
			key := strings.ToLower(t)
			if seen[key] || !isMathTitle(key) {
				continue
			}
			seen[key] = true
			out = append(out, types.Topic{Name: t, Category: s.Category, Source: "wikipedia"})
		}
	}
	if len(out) == 0 && lastErr != nil {
		return nil, fmt.Errorf("wikipedia search: %w", lastErr)
	}
	return out, nil
}

func isMathTitle(lower string) bool {
	if strings.Contains(lower, "(disambiguation)") || strings.HasPrefix(lower, "list of") {
		return false
	}
	for _, k := range mathKeywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}
