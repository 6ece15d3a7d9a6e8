package topic

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/vartanbeno/go-reddit/v2/reddit"

	"math-shorts-pipeline/internal/textutil"
	"math-shorts-pipeline/internal/types"
)

const maxTitleLen = 90

// RedditSource turns the week's top posts of a subreddit into topics
type RedditSource struct {
	Subreddit string
	Category  string
	Sentences int

	once   sync.Once
	client *reddit.Client
	err    error
}

func (s *RedditSource) Name() string { return "reddit" }

func (s *RedditSource) Candidates(ctx context.Context) ([]types.Topic, error) {
	s.once.Do(func() {
		s.client, s.err = reddit.NewReadonlyClient()
	})
	if s.err != nil {
		return nil, fmt.Errorf("reddit client: %w", s.err)
	}

	posts, _, err := s.client.Subreddit.TopPosts(ctx, s.Subreddit, &reddit.ListPostOptions{
		ListOptions: reddit.ListOptions{Limit: 25},
		Time:        "week",
	})
	if err != nil {
		return nil, fmt.Errorf("r/%s top posts: %w", s.Subreddit, err)
	}
	return topicsFromPosts(posts, s.Category, s.Sentences), nil
}

// topicsFromPosts skips stickied, NSFW and empty-titled posts
func topicsFromPosts(posts []*reddit.Post, category string, sentences int) []types.Topic {
	var out []types.Topic
	for _, p := range posts {
		if p == nil || p.Stickied || p.NSFW {
			continue
		}
		title := strings.TrimSpace(p.Title)
		if title == "" {
			continue
		}
		summary := textutil.FirstSentences(p.Body, sentences)
		if summary == "" {
			summary = title
		}
		out = append(out, types.Topic{
			Name:     textutil.Truncate(title, maxTitleLen),
			Category: category,
			Summary:  summary,
			Source:   "reddit",
		})
	}
	return out
}
