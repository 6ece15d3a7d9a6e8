// Package history keeps a bounded log of completed runs, newest first.
// Redis backs it in deployments; Memory serves single-process use and tests.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"math-shorts-pipeline/internal/types"
)

// DefaultMaxRuns bounds the log when no limit is configured
const DefaultMaxRuns = 200

// Record is the stored summary of one run
type Record struct {
	RunID       string       `json:"run_id"`
	Topic       string       `json:"topic,omitempty"`
	Status      types.Status `json:"status"`
	OutputPath  string       `json:"output_path,omitempty"`
	Stage       types.Stage  `json:"stage,omitempty"`
	Cause       string       `json:"cause,omitempty"`
	DurationSec float64      `json:"duration_sec,omitempty"`
	Provider    string       `json:"provider,omitempty"`
	CompletedAt time.Time    `json:"completed_at"`
}

// FromResult flattens a run result into a Record
func FromResult(r *types.RunResult) Record {
	rec := Record{
		RunID:       r.RunID,
		Status:      r.Status,
		OutputPath:  r.OutputPath,
		DurationSec: r.DurationSec,
		CompletedAt: r.CompletedAt,
	}
	if r.Topic != nil {
		rec.Topic = r.Topic.Name
	}
	if r.Script != nil {
		rec.Provider = r.Script.Provider
	}
	if r.Error != nil {
		rec.Stage = r.Error.Stage
		rec.Cause = fmt.Sprint(r.Error.Cause)
	}
	return rec
}

// Store persists run records
type Store interface {
	Add(ctx context.Context, rec Record) error
	Recent(ctx context.Context, n int) ([]Record, error)
}

// Redis stores records as JSON in a capped list
type Redis struct {
	rdb     *redis.Client
	key     string
	maxRuns int
}

// NewRedis connects using a redis:// URL
func NewRedis(url, key string, maxRuns int) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return NewRedisClient(redis.NewClient(opts), key, maxRuns), nil
}

func NewRedisClient(rdb *redis.Client, key string, maxRuns int) *Redis {
	if key == "" {
		key = "mathshorts:runs"
	}
	if maxRuns <= 0 {
		maxRuns = DefaultMaxRuns
	}
	return &Redis{rdb: rdb, key: key, maxRuns: maxRuns}
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	return r.rdb.Close()
}

func (r *Redis) Add(ctx context.Context, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal run record: %w", err)
	}
	_, err = r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.LPush(ctx, r.key, data)
		p.LTrim(ctx, r.key, 0, int64(r.maxRuns-1))
		return nil
	})
	if err != nil {
		return fmt.Errorf("store run record: %w", err)
	}
	return nil
}

func (r *Redis) Recent(ctx context.Context, n int) ([]Record, error) {
	if n <= 0 || n > r.maxRuns {
		n = r.maxRuns
	}
	raw, err := r.rdb.LRange(ctx, r.key, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("read run records: %w", err)
	}
	out := make([]Record, 0, len(raw))
	for _, s := range raw {
		var rec Record
		if err := json.Unmarshal([]byte(s), &rec); err != nil {
			return nil, fmt.Errorf("decode run record: %w", err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// Memory is an in-process Store
type Memory struct {
	mu      sync.Mutex
	recs    []Record
	maxRuns int
}

func NewMemory(maxRuns int) *Memory {
	if maxRuns <= 0 {
		maxRuns = DefaultMaxRuns
	}
	return &Memory{maxRuns: maxRuns}
}

func (m *Memory) Add(_ context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs = append([]Record{rec}, m.recs...)
	if len(m.recs) > m.maxRuns {
		m.recs = m.recs[:m.maxRuns]
	}
	return nil
}

func (m *Memory) Recent(_ context.Context, n int) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n <= 0 || n > len(m.recs) {
		n = len(m.recs)
	}
	return append([]Record(nil), m.recs[:n]...), nil
}
