// Package events announces finished runs on a NATS JetStream subject so
// downstream automation can pick up new videos.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"math-shorts-pipeline/internal/types"
)

const (
	DefaultSubject = "mathshorts.run.completed"
	StreamName     = "MATHSHORTS"

	connectTimeout = 5 * time.Second
	maxReconnects  = 10
)

// Header is common to every event
type Header struct {
	EventID   string    `json:"event_id"`
	Timestamp time.Time `json:"timestamp"`
	RunID     string    `json:"run_id"`
}

// RunCompleted is published once per run, whatever its status
type RunCompleted struct {
	Header      Header               `json:"header"`
	Status      types.Status         `json:"status"`
	Topic       string               `json:"topic,omitempty"`
	OutputPath  string               `json:"output_path,omitempty"`
	DurationSec float64              `json:"duration_sec,omitempty"`
	YouTubeURL  string               `json:"youtube_url,omitempty"`
	Metadata    *types.VideoMetadata `json:"metadata,omitempty"`
	Error       *types.StageError    `json:"error,omitempty"`
}

// JetStreamPublisher is the slice of jetstream.JetStream the emitter needs
type JetStreamPublisher interface {
	Publish(ctx context.Context, subject string, data []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// Emitter publishes run events
type Emitter struct {
	pub     JetStreamPublisher
	subject string
	conn    *nats.Conn
}

func NewEmitter(pub JetStreamPublisher, subject string) *Emitter {
	if subject == "" {
		subject = DefaultSubject
	}
	return &Emitter{pub: pub, subject: subject}
}

// Connect dials NATS and makes sure a stream captures the subject
func Connect(ctx context.Context, url, subject string) (*Emitter, error) {
	nc, err := nats.Connect(url,
		nats.Name("mathshorts"),
		nats.Timeout(connectTimeout),
		nats.MaxReconnects(maxReconnects),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}
	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	e := NewEmitter(js, subject)
	if _, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     StreamName,
		Subjects: []string{streamSubjects(e.subject)},
	}); err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure stream %s: %w", StreamName, err)
	}
	e.conn = nc
	return e, nil
}

// streamSubjects widens "a.b.c" to "a.>" so related subjects share a stream
func streamSubjects(subject string) string {
	if i := strings.IndexByte(subject, '.'); i > 0 {
		return subject[:i] + ".>"
	}
	return subject
}

func (e *Emitter) Subject() string { return e.subject }

// RunCompleted publishes the outcome of r
func (e *Emitter) RunCompleted(ctx context.Context, r *types.RunResult) error {
	ev := RunCompleted{
		Header: Header{
			EventID:   uuid.NewString(),
			Timestamp: time.Now().UTC(),
			RunID:     r.RunID,
		},
		Status:      r.Status,
		OutputPath:  r.OutputPath,
		DurationSec: r.DurationSec,
		YouTubeURL:  r.YouTubeURL,
		Metadata:    r.Metadata,
		Error:       r.Error,
	}
	if r.Topic != nil {
		ev.Topic = r.Topic.Name
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if _, err := e.pub.Publish(ctx, e.subject, data, jetstream.WithMsgID(ev.Header.EventID)); err != nil {
		return fmt.Errorf("publish %s: %w", e.subject, err)
	}
	return nil
}

// Close drains the NATS connection when Connect opened one
func (e *Emitter) Close() error {
	if e.conn == nil {
		return nil
	}
	return e.conn.Drain()
}
