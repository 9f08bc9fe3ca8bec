// Package redis publishes turn events to a Redis stream.
package redis

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/papercomputeco/engram/pkg/eventstream"
)

const (
	// DefaultStream is used when Config.Stream is empty.
	DefaultStream = "engram:turns"

	// DefaultMaxLen caps the stream length (approximately).
	DefaultMaxLen = 10000
)

// Config holds configuration for the Redis stream publisher.
type Config struct {
	// URL is a redis:// connection URL.
	URL    string
	Stream string
	MaxLen int64
}

type streamClient interface {
	XAdd(ctx context.Context, a *goredis.XAddArgs) *goredis.StringCmd
	Close() error
}

// Publisher appends one stream entry per turn.
type Publisher struct {
	client streamClient
	stream string
	maxLen int64
}

// NewPublisher parses the connection URL and creates a publisher.
func NewPublisher(c Config) (*Publisher, error) {
	if c.URL == "" {
		return nil, fmt.Errorf("redis url is required")
	}

	opts, err := goredis.ParseURL(c.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	stream := c.Stream
	if stream == "" {
		stream = DefaultStream
	}
	maxLen := c.MaxLen
	if maxLen == 0 {
		maxLen = DefaultMaxLen
	}

	return &Publisher{
		client: goredis.NewClient(opts),
		stream: stream,
		maxLen: maxLen,
	}, nil
}

// PublishTurn adds the event to the stream.
func (p *Publisher) PublishTurn(ctx context.Context, event *eventstream.TurnStoredEvent) error {
	payload, err := eventstream.Encode(event)
	if err != nil {
		return err
	}

	err = p.client.XAdd(ctx, &goredis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]any{
			"event_id":   event.EventID,
			"event_type": event.EventType,
			"payload":    string(payload),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to add to stream %q: %w", p.stream, err)
	}

	return nil
}

// Close closes the Redis client.
func (p *Publisher) Close() error {
	return p.client.Close()
}
