// Package nop provides the publisher used when events are disabled.
package nop

import (
	"context"
	"sync/atomic"

	"github.com/papercomputeco/engram/pkg/eventstream"
)

// Publisher discards events after checking they encode.
type Publisher struct {
	discarded atomic.Int64
}

func NewPublisher() *Publisher {
	return &Publisher{}
}

func (p *Publisher) PublishTurn(_ context.Context, event *eventstream.TurnStoredEvent) error {
	if _, err := eventstream.Encode(event); err != nil {
		return err
	}
	p.discarded.Add(1)
	return nil
}

// Discarded returns how many events were accepted.
func (p *Publisher) Discarded() int64 {
	return p.discarded.Load()
}

func (p *Publisher) Close() error {
	return nil
}
