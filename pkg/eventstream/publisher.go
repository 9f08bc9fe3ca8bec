package eventstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNilTurnEvent indicates a nil turn event payload was provided to a publisher.
var ErrNilTurnEvent = errors.New("nil turn event")

// Publisher publishes turn events to an event stream backend.
type Publisher interface {
	PublishTurn(ctx context.Context, event *TurnStoredEvent) error
	Close() error
}

// Encode is the wire form shared by every backend.
func Encode(event *TurnStoredEvent) ([]byte, error) {
	if event == nil {
		return nil, ErrNilTurnEvent
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("encoding turn event: %w", err)
	}
	return payload, nil
}
