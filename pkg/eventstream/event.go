package eventstream

import (
	"time"

	"github.com/google/uuid"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeTurnStored is emitted after a conversation turn is written to
	// the memory store.
	EventTypeTurnStored = "engram.turn.stored"
)

// TurnStoredEvent is a transport-neutral event payload for a stored turn.
type TurnStoredEvent struct {
	SchemaVersion int          `json:"schema_version"`
	EventType     string       `json:"event_type"`
	EventID       string       `json:"event_id"`
	EmittedAt     time.Time    `json:"emitted_at"`
	Source        EventSource  `json:"source"`
	Turn          TurnMeta     `json:"turn"`
	Chunks        TurnChunkIDs `json:"chunks"`
}

// EventSource identifies who took part in the turn.
type EventSource struct {
	UserName      string `json:"user_name"`
	AssistantName string `json:"assistant_name"`
}

// TurnMeta captures the stored turn.
type TurnMeta struct {
	// Timestamp is the turn timestamp shared by all of its chunks.
	Timestamp      string `json:"timestamp"`
	PromptChunks   int    `json:"prompt_chunks"`
	ResponseChunks int    `json:"response_chunks"`
	DurationMs     int64  `json:"duration_ms"`
}

// TurnChunkIDs lists the ids written for each side of the turn.
type TurnChunkIDs struct {
	Prompt   []string `json:"prompt,omitempty"`
	Response []string `json:"response,omitempty"`
}

// NewTurnStoredEvent fills the envelope fields of a TurnStoredEvent.
func NewTurnStoredEvent(source EventSource, turn TurnMeta, chunks TurnChunkIDs) *TurnStoredEvent {
	return &TurnStoredEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeTurnStored,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Source:        source,
		Turn:          turn,
		Chunks:        chunks,
	}
}
