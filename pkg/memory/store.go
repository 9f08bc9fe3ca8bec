package memory

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/papercomputeco/engram/pkg/chunker"
	"github.com/papercomputeco/engram/pkg/embeddings"
	"github.com/papercomputeco/engram/pkg/eventstream"
	"github.com/papercomputeco/engram/pkg/logger"
	"github.com/papercomputeco/engram/pkg/metrics"
	"github.com/papercomputeco/engram/pkg/vector"
	"github.com/papercomputeco/engram/pkg/worker"
)

// StoreStatus is the outcome of a StoreResponse call.
type StoreStatus int

const (
	// StatusStored means every chunk of the turn was written.
	StatusStored StoreStatus = iota

	// StatusSkipped means both sides of the turn were blank.
	StatusSkipped

	// StatusFailed means nothing was written; see StoreResult.Err.
	StatusFailed
)

func (s StoreStatus) String() string {
	switch s {
	case StatusStored:
		return "stored"
	case StatusSkipped:
		return "skipped"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("StoreStatus(%d)", int(s))
	}
}

// MarshalText renders the status by name.
func (s StoreStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a name written by MarshalText.
func (s *StoreStatus) UnmarshalText(text []byte) error {
	for _, st := range []StoreStatus{StatusStored, StatusSkipped, StatusFailed} {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown store status %q", text)
}

// StoreResult reports what StoreResponse did with a turn.
type StoreResult struct {
	Status    StoreStatus `json:"status"`
	Timestamp string      `json:"timestamp"`

	PromptChunkIDs   []string `json:"prompt_chunk_ids,omitempty"`
	ResponseChunkIDs []string `json:"response_chunk_ids,omitempty"`

	// Err wraps ErrStoreWrite when Status is StatusFailed.
	Err error `json:"-"`
}

// Stored reports whether the turn was persisted.
func (r StoreResult) Stored() bool {
	return r.Status == StatusStored
}

// Enqueuer accepts stored turn events for asynchronous publication.
// *worker.Pool satisfies it.
type Enqueuer interface {
	Enqueue(job worker.Job) bool
}

// StoreConfig configures a Store.
type StoreConfig struct {
	Backend Backend

	// Chunker splits each side of a turn. Defaults to a window of 3
	// sentences with an overlap of 1.
	Chunker *chunker.Chunker

	Logger  *slog.Logger
	Metrics *metrics.Metrics

	// Events, when set, receives a TurnStoredEvent after every stored turn.
	Events Enqueuer

	// Now overrides the clock used for turn timestamps.
	Now func() time.Time
}

// Store writes conversation turns into the vector index. It is safe for
// concurrent use; writes are serialized so turn timestamps stay unique.
type Store struct {
	backend Backend
	chunker *chunker.Chunker
	logger  *slog.Logger
	metrics *metrics.Metrics
	events  Enqueuer
	now     func() time.Time

	mu   sync.Mutex
	last time.Time
}

// NewStore creates a Store.
func NewStore(c StoreConfig) (*Store, error) {
	if err := c.Backend.validate(); err != nil {
		return nil, err
	}

	ch := c.Chunker
	if ch == nil {
		var err error
		ch, err = chunker.New(chunker.DefaultConfig())
		if err != nil {
			return nil, err
		}
	}

	now := c.Now
	if now == nil {
		now = time.Now
	}

	return &Store{
		backend: c.Backend,
		chunker: ch,
		logger:  logger.OrNop(c.Logger),
		metrics: c.Metrics,
		events:  c.Events,
		now:     now,
	}, nil
}

// nextTimestamp returns a turn timestamp strictly after the previous one at
// microsecond resolution. Callers must hold s.mu.
func (s *Store) nextTimestamp() string {
	t := s.now().Truncate(time.Microsecond)
	if !t.After(s.last) {
		t = s.last.Add(time.Microsecond)
	}
	s.last = t
	return t.Format(TimestampLayout)
}

// StoreResponse chunks, embeds and writes one turn. Blank sides are skipped.
// Response chunks carry the first 200 characters of prompt, which should be
// the user's text before any recalled context was added.
//
// Failures never abort the caller: they are logged and reported in the
// result.
func (s *Store) StoreResponse(ctx context.Context, userName, assistantName, prompt, response string) StoreResult {
	start := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	ts := s.nextTimestamp()
	result := StoreResult{Timestamp: ts}

	var docs []vector.Document
	if strings.TrimSpace(prompt) != "" {
		for _, d := range s.side(ts, userName, ContentTypePrompt, prompt, "") {
			result.PromptChunkIDs = append(result.PromptChunkIDs, d.ID)
			docs = append(docs, d)
		}
	}
	if strings.TrimSpace(response) != "" {
		origin := truncateRunes(prompt, OriginalPromptLimit)
		for _, d := range s.side(ts, assistantName, ContentTypeResponse, response, origin) {
			result.ResponseChunkIDs = append(result.ResponseChunkIDs, d.ID)
			docs = append(docs, d)
		}
	}

	if len(docs) == 0 {
		result.Status = StatusSkipped
		s.logger.Debug("skipping empty turn", "timestamp", ts)
		return result
	}

	if err := s.write(ctx, docs); err != nil {
		result.Status = StatusFailed
		result.Err = err
		s.metrics.IncStoreFailure()
		s.logger.Error("failed to store turn",
			"timestamp", ts,
			"chunks", len(docs),
			"error", err,
		)
		return result
	}

	elapsed := time.Since(start)
	result.Status = StatusStored
	s.metrics.ObserveStore(elapsed, len(result.PromptChunkIDs), len(result.ResponseChunkIDs))
	s.logger.Info("stored turn",
		"timestamp", ts,
		"prompt_chunks", len(result.PromptChunkIDs),
		"response_chunks", len(result.ResponseChunkIDs),
	)

	s.publish(userName, assistantName, result, elapsed)

	return result
}

// side builds the documents for one side of a turn.
func (s *Store) side(ts, speaker, contentType, text, originalPrompt string) []vector.Document {
	chunks := s.chunker.Chunk(text)
	docs := make([]vector.Document, 0, len(chunks))
	for i, c := range chunks {
		meta := ChunkMetadata{
			Timestamp:      ts,
			Speaker:        speaker,
			ContentType:    contentType,
			ChunkIndex:     i,
			TotalChunks:    len(chunks),
			OriginalPrompt: originalPrompt,
		}
		docs = append(docs, vector.Document{
			ID:       meta.ID(),
			Content:  c,
			Metadata: meta.Map(),
		})
	}
	return docs
}

func (s *Store) write(ctx context.Context, docs []vector.Document) error {
	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Content
	}

	embs, err := embeddings.EmbedAll(ctx, s.backend.Embedder, texts)
	if err != nil {
		return fmt.Errorf("%w: embedding chunks: %w", ErrStoreWrite, err)
	}
	for i := range docs {
		docs[i].Embedding = embs[i]
	}

	if err := s.backend.Driver.Add(ctx, docs); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreWrite, err)
	}
	return nil
}

func (s *Store) publish(userName, assistantName string, r StoreResult, elapsed time.Duration) {
	if s.events == nil {
		return
	}

	event := eventstream.NewTurnStoredEvent(
		eventstream.EventSource{
			UserName:      userName,
			AssistantName: assistantName,
		},
		eventstream.TurnMeta{
			Timestamp:      r.Timestamp,
			PromptChunks:   len(r.PromptChunkIDs),
			ResponseChunks: len(r.ResponseChunkIDs),
			DurationMs:     elapsed.Milliseconds(),
		},
		eventstream.TurnChunkIDs{
			Prompt:   r.PromptChunkIDs,
			Response: r.ResponseChunkIDs,
		},
	)
	s.events.Enqueue(worker.Job{Event: event})
}
