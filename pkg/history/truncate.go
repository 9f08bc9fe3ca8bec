// Package history keeps a conversation within a model's token budget.
package history

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/papercomputeco/engram/pkg/llm"
	"github.com/papercomputeco/engram/pkg/logger"
	"github.com/papercomputeco/engram/pkg/metrics"
)

const (
	// tokensPerMessage is the fixed framing cost of one chat message.
	tokensPerMessage = 4

	// tokensPerReply primes the assistant's reply.
	tokensPerReply = 3

	// DefaultMaxTokens is the history budget used when none is configured.
	DefaultMaxTokens = 5000
)

var (
	// ErrEncoding is returned by an Encoder that cannot encode a field.
	ErrEncoding = errors.New("token encoding failed")

	// ErrTruncationStalled means the history is still over budget but fewer
	// than two removable messages remain. It is informational: the returned
	// history is still usable.
	ErrTruncationStalled = errors.New("history truncation stalled over token budget")
)

// Config configures a Truncator.
type Config struct {
	Encoder Encoder
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// Truncator counts and trims conversation history.
type Truncator struct {
	enc     Encoder
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewTruncator creates a Truncator. An Encoder is required.
func NewTruncator(c Config) (*Truncator, error) {
	if c.Encoder == nil {
		return nil, fmt.Errorf("history truncator requires an encoder")
	}
	return &Truncator{
		enc:     c.Encoder,
		logger:  logger.OrNop(c.Logger),
		metrics: c.Metrics,
	}, nil
}

// Count returns the token cost of msgs as sent to a chat model. A field that
// fails to encode contributes nothing.
func (t *Truncator) Count(msgs []llm.Message) int {
	total := tokensPerReply
	for i, m := range msgs {
		total += tokensPerMessage
		total += t.tokens(i, "role", m.Role)
		total += t.tokens(i, "content", m.Content)
	}
	return total
}

func (t *Truncator) tokens(index int, field, text string) int {
	ids, err := t.enc.Encode(text)
	if err != nil {
		t.logger.Warn("skipping field in token count",
			"index", index,
			"field", field,
			"error", fmt.Errorf("%w: %w", ErrEncoding, err),
		)
		return 0
	}
	return len(ids)
}

// Truncate drops the oldest messages two at a time until history fits within
// maxTokens. A leading system message is never removed. Messages are assumed
// to alternate user/assistant after the system message; pairs are removed
// positionally without checking roles.
//
// The input slice is left untouched. The returned count is the token cost of
// the returned history. When the budget cannot be met, the trimmed history is
// returned together with ErrTruncationStalled.
func (t *Truncator) Truncate(history []llm.Message, maxTokens int) ([]llm.Message, int, error) {
	out := llm.Clone(history)
	total := t.Count(out)

	first := 0
	if len(out) > 0 && out[0].IsSystem() {
		first = 1
	}

	removed := 0
	for total > maxTokens && len(out)-first >= 2 {
		out = append(out[:first], out[first+2:]...)
		removed += 2
		total = t.Count(out)
	}

	if total > maxTokens {
		t.logger.Warn("history still exceeds token budget",
			"tokens", total,
			"max_tokens", maxTokens,
			"messages", len(out),
		)
		t.metrics.ObserveTruncation(removed, true)
		return out, total, ErrTruncationStalled
	}

	if removed > 0 {
		t.logger.Debug("truncated history",
			"removed", removed,
			"tokens", total,
			"max_tokens", maxTokens,
		)
	}
	t.metrics.ObserveTruncation(removed, false)

	return out, total, nil
}
