// Package session performs the per-turn bookkeeping of a conversation with
// memory: prompt enhancement, history truncation, and storing completed turns.
// It does not talk to a model; callers send the prepared history upstream and
// hand the reply back through Complete.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/papercomputeco/engram/pkg/history"
	"github.com/papercomputeco/engram/pkg/llm"
	"github.com/papercomputeco/engram/pkg/logger"
	"github.com/papercomputeco/engram/pkg/memory"
	"github.com/papercomputeco/engram/pkg/prompt"
)

// ErrorMarker prefixes a reply that reports a failed upstream request rather
// than model output. Such replies are never added to the history.
const ErrorMarker = "\nAPI request failed:"

var (
	// ErrEmptyPrompt is returned by Prepare for a blank prompt.
	ErrEmptyPrompt = errors.New("prompt is empty")

	// ErrTurnPending is returned by Prepare while a previous turn has not
	// been completed or aborted.
	ErrTurnPending = errors.New("a turn is already pending")

	// ErrNoPendingTurn is returned by Complete without a prepared turn.
	ErrNoPendingTurn = errors.New("no pending turn")
)

// Storer persists completed turns. *memory.Store satisfies it.
type Storer interface {
	StoreResponse(ctx context.Context, userName, assistantName, prompt, response string) memory.StoreResult
}

// Truncator keeps the history within budget. *history.Truncator satisfies it.
type Truncator interface {
	Truncate(msgs []llm.Message, maxTokens int) ([]llm.Message, int, error)
}

// Config configures a Session.
type Config struct {
	UserName      string
	AssistantName string

	// SystemPrompt is prefixed with the current timestamp on every turn.
	SystemPrompt string

	// MaxTokens is the history budget. Defaults to history.DefaultMaxTokens.
	MaxTokens int

	// Enhancer rewrites the user prompt before it enters the history. When
	// nil the raw prompt is used.
	Enhancer prompt.Enhancer

	Store     Storer
	Truncator Truncator

	// History resumes a previous conversation. Its first message is replaced
	// by a fresh system message when it is one.
	History []llm.Message

	// PendingPrompt resumes a turn prepared by a previous process.
	PendingPrompt string

	Logger *slog.Logger

	// Now overrides the clock. Defaults to time.Now.
	Now func() time.Time
}

// Turn is a prepared history ready to be sent upstream.
type Turn struct {
	Messages []llm.Message `json:"messages"`
	Tokens   int           `json:"tokens"`
	Prompt   string        `json:"prompt"`
}

// Session owns one conversation history.
type Session struct {
	mu sync.Mutex

	userName      string
	assistantName string
	systemPrompt  string
	maxTokens     int

	enhancer  prompt.Enhancer
	store     Storer
	truncator Truncator
	logger    *slog.Logger
	now       func() time.Time

	history []llm.Message

	// pending is the raw prompt of the prepared turn, empty between turns.
	pending string

	// pendingAt indexes the pending user message in history, or is -1 when
	// truncation removed it.
	pendingAt int
}

// New creates a Session whose history starts with the timestamped system
// message.
func New(c Config) (*Session, error) {
	if c.Store == nil {
		return nil, errors.New("session requires a store")
	}
	if c.Truncator == nil {
		return nil, errors.New("session requires a truncator")
	}

	s := &Session{
		userName:      c.UserName,
		assistantName: c.AssistantName,
		systemPrompt:  c.SystemPrompt,
		maxTokens:     c.MaxTokens,
		enhancer:      c.Enhancer,
		store:         c.Store,
		truncator:     c.Truncator,
		logger:        logger.OrNop(c.Logger),
		now:           c.Now,
		pending:       c.PendingPrompt,
	}
	if s.maxTokens <= 0 {
		s.maxTokens = history.DefaultMaxTokens
	}
	if s.now == nil {
		s.now = time.Now
	}

	system := llm.NewTextMessage(llm.RoleSystem, s.systemContent())
	switch {
	case len(c.History) == 0:
		s.history = []llm.Message{system}
	case c.History[0].IsSystem():
		s.history = llm.Clone(c.History)
		s.history[0] = system
	default:
		s.history = append([]llm.Message{system}, c.History...)
	}

	s.pendingAt = -1
	if last := len(s.history) - 1; s.pending != "" && last > 0 && s.history[last].Role == llm.RoleUser {
		s.pendingAt = last
	}

	return s, nil
}

// Prepare enhances userText, appends it to the history, truncates the history
// to the budget and refreshes the system message timestamp. The returned Turn
// holds a copy of the history to send upstream.
func (s *Session) Prepare(ctx context.Context, userText string) (Turn, error) {
	if strings.TrimSpace(userText) == "" {
		return Turn{}, ErrEmptyPrompt
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending != "" {
		return Turn{}, ErrTurnPending
	}

	enhanced := userText
	if s.enhancer != nil {
		enhanced = s.enhancer.EnhancePrompt(ctx, userText)
	}
	s.history = append(s.history, llm.NewTextMessage(llm.RoleUser, enhanced))

	truncated, tokens, err := s.truncator.Truncate(s.history, s.maxTokens)
	if err != nil && !errors.Is(err, history.ErrTruncationStalled) {
		s.history = s.history[:len(s.history)-1]
		return Turn{}, fmt.Errorf("truncating history: %w", err)
	}
	s.history = truncated

	if len(s.history) > 0 && s.history[0].IsSystem() {
		s.history[0].Content = s.systemContent()
	}

	s.pending = userText
	s.pendingAt = -1
	if last := len(s.history) - 1; last > 0 && s.history[last].Role == llm.RoleUser && s.history[last].Content == enhanced {
		s.pendingAt = last
	} else {
		s.logger.Warn("pending prompt did not fit the history budget", "max_tokens", s.maxTokens)
	}

	s.logger.Debug("prepared turn",
		"messages", len(s.history),
		"tokens", tokens,
		"max_tokens", s.maxTokens,
	)

	return Turn{
		Messages: llm.Clone(s.history),
		Tokens:   tokens,
		Prompt:   enhanced,
	}, nil
}

// Complete records the upstream reply for the pending turn. A non-empty reply
// that is not an upstream error is appended to the history. The augmented
// user message is swapped back to the raw prompt so old context does not
// crowd the budget, and the turn is stored. A rejected reply is not stored.
func (s *Session) Complete(ctx context.Context, response string) (memory.StoreResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending == "" {
		return memory.StoreResult{}, ErrNoPendingTurn
	}

	raw, at := s.pending, s.pendingAt
	s.pending, s.pendingAt = "", -1

	if at >= 0 {
		s.history[at].Content = raw
	}

	accepted := response != "" && !strings.HasPrefix(response, ErrorMarker)
	if accepted {
		s.history = append(s.history, llm.NewTextMessage(llm.RoleAssistant, response))
	}

	if !accepted {
		s.logger.Warn("reply not added to history", "empty", response == "")
		return memory.StoreResult{Status: memory.StatusSkipped}, nil
	}

	return s.store.StoreResponse(ctx, s.userName, s.assistantName, raw, response), nil
}

// Abort drops the pending user message after a failed upstream call so the
// prompt can be retried. It reports whether a turn was pending.
func (s *Session) Abort() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending == "" {
		return false
	}
	if s.pendingAt >= 0 {
		s.history = s.history[:s.pendingAt]
	}
	s.pending, s.pendingAt = "", -1

	return true
}

// History returns a copy of the conversation.
func (s *Session) History() []llm.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	return llm.Clone(s.history)
}

// Pending returns the raw prompt of the prepared turn, or "" between turns.
func (s *Session) Pending() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.pending
}

func (s *Session) systemContent() string {
	return s.now().Format(memory.TimestampLayout) + " " + s.systemPrompt
}
