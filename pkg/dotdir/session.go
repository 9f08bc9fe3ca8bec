package dotdir

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/papercomputeco/engram/pkg/llm"
)

const (
	sessionFile = "session.json"
)

// ErrNoTarget is returned when state is saved without a resolvable
// .engram/ directory.
var ErrNoTarget = errors.New("no engram directory found, run \"engram init\"")

// SessionState is the persisted conversation history of a CLI session.
type SessionState struct {
	// Messages is the conversation history in chronological order, starting
	// with the system message.
	Messages []llm.Message `json:"messages"`

	// PendingPrompt is the raw user prompt of a turn that has been prepared
	// but not yet completed. Empty when no turn is in flight.
	PendingPrompt string `json:"pending_prompt,omitempty"`
}

// LoadSessionState loads the session state from .engram/session.json.
// Returns nil, nil if no session exists yet.
func (m *Manager) LoadSessionState(overrideDir string) (*SessionState, error) {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return nil, err
	}
	if dir == "" {
		return nil, nil
	}

	data, err := os.ReadFile(filepath.Join(dir, sessionFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading session state: %w", err)
	}

	state := &SessionState{}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("parsing session state: %w", err)
	}

	return state, nil
}

// SaveSessionState persists the session state to .engram/session.json.
func (m *Manager) SaveSessionState(state *SessionState, overrideDir string) error {
	if state == nil {
		return errors.New("cannot save nil session state")
	}

	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}
	if dir == "" {
		return ErrNoTarget
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling session state: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, sessionFile), data, 0o600); err != nil {
		return fmt.Errorf("writing session state: %w", err)
	}

	return nil
}

// ClearSessionState removes the session file so the next turn starts a new
// conversation. Returns nil if there is nothing to clear.
func (m *Manager) ClearSessionState(overrideDir string) error {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}
	if dir == "" {
		return nil
	}

	if err := os.Remove(filepath.Join(dir, sessionFile)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("removing session state: %w", err)
	}

	return nil
}
