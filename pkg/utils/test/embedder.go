package testutils

import (
	"context"
	"fmt"
	"sync"
)

// MockEmbedder returns canned embeddings and records how it was called.
type MockEmbedder struct {
	// Embeddings maps input text to the vector returned for it. Unknown text
	// gets DefaultEmbedding.
	Embeddings map[string][]float32

	// FailOn makes any call that includes this exact text fail.
	FailOn string

	mu         sync.Mutex
	batchCalls int
	texts      []string
}

// DefaultEmbedding is returned for text without an entry in Embeddings.
var DefaultEmbedding = []float32{0.1, 0.2, 0.3}

func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{
		Embeddings: make(map[string][]float32),
	}
}

func (m *MockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	embs, err := m.embed([]string{text})
	if err != nil {
		return nil, err
	}
	return embs[0], nil
}

func (m *MockEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	m.batchCalls++
	m.mu.Unlock()
	return m.embed(texts)
}

func (m *MockEmbedder) embed(texts []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([][]float32, len(texts))
	for i, t := range texts {
		if m.FailOn != "" && t == m.FailOn {
			return nil, fmt.Errorf("mock embedding failure for: %s", t)
		}
		m.texts = append(m.texts, t)
		if emb, ok := m.Embeddings[t]; ok {
			out[i] = emb
		} else {
			out[i] = DefaultEmbedding
		}
	}
	return out, nil
}

// BatchCalls returns how many EmbedBatch calls were made.
func (m *MockEmbedder) BatchCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.batchCalls
}

// Texts returns every text embedded so far, in call order.
func (m *MockEmbedder) Texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.texts...)
}

func (m *MockEmbedder) Close() error {
	return nil
}
