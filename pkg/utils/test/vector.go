package testutils

import (
	"context"
	"errors"

	"github.com/papercomputeco/engram/pkg/vector"
)

// MockVectorDriver is a test vector driver that records added documents and
// returns canned query results.
type MockVectorDriver struct {
	Documents []vector.Document
	Results   []vector.QueryResult

	// LastTopK is the topK of the most recent Query.
	LastTopK int

	// FailAdd and FailQuery make the respective calls return an error.
	FailAdd   bool
	FailQuery bool
}

func NewMockVectorDriver() *MockVectorDriver {
	return &MockVectorDriver{
		Documents: make([]vector.Document, 0),
		Results:   make([]vector.QueryResult, 0),
	}
}

func (m *MockVectorDriver) Add(_ context.Context, docs []vector.Document) error {
	if m.FailAdd {
		return errors.Join(vector.ErrConnection, errors.New("mock add failure"))
	}
	m.Documents = append(m.Documents, docs...)
	return nil
}

func (m *MockVectorDriver) Query(_ context.Context, _ []float32, topK int) ([]vector.QueryResult, error) {
	m.LastTopK = topK
	if m.FailQuery {
		return nil, errors.Join(vector.ErrConnection, errors.New("mock query failure"))
	}
	if len(m.Results) < topK {
		return m.Results, nil
	}
	return m.Results[:topK], nil
}

func (m *MockVectorDriver) Get(_ context.Context, _ []string) ([]vector.Document, error) {
	return m.Documents, nil
}

func (m *MockVectorDriver) Delete(_ context.Context, _ []string) error {
	return nil
}

func (m *MockVectorDriver) Close() error {
	return nil
}
