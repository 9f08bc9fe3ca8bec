// Package vector defines the storage contract shared by the memory store's
// backends.
package vector

import (
	"context"
	"errors"
)

var (
	// ErrEmbedding wraps failures of an embedder.
	ErrEmbedding = errors.New("embedding failed")

	// ErrConnection wraps transport failures talking to a remote store.
	ErrConnection = errors.New("vector store connection failed")

	// ErrDimensionMismatch is returned when an embedding length differs from
	// the store's.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// Document is one stored chunk.
type Document struct {
	// ID is "{timestamp}_{content_type}_{chunk_index}" for memory chunks.
	ID string

	Content string

	// Metadata holds flat scalars. Numbers may come back as float64 from
	// JSON based backends.
	Metadata map[string]any

	Embedding []float32
}

// QueryResult is a Document with its cosine distance from the query
// (0 for the same direction).
type QueryResult struct {
	Document
	Distance float32
}

// Driver is implemented by every vector backend.
type Driver interface {
	// Add upserts docs by ID.
	Add(ctx context.Context, docs []Document) error

	// Query returns at most topK documents by ascending distance.
	Query(ctx context.Context, embedding []float32, topK int) ([]QueryResult, error)

	// Get skips IDs that are not stored.
	Get(ctx context.Context, ids []string) ([]Document, error)

	Delete(ctx context.Context, ids []string) error
	Close() error
}
