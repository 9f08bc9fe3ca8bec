// Package inmemory provides an in-process implementation of the vector.Driver
// interface.
//
// Documents are held in insertion order and queries are answered by brute
// force cosine distance. Useful for local development and tests; nothing is
// persisted across restarts.
package inmemory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/papercomputeco/engram/pkg/vector"
)

// Driver implements vector.Driver using in-process data structures.
type Driver struct {
	mu sync.RWMutex

	// docs are kept in insertion order so that equal distances resolve
	// deterministically.
	docs  []vector.Document
	index map[string]int
}

// NewDriver creates an empty in-memory vector driver.
func NewDriver() *Driver {
	return &Driver{
		index: make(map[string]int),
	}
}

func clone(doc vector.Document) vector.Document {
	out := doc
	out.Metadata = maps.Clone(doc.Metadata)
	out.Embedding = slices.Clone(doc.Embedding)
	return out
}

// Add stores documents, replacing any existing document with the same ID.
func (d *Driver) Add(_ context.Context, docs []vector.Document) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, doc := range docs {
		if i, ok := d.index[doc.ID]; ok {
			d.docs[i] = clone(doc)
			continue
		}
		d.index[doc.ID] = len(d.docs)
		d.docs = append(d.docs, clone(doc))
	}

	return nil
}

// Query returns the topK documents nearest to embedding.
func (d *Driver) Query(_ context.Context, embedding []float32, topK int) ([]vector.QueryResult, error) {
	if topK <= 0 {
		topK = 10
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	results := make([]vector.QueryResult, 0, len(d.docs))
	for _, doc := range d.docs {
		dist, err := vector.CosineDistance(embedding, doc.Embedding)
		if err != nil {
			return nil, fmt.Errorf("doc %s: %w", doc.ID, err)
		}
		results = append(results, vector.QueryResult{
			Document: clone(doc),
			Distance: dist,
		})
	}

	slices.SortStableFunc(results, func(a, b vector.QueryResult) int {
		switch {
		case a.Distance < b.Distance:
			return -1
		case a.Distance > b.Distance:
			return 1
		default:
			return 0
		}
	})

	if len(results) > topK {
		results = results[:topK]
	}

	return results, nil
}

// Get returns the documents with the given IDs. Unknown IDs are skipped.
func (d *Driver) Get(_ context.Context, ids []string) ([]vector.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	docs := make([]vector.Document, 0, len(ids))
	for _, id := range ids {
		if i, ok := d.index[id]; ok {
			docs = append(docs, clone(d.docs[i]))
		}
	}

	return docs, nil
}

// Delete removes documents by ID.
func (d *Driver) Delete(_ context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}

	kept := d.docs[:0]
	for _, doc := range d.docs {
		if _, ok := drop[doc.ID]; !ok {
			kept = append(kept, doc)
		}
	}
	d.docs = kept

	d.index = make(map[string]int, len(d.docs))
	for i, doc := range d.docs {
		d.index[doc.ID] = i
	}

	return nil
}

// Len returns the number of stored documents.
func (d *Driver) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.docs)
}

// Close is a no-op for the in-memory driver.
func (d *Driver) Close() error {
	return nil
}
