// Package hashing implements an offline embeddings.Embedder using feature
// hashing over word unigrams and bigrams.
//
// Vectors are deterministic for a given input and dimension, so texts that
// share words land near each other under cosine distance. The quality is far
// below a learned model but needs no network or model download.
package hashing

import (
	"context"
	"fmt"
	"math"

	"github.com/cespare/xxhash/v2"

	"github.com/papercomputeco/engram/pkg/embeddings"
	"github.com/papercomputeco/engram/pkg/similarity"
)

// DefaultDimensions is used when EmbedderConfig.Dimensions is zero.
const DefaultDimensions = 384

// EmbedderConfig holds configuration for the hashing embedder.
type EmbedderConfig struct {
	Dimensions uint
}

// Embedder hashes tokens into a fixed size vector.
type Embedder struct {
	dims uint
}

// NewEmbedder creates a hashing embedder.
func NewEmbedder(cfg EmbedderConfig) (*Embedder, error) {
	dims := cfg.Dimensions
	if dims == 0 {
		dims = DefaultDimensions
	}
	if dims > math.MaxInt32 {
		return nil, fmt.Errorf("hashing dimensions too large: %d", dims)
	}
	return &Embedder{dims: dims}, nil
}

// Dimensions returns the embedding size.
func (e *Embedder) Dimensions() uint {
	return e.dims
}

// Embed converts text into an L2 normalized vector.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vec := make([]float32, e.dims)
	tokens := similarity.Tokenize(text)

	for i, tok := range tokens {
		e.add(vec, tok, 1)
		if i > 0 {
			e.add(vec, tokens[i-1]+" "+tok, 0.5)
		}
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec, nil
	}

	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec, nil
}

// add folds one feature into vec. The low bits pick the bucket and the top
// bit picks the sign, which keeps collisions from only ever adding up.
func (e *Embedder) add(vec []float32, feature string, weight float32) {
	h := xxhash.Sum64String(feature)
	idx := h % uint64(e.dims)
	if h>>63 == 1 {
		weight = -weight
	}
	vec[idx] += weight
}

// Close is a no-op.
func (e *Embedder) Close() error {
	return nil
}

var _ embeddings.Embedder = (*Embedder)(nil)
