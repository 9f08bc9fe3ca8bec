// Package embeddings defines the text embedding capability memory is built on.
package embeddings

import (
	"context"
	"fmt"
)

// Embedder provides text embedding capabilities.
type Embedder interface {
	// Embed converts text into a vector embedding.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Close releases any resources held by the embedder.
	Close() error
}

// BatchEmbedder is an Embedder that can embed several texts in one call.
type BatchEmbedder interface {
	Embedder

	// EmbedBatch returns one embedding per text, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbedAll embeds texts with a single EmbedBatch call when e supports it, and
// one Embed call per text otherwise.
func EmbedAll(ctx context.Context, e Embedder, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	if b, ok := e.(BatchEmbedder); ok {
		embs, err := b.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, err
		}
		if len(embs) != len(texts) {
			return nil, fmt.Errorf("embedder returned %d embeddings for %d texts", len(embs), len(texts))
		}
		return embs, nil
	}

	embs := make([][]float32, len(texts))
	for i, t := range texts {
		emb, err := e.Embed(ctx, t)
		if err != nil {
			return nil, fmt.Errorf("text %d: %w", i, err)
		}
		embs[i] = emb
	}
	return embs, nil
}
