// Package embeddingutils is the embeddings utility package
package embeddingutils

import (
	"fmt"

	"github.com/papercomputeco/engram/pkg/embeddings"
	"github.com/papercomputeco/engram/pkg/embeddings/hashing"
	"github.com/papercomputeco/engram/pkg/embeddings/ollama"
)

// Supported embedding providers.
const (
	ProviderOllama  = "ollama"
	ProviderHashing = "hashing"
)

// Providers lists every provider NewEmbedder accepts.
var Providers = []string{ProviderOllama, ProviderHashing}

type NewEmbedderOpts struct {
	ProviderType string
	TargetURL    string
	Model        string
	Dimensions   uint
}

func NewEmbedder(o *NewEmbedderOpts) (embeddings.Embedder, error) {
	switch o.ProviderType {
	case ProviderOllama:
		return ollama.NewEmbedder(ollama.EmbedderConfig{
			BaseURL:    o.TargetURL,
			Model:      o.Model,
			Dimensions: o.Dimensions,
		})
	case ProviderHashing, "":
		return hashing.NewEmbedder(hashing.EmbedderConfig{
			Dimensions: o.Dimensions,
		})
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", o.ProviderType)
	}
}
