package embeddingutils_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/engram/pkg/embeddings/hashing"
	"github.com/papercomputeco/engram/pkg/embeddings/ollama"
	embeddingutils "github.com/papercomputeco/engram/pkg/embeddings/utils"
)

var _ = Describe("NewEmbedder", func() {
	It("should build an ollama embedder", func() {
		e, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
			ProviderType: embeddingutils.ProviderOllama,
			TargetURL:    "http://localhost:11434",
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(e).To(BeAssignableToTypeOf(&ollama.Embedder{}))
	})

	It("should build a hashing embedder with the configured dimensions", func() {
		e, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
			ProviderType: embeddingutils.ProviderHashing,
			Dimensions:   32,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(e).To(BeAssignableToTypeOf(&hashing.Embedder{}))
		Expect(e.(*hashing.Embedder).Dimensions()).To(Equal(uint(32)))
	})

	It("should reject unknown providers", func() {
		_, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{ProviderType: "openai"})
		Expect(err).To(MatchError(ContainSubstring("unsupported embedding provider: openai")))
	})
})
