package backend_test

import (
	"context"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/engram/cmd/engram/backend"
	"github.com/papercomputeco/engram/pkg/config"
	"github.com/papercomputeco/engram/pkg/logger"
	"github.com/papercomputeco/engram/pkg/memory"
)

var _ = Describe("Open", func() {
	var (
		ctx context.Context
		cfg *config.Config
	)

	BeforeEach(func() {
		ctx = context.Background()
		cfg = config.NewDefaultConfig()
		cfg.VectorStore.Provider = "inmemory"
	})

	It("opens an offline backend that stores and recalls", func() {
		b, err := backend.Open(ctx, backend.Options{Config: cfg, Logger: logger.Nop()})
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(b.Close)

		Expect(b.Truncator).To(BeNil())

		res := b.Store.StoreResponse(ctx, "Sam", "Engram", "My favourite colour is teal.", "Teal is a calm colour.")
		Expect(res.Status).To(Equal(memory.StatusStored))

		records := b.Recaller.Recall(ctx, "My favourite colour is teal.", backend.RecallOptions(cfg))
		Expect(records).NotTo(BeEmpty())
		Expect(records[0].Metadata.Speaker).To(Equal("Sam"))
	})

	It("publishes through the nop event stream when events are enabled", func() {
		b, err := backend.Open(ctx, backend.Options{Config: cfg, Events: true})
		Expect(err).NotTo(HaveOccurred())

		res := b.Store.StoreResponse(ctx, "Sam", "Engram", "Hello there.", "Hi.")
		Expect(res.Stored()).To(BeTrue())
		Expect(b.Close()).To(Succeed())
	})

	It("places the sqlite database in the config dir", func() {
		dir := filepath.Join(GinkgoT().TempDir(), "state")
		cfg.VectorStore.Provider = "sqlite"

		b, err := backend.Open(ctx, backend.Options{Config: cfg, ConfigDir: dir})
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(b.Close)

		Expect(filepath.Join(dir, "engram.sqlite")).To(BeAnExistingFile())
	})

	It("rejects an invalid chunking config", func() {
		cfg.Chunking.Window = 2
		cfg.Chunking.Overlap = 2

		_, err := backend.Open(ctx, backend.Options{Config: cfg})
		Expect(err).To(HaveOccurred())
	})

	It("rejects an unknown vector store", func() {
		cfg.VectorStore.Provider = "faiss"

		_, err := backend.Open(ctx, backend.Options{Config: cfg})
		Expect(err).To(MatchError(ContainSubstring("unsupported vector store provider")))
	})
})
