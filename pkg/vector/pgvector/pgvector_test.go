package pgvector_test

import (
	"context"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	engramlogger "github.com/papercomputeco/engram/pkg/logger"
	"github.com/papercomputeco/engram/pkg/vector"
	"github.com/papercomputeco/engram/pkg/vector/pgvector"
)

var _ = Describe("Vector text format", func() {
	It("should format embeddings as pgvector literals", func() {
		Expect(pgvector.FormatVector([]float32{0.5, -1, 2.25})).To(Equal("[0.5,-1,2.25]"))
		Expect(pgvector.FormatVector(nil)).To(Equal("[]"))
	})

	It("should parse what it formats", func() {
		in := []float32{0.1, 0.2, -0.3}
		out, err := pgvector.ParseVector(pgvector.FormatVector(in))
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal(in))
	})

	It("should tolerate whitespace in server output", func() {
		out, err := pgvector.ParseVector(" [1, 2 ,3] ")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal([]float32{1, 2, 3}))
	})

	It("should reject malformed literals", func() {
		_, err := pgvector.ParseVector("1,2,3")
		Expect(err).To(HaveOccurred())

		_, err = pgvector.ParseVector("[1,x]")
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Driver", func() {
	It("should implement vector.Driver", func() {
		var _ vector.Driver = (*pgvector.Driver)(nil)
	})

	Describe("NewDriver", func() {
		ctx := context.Background()

		It("should require a connection string", func() {
			_, err := pgvector.NewDriver(ctx, pgvector.Config{Dimensions: 4}, engramlogger.Nop())
			Expect(err).To(MatchError(ContainSubstring("connection string is required")))
		})

		It("should require dimensions", func() {
			_, err := pgvector.NewDriver(ctx, pgvector.Config{ConnString: "postgres://localhost/x"}, engramlogger.Nop())
			Expect(err).To(MatchError(ContainSubstring("dimensions cannot be 0")))
		})

		It("should reject unsafe table names", func() {
			_, err := pgvector.NewDriver(ctx, pgvector.Config{
				ConnString: "postgres://localhost/x",
				Dimensions: 4,
				TableName:  "docs; DROP TABLE users",
			}, engramlogger.Nop())
			Expect(err).To(MatchError(ContainSubstring("invalid table name")))
		})
	})

	Context("against a live database", Ordered, func() {
		var (
			driver *pgvector.Driver
			ctx    context.Context
		)

		BeforeAll(func() {
			url := os.Getenv("ENGRAM_TEST_POSTGRES_URL")
			if url == "" {
				Skip("ENGRAM_TEST_POSTGRES_URL not set")
			}
			ctx = context.Background()

			var err error
			driver, err = pgvector.NewDriver(ctx, pgvector.Config{
				ConnString: url,
				TableName:  "engram_test_documents",
				Dimensions: 2,
			}, engramlogger.Nop())
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(func() {
				_ = driver.Delete(ctx, []string{"x", "y"})
				_ = driver.Close()
			})
		})

		It("should store and query by cosine distance", func() {
			Expect(driver.Add(ctx, []vector.Document{
				{ID: "x", Content: "along x", Metadata: map[string]any{"chunk_index": 0}, Embedding: []float32{1, 0}},
				{ID: "y", Content: "along y", Embedding: []float32{0, 1}},
			})).To(Succeed())

			results, err := driver.Query(ctx, []float32{1, 0}, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(2))
			Expect(results[0].ID).To(Equal("x"))
			Expect(results[0].Content).To(Equal("along x"))
			Expect(results[0].Distance).To(BeNumerically("~", 0, 1e-5))
			Expect(results[1].Distance).To(BeNumerically("~", 1, 1e-5))
		})

		It("should get documents with their embeddings", func() {
			docs, err := driver.Get(ctx, []string{"y"})
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(HaveLen(1))
			Expect(docs[0].Embedding).To(Equal([]float32{0, 1}))
		})
	})
})
