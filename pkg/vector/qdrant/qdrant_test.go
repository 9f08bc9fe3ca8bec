package qdrant

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	engramlogger "github.com/papercomputeco/engram/pkg/logger"
	"github.com/papercomputeco/engram/pkg/vector"
)

var _ = Describe("Driver", func() {
	It("should implement vector.Driver", func() {
		var _ vector.Driver = (*Driver)(nil)
	})

	Describe("NewDriver", func() {
		It("should require a host", func() {
			_, err := NewDriver(Config{Dimensions: 4}, engramlogger.Nop())
			Expect(err).To(MatchError(ContainSubstring("host is required")))
		})

		It("should require dimensions", func() {
			_, err := NewDriver(Config{Host: "localhost"}, engramlogger.Nop())
			Expect(err).To(MatchError(ContainSubstring("dimensions cannot be 0")))
		})
	})

	Describe("pointID", func() {
		It("should be stable for the same document ID", func() {
			Expect(pointID("1700000000_prompt_0").GetUuid()).To(Equal(pointID("1700000000_prompt_0").GetUuid()))
		})

		It("should differ for different document IDs", func() {
			Expect(pointID("a").GetUuid()).NotTo(Equal(pointID("b").GetUuid()))
		})
	})

	Describe("payload mapping", func() {
		It("should round trip ID, content and scalar metadata", func() {
			payload, err := toPayload(vector.Document{
				ID:      "1700000000_response_2",
				Content: "The sky is blue.",
				Metadata: map[string]any{
					"content_type": "response",
					"chunk_index":  2,
					"timestamp":    1700000000.5,
				},
			})
			Expect(err).NotTo(HaveOccurred())

			doc := fromPayload(payload)
			Expect(doc.ID).To(Equal("1700000000_response_2"))
			Expect(doc.Content).To(Equal("The sky is blue."))
			Expect(doc.Metadata).To(HaveKeyWithValue("content_type", "response"))
			Expect(doc.Metadata).To(HaveKeyWithValue("chunk_index", BeNumerically("==", 2)))
			Expect(doc.Metadata).To(HaveKeyWithValue("timestamp", BeNumerically("~", 1700000000.5)))
			Expect(doc.Metadata).NotTo(HaveKey(docIDKey))
			Expect(doc.Metadata).NotTo(HaveKey(contentKey))
		})

		It("should reject unsupported metadata values", func() {
			_, err := toPayload(vector.Document{
				ID:       "x",
				Metadata: map[string]any{"bad": make(chan int)},
			})
			Expect(err).To(HaveOccurred())
		})
	})
})
