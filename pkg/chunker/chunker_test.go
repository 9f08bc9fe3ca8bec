package chunker_test

import (
	"fmt"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/engram/pkg/chunker"
)

func sentences(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("Sentence number %d.", i+1)
	}
	return out
}

var _ = Describe("ExtractSentences", func() {
	It("returns nothing for empty input", func() {
		Expect(chunker.ExtractSentences("")).To(BeEmpty())
		Expect(chunker.ExtractSentences("   \n\t ")).To(BeEmpty())
	})

	It("applies abbreviation rules to periods only", func() {
		Expect(chunker.ExtractSentences("Was it Dr? Yes. Use e.g! Fine.")).To(Equal([]string{
			"Was it Dr?",
			"Yes.",
			"Use e.g!",
			"Fine.",
		}))
	})

	It("splits on terminal punctuation followed by whitespace", func() {
		Expect(chunker.ExtractSentences("Hello there. How are you? Great!  Thanks.")).To(Equal([]string{
			"Hello there.",
			"How are you?",
			"Great!",
			"Thanks.",
		}))
	})

	It("does not split after capitalised abbreviations", func() {
		Expect(chunker.ExtractSentences("Dr. Smith is here. He is late.")).To(Equal([]string{
			"Dr. Smith is here.",
			"He is late.",
		}))
	})

	It("does not split after initials", func() {
		Expect(chunker.ExtractSentences("The U. S. Army marched. It rained.")).To(Equal([]string{
			"The U. S. Army marched.",
			"It rained.",
		}))
	})

	It("does not split inside dotted abbreviations", func() {
		Expect(chunker.ExtractSentences("Use a tool, e.g. a hammer. Then stop.")).To(Equal([]string{
			"Use a tool, e.g. a hammer.",
			"Then stop.",
		}))
	})

	It("keeps punctuation that is not followed by whitespace", func() {
		Expect(chunker.ExtractSentences("Version 1.2.3 shipped. See main.py for details.")).To(Equal([]string{
			"Version 1.2.3 shipped.",
			"See main.py for details.",
		}))
	})

	It("is restartable", func() {
		text := "One. Two. Three."
		Expect(chunker.ExtractSentences(text)).To(Equal(chunker.ExtractSentences(text)))
	})
})

var _ = Describe("Chunker", func() {
	Describe("New", func() {
		It("rejects an overlap equal to the window", func() {
			_, err := chunker.New(chunker.Config{Window: 3, Overlap: 3})
			Expect(err).To(MatchError(chunker.ErrInvalidConfig))
		})

		It("rejects an overlap larger than the window", func() {
			_, err := chunker.New(chunker.Config{Window: 2, Overlap: 5})
			Expect(err).To(MatchError(chunker.ErrInvalidConfig))
		})

		It("rejects a negative overlap", func() {
			_, err := chunker.New(chunker.Config{Window: 2, Overlap: -1})
			Expect(err).To(MatchError(chunker.ErrInvalidConfig))
		})

		It("defaults a zero window", func() {
			c, err := chunker.New(chunker.Config{})
			Expect(err).NotTo(HaveOccurred())
			Expect(c.CreateChunks(sentences(3))).To(HaveLen(1))
		})
	})

	Describe("CreateChunks", func() {
		var c *chunker.Chunker

		BeforeEach(func() {
			var err error
			c, err = chunker.New(chunker.DefaultConfig())
			Expect(err).NotTo(HaveOccurred())
		})

		It("returns nothing for no sentences", func() {
			Expect(c.CreateChunks(nil)).To(BeEmpty())
		})

		It("produces one chunk when there are fewer sentences than the window", func() {
			Expect(c.CreateChunks(sentences(1))).To(HaveLen(1))
			Expect(c.CreateChunks(sentences(2))).To(Equal([]string{"Sentence number 1. Sentence number 2."}))
		})

		It("overlaps consecutive windows by one sentence", func() {
			chunks := c.CreateChunks(sentences(5))
			Expect(chunks).To(Equal([]string{
				"Sentence number 1. Sentence number 2. Sentence number 3.",
				"Sentence number 3. Sentence number 4. Sentence number 5.",
				"Sentence number 5.",
			}))
		})

		DescribeTable("produces the expected number of chunks",
			func(n, window, overlap, expected int) {
				cc, err := chunker.New(chunker.Config{Window: window, Overlap: overlap})
				Expect(err).NotTo(HaveOccurred())
				Expect(cc.CreateChunks(sentences(n))).To(HaveLen(expected))
			},
			Entry("1 sentence", 1, 3, 1, 1),
			Entry("3 sentences", 3, 3, 1, 2),
			Entry("4 sentences", 4, 3, 1, 2),
			Entry("10 sentences", 10, 3, 1, 5),
			Entry("no overlap", 7, 3, 0, 3),
			Entry("wide window", 9, 5, 2, 3),
			Entry("fewer than window, wide overlap", 4, 5, 2, 1),
			Entry("fewer than window, widest overlap", 2, 5, 4, 1),
		)

		It("keeps every sentence in the single chunk of a short input", func() {
			cc, err := chunker.New(chunker.Config{Window: 5, Overlap: 2})
			Expect(err).NotTo(HaveOccurred())
			Expect(cc.CreateChunks(sentences(4))).To(Equal([]string{
				"Sentence number 1. Sentence number 2. Sentence number 3. Sentence number 4.",
			}))
		})
	})

	Describe("Chunk", func() {
		It("returns the whole text for a two sentence input", func() {
			c, err := chunker.New(chunker.DefaultConfig())
			Expect(err).NotTo(HaveOccurred())

			Expect(c.Chunk("Hello there. How are you?")).To(Equal([]string{"Hello there. How are you?"}))
		})

		It("joins sentences with single spaces", func() {
			c, err := chunker.New(chunker.DefaultConfig())
			Expect(err).NotTo(HaveOccurred())

			chunks := c.Chunk("First.\n\nSecond.\tThird.")
			Expect(chunks[0]).To(Equal("First. Second. Third."))
			Expect(strings.Contains(chunks[0], "\n")).To(BeFalse())
		})
	})
})
