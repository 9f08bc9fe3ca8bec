package similarity_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/engram/pkg/similarity"
)

var _ = Describe("Tokenize", func() {
	It("lower-cases and separates punctuation", func() {
		Expect(similarity.Tokenize("Hello, World! How are you?")).To(Equal([]string{
			"hello", ",", "world", "!", "how", "are", "you", "?",
		}))
	})

	It("keeps contractions attached", func() {
		Expect(similarity.Tokenize("Don't panic")).To(Equal([]string{"don't", "panic"}))
	})

	It("returns nothing for whitespace", func() {
		Expect(similarity.Tokenize("  \n ")).To(BeEmpty())
	})
})

var _ = Describe("NgramSimilarity", func() {
	It("is 1.0 for identical texts", func() {
		x := "the quick brown fox jumps over the lazy dog"
		Expect(similarity.NgramSimilarity(x, x, 2)).To(Equal(1.0))
		Expect(similarity.NgramSimilarity(x, x, 3)).To(Equal(1.0))
	})

	It("ignores case", func() {
		Expect(similarity.NgramSimilarity("The Quick Fox", "the quick fox", 2)).To(Equal(1.0))
	})

	It("is symmetric", func() {
		a := "memory recall uses embeddings to find chunks"
		b := "recall uses embeddings and a vector index"
		Expect(similarity.NgramSimilarity(a, b, 2)).To(Equal(similarity.NgramSimilarity(b, a, 2)))
	})

	It("is 0.0 against an empty string", func() {
		Expect(similarity.NgramSimilarity("some text here", "", 2)).To(Equal(0.0))
		Expect(similarity.NgramSimilarity("", "some text here", 2)).To(Equal(0.0))
	})

	It("is 0.0 when a text has fewer tokens than n", func() {
		Expect(similarity.NgramSimilarity("hello", "hello", 2)).To(Equal(0.0))
	})

	It("computes the Jaccard index of bigram sets", func() {
		// {a b, b c} vs {b c, c d}: 1 shared of 3 total
		Expect(similarity.NgramSimilarity("a b c", "b c d", 2)).To(BeNumerically("~", 1.0/3.0, 1e-9))
	})

	It("stays within [0,1]", func() {
		score := similarity.NgramSimilarity("one two three four", "three four five six seven", 2)
		Expect(score).To(BeNumerically(">=", 0.0))
		Expect(score).To(BeNumerically("<=", 1.0))
	})

	It("scores near-duplicates above the recall threshold", func() {
		a := "Paris is the capital of France and its largest city."
		b := "Paris is the capital of France and its largest city!"
		Expect(similarity.NgramSimilarity(a, b, 2)).To(BeNumerically(">", 0.7))
	})
})
