// Package similarity scores lexical overlap between two texts. The memory
// recall path uses it to suppress near-duplicate chunks, independently of the
// embedding similarity.
package similarity

import (
	"regexp"
	"strings"
)

// DefaultN is the n-gram size used for near-duplicate detection.
const DefaultN = 2

// wordPattern splits text into word tokens and punctuation runs, so "you?"
// becomes ["you", "?"].
var wordPattern = regexp.MustCompile(`[\p{L}\p{N}_]+(?:'[\p{L}]+)?|[^\p{L}\p{N}_\s]+`)

// Tokenize lower-cases text and splits it into word and punctuation tokens.
func Tokenize(text string) []string {
	return wordPattern.FindAllString(strings.ToLower(text), -1)
}

// Ngrams returns the set of contiguous n-token sequences in tokens. Keys are
// the tokens joined with a unit separator.
func Ngrams(tokens []string, n int) map[string]struct{} {
	if n <= 0 || len(tokens) < n {
		return nil
	}

	set := make(map[string]struct{}, len(tokens)-n+1)
	for i := 0; i+n <= len(tokens); i++ {
		set[strings.Join(tokens[i:i+n], "\x1f")] = struct{}{}
	}
	return set
}

// NgramSimilarity returns the Jaccard index of the word n-gram sets of a and
// b, in [0,1]. It is 0 when either text has fewer than n tokens.
func NgramSimilarity(a, b string, n int) float64 {
	setA := Ngrams(Tokenize(a), n)
	setB := Ngrams(Tokenize(b), n)
	if len(setA) == 0 || len(setB) == 0 {
		return 0.0
	}

	intersection := 0
	for gram := range setA {
		if _, ok := setB[gram]; ok {
			intersection++
		}
	}

	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}
