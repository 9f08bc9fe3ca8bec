// Package chunker splits conversation text into sentences and regroups them
// into overlapping fixed-size windows for embedding.
package chunker

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

const (
	// DefaultWindow is the number of sentences per chunk.
	DefaultWindow = 3

	// DefaultOverlap is the number of sentences shared by consecutive chunks.
	DefaultOverlap = 1
)

// ErrInvalidConfig is returned when the window and overlap would not advance
// through the sentence list.
var ErrInvalidConfig = errors.New("invalid chunking config")

// Config holds the sentence windowing parameters.
type Config struct {
	// Window is the number of sentences per chunk. Defaults to DefaultWindow.
	Window int

	// Overlap is the number of sentences repeated between neighbouring chunks.
	// Must be strictly less than Window.
	Overlap int
}

// DefaultConfig returns the standard 3 sentence window with 1 sentence overlap.
func DefaultConfig() Config {
	return Config{
		Window:  DefaultWindow,
		Overlap: DefaultOverlap,
	}
}

// Validate reports whether c produces a positive advance step.
func (c Config) Validate() error {
	if c.Window <= 0 {
		return fmt.Errorf("%w: window must be positive, got %d", ErrInvalidConfig, c.Window)
	}
	if c.Overlap < 0 {
		return fmt.Errorf("%w: overlap must not be negative, got %d", ErrInvalidConfig, c.Overlap)
	}
	if c.Overlap >= c.Window {
		return fmt.Errorf("%w: overlap %d must be less than window %d", ErrInvalidConfig, c.Overlap, c.Window)
	}
	return nil
}

// Chunker turns raw text into overlapping sentence windows.
type Chunker struct {
	window int
	step   int
}

// New creates a Chunker. A zero Window falls back to DefaultWindow; the
// returned error wraps ErrInvalidConfig when Overlap >= Window.
func New(c Config) (*Chunker, error) {
	if c.Window == 0 {
		c.Window = DefaultWindow
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	return &Chunker{
		window: c.Window,
		step:   c.Window - c.Overlap,
	}, nil
}

// Chunk runs ExtractSentences and CreateChunks over text.
func (c *Chunker) Chunk(text string) []string {
	return c.CreateChunks(ExtractSentences(text))
}

// CreateChunks groups sentences into windows, advancing the start index by
// window-overlap until it passes the end of the list. Fewer sentences than the
// window yields a single chunk holding all of them, whatever the overlap.
func (c *Chunker) CreateChunks(sentences []string) []string {
	switch {
	case len(sentences) == 0:
		return nil
	case len(sentences) < c.window:
		return []string{strings.Join(sentences, " ")}
	}

	chunks := make([]string, 0, (len(sentences)+c.step-1)/c.step)
	for start := 0; start < len(sentences); start += c.step {
		end := min(start+c.window, len(sentences))
		chunks = append(chunks, strings.Join(sentences[start:end], " "))
	}

	return chunks
}

// ExtractSentences splits text after '.', '?' or '!' when followed by
// whitespace. It does not split after initials ("U. S."), capitalised
// abbreviations ("Dr.", "Mr.") or dotted forms ("e.g."). Empty fragments are
// dropped.
//
// The abbreviation checks only apply to '.': "Dr?" and "e.g!" still end a
// sentence.
func ExtractSentences(text string) []string {
	runes := []rune(text)

	var sentences []string
	start := 0
	for i, r := range runes {
		if !unicode.IsSpace(r) || !isBoundary(runes, i) {
			continue
		}

		if s := strings.TrimSpace(string(runes[start:i])); s != "" {
			sentences = append(sentences, s)
		}
		start = i + 1
	}

	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		sentences = append(sentences, s)
	}

	return sentences
}

// isBoundary reports whether the whitespace at runes[i] ends a sentence.
func isBoundary(runes []rune, i int) bool {
	if i == 0 {
		return false
	}

	switch runes[i-1] {
	case '?', '!':
		return true
	case '.':
	default:
		return false
	}

	// "e.g. " and "i.e. "
	if i >= 4 && isWord(runes[i-4]) && runes[i-3] == '.' && isWord(runes[i-2]) {
		return false
	}

	// "Dr. " and "Mr. "
	if i >= 3 && unicode.IsUpper(runes[i-3]) && unicode.IsLower(runes[i-2]) {
		return false
	}

	// single letter initials: "U. S. " and "J. Smith"
	if i >= 2 && unicode.IsLetter(runes[i-2]) && (i == 2 || !isWord(runes[i-3])) {
		return false
	}

	return true
}

func isWord(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
