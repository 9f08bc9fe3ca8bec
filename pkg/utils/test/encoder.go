package testutils

import (
	"errors"
	"strings"
)

// WordEncoder is a history.Encoder that emits one token per
// whitespace-separated word, which keeps token arithmetic in tests readable.
type WordEncoder struct {
	// FailOn makes Encode return an error for this exact text.
	FailOn string
}

func (w WordEncoder) Encode(text string) ([]int, error) {
	if w.FailOn != "" && text == w.FailOn {
		return nil, errors.New("mock encoder failure")
	}

	fields := strings.Fields(text)
	ids := make([]int, len(fields))
	for i := range fields {
		ids[i] = i
	}
	return ids, nil
}
