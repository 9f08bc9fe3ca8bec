package history

import (
	"fmt"

	"github.com/weaviate/tiktoken-go"
)

// DefaultEncoding is the tiktoken encoding used when none is configured.
const DefaultEncoding = "cl100k_base"

// Encoder turns text into model tokens.
type Encoder interface {
	Encode(text string) ([]int, error)
}

// TiktokenEncoder counts tokens with a tiktoken BPE encoding.
type TiktokenEncoder struct {
	enc *tiktoken.Tiktoken
}

// NewTiktokenEncoder loads the named encoding, e.g. "cl100k_base".
func NewTiktokenEncoder(encoding string) (*TiktokenEncoder, error) {
	if encoding == "" {
		encoding = DefaultEncoding
	}

	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("loading tiktoken encoding %q: %w", encoding, err)
	}
	return &TiktokenEncoder{enc: enc}, nil
}

// Encode returns the token ids for text. Special tokens are encoded as
// ordinary text.
func (e *TiktokenEncoder) Encode(text string) ([]int, error) {
	return e.enc.Encode(text, nil, nil), nil
}
