// Package memory provides the semantic memory layer for engram.
//
// A Store splits each conversation turn into overlapping sentence windows,
// embeds them and writes them to a vector.Driver with metadata linking every
// chunk back to its turn. A Recaller finds the chunks most similar to a query,
// drops near duplicates and returns them as formatted Records.
//
// Both are built on an explicit Backend; there is no package level state.
package memory

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/papercomputeco/engram/pkg/embeddings"
	"github.com/papercomputeco/engram/pkg/vector"
)

// Content types stored with each chunk.
const (
	ContentTypePrompt   = "prompt"
	ContentTypeResponse = "response"
)

// OriginalPromptLimit is the number of characters of the prompt kept with
// each response chunk.
const OriginalPromptLimit = 200

// TimestampLayout is the turn timestamp format, ISO-8601 with microseconds.
const TimestampLayout = "2006-01-02T15:04:05.000000"

// metadata keys
const (
	keyTimestamp      = "timestamp"
	keySpeaker        = "speaker"
	keyContentType    = "content_type"
	keyChunkIndex     = "chunk_index"
	keyTotalChunks    = "total_chunks"
	keyOriginalPrompt = "original_prompt"
)

// Backend pairs the vector index with the embedder used to populate and
// query it.
type Backend struct {
	Driver   vector.Driver
	Embedder embeddings.Embedder
}

func (b Backend) validate() error {
	if b.Driver == nil {
		return errors.New("memory backend requires a vector driver")
	}
	if b.Embedder == nil {
		return errors.New("memory backend requires an embedder")
	}
	return nil
}

// Close releases the driver and embedder.
func (b Backend) Close() error {
	var errs []error
	if b.Driver != nil {
		errs = append(errs, b.Driver.Close())
	}
	if b.Embedder != nil {
		errs = append(errs, b.Embedder.Close())
	}
	return errors.Join(errs...)
}

// ChunkMetadata is the metadata persisted with every chunk.
type ChunkMetadata struct {
	Timestamp   string `json:"timestamp"`
	Speaker     string `json:"speaker"`
	ContentType string `json:"content_type"`
	ChunkIndex  int    `json:"chunk_index"`
	TotalChunks int    `json:"total_chunks"`

	// OriginalPrompt is set on response chunks only.
	OriginalPrompt string `json:"original_prompt,omitempty"`
}

// ChunkID returns the persisted key of a chunk.
func ChunkID(timestamp, contentType string, index int) string {
	return fmt.Sprintf("%s_%s_%d", timestamp, contentType, index)
}

// ID returns the persisted key of the chunk m describes.
func (m ChunkMetadata) ID() string {
	return ChunkID(m.Timestamp, m.ContentType, m.ChunkIndex)
}

// Map flattens m into the scalar map stored by vector drivers.
func (m ChunkMetadata) Map() map[string]any {
	out := map[string]any{
		keyTimestamp:   m.Timestamp,
		keySpeaker:     m.Speaker,
		keyContentType: m.ContentType,
		keyChunkIndex:  m.ChunkIndex,
		keyTotalChunks: m.TotalChunks,
	}
	if m.ContentType == ContentTypeResponse {
		out[keyOriginalPrompt] = m.OriginalPrompt
	}
	return out
}

// ParseChunkMetadata reads metadata written by Map. Numbers may come back
// from JSON based backends as float64 or json.Number; missing or malformed
// values are left zero.
func ParseChunkMetadata(raw map[string]any) ChunkMetadata {
	return ChunkMetadata{
		Timestamp:      asString(raw[keyTimestamp]),
		Speaker:        asString(raw[keySpeaker]),
		ContentType:    asString(raw[keyContentType]),
		ChunkIndex:     asInt(raw[keyChunkIndex]),
		TotalChunks:    asInt(raw[keyTotalChunks]),
		OriginalPrompt: asString(raw[keyOriginalPrompt]),
	}
}

func asString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	default:
		return fmt.Sprint(s)
	}
}

func asInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float32:
		return int(math.Round(float64(n)))
	case float64:
		return int(math.Round(n))
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0
		}
		return int(i)
	case string:
		i, err := strconv.Atoi(n)
		if err != nil {
			return 0
		}
		return i
	default:
		return 0
	}
}

// Record is a recalled chunk.
type Record struct {
	// FormattedContent is "{speaker}[{timestamp}]: {text}".
	FormattedContent string `json:"formatted_content"`

	// Metadata is a copy of the chunk's stored metadata.
	Metadata ChunkMetadata `json:"metadata"`

	// Score is the embedding similarity to the query, in [0,1].
	Score float64 `json:"score"`
}

// FormatRecord renders a chunk the way it is presented to the model.
func FormatRecord(speaker, timestamp, text string) string {
	return fmt.Sprintf("%s[%s]: %s", speaker, timestamp, text)
}

// truncateRunes returns the first n characters of s.
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
