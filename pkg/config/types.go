package config

import (
	"fmt"
	"strconv"
)

// Config represents the persistent engram configuration stored as config.toml
// in the .engram/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	User        UserConfig        `toml:"user"`
	Assistant   AssistantConfig   `toml:"assistant"`
	Storage     StorageConfig     `toml:"storage"`
	VectorStore VectorStoreConfig `toml:"vector_store"`
	Embedding   EmbeddingConfig   `toml:"embedding"`
	Chunking    ChunkingConfig    `toml:"chunking"`
	Recall      RecallConfig      `toml:"recall"`
	History     HistoryConfig     `toml:"history"`
	Prompt      PromptConfig      `toml:"prompt"`
	API         APIConfig         `toml:"api"`
	Events      EventsConfig      `toml:"events"`
}

// UserConfig identifies the human speaker recorded in chunk metadata.
type UserConfig struct {
	Name string `toml:"name,omitempty"`
}

// AssistantConfig identifies the assistant speaker and its system prompt.
type AssistantConfig struct {
	Name         string `toml:"name,omitempty"`
	SystemPrompt string `toml:"system_prompt,omitempty"`
}

// StorageConfig holds the path used by the sqlite vector store.
type StorageConfig struct {
	SQLitePath string `toml:"sqlite_path,omitempty"`
}

// VectorStoreConfig holds vector store settings.
type VectorStoreConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Target     string `toml:"target,omitempty"`
	Collection string `toml:"collection,omitempty"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Target     string `toml:"target,omitempty"`
	Model      string `toml:"model,omitempty"`
	Dimensions uint   `toml:"dimensions,omitempty"`
}

// ChunkingConfig holds the sentence window settings.
type ChunkingConfig struct {
	Window  int `toml:"window,omitempty"`
	Overlap int `toml:"overlap,omitempty"`
}

// RecallConfig holds the recall defaults used by prompt enhancement.
type RecallConfig struct {
	MaxResults    int     `toml:"max_results,omitempty"`
	MinSimilarity float64 `toml:"min_similarity,omitempty"`
}

// HistoryConfig holds the conversation token budget.
type HistoryConfig struct {
	MaxTokens int    `toml:"max_tokens,omitempty"`
	Encoding  string `toml:"encoding,omitempty"`
}

// PromptConfig holds context assembly settings.
type PromptConfig struct {
	SourceDir string `toml:"source_dir,omitempty"`
}

// APIConfig holds API server settings.
type APIConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// EventsConfig holds the turn event publisher settings.
type EventsConfig struct {
	Provider string `toml:"provider,omitempty"`
	Target   string `toml:"target,omitempty"`
	Topic    string `toml:"topic,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func stringKey(field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

func intKey(name string, field func(c *Config) *int) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == 0 {
				return ""
			}
			return strconv.Itoa(*field(c))
		},
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = n
			return nil
		},
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"user.name":               stringKey(func(c *Config) *string { return &c.User.Name }),
	"assistant.name":          stringKey(func(c *Config) *string { return &c.Assistant.Name }),
	"assistant.system_prompt": stringKey(func(c *Config) *string { return &c.Assistant.SystemPrompt }),
	"storage.sqlite_path":     stringKey(func(c *Config) *string { return &c.Storage.SQLitePath }),
	"vector_store.provider":   stringKey(func(c *Config) *string { return &c.VectorStore.Provider }),
	"vector_store.target":     stringKey(func(c *Config) *string { return &c.VectorStore.Target }),
	"vector_store.collection": stringKey(func(c *Config) *string { return &c.VectorStore.Collection }),
	"embedding.provider":      stringKey(func(c *Config) *string { return &c.Embedding.Provider }),
	"embedding.target":        stringKey(func(c *Config) *string { return &c.Embedding.Target }),
	"embedding.model":         stringKey(func(c *Config) *string { return &c.Embedding.Model }),
	"embedding.dimensions": {
		get: func(c *Config) string {
			if c.Embedding.Dimensions == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(c.Embedding.Dimensions), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for embedding.dimensions: %w", err)
			}
			c.Embedding.Dimensions = uint(n)
			return nil
		},
	},
	"chunking.window":    intKey("chunking.window", func(c *Config) *int { return &c.Chunking.Window }),
	"chunking.overlap":   intKey("chunking.overlap", func(c *Config) *int { return &c.Chunking.Overlap }),
	"recall.max_results": intKey("recall.max_results", func(c *Config) *int { return &c.Recall.MaxResults }),
	"recall.min_similarity": {
		get: func(c *Config) string {
			return strconv.FormatFloat(c.Recall.MinSimilarity, 'f', -1, 64)
		},
		set: func(c *Config, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid value for recall.min_similarity: %w", err)
			}
			c.Recall.MinSimilarity = f
			return nil
		},
	},
	"history.max_tokens": intKey("history.max_tokens", func(c *Config) *int { return &c.History.MaxTokens }),
	"history.encoding":   stringKey(func(c *Config) *string { return &c.History.Encoding }),
	"prompt.source_dir":  stringKey(func(c *Config) *string { return &c.Prompt.SourceDir }),
	"api.listen":         stringKey(func(c *Config) *string { return &c.API.Listen }),
	"events.provider":    stringKey(func(c *Config) *string { return &c.Events.Provider }),
	"events.target":      stringKey(func(c *Config) *string { return &c.Events.Target }),
	"events.topic":       stringKey(func(c *Config) *string { return &c.Events.Topic }),
}
