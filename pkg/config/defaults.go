package config

import (
	"github.com/papercomputeco/engram/pkg/chunker"
	"github.com/papercomputeco/engram/pkg/history"
	"github.com/papercomputeco/engram/pkg/memory"
	"github.com/papercomputeco/engram/pkg/prompt"
)

const (
	defaultUserName      = "User"
	defaultAssistantName = "Assistant"

	// DefaultSystemPrompt seeds every new conversation.
	DefaultSystemPrompt = "You are a helpful assistant with retrieval from a vector database, " +
		"which contains documents and chat history between yourself and users. " +
		"Use the additional context where appropriate to provide concise and accurate answers."

	defaultAPIListen = ":8081"

	defaultVectorProvider   = "sqlite"
	defaultVectorCollection = "chat_responses"

	defaultEmbeddingProvider   = "hashing"
	defaultEmbeddingDimensions = 384

	defaultOllamaTarget     = "http://localhost:11434"
	defaultOllamaModel      = "nomic-embed-text"
	defaultOllamaDimensions = 768

	defaultHistoryEncoding = "cl100k_base"

	defaultEventsProvider = "none"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		User: UserConfig{
			Name: defaultUserName,
		},
		Assistant: AssistantConfig{
			Name:         defaultAssistantName,
			SystemPrompt: DefaultSystemPrompt,
		},
		VectorStore: VectorStoreConfig{
			Provider:   defaultVectorProvider,
			Collection: defaultVectorCollection,
		},
		Embedding: EmbeddingConfig{
			Provider:   defaultEmbeddingProvider,
			Dimensions: defaultEmbeddingDimensions,
		},
		Chunking: ChunkingConfig{
			Window:  chunker.DefaultWindow,
			Overlap: chunker.DefaultOverlap,
		},
		Recall: RecallConfig{
			MaxResults:    memory.DefaultMaxResults,
			MinSimilarity: memory.DefaultMinSimilarity,
		},
		History: HistoryConfig{
			MaxTokens: history.DefaultMaxTokens,
			Encoding:  defaultHistoryEncoding,
		},
		Prompt: PromptConfig{
			SourceDir: prompt.DefaultSourceDir,
		},
		API: APIConfig{
			Listen: defaultAPIListen,
		},
		Events: EventsConfig{
			Provider: defaultEventsProvider,
		},
	}
}
