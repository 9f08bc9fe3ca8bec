package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papercomputeco/engram/pkg/dotdir"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the ENGRAM_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (ENGRAM_API_LISTEN, ENGRAM_USER_NAME, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	setViperDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	v.SetEnvPrefix("ENGRAM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// FromViper materializes the resolved viper values into a validated Config.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Version: v.GetInt("version"),
		User: UserConfig{
			Name: v.GetString("user.name"),
		},
		Assistant: AssistantConfig{
			Name:         v.GetString("assistant.name"),
			SystemPrompt: v.GetString("assistant.system_prompt"),
		},
		Storage: StorageConfig{
			SQLitePath: v.GetString("storage.sqlite_path"),
		},
		VectorStore: VectorStoreConfig{
			Provider:   v.GetString("vector_store.provider"),
			Target:     v.GetString("vector_store.target"),
			Collection: v.GetString("vector_store.collection"),
		},
		Embedding: EmbeddingConfig{
			Provider:   v.GetString("embedding.provider"),
			Target:     v.GetString("embedding.target"),
			Model:      v.GetString("embedding.model"),
			Dimensions: v.GetUint("embedding.dimensions"),
		},
		Chunking: ChunkingConfig{
			Window:  v.GetInt("chunking.window"),
			Overlap: v.GetInt("chunking.overlap"),
		},
		Recall: RecallConfig{
			MaxResults:    v.GetInt("recall.max_results"),
			MinSimilarity: v.GetFloat64("recall.min_similarity"),
		},
		History: HistoryConfig{
			MaxTokens: v.GetInt("history.max_tokens"),
			Encoding:  v.GetString("history.encoding"),
		},
		Prompt: PromptConfig{
			SourceDir: v.GetString("prompt.source_dir"),
		},
		API: APIConfig{
			Listen: v.GetString("api.listen"),
		},
		Events: EventsConfig{
			Provider: v.GetString("events.provider"),
			Target:   v.GetString("events.target"),
			Topic:    v.GetString("events.topic"),
		},
	}

	if cfg.Version != 0 && cfg.Version != CurrentV {
		return nil, fmt.Errorf("unsupported config version %d (expected %d)", cfg.Version, CurrentV)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// FromCommand resolves the Config for a running command: it reads the
// --config-dir flag, binds the given registry flags and applies the full
// precedence chain.
func FromCommand(cmd *cobra.Command, registryKeys []string) (*Config, error) {
	configDir, _ := cmd.Flags().GetString("config-dir")

	v, err := InitViper(configDir)
	if err != nil {
		return nil, err
	}

	BindRegisteredFlags(v, cmd, Flags, registryKeys)

	cfg, err := FromViper(v)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	v.SetDefault("user.name", d.User.Name)
	v.SetDefault("assistant.name", d.Assistant.Name)
	v.SetDefault("assistant.system_prompt", d.Assistant.SystemPrompt)

	v.SetDefault("storage.sqlite_path", d.Storage.SQLitePath)

	// Vector store
	v.SetDefault("vector_store.provider", d.VectorStore.Provider)
	v.SetDefault("vector_store.target", d.VectorStore.Target)
	v.SetDefault("vector_store.collection", d.VectorStore.Collection)

	// Embedding
	v.SetDefault("embedding.provider", d.Embedding.Provider)
	v.SetDefault("embedding.target", d.Embedding.Target)
	v.SetDefault("embedding.model", d.Embedding.Model)
	v.SetDefault("embedding.dimensions", d.Embedding.Dimensions)

	v.SetDefault("chunking.window", d.Chunking.Window)
	v.SetDefault("chunking.overlap", d.Chunking.Overlap)

	v.SetDefault("recall.max_results", d.Recall.MaxResults)
	v.SetDefault("recall.min_similarity", d.Recall.MinSimilarity)

	v.SetDefault("history.max_tokens", d.History.MaxTokens)
	v.SetDefault("history.encoding", d.History.Encoding)

	v.SetDefault("prompt.source_dir", d.Prompt.SourceDir)

	v.SetDefault("api.listen", d.API.Listen)

	// Events
	v.SetDefault("events.provider", d.Events.Provider)
	v.SetDefault("events.target", d.Events.Target)
	v.SetDefault("events.topic", d.Events.Topic)
}
