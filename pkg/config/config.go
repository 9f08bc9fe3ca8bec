package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/BurntSushi/toml"

	"github.com/papercomputeco/engram/pkg/chunker"
	"github.com/papercomputeco/engram/pkg/dotdir"
)

const (
	configFile = "config.toml"

	// v0 is the alpha version of the config
	v0 = 0

	// CurrentV is the currently supported version, points to v0
	CurrentV = v0

	minUserNameLen = 2
	maxUserNameLen = 30
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// keyOrder follows the section layout of config.toml.
var keyOrder = []string{
	"user.name",
	"assistant.name",
	"assistant.system_prompt",
	"storage.sqlite_path",
	"vector_store.provider",
	"vector_store.target",
	"vector_store.collection",
	"embedding.provider",
	"embedding.target",
	"embedding.model",
	"embedding.dimensions",
	"chunking.window",
	"chunking.overlap",
	"recall.max_results",
	"recall.min_similarity",
	"history.max_tokens",
	"history.encoding",
	"prompt.source_dir",
	"api.listen",
	"events.provider",
	"events.target",
	"events.topic",
}

// KeyValue is one resolved config key.
type KeyValue struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Configer reads and writes config.toml inside a .engram/ directory.
type Configer struct {
	path string
}

// NewConfiger resolves the .engram/ directory (override first, then the
// usual lookup). A Configer without a directory loads defaults and refuses
// to save.
func NewConfiger(override string) (*Configer, error) {
	dir, err := dotdir.NewManager().Target(override)
	if err != nil {
		return nil, err
	}
	if dir == "" {
		return &Configer{}, nil
	}

	path := filepath.Join(dir, configFile)
	if _, err := os.Stat(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	return &Configer{path: path}, nil
}

// Path is the config.toml location, or "" when no .engram/ was found.
func (c *Configer) Path() string {
	return c.path
}

// ValidConfigKeys returns every supported key in config.toml order.
func ValidConfigKeys() []string {
	return slices.Clone(keyOrder)
}

// IsValidConfigKey returns true if the given key is a supported configuration key.
func IsValidConfigKey(key string) bool {
	_, ok := configKeys[key]
	return ok
}

func lookupKey(key string) (configKeyInfo, error) {
	info, ok := configKeys[key]
	if !ok {
		return configKeyInfo{}, fmt.Errorf("unknown config key: %q", key)
	}
	return info, nil
}

// LoadConfig reads config.toml, fills unset fields from NewDefaultConfig and
// validates the result. A missing file yields the defaults.
func (c *Configer) LoadConfig() (*Config, error) {
	if c.path == "" {
		return NewDefaultConfig(), nil
	}

	data, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return NewDefaultConfig(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg, err := ParseConfigTOML(data)
	if err != nil {
		return nil, err
	}

	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults fills zero-value fields in cfg with values from NewDefaultConfig().
func applyDefaults(cfg *Config) {
	d := NewDefaultConfig()

	fill := func(dst *string, def string) {
		if *dst == "" {
			*dst = def
		}
	}
	fillInt := func(dst *int, def int) {
		if *dst == 0 {
			*dst = def
		}
	}

	fill(&cfg.User.Name, d.User.Name)
	fill(&cfg.Assistant.Name, d.Assistant.Name)
	fill(&cfg.Assistant.SystemPrompt, d.Assistant.SystemPrompt)

	fill(&cfg.VectorStore.Provider, d.VectorStore.Provider)
	fill(&cfg.VectorStore.Collection, d.VectorStore.Collection)

	fill(&cfg.Embedding.Provider, d.Embedding.Provider)
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = d.Embedding.Dimensions
	}

	// A zero overlap is meaningful, so it is only defaulted together with
	// the window.
	if cfg.Chunking.Window == 0 {
		cfg.Chunking.Window = d.Chunking.Window
		if cfg.Chunking.Overlap == 0 {
			cfg.Chunking.Overlap = d.Chunking.Overlap
		}
	}

	fillInt(&cfg.Recall.MaxResults, d.Recall.MaxResults)
	if cfg.Recall.MinSimilarity == 0 {
		cfg.Recall.MinSimilarity = d.Recall.MinSimilarity
	}

	fillInt(&cfg.History.MaxTokens, d.History.MaxTokens)
	fill(&cfg.History.Encoding, d.History.Encoding)

	fill(&cfg.Prompt.SourceDir, d.Prompt.SourceDir)
	fill(&cfg.API.Listen, d.API.Listen)
	fill(&cfg.Events.Provider, d.Events.Provider)
}

// Validate checks the values that would otherwise fail deep inside a
// component at first use.
func (c *Config) Validate() error {
	name := strings.TrimSpace(c.User.Name)
	if n := utf8.RuneCountInString(name); n < minUserNameLen || n > maxUserNameLen {
		return fmt.Errorf("%w: user.name must be between %d and %d characters, got %q",
			ErrInvalidConfig, minUserNameLen, maxUserNameLen, c.User.Name)
	}

	chunking := chunker.Config{Window: c.Chunking.Window, Overlap: c.Chunking.Overlap}
	if err := chunking.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if c.Recall.MaxResults < 1 {
		return fmt.Errorf("%w: recall.max_results must be at least 1, got %d", ErrInvalidConfig, c.Recall.MaxResults)
	}
	if c.Recall.MinSimilarity < 0 || c.Recall.MinSimilarity > 1 {
		return fmt.Errorf("%w: recall.min_similarity must be within [0, 1], got %g", ErrInvalidConfig, c.Recall.MinSimilarity)
	}

	if c.History.MaxTokens < 1 {
		return fmt.Errorf("%w: history.max_tokens must be positive, got %d", ErrInvalidConfig, c.History.MaxTokens)
	}

	return nil
}

// SaveConfig writes cfg to config.toml through a temp file and rename, so a
// failed write never leaves a truncated config behind.
func (c *Configer) SaveConfig(cfg *Config) error {
	if cfg == nil {
		return errors.New("cannot save nil config")
	}
	if c.path == "" {
		return dotdir.ErrNoTarget
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(c.path), ".config-*.toml")
	if err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("writing config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.path); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// SetConfigValue parses value into key and saves the config if it still
// validates.
func (c *Configer) SetConfigValue(key, value string) error {
	return c.update(key, func(cfg *Config, info configKeyInfo) error {
		return info.set(cfg, value)
	})
}

// UnsetConfigValue puts key back to its default and saves the config.
func (c *Configer) UnsetConfigValue(key string) error {
	return c.update(key, func(cfg *Config, info configKeyInfo) error {
		return info.set(cfg, info.get(NewDefaultConfig()))
	})
}

func (c *Configer) update(key string, apply func(*Config, configKeyInfo) error) error {
	info, err := lookupKey(key)
	if err != nil {
		return err
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return err
	}

	if err := apply(cfg, info); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	return c.SaveConfig(cfg)
}

// GetConfigValue returns the effective value of key, "" when unset.
func (c *Configer) GetConfigValue(key string) (string, error) {
	info, err := lookupKey(key)
	if err != nil {
		return "", err
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return "", err
	}

	return info.get(cfg), nil
}

// ConfigValues returns every key with its effective value, in
// ValidConfigKeys order.
func (c *Configer) ConfigValues() ([]KeyValue, error) {
	cfg, err := c.LoadConfig()
	if err != nil {
		return nil, err
	}

	out := make([]KeyValue, 0, len(keyOrder))
	for _, key := range keyOrder {
		out = append(out, KeyValue{Key: key, Value: configKeys[key].get(cfg)})
	}
	return out, nil
}

var presets = map[string]func(*Config){
	"ollama": func(*Config) {},
	"chroma": func(c *Config) {
		c.VectorStore.Provider = "chroma"
		c.VectorStore.Target = "http://localhost:8000"
	},
	"qdrant": func(c *Config) {
		c.VectorStore.Provider = "qdrant"
		c.VectorStore.Target = "localhost:6334"
	},
}

// PresetConfig returns the defaults switched to a local Ollama embedder,
// plus the named preset's vector store. Names are case-insensitive.
func PresetConfig(name string) (*Config, error) {
	apply, ok := presets[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown preset: %q (available: %s)", name, strings.Join(ValidPresetNames(), ", "))
	}

	cfg := NewDefaultConfig()
	cfg.Embedding = EmbeddingConfig{
		Provider:   "ollama",
		Target:     defaultOllamaTarget,
		Model:      defaultOllamaModel,
		Dimensions: defaultOllamaDimensions,
	}
	apply(cfg)

	return cfg, nil
}

// ValidPresetNames returns the list of recognized preset names.
func ValidPresetNames() []string {
	return []string{"ollama", "chroma", "qdrant"}
}

// ParseConfigTOML decodes data without applying defaults. A version other
// than CurrentV is rejected.
func ParseConfigTOML(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config TOML: %w", err)
	}

	if cfg.Version != CurrentV {
		return nil, fmt.Errorf("unsupported config version %d (expected %d)", cfg.Version, CurrentV)
	}

	return cfg, nil
}
