// Package backend opens the memory components engram commands share from a
// resolved configuration.
package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/papercomputeco/engram/cmd/engram/sqlitepath"
	"github.com/papercomputeco/engram/pkg/chunker"
	"github.com/papercomputeco/engram/pkg/config"
	embeddingutils "github.com/papercomputeco/engram/pkg/embeddings/utils"
	eventstreamutils "github.com/papercomputeco/engram/pkg/eventstream/utils"
	"github.com/papercomputeco/engram/pkg/history"
	"github.com/papercomputeco/engram/pkg/logger"
	"github.com/papercomputeco/engram/pkg/memory"
	"github.com/papercomputeco/engram/pkg/metrics"
	"github.com/papercomputeco/engram/pkg/prompt"
	vectorutils "github.com/papercomputeco/engram/pkg/vector/utils"
	"github.com/papercomputeco/engram/pkg/worker"
)

type Options struct {
	Config *config.Config

	// ConfigDir is the --config-dir override, used to place the sqlite
	// database next to config.toml.
	ConfigDir string

	Logger  *slog.Logger
	Metrics *metrics.Metrics

	// Events starts a worker pool publishing a TurnStoredEvent for every
	// stored turn to the configured event stream.
	Events bool

	// History loads the tiktoken encoding and builds the Truncator.
	History bool
}

// Backend holds the opened components. Close releases all of them.
type Backend struct {
	Memory    memory.Backend
	Store     *memory.Store
	Recaller  *memory.Recaller
	Assembler *prompt.Assembler
	// Truncator is nil unless Options.History was set.
	Truncator *history.Truncator

	pool *worker.Pool
}

// Open builds every component from o.Config. Anything opened before a
// failure is closed again.
func Open(ctx context.Context, o Options) (*Backend, error) {
	cfg := o.Config
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}
	log := logger.OrNop(o.Logger)

	embedder, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
		ProviderType: cfg.Embedding.Provider,
		TargetURL:    cfg.Embedding.Target,
		Model:        cfg.Embedding.Model,
		Dimensions:   cfg.Embedding.Dimensions,
	})
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	sqlitePath := ""
	if cfg.VectorStore.Provider == vectorutils.ProviderSQLite {
		sqlitePath, err = sqlitepath.ResolveSQLitePath(cfg.Storage.SQLitePath, o.ConfigDir)
		if err != nil {
			_ = embedder.Close()
			return nil, err
		}
	}

	driver, err := vectorutils.NewVectorDriver(ctx, &vectorutils.NewVectorDriverOpts{
		ProviderType: cfg.VectorStore.Provider,
		TargetURL:    cfg.VectorStore.Target,
		Collection:   cfg.VectorStore.Collection,
		SQLitePath:   sqlitePath,
		Dimensions:   cfg.Embedding.Dimensions,
		Logger:       component(log, "vector"),
	})
	if err != nil {
		_ = embedder.Close()
		return nil, fmt.Errorf("creating vector store: %w", err)
	}

	b := &Backend{
		Memory: memory.Backend{Driver: driver, Embedder: embedder},
	}

	log.Info("opened memory backend",
		"vector_store", cfg.VectorStore.Provider,
		"embedding", cfg.Embedding.Provider,
		"sqlite_path", sqlitePath,
	)

	if err := b.build(cfg, o, log); err != nil {
		_ = b.Close()
		return nil, err
	}

	return b, nil
}

func (b *Backend) build(cfg *config.Config, o Options, log *slog.Logger) error {
	ch, err := chunker.New(chunker.Config{
		Window:  cfg.Chunking.Window,
		Overlap: cfg.Chunking.Overlap,
	})
	if err != nil {
		return err
	}

	var events memory.Enqueuer
	if o.Events {
		publisher, err := eventstreamutils.NewPublisher(&eventstreamutils.NewPublisherOpts{
			ProviderType: cfg.Events.Provider,
			TargetURL:    cfg.Events.Target,
			Topic:        cfg.Events.Topic,
		})
		if err != nil {
			return fmt.Errorf("creating event publisher: %w", err)
		}

		b.pool, err = worker.NewPool(&worker.Config{
			Publisher: publisher,
			Logger:    component(log, "events"),
		})
		if err != nil {
			_ = publisher.Close()
			return fmt.Errorf("creating worker pool: %w", err)
		}
		events = b.pool
	}

	b.Store, err = memory.NewStore(memory.StoreConfig{
		Backend: b.Memory,
		Chunker: ch,
		Logger:  component(log, "store"),
		Metrics: o.Metrics,
		Events:  events,
	})
	if err != nil {
		return err
	}

	b.Recaller, err = memory.NewRecaller(memory.RecallConfig{
		Backend: b.Memory,
		Logger:  component(log, "recall"),
		Metrics: o.Metrics,
	})
	if err != nil {
		return err
	}

	b.Assembler, err = prompt.NewAssembler(prompt.Config{
		Recaller:  b.Recaller,
		SourceDir: cfg.Prompt.SourceDir,
		Recall:    RecallOptions(cfg),
		Logger:    component(log, "prompt"),
	})
	if err != nil {
		return err
	}

	if !o.History {
		return nil
	}

	encoder, err := history.NewTiktokenEncoder(cfg.History.Encoding)
	if err != nil {
		return fmt.Errorf("creating tokenizer: %w", err)
	}
	b.Truncator, err = history.NewTruncator(history.Config{
		Encoder: encoder,
		Logger:  component(log, "history"),
		Metrics: o.Metrics,
	})
	return err
}

func component(log *slog.Logger, name string) *slog.Logger {
	return log.With(logger.ComponentKey, name)
}

// RecallOptions returns the recall tuning from cfg.
func RecallOptions(cfg *config.Config) memory.Options {
	return memory.Options{
		MaxResults:    cfg.Recall.MaxResults,
		MinSimilarity: cfg.Recall.MinSimilarity,
	}
}

// Close drains the event pool and closes the vector store and embedder.
func (b *Backend) Close() error {
	var errs []error
	if b.pool != nil {
		errs = append(errs, b.pool.Close())
	}
	errs = append(errs, b.Memory.Close())
	return errors.Join(errs...)
}
