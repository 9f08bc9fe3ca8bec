// Package servecmder provides the serve command running the engram memory API.
package servecmder

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/engram/api"
	"github.com/papercomputeco/engram/cmd/engram/backend"
	"github.com/papercomputeco/engram/pkg/config"
	"github.com/papercomputeco/engram/pkg/logger"
	"github.com/papercomputeco/engram/pkg/metrics"
)

type ServeCommander struct {
	noMCP     bool
	noMetrics bool
	logFile   string
	configDir string
	debug     bool

	cfg    *config.Config
	logger *slog.Logger
}

var serveFlagKeys = append([]string{
	config.FlagAPIListen,
	config.FlagUser,
	config.FlagAssistant,
	config.FlagMaxResults,
	config.FlagMinSimilarity,
	config.FlagMaxTokens,
	config.FlagSourceDir,
	config.FlagEventsProv,
	config.FlagEventsTgt,
}, config.BackendFlags...)

const serveLongDesc string = `Run the engram memory API server.

The server exposes:
  GET  /ping                   Health check
  POST /v1/memory              Store a conversation turn
  GET  /v1/memory/recall       Recall relevant past turns
  POST /v1/prompt/enhance      Build a context-augmented prompt
  POST /v1/history/truncate    Fit a history into a token budget
  GET  /metrics                Prometheus metrics
  /mcp                         MCP tools (memory_recall, memory_store, prompt_enhance)

Stored turns are published to the configured event stream (kafka or redis)
when events.provider is set.

Examples:
  engram serve
  engram serve --log-file /var/log/engram.json
  engram serve --listen :9000 --vector-store-provider chroma --vector-store-target http://localhost:8000
  engram serve --events-provider kafka --events-target localhost:9092`

const serveShortDesc string = "Run the engram memory API server"

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.cfg, err = config.FromCommand(cmd, serveFlagKeys)
			if err != nil {
				return err
			}
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run(cmd.Context(), cmd.ErrOrStderr())
		},
	}

	config.AddRegisteredFlags(cmd, config.Flags, serveFlagKeys)
	cmd.Flags().BoolVar(&cmder.noMCP, "no-mcp", false, "Disable the /mcp endpoint")
	cmd.Flags().BoolVar(&cmder.noMetrics, "no-metrics", false, "Disable the /metrics endpoint")
	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Also append JSON logs to this file")

	return cmd
}

func (c *ServeCommander) run(ctx context.Context, errOut io.Writer) error {
	c.logger = logger.NewCLI(errOut, c.debug)
	if c.logFile != "" {
		fileLogger, f, err := logger.NewFile(c.logFile, c.debug)
		if err != nil {
			return err
		}
		defer f.Close()
		c.logger = logger.Multi(c.logger, fileLogger)
	}

	var m *metrics.Metrics
	if !c.noMetrics {
		m = metrics.New(metrics.DefaultNamespace)
	}

	b, err := backend.Open(ctx, backend.Options{
		Config:    c.cfg,
		ConfigDir: c.configDir,
		Logger:    c.logger,
		Metrics:   m,
		Events:    true,
		History:   true,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := b.Close(); err != nil {
			c.logger.Error("closing backend", "error", err)
		}
	}()

	server, err := api.NewServer(api.Config{
		ListenAddr:    c.cfg.API.Listen,
		Store:         b.Store,
		Recaller:      b.Recaller,
		Assembler:     b.Assembler,
		Truncator:     b.Truncator,
		UserName:      c.cfg.User.Name,
		AssistantName: c.cfg.Assistant.Name,
		Recall:        backend.RecallOptions(c.cfg),
		MaxTokens:     c.cfg.History.MaxTokens,
		Metrics:       m,
		DisableMCP:    c.noMCP,
	}, c.logger.With(logger.ComponentKey, "api"))
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	c.logger.Info("starting engram API server",
		"listen", c.cfg.API.Listen,
		"vector_store", c.cfg.VectorStore.Provider,
		"embedding", c.cfg.Embedding.Provider,
		"events", c.cfg.Events.Provider,
	)

	errChan := make(chan error, 1)
	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", "signal", sig.String())
		return server.Shutdown()
	}
}
