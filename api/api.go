package api

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/engram/api/mcp"
	"github.com/papercomputeco/engram/pkg/history"
	"github.com/papercomputeco/engram/pkg/llm"
	"github.com/papercomputeco/engram/pkg/logger"
	"github.com/papercomputeco/engram/pkg/memory"
	"github.com/papercomputeco/engram/pkg/prompt"
)

// Storer persists turns. *memory.Store satisfies it.
type Storer interface {
	StoreResponse(ctx context.Context, userName, assistantName, prompt, response string) memory.StoreResult
}

// Recaller looks up memory. *memory.Recaller satisfies it.
type Recaller = prompt.Recaller

// Assembler builds enhanced prompts. *prompt.Assembler satisfies it.
type Assembler interface {
	Assemble(ctx context.Context, raw string) prompt.Enhancement
	EnhancePrompt(ctx context.Context, raw string) string
}

// Truncator trims conversation history. *history.Truncator satisfies it.
type Truncator interface {
	Truncate(msgs []llm.Message, maxTokens int) ([]llm.Message, int, error)
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Server is the API server for the engram memory system.
type Server struct {
	config Config
	logger *slog.Logger
	app    *fiber.App
}

// NewServer creates a new API server. Store, Recaller, Assembler and
// Truncator are required.
func NewServer(config Config, log *slog.Logger) (*Server, error) {
	if config.Store == nil {
		return nil, errors.New("store is required")
	}
	if config.Recaller == nil {
		return nil, errors.New("recaller is required")
	}
	if config.Assembler == nil {
		return nil, errors.New("assembler is required")
	}
	if config.Truncator == nil {
		return nil, errors.New("truncator is required")
	}
	if config.Recall.MaxResults <= 0 {
		config.Recall = memory.DefaultOptions()
	}
	if config.MaxTokens <= 0 {
		config.MaxTokens = history.DefaultMaxTokens
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config: config,
		logger: logger.OrNop(log),
		app:    app,
	}

	app.Get("/ping", s.handlePing)

	v1 := app.Group("/v1")
	v1.Post("/memory", s.handleStore)
	v1.Get("/memory/recall", s.handleRecall)
	v1.Post("/prompt/enhance", s.handleEnhance)
	v1.Post("/history/truncate", s.handleTruncate)

	if config.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(config.Metrics.Handler()))
	}

	if !config.DisableMCP {
		mcpServer, err := mcp.NewServer(mcp.Config{
			Store:         config.Store,
			Recaller:      config.Recaller,
			Enhancer:      config.Assembler,
			UserName:      config.UserName,
			AssistantName: config.AssistantName,
			Recall:        config.Recall,
			Logger:        s.logger,
		})
		if err != nil {
			return nil, err
		}
		app.All("/mcp", adaptor.HTTPHandler(mcpServer.Handler()))
	}

	return s, nil
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		"listen", s.config.ListenAddr,
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// App exposes the underlying fiber app, mainly for app.Test in tests.
func (s *Server) App() *fiber.App {
	return s.app
}
