// Package mcp provides an MCP (Model Context Protocol) server exposing engram
// memory as tools.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/engram/pkg/memory"
	"github.com/papercomputeco/engram/pkg/prompt"
	"github.com/papercomputeco/engram/pkg/utils"
)

// Storer persists turns. *memory.Store satisfies it.
type Storer interface {
	StoreResponse(ctx context.Context, userName, assistantName, prompt, response string) memory.StoreResult
}

type Config struct {
	// Store backs the memory_store tool.
	Store Storer

	// Recaller backs the memory_recall tool.
	Recaller prompt.Recaller

	// Enhancer backs the prompt_enhance tool.
	Enhancer prompt.Enhancer

	// UserName and AssistantName are recorded when memory_store is called
	// without them.
	UserName      string
	AssistantName string

	// Recall holds the defaults for memory_recall.
	Recall memory.Options

	// Noop for empty MCP server
	Noop bool

	// Logger is the configured logger
	Logger *slog.Logger
}

type Server struct {
	config    Config
	mcpServer *mcp.Server
	handler   *mcp.StreamableHTTPHandler
}

// NewServer creates a new MCP server with the memory tools.
func NewServer(c Config) (*Server, error) {
	s := &Server{
		config: c,
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "engram",
			Version: utils.Version,
		},
		&mcp.ServerOptions{},
	)

	s.mcpServer = mcpServer
	s.handler = mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server {
			return mcpServer
		},
		&mcp.StreamableHTTPOptions{
			Stateless: true,
		},
	)

	if c.Noop {
		// return the empty MCP server with no tools configured
		// if the noop flag is set (i.e., MCP capabilities are disabled)
		return s, nil
	}

	if c.Store == nil {
		return nil, errors.New("store is required")
	}
	if c.Recaller == nil {
		return nil, errors.New("recaller is required")
	}
	if c.Enhancer == nil {
		return nil, errors.New("enhancer is required")
	}
	if c.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if s.config.Recall.MaxResults <= 0 {
		s.config.Recall = memory.DefaultOptions()
	}

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        memoryRecallToolName,
		Description: memoryRecallDescription,
	}, s.handleMemoryRecall)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        memoryStoreToolName,
		Description: memoryStoreDescription,
	}, s.handleMemoryStore)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        promptEnhanceToolName,
		Description: promptEnhanceDescription,
	}, s.handlePromptEnhance)

	return s, nil
}

// Handler returns the HTTP handler for the MCP server.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// MCPServer returns the underlying server, e.g. for in-memory transports.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcpServer
}

func errorResult(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf(format, args...)},
		},
	}
}

// jsonResult returns v as structured content plus the same JSON in a
// TextContent block for clients that only read text.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, nil
}
