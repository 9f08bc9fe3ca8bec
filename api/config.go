// Package api provides the HTTP API server for storing, recalling and
// assembling conversational memory.
package api

import (
	"github.com/papercomputeco/engram/pkg/memory"
	"github.com/papercomputeco/engram/pkg/metrics"
)

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8081")
	ListenAddr string

	Store     Storer
	Recaller  Recaller
	Assembler Assembler
	Truncator Truncator

	// UserName and AssistantName are used when a store request omits them.
	UserName      string
	AssistantName string

	// Recall holds the defaults for recall requests.
	Recall memory.Options

	// MaxTokens is the default budget for truncate requests.
	MaxTokens int

	// Metrics, when set, is served on /metrics.
	Metrics *metrics.Metrics

	// DisableMCP turns off the /mcp endpoint.
	DisableMCP bool
}
