package mcp

import (
	"context"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/engram/pkg/memory"
)

var (
	memoryRecallToolName    = "memory_recall"
	memoryRecallDescription = "Recall past conversation turns relevant to a query from engram memory. Returns formatted chunks with their similarity scores, highest first, with near-duplicates removed."

	memoryStoreToolName    = "memory_store"
	memoryStoreDescription = "Store one conversation turn (a user prompt and the assistant response) in engram memory so it can be recalled later."
)

// MemoryRecallInput represents the input arguments for the memory_recall tool.
type MemoryRecallInput struct {
	Query         string  `json:"query" jsonschema:"the text to find relevant memory for"`
	MaxResults    int      `json:"max_results,omitempty" jsonschema:"maximum number of records to return, at most 100 (default: 3)"`
	MinSimilarity *float64 `json:"min_similarity,omitempty" jsonschema:"lowest similarity in [0,1] a record may have; 0 accepts every match (default: 0.2)"`
}

// MemoryRecallOutput represents the structured output of a memory recall.
type MemoryRecallOutput struct {
	Query   string          `json:"query"`
	Records []memory.Record `json:"records"`
	Count   int             `json:"count"`
}

// MemoryStoreInput represents the input arguments for the memory_store tool.
type MemoryStoreInput struct {
	Prompt        string `json:"prompt" jsonschema:"the user prompt of the turn"`
	Response      string `json:"response" jsonschema:"the assistant response of the turn"`
	UserName      string `json:"user_name,omitempty" jsonschema:"speaker name for the prompt"`
	AssistantName string `json:"assistant_name,omitempty" jsonschema:"speaker name for the response"`
}

// MemoryStoreOutput reports the outcome of a memory_store call.
type MemoryStoreOutput struct {
	Status           string   `json:"status"`
	Timestamp        string   `json:"timestamp,omitempty"`
	PromptChunkIDs   []string `json:"prompt_chunk_ids,omitempty"`
	ResponseChunkIDs []string `json:"response_chunk_ids,omitempty"`
}

// handleMemoryRecall processes a memory recall request via MCP.
func (s *Server) handleMemoryRecall(ctx context.Context, _ *mcp.CallToolRequest, input MemoryRecallInput) (*mcp.CallToolResult, MemoryRecallOutput, error) {
	if strings.TrimSpace(input.Query) == "" {
		return errorResult("query is required"), MemoryRecallOutput{}, nil
	}

	opts := s.config.Recall
	if input.MaxResults > memory.MaxResultsLimit {
		return errorResult("max_results must be at most %d", memory.MaxResultsLimit), MemoryRecallOutput{}, nil
	}
	if input.MaxResults > 0 {
		opts.MaxResults = input.MaxResults
	}
	if m := input.MinSimilarity; m != nil {
		if *m < 0 || *m > 1 {
			return errorResult("min_similarity must be between 0 and 1"), MemoryRecallOutput{}, nil
		}
		opts.MinSimilarity = *m
	}

	s.config.Logger.Debug("MCP memory recall request",
		"query", input.Query,
		"max_results", opts.MaxResults,
	)

	records := s.config.Recaller.Recall(ctx, input.Query, opts)
	if records == nil {
		records = []memory.Record{}
	}

	output := MemoryRecallOutput{
		Query:   input.Query,
		Records: records,
		Count:   len(records),
	}

	result, err := jsonResult(output)
	if err != nil {
		return errorResult("Failed to serialize results: %v", err), MemoryRecallOutput{}, nil
	}

	return result, output, nil
}

// handleMemoryStore processes a memory store request via MCP.
func (s *Server) handleMemoryStore(ctx context.Context, _ *mcp.CallToolRequest, input MemoryStoreInput) (*mcp.CallToolResult, MemoryStoreOutput, error) {
	userName := input.UserName
	if userName == "" {
		userName = s.config.UserName
	}
	assistantName := input.AssistantName
	if assistantName == "" {
		assistantName = s.config.AssistantName
	}

	stored := s.config.Store.StoreResponse(ctx, userName, assistantName, input.Prompt, input.Response)
	if stored.Status == memory.StatusFailed {
		s.config.Logger.Error("MCP memory store failed", "error", stored.Err)
		return errorResult("Memory store failed: %v", stored.Err), MemoryStoreOutput{}, nil
	}

	output := MemoryStoreOutput{
		Status:           stored.Status.String(),
		Timestamp:        stored.Timestamp,
		PromptChunkIDs:   stored.PromptChunkIDs,
		ResponseChunkIDs: stored.ResponseChunkIDs,
	}

	result, err := jsonResult(output)
	if err != nil {
		return errorResult("Failed to serialize results: %v", err), MemoryStoreOutput{}, nil
	}

	return result, output, nil
}
