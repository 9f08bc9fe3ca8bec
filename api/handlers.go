package api

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/engram/pkg/history"
	"github.com/papercomputeco/engram/pkg/llm"
	"github.com/papercomputeco/engram/pkg/memory"
)

// StoreRequest is the body of POST /v1/memory.
type StoreRequest struct {
	UserName      string `json:"user_name,omitempty"`
	AssistantName string `json:"assistant_name,omitempty"`
	Prompt        string `json:"prompt"`
	Response      string `json:"response"`
}

// RecallResponse is the body returned by GET /v1/memory/recall.
type RecallResponse struct {
	Query   string          `json:"query"`
	Results []memory.Record `json:"results"`
	Count   int             `json:"count"`
}

// EnhanceRequest is the body of POST /v1/prompt/enhance.
type EnhanceRequest struct {
	Prompt string `json:"prompt"`
}

// EnhanceResponse is the body returned by POST /v1/prompt/enhance.
type EnhanceResponse struct {
	Prompt  string          `json:"prompt"`
	Files   []string        `json:"files"`
	Records []memory.Record `json:"records"`
}

// TruncateRequest is the body of POST /v1/history/truncate.
type TruncateRequest struct {
	Messages  []llm.Message `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

// TruncateResponse is the body returned by POST /v1/history/truncate.
type TruncateResponse struct {
	Messages []llm.Message `json:"messages"`
	Tokens   int           `json:"tokens"`
	Removed  int           `json:"removed"`
	Stalled  bool          `json:"stalled"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleStore stores one conversation turn.
func (s *Server) handleStore(c *fiber.Ctx) error {
	var req StoreRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	userName := req.UserName
	if userName == "" {
		userName = s.config.UserName
	}
	assistantName := req.AssistantName
	if assistantName == "" {
		assistantName = s.config.AssistantName
	}

	result := s.config.Store.StoreResponse(c.UserContext(), userName, assistantName, req.Prompt, req.Response)
	switch result.Status {
	case memory.StatusFailed:
		s.logger.Error("failed to store turn", "error", result.Err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: result.Err.Error()})
	case memory.StatusStored:
		return c.Status(fiber.StatusCreated).JSON(result)
	default:
		return c.JSON(result)
	}
}

// handleRecall handles GET /v1/memory/recall.
// Query parameters:
//   - query (required): the text to recall memory for
//   - max_results (optional): maximum number of records, at most memory.MaxResultsLimit
//   - min_similarity (optional): lowest accepted similarity in [0, 1]
func (s *Server) handleRecall(c *fiber.Ctx) error {
	query := c.Query("query")
	if strings.TrimSpace(query) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "query parameter is required"})
	}

	opts := s.config.Recall
	if v := c.Query("max_results"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > memory.MaxResultsLimit {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
				Error: fmt.Sprintf("max_results must be an integer between 1 and %d", memory.MaxResultsLimit),
			})
		}
		opts.MaxResults = n
	}
	if v := c.Query("min_similarity"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 || f > 1 {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "min_similarity must be a number between 0 and 1"})
		}
		opts.MinSimilarity = f
	}

	records := s.config.Recaller.Recall(c.UserContext(), query, opts)
	if records == nil {
		records = []memory.Record{}
	}

	return c.JSON(RecallResponse{
		Query:   query,
		Results: records,
		Count:   len(records),
	})
}

// handleEnhance assembles the context-augmented prompt.
func (s *Server) handleEnhance(c *fiber.Ctx) error {
	var req EnhanceRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	e := s.config.Assembler.Assemble(c.UserContext(), req.Prompt)

	resp := EnhanceResponse{
		Prompt:  e.Prompt,
		Files:   e.Files,
		Records: e.Records,
	}
	if resp.Files == nil {
		resp.Files = []string{}
	}
	if resp.Records == nil {
		resp.Records = []memory.Record{}
	}

	return c.JSON(resp)
}

// handleTruncate trims a conversation history to a token budget. A history
// that cannot be brought under budget is returned with stalled set.
func (s *Server) handleTruncate(c *fiber.Ctx) error {
	var req TruncateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = s.config.MaxTokens
	}

	msgs, tokens, err := s.config.Truncator.Truncate(req.Messages, maxTokens)
	stalled := errors.Is(err, history.ErrTruncationStalled)
	if err != nil && !stalled {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: err.Error()})
	}
	if msgs == nil {
		msgs = []llm.Message{}
	}

	return c.JSON(TruncateResponse{
		Messages: msgs,
		Tokens:   tokens,
		Removed:  len(req.Messages) - len(msgs),
		Stalled:  stalled,
	})
}
