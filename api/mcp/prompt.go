package mcp

import (
	"context"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var (
	promptEnhanceToolName    = "prompt_enhance"
	promptEnhanceDescription = "Augment a user prompt with relevant past conversation from engram memory and the contents of any referenced .py source files."
)

// PromptEnhanceInput represents the input arguments for the prompt_enhance tool.
type PromptEnhanceInput struct {
	Prompt string `json:"prompt" jsonschema:"the raw user prompt"`
}

// PromptEnhanceOutput represents the enhanced prompt.
type PromptEnhanceOutput struct {
	Prompt string `json:"prompt"`
}

func (s *Server) handlePromptEnhance(ctx context.Context, _ *mcp.CallToolRequest, input PromptEnhanceInput) (*mcp.CallToolResult, PromptEnhanceOutput, error) {
	if strings.TrimSpace(input.Prompt) == "" {
		return errorResult("prompt is required"), PromptEnhanceOutput{}, nil
	}

	output := PromptEnhanceOutput{
		Prompt: s.config.Enhancer.EnhancePrompt(ctx, input.Prompt),
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: output.Prompt},
		},
	}, output, nil
}
