package ai

import (
	"context"
	"strings"

	"prompt2web_server/internal/ai/prompts"
	"prompt2web_server/internal/types"
)

// EnhancePrompt expands a short description into a fuller specification. Enhancement
// is optional polish, so any failure returns the original prompt.
func (g *Generator) EnhancePrompt(ctx context.Context, prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return prompt
	}

	enhanced, err := g.gateway.Call(ctx, ProviderOpenRouter, g.models.Enhance, []types.Message{
		{Role: RoleSystem, Content: prompts.GetEnhanceSystemPrompt()},
		{Role: RoleUser, Content: prompt},
	}, CallOptions{Temperature: 0.7, MaxTokens: 500})
	if err != nil {
		g.logger.Warn("prompt enhancement failed, keeping original", "error", err)
		return prompt
	}

	enhanced = strings.TrimSpace(enhanced)
	if enhanced == "" {
		return prompt
	}
	return enhanced
}
