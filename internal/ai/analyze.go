package ai

import (
	"context"
	"fmt"
	"strings"

	"prompt2web_server/internal/ai/prompts"
	"prompt2web_server/internal/types"
)

// AnalyzePrompt asks the fast model for a short requirements summary. The text is
// opaque context for later stages and is never parsed. Callers substitute an empty
// analysis when this fails.
func (g *Generator) AnalyzePrompt(ctx context.Context, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)

	analysis, err := g.gateway.Call(ctx, ProviderGroq, g.models.Analysis, []types.Message{
		{Role: RoleSystem, Content: prompts.GetAnalysisSystemPrompt()},
		{Role: RoleUser, Content: prompt},
	}, CallOptions{})
	if err != nil {
		return "", fmt.Errorf("analyze prompt: %w", err)
	}
	return analysis, nil
}
