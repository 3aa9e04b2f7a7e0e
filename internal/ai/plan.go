package ai

import (
	"context"
	"encoding/json"
	"strings"

	"prompt2web_server/internal/ai/prompts"
	"prompt2web_server/internal/types"
)

// DefaultPlanSteps is returned whenever the planning model fails or answers with
// something that is not a JSON array of strings.
func DefaultPlanSteps() []string {
	return []string{
		"Architecting the project structure",
		"Designing the responsive foundation",
		"Building core components",
		"Implementing visual styling",
		"Adding animations & transitions",
		"Optimizing global performance",
	}
}

// CreatePlan asks the stronger model for 6-8 build steps. It never fails: plan
// steps only narrate progress, so any error yields DefaultPlanSteps.
func (g *Generator) CreatePlan(ctx context.Context, prompt, analysis string) []string {
	prompt = strings.TrimSpace(prompt)

	raw, err := g.gateway.Call(ctx, ProviderGroq, g.models.Plan, []types.Message{
		{Role: RoleSystem, Content: prompts.GetPlanSystemPrompt()},
		{Role: RoleUser, Content: prompts.GetPlanUserPrompt(prompt, analysis)},
	}, CallOptions{})
	if err != nil {
		g.logger.Warn("plan call failed, using default steps", "error", err)
		return DefaultPlanSteps()
	}

	steps, err := ParsePlan(raw)
	if err != nil {
		g.logger.Warn("plan parsing failed, using default steps", "error", err, "raw", truncateRunes(raw, rawSnippetLimit))
		return DefaultPlanSteps()
	}
	return steps
}

// ParsePlan extracts a JSON array of step labels from raw model output, falling
// back to DefaultPlanSteps when none can be found. The error reports why the
// fallback was used and is informational only.
func ParsePlan(raw string) ([]string, error) {
	jsonStr, err := ExtractJSON(raw, '[', ']')
	if err != nil {
		return DefaultPlanSteps(), err
	}

	var steps []string
	if err := json.Unmarshal([]byte(jsonStr), &steps); err != nil {
		return DefaultPlanSteps(), err
	}

	cleaned := steps[:0]
	for _, s := range steps {
		if s = strings.TrimSpace(s); s != "" {
			cleaned = append(cleaned, s)
		}
	}
	if len(cleaned) == 0 {
		return DefaultPlanSteps(), ErrNoJSON
	}
	return cleaned, nil
}
