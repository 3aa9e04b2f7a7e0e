package ai

import (
	"log/slog"
)

// Models selects the model used by each stage.
type Models struct {
	Analysis  string
	Plan      string
	Synthesis string
	Enhance   string
}

// DefaultModels mirrors the provider split: fast and strong Groq models for
// analysis and planning, an OpenRouter model for synthesis and enhancement.
func DefaultModels() Models {
	return Models{
		Analysis:  "llama-3.1-8b-instant",
		Plan:      "llama-3.3-70b-versatile",
		Synthesis: "google/gemini-2.0-flash-exp:free",
		Enhance:   "google/gemini-2.0-flash-exp:free",
	}
}

// Generator runs the individual generation stages against a Gateway.
type Generator struct {
	gateway Gateway
	models  Models
	logger  *slog.Logger
}

// NewGenerator wires the stages to a gateway. Empty model names take DefaultModels.
func NewGenerator(gateway Gateway, models Models, logger *slog.Logger) *Generator {
	defaults := DefaultModels()
	if models.Analysis == "" {
		models.Analysis = defaults.Analysis
	}
	if models.Plan == "" {
		models.Plan = defaults.Plan
	}
	if models.Synthesis == "" {
		models.Synthesis = defaults.Synthesis
	}
	if models.Enhance == "" {
		models.Enhance = models.Synthesis
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		gateway: gateway,
		models:  models,
		logger:  logger,
	}
}
