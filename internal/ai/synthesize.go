package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"prompt2web_server/internal/ai/prompts"
	"prompt2web_server/internal/types"
	"prompt2web_server/internal/utils"
)

// SynthesizeProject asks the generation model for the complete multi-file project.
// Unlike analysis and planning, failures here are returned to the caller: a
// malformed project has no safe fallback.
func (g *Generator) SynthesizeProject(ctx context.Context, prompt, analysis string, steps []string) (*types.Project, error) {
	prompt = strings.TrimSpace(prompt)

	raw, err := g.gateway.Call(ctx, ProviderOpenRouter, g.models.Synthesis, []types.Message{
		{Role: RoleSystem, Content: prompts.GetSiteGenerationPrompt()},
		{Role: RoleUser, Content: prompts.GetSiteGenerationUserPrompt(prompt, analysis, steps)},
	}, CallOptions{})
	if err != nil {
		return nil, fmt.Errorf("synthesize project: %w", err)
	}

	project, err := ParseProject(raw)
	if err != nil {
		g.logger.Error("project synthesis output rejected", "error", err, "raw", truncateRunes(raw, rawSnippetLimit))
		return nil, err
	}
	project.Steps = append([]string(nil), steps...)

	g.logger.Info("project synthesized", "project", project.ProjectName, "files", len(project.Files))
	return project, nil
}

// synthesisPayload is the wire shape the model is instructed to produce.
type synthesisPayload struct {
	ProjectName string       `json:"projectName"`
	Description string       `json:"description"`
	Files       []types.File `json:"files"`
}

// ParseProject performs tolerant extraction of the project object from raw output.
// It returns *SynthesisParseError when no object parses and
// *SynthesisEmptyResultError when the object carries no usable files.
func ParseProject(raw string) (*types.Project, error) {
	jsonStr, err := ExtractJSON(raw, '{', '}')
	if err != nil {
		return nil, &SynthesisParseError{Raw: truncateRunes(raw, rawSnippetLimit), Err: err}
	}

	var payload synthesisPayload
	if err := json.Unmarshal([]byte(jsonStr), &payload); err != nil {
		return nil, &SynthesisParseError{Raw: truncateRunes(raw, rawSnippetLimit), Err: err}
	}

	files := normalizeFiles(payload.Files)
	if len(files) == 0 {
		return nil, &SynthesisEmptyResultError{ProjectName: payload.ProjectName}
	}

	return &types.Project{
		ProjectName: strings.TrimSpace(payload.ProjectName),
		Description: payload.Description,
		Files:       files,
	}, nil
}

// normalizeFiles cleans paths, fills missing languages from the extension and drops
// entries without a path. When a path repeats, the first entry wins.
func normalizeFiles(in []types.File) []types.File {
	seen := make(map[string]bool, len(in))
	out := make([]types.File, 0, len(in))
	for _, f := range in {
		p := normalizePath(f.Path)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true

		f.Path = p
		f.Language = strings.ToLower(strings.TrimSpace(f.Language))
		if f.Language == "" {
			f.Language = utils.InferLanguage(p)
		}
		out = append(out, f)
	}
	return out
}

func normalizePath(p string) string {
	p = strings.TrimSpace(strings.ReplaceAll(p, "\\", "/"))
	if p == "" {
		return ""
	}
	p = strings.TrimLeft(path.Clean("/"+p), "/")
	if p == "." {
		return ""
	}
	return p
}
