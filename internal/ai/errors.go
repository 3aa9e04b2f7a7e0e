package ai

import (
	"errors"
	"fmt"
)

// rawSnippetLimit bounds how much model output is carried inside a SynthesisParseError.
const rawSnippetLimit = 500

// ErrNoJSON is returned by ExtractJSON when no bracket pair encloses a candidate value.
var ErrNoJSON = errors.New("no json value found in model output")

// ProviderError reports a failed upstream model call. Body holds the raw error body
// returned by the provider, or the transport error text when no response arrived.
type ProviderError struct {
	Provider   Provider
	StatusCode int
	Body       string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s API error: %s", e.Provider, e.Body)
	}
	return fmt.Sprintf("%s API error (status %d): %s", e.Provider, e.StatusCode, e.Body)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// HTTPStatusCode exposes the upstream status for retry classification.
func (e *ProviderError) HTTPStatusCode() int { return e.StatusCode }

// SynthesisParseError means the synthesis response held no parseable JSON object.
type SynthesisParseError struct {
	Raw string // first rawSnippetLimit characters of the model output
	Err error
}

func (e *SynthesisParseError) Error() string {
	return fmt.Sprintf("failed to parse AI response as JSON: %v", e.Err)
}

func (e *SynthesisParseError) Unwrap() error { return e.Err }

// SynthesisEmptyResultError means the response parsed but carried no usable files.
type SynthesisEmptyResultError struct {
	ProjectName string
}

func (e *SynthesisEmptyResultError) Error() string {
	return "no files generated"
}

func truncateRunes(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
