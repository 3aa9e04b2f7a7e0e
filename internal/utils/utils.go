package utils

import (
	"context"
	"errors"
	"path"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// statusCoder is implemented by errors that carry an upstream HTTP status.
type statusCoder interface {
	HTTPStatusCode() int
}

// ShouldRetry reports whether err looks transient (rate limits, upstream 5xx, timeouts).
// Cancellation is never transient.
func ShouldRetry(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	var sc statusCoder
	if errors.As(err, &sc) {
		if code := sc.HTTPStatusCode(); code >= 500 || code == 429 {
			return true
		}
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode >= 500 || apiErr.HTTPStatusCode == 429 {
			return true
		}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.HTTPStatusCode >= 500 || reqErr.HTTPStatusCode == 429 {
			return true
		}
	}

	errMsg := strings.ToLower(err.Error())
	return strings.Contains(errMsg, "rate limit") ||
		strings.Contains(errMsg, "timeout") ||
		strings.Contains(errMsg, "connection reset by peer") ||
		strings.Contains(errMsg, "context deadline exceeded")
}

// InferLanguage maps a file path to the language tag used in generated projects.
// Unknown extensions map to "plaintext".
func InferLanguage(filename string) string {
	lower := strings.ToLower(filename)
	switch path.Ext(lower) {
	case ".html", ".htm":
		return "html"
	case ".css":
		return "css"
	case ".js", ".mjs", ".cjs":
		return "javascript"
	case ".jsx":
		return "jsx"
	case ".ts":
		return "typescript"
	case ".tsx":
		return "tsx"
	case ".json":
		return "json"
	case ".md":
		return "markdown"
	case ".svg":
		return "svg"
	case ".txt":
		return "plaintext"
	case ".yaml", ".yml":
		return "yaml"
	}
	return "plaintext"
}

// IsCSS reports whether a file with this language tag and path is a stylesheet.
func IsCSS(language, filePath string) bool {
	return strings.EqualFold(language, "css") || strings.HasSuffix(filePath, ".css")
}

// IsJavaScript reports whether a file with this language tag and path is a script.
func IsJavaScript(language, filePath string) bool {
	l := strings.ToLower(language)
	return l == "javascript" || l == "js" || strings.HasSuffix(filePath, ".js")
}
