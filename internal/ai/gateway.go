package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"prompt2web_server/internal/types"
)

// Provider names an upstream model provider.
type Provider string

const (
	ProviderOpenRouter Provider = "openrouter"
	ProviderGroq       Provider = "groq"
)

// Message roles accepted by the gateway.
const (
	RoleSystem    = openai.ChatMessageRoleSystem
	RoleUser      = openai.ChatMessageRoleUser
	RoleAssistant = openai.ChatMessageRoleAssistant
)

// CallOptions tunes a single completion. Zero fields fall back to the provider defaults.
type CallOptions struct {
	Temperature float32
	MaxTokens   int
}

// Gateway is the uniform entry point to every model provider. It never retries;
// each stage decides how to recover from a failed call.
type Gateway interface {
	Call(ctx context.Context, provider Provider, model string, messages []types.Message, opts CallOptions) (string, error)
}

// ProviderConfig describes how to reach one OpenAI-compatible provider.
type ProviderConfig struct {
	APIKey   string
	BaseURL  string
	Headers  map[string]string // extra headers sent on every request
	Defaults CallOptions
	Timeout  time.Duration
}

type providerClient struct {
	client   *openai.Client
	defaults CallOptions
}

// Client implements Gateway on top of go-openai, one client per provider.
type Client struct {
	providers map[Provider]providerClient
}

// NewClient builds a gateway for the given providers.
func NewClient(configs map[Provider]ProviderConfig) *Client {
	providers := make(map[Provider]providerClient, len(configs))
	for name, pc := range configs {
		cfg := openai.DefaultConfig(pc.APIKey)
		if pc.BaseURL != "" {
			cfg.BaseURL = strings.TrimRight(pc.BaseURL, "/")
		}
		timeout := pc.Timeout
		if timeout == 0 {
			timeout = 5 * time.Minute
		}
		cfg.HTTPClient = &http.Client{
			Timeout:   timeout,
			Transport: &headerTransport{base: http.DefaultTransport, headers: pc.Headers},
		}
		providers[name] = providerClient{
			client:   openai.NewClientWithConfig(cfg),
			defaults: pc.Defaults,
		}
	}
	return &Client{providers: providers}
}

// Call sends messages to model on provider and returns the first choice's text.
// An empty choice list yields an empty string, not an error.
func (c *Client) Call(ctx context.Context, provider Provider, model string, messages []types.Message, opts CallOptions) (string, error) {
	pc, ok := c.providers[provider]
	if !ok {
		return "", fmt.Errorf("unknown model provider %q", provider)
	}

	req := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    toChatMessages(messages),
		Temperature: pc.defaults.Temperature,
		MaxTokens:   pc.defaults.MaxTokens,
	}
	if opts.Temperature != 0 {
		req.Temperature = opts.Temperature
	}
	if opts.MaxTokens != 0 {
		req.MaxTokens = opts.MaxTokens
	}

	resp, err := pc.client.CreateChatCompletion(ctx, req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("%s call aborted: %w", provider, ctxErr)
		}
		return "", toProviderError(provider, err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

func toChatMessages(messages []types.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	return out
}

func toProviderError(provider Provider, err error) *ProviderError {
	pe := &ProviderError{Provider: provider, Body: err.Error(), Err: err}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		pe.StatusCode = apiErr.HTTPStatusCode
		// the client already decoded the body; re-encode it so type and code survive
		if body, mErr := json.Marshal(openai.ErrorResponse{Error: apiErr}); mErr == nil {
			pe.Body = string(body)
		} else {
			pe.Body = apiErr.Message
		}
		return pe
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		pe.StatusCode = reqErr.HTTPStatusCode
		if len(reqErr.Body) > 0 {
			pe.Body = string(reqErr.Body)
		}
	}
	return pe
}

// headerTransport stamps fixed headers (OpenRouter attribution) onto outgoing requests.
type headerTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if len(t.headers) == 0 {
		return t.base.RoundTrip(req)
	}
	req = req.Clone(req.Context())
	for k, v := range t.headers {
		if v != "" {
			req.Header.Set(k, v)
		}
	}
	return t.base.RoundTrip(req)
}
