package ai

import (
	"context"
	"sync"

	"prompt2web_server/internal/types"
)

type recordedCall struct {
	Provider Provider
	Model    string
	Messages []types.Message
	Opts     CallOptions
}

// fakeGateway answers calls from a fixed script keyed by provider.
type fakeGateway struct {
	mu        sync.Mutex
	responses map[Provider]string
	errs      map[Provider]error
	calls     []recordedCall
}

func (f *fakeGateway) Call(_ context.Context, provider Provider, model string, messages []types.Message, opts CallOptions) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, recordedCall{Provider: provider, Model: model, Messages: messages, Opts: opts})
	if err := f.errs[provider]; err != nil {
		return "", err
	}
	return f.responses[provider], nil
}
