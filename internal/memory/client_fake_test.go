package memory

import (
	"context"
	"errors"

	"research-collab/internal/model/llm"
)

var errTest = errors.New("llm unavailable")

// fakeClient scripted llm.Client for tests
type fakeClient struct {
	response string
	err      error
	calls    int
	prompts  []string
}

func (f *fakeClient) Generate(prompt string, opts llm.GenerateOptions) (string, error) {
	return f.GenerateWithContext(context.Background(), prompt, opts)
}

func (f *fakeClient) GenerateWithContext(ctx context.Context, prompt string, opts llm.GenerateOptions) (string, error) {
	f.calls++
	f.prompts = append(f.prompts, prompt)
	return f.response, f.err
}

func (f *fakeClient) Chat(messages []llm.Message, opts llm.GenerateOptions) (string, error) {
	return f.GenerateWithContext(context.Background(), "", opts)
}

func (f *fakeClient) ChatWithContext(ctx context.Context, messages []llm.Message, opts llm.GenerateOptions) (string, error) {
	return f.GenerateWithContext(ctx, "", opts)
}

func (f *fakeClient) Model() string    { return "fake" }
func (f *fakeClient) Provider() string { return "fake" }
