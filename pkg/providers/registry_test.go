package providers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve_Builtins(t *testing.T) {
	r := NewRegistry()

	desc, p := r.Resolve("anthropic", "claude-sonnet-4-5", "")
	assert.Equal(t, "anthropic", desc.Provider)
	assert.IsType(t, &AnthropicProvider{}, p)

	desc, p = r.Resolve("claude", "claude-haiku-4-5", "")
	assert.Equal(t, "anthropic", desc.Provider)
	assert.IsType(t, &AnthropicProvider{}, p)

	desc, p = r.Resolve("openai", "gpt-5", "")
	assert.Equal(t, "openai", desc.Provider)
	assert.IsType(t, &OpenAIProvider{}, p)
}

func TestResolve_InferredFromModel(t *testing.T) {
	r := NewRegistry()
	desc, p := r.Resolve("", "claude-sonnet-4-5", "")
	assert.Equal(t, "anthropic", desc.Provider)
	assert.IsType(t, &AnthropicProvider{}, p)
}

func TestResolve_UnknownFallsBackToCompatible(t *testing.T) {
	r := NewRegistry()
	desc, p := r.Resolve("groq", "llama-3.3-70b", "https://api.groq.com/openai/v1")
	assert.Equal(t, "groq", desc.Provider)
	assert.Equal(t, "https://api.groq.com/openai/v1", desc.BaseURL)
	assert.IsType(t, &OpenAIProvider{}, p, "unknown providers use the compatible wire format")
}

func TestRegister_CustomProvider(t *testing.T) {
	r := NewRegistry()
	fake := &fakeProvider{}
	r.Register("fake", fake)
	_, p := r.Resolve("fake", "model-x", "")
	assert.Same(t, Provider(fake), p)
}

type fakeProvider struct{}

func (f *fakeProvider) Stream(ctx context.Context, desc ModelDescriptor, chat ChatContext, opts CallOptions) (*AssistantMessage, error) {
	return &AssistantMessage{}, nil
}

func (f *fakeProvider) Complete(ctx context.Context, desc ModelDescriptor, chat ChatContext, opts CallOptions) (*AssistantMessage, error) {
	return &AssistantMessage{}, nil
}
