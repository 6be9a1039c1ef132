// myclaw - personal AI assistant runtime
// License: MIT

package providers

import (
	"strings"
)

// Registry maps provider names to implementations and resolves the model
// descriptor for a run.
type Registry struct {
	byName map[string]Provider
}

// NewRegistry returns a registry with the built-in providers registered.
func NewRegistry() *Registry {
	r := &Registry{byName: map[string]Provider{}}
	anthropic := NewAnthropicProvider()
	oai := NewOpenAIProvider()
	r.Register("anthropic", anthropic)
	r.Register("claude", anthropic)
	r.Register("openai", oai)
	r.Register("gpt", oai)
	return r
}

// Register binds a provider implementation to a name.
func (r *Registry) Register(name string, p Provider) {
	r.byName[strings.ToLower(strings.TrimSpace(name))] = p
}

// Resolve returns the descriptor and implementation for the given provider
// name, model, and optional base URL. Unknown names fall back to an
// OpenAI-compatible descriptor: most gateways speak that wire format, and a
// base URL plus key is all they need.
func (r *Registry) Resolve(providerName, model, baseURL string) (ModelDescriptor, Provider) {
	name := strings.ToLower(strings.TrimSpace(providerName))
	if name == "" {
		name = inferProviderFromModel(model)
	}

	if p, ok := r.byName[name]; ok {
		canonical := name
		switch name {
		case "claude":
			canonical = "anthropic"
		case "gpt":
			canonical = "openai"
		}
		return ModelDescriptor{Provider: canonical, Model: model, BaseURL: baseURL}, p
	}

	return ModelDescriptor{Provider: name, Model: model, BaseURL: baseURL}, r.byName["openai"]
}

func inferProviderFromModel(model string) string {
	lower := strings.ToLower(model)
	switch {
	case strings.Contains(lower, "claude"):
		return "anthropic"
	case strings.Contains(lower, "gpt") || strings.HasPrefix(lower, "o1") || strings.HasPrefix(lower, "o3"):
		return "openai"
	default:
		return "openai"
	}
}
