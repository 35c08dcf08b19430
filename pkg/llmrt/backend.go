package llmrt

import (
	"fmt"

	"noctua/pkg/llmrt/anthropic"
	"noctua/pkg/llmrt/genai"
	"noctua/pkg/llmrt/llmtypes"
	"noctua/pkg/llmrt/ollama"
	"noctua/pkg/llmrt/openai"
)

// newBackend dispatches on cfg.Provider, defaulting to anthropic per
// SPEC_FULL.md's domain stack.
func newBackend(cfg Config) (llmtypes.Backend, error) {
	provider := cfg.Provider
	if provider == "" {
		provider = "anthropic"
	}

	switch provider {
	case "anthropic":
		return anthropic.NewBackend(cfg.Model)
	case "openai":
		return openai.NewBackend(cfg.Model)
	case "ollama":
		return ollama.NewBackend(cfg.Model)
	case "genai":
		return genai.NewBackend(cfg.Model)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", provider)
	}
}
