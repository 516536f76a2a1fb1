package llm

import (
	"context"
	"errors"
	"fmt"

	"finassist/internal/config"
)

// ErrGeneration marks a failed language-model call. Sessions surface it
// without mutating their turn history.
var ErrGeneration = errors.New("language model call failed")

// LLM generates text from a prompt.
type LLM interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// New creates a language-model client from the configured provider.
func New(cfg config.LLMConfig) (LLM, error) {
	switch cfg.Provider {
	case "openai":
		return NewOpenAI(cfg.APIKey, cfg.Model, cfg.BaseURL)
	case "gemini":
		return NewGemini(cfg.APIKey, cfg.Model)
	case "ollama":
		return NewOllama(cfg.Model, cfg.BaseURL)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
