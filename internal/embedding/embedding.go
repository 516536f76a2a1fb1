package embedding

import (
	"context"
	"errors"
	"fmt"

	"finassist/internal/config"
)

// ErrUnavailable marks a transient embedding-service failure (timeout, rate
// limit, outage). Callers may retry with backoff; other errors are permanent.
var ErrUnavailable = errors.New("embedding service unavailable")

// Model maps text to fixed-dimension vectors. For a given provider and model
// version, identical inputs yield identical vectors.
type Model interface {
	// Embed generates the embedding vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embedding vectors for a batch of texts, one vector
	// per input in order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// New creates an embedding model from the configured provider.
func New(cfg config.EmbeddingConfig) (Model, error) {
	switch cfg.Provider {
	case "openai":
		return NewOpenAIModel(cfg.APIKey, cfg.Model, cfg.BaseURL)
	case "gemini":
		return NewGeminiModel(cfg.APIKey, cfg.Model)
	case "ollama":
		return NewOllamaModel(cfg.Model, cfg.BaseURL)
	case "hash":
		return NewHashingModel(cfg.Dimension), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}
}
