package embedding

import (
	"context"
	"errors"
	"fmt"
	"net"

	openai "github.com/meguminnnnnnnnn/go-openai"
)

// OpenAIModel generates embeddings through the OpenAI API.
type OpenAIModel struct {
	client *openai.Client
	model  string
}

// NewOpenAIModel creates an OpenAI embedding client. baseURL may be empty to
// use the public endpoint, or point at an Azure-style deployment.
func NewOpenAIModel(apiKey, modelName, baseURL string) (*OpenAIModel, error) {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIModel{
		client: openai.NewClientWithConfig(cfg),
		model:  modelName,
	}, nil
}

// Embed generates the embedding vector for a single text.
func (m *OpenAIModel) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := m.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// EmbedBatch generates embedding vectors for a batch of texts.
func (m *OpenAIModel) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	req := openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(m.model),
	}

	resp, err := m.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, classifyError(err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data))
	}

	embeddings := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		embeddings[i] = d.Embedding
	}
	return embeddings, nil
}

// classifyError separates transient service failures, which are retryable,
// from permanent request errors.
func classifyError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500 {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return fmt.Errorf("embedding request failed: %w", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return fmt.Errorf("embedding request failed: %w", err)
}

// compile-time check that OpenAIModel implements the Model interface
var _ Model = (*OpenAIModel)(nil)
