package embedding

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiModel generates embeddings through the Google GenAI API.
type GeminiModel struct {
	model *genai.EmbeddingModel
}

// NewGeminiModel creates a Gemini embedding client.
func NewGeminiModel(apiKey, modelName string) (*GeminiModel, error) {
	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GeminiModel{model: client.EmbeddingModel(modelName)}, nil
}

// Embed generates the embedding vector for a single text.
func (m *GeminiModel) Embed(ctx context.Context, text string) ([]float32, error) {
	res, err := m.model.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return res.Embedding.Values, nil
}

// EmbedBatch generates embedding vectors for a batch of texts.
func (m *GeminiModel) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	batch := m.model.NewBatch()
	for _, text := range texts {
		batch.AddContent(genai.Text(text))
	}

	res, err := m.model.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	embeddings := make([][]float32, 0, len(res.Embeddings))
	for _, emb := range res.Embeddings {
		embeddings = append(embeddings, emb.Values)
	}
	return embeddings, nil
}

// compile-time check that GeminiModel implements the Model interface
var _ Model = (*GeminiModel)(nil)
