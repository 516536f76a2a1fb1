package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// HashingModel is an offline, deterministic embedding model based on token
// feature hashing. It needs no external service, which makes it suitable for
// tests and air-gapped development. Texts sharing tokens produce vectors with
// positive cosine similarity; identical texts produce identical vectors.
type HashingModel struct {
	dim int
}

// NewHashingModel creates a hashing model producing vectors of the given
// dimension.
func NewHashingModel(dim int) *HashingModel {
	if dim <= 0 {
		dim = 256
	}
	return &HashingModel{dim: dim}
}

// Embed generates the embedding vector for a single text.
func (m *HashingModel) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vec := make([]float32, m.dim)
	for _, token := range tokenize(text) {
		h := fnv.New32a()
		h.Write([]byte(token))
		vec[h.Sum32()%uint32(m.dim)]++
	}

	// L2-normalize so cosine similarity reduces to a dot product.
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if norm := math.Sqrt(sum); norm > 0 {
		for i := range vec {
			vec[i] = float32(float64(vec[i]) / norm)
		}
	}
	return vec, nil
}

// EmbedBatch generates embedding vectors for a batch of texts.
func (m *HashingModel) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := m.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = vec
	}
	return embeddings, nil
}

// tokenize lowercases the text and splits it on non-alphanumeric runes.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// compile-time check that HashingModel implements the Model interface
var _ Model = (*HashingModel)(nil)
