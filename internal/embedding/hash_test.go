package embedding

import (
	"context"
	"math"
	"testing"
)

func TestHashingModelDeterminism(t *testing.T) {
	model := NewHashingModel(256)
	ctx := context.Background()

	a, err := model.Embed(ctx, "Category: groceries • Merchant: BigBasket")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	b, err := model.Embed(ctx, "Category: groceries • Merchant: BigBasket")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}

	if len(a) != 256 {
		t.Fatalf("dimension = %d, want 256", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("identical texts produced different vectors at %d", i)
		}
	}
}

func TestHashingModelIsNormalized(t *testing.T) {
	model := NewHashingModel(64)
	vec, err := model.Embed(context.Background(), "spending patterns: dining, travel")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}

	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if math.Abs(sum-1) > 1e-5 {
		t.Errorf("vector norm² = %v, want 1", sum)
	}
}

func TestHashingModelSeparatesTopics(t *testing.T) {
	model := NewHashingModel(256)
	ctx := context.Background()

	groceries, _ := model.Embed(ctx, "groceries vegetables supermarket weekly shopping")
	electronics, _ := model.Embed(ctx, "electronics laptop gadget smartphone")
	query, _ := model.Embed(ctx, "categories: groceries vegetables supermarket")

	if dot(query, groceries) <= dot(query, electronics) {
		t.Errorf("groceries query should be closer to groceries text: %v vs %v",
			dot(query, groceries), dot(query, electronics))
	}
}

func TestHashingModelEmbedBatch(t *testing.T) {
	model := NewHashingModel(32)
	vecs, err := model.EmbedBatch(context.Background(), []string{"one", "two", "three"})
	if err != nil {
		t.Fatalf("EmbedBatch failed: %v", err)
	}
	if len(vecs) != 3 {
		t.Fatalf("batch size = %d, want 3", len(vecs))
	}

	single, _ := model.Embed(context.Background(), "two")
	for i := range single {
		if vecs[1][i] != single[i] {
			t.Fatal("batch embedding differs from single embedding")
		}
	}
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
