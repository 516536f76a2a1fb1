package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"finassist/internal/embedding"
	"finassist/internal/models"
	"finassist/internal/vectorstore"
	"finassist/pkg/logger"
)

// flakyEmbedder fails for texts containing a marker and delegates the rest.
type flakyEmbedder struct {
	inner  embedding.Model
	marker string
}

func (f *flakyEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.Contains(text, f.marker) {
		return nil, errors.New("embedding service rejected input")
	}
	return f.inner.Embed(ctx, text)
}

func (f *flakyEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := f.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func newTestStore(t *testing.T) *vectorstore.LocalStore {
	t.Helper()
	store, err := vectorstore.CreateCollection(t.TempDir(), "financial_data", logger.New("test", "localstore"))
	if err != nil {
		t.Fatalf("CreateCollection failed: %v", err)
	}
	return store
}

func TestRunIndexesAllRecords(t *testing.T) {
	store := newTestStore(t)
	pipeline := NewPipeline(embedding.NewHashingModel(64), store, 3, logger.New("test", "ingest"))

	dataset := models.NewGenerator(7).Dataset(5, 3, 3, 3)
	outcomes, err := pipeline.Run(context.Background(), dataset)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(outcomes) != 14 {
		t.Fatalf("got %d outcomes, want 14", len(outcomes))
	}
	for _, o := range outcomes {
		if o.Err != nil {
			t.Errorf("record %s failed: %v", o.ID, o.Err)
		}
	}
	if store.Count() != 14 {
		t.Errorf("store holds %d entries, want 14", store.Count())
	}
}

func TestRunContinuesPastRecordFailures(t *testing.T) {
	store := newTestStore(t)
	embedder := &flakyEmbedder{inner: embedding.NewHashingModel(64), marker: "POISON"}
	pipeline := NewPipeline(embedder, store, 2, logger.New("test", "ingest"))

	dataset := &models.Dataset{
		Transactions: []models.Transaction{
			{TransactionID: "ok-1", UserID: "u1", Category: "dining"},
			{TransactionID: "bad", UserID: "u1", Category: "dining", MerchantName: "POISON"},
			{TransactionID: "ok-2", UserID: "u1", Category: "travel"},
		},
	}

	outcomes, err := pipeline.Run(context.Background(), dataset)
	if err != nil {
		t.Fatalf("record failures must not abort the batch: %v", err)
	}
	if len(outcomes) != 3 {
		t.Fatalf("got %d outcomes, want 3", len(outcomes))
	}

	if outcomes[0].Err != nil || outcomes[2].Err != nil {
		t.Errorf("healthy records failed: %v, %v", outcomes[0].Err, outcomes[2].Err)
	}
	if outcomes[1].ID != "txn_bad" || outcomes[1].Err == nil {
		t.Errorf("poisoned record outcome = %+v", outcomes[1])
	}
	if store.Count() != 2 {
		t.Errorf("store holds %d entries, want 2", store.Count())
	}
}

func TestRunStopsOnCancellation(t *testing.T) {
	store := newTestStore(t)
	pipeline := NewPipeline(embedding.NewHashingModel(64), store, 1, logger.New("test", "ingest"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := pipeline.Run(ctx, models.NewGenerator(7).Dataset(3, 0, 0, 0))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled run: got %v, want context.Canceled", err)
	}
}

func TestIndexRecordUpsertsByID(t *testing.T) {
	store := newTestStore(t)
	pipeline := NewPipeline(embedding.NewHashingModel(64), store, 1, logger.New("test", "ingest"))
	ctx := context.Background()

	txn := models.Transaction{TransactionID: "t1", UserID: "u1", Category: "dining"}
	if err := pipeline.IndexRecord(ctx, &txn); err != nil {
		t.Fatalf("IndexRecord failed: %v", err)
	}

	txn.Category = "travel"
	if err := pipeline.IndexRecord(ctx, &txn); err != nil {
		t.Fatalf("IndexRecord failed: %v", err)
	}

	if store.Count() != 1 {
		t.Fatalf("re-indexing duplicated the record: count = %d", store.Count())
	}
	entries, err := store.QueryByMetadata(ctx, map[string]interface{}{"category": "travel"}, 0)
	if err != nil {
		t.Fatalf("QueryByMetadata failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("updated record not found")
	}
}
