package vectorstore

import (
	"context"
	"errors"
	"testing"

	"finassist/pkg/logger"
)

func newTestStore(t *testing.T) *LocalStore {
	t.Helper()
	store, err := CreateCollection(t.TempDir(), "financial_data", logger.New("test", "localstore"))
	if err != nil {
		t.Fatalf("CreateCollection failed: %v", err)
	}
	return store
}

func mustInsert(t *testing.T, store *LocalStore, entry Entry) {
	t.Helper()
	if err := store.Insert(context.Background(), entry); err != nil {
		t.Fatalf("Insert(%s) failed: %v", entry.ID, err)
	}
}

func TestOpenCollectionNotFound(t *testing.T) {
	_, err := OpenCollection(t.TempDir(), "missing", logger.New("test", "localstore"))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("OpenCollection on missing collection: got %v, want ErrNotFound", err)
	}
}

func TestInsertUpsertReplacesWholeEntry(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	mustInsert(t, store, Entry{
		ID:        "txn_1",
		Document:  "old text",
		Embedding: []float32{1, 0},
		Metadata:  map[string]interface{}{"record_type": "transaction", "category": "dining"},
	})
	mustInsert(t, store, Entry{
		ID:        "txn_1",
		Document:  "new text",
		Embedding: []float32{0, 1},
		Metadata:  map[string]interface{}{"record_type": "transaction", "category": "travel"},
	})

	if store.Count() != 1 {
		t.Fatalf("upsert created a duplicate: count = %d", store.Count())
	}

	entries, err := store.QueryByMetadata(ctx, map[string]interface{}{"category": "travel"}, 0)
	if err != nil {
		t.Fatalf("QueryByMetadata failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Document != "new text" {
		t.Fatalf("upsert did not replace entry: %+v", entries)
	}

	// The old metadata must be gone entirely.
	stale, err := store.QueryByMetadata(ctx, map[string]interface{}{"category": "dining"}, 0)
	if err != nil {
		t.Fatalf("QueryByMetadata failed: %v", err)
	}
	if len(stale) != 0 {
		t.Fatalf("stale metadata survived upsert: %+v", stale)
	}
}

func TestQueryByVectorRanksByDistance(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	mustInsert(t, store, Entry{ID: "far", Embedding: []float32{0, 1}, Metadata: map[string]interface{}{}})
	mustInsert(t, store, Entry{ID: "near", Embedding: []float32{1, 0.1}, Metadata: map[string]interface{}{}})
	mustInsert(t, store, Entry{ID: "exact", Embedding: []float32{1, 0}, Metadata: map[string]interface{}{}})

	matches, err := store.QueryByVector(ctx, []float32{1, 0}, 2, nil)
	if err != nil {
		t.Fatalf("QueryByVector failed: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("topK not honored: got %d matches", len(matches))
	}
	if matches[0].ID != "exact" || matches[1].ID != "near" {
		t.Errorf("ranking wrong: got [%s %s]", matches[0].ID, matches[1].ID)
	}
	if matches[0].Distance > matches[1].Distance {
		t.Errorf("distances not ascending: %v > %v", matches[0].Distance, matches[1].Distance)
	}
}

func TestQueryByVectorTieBreaksByInsertionOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// Identical vectors at identical distance; insertion order decides.
	mustInsert(t, store, Entry{ID: "second", Embedding: []float32{1, 1}, Metadata: map[string]interface{}{}})
	mustInsert(t, store, Entry{ID: "third", Embedding: []float32{1, 1}, Metadata: map[string]interface{}{}})

	// Re-inserting "second" must keep its original rank position.
	mustInsert(t, store, Entry{ID: "second", Embedding: []float32{1, 1}, Metadata: map[string]interface{}{}})

	matches, err := store.QueryByVector(ctx, []float32{1, 1}, 0, nil)
	if err != nil {
		t.Fatalf("QueryByVector failed: %v", err)
	}
	if len(matches) != 2 || matches[0].ID != "second" || matches[1].ID != "third" {
		got := make([]string, len(matches))
		for i, m := range matches {
			got[i] = m.ID
		}
		t.Errorf("tie-break order wrong: %v", got)
	}
}

func TestQueryFilterMissIsEmptyNotError(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	mustInsert(t, store, Entry{
		ID:        "off_1",
		Embedding: []float32{1, 0},
		Metadata:  map[string]interface{}{"record_type": "offer"},
	})

	matches, err := store.QueryByVector(ctx, []float32{1, 0}, 5, map[string]interface{}{"no_such_key": "x"})
	if err != nil {
		t.Fatalf("filter on absent key must not error: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("filter on absent key must match nothing, got %d", len(matches))
	}

	entries, err := store.QueryByMetadata(ctx, map[string]interface{}{"record_type": "transaction"}, 0)
	if err != nil {
		t.Fatalf("QueryByMetadata failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("mismatching filter must return empty, got %d", len(entries))
	}
}

func TestInvalidFilterRejected(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.QueryByVector(ctx, []float32{1}, 1, map[string]interface{}{
		"nested": map[string]interface{}{"k": "v"},
	})
	if !errors.Is(err, ErrInvalidFilter) {
		t.Errorf("non-scalar filter value: got %v, want ErrInvalidFilter", err)
	}

	_, err = store.QueryByMetadata(ctx, map[string]interface{}{"list": []string{"a"}}, 0)
	if !errors.Is(err, ErrInvalidFilter) {
		t.Errorf("list filter value: got %v, want ErrInvalidFilter", err)
	}
}

func TestInsertRejectsNestedMetadata(t *testing.T) {
	store := newTestStore(t)
	err := store.Insert(context.Background(), Entry{
		ID:        "bad",
		Embedding: []float32{1},
		Metadata:  map[string]interface{}{"nested": map[string]interface{}{}},
	})
	if err == nil {
		t.Fatal("nested metadata must be rejected at insert")
	}
}

func TestNumericMetadataMatchesAcrossIntAndFloat(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	mustInsert(t, store, Entry{
		ID:        "txn_1",
		Embedding: []float32{1},
		Metadata:  map[string]interface{}{"amount": 500},
	})

	entries, err := store.QueryByMetadata(ctx, map[string]interface{}{"amount": 500.0}, 0)
	if err != nil {
		t.Fatalf("QueryByMetadata failed: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("int-inserted metadata should match float filter, got %d entries", len(entries))
	}
}

func TestPersistenceRoundTrip(t *testing.T) {
	dir := t.TempDir()
	log := logger.New("test", "localstore")

	store, err := CreateCollection(dir, "financial_data", log)
	if err != nil {
		t.Fatalf("CreateCollection failed: %v", err)
	}
	mustInsert(t, store, Entry{
		ID:        "txn_1",
		Document:  "Transaction ID: t1",
		Embedding: []float32{0.6, 0.8},
		Metadata:  map[string]interface{}{"record_type": "transaction", "user_id": "u1"},
	})
	mustInsert(t, store, Entry{
		ID:        "txn_2",
		Document:  "Transaction ID: t2",
		Embedding: []float32{0.8, 0.6},
		Metadata:  map[string]interface{}{"record_type": "transaction", "user_id": "u2"},
	})

	reopened, err := OpenCollection(dir, "financial_data", log)
	if err != nil {
		t.Fatalf("OpenCollection after restart failed: %v", err)
	}
	if reopened.Count() != 2 {
		t.Fatalf("reopened count = %d, want 2", reopened.Count())
	}

	entries, err := reopened.QueryByMetadata(context.Background(), map[string]interface{}{"user_id": "u1"}, 0)
	if err != nil {
		t.Fatalf("QueryByMetadata after restart failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Document != "Transaction ID: t1" {
		t.Fatalf("reopened entry mismatch: %+v", entries)
	}

	matches, err := reopened.QueryByVector(context.Background(), []float32{0.6, 0.8}, 1, nil)
	if err != nil {
		t.Fatalf("QueryByVector after restart failed: %v", err)
	}
	if len(matches) != 1 || matches[0].ID != "txn_1" {
		t.Fatalf("vector query after restart: %+v", matches)
	}
}
