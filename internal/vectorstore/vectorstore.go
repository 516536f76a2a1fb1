package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// ErrNotFound is returned when a named collection does not exist.
var ErrNotFound = errors.New("collection not found")

// ErrInvalidFilter is returned when a metadata filter is structurally invalid,
// e.g. carries a non-scalar value. A filter key that simply matches nothing is
// not an error; such queries return empty results.
var ErrInvalidFilter = errors.New("invalid metadata filter")

// Entry is the unit stored in the vector index: a globally unique id, the
// embedding vector, the normalized document text and a scalar-only metadata
// mapping.
type Entry struct {
	ID        string                 `json:"id"`
	Document  string                 `json:"document"`
	Embedding []float32              `json:"embedding"`
	Metadata  map[string]interface{} `json:"metadata"`
}

// Match is one result of a nearest-neighbor query. Distance is the cosine
// distance to the query vector; smaller means closer.
type Match struct {
	Entry
	Distance float32
}

// Store is the vector-index contract. Implementations are bound to one named
// collection at construction.
//
// Insert has upsert semantics: re-inserting an existing id fully replaces the
// vector, document and metadata in one step. The distance metric is cosine
// over normalized vectors; it is fixed because the embedding model's vectors
// are only comparable under the metric it was tuned for.
type Store interface {
	// Insert upserts a single entry. Concurrent inserts on the same id are
	// serialized so a partial vector is never paired with stale metadata.
	Insert(ctx context.Context, entry Entry) error

	// QueryByVector returns up to topK entries ranked by ascending cosine
	// distance to the query vector, ties broken by insertion order. A nil or
	// empty filter matches everything.
	QueryByVector(ctx context.Context, vector []float32, topK int, filter map[string]interface{}) ([]Match, error)

	// QueryByMetadata returns up to limit entries whose metadata exactly
	// matches every filter key/value, in insertion order. A filter key absent
	// from all entries yields an empty result, not an error.
	QueryByMetadata(ctx context.Context, filter map[string]interface{}, limit int) ([]Entry, error)
}

// canonicalScalar coerces a metadata or filter value to its canonical scalar
// form (string, bool or float64). Non-scalar values are rejected.
func canonicalScalar(v interface{}) (interface{}, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case bool:
		return val, nil
	case float64:
		return val, nil
	case float32:
		return float64(val), nil
	case int:
		return float64(val), nil
	case int32:
		return float64(val), nil
	case int64:
		return float64(val), nil
	default:
		return nil, fmt.Errorf("non-scalar value of type %T", v)
	}
}

// ValidateFilter rejects structurally invalid filters before any lookup runs.
// It returns the filter with values coerced to canonical scalar form.
func ValidateFilter(filter map[string]interface{}) (map[string]interface{}, error) {
	if len(filter) == 0 {
		return nil, nil
	}
	canonical := make(map[string]interface{}, len(filter))
	for key, value := range filter {
		cv, err := canonicalScalar(value)
		if err != nil {
			return nil, fmt.Errorf("%w: key '%s': %v", ErrInvalidFilter, key, err)
		}
		canonical[key] = cv
	}
	return canonical, nil
}

// validateMetadata enforces the scalar-only metadata invariant on insert and
// returns a canonicalized copy.
func validateMetadata(metadata map[string]interface{}) (map[string]interface{}, error) {
	canonical := make(map[string]interface{}, len(metadata))
	for key, value := range metadata {
		cv, err := canonicalScalar(value)
		if err != nil {
			return nil, fmt.Errorf("metadata key '%s': %v; nested values must be flattened to strings", key, err)
		}
		canonical[key] = cv
	}
	return canonical, nil
}

// matchesFilter reports whether an entry's canonical metadata satisfies every
// key/value pair of an already-canonicalized filter.
func matchesFilter(metadata, filter map[string]interface{}) bool {
	for key, want := range filter {
		got, ok := metadata[key]
		if !ok || got != want {
			return false
		}
	}
	return true
}

// normalize returns an L2-normalized copy of the vector. A zero vector is
// returned unchanged.
func normalize(vector []float32) []float32 {
	var sum float64
	for _, v := range vector {
		sum += float64(v) * float64(v)
	}
	norm := math.Sqrt(sum)
	out := make([]float32, len(vector))
	if norm == 0 {
		copy(out, vector)
		return out
	}
	for i, v := range vector {
		out[i] = float32(float64(v) / norm)
	}
	return out
}

// cosineDistance computes 1 - dot(a, b) for already-normalized vectors.
func cosineDistance(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
	}
	return float32(1 - dot)
}
