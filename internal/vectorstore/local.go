package vectorstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"finassist/pkg/logger"
)

// LocalStore is a file-backed vector store holding one named collection in
// memory with brute-force cosine search. Every mutation is snapshotted to
// <dir>/<collection>.json so the collection survives restarts.
//
// A single writer lock serializes all inserts, which also satisfies the
// per-id serialization requirement; readers proceed concurrently.
type LocalStore struct {
	mu   sync.RWMutex
	log  *logger.Logger
	path string

	collection string
	entries    map[string]Entry
	order      []string // ids in first-insertion order, for rank tie-breaks
}

// snapshot is the on-disk representation of a collection.
type snapshot struct {
	Collection string   `json:"collection"`
	Order      []string `json:"order"`
	Entries    []Entry  `json:"entries"`
}

// OpenCollection opens an existing collection under dir. It returns
// ErrNotFound when no snapshot for that name exists.
func OpenCollection(dir, collection string, log *logger.Logger) (*LocalStore, error) {
	path := snapshotPath(dir, collection)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: '%s'", ErrNotFound, collection)
		}
		return nil, fmt.Errorf("failed to read collection snapshot '%s': %w", path, err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to parse collection snapshot '%s': %w", path, err)
	}

	s := &LocalStore{
		log:        log,
		path:       path,
		collection: collection,
		entries:    make(map[string]Entry, len(snap.Entries)),
		order:      snap.Order,
	}
	for _, e := range snap.Entries {
		s.entries[e.ID] = e
	}
	log.Info(fmt.Sprintf("Opened collection '%s' with %d entries", collection, len(s.entries)))
	return s, nil
}

// CreateCollection creates a new empty collection under dir and persists its
// initial snapshot.
func CreateCollection(dir, collection string, log *logger.Logger) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory '%s': %w", dir, err)
	}
	s := &LocalStore{
		log:        log,
		path:       snapshotPath(dir, collection),
		collection: collection,
		entries:    make(map[string]Entry),
	}
	if err := s.flushLocked(); err != nil {
		return nil, err
	}
	log.Info(fmt.Sprintf("Created collection '%s'", collection))
	return s, nil
}

// OpenOrCreate looks the collection up by name and creates it on NotFound.
func OpenOrCreate(dir, collection string, log *logger.Logger) (*LocalStore, error) {
	s, err := OpenCollection(dir, collection, log)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	return CreateCollection(dir, collection, log)
}

func snapshotPath(dir, collection string) string {
	return filepath.Join(dir, collection+".json")
}

// Insert upserts one entry: the vector, document and metadata are replaced as
// a whole, and the id keeps its original insertion-order position.
func (s *LocalStore) Insert(ctx context.Context, entry Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if entry.ID == "" {
		return fmt.Errorf("entry id must not be empty")
	}
	metadata, err := validateMetadata(entry.Metadata)
	if err != nil {
		return err
	}

	stored := Entry{
		ID:        entry.ID,
		Document:  entry.Document,
		Embedding: normalize(entry.Embedding),
		Metadata:  metadata,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entries[entry.ID]; !exists {
		s.order = append(s.order, entry.ID)
	}
	s.entries[entry.ID] = stored
	return s.flushLocked()
}

// QueryByVector ranks all entries passing the filter by ascending cosine
// distance to the query vector. Ties keep insertion order.
func (s *LocalStore) QueryByVector(ctx context.Context, vector []float32, topK int, filter map[string]interface{}) ([]Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	canonical, err := ValidateFilter(filter)
	if err != nil {
		return nil, err
	}
	query := normalize(vector)

	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := make([]Match, 0, len(s.order))
	for _, id := range s.order {
		entry := s.entries[id]
		if !matchesFilter(entry.Metadata, canonical) {
			continue
		}
		matches = append(matches, Match{Entry: entry, Distance: cosineDistance(query, entry.Embedding)})
	}

	// Stable sort over insertion-ordered candidates keeps the tie-break.
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Distance < matches[j].Distance
	})

	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// QueryByMetadata returns entries exactly matching every filter key/value, in
// insertion order, capped at limit. A limit of zero or less means no cap.
func (s *LocalStore) QueryByMetadata(ctx context.Context, filter map[string]interface{}, limit int) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	canonical, err := ValidateFilter(filter)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []Entry
	for _, id := range s.order {
		entry := s.entries[id]
		if !matchesFilter(entry.Metadata, canonical) {
			continue
		}
		results = append(results, entry)
		if limit > 0 && len(results) == limit {
			break
		}
	}
	return results, nil
}

// Count returns the number of entries in the collection.
func (s *LocalStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// flushLocked writes the snapshot atomically. Callers must hold the write lock.
func (s *LocalStore) flushLocked() error {
	snap := snapshot{
		Collection: s.collection,
		Order:      s.order,
		Entries:    make([]Entry, 0, len(s.order)),
	}
	for _, id := range s.order {
		snap.Entries = append(snap.Entries, s.entries[id])
	}

	data, err := json.Marshal(&snap)
	if err != nil {
		return fmt.Errorf("failed to encode collection snapshot: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write collection snapshot: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace collection snapshot: %w", err)
	}
	return nil
}

// compile-time check that LocalStore implements the Store interface
var _ Store = (*LocalStore)(nil)
