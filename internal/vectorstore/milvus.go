package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"finassist/pkg/logger"
)

// Column names of the Milvus collection schema.
const (
	fieldID         = "id"
	fieldEmbedding  = "embedding"
	fieldDocument   = "document"
	fieldRecordType = "record_type"
	fieldUserID     = "user_id"
	fieldCategory   = "category"
	fieldPayload    = "payload" // full metadata mapping, JSON-encoded
)

// filterableFields are the metadata keys stored as dedicated scalar columns
// and therefore usable in server-side filter expressions. Filters on any
// other key are applied client-side against the decoded payload.
var filterableFields = map[string]bool{
	fieldRecordType: true,
	fieldUserID:     true,
	fieldCategory:   true,
}

// MilvusStore implements the Store interface on top of a Milvus collection.
// The cosine metric is fixed in the collection index; Milvus reports cosine
// similarity scores which are converted to distances on the way out.
//
// Deviation from the Store contract: Milvus's ANN search decides the order
// of equal-distance hits itself, so the insertion-order tie-break is not
// guaranteed here. LocalStore is the reference implementation for that part
// of the contract.
type MilvusStore struct {
	log        *logger.Logger
	client     client.Client
	collection string
	dim        int
}

// NewMilvusStore connects to Milvus and binds the store to a collection with
// open-or-create semantics: an existing collection is loaded, a missing one
// is created with the fixed schema and a cosine IVF_FLAT index.
func NewMilvusStore(ctx context.Context, address, collection string, dim int, log *logger.Logger) (*MilvusStore, error) {
	c, err := client.NewClient(ctx, client.Config{Address: address})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Milvus at '%s': %w", address, err)
	}

	s := &MilvusStore{
		log:        log,
		client:     c,
		collection: collection,
		dim:        dim,
	}
	if err := s.ensureCollection(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Close releases the underlying Milvus connection.
func (s *MilvusStore) Close() {
	if s.client != nil {
		s.client.Close()
	}
}

// ensureCollection looks the collection up by name and creates it on miss.
func (s *MilvusStore) ensureCollection(ctx context.Context) error {
	exists, err := s.client.HasCollection(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection '%s': %w", s.collection, err)
	}

	if !exists {
		schema := entity.NewSchema().
			WithName(s.collection).
			WithDescription("semantic index over financial records").
			WithField(entity.NewField().WithName(fieldID).WithDataType(entity.FieldTypeVarChar).WithMaxLength(128).WithIsPrimaryKey(true)).
			WithField(entity.NewField().WithName(fieldEmbedding).WithDataType(entity.FieldTypeFloatVector).WithDim(int64(s.dim))).
			WithField(entity.NewField().WithName(fieldDocument).WithDataType(entity.FieldTypeVarChar).WithMaxLength(65535)).
			WithField(entity.NewField().WithName(fieldRecordType).WithDataType(entity.FieldTypeVarChar).WithMaxLength(64)).
			WithField(entity.NewField().WithName(fieldUserID).WithDataType(entity.FieldTypeVarChar).WithMaxLength(64)).
			WithField(entity.NewField().WithName(fieldCategory).WithDataType(entity.FieldTypeVarChar).WithMaxLength(64)).
			WithField(entity.NewField().WithName(fieldPayload).WithDataType(entity.FieldTypeVarChar).WithMaxLength(65535))

		if err := s.client.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
			return fmt.Errorf("failed to create collection '%s': %w", s.collection, err)
		}

		idx, err := entity.NewIndexIvfFlat(entity.COSINE, 128)
		if err != nil {
			return fmt.Errorf("failed to build index definition: %w", err)
		}
		if err := s.client.CreateIndex(ctx, s.collection, fieldEmbedding, idx, false); err != nil {
			return fmt.Errorf("failed to create index on '%s': %w", fieldEmbedding, err)
		}
		s.log.Info(fmt.Sprintf("Created Milvus collection '%s' (dim=%d)", s.collection, s.dim))
	}

	if err := s.client.LoadCollection(ctx, s.collection, false); err != nil {
		return fmt.Errorf("failed to load collection '%s': %w", s.collection, err)
	}
	return nil
}

// Insert upserts one entry. Milvus upsert replaces the full row for an
// existing primary key, which matches the index contract.
func (s *MilvusStore) Insert(ctx context.Context, entry Entry) error {
	if entry.ID == "" {
		return fmt.Errorf("entry id must not be empty")
	}
	metadata, err := validateMetadata(entry.Metadata)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("failed to encode metadata payload: %w", err)
	}

	cols := []entity.Column{
		entity.NewColumnVarChar(fieldID, []string{entry.ID}),
		entity.NewColumnFloatVector(fieldEmbedding, s.dim, [][]float32{normalize(entry.Embedding)}),
		entity.NewColumnVarChar(fieldDocument, []string{entry.Document}),
		entity.NewColumnVarChar(fieldRecordType, []string{metadataString(metadata, fieldRecordType)}),
		entity.NewColumnVarChar(fieldUserID, []string{metadataString(metadata, fieldUserID)}),
		entity.NewColumnVarChar(fieldCategory, []string{metadataString(metadata, fieldCategory)}),
		entity.NewColumnVarChar(fieldPayload, []string{string(payload)}),
	}

	if _, err := s.client.Upsert(ctx, s.collection, "" /* default partition */, cols...); err != nil {
		return fmt.Errorf("failed to upsert entry '%s': %w", entry.ID, err)
	}
	return nil
}

// QueryByVector runs a cosine nearest-neighbor search with optional metadata
// filtering. Filters on dedicated columns run server-side; the rest are
// applied to the decoded payload.
func (s *MilvusStore) QueryByVector(ctx context.Context, vector []float32, topK int, filter map[string]interface{}) ([]Match, error) {
	canonical, err := ValidateFilter(filter)
	if err != nil {
		return nil, err
	}
	if err := s.checkCollection(ctx); err != nil {
		return nil, err
	}

	serverFilter, clientFilter := splitFilter(canonical)
	expr := buildFilterExpression(serverFilter)

	sp, _ := entity.NewIndexIvfFlatSearchParam(10)
	outputFields := []string{fieldID, fieldDocument, fieldPayload}

	results, err := s.client.Search(
		ctx, s.collection, []string{}, expr, outputFields,
		[]entity.Vector{entity.FloatVector(normalize(vector))},
		fieldEmbedding, entity.COSINE, fetchLimit(topK, len(clientFilter) > 0), sp,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search collection '%s': %w", s.collection, err)
	}

	var matches []Match
	for _, res := range results {
		docs := varcharData(res.Fields, fieldDocument)
		payloads := varcharData(res.Fields, fieldPayload)
		ids, ok := res.IDs.(*entity.ColumnVarChar)
		if !ok {
			continue
		}
		for i := 0; i < res.ResultCount; i++ {
			entry := Entry{ID: ids.Data()[i]}
			if i < len(docs) {
				entry.Document = docs[i]
			}
			if i < len(payloads) {
				entry.Metadata = decodePayload(payloads[i])
			}
			if !matchesFilter(entry.Metadata, clientFilter) {
				continue
			}
			// Milvus reports cosine similarity; convert to distance.
			matches = append(matches, Match{Entry: entry, Distance: 1 - res.Scores[i]})
		}
	}
	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// fetchLimit widens the search when hits must still pass a client-side
// filter: Milvus returns only the requested number of neighbors, so without
// over-fetching a filtered query could come back short even though more
// matching entries exist.
func fetchLimit(topK int, hasClientFilter bool) int {
	if !hasClientFilter || topK <= 0 {
		return topK
	}
	return topK * 4
}

// QueryByMetadata returns entries exactly matching the filter, capped at limit.
func (s *MilvusStore) QueryByMetadata(ctx context.Context, filter map[string]interface{}, limit int) ([]Entry, error) {
	canonical, err := ValidateFilter(filter)
	if err != nil {
		return nil, err
	}
	if err := s.checkCollection(ctx); err != nil {
		return nil, err
	}

	serverFilter, clientFilter := splitFilter(canonical)
	expr := buildFilterExpression(serverFilter)
	if expr == "" {
		// Milvus rejects an empty expression; match every primary key.
		expr = fmt.Sprintf(`%s != ""`, fieldID)
	}

	opts := []client.SearchQueryOptionFunc{}
	if limit > 0 && len(clientFilter) == 0 {
		opts = append(opts, client.WithLimit(int64(limit)))
	}

	rs, err := s.client.Query(ctx, s.collection, []string{}, expr,
		[]string{fieldID, fieldDocument, fieldPayload}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to query collection '%s': %w", s.collection, err)
	}

	ids := varcharData(rs, fieldID)
	docs := varcharData(rs, fieldDocument)
	payloads := varcharData(rs, fieldPayload)

	var results []Entry
	for i := range ids {
		entry := Entry{ID: ids[i]}
		if i < len(docs) {
			entry.Document = docs[i]
		}
		if i < len(payloads) {
			entry.Metadata = decodePayload(payloads[i])
		}
		if !matchesFilter(entry.Metadata, clientFilter) {
			continue
		}
		results = append(results, entry)
		if limit > 0 && len(results) == limit {
			break
		}
	}
	return results, nil
}

// Flush forces buffered writes to storage.
func (s *MilvusStore) Flush(ctx context.Context) error {
	if err := s.client.Flush(ctx, s.collection, false); err != nil {
		return fmt.Errorf("failed to flush collection '%s': %w", s.collection, err)
	}
	return nil
}

func (s *MilvusStore) checkCollection(ctx context.Context) error {
	exists, err := s.client.HasCollection(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection '%s': %w", s.collection, err)
	}
	if !exists {
		return fmt.Errorf("%w: '%s'", ErrNotFound, s.collection)
	}
	return nil
}

// splitFilter separates keys with dedicated columns from keys that only live
// in the JSON payload.
func splitFilter(filter map[string]interface{}) (server, clientSide map[string]interface{}) {
	server = make(map[string]interface{})
	clientSide = make(map[string]interface{})
	for key, value := range filter {
		if _, isString := value.(string); isString && filterableFields[key] {
			server[key] = value
		} else {
			clientSide[key] = value
		}
	}
	return server, clientSide
}

// buildFilterExpression renders a Milvus boolean expression from scalar
// equality conditions.
func buildFilterExpression(filter map[string]interface{}) string {
	if len(filter) == 0 {
		return ""
	}
	var conditions []string
	for key, value := range filter {
		if v, ok := value.(string); ok {
			conditions = append(conditions, fmt.Sprintf(`%s == "%s"`, key, escapeExprString(v)))
		}
	}
	return strings.Join(conditions, " and ")
}

func escapeExprString(v string) string {
	return strings.ReplaceAll(v, `"`, `\"`)
}

// metadataString reads a string metadata value, defaulting to empty.
func metadataString(metadata map[string]interface{}, key string) string {
	if v, ok := metadata[key].(string); ok {
		return v
	}
	return ""
}

// decodePayload restores the metadata mapping from its JSON column. A
// malformed payload degrades to an empty mapping rather than failing a query.
func decodePayload(payload string) map[string]interface{} {
	metadata := make(map[string]interface{})
	if payload == "" {
		return metadata
	}
	if err := json.Unmarshal([]byte(payload), &metadata); err != nil {
		return map[string]interface{}{}
	}
	return metadata
}

// varcharData extracts the string data of a named column from a result set.
func varcharData(cols []entity.Column, name string) []string {
	for _, col := range cols {
		if col.Name() != name {
			continue
		}
		if vc, ok := col.(*entity.ColumnVarChar); ok {
			return vc.Data()
		}
	}
	return nil
}

// compile-time check that MilvusStore implements the Store interface
var _ Store = (*MilvusStore)(nil)
