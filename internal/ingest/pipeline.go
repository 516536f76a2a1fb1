package ingest

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"

	"finassist/internal/embedding"
	"finassist/internal/models"
	"finassist/internal/vectorstore"
	"finassist/pkg/logger"
)

// Outcome is the per-record result of a bulk ingestion run. A failed record
// never aborts the batch; its error is recorded here instead.
type Outcome struct {
	ID  string
	Err error
}

// Pipeline indexes financial records: each record is normalized to its text
// projection, embedded, and upserted into the vector store. Records are
// processed by a bounded worker pool because the embedding calls, not CPU,
// are the bottleneck.
type Pipeline struct {
	embedder embedding.Model
	store    vectorstore.Store
	log      *logger.Logger
	workers  int
}

// NewPipeline creates an ingestion pipeline. workers bounds the number of
// concurrent embedding calls and should match the embedding service's
// concurrency limit.
func NewPipeline(embedder embedding.Model, store vectorstore.Store, workers int, log *logger.Logger) *Pipeline {
	if workers <= 0 {
		workers = 1
	}
	return &Pipeline{
		embedder: embedder,
		store:    store,
		log:      log,
		workers:  workers,
	}
}

// Run indexes every record of the dataset and returns one outcome per record
// in dataset order. The only error returned is context cancellation; record
// failures are reported through the outcomes.
func (p *Pipeline) Run(ctx context.Context, dataset *models.Dataset) ([]Outcome, error) {
	records := dataset.Records()
	outcomes := make([]Outcome, len(records))

	p.log.Info(fmt.Sprintf("Indexing %d records with %d workers", len(records), p.workers))

	eg, gCtx := errgroup.WithContext(ctx)
	eg.SetLimit(p.workers)

	for i, record := range records {
		eg.Go(func() error {
			if err := gCtx.Err(); err != nil {
				outcomes[i] = Outcome{ID: record.IndexID(), Err: err}
				return err
			}
			outcomes[i] = Outcome{ID: record.IndexID(), Err: p.IndexRecord(gCtx, record)}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return outcomes, err
	}

	failed := 0
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		p.log.Warn(fmt.Sprintf("Indexed %d records, %d failed", len(records)-failed, failed))
	} else {
		p.log.Info(fmt.Sprintf("Indexed %d records", len(records)))
	}
	return outcomes, nil
}

// IndexRecord normalizes, embeds and upserts a single record.
func (p *Pipeline) IndexRecord(ctx context.Context, record models.Record) error {
	text := models.EmbeddingTextOf(record)

	vector, err := p.embedder.Embed(ctx, text)
	if err != nil {
		return fmt.Errorf("failed to embed record '%s': %w", record.IndexID(), err)
	}

	entry := vectorstore.Entry{
		ID:        record.IndexID(),
		Document:  text,
		Embedding: vector,
		Metadata:  record.IndexMetadata(),
	}
	if err := p.store.Insert(ctx, entry); err != nil {
		return fmt.Errorf("failed to insert record '%s': %w", record.IndexID(), err)
	}
	return nil
}

// LoadDatasetFile reads and parses an ingestion JSON file.
func LoadDatasetFile(path string) (*models.Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset file '%s': %w", path, err)
	}
	return models.ParseDataset(data)
}
