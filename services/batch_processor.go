package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/itish2003/semsearch/embedding"
	"github.com/itish2003/semsearch/models"
	"github.com/itish2003/semsearch/vectorindex"
)

// ProgressFunc receives ingestion progress as a whole percentage.
type ProgressFunc func(percent int)

// BatchProcessor embeds dataset questions and upserts them into the index.
type BatchProcessor struct {
	embedder  embedding.Embedder
	index     vectorindex.Client
	indexName string
	batchSize int
	logger    *zap.Logger
}

// NewBatchProcessor creates a processor writing batches of batchSize rows.
func NewBatchProcessor(embedder embedding.Embedder, index vectorindex.Client, indexName string, batchSize int, logger *zap.Logger) *BatchProcessor {
	return &BatchProcessor{
		embedder:  embedder,
		index:     index,
		indexName: indexName,
		batchSize: batchSize,
		logger:    logger.Named("indexer"),
	}
}

// Process writes the dataset to the index under namespace in contiguous
// batches, reporting progress after each one. The first failing batch aborts
// the run with an *UpsertError; earlier batches stay written.
func (p *BatchProcessor) Process(ctx context.Context, dataset *models.Dataset, namespace string, progress ProgressFunc) error {
	if progress == nil {
		progress = func(int) {}
	}

	total := dataset.Len()
	if total == 0 {
		progress(100)
		return nil
	}

	for start := 0; start < total; start += p.batchSize {
		end := min(start+p.batchSize, total)
		batch := dataset.Records[start:end]

		texts := make([]string, len(batch))
		for i, r := range batch {
			texts[i] = r.Query
		}

		vectors, err := embedding.EmbedNormalized(ctx, p.embedder, texts)
		if err != nil {
			p.logger.Error("could not embed batch",
				zap.String("namespace", namespace), zap.Int("start", start), zap.Error(err))
			return &UpsertError{Namespace: namespace, RowsWritten: start, Total: total, Err: err}
		}

		items := make([]vectorindex.Vector, len(batch))
		for i, r := range batch {
			items[i] = vectorindex.Vector{ID: r.ID, Values: vectors[i]}
		}

		if err := p.index.Upsert(ctx, p.indexName, namespace, items); err != nil {
			p.logger.Error("could not upsert batch",
				zap.String("namespace", namespace), zap.Int("start", start), zap.Error(err))
			return &UpsertError{Namespace: namespace, RowsWritten: start, Total: total, Err: err}
		}

		progress(end * 100 / total)
		p.logger.Debug("batch upserted",
			zap.String("namespace", namespace), zap.Int("rows", end), zap.Int("total", total))
	}

	p.logger.Info("dataset indexed", zap.String("namespace", namespace), zap.Int("rows", total))
	return nil
}
