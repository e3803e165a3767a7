package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/itish2003/semsearch/embedding"
	"github.com/itish2003/semsearch/models"
	"github.com/itish2003/semsearch/vectorindex"
)

// exitQuery is the sentinel text meaning "no search this round".
const exitQuery = "exit"

// QueryHandler answers free-text questions from the active dataset.
type QueryHandler struct {
	embedder  embedding.Embedder
	index     vectorindex.Client
	indexName string
	topK      int
	logger    *zap.Logger
}

// NewQueryHandler creates a handler retrieving topK candidates per query.
func NewQueryHandler(embedder embedding.Embedder, index vectorindex.Client, indexName string, topK int, logger *zap.Logger) *QueryHandler {
	return &QueryHandler{
		embedder:  embedder,
		index:     index,
		indexName: indexName,
		topK:      topK,
		logger:    logger.Named("query"),
	}
}

// Answer returns the stored answer of the question closest to queryText.
// Blank queries and "exit" return ErrQuerySkipped without any index call.
// An empty result or an id missing from the dataset returns ErrNoMatch.
func (h *QueryHandler) Answer(ctx context.Context, dataset *models.Dataset, namespace, queryText string) (*models.Answer, error) {
	trimmed := embedding.PrepareText(queryText)
	if trimmed == "" || strings.EqualFold(trimmed, exitQuery) {
		return nil, ErrQuerySkipped
	}

	vectors, err := embedding.EmbedNormalized(ctx, h.embedder, []string{trimmed})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query text: %w", err)
	}

	matches, err := h.index.Query(ctx, vectorindex.QueryRequest{
		Index:         h.indexName,
		Namespace:     namespace,
		Vector:        vectors[0],
		TopK:          h.topK,
		IncludeValues: false,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query index: %w", err)
	}
	if len(matches) == 0 {
		return nil, ErrNoMatch
	}

	top := matches[0]
	record, ok := dataset.Lookup(top.ID)
	if !ok {
		h.logger.Warn("index returned id missing from dataset",
			zap.String("namespace", namespace), zap.String("id", top.ID))
		return nil, ErrNoMatch
	}

	return &models.Answer{
		Status:  models.StatusAnswered,
		Query:   trimmed,
		Answer:  record.Answer,
		MatchID: record.ID,
		Score:   top.Score,
	}, nil
}
