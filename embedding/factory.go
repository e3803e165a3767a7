package embedding

import (
	"context"
	"fmt"

	"github.com/itish2003/semsearch/config"
)

// New creates the embedder selected by the configuration. An empty model
// selects the provider's own default.
func New(ctx context.Context, cfg config.EmbeddingConfig, dimension int) (Embedder, error) {
	switch cfg.Provider {
	case config.ProviderOllama:
		return NewOllamaEmbedder(cfg.BaseURL, cfg.Model, dimension, cfg.BatchSize)
	case config.ProviderGemini:
		return NewGeminiEmbedder(ctx, GeminiConfig{
			APIKey:            cfg.GeminiAPIKey,
			Model:             cfg.Model,
			BaseURL:           cfg.GeminiBaseURL,
			Dimension:         dimension,
			BatchSize:         cfg.BatchSize,
			RequestsPerSecond: cfg.RequestsPerSecond,
		})
	case config.ProviderHash:
		return NewHashEmbedder(dimension), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}
