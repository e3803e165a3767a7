package cli

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/itish2003/semsearch/config"
	"github.com/itish2003/semsearch/embedding"
	"github.com/itish2003/semsearch/logging"
	"github.com/itish2003/semsearch/services"
	"github.com/itish2003/semsearch/vectorindex"
)

// app is the fully wired service graph shared by the commands.
type app struct {
	logger  *zap.Logger
	index   vectorindex.Client
	loader  *services.DatasetLoader
	manager *services.IndexManager
	service services.SearchService
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, err
	}

	index, err := newIndexClient(cfg)
	if err != nil {
		return nil, err
	}
	logger.Info("vector index client ready",
		zap.String("backend", cfg.Index.Backend), zap.String("index", cfg.Index.Name))

	embedder, err := embedding.New(ctx, cfg.Embedding, cfg.Index.Dimension)
	if err != nil {
		index.Close()
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	logger.Info("embedder ready",
		zap.String("provider", cfg.Embedding.Provider), zap.String("model", embedder.ModelName()))

	spec := vectorindex.IndexSpec{
		Name:      cfg.Index.Name,
		Dimension: cfg.Index.Dimension,
		Metric:    cfg.Index.Metric,
	}

	loader := services.NewDatasetLoader(cfg.Dataset.MaxRows, cfg.Dataset.NamespaceLength, logger)
	manager := services.NewIndexManager(index, cfg.Index.ReadyPollInterval, cfg.Index.ReadyTimeout, logger)
	service := services.NewSearchService(
		services.NewSessionStore(cfg.Session.TTL, cfg.Session.CleanupInterval),
		loader,
		services.NewBatchProcessor(embedder, index, spec.Name, cfg.Dataset.BatchSize, logger),
		services.NewQueryHandler(embedder, index, spec.Name, cfg.Index.TopK, logger),
		manager,
		spec,
		logger,
	)

	return &app{
		logger:  logger,
		index:   index,
		loader:  loader,
		manager: manager,
		service: service,
	}, nil
}

func newIndexClient(cfg *config.Config) (vectorindex.Client, error) {
	switch cfg.Index.Backend {
	case config.BackendChroma:
		return vectorindex.NewChromaClient(vectorindex.ChromaConfig{
			BaseURL:  cfg.Chroma.URL,
			APIKey:   cfg.Chroma.APIKey,
			Tenant:   cfg.Chroma.Tenant,
			Database: cfg.Chroma.Database,
		})
	case config.BackendBolt:
		return vectorindex.NewBoltClient(cfg.Index.BoltPath)
	case config.BackendMemory:
		return vectorindex.NewMemoryClient(), nil
	default:
		return nil, fmt.Errorf("unknown index backend %q", cfg.Index.Backend)
	}
}

func (a *app) Close() {
	if err := a.index.Close(); err != nil {
		a.logger.Warn("failed to close index client", zap.Error(err))
	}
	_ = a.logger.Sync()
}
