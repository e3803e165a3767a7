package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/itish2003/semsearch/vectorindex"
)

var errIndexNotReady = errors.New("index not ready")

// IndexManager provisions the vector index and clears namespaces.
type IndexManager struct {
	index        vectorindex.Client
	pollInterval time.Duration
	readyTimeout time.Duration
	logger       *zap.Logger

	mu    sync.Mutex
	ready map[string]bool
}

// NewIndexManager creates a manager that polls readiness starting at
// pollInterval and gives up after readyTimeout.
func NewIndexManager(index vectorindex.Client, pollInterval, readyTimeout time.Duration, logger *zap.Logger) *IndexManager {
	return &IndexManager{
		index:        index,
		pollInterval: pollInterval,
		readyTimeout: readyTimeout,
		logger:       logger.Named("index"),
		ready:        make(map[string]bool),
	}
}

// EnsureIndex creates the index if it does not exist and blocks until it
// reports ready. Any failure, including the timeout, is ErrIndexUnavailable.
func (m *IndexManager) EnsureIndex(ctx context.Context, spec vectorindex.IndexSpec) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ready[spec.Name] {
		return nil
	}

	_, err := m.index.DescribeIndex(ctx, spec.Name)
	switch {
	case errors.Is(err, vectorindex.ErrIndexNotFound):
		m.logger.Info("creating index",
			zap.String("index", spec.Name), zap.Int("dimension", spec.Dimension), zap.String("metric", spec.Metric))
		if err := m.index.CreateIndex(ctx, spec); err != nil {
			return fmt.Errorf("%w: create %s: %v", ErrIndexUnavailable, spec.Name, err)
		}
	case err != nil:
		return fmt.Errorf("%w: describe %s: %v", ErrIndexUnavailable, spec.Name, err)
	}

	status, err := m.waitReady(ctx, spec.Name)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrIndexUnavailable, spec.Name, err)
	}
	if status.Dimension != 0 && status.Dimension != spec.Dimension {
		return fmt.Errorf("%w: %s has dimension %d, expected %d", ErrIndexUnavailable, spec.Name, status.Dimension, spec.Dimension)
	}

	m.ready[spec.Name] = true
	m.logger.Info("index ready", zap.String("index", spec.Name))
	return nil
}

func (m *IndexManager) waitReady(ctx context.Context, name string) (*vectorindex.IndexStatus, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = m.pollInterval
	b.MaxInterval = 5 * m.pollInterval

	operation := func() (*vectorindex.IndexStatus, error) {
		status, err := m.index.DescribeIndex(ctx, name)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		if !status.Ready {
			m.logger.Debug("waiting for index", zap.String("index", name))
			return nil, errIndexNotReady
		}
		return status, nil
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(b),
		backoff.WithMaxElapsedTime(m.readyTimeout),
	)
}

// ClearNamespace deletes every vector in namespace. A namespace that is
// already empty counts as cleared.
func (m *IndexManager) ClearNamespace(ctx context.Context, indexName, namespace string) error {
	err := m.index.Delete(ctx, vectorindex.DeleteRequest{
		Index:     indexName,
		Namespace: namespace,
		DeleteAll: true,
	})
	if errors.Is(err, vectorindex.ErrNamespaceNotFound) {
		m.logger.Debug("namespace already empty", zap.String("namespace", namespace))
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: namespace %q: %v", ErrDeleteFailed, namespace, err)
	}
	m.logger.Info("namespace cleared", zap.String("index", indexName), zap.String("namespace", namespace))
	return nil
}
