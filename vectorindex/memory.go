package vectorindex

import (
	"context"
	"fmt"
	"sync"
)

// MemoryClient is an in-process vector index for development and testing.
// It behaves like the managed service: indexes must be created before use,
// become ready after a configurable number of status checks, and deleting an
// empty namespace reports ErrNamespaceNotFound.
type MemoryClient struct {
	mu         sync.RWMutex
	indexes    map[string]*memoryIndex
	readyAfter int
	createErr  error
	queries    int
}

type memoryIndex struct {
	spec       IndexSpec
	describes  int
	namespaces map[string]map[string][]float32
}

// MemoryOption configures a MemoryClient.
type MemoryOption func(*MemoryClient)

// WithReadyAfter makes a newly created index report ready only after n
// DescribeIndex calls, to simulate provisioning latency.
func WithReadyAfter(n int) MemoryOption {
	return func(c *MemoryClient) {
		c.readyAfter = n
	}
}

// WithCreateError makes every CreateIndex call fail with err, the way a
// managed service rejects provisioning over quota.
func WithCreateError(err error) MemoryOption {
	return func(c *MemoryClient) {
		c.createErr = err
	}
}

// NewMemoryClient creates an empty in-memory index service.
func NewMemoryClient(opts ...MemoryOption) *MemoryClient {
	c := &MemoryClient{indexes: make(map[string]*memoryIndex)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *MemoryClient) CreateIndex(ctx context.Context, spec IndexSpec) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.createErr != nil {
		return c.createErr
	}
	if spec.Dimension <= 0 {
		return fmt.Errorf("invalid dimension %d", spec.Dimension)
	}
	if _, exists := c.indexes[spec.Name]; exists {
		return nil
	}
	c.indexes[spec.Name] = &memoryIndex{
		spec:       spec,
		namespaces: make(map[string]map[string][]float32),
	}
	return nil
}

func (c *MemoryClient) DescribeIndex(ctx context.Context, name string) (*IndexStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx, ok := c.indexes[name]
	if !ok {
		return nil, ErrIndexNotFound
	}
	idx.describes++
	return &IndexStatus{
		Name:      idx.spec.Name,
		Dimension: idx.spec.Dimension,
		Metric:    idx.spec.Metric,
		Ready:     idx.describes > c.readyAfter,
	}, nil
}

func (c *MemoryClient) Upsert(ctx context.Context, index, namespace string, vectors []Vector) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx, ok := c.indexes[index]
	if !ok {
		return ErrIndexNotFound
	}
	for _, v := range vectors {
		if len(v.Values) != idx.spec.Dimension {
			return fmt.Errorf("%w: expected %d, got %d", ErrDimensionMismatch, idx.spec.Dimension, len(v.Values))
		}
	}

	ns, ok := idx.namespaces[namespace]
	if !ok {
		ns = make(map[string][]float32)
		idx.namespaces[namespace] = ns
	}
	for _, v := range vectors {
		values := make([]float32, len(v.Values))
		copy(values, v.Values)
		ns[v.ID] = values
	}
	return nil
}

func (c *MemoryClient) Query(ctx context.Context, req QueryRequest) ([]Match, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.queries++
	idx, ok := c.indexes[req.Index]
	if !ok {
		return nil, ErrIndexNotFound
	}
	if len(req.Vector) != idx.spec.Dimension {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrDimensionMismatch, idx.spec.Dimension, len(req.Vector))
	}

	ns := idx.namespaces[req.Namespace]
	matches := make([]Match, 0, len(ns))
	for id, values := range ns {
		m := Match{ID: id, Score: CosineSimilarity(req.Vector, values)}
		if req.IncludeValues {
			m.Values = values
		}
		matches = append(matches, m)
	}
	return rankMatches(matches, req.TopK), nil
}

func (c *MemoryClient) Delete(ctx context.Context, req DeleteRequest) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx, ok := c.indexes[req.Index]
	if !ok {
		return ErrIndexNotFound
	}
	ns, ok := idx.namespaces[req.Namespace]
	if !ok {
		return ErrNamespaceNotFound
	}
	if req.DeleteAll {
		delete(idx.namespaces, req.Namespace)
		return nil
	}
	for _, id := range req.IDs {
		delete(ns, id)
	}
	if len(ns) == 0 {
		delete(idx.namespaces, req.Namespace)
	}
	return nil
}

// Count returns the number of vectors stored in a namespace.
func (c *MemoryClient) Count(index, namespace string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	idx, ok := c.indexes[index]
	if !ok {
		return 0
	}
	return len(idx.namespaces[namespace])
}

// QueryCount returns how many Query calls the index has served.
func (c *MemoryClient) QueryCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.queries
}

// Close is a no-op for the in-memory index.
func (c *MemoryClient) Close() error {
	return nil
}
