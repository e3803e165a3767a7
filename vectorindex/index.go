// Package vectorindex defines the boundary to the vector index service and its
// adapters: Chroma for deployments, bbolt for a local persistent index, and an
// in-process index for development and tests.
package vectorindex

import (
	"context"
	"errors"
	"sort"
)

// MetricCosine is the only similarity metric the service provisions.
const MetricCosine = "cosine"

var (
	// ErrIndexNotFound is returned by DescribeIndex and data operations when the
	// named index does not exist.
	ErrIndexNotFound = errors.New("index not found")
	// ErrNamespaceNotFound is returned by Delete when the namespace holds no vectors.
	ErrNamespaceNotFound = errors.New("namespace not found")
	// ErrDimensionMismatch is returned when a vector does not fit the index dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)

// IndexSpec describes an index to provision.
type IndexSpec struct {
	Name      string
	Dimension int
	Metric    string
}

// IndexStatus is the result of DescribeIndex.
type IndexStatus struct {
	Name      string
	Dimension int
	Metric    string
	Ready     bool
}

// Vector is one (id, values) pair written by Upsert.
type Vector struct {
	ID     string
	Values []float32
}

// QueryRequest is a top-k nearest neighbour query scoped to one namespace.
type QueryRequest struct {
	Index         string
	Namespace     string
	Vector        []float32
	TopK          int
	IncludeValues bool
}

// Match is one query hit. Values is only set when IncludeValues was requested.
type Match struct {
	ID     string
	Score  float64
	Values []float32
}

// DeleteRequest removes vectors from a namespace, either by id or all of them.
type DeleteRequest struct {
	Index     string
	Namespace string
	IDs       []string
	DeleteAll bool
}

// Client is the contract of the external vector index service.
type Client interface {
	// CreateIndex requests creation of an index. Readiness is observed via DescribeIndex.
	CreateIndex(ctx context.Context, spec IndexSpec) error

	// DescribeIndex reports the index status, or ErrIndexNotFound.
	DescribeIndex(ctx context.Context, name string) (*IndexStatus, error)

	// Upsert inserts or replaces vectors under the given namespace.
	Upsert(ctx context.Context, index, namespace string, vectors []Vector) error

	// Query returns the closest vectors, best first.
	Query(ctx context.Context, req QueryRequest) ([]Match, error)

	// Delete removes vectors from a namespace.
	Delete(ctx context.Context, req DeleteRequest) error

	// Close releases resources.
	Close() error
}

// rankMatches orders by score descending, ties by id, and truncates to topK.
func rankMatches(matches []Match, topK int) []Match {
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ID < matches[j].ID
	})
	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches
}
