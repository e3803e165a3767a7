package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/itish2003/semsearch/embedding"
	"github.com/itish2003/semsearch/vectorindex"
)

const testIndex = "dataset"

var testSpec = vectorindex.IndexSpec{Name: testIndex, Dimension: embedding.DefaultDimension, Metric: vectorindex.MetricCosine}

// recordingIndex wraps the in-memory index to observe and inject failures.
type recordingIndex struct {
	*vectorindex.MemoryClient

	upserts      [][]vectorindex.Vector
	failUpsertAt int // 1-based upsert call that fails; 0 disables
	createErr    error
	deleteErr    error
	describeErr  error
}

func newRecordingIndex(opts ...vectorindex.MemoryOption) *recordingIndex {
	return &recordingIndex{MemoryClient: vectorindex.NewMemoryClient(opts...)}
}

func (r *recordingIndex) Upsert(ctx context.Context, index, namespace string, vectors []vectorindex.Vector) error {
	r.upserts = append(r.upserts, vectors)
	if r.failUpsertAt > 0 && len(r.upserts) == r.failUpsertAt {
		return errUpsertInjected
	}
	return r.MemoryClient.Upsert(ctx, index, namespace, vectors)
}

func (r *recordingIndex) CreateIndex(ctx context.Context, spec vectorindex.IndexSpec) error {
	if r.createErr != nil {
		return r.createErr
	}
	return r.MemoryClient.CreateIndex(ctx, spec)
}

func (r *recordingIndex) Delete(ctx context.Context, req vectorindex.DeleteRequest) error {
	if r.deleteErr != nil {
		return r.deleteErr
	}
	return r.MemoryClient.Delete(ctx, req)
}

func (r *recordingIndex) DescribeIndex(ctx context.Context, name string) (*vectorindex.IndexStatus, error) {
	if r.describeErr != nil {
		return nil, r.describeErr
	}
	return r.MemoryClient.DescribeIndex(ctx, name)
}

type injectedError string

func (e injectedError) Error() string { return string(e) }

const errUpsertInjected = injectedError("injected upsert failure")

func readyIndex(t *testing.T) *recordingIndex {
	t.Helper()
	idx := newRecordingIndex()
	require.NoError(t, idx.CreateIndex(context.Background(), testSpec))
	return idx
}

func csvOf(rows ...string) *strings.Reader {
	return strings.NewReader("Query,Answer\n" + strings.Join(rows, "\n") + "\n")
}

type testDeps struct {
	index   *recordingIndex
	service SearchService
}

func newTestService(t *testing.T, idx *recordingIndex) *testDeps {
	t.Helper()
	logger := zap.NewNop()
	embedder := embedding.NewHashEmbedder(embedding.DefaultDimension)

	svc := NewSearchService(
		NewSessionStore(time.Hour, time.Hour),
		NewDatasetLoader(500, 15, logger),
		NewBatchProcessor(embedder, idx, testIndex, 1000, logger),
		NewQueryHandler(embedder, idx, testIndex, 5, logger),
		NewIndexManager(idx, time.Millisecond, time.Second, logger),
		testSpec,
		logger,
	)
	return &testDeps{index: idx, service: svc}
}
