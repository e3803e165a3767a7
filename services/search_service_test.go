package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itish2003/semsearch/models"
)

func TestSearchService_UploadThenAsk(t *testing.T) {
	ctx := context.Background()
	deps := newTestService(t, newRecordingIndex())

	sess, err := deps.service.StartSession(ctx)
	require.NoError(t, err)

	var reported []int
	result, err := deps.service.IngestDataset(ctx, sess.ID, "letters.csv", csvOf("a,A", "b,B", "c,C"), func(p int) {
		reported = append(reported, p)
	})
	require.NoError(t, err)
	assert.Equal(t, "letters.csv", result.Namespace)
	assert.Equal(t, 3, result.Rows)
	assert.True(t, result.Embedded)
	assert.Equal(t, 100, result.Progress)
	assert.Equal(t, []int{100}, reported)

	answer, err := deps.service.Ask(ctx, sess.ID, "b")
	require.NoError(t, err)
	assert.Equal(t, models.StatusAnswered, answer.Status)
	assert.Equal(t, "B", answer.Answer)

	progress, err := deps.service.Progress(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, progress.Progress)
}

func TestSearchService_AskStatuses(t *testing.T) {
	ctx := context.Background()
	deps := newTestService(t, newRecordingIndex())
	sess, err := deps.service.StartSession(ctx)
	require.NoError(t, err)

	_, err = deps.service.Ask(ctx, sess.ID, "b")
	assert.ErrorIs(t, err, ErrNoDataset)

	_, err = deps.service.IngestDataset(ctx, sess.ID, "letters.csv", csvOf("a,A"), nil)
	require.NoError(t, err)

	answer, err := deps.service.Ask(ctx, sess.ID, "Exit")
	require.NoError(t, err)
	assert.Equal(t, models.StatusSkipped, answer.Status)

	_, err = deps.service.ClearNamespace(ctx, sess.ID)
	require.NoError(t, err)

	answer, err = deps.service.Ask(ctx, sess.ID, "a")
	require.NoError(t, err)
	assert.Equal(t, models.StatusNoMatch, answer.Status)
	assert.Empty(t, answer.Answer)
}

func TestSearchService_ReuploadSkipsEmbedding(t *testing.T) {
	ctx := context.Background()
	deps := newTestService(t, newRecordingIndex())
	sess, err := deps.service.StartSession(ctx)
	require.NoError(t, err)

	_, err = deps.service.IngestDataset(ctx, sess.ID, "letters.csv", csvOf("a,A", "b,B"), nil)
	require.NoError(t, err)
	again, err := deps.service.IngestDataset(ctx, sess.ID, "letters.csv", csvOf("a,A", "b,B"), nil)
	require.NoError(t, err)

	assert.False(t, again.Embedded)
	assert.Len(t, deps.index.upserts, 1)
}

func TestSearchService_ReuploadAfterFailedUploadReportsComplete(t *testing.T) {
	ctx := context.Background()
	idx := newRecordingIndex()
	deps := newTestService(t, idx)
	sess, err := deps.service.StartSession(ctx)
	require.NoError(t, err)

	_, err = deps.service.IngestDataset(ctx, sess.ID, "a.csv", csvOf("a,A"), nil)
	require.NoError(t, err)

	idx.failUpsertAt = 2
	_, err = deps.service.IngestDataset(ctx, sess.ID, "b.csv", csvOf("b,B"), nil)
	require.ErrorIs(t, err, ErrUpsertFailed)

	var reported []int
	again, err := deps.service.IngestDataset(ctx, sess.ID, "a.csv", csvOf("a,A"), func(p int) {
		reported = append(reported, p)
	})
	require.NoError(t, err)
	assert.False(t, again.Embedded)
	assert.Equal(t, 100, again.Progress)
	assert.Equal(t, []int{100}, reported)

	progress, err := deps.service.Progress(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, progress.Progress)

	answer, err := deps.service.Ask(ctx, sess.ID, "a")
	require.NoError(t, err)
	assert.Equal(t, "A", answer.Answer)
}

func TestSearchService_SecondDistinctUploadIsEmbedded(t *testing.T) {
	ctx := context.Background()
	deps := newTestService(t, newRecordingIndex())
	sess, err := deps.service.StartSession(ctx)
	require.NoError(t, err)

	_, err = deps.service.IngestDataset(ctx, sess.ID, "letters.csv", csvOf("a,A"), nil)
	require.NoError(t, err)
	second, err := deps.service.IngestDataset(ctx, sess.ID, "colors.csv", csvOf("red,Rot", "blue,Blau"), nil)
	require.NoError(t, err)
	assert.True(t, second.Embedded)

	answer, err := deps.service.Ask(ctx, sess.ID, "blue")
	require.NoError(t, err)
	assert.Equal(t, "Blau", answer.Answer)
	assert.Equal(t, 1, deps.index.Count(testIndex, "letters.csv"))
	assert.Equal(t, 2, deps.index.Count(testIndex, "colors.csv"))
}

func TestSearchService_ClearThenReuploadReembeds(t *testing.T) {
	ctx := context.Background()
	deps := newTestService(t, newRecordingIndex())
	sess, err := deps.service.StartSession(ctx)
	require.NoError(t, err)

	_, err = deps.service.IngestDataset(ctx, sess.ID, "letters.csv", csvOf("a,A"), nil)
	require.NoError(t, err)

	ns, err := deps.service.ClearNamespace(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "letters.csv", ns)
	_, err = deps.service.ClearNamespace(ctx, sess.ID)
	require.NoError(t, err)

	again, err := deps.service.IngestDataset(ctx, sess.ID, "letters.csv", csvOf("a,A"), nil)
	require.NoError(t, err)
	assert.True(t, again.Embedded)
	assert.Equal(t, 1, deps.index.Count(testIndex, "letters.csv"))
}

func TestSearchService_PartialIngestion(t *testing.T) {
	ctx := context.Background()
	idx := newRecordingIndex()
	idx.failUpsertAt = 1
	deps := newTestService(t, idx)
	sess, err := deps.service.StartSession(ctx)
	require.NoError(t, err)

	_, err = deps.service.IngestDataset(ctx, sess.ID, "letters.csv", csvOf("a,A"), nil)
	var upsertErr *UpsertError
	require.True(t, errors.As(err, &upsertErr))
	assert.Zero(t, upsertErr.RowsWritten)

	// The namespace is not marked populated, so a retry embeds again.
	idx.failUpsertAt = 0
	again, err := deps.service.IngestDataset(ctx, sess.ID, "letters.csv", csvOf("a,A"), nil)
	require.NoError(t, err)
	assert.True(t, again.Embedded)
}

func TestSearchService_MalformedUploadKeepsSession(t *testing.T) {
	ctx := context.Background()
	deps := newTestService(t, newRecordingIndex())
	sess, err := deps.service.StartSession(ctx)
	require.NoError(t, err)

	_, err = deps.service.IngestDataset(ctx, sess.ID, "bad.csv", strings.NewReader("Question\nx\n"), nil)
	assert.ErrorIs(t, err, ErrMalformedInput)

	_, err = deps.service.IngestDataset(ctx, sess.ID, "letters.csv", csvOf("a,A"), nil)
	assert.NoError(t, err)
}

func TestSearchService_IndexUnavailableDisablesSession(t *testing.T) {
	ctx := context.Background()
	idx := newRecordingIndex()
	idx.createErr = errors.New("quota exceeded")
	deps := newTestService(t, idx)

	sess, err := deps.service.StartSession(ctx)
	require.ErrorIs(t, err, ErrIndexUnavailable)
	require.NotNil(t, sess)

	_, err = deps.service.IngestDataset(ctx, sess.ID, "letters.csv", csvOf("a,A"), nil)
	assert.ErrorIs(t, err, ErrIndexUnavailable)
	_, err = deps.service.Ask(ctx, sess.ID, "a")
	assert.ErrorIs(t, err, ErrIndexUnavailable)
	_, err = deps.service.ClearNamespace(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrIndexUnavailable)
}

func TestSearchService_UnknownSession(t *testing.T) {
	ctx := context.Background()
	deps := newTestService(t, newRecordingIndex())

	_, err := deps.service.IngestDataset(ctx, "nope", "letters.csv", csvOf("a,A"), nil)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = deps.service.Ask(ctx, "nope", "a")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = deps.service.Progress("nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	sess, err := deps.service.StartSession(ctx)
	require.NoError(t, err)
	deps.service.EndSession(sess.ID)
	_, err = deps.service.Ask(ctx, sess.ID, "a")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionStore(t *testing.T) {
	store := NewSessionStore(time.Hour, time.Hour)

	a := store.Create()
	b := store.Create()
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, 2, store.Count())

	got, ok := store.Get(a.ID)
	require.True(t, ok)
	assert.Same(t, a, got)

	store.Delete(a.ID)
	_, ok = store.Get(a.ID)
	assert.False(t, ok)
	assert.Equal(t, 1, store.Count())
}

func TestSessionStore_Expires(t *testing.T) {
	store := NewSessionStore(10*time.Millisecond, time.Hour)
	sess := store.Create()

	time.Sleep(30 * time.Millisecond)
	_, ok := store.Get(sess.ID)
	assert.False(t, ok)
}
