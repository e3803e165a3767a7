package services

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedInput means the upload could not be parsed or lacks the
	// Query/Answer columns. Only the current action is aborted.
	ErrMalformedInput = errors.New("malformed input")
	// ErrIndexUnavailable means the index could not be created or confirmed
	// ready. Data-dependent actions stay disabled for the session.
	ErrIndexUnavailable = errors.New("vector index unavailable")
	// ErrUpsertFailed means a batch could not be embedded or written.
	ErrUpsertFailed = errors.New("upsert failed")
	// ErrNoMatch means the query found nothing that resolves to an answer.
	ErrNoMatch = errors.New("no answer found")
	// ErrDeleteFailed means the index rejected a clear-namespace request.
	ErrDeleteFailed = errors.New("delete failed")
	// ErrQuerySkipped is returned for blank queries and the "exit" sentinel;
	// no search was performed.
	ErrQuerySkipped = errors.New("query skipped")
	// ErrNoDataset means the session has no uploaded dataset to query.
	ErrNoDataset = errors.New("no dataset loaded")
	// ErrSessionNotFound means the session id is unknown or expired.
	ErrSessionNotFound = errors.New("session not found")
)

// UpsertError reports a failed ingestion and how far it got. Batches before
// the failing one remain in the index.
type UpsertError struct {
	Namespace   string
	RowsWritten int
	Total       int
	Err         error
}

func (e *UpsertError) Error() string {
	return fmt.Sprintf("%v: namespace %q has %d of %d rows written: %v", ErrUpsertFailed, e.Namespace, e.RowsWritten, e.Total, e.Err)
}

func (e *UpsertError) Unwrap() []error {
	return []error{ErrUpsertFailed, e.Err}
}
