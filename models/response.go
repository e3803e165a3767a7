package models

// Answer statuses reported to clients.
const (
	StatusAnswered = "answered"
	StatusNoMatch  = "no_match"
	StatusSkipped  = "skipped"
)

// Answer is the outcome of a query against the active dataset.
type Answer struct {
	Status  string  `json:"status"`
	Query   string  `json:"query"`
	Answer  string  `json:"answer,omitempty"`
	MatchID string  `json:"match_id,omitempty"`
	Score   float64 `json:"score,omitempty"`
}

// IngestResult describes a processed upload.
type IngestResult struct {
	Namespace string `json:"namespace"`
	Rows      int    `json:"rows"`
	Dropped   int    `json:"dropped"`
	// Embedded is false when the namespace was already populated in this session.
	Embedded bool `json:"embedded"`
	Progress int  `json:"progress"`
}

type SessionResponse struct {
	SessionID string `json:"session_id"`
	Index     string `json:"index"`
	Ready     bool   `json:"ready"`
	Error     string `json:"error,omitempty"`
}

type ProgressResponse struct {
	Progress int `json:"progress"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	// RowsWritten is set when a partial ingestion left vectors in the index.
	RowsWritten *int `json:"rows_written,omitempty"`
}
