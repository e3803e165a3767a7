package services

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/itish2003/semsearch/models"
	"github.com/itish2003/semsearch/vectorindex"
)

// SearchService interface defines the operations of one interactive session.
type SearchService interface {
	StartSession(c context.Context) (*Session, error)
	EndSession(sessionID string)
	IngestDataset(c context.Context, sessionID, filename string, r io.Reader, progress ProgressFunc) (*models.IngestResult, error)
	Ask(c context.Context, sessionID, query string) (*models.Answer, error)
	ClearNamespace(c context.Context, sessionID string) (string, error)
	Progress(sessionID string) (*models.ProgressResponse, error)
	IndexName() string
}

// searchServiceImpl holds the dependencies it needs to do its job
type searchServiceImpl struct {
	sessions  *SessionStore
	loader    *DatasetLoader
	processor *BatchProcessor
	queries   *QueryHandler
	manager   *IndexManager
	indexSpec vectorindex.IndexSpec
	logger    *zap.Logger
}

// NewSearchService creates a new search service instance
func NewSearchService(
	sessions *SessionStore,
	loader *DatasetLoader,
	processor *BatchProcessor,
	queries *QueryHandler,
	manager *IndexManager,
	indexSpec vectorindex.IndexSpec,
	logger *zap.Logger,
) SearchService {
	return &searchServiceImpl{
		sessions:  sessions,
		loader:    loader,
		processor: processor,
		queries:   queries,
		manager:   manager,
		indexSpec: indexSpec,
		logger:    logger.Named("service"),
	}
}

func (s *searchServiceImpl) IndexName() string {
	return s.indexSpec.Name
}

// StartSession creates a session and makes sure the index is ready. When the
// index is unavailable the session is still returned, together with the
// error, and stays unable to ingest or query.
func (s *searchServiceImpl) StartSession(c context.Context) (*Session, error) {
	sess := s.sessions.Create()
	s.logger.Info("session started", zap.String("session", sess.ID))

	if err := s.manager.EnsureIndex(c, s.indexSpec); err != nil {
		sess.Lock()
		sess.indexErr = err
		sess.Unlock()
		s.logger.Error("index unavailable for session", zap.String("session", sess.ID), zap.Error(err))
		return sess, err
	}
	return sess, nil
}

func (s *searchServiceImpl) EndSession(sessionID string) {
	s.sessions.Delete(sessionID)
	s.logger.Info("session ended", zap.String("session", sessionID))
}

// IngestDataset loads an upload into the session and indexes it unless its
// namespace was already populated by this session.
func (s *searchServiceImpl) IngestDataset(c context.Context, sessionID, filename string, r io.Reader, progress ProgressFunc) (*models.IngestResult, error) {
	sess, err := s.lockSession(sessionID)
	if err != nil {
		return nil, err
	}
	defer sess.Unlock()

	if err := sess.IndexErr(); err != nil {
		return nil, err
	}

	dataset, err := s.loader.Load(r, filename)
	if err != nil {
		return nil, err
	}
	namespace := dataset.Namespace

	sess.dataset = dataset
	sess.namespace = namespace

	result := &models.IngestResult{
		Namespace: namespace,
		Rows:      dataset.Len(),
		Dropped:   dataset.Dropped,
	}

	if sess.populated[namespace] {
		s.logger.Info("namespace already populated, skipping embedding",
			zap.String("session", sess.ID), zap.String("namespace", namespace))
		sess.setProgress(100)
		if progress != nil {
			progress(100)
		}
		result.Progress = 100
		return result, nil
	}

	sess.setProgress(0)
	report := func(percent int) {
		sess.setProgress(percent)
		if progress != nil {
			progress(percent)
		}
	}
	if err := s.processor.Process(c, dataset, namespace, report); err != nil {
		return nil, err
	}

	sess.populated[namespace] = true
	result.Embedded = true
	result.Progress = sess.Progress()
	return result, nil
}

// Ask answers a query from the session's dataset. Skipped queries and misses
// are reported through the Answer status rather than as errors.
func (s *searchServiceImpl) Ask(c context.Context, sessionID, query string) (*models.Answer, error) {
	sess, err := s.lockSession(sessionID)
	if err != nil {
		return nil, err
	}
	defer sess.Unlock()

	if err := sess.IndexErr(); err != nil {
		return nil, err
	}
	dataset, namespace := sess.Dataset()
	if dataset == nil {
		return nil, ErrNoDataset
	}

	answer, err := s.queries.Answer(c, dataset, namespace, query)
	switch {
	case errors.Is(err, ErrQuerySkipped):
		return &models.Answer{Status: models.StatusSkipped, Query: query}, nil
	case errors.Is(err, ErrNoMatch):
		return &models.Answer{Status: models.StatusNoMatch, Query: query}, nil
	case err != nil:
		return nil, err
	}
	return answer, nil
}

// ClearNamespace deletes the active namespace's vectors and returns its name.
// The namespace must be re-embedded on the next upload.
func (s *searchServiceImpl) ClearNamespace(c context.Context, sessionID string) (string, error) {
	sess, err := s.lockSession(sessionID)
	if err != nil {
		return "", err
	}
	defer sess.Unlock()

	if err := sess.IndexErr(); err != nil {
		return "", err
	}
	_, namespace := sess.Dataset()
	if namespace == "" {
		return "", ErrNoDataset
	}

	if err := s.manager.ClearNamespace(c, s.indexSpec.Name, namespace); err != nil {
		return "", err
	}
	delete(sess.populated, namespace)
	sess.setProgress(0)
	return namespace, nil
}

// Progress reads the session's ingestion progress without waiting for a
// running ingestion to finish.
func (s *searchServiceImpl) Progress(sessionID string) (*models.ProgressResponse, error) {
	sess, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return &models.ProgressResponse{Progress: sess.Progress()}, nil
}

func (s *searchServiceImpl) lockSession(sessionID string) (*Session, error) {
	sess, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	sess.Lock()
	return sess, nil
}
