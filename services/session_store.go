package services

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/itish2003/semsearch/models"
)

// Session is the state of one interactive session. Its mutex serializes the
// session's interactions: an upload, query or clear runs to completion before
// the next one starts.
type Session struct {
	ID string

	mu        sync.Mutex
	dataset   *models.Dataset
	namespace string
	populated map[string]bool
	indexErr  error
	progress  atomic.Int32
}

func newSession() *Session {
	return &Session{
		ID:        uuid.New().String(),
		populated: make(map[string]bool),
	}
}

// Lock acquires exclusive use of the session for one interaction.
func (s *Session) Lock() { s.mu.Lock() }

// Unlock releases the session.
func (s *Session) Unlock() { s.mu.Unlock() }

// Dataset returns the active dataset and its namespace. Callers hold the lock.
func (s *Session) Dataset() (*models.Dataset, string) {
	return s.dataset, s.namespace
}

// IndexErr returns the index initialization failure, if any.
func (s *Session) IndexErr() error {
	return s.indexErr
}

// Progress returns the last reported ingestion progress. Safe without the lock.
func (s *Session) Progress() int {
	return int(s.progress.Load())
}

func (s *Session) setProgress(p int) {
	s.progress.Store(int32(p))
}

// SessionStore holds live sessions and expires idle ones.
type SessionStore struct {
	cache *cache.Cache
}

// NewSessionStore creates a store whose sessions expire after ttl without use.
func NewSessionStore(ttl, cleanupInterval time.Duration) *SessionStore {
	return &SessionStore{
		cache: cache.New(ttl, cleanupInterval),
	}
}

// Create starts an empty session.
func (r *SessionStore) Create() *Session {
	s := newSession()
	r.cache.Set(s.ID, s, cache.DefaultExpiration)
	return s
}

// Get returns a session and extends its lifetime.
func (r *SessionStore) Get(sessionID string) (*Session, bool) {
	x, found := r.cache.Get(sessionID)
	if !found {
		return nil, false
	}
	s := x.(*Session)
	r.cache.Set(sessionID, s, cache.DefaultExpiration)
	return s, true
}

// Delete ends a session.
func (r *SessionStore) Delete(sessionID string) {
	r.cache.Delete(sessionID)
}

// Count returns the number of live sessions.
func (r *SessionStore) Count() int {
	return r.cache.ItemCount()
}
