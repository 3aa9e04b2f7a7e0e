// Package session keeps each caller's generation workspace in memory. Nothing here
// is persisted: an evicted or expired session takes its project with it.
package session

import (
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"prompt2web_server/internal/generation"
)

var ErrNotFound = errors.New("session not found")

const (
	DefaultCapacity = 1024
	DefaultTTL      = 2 * time.Hour
)

// Session binds one orchestrator to the user that created it.
type Session struct {
	ID           string
	UID          string
	CreatedAt    time.Time
	Orchestrator *generation.Orchestrator
}

// Store is an expiring LRU of sessions. Evicting a session stops its active run and
// ends its event streams.
type Store struct {
	sessions *expirable.LRU[string, *Session]
	pipeline generation.Pipeline
	usage    generation.UsageRecorder
	opts     []generation.Option
	logger   *slog.Logger
}

// NewStore creates a store holding at most capacity sessions, each kept for ttl
// after its last write.
func NewStore(pipeline generation.Pipeline, usage generation.UsageRecorder, capacity int, ttl time.Duration, logger *slog.Logger, opts ...generation.Option) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		pipeline: pipeline,
		usage:    usage,
		opts:     opts,
		logger:   logger,
	}
	s.sessions = expirable.NewLRU[string, *Session](capacity, s.onEvict, ttl)
	return s
}

func (s *Store) onEvict(id string, sess *Session) {
	sess.Orchestrator.Close()
	s.logger.Info("session closed", "session", id)
}

// Create opens a new session for uid.
func (s *Store) Create(uid string) *Session {
	opts := append([]generation.Option{generation.WithLogger(s.logger)}, s.opts...)
	sess := &Session{
		ID:           uuid.NewString(),
		UID:          uid,
		CreatedAt:    time.Now().UTC(),
		Orchestrator: generation.New(s.pipeline, s.usage, opts...),
	}
	s.sessions.Add(sess.ID, sess)
	return sess
}

// Get returns the session id owned by uid. Sessions of other users are reported
// as missing.
func (s *Store) Get(id, uid string) (*Session, error) {
	sess, ok := s.sessions.Get(id)
	if !ok || sess.UID != uid {
		return nil, ErrNotFound
	}
	return sess, nil
}

// Touch renews the session's expiry.
func (s *Store) Touch(sess *Session) {
	s.sessions.Add(sess.ID, sess)
}

// Delete removes the session, stopping any active run and closing its subscribers.
func (s *Store) Delete(id, uid string) error {
	if _, err := s.Get(id, uid); err != nil {
		return err
	}
	s.sessions.Remove(id)
	return nil
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	return s.sessions.Len()
}

// Close stops every active run and empties the store.
func (s *Store) Close() {
	s.sessions.Purge()
}
