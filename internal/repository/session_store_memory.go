package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memSession struct {
	userID    uuid.UUID
	expiresAt time.Time
}

type memorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]memSession
	now      func() time.Time
}

// NewMemorySessionStore keeps sessions in process memory; they do not survive a restart.
func NewMemorySessionStore() SessionStore {
	return &memorySessionStore{
		sessions: make(map[string]memSession),
		now:      time.Now,
	}
}

func (s *memorySessionStore) Save(_ context.Context, tokenID string, userID uuid.UUID, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweep(now)
	sess := memSession{userID: userID}
	if ttl > 0 {
		sess.expiresAt = now.Add(ttl)
	}
	s.sessions[tokenID] = sess
	return nil
}

func (s *memorySessionStore) Consume(_ context.Context, tokenID string) (uuid.UUID, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[tokenID]
	if !ok {
		return uuid.Nil, false, nil
	}
	delete(s.sessions, tokenID)
	if sess.expired(s.now()) {
		return uuid.Nil, false, nil
	}
	return sess.userID, true, nil
}

func (s *memorySessionStore) Revoke(_ context.Context, tokenID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, tokenID)
	return nil
}

// sweep drops expired sessions; mu must be held.
func (s *memorySessionStore) sweep(now time.Time) {
	for id, sess := range s.sessions {
		if sess.expired(now) {
			delete(s.sessions, id)
		}
	}
}

func (m memSession) expired(now time.Time) bool {
	return !m.expiresAt.IsZero() && now.After(m.expiresAt)
}
