package store

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/efreitasn/stockmarket/internal/domain"
)

type session struct {
	traderID  int64
	expiresAt time.Time
}

// SessionStore keeps login sessions in memory. Tokens are random UUIDs and
// expire after ttl.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]session
	ttl      time.Duration
	now      func() time.Time
}

// NewSessionStore creates a SessionStore whose sessions live for ttl.
func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Create opens a session for traderID and returns its token.
func (s *SessionStore) Create(traderID int64) string {
	token := uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[token] = session{traderID: traderID, expiresAt: s.now().Add(s.ttl)}
	return token
}

// Lookup returns the trader owning token. Expired sessions are removed and
// reported as ErrUnauthenticated.
func (s *SessionStore) Lookup(token string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[token]
	if !ok {
		return 0, domain.ErrUnauthenticated
	}
	if !s.now().Before(sess.expiresAt) {
		delete(s.sessions, token)
		return 0, domain.ErrUnauthenticated
	}
	return sess.traderID, nil
}

// Delete ends the session. Unknown tokens are ignored.
func (s *SessionStore) Delete(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
}

// Sweep drops every expired session and returns how many were removed.
func (s *SessionStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for token, sess := range s.sessions {
		if !now.Before(sess.expiresAt) {
			delete(s.sessions, token)
			removed++
		}
	}
	return removed
}
