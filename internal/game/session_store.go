// internal/game/session_store.go
package game

import (
	"sync"
)

// SessionStore tracks the active session per lobby. At most one session per
// lobby name exists at a time.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*Session)}
}

// Add installs a session for a lobby. Returns false if one is already active.
func (s *SessionStore) Add(sess *Session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sessions[sess.LobbyName]; exists {
		return false
	}
	s.sessions[sess.LobbyName] = sess
	return true
}

// Get returns the active session for a lobby, if any.
func (s *SessionStore) Get(lobbyName string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[lobbyName]
	return sess, ok
}

// Remove forgets a lobby's session. Idempotent.
func (s *SessionStore) Remove(lobbyName string) {
	s.mu.Lock()
	delete(s.sessions, lobbyName)
	s.mu.Unlock()
}

// Drop stops and forgets a lobby's session (lobby teardown path).
func (s *SessionStore) Drop(lobbyName string) {
	s.mu.Lock()
	sess, ok := s.sessions[lobbyName]
	delete(s.sessions, lobbyName)
	s.mu.Unlock()
	if ok {
		sess.Stop()
	}
}
