package web

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

const sessionBuffer = 16

// Session is one connected effect consumer.
type Session struct {
	ID          uuid.UUID
	RemoteAddr  string
	ConnectedAt time.Time

	send      chan Effect
	done      chan struct{}
	closeOnce sync.Once
}

func newSession(remote string) *Session {
	return &Session{
		ID:          uuid.New(),
		RemoteAddr:  remote,
		ConnectedAt: time.Now(),
		send:        make(chan Effect, sessionBuffer),
		done:        make(chan struct{}),
	}
}

// offer queues an effect without blocking. It reports false when the
// session's buffer is full or the session is closed.
func (s *Session) offer(e Effect) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.send <- e:
		return true
	default:
		return false
	}
}

func (s *Session) close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// SessionStore tracks connected sessions.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

// NewSessionStore creates an empty SessionStore.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[uuid.UUID]*Session),
	}
}

// Add registers a session.
func (s *SessionStore) Add(sess *Session) {
	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
}

// Delete removes a session and closes it.
func (s *SessionStore) Delete(id uuid.UUID) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if ok {
		sess.close()
	}
}

// All returns the connected sessions.
func (s *SessionStore) All() []*Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess)
	}
	return out
}

// Len returns the number of connected sessions.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// CloseAll closes and removes every session.
func (s *SessionStore) CloseAll() {
	s.mu.Lock()
	all := s.sessions
	s.sessions = make(map[uuid.UUID]*Session)
	s.mu.Unlock()

	for _, sess := range all {
		sess.close()
	}
}
