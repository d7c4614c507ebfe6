package websocket

import (
	"fmt"
	"sync"

	"github.com/thereayou/relay-chat/internal/models"
)

type SessionState int

const (
	StateUnauthenticated SessionState = iota
	StateAuthenticating
	StateAuthenticated
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("SessionState(%d)", int(s))
}

// Session is the per-connection lifecycle:
// unauthenticated -> authenticating -> authenticated -> closed.
// Close is reachable from every state and is final.
type Session struct {
	mu       sync.Mutex
	state    SessionState
	identity models.Identity
}

func NewSession() *Session {
	return &Session{state: StateUnauthenticated}
}

func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) BeginAuthentication() error {
	return s.transition(StateUnauthenticated, StateAuthenticating)
}

func (s *Session) Authenticate(identity models.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateAuthenticating {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.state, StateAuthenticated)
	}
	s.state = StateAuthenticated
	s.identity = identity
	return nil
}

// Identity is only available while authenticated.
func (s *Session) Identity() (models.Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateAuthenticated {
		return models.Identity{}, false
	}
	return s.identity, true
}

// Close moves the session to its terminal state and reports whether it was
// authenticated, together with the identity it carried. Only the first call
// reports true.
func (s *Session) Close() (models.Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	wasAuthenticated := s.state == StateAuthenticated
	s.state = StateClosed
	return s.identity, wasAuthenticated
}

func (s *Session) transition(from, to SessionState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != from {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.state, to)
	}
	s.state = to
	return nil
}
