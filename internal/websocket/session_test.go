package websocket

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thereayou/relay-chat/internal/models"
)

func TestSessionHappyPath(t *testing.T) {
	s := NewSession()
	assert.Equal(t, StateUnauthenticated, s.State())
	_, ok := s.Identity()
	assert.False(t, ok)

	require.NoError(t, s.BeginAuthentication())
	assert.Equal(t, StateAuthenticating, s.State())

	id := models.Identity{ID: uuid.New(), Username: "alice"}
	require.NoError(t, s.Authenticate(id))
	got, ok := s.Identity()
	require.True(t, ok)
	assert.Equal(t, id, got)

	closedAs, was := s.Close()
	assert.True(t, was)
	assert.Equal(t, id, closedAs)
	assert.Equal(t, StateClosed, s.State())

	_, was = s.Close()
	assert.False(t, was, "second close must not report an authenticated session")
}

func TestSessionIllegalTransitions(t *testing.T) {
	s := NewSession()
	err := s.Authenticate(models.Identity{Username: "eve"})
	assert.True(t, errors.Is(err, ErrInvalidTransition))

	require.NoError(t, s.BeginAuthentication())
	assert.True(t, errors.Is(s.BeginAuthentication(), ErrInvalidTransition))

	_, was := s.Close()
	assert.False(t, was)
	assert.True(t, errors.Is(s.BeginAuthentication(), ErrInvalidTransition))
	assert.True(t, errors.Is(s.Authenticate(models.Identity{}), ErrInvalidTransition))
}
