package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
	"github.com/thereayou/relay-chat/internal/database"
	"github.com/thereayou/relay-chat/internal/models"
	"github.com/thereayou/relay-chat/internal/services"
	"github.com/thereayou/relay-chat/internal/testutil"
	"github.com/thereayou/relay-chat/pkg/auth"
)

type fixture struct {
	db            *database.Database
	redis         *miniredis.Miniredis
	rdb           *redis.Client
	jwt           *auth.JWTManager
	conversations *services.ConversationService
	messages      *services.MessageService
	presence      *services.PresenceService
	accounts      *services.AuthService
	users         *services.UserService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDatabase(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	jwtMgr := auth.NewJWTManager("test-secret", time.Hour)
	return &fixture{
		db:            db,
		redis:         mr,
		rdb:           rdb,
		jwt:           jwtMgr,
		conversations: services.NewConversationService(db),
		messages:      services.NewMessageService(db),
		presence:      services.NewPresenceService(rdb, time.Minute),
		accounts:      services.NewAuthService(db, jwtMgr, services.NewRevocationList(rdb)),
		users:         services.NewUserService(db),
	}
}

func (f *fixture) user(t *testing.T, name string) models.Identity {
	return testutil.CreateUser(t, f.db, name).Identity()
}

func (f *fixture) direct(t *testing.T, a, b models.Identity) *services.ConversationSummary {
	t.Helper()
	conv, err := f.conversations.CreateDirectConversation(context.Background(), a, b.ID)
	require.NoError(t, err)
	return conv
}

func requireKind(t *testing.T, err error, kind services.Kind) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind, services.KindOf(err), "error: %v", err)
}
