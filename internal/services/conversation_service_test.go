package services_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thereayou/relay-chat/internal/models"
	"github.com/thereayou/relay-chat/internal/services"
)

func TestCreateDirectConversationIsIdempotent(t *testing.T) {
	f := newFixture(t)
	alice, bob := f.user(t, "alice"), f.user(t, "bob")

	first := f.direct(t, alice, bob)
	second := f.direct(t, alice, bob)
	reversed := f.direct(t, bob, alice)

	assert.Equal(t, first.Conversation.ID, second.Conversation.ID)
	assert.Equal(t, first.Conversation.ID, reversed.Conversation.ID)
	require.NotNil(t, first.OtherParticipant)
	assert.Equal(t, "bob", first.OtherParticipant.Username)
	require.NotNil(t, reversed.OtherParticipant)
	assert.Equal(t, "alice", reversed.OtherParticipant.Username)
}

func TestCreateDirectConversationConcurrent(t *testing.T) {
	f := newFixture(t)
	alice, bob := f.user(t, "alice"), f.user(t, "bob")

	const callers = 8
	ids := make([]uuid.UUID, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a, b := alice, bob
			if i%2 == 1 {
				a, b = bob, alice
			}
			conv, err := f.conversations.CreateDirectConversation(context.Background(), a, b.ID)
			errs[i] = err
			if err == nil {
				ids[i] = conv.Conversation.ID
			}
		}(i)
	}
	wg.Wait()

	for i := range ids {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}

	list, err := f.conversations.GetUserConversations(context.Background(), alice)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Len(t, list[0].Conversation.Members, 2)
}

func TestCreateDirectConversationValidation(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")
	ctx := context.Background()

	_, err := f.conversations.CreateDirectConversation(ctx, alice, alice.ID)
	requireKind(t, err, services.KindValidation)

	_, err = f.conversations.CreateDirectConversation(ctx, alice, uuid.Nil)
	requireKind(t, err, services.KindValidation)

	_, err = f.conversations.CreateDirectConversation(ctx, alice, uuid.New())
	requireKind(t, err, services.KindNotFound)

	ghost := models.Identity{ID: uuid.New(), Username: "ghost"}
	_, err = f.conversations.CreateDirectConversation(ctx, ghost, alice.ID)
	requireKind(t, err, services.KindNotFound)
}

func TestGetUserConversationsOrderedByRecency(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, bob, carol, dave := f.user(t, "alice"), f.user(t, "bob"), f.user(t, "carol"), f.user(t, "dave")

	withBob := f.direct(t, alice, bob)
	withCarol := f.direct(t, alice, carol)
	withDave := f.direct(t, alice, dave)

	_, err := f.messages.SendMessage(ctx, bob, withBob.Conversation.ID, "old")
	require.NoError(t, err)
	_, err = f.messages.SendMessage(ctx, alice, withCarol.Conversation.ID, "new")
	require.NoError(t, err)

	list, err := f.conversations.GetUserConversations(ctx, alice)
	require.NoError(t, err)
	require.Len(t, list, 3)

	order := []uuid.UUID{list[0].Conversation.ID, list[1].Conversation.ID, list[2].Conversation.ID}
	assert.Equal(t, []uuid.UUID{withCarol.Conversation.ID, withBob.Conversation.ID, withDave.Conversation.ID}, order)
	assert.Equal(t, "carol", list[0].OtherParticipant.Username)

	_, err = f.conversations.GetUserConversations(ctx, models.Identity{ID: uuid.New()})
	requireKind(t, err, services.KindNotFound)
}
