package services_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thereayou/relay-chat/internal/models"
	"github.com/thereayou/relay-chat/internal/services"
)

func TestSendMessage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, bob := f.user(t, "alice"), f.user(t, "bob")
	conv := f.direct(t, alice, bob)

	msg, err := f.messages.SendMessage(ctx, alice, conv.Conversation.ID, "hi")
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, msg.ID)
	assert.Equal(t, models.StatusSent, msg.Status)
	assert.Equal(t, alice.ID, msg.SenderID)
	assert.False(t, msg.CreatedAt.IsZero())

	t.Run("empty content", func(t *testing.T) {
		_, err := f.messages.SendMessage(ctx, alice, conv.Conversation.ID, "   ")
		requireKind(t, err, services.KindValidation)
	})
	t.Run("missing conversation id", func(t *testing.T) {
		_, err := f.messages.SendMessage(ctx, alice, uuid.Nil, "x")
		requireKind(t, err, services.KindValidation)
	})
	t.Run("unknown conversation", func(t *testing.T) {
		_, err := f.messages.SendMessage(ctx, alice, uuid.New(), "x")
		requireKind(t, err, services.KindUnauthorized)
	})
}

func TestNonMemberIsRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, bob, mallory := f.user(t, "alice"), f.user(t, "bob"), f.user(t, "mallory")
	conv := f.direct(t, alice, bob)
	_, err := f.messages.SendMessage(ctx, alice, conv.Conversation.ID, "secret")
	require.NoError(t, err)

	_, err = f.messages.SendMessage(ctx, mallory, conv.Conversation.ID, "let me in")
	requireKind(t, err, services.KindUnauthorized)

	_, err = f.messages.GetMessages(ctx, mallory, conv.Conversation.ID, nil, 0)
	requireKind(t, err, services.KindUnauthorized)

	_, err = f.messages.MarkAsRead(ctx, mallory, conv.Conversation.ID)
	requireKind(t, err, services.KindUnauthorized)

	read, err := f.db.CountByStatus(ctx, conv.Conversation.ID, models.StatusRead)
	require.NoError(t, err)
	assert.Zero(t, read)
}

func TestConcurrentSendsAreTotallyOrdered(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, bob := f.user(t, "alice"), f.user(t, "bob")
	conv := f.direct(t, alice, bob)

	const n = 20
	var wg sync.WaitGroup
	sent := make([]*models.Message, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sender := alice
			if i%2 == 0 {
				sender = bob
			}
			msg, err := f.messages.SendMessage(ctx, sender, conv.Conversation.ID, fmt.Sprintf("m%d", i))
			assert.NoError(t, err)
			sent[i] = msg
		}(i)
	}
	wg.Wait()

	stored, err := f.messages.GetMessages(ctx, alice, conv.Conversation.ID, nil, services.MaxPageSize)
	require.NoError(t, err)
	require.Len(t, stored, n)
	for i := 1; i < len(stored); i++ {
		assert.True(t, stored[i-1].CreatedAt.After(stored[i].CreatedAt), "rows %d and %d share or invert a timestamp", i-1, i)
	}

	latest := sent[0].CreatedAt
	for _, m := range sent {
		if m.CreatedAt.After(latest) {
			latest = m.CreatedAt
		}
	}
	reloaded, err := f.db.GetConversation(ctx, conv.Conversation.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded.LastMessageAt)
	assert.True(t, reloaded.LastMessageAt.Equal(latest))
	assert.True(t, stored[0].CreatedAt.Equal(latest))
}

func TestPaginationVisitsEveryMessageOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, bob := f.user(t, "alice"), f.user(t, "bob")
	conv := f.direct(t, alice, bob)

	const total, pageSize = 23, 5
	for i := 0; i < total; i++ {
		_, err := f.messages.SendMessage(ctx, alice, conv.Conversation.ID, fmt.Sprintf("m%02d", i))
		require.NoError(t, err)
	}

	seen := map[uuid.UUID]bool{}
	var contents []string
	var before *time.Time
	pages := 0
	for {
		page, err := f.messages.GetMessages(ctx, bob, conv.Conversation.ID, before, pageSize)
		require.NoError(t, err)
		if len(page) == 0 {
			break
		}
		pages++
		require.LessOrEqual(t, len(page), pageSize)
		for _, m := range page {
			require.False(t, seen[m.ID], "message %s returned twice", m.ID)
			seen[m.ID] = true
			contents = append(contents, m.Content)
		}
		oldest := page[len(page)-1].CreatedAt
		before = &oldest
	}

	assert.Equal(t, (total+pageSize-1)/pageSize, pages)
	assert.Len(t, seen, total)
	assert.True(t, sort.SliceIsSorted(contents, func(i, j int) bool { return contents[i] > contents[j] }))
}

func TestGetMessagesLimit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, bob := f.user(t, "alice"), f.user(t, "bob")
	conv := f.direct(t, alice, bob)
	for i := 0; i < services.DefaultPageSize+3; i++ {
		_, err := f.messages.SendMessage(ctx, alice, conv.Conversation.ID, "x")
		require.NoError(t, err)
	}

	page, err := f.messages.GetMessages(ctx, bob, conv.Conversation.ID, nil, 0)
	require.NoError(t, err)
	assert.Len(t, page, services.DefaultPageSize)

	page, err = f.messages.GetMessages(ctx, bob, conv.Conversation.ID, nil, 1000)
	require.NoError(t, err)
	assert.Len(t, page, services.DefaultPageSize+3)

	_, err = f.messages.GetMessages(ctx, bob, conv.Conversation.ID, nil, -1)
	requireKind(t, err, services.KindValidation)
}

func TestMarkAsReadIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, bob := f.user(t, "alice"), f.user(t, "bob")
	conv := f.direct(t, alice, bob)
	id := conv.Conversation.ID

	for i := 0; i < 3; i++ {
		_, err := f.messages.SendMessage(ctx, alice, id, "from alice")
		require.NoError(t, err)
	}
	_, err := f.messages.SendMessage(ctx, bob, id, "from bob")
	require.NoError(t, err)

	n, err := f.messages.MarkAsRead(ctx, bob, id)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
	afterFirst, err := f.db.CountByStatus(ctx, id, models.StatusRead)
	require.NoError(t, err)

	n, err = f.messages.MarkAsRead(ctx, bob, id)
	require.NoError(t, err)
	assert.Zero(t, n)
	afterSecond, err := f.db.CountByStatus(ctx, id, models.StatusRead)
	require.NoError(t, err)
	assert.Equal(t, afterFirst, afterSecond)

	page, err := f.messages.GetMessages(ctx, alice, id, nil, 0)
	require.NoError(t, err)
	for _, m := range page {
		if m.SenderID == bob.ID {
			assert.Equal(t, models.StatusSent, m.Status, "own message must not be marked read")
		} else {
			assert.Equal(t, models.StatusRead, m.Status)
		}
	}
}
