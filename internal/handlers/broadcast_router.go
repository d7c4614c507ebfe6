package handlers

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/thereayou/relay-chat/internal/handlers/dto"
	"github.com/thereayou/relay-chat/internal/models"
	"github.com/thereayou/relay-chat/internal/services"
	"github.com/thereayou/relay-chat/internal/websocket"
)

// BroadcastRouter persists conversation events through the message service
// and publishes them to the conversation topic. Persist and publish run
// under a per-conversation lock so topic order equals commit order.
type BroadcastRouter struct {
	messages *services.MessageService
	broker   websocket.Broker
	locks    conversationLocks
}

func NewBroadcastRouter(messages *services.MessageService, broker websocket.Broker) *BroadcastRouter {
	return &BroadcastRouter{
		messages: messages,
		broker:   broker,
		locks:    conversationLocks{held: make(map[uuid.UUID]*conversationLock)},
	}
}

func (r *BroadcastRouter) lock(conversationID uuid.UUID) func() {
	return r.locks.lock(conversationID)
}

// conversationLocks hands out one mutex per conversation. Entries live only
// while someone holds or waits for them.
type conversationLocks struct {
	mu   sync.Mutex
	held map[uuid.UUID]*conversationLock
}

type conversationLock struct {
	mu   sync.Mutex
	refs int
}

func (l *conversationLocks) lock(id uuid.UUID) func() {
	l.mu.Lock()
	cl, ok := l.held[id]
	if !ok {
		cl = &conversationLock{}
		l.held[id] = cl
	}
	cl.refs++
	l.mu.Unlock()

	cl.mu.Lock()
	return func() {
		cl.mu.Unlock()

		l.mu.Lock()
		cl.refs--
		if cl.refs == 0 {
			delete(l.held, id)
		}
		l.mu.Unlock()
	}
}

// SendMessage stores the message and, only on success, publishes it.
func (r *BroadcastRouter) SendMessage(ctx context.Context, sender models.Identity, conversationID uuid.UUID, content string) (*models.Message, error) {
	unlock := r.lock(conversationID)
	defer unlock()

	msg, err := r.messages.SendMessage(ctx, sender, conversationID, content)
	if err != nil {
		return nil, err
	}
	r.publish(ctx, conversationID, dto.MessageEvent{
		Type:            string(websocket.TypeMessage),
		MessageResponse: dto.NewMessageResponse(msg),
	})
	return msg, nil
}

func (r *BroadcastRouter) MarkRead(ctx context.Context, reader models.Identity, conversationID uuid.UUID) (int64, error) {
	unlock := r.lock(conversationID)
	defer unlock()

	n, err := r.messages.MarkAsRead(ctx, reader, conversationID)
	if err != nil {
		return 0, err
	}
	r.publish(ctx, conversationID, dto.ReadReceiptEvent{
		Type:           string(websocket.TypeReadReceipt),
		ConversationID: conversationID,
		ReaderID:       reader.ID,
	})
	return n, nil
}

// Typing is transient: nothing is stored and a lost event is not retried.
func (r *BroadcastRouter) Typing(ctx context.Context, user models.Identity, conversationID uuid.UUID, isTyping bool) error {
	if err := r.messages.RequireMember(ctx, conversationID, user.ID); err != nil {
		return err
	}
	r.publish(ctx, conversationID, dto.TypingEvent{
		Type:           string(websocket.TypeTyping),
		ConversationID: conversationID,
		UserID:         user.ID,
		IsTyping:       isTyping,
	})
	return nil
}

func (r *BroadcastRouter) publish(ctx context.Context, conversationID uuid.UUID, event interface{}) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Errorf("encode event for %s: %v", conversationID, err)
		return
	}
	if err := r.broker.Publish(ctx, websocket.ConversationTopic(conversationID), payload); err != nil {
		log.Warningf("publish to %s failed: %v", conversationID, err)
	}
}
