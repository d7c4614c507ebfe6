package handlers

import (
	"context"

	"github.com/thereayou/relay-chat/internal/handlers/dto"
	"github.com/thereayou/relay-chat/internal/services"
	"github.com/thereayou/relay-chat/internal/websocket"
)

// MessageHandler dispatches inbound streaming frames. The acting identity is
// always the one bound to the client's session.
type MessageHandler struct {
	router   *BroadcastRouter
	messages *services.MessageService
}

func NewMessageHandler(router *BroadcastRouter, messages *services.MessageService) *MessageHandler {
	return &MessageHandler{router: router, messages: messages}
}

func (h *MessageHandler) HandleMessage(ctx context.Context, client *websocket.Client, msg *websocket.Message) error {
	switch msg.Type {
	case websocket.TypeSendMessage, websocket.TypeReadReceipt, websocket.TypeTyping,
		websocket.TypeSubscribe, websocket.TypeUnsubscribe:
	default:
		return websocket.ErrUnknownMessageType
	}
	if msg.ConversationID == nil {
		return services.ValidationError("conversationId", "is required")
	}
	conversationID := *msg.ConversationID

	switch msg.Type {
	case websocket.TypeSendMessage:
		_, err := h.router.SendMessage(ctx, client.Identity, conversationID, msg.Content)
		return err

	case websocket.TypeReadReceipt:
		_, err := h.router.MarkRead(ctx, client.Identity, conversationID)
		return err

	case websocket.TypeTyping:
		isTyping := true
		if msg.IsTyping != nil {
			isTyping = *msg.IsTyping
		}
		return h.router.Typing(ctx, client.Identity, conversationID, isTyping)

	case websocket.TypeSubscribe:
		if err := h.messages.RequireMember(ctx, conversationID, client.Identity.ID); err != nil {
			return err
		}
		client.Subscribe(websocket.ConversationTopic(conversationID))
		return client.SendEvent(dto.SubscriptionEvent{Type: string(websocket.TypeSubscribed), ConversationID: conversationID})

	case websocket.TypeUnsubscribe:
		client.Unsubscribe(websocket.ConversationTopic(conversationID))
		return client.SendEvent(dto.SubscriptionEvent{Type: string(websocket.TypeUnsubscribed), ConversationID: conversationID})
	}
	return nil
}
