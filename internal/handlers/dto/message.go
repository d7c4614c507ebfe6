package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/thereayou/relay-chat/internal/models"
)

type SendMessageRequest struct {
	ConversationID uuid.UUID `json:"conversationId" binding:"required"`
	Content        string    `json:"content" binding:"required"`
}

type MessageResponse struct {
	ID             uuid.UUID            `json:"id"`
	ConversationID uuid.UUID            `json:"conversationId"`
	SenderID       uuid.UUID            `json:"senderId"`
	Content        string               `json:"content"`
	Status         models.MessageStatus `json:"status"`
	CreatedAt      time.Time            `json:"createdAt"`
}

func NewMessageResponse(m *models.Message) MessageResponse {
	return MessageResponse{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Content:        m.Content,
		Status:         m.Status,
		CreatedAt:      m.CreatedAt,
	}
}

type MessagePageResponse struct {
	Messages []MessageResponse `json:"messages"`
	HasMore  bool              `json:"hasMore"`
	// NextBefore is the cursor for the following (older) page.
	NextBefore *time.Time `json:"nextBefore,omitempty"`
}

type ReadResponse struct {
	ConversationID uuid.UUID `json:"conversationId"`
	Updated        int64     `json:"updated"`
}
