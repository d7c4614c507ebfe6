package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/thereayou/relay-chat/internal/models"
	"github.com/thereayou/relay-chat/internal/services"
)

type CreateConversationRequest struct {
	TargetUserID uuid.UUID `json:"targetUserId" binding:"required"`
}

type ConversationResponse struct {
	ID               uuid.UUID               `json:"id"`
	Type             models.ConversationType `json:"type"`
	CreatedAt        time.Time               `json:"createdAt"`
	LastMessageAt    *time.Time              `json:"lastMessageAt"`
	OtherParticipant *UserResponse           `json:"otherParticipant"`
}

func NewConversationResponse(s *services.ConversationSummary) ConversationResponse {
	resp := ConversationResponse{
		ID:            s.Conversation.ID,
		Type:          s.Conversation.Type,
		CreatedAt:     s.Conversation.CreatedAt,
		LastMessageAt: s.Conversation.LastMessageAt,
	}
	if s.OtherParticipant != nil {
		other := NewUserResponse(s.OtherParticipant)
		resp.OtherParticipant = &other
	}
	return resp
}
