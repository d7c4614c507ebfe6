package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/thereayou/relay-chat/internal/database"
	"github.com/thereayou/relay-chat/internal/models"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type MessageService struct {
	store Store
}

func NewMessageService(store Store) *MessageService {
	return &MessageService{store: store}
}

// SendMessage appends content to the conversation on behalf of sender.
func (s *MessageService) SendMessage(ctx context.Context, sender models.Identity, conversationID uuid.UUID, content string) (*models.Message, error) {
	if conversationID == uuid.Nil {
		return nil, ValidationError("conversationId", "is required")
	}
	if strings.TrimSpace(content) == "" {
		return nil, ValidationError("content", "must not be empty")
	}
	if err := s.requireMember(ctx, conversationID, sender.ID); err != nil {
		return nil, err
	}

	msg := &models.Message{
		ConversationID: conversationID,
		SenderID:       sender.ID,
		Content:        content,
		Status:         models.StatusSent,
	}
	if err := s.store.AppendMessage(ctx, msg); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, NotFound("conversation")
		}
		return nil, Internal(err)
	}
	return msg, nil
}

// GetMessages pages backwards through history: messages strictly older than
// before, newest first. Zero limit selects DefaultPageSize.
func (s *MessageService) GetMessages(ctx context.Context, reader models.Identity, conversationID uuid.UUID, before *time.Time, limit int) ([]models.Message, error) {
	if conversationID == uuid.Nil {
		return nil, ValidationError("conversationId", "is required")
	}
	switch {
	case limit == 0:
		limit = DefaultPageSize
	case limit < 0:
		return nil, ValidationError("limit", "must be a positive integer")
	case limit > MaxPageSize:
		limit = MaxPageSize
	}
	if err := s.requireMember(ctx, conversationID, reader.ID); err != nil {
		return nil, err
	}

	messages, err := s.store.GetConversationMessages(ctx, conversationID, before, limit)
	if err != nil {
		return nil, Internal(err)
	}
	return messages, nil
}

// MarkAsRead moves every message the reader did not author to READ and
// returns how many changed. Calling it again is a no-op.
func (s *MessageService) MarkAsRead(ctx context.Context, reader models.Identity, conversationID uuid.UUID) (int64, error) {
	if conversationID == uuid.Nil {
		return 0, ValidationError("conversationId", "is required")
	}
	if err := s.requireMember(ctx, conversationID, reader.ID); err != nil {
		return 0, err
	}

	n, err := s.store.MarkConversationRead(ctx, conversationID, reader.ID)
	if err != nil {
		return 0, Internal(err)
	}
	if n > 0 {
		log.Debugf("%s read %d messages in %s", reader.Username, n, conversationID)
	}
	return n, nil
}

// RequireMember is the authorization predicate for every conversation operation.
func (s *MessageService) RequireMember(ctx context.Context, conversationID, userID uuid.UUID) error {
	return s.requireMember(ctx, conversationID, userID)
}

func (s *MessageService) requireMember(ctx context.Context, conversationID, userID uuid.UUID) error {
	ok, err := s.store.IsMember(ctx, conversationID, userID)
	if err != nil {
		return Internal(err)
	}
	if !ok {
		return ErrNotMember
	}
	return nil
}
