package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/op/go-logging"
	"github.com/thereayou/relay-chat/internal/database"
	"github.com/thereayou/relay-chat/internal/models"
)

var log = logging.MustGetLogger("services")

// ConversationSummary is a conversation as seen by one participant.
type ConversationSummary struct {
	Conversation     models.Conversation
	OtherParticipant *models.User
}

type ConversationService struct {
	store Store
}

func NewConversationService(store Store) *ConversationService {
	return &ConversationService{store: store}
}

// CreateDirectConversation returns the direct conversation between caller
// and target, creating it on first use. Repeated and concurrent calls for
// the same pair resolve to the same conversation.
func (s *ConversationService) CreateDirectConversation(ctx context.Context, caller models.Identity, targetID uuid.UUID) (*ConversationSummary, error) {
	if targetID == uuid.Nil {
		return nil, ValidationError("targetUserId", "is required")
	}
	if targetID == caller.ID {
		return nil, ValidationError("targetUserId", "cannot start a conversation with yourself")
	}
	if err := s.requireUser(ctx, caller.ID); err != nil {
		return nil, err
	}
	if err := s.requireUser(ctx, targetID); err != nil {
		return nil, err
	}

	conv, err := s.store.FindDirectConversation(ctx, caller.ID, targetID)
	switch {
	case err == nil:
		return summarize(conv, caller.ID), nil
	case !errors.Is(err, database.ErrNotFound):
		return nil, Internal(err)
	}

	conv, err = s.store.CreateDirectConversation(ctx, caller.ID, targetID)
	if errors.Is(err, database.ErrConflict) {
		log.Debugf("direct conversation %s/%s created concurrently, re-reading", caller.ID, targetID)
		conv, err = s.store.FindDirectConversation(ctx, caller.ID, targetID)
	}
	if err != nil {
		return nil, Internal(err)
	}

	log.Infof("direct conversation %s opened by %s with %s", conv.ID, caller.Username, targetID)
	return summarize(conv, caller.ID), nil
}

// GetUserConversations lists the caller's conversations, most recent first.
func (s *ConversationService) GetUserConversations(ctx context.Context, caller models.Identity) ([]ConversationSummary, error) {
	if err := s.requireUser(ctx, caller.ID); err != nil {
		return nil, err
	}

	convs, err := s.store.GetUserConversations(ctx, caller.ID)
	if err != nil {
		return nil, Internal(err)
	}

	result := make([]ConversationSummary, 0, len(convs))
	for i := range convs {
		result = append(result, *summarize(&convs[i], caller.ID))
	}
	return result, nil
}

func (s *ConversationService) requireUser(ctx context.Context, id uuid.UUID) error {
	_, err := s.store.GetUser(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return NotFound("user")
	}
	if err != nil {
		return Internal(err)
	}
	return nil
}

func summarize(conv *models.Conversation, viewer uuid.UUID) *ConversationSummary {
	summary := &ConversationSummary{Conversation: *conv}
	if conv.Type != models.ConversationDirect {
		return summary
	}
	for i := range conv.Members {
		if conv.Members[i].UserID != viewer {
			other := conv.Members[i].User
			summary.OtherParticipant = &other
			break
		}
	}
	return summary
}
