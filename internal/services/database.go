package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/thereayou/relay-chat/internal/models"
)

// Store is the durable store the services run against.
// *database.Database implements it.
type Store interface {
	Now() time.Time

	SaveUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindUserByLogin(ctx context.Context, login string) (*models.User, error)
	UsernameTaken(ctx context.Context, username string) (bool, error)
	EmailTaken(ctx context.Context, email string) (bool, error)
	SearchUsersByUsername(ctx context.Context, prefix string, exclude uuid.UUID, limit int) ([]models.User, error)

	GetConversation(ctx context.Context, id uuid.UUID) (*models.Conversation, error)
	FindDirectConversation(ctx context.Context, a, b uuid.UUID) (*models.Conversation, error)
	CreateDirectConversation(ctx context.Context, a, b uuid.UUID) (*models.Conversation, error)
	IsMember(ctx context.Context, conversationID, userID uuid.UUID) (bool, error)
	GetUserConversations(ctx context.Context, userID uuid.UUID) ([]models.Conversation, error)

	AppendMessage(ctx context.Context, msg *models.Message) error
	GetConversationMessages(ctx context.Context, conversationID uuid.UUID, before *time.Time, limit int) ([]models.Message, error)
	MarkConversationRead(ctx context.Context, conversationID, readerID uuid.UUID) (int64, error)
}
