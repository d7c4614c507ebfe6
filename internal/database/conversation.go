package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/thereayou/relay-chat/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (d *Database) GetConversation(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	var conv models.Conversation
	if err := d.db.WithContext(ctx).Preload("Members.User").First(&conv, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &conv, nil
}

// FindDirectConversation returns the DIRECT conversation both users belong to.
func (d *Database) FindDirectConversation(ctx context.Context, a, b uuid.UUID) (*models.Conversation, error) {
	var conv models.Conversation
	err := d.db.WithContext(ctx).
		Joins("JOIN conversation_members cm1 ON cm1.conversation_id = conversations.id").
		Joins("JOIN conversation_members cm2 ON cm2.conversation_id = conversations.id").
		Where("conversations.type = ? AND cm1.user_id = ? AND cm2.user_id = ?", string(models.ConversationDirect), a, b).
		Preload("Members.User").
		First(&conv).Error
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// CreateDirectConversation inserts the conversation and both member rows in
// one transaction. A concurrent winner for the same pair yields ErrConflict.
func (d *Database) CreateDirectConversation(ctx context.Context, a, b uuid.UUID) (*models.Conversation, error) {
	now := d.Now()
	key := models.DirectPairKey(a, b)
	conv := models.Conversation{
		Type:      models.ConversationDirect,
		PairKey:   &key,
		CreatedAt: now,
	}

	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "pair_key"}},
			DoNothing: true,
		}).Create(&conv)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrConflict
		}

		members := []models.ConversationMember{
			{ConversationID: conv.ID, UserID: a, JoinedAt: now},
			{ConversationID: conv.ID, UserID: b, JoinedAt: now},
		}
		return tx.Create(&members).Error
	})
	if err != nil {
		return nil, err
	}
	return d.GetConversation(ctx, conv.ID)
}

func (d *Database) IsMember(ctx context.Context, conversationID, userID uuid.UUID) (bool, error) {
	var n int64
	err := d.db.WithContext(ctx).
		Model(&models.ConversationMember{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Count(&n).Error
	return n > 0, err
}

// GetUserConversations lists a user's conversations, most recent first.
// Conversations without messages are ranked by their creation time.
func (d *Database) GetUserConversations(ctx context.Context, userID uuid.UUID) ([]models.Conversation, error) {
	var convs []models.Conversation
	err := d.db.WithContext(ctx).
		Joins("JOIN conversation_members cm ON cm.conversation_id = conversations.id").
		Where("cm.user_id = ?", userID).
		Order("COALESCE(conversations.last_message_at, conversations.created_at) DESC").
		Order("conversations.id DESC").
		Preload("Members.User").
		Find(&convs).Error
	return convs, err
}
