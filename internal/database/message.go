package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/thereayou/relay-chat/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AppendMessage stores msg and advances the conversation's lastMessageAt in
// one transaction. The conversation row is locked so that concurrent
// appends serialise; CreatedAt is assigned here and is strictly greater than
// every earlier message in the conversation.
func (d *Database) AppendMessage(ctx context.Context, msg *models.Message) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var conv models.Conversation
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&conv, "id = ?", msg.ConversationID).Error; err != nil {
			return err
		}

		createdAt := d.Now()
		if conv.LastMessageAt != nil && !createdAt.After(*conv.LastMessageAt) {
			createdAt = conv.LastMessageAt.UTC().Add(time.Microsecond)
		}
		msg.CreatedAt = createdAt
		if msg.Status == "" {
			msg.Status = models.StatusSent
		}

		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		return tx.Model(&models.Conversation{}).
			Where("id = ?", msg.ConversationID).
			Update("last_message_at", createdAt).Error
	})
}

// GetConversationMessages returns up to limit messages older than before
// (all when before is nil), newest first.
func (d *Database) GetConversationMessages(ctx context.Context, conversationID uuid.UUID, before *time.Time, limit int) ([]models.Message, error) {
	var messages []models.Message

	query := d.db.WithContext(ctx).Where("conversation_id = ?", conversationID)
	if before != nil {
		query = query.Where("created_at < ?", before.UTC())
	}

	err := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&messages).Error
	return messages, err
}

// MarkConversationRead moves every message not sent by readerID to READ,
// touching only rows whose status may legally advance. It returns how many
// rows changed.
func (d *Database) MarkConversationRead(ctx context.Context, conversationID, readerID uuid.UUID) (int64, error) {
	sources := models.TransitionSources(models.StatusRead)
	from := make([]string, len(sources))
	for i, s := range sources {
		from[i] = string(s)
	}

	res := d.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("conversation_id = ? AND sender_id <> ? AND status IN ?", conversationID, readerID, from).
		Update("status", string(models.StatusRead))
	return res.RowsAffected, res.Error
}

func (d *Database) CountByStatus(ctx context.Context, conversationID uuid.UUID, status models.MessageStatus) (int64, error) {
	var n int64
	err := d.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("conversation_id = ? AND status = ?", conversationID, string(status)).
		Count(&n).Error
	return n, err
}
