package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ConversationType string

const (
	ConversationDirect ConversationType = "DIRECT"
	// ConversationGroup is reserved; no behaviour is attached to it yet.
	ConversationGroup ConversationType = "GROUP"
)

type Conversation struct {
	ID   uuid.UUID        `gorm:"type:uuid;primaryKey"`
	Type ConversationType `gorm:"type:varchar(10);not null;check:type IN ('DIRECT','GROUP')"`
	// PairKey is set for DIRECT conversations only; its unique index enforces
	// at most one direct conversation per unordered user pair.
	PairKey       *string `gorm:"type:varchar(80);uniqueIndex"`
	CreatedAt     time.Time
	LastMessageAt *time.Time `gorm:"index"`

	Members []ConversationMember `gorm:"foreignKey:ConversationID"`
}

func (c *Conversation) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// RecencyAt is the instant a conversation list is ordered by.
func (c *Conversation) RecencyAt() time.Time {
	if c.LastMessageAt != nil {
		return *c.LastMessageAt
	}
	return c.CreatedAt
}

type ConversationMember struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	ConversationID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_member_conversation_user"`
	UserID         uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_member_conversation_user;index"`
	JoinedAt       time.Time

	User User `gorm:"foreignKey:UserID"`
}

func (m *ConversationMember) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// DirectPairKey returns the order-independent key for two participants.
func DirectPairKey(a, b uuid.UUID) string {
	x, y := a.String(), b.String()
	if y < x {
		x, y = y, x
	}
	return x + ":" + y
}
