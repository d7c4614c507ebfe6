package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MessageStatus string

const (
	StatusSent MessageStatus = "SENT"
	// StatusDelivered is representable but nothing currently produces it.
	StatusDelivered MessageStatus = "DELIVERED"
	StatusRead      MessageStatus = "READ"
)

// ordered by rank
var messageStatuses = []MessageStatus{StatusSent, StatusDelivered, StatusRead}

var statusRank = map[MessageStatus]int{
	StatusSent:      1,
	StatusDelivered: 2,
	StatusRead:      3,
}

// CanTransition reports whether a message may move from s to next.
// Status only advances.
func (s MessageStatus) CanTransition(next MessageStatus) bool {
	from, ok := statusRank[s]
	if !ok {
		return false
	}
	to, ok := statusRank[next]
	if !ok {
		return false
	}
	return to > from
}

// TransitionSources returns every status that may legally move to next.
func TransitionSources(next MessageStatus) []MessageStatus {
	var sources []MessageStatus
	for _, s := range messageStatuses {
		if s.CanTransition(next) {
			sources = append(sources, s)
		}
	}
	return sources
}

type Message struct {
	ID             uuid.UUID     `gorm:"type:uuid;primaryKey"`
	ConversationID uuid.UUID     `gorm:"type:uuid;not null;index:idx_message_conversation_created,priority:1"`
	SenderID       uuid.UUID     `gorm:"type:uuid;not null"`
	Content        string        `gorm:"type:text;not null"`
	Status         MessageStatus `gorm:"type:varchar(10);not null;default:'SENT'"`
	CreatedAt      time.Time     `gorm:"not null;index:idx_message_conversation_created,priority:2"`
}

func (m *Message) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
