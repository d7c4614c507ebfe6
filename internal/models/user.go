package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Username     string    `gorm:"type:varchar(50);uniqueIndex;not null"`
	Email        string    `gorm:"type:varchar(255);uniqueIndex;not null"`
	PasswordHash string    `gorm:"not null"`
	CreatedAt    time.Time
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// Identity is the authenticated principal, resolved once at the edge
// (REST middleware or streaming handshake) and passed explicitly downward.
type Identity struct {
	ID       uuid.UUID
	Username string
}

func (u *User) Identity() Identity {
	return Identity{ID: u.ID, Username: u.Username}
}
