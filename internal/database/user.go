package database

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/thereayou/relay-chat/internal/models"
)

func (d *Database) SaveUser(ctx context.Context, user *models.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = d.Now()
	}
	return d.db.WithContext(ctx).Create(user).Error
}

func (d *Database) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := d.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindUserByLogin matches either the username or the email address.
func (d *Database) FindUserByLogin(ctx context.Context, login string) (*models.User, error) {
	var user models.User
	err := d.db.WithContext(ctx).
		Where("username = ? OR LOWER(email) = ?", login, strings.ToLower(login)).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (d *Database) UsernameTaken(ctx context.Context, username string) (bool, error) {
	var n int64
	err := d.db.WithContext(ctx).Model(&models.User{}).Where("username = ?", username).Count(&n).Error
	return n > 0, err
}

func (d *Database) EmailTaken(ctx context.Context, email string) (bool, error) {
	var n int64
	err := d.db.WithContext(ctx).Model(&models.User{}).Where("LOWER(email) = ?", strings.ToLower(email)).Count(&n).Error
	return n > 0, err
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// SearchUsersByUsername does a case-insensitive prefix match.
func (d *Database) SearchUsersByUsername(ctx context.Context, prefix string, exclude uuid.UUID, limit int) ([]models.User, error) {
	var users []models.User
	pattern := likeEscaper.Replace(strings.ToLower(prefix)) + "%"
	err := d.db.WithContext(ctx).
		Where(`LOWER(username) LIKE ? ESCAPE '\'`, pattern).
		Where("id <> ?", exclude).
		Order("username ASC").
		Limit(limit).
		Find(&users).Error
	return users, err
}
