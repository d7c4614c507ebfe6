package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/thereayou/relay-chat/internal/database"
	"github.com/thereayou/relay-chat/internal/models"
)

const maxSearchResults = 20

type UserService struct {
	store Store
}

func NewUserService(store Store) *UserService {
	return &UserService{store: store}
}

func (s *UserService) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.store.GetUser(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, NotFound("user")
	}
	if err != nil {
		return nil, Internal(err)
	}
	return user, nil
}

func (s *UserService) Search(ctx context.Context, caller models.Identity, query string) ([]models.User, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ValidationError("q", "is required")
	}
	users, err := s.store.SearchUsersByUsername(ctx, query, caller.ID, maxSearchResults)
	if err != nil {
		return nil, Internal(err)
	}
	return users, nil
}
