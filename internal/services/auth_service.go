package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/thereayou/relay-chat/internal/database"
	"github.com/thereayou/relay-chat/internal/models"
	"github.com/thereayou/relay-chat/pkg/auth"
	"golang.org/x/crypto/bcrypt"
)

// CredentialVerifier validates a bearer token and yields its claims.
type CredentialVerifier interface {
	Generate(userID, username string) (string, time.Time, error)
	Verify(token string) (*auth.Claims, error)
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
}

type AuthResult struct {
	User        *models.User
	AccessToken string
	ExpiresAt   time.Time
}

type AuthService struct {
	store       Store
	verifier    CredentialVerifier
	revocations *RevocationList
	hashCost    int
}

func NewAuthService(store Store, verifier CredentialVerifier, revocations *RevocationList) *AuthService {
	return &AuthService{
		store:       store,
		verifier:    verifier,
		revocations: revocations,
		hashCost:    bcrypt.DefaultCost,
	}
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)

	taken, err := s.store.UsernameTaken(ctx, in.Username)
	if err != nil {
		return nil, Internal(err)
	}
	if taken {
		return nil, Conflict("username", "is already taken")
	}
	taken, err = s.store.EmailTaken(ctx, in.Email)
	if err != nil {
		return nil, Internal(err)
	}
	if taken {
		return nil, Conflict("email", "is already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.hashCost)
	if err != nil {
		return nil, Internal(err)
	}

	user := &models.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: string(hash),
	}
	if err := s.store.SaveUser(ctx, user); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, s.duplicateConflict(ctx, in)
		}
		return nil, Internal(err)
	}

	log.Infof("registered user %s (%s)", user.Username, user.ID)
	return s.issue(user)
}

// duplicateConflict names the column a concurrent registration claimed
// between the prechecks and the insert.
func (s *AuthService) duplicateConflict(ctx context.Context, in RegisterInput) error {
	if taken, err := s.store.UsernameTaken(ctx, in.Username); err == nil && taken {
		return Conflict("username", "is already taken")
	}
	if taken, err := s.store.EmailTaken(ctx, in.Email); err == nil && taken {
		return Conflict("email", "is already registered")
	}
	return Conflict("username", "is already taken")
}

// Login accepts either the username or the email address.
func (s *AuthService) Login(ctx context.Context, login, password string) (*AuthResult, error) {
	user, err := s.store.FindUserByLogin(ctx, strings.TrimSpace(login))
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrBadCredentials
	}
	if err != nil {
		return nil, Internal(err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrBadCredentials
	}
	return s.issue(user)
}

// Logout revokes token for the rest of its lifetime.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	claims, err := s.verifier.Verify(token)
	if err != nil {
		return Unauthorized("invalid token")
	}
	if claims.ExpiresAt == nil {
		return nil
	}
	if err := s.revocations.Revoke(ctx, token, time.Until(claims.ExpiresAt.Time)); err != nil {
		return Internal(err)
	}
	return nil
}

// Authenticate turns a bearer token into the caller's identity. Revoked,
// invalid and orphaned tokens are all Unauthorized.
func (s *AuthService) Authenticate(ctx context.Context, token string) (models.Identity, error) {
	if token == "" {
		return models.Identity{}, Unauthorized("missing bearer token")
	}

	revoked, err := s.revocations.IsRevoked(ctx, token)
	if err != nil {
		log.Warningf("revocation check failed: %v", err)
		return models.Identity{}, Unauthorized("cannot verify token")
	}
	if revoked {
		return models.Identity{}, Unauthorized("token has been revoked")
	}

	claims, err := s.verifier.Verify(token)
	if err != nil {
		return models.Identity{}, Unauthorized("invalid token")
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return models.Identity{}, Unauthorized("invalid token subject")
	}

	user, err := s.store.GetUser(ctx, userID)
	if errors.Is(err, database.ErrNotFound) {
		return models.Identity{}, Unauthorized("unknown token subject")
	}
	if err != nil {
		return models.Identity{}, Internal(err)
	}
	return user.Identity(), nil
}

func (s *AuthService) issue(user *models.User) (*AuthResult, error) {
	token, exp, err := s.verifier.Generate(user.ID.String(), user.Username)
	if err != nil {
		return nil, Internal(err)
	}
	return &AuthResult{User: user, AccessToken: token, ExpiresAt: exp}, nil
}
