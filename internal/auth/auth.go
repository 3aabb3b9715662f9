// Package auth issues and validates the bearer tokens behind the REST
// API. Tokens are opaque UUIDs stored server-side in Redis with a TTL.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/fleetdesk/fleetdesk/internal/models"
	"github.com/fleetdesk/fleetdesk/internal/redis"
	"github.com/fleetdesk/fleetdesk/internal/store"
)

var (
	ErrInvalidCredentials = errors.New("auth: invalid username or password")
	ErrInvalidToken       = errors.New("auth: invalid or expired token")
)

type Service struct {
	store       store.Store
	redisClient *redis.Client
	tokenTTL    time.Duration
}

func NewService(st store.Store, redisClient *redis.Client, tokenTTL time.Duration) *Service {
	return &Service{
		store:       st,
		redisClient: redisClient,
		tokenTTL:    tokenTTL,
	}
}

// Login verifies the credentials against the user store and issues a
// new session token. A missing user and a wrong password return the
// same error so the response does not leak which usernames exist.
func (s *Service) Login(ctx context.Context, username string, password string) (*models.Session, error) {
	user, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	session := &models.Session{
		Token:     uuid.NewString(),
		UserID:    user.ID,
		Username:  user.Username,
		Admin:     user.Admin,
		ExpiresAt: time.Now().UTC().Add(s.tokenTTL),
	}

	if err := s.redisClient.StoreSession(ctx, session, s.tokenTTL); err != nil {
		return nil, err
	}

	log.Printf("Issued token for user %s (admin: %v)", user.Username, user.Admin)

	return session, nil
}

func (s *Service) Logout(ctx context.Context, token string) error {
	return s.redisClient.DeleteSession(ctx, token)
}

// Validate resolves a bearer token to its session. Redis TTL handles
// expiry, so an expired token simply stops resolving.
func (s *Service) Validate(ctx context.Context, token string) (*models.Session, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	session, err := s.redisClient.GetSession(ctx, token)
	if err != nil {
		if errors.Is(err, redis.ErrTokenNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	return session, nil
}

// HashPassword wraps bcrypt with the default cost, for account
// creation and the bootstrap admin user.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}
