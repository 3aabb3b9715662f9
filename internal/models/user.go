package models

import (
	"time"

	"github.com/google/uuid"
)

// User is an API account. PasswordHash is a bcrypt hash and is never
// serialised in responses.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Admin        bool      `json:"admin"`
	CreatedAt    time.Time `json:"created_at"`
}

func NewUser(username string, passwordHash string, admin bool) *User {
	return &User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: passwordHash,
		Admin:        admin,
		CreatedAt:    time.Now().UTC(),
	}
}

// Session is the server-side state behind one bearer token, stored in
// Redis with a TTL matching ExpiresAt.
type Session struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Admin     bool      `json:"admin"`
	ExpiresAt time.Time `json:"expires_at"`
}
