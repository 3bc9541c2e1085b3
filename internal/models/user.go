package models

import (
	"time"

	"github.com/google/uuid"
)

// User is a registered account. Every request is made on behalf of exactly
// one user; the server resolves the user from the bearer token before any
// receipt or selection operation runs.
type User struct {
	// ID is the unique identifier for the user (UUID format).
	ID string `json:"id"`

	// Email is the login identifier, unique across users.
	Email string `json:"email"`

	// DisplayName is shown to other participants on a shared receipt.
	DisplayName string `json:"display_name"`

	// PasswordHash is the bcrypt hash of the password. Never serialized.
	PasswordHash string `json:"-"`

	CreatedAt int64 `json:"created_at"`
	UpdatedAt int64 `json:"updated_at"`
}

// NewUser creates a user with a fresh ID and timestamps.
func NewUser(email, displayName, passwordHash string) *User {
	now := time.Now().Unix()
	return &User{
		ID:           uuid.New().String(),
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
