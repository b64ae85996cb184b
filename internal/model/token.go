package model

import (
	"time"

	"github.com/google/uuid"
)

// TokenManager issues and verifies session tokens.
type TokenManager interface {
	Issue(user User) (string, error)
	Verify(token string) (Principal, error)
}

// Principal is the identity resolved from a verified token.
type Principal struct {
	UserID    uuid.UUID
	Email     string
	Role      Role
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// AuthResult is returned by signup and login.
type AuthResult struct {
	User  User
	Token string
}
