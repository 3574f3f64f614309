package model

import (
	"time"

	"github.com/google/uuid"
)

// Role enumerates user roles. Admins bypass entitlement and pause/fraud
// restrictions for read/write convenience, never for scoring.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// User represents a platform account. Regular users are provisioned by the
// identity provider webhook and keyed by their external id; admins may also
// carry a local bcrypt credential.
type User struct {
	ID           uuid.UUID `json:"id"`
	ExternalID   string    `json:"external_id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         Role      `json:"role"`
	PasswordHash *string   `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// LoginRequest is the payload for local credential login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

// IdentityEvent is the payload delivered by the identity provider webhook.
type IdentityEvent struct {
	Type       string `json:"type" binding:"required,oneof=user.created user.updated user.deleted"`
	ExternalID string `json:"external_id" binding:"required"`
	Email      string `json:"email" binding:"omitempty,email"`
	Name       string `json:"name" binding:"omitempty,max=255"`
}
