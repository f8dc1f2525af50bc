package auth

import (
	"github.com/google/uuid"
)

// Session is the authenticated staff member on whose behalf an operation runs.
// Services receive it explicitly; nothing reads it from ambient state.
type Session struct {
	StaffID     uuid.UUID
	DisplayName string
	Institution string
}

// Valid reports whether the session carries a staff identity.
func (s Session) Valid() bool {
	return s.StaffID != uuid.Nil
}

// TokenPair holds access and refresh tokens.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
}

// LoginRequest for email/password authentication.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// CreateStaffRequest bootstraps a staff account.
type CreateStaffRequest struct {
	Email       string
	Password    string
	DisplayName string
	Institution string
}
