package user

import (
	"time"

	"ajo/internal/shared/apperror"
)

var (
	ErrUserNotFound       = apperror.NotFound("user not found")
	ErrEmailTaken         = apperror.Conflict("user with this email already exists")
	ErrInvalidEmail       = apperror.Validation("a valid email is required")
	ErrInvalidRole        = apperror.Validation("role must be agent or customer")
	ErrInvalidCredentials = apperror.Authorization("invalid email or password")
)

// User holds login credentials and the metadata captured at signup.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FullName     string    `json:"fullName"`
	SignupRole   string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

type CreateUserParams struct {
	ID           string
	Email        string
	PasswordHash string
	FullName     string
	SignupRole   string
}

// RegisterRequest is the signup input. Role and FullName are kept as signup
// metadata and applied when the profile is provisioned.
type RegisterRequest struct {
	Email    string
	Password string
	FullName string
	Role     string
}
