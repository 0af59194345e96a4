package user

import (
	"errors"
	"strings"
	"time"

	"amanah/internal/shared/auth"
)

// Domain errors
var (
	ErrUserNotFound   = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already registered")
)

// User is an operator account. Its role feeds the authorization predicates
// the engine evaluates before every mutating operation.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	Role         auth.Role `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// CreateParams contains parameters for creating a new user.
type CreateParams struct {
	Email        string
	Name         string
	PasswordHash string
	Role         auth.Role
}

// Validate validates the create parameters.
func (p CreateParams) Validate() error {
	if strings.TrimSpace(p.Email) == "" {
		return errors.New("email is required")
	}
	if !strings.Contains(p.Email, "@") {
		return errors.New("email is malformed")
	}
	if p.PasswordHash == "" {
		return errors.New("password hash is required")
	}
	if _, ok := auth.ParseRole(string(p.Role)); !ok {
		return errors.New("role must be admin, treasurer or viewer")
	}
	return nil
}
