package user

import "context"

// Repository defines the interface for user data access
type Repository interface {
	// Create persists a new user. Returns ErrDuplicateEmail when the email
	// is already registered.
	Create(ctx context.Context, params CreateParams) (*User, error)
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context) ([]*User, error)
}
