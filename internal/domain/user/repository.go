package user

import "context"

// Repository is the user directory consulted by the ticket lifecycle.
type Repository interface {
	Create(ctx context.Context, user *User) error
	// GetByID returns a not-found error when the user does not exist.
	GetByID(ctx context.Context, id string) (*User, error)
	GetByIDs(ctx context.Context, ids []string) ([]*User, error)
}
