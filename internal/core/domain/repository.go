package domain

import (
	"context"
	"errors"
	"time"
)

var (
	ErrCategoryNotFound = errors.New("category not found")
	ErrCategoryConflict = errors.New("category was modified concurrently")
)

type CategoryRepository interface {
	// Create persists a freshly built category aggregate.
	Create(ctx context.Context, category *Category) error

	// GetByID retrieves a category by its unique identifier.
	GetByID(ctx context.Context, id string) (*Category, error)

	// ListByOwnerID retrieves every category owned by a user.
	ListByOwnerID(ctx context.Context, ownerID string) ([]*Category, error)

	// Update writes the aggregate back, guarded by its version token.
	// Returns ErrCategoryConflict when the stored version has moved on.
	Update(ctx context.Context, category *Category) error

	// Delete removes a category wholesale. Deletion is immediate and
	// irreversible; there is no soft-delete.
	Delete(ctx context.Context, id string) error

	// GetChanges returns the categories touched after a given instant,
	// oldest first. Backs the snapshot sync endpoint.
	GetChanges(ctx context.Context, ownerID string, since time.Time) ([]*Category, error)
}

type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
}
