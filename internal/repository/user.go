package repository

import (
	"context"

	"github.com/Owskar/collaborative-code-editor/internal/domain"
)

// UserRepository stores user accounts.
type UserRepository interface {
	// FindByUsername returns ErrUserNotFound when no user has the name.
	FindByUsername(ctx context.Context, username string) (*domain.User, error)

	// FindByID returns ErrUserNotFound when the id is unknown.
	FindByID(ctx context.Context, id uint) (*domain.User, error)

	// Save creates the user when ID is zero, otherwise updates it.
	// Unique violations return ErrDuplicateEntry.
	Save(ctx context.Context, user *domain.User) error
}
