// Package repository defines the data access contract of the application.
//
// Implementations live in sub-packages (sqlite, postgres). Every method maps
// to exactly one SQL statement; a missing row is reported as
// apperror.ErrNotFound, a constraint failure as apperror.ErrConflict and an
// unreachable store as apperror.ErrUnavailable.
package repository

import (
	"context"

	"github.com/sakif/users-api/internal/model"
)

type UserRepository interface {
	// Insert stores a new user and sets user.ID to the assigned identifier.
	Insert(ctx context.Context, user *model.User) error
	// FindAll returns every user in storage-default order. Never nil.
	FindAll(ctx context.Context) ([]model.User, error)
	FindByID(ctx context.Context, id int64) (*model.User, error)
	// Update overwrites all four text fields of the row with user.ID.
	Update(ctx context.Context, user *model.User) error
	Delete(ctx context.Context, id int64) error
}
