// Package users provides persistence for user accounts.
package users

import (
	"context"

	"github.com/ankravcenko/medikeep/internal/server/models"
)

type Repository interface {
	// Create inserts a user. A duplicate email yields
	// common.ErrLoginAlreadyExists.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	// GetUserByLogin resolves a user by email, common.ErrorNotFound when
	// absent.
	GetUserByLogin(ctx context.Context, email string) (*models.User, error)
}
