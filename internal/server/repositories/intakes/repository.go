// Package intakes provides persistence for intake occurrence documents.
package intakes

import (
	"context"

	"github.com/ankravcenko/medikeep/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, i *models.Intake) (*models.Intake, error)
	Update(ctx context.Context, i *models.Intake) error
	GetByID(ctx context.Context, id string) (*models.Intake, error)

	// ListByProfile returns every occurrence of the profile, tombstones
	// included.
	ListByProfile(ctx context.Context, profileID string) ([]models.Intake, error)
}
