// Package medications provides persistence for medication documents.
package medications

import (
	"context"

	"github.com/ankravcenko/medikeep/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, m *models.Medication) (*models.Medication, error)
	Update(ctx context.Context, m *models.Medication) error
	GetByID(ctx context.Context, id string) (*models.Medication, error)

	// ListByProfile returns every document of the profile, tombstones
	// included, so clients can retire local copies.
	ListByProfile(ctx context.Context, profileID string) ([]models.Medication, error)
}
