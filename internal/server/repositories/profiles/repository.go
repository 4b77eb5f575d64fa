// Package profiles provides persistence for the authoritative profile
// documents, including the membership map consulted for visibility.
package profiles

import (
	"context"

	"github.com/ankravcenko/medikeep/internal/server/models"
)

type Repository interface {
	// Create inserts a new profile and returns it with its assigned id.
	Create(ctx context.Context, p *models.Profile) (*models.Profile, error)

	// Update overwrites an existing profile document.
	Update(ctx context.Context, p *models.Profile) error

	GetByID(ctx context.Context, id string) (*models.Profile, error)

	// ListVisible returns non-deleted profiles plus dirty tombstones the
	// user owns or is a member of. Tombstones are included so clients can
	// retire local copies.
	ListVisible(ctx context.Context, userID string) ([]models.Profile, error)

	// AddMember sets a member's role inside the membership map.
	AddMember(ctx context.Context, profileID, userID, role string) error
}
