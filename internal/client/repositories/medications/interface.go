package medications

import (
	"context"
	"time"

	"github.com/ankravcenko/medikeep/internal/client/models"
)

// Repository describes CRUD and sync-bookkeeping operations for Medication
// rows. Save is a full upsert; Dirty and UpdatedAt are controlled by the
// caller.
type Repository interface {
	Save(ctx context.Context, m *models.Medication) error

	GetByID(ctx context.Context, id string) (*models.Medication, error)

	GetByRemoteID(ctx context.Context, remoteId string) (*models.Medication, error)

	// GetAllByProfile lists non-deleted medications of one profile.
	GetAllByProfile(ctx context.Context, profileId string) ([]models.Medication, error)

	// GetAllDirty returns rows awaiting a sync push, tombstones included.
	GetAllDirty(ctx context.Context) ([]*models.Medication, error)

	MarkSynced(ctx context.Context, id, remoteId string) error

	SoftDelete(ctx context.Context, id string, at time.Time) error
}
