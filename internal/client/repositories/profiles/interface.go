package profiles

import (
	"context"
	"time"

	"github.com/ankravcenko/medikeep/internal/client/models"
)

// Repository describes CRUD and sync-bookkeeping operations for Profile
// rows. Implementations are typically backed by a local SQLite database.
//
// Save is a full upsert: the caller decides Dirty and UpdatedAt, so both
// UI mutations (dirty=true) and sync reconciliation writes (dirty=false)
// go through the same path.
type Repository interface {
	Save(ctx context.Context, p *models.Profile) error

	GetByID(ctx context.Context, id string) (*models.Profile, error)

	// GetByRemoteID resolves a local row by its assigned remote id.
	GetByRemoteID(ctx context.Context, remoteId string) (*models.Profile, error)

	// FindByOwnerAndName returns non-deleted rows matching (owner, name).
	// Used by the sync engine to collapse duplicates created before a
	// locally-born profile received its remote id.
	FindByOwnerAndName(ctx context.Context, ownerId, name string) ([]models.Profile, error)

	// GetAll lists all non-deleted profiles.
	GetAll(ctx context.Context) ([]models.Profile, error)

	// GetAllDirty returns rows with local changes not yet pushed,
	// including soft-deleted ones.
	GetAllDirty(ctx context.Context) ([]*models.Profile, error)

	// MarkSynced records the assigned remote id and clears the dirty flag.
	MarkSynced(ctx context.Context, id, remoteId string) error

	// SoftDelete tombstones a row and marks it dirty for the next push.
	SoftDelete(ctx context.Context, id string, at time.Time) error

	// Delete removes a row entirely. Only the deduplication pass uses it.
	Delete(ctx context.Context, id string) error
}
