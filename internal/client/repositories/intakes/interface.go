package intakes

import (
	"context"
	"time"

	"github.com/ankravcenko/medikeep/internal/client/models"
)

// Repository describes CRUD and sync-bookkeeping operations for Intake rows.
type Repository interface {
	Save(ctx context.Context, i *models.Intake) error

	GetByID(ctx context.Context, id string) (*models.Intake, error)

	GetByRemoteID(ctx context.Context, remoteId string) (*models.Intake, error)

	// GetByMedicationAndPlanned looks up the single occurrence for a
	// (medication, planned instant) pair. The generator calls this before
	// every insert so regeneration stays idempotent.
	GetByMedicationAndPlanned(ctx context.Context, medicationId string, plannedAt time.Time) (*models.Intake, error)

	// ListForMedicationBetween returns non-deleted occurrences with
	// plannedAt in [from, to).
	ListForMedicationBetween(ctx context.Context, medicationId string, from, to time.Time) ([]models.Intake, error)

	// ListForProfileBetween returns a profile's non-deleted occurrences
	// with plannedAt in [from, to), across all its medications.
	ListForProfileBetween(ctx context.Context, profileId string, from, to time.Time) ([]models.Intake, error)

	GetAllDirty(ctx context.Context) ([]*models.Intake, error)

	MarkSynced(ctx context.Context, id, remoteId string) error

	SoftDelete(ctx context.Context, id string, at time.Time) error

	// SoftDeleteByMedication tombstones every occurrence of a medication.
	// Used when the owning medication is deleted.
	SoftDeleteByMedication(ctx context.Context, medicationId string, at time.Time) error
}
