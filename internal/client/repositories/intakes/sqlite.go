package intakes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ankravcenko/medikeep/internal/client/models"
	"github.com/ankravcenko/medikeep/internal/common"
	"github.com/ankravcenko/medikeep/internal/dbx"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const intakeColumns = `id, remote_id, medication_id, profile_id, planned_at, taken_at, status, deleted, dirty, updated_at`

func (r *SQLiteRepository) Save(ctx context.Context, i *models.Intake) error {
	var takenAt any
	if i.TakenAt != nil {
		takenAt = i.TakenAt.UnixMilli()
	}
	query := `INSERT INTO intakes (` + intakeColumns + `)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				remote_id = excluded.remote_id,
				medication_id = excluded.medication_id,
				profile_id = excluded.profile_id,
				planned_at = excluded.planned_at,
				taken_at = excluded.taken_at,
				status = excluded.status,
				deleted = excluded.deleted,
				dirty = excluded.dirty,
				updated_at = excluded.updated_at
	`
	_, err := r.db.ExecContext(ctx, query,
		i.Id, i.RemoteId, i.MedicationId, i.ProfileId, i.PlannedAt.UnixMilli(), takenAt,
		string(i.Status), i.Deleted, i.Dirty, i.UpdatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to upsert intake: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.Intake, error) {
	query := `SELECT ` + intakeColumns + ` FROM intakes WHERE id = ?`
	return scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *SQLiteRepository) GetByRemoteID(ctx context.Context, remoteId string) (*models.Intake, error) {
	query := `SELECT ` + intakeColumns + ` FROM intakes WHERE remote_id = ?`
	return scanOne(r.db.QueryRowContext(ctx, query, remoteId))
}

func (r *SQLiteRepository) GetByMedicationAndPlanned(ctx context.Context, medicationId string, plannedAt time.Time) (*models.Intake, error) {
	query := `SELECT ` + intakeColumns + ` FROM intakes WHERE medication_id = ? AND planned_at = ?`
	return scanOne(r.db.QueryRowContext(ctx, query, medicationId, plannedAt.UnixMilli()))
}

func (r *SQLiteRepository) ListForMedicationBetween(ctx context.Context, medicationId string, from, to time.Time) ([]models.Intake, error) {
	query := `SELECT ` + intakeColumns + ` FROM intakes
		WHERE medication_id = ? AND planned_at >= ? AND planned_at < ? AND deleted = 0
		ORDER BY planned_at`
	rows, err := r.db.QueryContext(ctx, query, medicationId, from.UnixMilli(), to.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("failed to select intakes: %w", err)
	}
	return scanMany(rows)
}

func (r *SQLiteRepository) ListForProfileBetween(ctx context.Context, profileId string, from, to time.Time) ([]models.Intake, error) {
	query := `SELECT ` + intakeColumns + ` FROM intakes
		WHERE profile_id = ? AND planned_at >= ? AND planned_at < ? AND deleted = 0
		ORDER BY planned_at`
	rows, err := r.db.QueryContext(ctx, query, profileId, from.UnixMilli(), to.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("failed to select intakes: %w", err)
	}
	return scanMany(rows)
}

func (r *SQLiteRepository) GetAllDirty(ctx context.Context) ([]*models.Intake, error) {
	query := `SELECT ` + intakeColumns + ` FROM intakes WHERE dirty = 1`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select dirty intakes: %w", err)
	}
	all, err := scanMany(rows)
	if err != nil {
		return nil, err
	}
	result := make([]*models.Intake, len(all))
	for i := range all {
		result[i] = &all[i]
	}
	return result, nil
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, id, remoteId string) error {
	query := `UPDATE intakes SET dirty = 0, remote_id = ? WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, remoteId, id); err != nil {
		return fmt.Errorf("failed to mark intake synced: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) SoftDelete(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE intakes SET deleted = 1, dirty = 1, updated_at = ? WHERE id = ? AND deleted = 0`
	if _, err := r.db.ExecContext(ctx, query, at.UnixMilli(), id); err != nil {
		return fmt.Errorf("failed to delete intake: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) SoftDeleteByMedication(ctx context.Context, medicationId string, at time.Time) error {
	query := `UPDATE intakes SET deleted = 1, dirty = 1, updated_at = ? WHERE medication_id = ? AND deleted = 0`
	if _, err := r.db.ExecContext(ctx, query, at.UnixMilli(), medicationId); err != nil {
		return fmt.Errorf("failed to delete intakes for medication: %w", err)
	}
	return nil
}

func scanOne(row *sql.Row) (*models.Intake, error) {
	i := &models.Intake{}
	var status string
	var planned, updated int64
	var taken sql.NullInt64
	err := row.Scan(&i.Id, &i.RemoteId, &i.MedicationId, &i.ProfileId, &planned, &taken,
		&status, &i.Deleted, &i.Dirty, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("query row scan failed: %w", err)
	}
	fill(i, status, planned, taken, updated)
	return i, nil
}

func scanMany(rows *sql.Rows) ([]models.Intake, error) {
	defer rows.Close()

	var result []models.Intake
	for rows.Next() {
		var i models.Intake
		var status string
		var planned, updated int64
		var taken sql.NullInt64
		if err := rows.Scan(&i.Id, &i.RemoteId, &i.MedicationId, &i.ProfileId, &planned, &taken,
			&status, &i.Deleted, &i.Dirty, &updated); err != nil {
			return nil, err
		}
		fill(&i, status, planned, taken, updated)
		result = append(result, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func fill(i *models.Intake, status string, planned int64, taken sql.NullInt64, updated int64) {
	i.Status = models.IntakeStatus(status)
	i.PlannedAt = time.UnixMilli(planned).UTC()
	if taken.Valid {
		t := time.UnixMilli(taken.Int64).UTC()
		i.TakenAt = &t
	}
	i.UpdatedAt = time.UnixMilli(updated).UTC()
}
