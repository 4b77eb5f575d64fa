package intakes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ankravcenko/medikeep/internal/common"
	"github.com/ankravcenko/medikeep/internal/dbx"
	"github.com/ankravcenko/medikeep/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, i *models.Intake) (*models.Intake, error) {
	query := `
		INSERT INTO intakes (medication_id, profile_id, planned_at, taken_at, status, deleted, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (medication_id, planned_at) DO UPDATE
		SET taken_at = EXCLUDED.taken_at, status = EXCLUDED.status,
		    deleted = EXCLUDED.deleted, updated_at = EXCLUDED.updated_at
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query,
		i.MedicationID, i.ProfileID, i.PlannedAt, i.TakenAt, i.Status, i.Deleted, i.UpdatedAt).Scan(&i.ID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return i, nil
}

func (r *PostgresRepository) Update(ctx context.Context, i *models.Intake) error {
	query := `
		UPDATE intakes
		SET taken_at = $2, status = $3, deleted = $4, updated_at = $5
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query, i.ID, i.TakenAt, i.Status, i.Deleted, i.UpdatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Intake, error) {
	query := `
		SELECT id, medication_id, profile_id, planned_at, taken_at, status, deleted, updated_at
		FROM intakes
		WHERE id = $1
	`
	i := &models.Intake{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&i.ID, &i.MedicationID, &i.ProfileID, &i.PlannedAt, &i.TakenAt, &i.Status, &i.Deleted, &i.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return i, nil
}

func (r *PostgresRepository) ListByProfile(ctx context.Context, profileID string) ([]models.Intake, error) {
	query := `
		SELECT id, medication_id, profile_id, planned_at, taken_at, status, deleted, updated_at
		FROM intakes
		WHERE profile_id = $1
		ORDER BY planned_at
	`
	rows, err := r.db.QueryContext(ctx, query, profileID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []models.Intake
	for rows.Next() {
		var i models.Intake
		if err := rows.Scan(&i.ID, &i.MedicationID, &i.ProfileID, &i.PlannedAt,
			&i.TakenAt, &i.Status, &i.Deleted, &i.UpdatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, i)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}
