package medications

import (
	"context"
	"database/sql"
	"encoding/json"
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

func (r *PostgresRepository) Create(ctx context.Context, m *models.Medication) (*models.Medication, error) {
	times, err := encodeTimes(m.Times)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO medications
			(profile_id, name, form, dose_amount, dose_unit, times, start_date,
			 end_date, duration_days, active, importance, meal_relation, notes,
			 deleted, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id, created_at
	`
	err = r.db.QueryRowContext(ctx, query,
		m.ProfileID, m.Name, m.Form, m.DoseAmount, m.DoseUnit, times, m.StartDate,
		m.EndDate, m.DurationDays, m.Active, m.Importance, m.MealRelation, m.Notes,
		m.Deleted, m.UpdatedAt).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return m, nil
}

func (r *PostgresRepository) Update(ctx context.Context, m *models.Medication) error {
	times, err := encodeTimes(m.Times)
	if err != nil {
		return err
	}

	query := `
		UPDATE medications
		SET name = $2, form = $3, dose_amount = $4, dose_unit = $5, times = $6,
		    start_date = $7, end_date = $8, duration_days = $9, active = $10,
		    importance = $11, meal_relation = $12, notes = $13, deleted = $14,
		    updated_at = $15
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query,
		m.ID, m.Name, m.Form, m.DoseAmount, m.DoseUnit, times,
		m.StartDate, m.EndDate, m.DurationDays, m.Active,
		m.Importance, m.MealRelation, m.Notes, m.Deleted, m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

const selectColumns = `
	SELECT id, profile_id, name, form, dose_amount, dose_unit, times, start_date,
	       end_date, duration_days, active, importance, meal_relation, notes,
	       deleted, updated_at, created_at
	FROM medications
`

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Medication, error) {
	row := r.db.QueryRowContext(ctx, selectColumns+` WHERE id = $1`, id)
	m, err := scanRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, err
	}
	return m, nil
}

func (r *PostgresRepository) ListByProfile(ctx context.Context, profileID string) ([]models.Medication, error) {
	rows, err := r.db.QueryContext(ctx, selectColumns+` WHERE profile_id = $1 ORDER BY created_at`, profileID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []models.Medication
	for rows.Next() {
		m, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRow(row scannable) (*models.Medication, error) {
	m := &models.Medication{}
	var times []byte
	err := row.Scan(&m.ID, &m.ProfileID, &m.Name, &m.Form, &m.DoseAmount, &m.DoseUnit,
		&times, &m.StartDate, &m.EndDate, &m.DurationDays, &m.Active,
		&m.Importance, &m.MealRelation, &m.Notes, &m.Deleted, &m.UpdatedAt, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if err := json.Unmarshal(times, &m.Times); err != nil {
		return nil, fmt.Errorf("malformed times document: %w", err)
	}
	return m, nil
}

func encodeTimes(times []string) ([]byte, error) {
	if times == nil {
		times = []string{}
	}
	data, err := json.Marshal(times)
	if err != nil {
		return nil, fmt.Errorf("failed to encode times: %w", err)
	}
	return data, nil
}
