package medications

import (
	"context"
	"database/sql"
	"encoding/json"
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

const medicationColumns = `id, remote_id, profile_id, name, form, dose_amount, dose_unit, times,
	start_date, end_date, duration_days, active, importance, meal_relation, notes,
	deleted, dirty, updated_at, created_at`

func (r *SQLiteRepository) Save(ctx context.Context, m *models.Medication) error {
	times, err := json.Marshal(m.Times)
	if err != nil {
		return fmt.Errorf("failed to encode schedule: %w", err)
	}
	var endDate any
	if m.EndDate != nil {
		endDate = m.EndDate.String()
	}
	query := `INSERT INTO medications (` + medicationColumns + `)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				remote_id = excluded.remote_id,
				profile_id = excluded.profile_id,
				name = excluded.name,
				form = excluded.form,
				dose_amount = excluded.dose_amount,
				dose_unit = excluded.dose_unit,
				times = excluded.times,
				start_date = excluded.start_date,
				end_date = excluded.end_date,
				duration_days = excluded.duration_days,
				active = excluded.active,
				importance = excluded.importance,
				meal_relation = excluded.meal_relation,
				notes = excluded.notes,
				deleted = excluded.deleted,
				dirty = excluded.dirty,
				updated_at = excluded.updated_at
	`
	_, err = r.db.ExecContext(ctx, query,
		m.Id, m.RemoteId, m.ProfileId, m.Name, string(m.Form), m.Dosage.Amount, m.Dosage.Unit,
		string(times), m.StartDate.String(), endDate, m.DurationDays, m.Active,
		string(m.Importance), string(m.MealRelation), m.Notes,
		m.Deleted, m.Dirty, m.UpdatedAt.UnixMilli(), m.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to upsert medication: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.Medication, error) {
	query := `SELECT ` + medicationColumns + ` FROM medications WHERE id = ?`
	return scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *SQLiteRepository) GetByRemoteID(ctx context.Context, remoteId string) (*models.Medication, error) {
	query := `SELECT ` + medicationColumns + ` FROM medications WHERE remote_id = ?`
	return scanOne(r.db.QueryRowContext(ctx, query, remoteId))
}

func (r *SQLiteRepository) GetAllByProfile(ctx context.Context, profileId string) ([]models.Medication, error) {
	query := `SELECT ` + medicationColumns + ` FROM medications WHERE profile_id = ? AND deleted = 0 ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, query, profileId)
	if err != nil {
		return nil, fmt.Errorf("failed to select medications: %w", err)
	}
	return scanMany(rows)
}

func (r *SQLiteRepository) GetAllDirty(ctx context.Context) ([]*models.Medication, error) {
	query := `SELECT ` + medicationColumns + ` FROM medications WHERE dirty = 1`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select dirty medications: %w", err)
	}
	all, err := scanMany(rows)
	if err != nil {
		return nil, err
	}
	result := make([]*models.Medication, len(all))
	for i := range all {
		result[i] = &all[i]
	}
	return result, nil
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, id, remoteId string) error {
	query := `UPDATE medications SET dirty = 0, remote_id = ? WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, remoteId, id); err != nil {
		return fmt.Errorf("failed to mark medication synced: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) SoftDelete(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE medications SET deleted = 1, dirty = 1, updated_at = ? WHERE id = ? AND deleted = 0`
	if _, err := r.db.ExecContext(ctx, query, at.UnixMilli(), id); err != nil {
		return fmt.Errorf("failed to delete medication: %w", err)
	}
	return nil
}

func scanOne(row *sql.Row) (*models.Medication, error) {
	m := &models.Medication{}
	var form, importance, meal, times string
	var endDate sql.NullString
	var startDate string
	var updated, created int64
	err := row.Scan(&m.Id, &m.RemoteId, &m.ProfileId, &m.Name, &form, &m.Dosage.Amount,
		&m.Dosage.Unit, &times, &startDate, &endDate, &m.DurationDays, &m.Active,
		&importance, &meal, &m.Notes, &m.Deleted, &m.Dirty, &updated, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("query row scan failed: %w", err)
	}
	if err := fillParsed(m, form, importance, meal, times, startDate, endDate, updated, created); err != nil {
		return nil, err
	}
	return m, nil
}

func scanMany(rows *sql.Rows) ([]models.Medication, error) {
	defer rows.Close()

	var result []models.Medication
	for rows.Next() {
		var m models.Medication
		var form, importance, meal, times string
		var endDate sql.NullString
		var startDate string
		var updated, created int64
		if err := rows.Scan(&m.Id, &m.RemoteId, &m.ProfileId, &m.Name, &form, &m.Dosage.Amount,
			&m.Dosage.Unit, &times, &startDate, &endDate, &m.DurationDays, &m.Active,
			&importance, &meal, &m.Notes, &m.Deleted, &m.Dirty, &updated, &created); err != nil {
			return nil, err
		}
		if err := fillParsed(&m, form, importance, meal, times, startDate, endDate, updated, created); err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func fillParsed(m *models.Medication, form, importance, meal, times, startDate string,
	endDate sql.NullString, updated, created int64) error {

	m.Form = models.MedicationForm(form)
	m.Importance = models.Importance(importance)
	m.MealRelation = models.MealRelation(meal)
	if err := json.Unmarshal([]byte(times), &m.Times); err != nil {
		return fmt.Errorf("failed to decode schedule: %w", err)
	}
	start, err := models.ParseDate(startDate)
	if err != nil {
		return err
	}
	m.StartDate = start
	if endDate.Valid && endDate.String != "" {
		end, err := models.ParseDate(endDate.String)
		if err != nil {
			return err
		}
		m.EndDate = &end
	}
	m.UpdatedAt = time.UnixMilli(updated).UTC()
	m.CreatedAt = time.UnixMilli(created).UTC()
	return nil
}
