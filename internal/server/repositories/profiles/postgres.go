package profiles

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

func (r *PostgresRepository) Create(ctx context.Context, p *models.Profile) (*models.Profile, error) {
	members, err := encodeMembers(p.Members)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO profiles (name, owner_id, members, deleted, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	err = r.db.QueryRowContext(ctx, query,
		p.Name, p.OwnerID, members, p.Deleted, p.UpdatedAt).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) Update(ctx context.Context, p *models.Profile) error {
	members, err := encodeMembers(p.Members)
	if err != nil {
		return err
	}

	query := `
		UPDATE profiles
		SET name = $2, members = $3, deleted = $4, updated_at = $5
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query, p.ID, p.Name, members, p.Deleted, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	query := `
		SELECT id, name, owner_id, members, deleted, updated_at, created_at
		FROM profiles
		WHERE id = $1
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) ListVisible(ctx context.Context, userID string) ([]models.Profile, error) {
	query := `
		SELECT id, name, owner_id, members, deleted, updated_at, created_at
		FROM profiles
		WHERE owner_id = $1 OR members ? $2
		ORDER BY created_at
	`
	rows, err := r.db.QueryContext(ctx, query, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []models.Profile
	for rows.Next() {
		p, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) AddMember(ctx context.Context, profileID, userID, role string) error {
	query := `
		UPDATE profiles
		SET members = jsonb_set(members, ARRAY[$2], to_jsonb($3::text)),
		    updated_at = now()
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query, profileID, userID, role)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func (r *PostgresRepository) scanOne(row *sql.Row) (*models.Profile, error) {
	p, err := r.scanRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *PostgresRepository) scanRow(row scannable) (*models.Profile, error) {
	p := &models.Profile{}
	var members []byte
	if err := row.Scan(&p.ID, &p.Name, &p.OwnerID, &members, &p.Deleted, &p.UpdatedAt, &p.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if err := json.Unmarshal(members, &p.Members); err != nil {
		return nil, fmt.Errorf("malformed members document: %w", err)
	}
	return p, nil
}

func encodeMembers(members map[string]string) ([]byte, error) {
	if members == nil {
		members = map[string]string{}
	}
	data, err := json.Marshal(members)
	if err != nil {
		return nil, fmt.Errorf("failed to encode members: %w", err)
	}
	return data, nil
}
