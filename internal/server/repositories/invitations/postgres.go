package invitations

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

func (r *PostgresRepository) Create(ctx context.Context, inv *models.Invitation) (*models.Invitation, error) {
	query := `
		INSERT INTO invitations (profile_id, inviter_id, token, role, status, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		inv.ProfileID, inv.InviterID, inv.Token, inv.Role, inv.Status, inv.ExpiresAt).Scan(&inv.ID, &inv.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return inv, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Invitation, error) {
	query := `
		SELECT id, profile_id, inviter_id, token, role, status, created_at, expires_at
		FROM invitations
		WHERE id = $1
	`
	inv := &models.Invitation{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&inv.ID, &inv.ProfileID, &inv.InviterID, &inv.Token, &inv.Role,
		&inv.Status, &inv.CreatedAt, &inv.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrInvitationNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return inv, nil
}

func (r *PostgresRepository) SetStatus(ctx context.Context, id, status string) error {
	query := `
		UPDATE invitations
		SET status = $2
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.ErrInvitationNotFound
	}
	return nil
}
