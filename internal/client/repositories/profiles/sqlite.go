package profiles

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

const profileColumns = `id, remote_id, name, owner_id, members, shared, deleted, dirty, updated_at, created_at`

func (r *SQLiteRepository) Save(ctx context.Context, p *models.Profile) error {
	members, err := encodeMembers(p.Members)
	if err != nil {
		return fmt.Errorf("failed to encode members: %w", err)
	}
	query := `INSERT INTO profiles (` + profileColumns + `)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				remote_id = excluded.remote_id,
				name = excluded.name,
				owner_id = excluded.owner_id,
				members = excluded.members,
				shared = excluded.shared,
				deleted = excluded.deleted,
				dirty = excluded.dirty,
				updated_at = excluded.updated_at
	`
	_, err = r.db.ExecContext(ctx, query,
		p.Id, p.RemoteId, p.Name, p.OwnerId, members, p.Shared, p.Deleted, p.Dirty,
		p.UpdatedAt.UnixMilli(), p.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id = ?`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *SQLiteRepository) GetByRemoteID(ctx context.Context, remoteId string) (*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE remote_id = ?`
	return r.scanOne(r.db.QueryRowContext(ctx, query, remoteId))
}

func (r *SQLiteRepository) FindByOwnerAndName(ctx context.Context, ownerId, name string) ([]models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE owner_id = ? AND name = ? AND deleted = 0 ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, query, ownerId, name)
	if err != nil {
		return nil, fmt.Errorf("failed to select profiles: %w", err)
	}
	return r.scanMany(rows)
}

func (r *SQLiteRepository) GetAll(ctx context.Context) ([]models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE deleted = 0 ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select profiles: %w", err)
	}
	return r.scanMany(rows)
}

func (r *SQLiteRepository) GetAllDirty(ctx context.Context) ([]*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE dirty = 1`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select dirty profiles: %w", err)
	}
	all, err := r.scanMany(rows)
	if err != nil {
		return nil, err
	}
	result := make([]*models.Profile, len(all))
	for i := range all {
		result[i] = &all[i]
	}
	return result, nil
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, id, remoteId string) error {
	query := `UPDATE profiles SET dirty = 0, remote_id = ? WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, remoteId, id); err != nil {
		return fmt.Errorf("failed to mark profile synced: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) SoftDelete(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE profiles SET deleted = 1, dirty = 1, updated_at = ? WHERE id = ? AND deleted = 0`
	if _, err := r.db.ExecContext(ctx, query, at.UnixMilli(), id); err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM profiles WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to hard-delete profile: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) scanOne(row *sql.Row) (*models.Profile, error) {
	p := &models.Profile{}
	var members string
	var updated, created int64
	err := row.Scan(&p.Id, &p.RemoteId, &p.Name, &p.OwnerId, &members, &p.Shared,
		&p.Deleted, &p.Dirty, &updated, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("query row scan failed: %w", err)
	}
	p.Members = decodeMembers(members)
	p.UpdatedAt = time.UnixMilli(updated).UTC()
	p.CreatedAt = time.UnixMilli(created).UTC()
	return p, nil
}

func (r *SQLiteRepository) scanMany(rows *sql.Rows) ([]models.Profile, error) {
	defer rows.Close()

	var result []models.Profile
	for rows.Next() {
		var p models.Profile
		var members string
		var updated, created int64
		if err := rows.Scan(&p.Id, &p.RemoteId, &p.Name, &p.OwnerId, &members, &p.Shared,
			&p.Deleted, &p.Dirty, &updated, &created); err != nil {
			return nil, err
		}
		p.Members = decodeMembers(members)
		p.UpdatedAt = time.UnixMilli(updated).UTC()
		p.CreatedAt = time.UnixMilli(created).UTC()
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func encodeMembers(m map[string]models.Role) (string, error) {
	if m == nil {
		m = map[string]models.Role{}
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// decodeMembers decodes the persisted string-keyed map into typed roles.
// Unknown role strings resolve to viewer; a malformed document yields an
// empty map rather than an error.
func decodeMembers(s string) map[string]models.Role {
	var raw map[string]string
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return map[string]models.Role{}
	}
	result := make(map[string]models.Role, len(raw))
	for identity, role := range raw {
		result[identity] = models.ParseRole(role)
	}
	return result
}
