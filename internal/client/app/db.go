package app

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ankravcenko/medikeep/internal/client/migrations"
	"github.com/ankravcenko/medikeep/internal/client/repositories/intakes"
	"github.com/ankravcenko/medikeep/internal/client/repositories/medications"
	"github.com/ankravcenko/medikeep/internal/client/repositories/metadata"
	"github.com/ankravcenko/medikeep/internal/client/repositories/profiles"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite"
)

// Repositories bundles the on-device storage handles.
type Repositories struct {
	Metadata    metadata.Repository
	Profiles    profiles.Repository
	Medications medications.Repository
	Intakes     intakes.Repository
	DB          *sql.DB
}

func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// InitDatabase opens the sqlite file, applies pending migrations and returns
// the repository set backed by it.
func InitDatabase(ctx context.Context, dsn string) (*Repositories, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	if err := RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &Repositories{
		Metadata:    metadata.NewSQLiteRepository(db),
		Profiles:    profiles.NewSQLiteRepository(db),
		Medications: medications.NewSQLiteRepository(db),
		Intakes:     intakes.NewSQLiteRepository(db),
		DB:          db,
	}, nil
}
