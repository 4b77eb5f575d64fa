// Package repomanager vends repository implementations bound to a DBTX, so
// services can run several repositories inside one transaction.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/ankravcenko/medikeep/internal/dbx"
	"github.com/ankravcenko/medikeep/internal/server/repositories/intakes"
	"github.com/ankravcenko/medikeep/internal/server/repositories/invitations"
	"github.com/ankravcenko/medikeep/internal/server/repositories/medications"
	"github.com/ankravcenko/medikeep/internal/server/repositories/profiles"
	"github.com/ankravcenko/medikeep/internal/server/repositories/refreshtokens"
	"github.com/ankravcenko/medikeep/internal/server/repositories/users"
)

type RepositoryManager interface {
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Profiles(db dbx.DBTX) profiles.Repository
	Medications(db dbx.DBTX) medications.Repository
	Intakes(db dbx.DBTX) intakes.Repository
	Invitations(db dbx.DBTX) invitations.Repository
	RunMigrations(ctx context.Context, db *sql.DB) error
}
