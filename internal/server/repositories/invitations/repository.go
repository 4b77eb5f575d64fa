// Package invitations provides persistence for sharing invitations.
package invitations

import (
	"context"

	"github.com/ankravcenko/medikeep/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, inv *models.Invitation) (*models.Invitation, error)

	// GetByID resolves an invitation, common.ErrInvitationNotFound when
	// absent.
	GetByID(ctx context.Context, id string) (*models.Invitation, error)

	// SetStatus transitions the invitation's lifecycle status.
	SetStatus(ctx context.Context, id, status string) error
}
