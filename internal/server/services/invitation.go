package services

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"fmt"
	"time"

	"github.com/ankravcenko/medikeep/internal/common"
	"github.com/ankravcenko/medikeep/internal/dbx"
	"github.com/ankravcenko/medikeep/internal/server/config"
	"github.com/ankravcenko/medikeep/internal/server/models"
	"github.com/ankravcenko/medikeep/internal/server/repositories/repomanager"
)

// InvitationService implements the sharing workflow: issue a single-use,
// expiring invitation on a profile and redeem it for a membership.
type InvitationService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	notifier    Notifier
	validity    time.Duration
}

func NewInvitationService(db *sql.DB, m repomanager.RepositoryManager, notifier Notifier, cfg *config.Config) *InvitationService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &InvitationService{
		db:          db,
		repomanager: m,
		notifier:    notifier,
		validity:    cfg.InvitationValidityDuration,
	}
}

// Create issues a pending invitation granting role on the profile. The
// owner role can never be granted this way.
func (s *InvitationService) Create(ctx context.Context, actorID, profileID, role string) (*models.Invitation, error) {
	if role == RoleOwner {
		return nil, common.ErrOwnerRoleNotGrantable
	}
	profile, err := s.repomanager.Profiles(s.db).GetByID(ctx, profileID)
	if err != nil {
		return nil, err
	}
	if !roleCanManageMembers(profile.Role(actorID)) {
		return nil, common.ErrPermissionDenied
	}

	token, err := common.MakeRandHexString(16)
	if err != nil {
		return nil, common.ErrorInternal
	}
	inv := &models.Invitation{
		ProfileID: profileID,
		InviterID: actorID,
		Token:     token,
		Role:      role,
		Status:    models.InvitationPending,
		ExpiresAt: time.Now().Add(s.validity),
	}
	return s.repomanager.Invitations(s.db).Create(ctx, inv)
}

// Get returns the invitation so an invitee can preview what they are
// accepting. The secret token is never included.
func (s *InvitationService) Get(ctx context.Context, id string) (*models.Invitation, error) {
	inv, err := s.repomanager.Invitations(s.db).GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	inv.Token = ""
	return inv, nil
}

// Accept redeems the invitation for the actor. The whole redemption is one
// transaction so an invitation can never be consumed twice. Expiry is
// checked here, at redemption time.
func (s *InvitationService) Accept(ctx context.Context, actorID, id, token string) (profileID string, err error) {
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		inv, err := s.repomanager.Invitations(tx).GetByID(ctx, id)
		if err != nil {
			return err
		}
		if subtle.ConstantTimeCompare([]byte(inv.Token), []byte(token)) != 1 {
			return common.ErrTokenMismatch
		}
		switch inv.Status {
		case models.InvitationAccepted:
			return common.ErrAlreadyAccepted
		case models.InvitationCanceled:
			return common.ErrInvitationCanceled
		}
		if time.Now().After(inv.ExpiresAt) {
			return common.ErrInvitationExpired
		}

		if err := s.repomanager.Profiles(tx).AddMember(ctx, inv.ProfileID, actorID, inv.Role); err != nil {
			return fmt.Errorf("failed to add member: %w", err)
		}
		if err := s.repomanager.Invitations(tx).SetStatus(ctx, inv.ID, models.InvitationAccepted); err != nil {
			return err
		}
		profileID = inv.ProfileID
		return nil
	})
	if err != nil {
		return "", err
	}

	// Fan the membership change out so every member's client picks the
	// updated document up without waiting for a snapshot.
	if profile, err := s.repomanager.Profiles(s.db).GetByID(ctx, profileID); err == nil {
		s.notifier.Notify(Event{
			Kind:       EventProfile,
			ScopeID:    profile.ID,
			Recipients: recipientsOf(profile),
			Profile:    profile,
		})
	}
	return profileID, nil
}

// Cancel voids a pending invitation. Only the inviter or the profile owner
// may cancel; accepting afterwards fails.
func (s *InvitationService) Cancel(ctx context.Context, actorID, id string) error {
	inv, err := s.repomanager.Invitations(s.db).GetByID(ctx, id)
	if err != nil {
		return err
	}
	if inv.InviterID != actorID {
		profile, err := s.repomanager.Profiles(s.db).GetByID(ctx, inv.ProfileID)
		if err != nil {
			return err
		}
		if profile.OwnerID != actorID {
			return common.ErrPermissionDenied
		}
	}
	if inv.Status == models.InvitationAccepted {
		return common.ErrAlreadyAccepted
	}
	return s.repomanager.Invitations(s.db).SetStatus(ctx, id, models.InvitationCanceled)
}
