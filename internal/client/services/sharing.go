package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ankravcenko/medikeep/internal/client/models"
	"github.com/ankravcenko/medikeep/internal/client/remote"
	"github.com/ankravcenko/medikeep/internal/client/repositories/profiles"
	"github.com/ankravcenko/medikeep/internal/client/watch"
	"github.com/ankravcenko/medikeep/internal/common"
	"github.com/ankravcenko/medikeep/internal/logging"
	"github.com/google/uuid"
)

// Sharing implements the invitation workflow. Invitations live only on the
// backend; the local store holds just the shared profiles they resolve to.
type Sharing struct {
	store       remote.Store
	profileRepo profiles.Repository
	watcher     *watch.Watcher
	log         logging.Logger
	now         func() time.Time
}

func NewSharing(store remote.Store, profileRepo profiles.Repository,
	watcher *watch.Watcher, log logging.Logger) *Sharing {
	return &Sharing{
		store:       store,
		profileRepo: profileRepo,
		watcher:     watcher,
		log:         log,
		now:         time.Now,
	}
}

// CreateInvitation issues a single-use invitation granting role on the
// profile. The actor must be able to manage members, and the owner role can
// never travel through an invitation; both checks run before anything is
// sent to the backend. A locally-born profile is pushed first so the backend
// has a document to attach the invitation to.
func (s *Sharing) CreateInvitation(ctx context.Context, actorId, profileId string, role models.Role) (*models.Invitation, error) {
	if role == models.RoleOwner {
		return nil, common.ErrOwnerRoleNotGrantable
	}
	p, err := s.profileRepo.GetByID(ctx, profileId)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	actorRole, ok := p.RoleOf(actorId)
	if !ok || !actorRole.CanManageMembers() {
		return nil, common.ErrPermissionDenied
	}

	if p.RemoteId == "" {
		dto, err := s.store.UpsertProfile(ctx, remote.ProfileToDTO(p))
		if err != nil {
			return nil, fmt.Errorf("failed to push profile before sharing: %w", err)
		}
		if err := s.profileRepo.MarkSynced(ctx, p.Id, dto.Id); err != nil {
			return nil, fmt.Errorf("failed to record pushed profile: %w", err)
		}
		p.RemoteId = dto.Id
	}

	inv, err := s.store.CreateInvitation(ctx, p.RemoteId, role)
	if err != nil {
		return nil, err
	}
	s.log.Info(ctx, "invitation created", "profile", p.Id, "role", string(role))
	return inv, nil
}

// GetInvitation previews an invitation, for showing the invitee what they
// are about to accept.
func (s *Sharing) GetInvitation(ctx context.Context, id string) (*models.Invitation, error) {
	return s.store.GetInvitation(ctx, id)
}

// AcceptInvitation redeems the invitation for the current identity and
// materializes the shared profile locally so it is usable before the next
// sync pass. The backend enforces single use, token match and expiry.
func (s *Sharing) AcceptInvitation(ctx context.Context, id, token string) (*models.Profile, error) {
	profileRemoteId, err := s.store.AcceptInvitation(ctx, id, token)
	if err != nil {
		return nil, err
	}

	dto, err := s.store.GetProfile(ctx, profileRemoteId)
	if err != nil {
		// Accepted but not yet fetched; the observe loop will pick the
		// profile up on its next snapshot.
		s.log.Warn(ctx, "accepted invitation but profile fetch failed", "remote", profileRemoteId, "error", err)
		return nil, err
	}

	local, err := s.profileRepo.GetByRemoteID(ctx, dto.Id)
	if errors.Is(err, common.ErrorNotFound) {
		local = &models.Profile{Id: uuid.NewString()}
	} else if err != nil {
		return nil, fmt.Errorf("failed to resolve shared profile: %w", err)
	}
	dto.ApplyToProfile(local)
	local.Dirty = false
	if err := s.profileRepo.Save(ctx, local); err != nil {
		return nil, fmt.Errorf("failed to store shared profile: %w", err)
	}
	s.watcher.Publish(watch.Event{Kind: watch.KindProfiles, ProfileId: local.Id})
	s.log.Info(ctx, "invitation accepted", "profile", local.Id)
	return local, nil
}

// CancelInvitation voids a pending invitation so its link stops working.
func (s *Sharing) CancelInvitation(ctx context.Context, id string) error {
	return s.store.CancelInvitation(ctx, id)
}
