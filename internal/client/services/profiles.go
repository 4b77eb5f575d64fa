package services

import (
	"context"
	"fmt"
	"time"

	"github.com/ankravcenko/medikeep/internal/client/models"
	"github.com/ankravcenko/medikeep/internal/client/repositories/profiles"
	"github.com/ankravcenko/medikeep/internal/client/watch"
	"github.com/ankravcenko/medikeep/internal/common"
	"github.com/google/uuid"
)

// Profiles implements profile management use cases. Every mutation marks
// the row dirty so the next push propagates it.
type Profiles struct {
	repo    profiles.Repository
	watcher *watch.Watcher
	now     func() time.Time
}

func NewProfiles(repo profiles.Repository, watcher *watch.Watcher) *Profiles {
	return &Profiles{repo: repo, watcher: watcher, now: time.Now}
}

// Create makes a new locally-born profile owned by the given identity. It
// has no remote id until the first push assigns one.
func (s *Profiles) Create(ctx context.Context, ownerId, name string) (*models.Profile, error) {
	now := s.now()
	p := &models.Profile{
		Id:        uuid.NewString(),
		Name:      name,
		OwnerId:   ownerId,
		Dirty:     true,
		UpdatedAt: now,
		CreatedAt: now,
	}
	p.NormalizeMembers()
	if err := s.repo.Save(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}
	s.watcher.Publish(watch.Event{Kind: watch.KindProfiles, ProfileId: p.Id})
	return p, nil
}

func (s *Profiles) Rename(ctx context.Context, actorId, profileId, name string) error {
	p, err := s.load(ctx, actorId, profileId, models.Role.CanEditMedications)
	if err != nil {
		return err
	}
	p.Name = name
	p.Dirty = true
	p.UpdatedAt = s.now()
	if err := s.repo.Save(ctx, p); err != nil {
		return fmt.Errorf("failed to rename profile: %w", err)
	}
	s.watcher.Publish(watch.Event{Kind: watch.KindProfiles, ProfileId: p.Id})
	return nil
}

// Delete soft-deletes the profile. Owner only.
func (s *Profiles) Delete(ctx context.Context, actorId, profileId string) error {
	if _, err := s.load(ctx, actorId, profileId, models.Role.CanDeleteProfile); err != nil {
		return err
	}
	if err := s.repo.SoftDelete(ctx, profileId, s.now()); err != nil {
		return err
	}
	s.watcher.Publish(watch.Event{Kind: watch.KindProfiles, ProfileId: profileId})
	return nil
}

// GrantRole sets a member's role locally. The owner role is managed by the
// ownership invariant and can never be granted.
func (s *Profiles) GrantRole(ctx context.Context, actorId, profileId, memberId string, role models.Role) error {
	if role == models.RoleOwner {
		return common.ErrOwnerRoleNotGrantable
	}
	p, err := s.load(ctx, actorId, profileId, models.Role.CanManageMembers)
	if err != nil {
		return err
	}
	p.Members[memberId] = role
	p.Shared = true
	p.Dirty = true
	p.UpdatedAt = s.now()
	if err := s.repo.Save(ctx, p); err != nil {
		return fmt.Errorf("failed to update membership: %w", err)
	}
	s.watcher.Publish(watch.Event{Kind: watch.KindProfiles, ProfileId: p.Id})
	return nil
}

func (s *Profiles) RevokeRole(ctx context.Context, actorId, profileId, memberId string) error {
	p, err := s.load(ctx, actorId, profileId, models.Role.CanManageMembers)
	if err != nil {
		return err
	}
	if memberId == p.OwnerId {
		return common.ErrPermissionDenied
	}
	delete(p.Members, memberId)
	p.Shared = len(p.Members) > 1
	p.Dirty = true
	p.UpdatedAt = s.now()
	if err := s.repo.Save(ctx, p); err != nil {
		return fmt.Errorf("failed to update membership: %w", err)
	}
	s.watcher.Publish(watch.Event{Kind: watch.KindProfiles, ProfileId: p.Id})
	return nil
}

func (s *Profiles) List(ctx context.Context) ([]models.Profile, error) {
	return s.repo.GetAll(ctx)
}

func (s *Profiles) Get(ctx context.Context, id string) (*models.Profile, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Profiles) load(ctx context.Context, actorId, profileId string, can func(models.Role) bool) (*models.Profile, error) {
	p, err := s.repo.GetByID(ctx, profileId)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	role, ok := p.RoleOf(actorId)
	if !ok || !can(role) {
		return nil, common.ErrPermissionDenied
	}
	return p, nil
}
