package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ankravcenko/medikeep/internal/common"
	"github.com/ankravcenko/medikeep/internal/server/models"
	"github.com/ankravcenko/medikeep/internal/server/repositories/repomanager"
)

// Role strings shared with the client. Unknown roles act as viewer.
const (
	RoleOwner     = "owner"
	RoleCaregiver = "caregiver_editor"
	RolePatient   = "patient_mark_only"
	RoleViewer    = "viewer"
)

func roleCanEdit(role string) bool {
	return role == RoleOwner || role == RoleCaregiver
}

func roleCanMark(role string) bool {
	return roleCanEdit(role) || role == RolePatient
}

func roleCanManageMembers(role string) bool {
	return role == RoleOwner
}

// DocumentService is the authoritative store behind the sync protocol.
// Writes are last-writer-wins on UpdatedAt: a stale upsert returns the
// stored document unchanged. Every accepted write is fanned out through
// the Notifier to the profile's members.
type DocumentService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	notifier    Notifier
}

func NewDocumentService(db *sql.DB, m repomanager.RepositoryManager, notifier Notifier) *DocumentService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &DocumentService{db: db, repomanager: m, notifier: notifier}
}

// UpsertProfile creates or updates a profile document. A new document is
// owned by the actor regardless of the submitted owner field.
func (s *DocumentService) UpsertProfile(ctx context.Context, actorID string, in *models.Profile) (*models.Profile, error) {
	repo := s.repomanager.Profiles(s.db)

	if in.UpdatedAt.IsZero() {
		in.UpdatedAt = time.Now().UTC()
	}

	if in.ID == "" {
		in.OwnerID = actorID
		if in.Members == nil {
			in.Members = map[string]string{}
		}
		in.Members[actorID] = RoleOwner
		created, err := repo.Create(ctx, in)
		if err != nil {
			return nil, err
		}
		s.notifyProfile(created)
		return created, nil
	}

	stored, err := repo.GetByID(ctx, in.ID)
	if err != nil {
		return nil, err
	}
	role := stored.Role(actorID)
	if !roleCanEdit(role) {
		return nil, common.ErrPermissionDenied
	}
	if in.Deleted && role != RoleOwner {
		return nil, common.ErrPermissionDenied
	}
	if in.UpdatedAt.Before(stored.UpdatedAt) {
		return stored, nil
	}

	// Ownership never travels through an upsert.
	in.OwnerID = stored.OwnerID
	if in.Members == nil {
		in.Members = stored.Members
	}
	in.Members[stored.OwnerID] = RoleOwner
	if err := repo.Update(ctx, in); err != nil {
		return nil, err
	}
	s.notifyProfile(in)
	return in, nil
}

func (s *DocumentService) ListProfiles(ctx context.Context, actorID string) ([]models.Profile, error) {
	return s.repomanager.Profiles(s.db).ListVisible(ctx, actorID)
}

func (s *DocumentService) GetProfile(ctx context.Context, actorID, profileID string) (*models.Profile, error) {
	p, err := s.repomanager.Profiles(s.db).GetByID(ctx, profileID)
	if err != nil {
		return nil, err
	}
	if p.Role(actorID) == "" {
		return nil, common.ErrPermissionDenied
	}
	return p, nil
}

// UpsertMedication creates or updates a medication document under the
// given profile. The actor needs edit capability on the profile.
func (s *DocumentService) UpsertMedication(ctx context.Context, actorID, profileID string, in *models.Medication) (*models.Medication, error) {
	profile, err := s.requireRole(ctx, actorID, profileID, roleCanEdit)
	if err != nil {
		return nil, err
	}
	in.ProfileID = profileID
	if in.UpdatedAt.IsZero() {
		in.UpdatedAt = time.Now().UTC()
	}

	repo := s.repomanager.Medications(s.db)
	if in.ID == "" {
		created, err := repo.Create(ctx, in)
		if err != nil {
			return nil, err
		}
		s.notifyMedication(profile, created)
		return created, nil
	}

	stored, err := repo.GetByID(ctx, in.ID)
	if err != nil {
		return nil, err
	}
	if stored.ProfileID != profileID {
		return nil, common.ErrPermissionDenied
	}
	if in.UpdatedAt.Before(stored.UpdatedAt) {
		return stored, nil
	}
	in.CreatedAt = stored.CreatedAt
	if err := repo.Update(ctx, in); err != nil {
		return nil, err
	}
	s.notifyMedication(profile, in)
	return in, nil
}

func (s *DocumentService) ListMedications(ctx context.Context, actorID, profileID string) ([]models.Medication, error) {
	if _, err := s.requireRole(ctx, actorID, profileID, anyMember); err != nil {
		return nil, err
	}
	return s.repomanager.Medications(s.db).ListByProfile(ctx, profileID)
}

// UpsertIntake creates or updates an intake occurrence. Marking capability
// is enough, so patients can record their own intakes.
func (s *DocumentService) UpsertIntake(ctx context.Context, actorID, profileID string, in *models.Intake) (*models.Intake, error) {
	profile, err := s.requireRole(ctx, actorID, profileID, roleCanMark)
	if err != nil {
		return nil, err
	}
	in.ProfileID = profileID
	if in.UpdatedAt.IsZero() {
		in.UpdatedAt = time.Now().UTC()
	}

	repo := s.repomanager.Intakes(s.db)
	if in.ID == "" {
		created, err := repo.Create(ctx, in)
		if err != nil {
			return nil, err
		}
		s.notifyIntake(profile, created)
		return created, nil
	}

	stored, err := repo.GetByID(ctx, in.ID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("unknown intake %s: %w", in.ID, err)
		}
		return nil, err
	}
	if stored.ProfileID != profileID {
		return nil, common.ErrPermissionDenied
	}
	if in.UpdatedAt.Before(stored.UpdatedAt) {
		return stored, nil
	}
	in.MedicationID = stored.MedicationID
	if err := repo.Update(ctx, in); err != nil {
		return nil, err
	}
	s.notifyIntake(profile, in)
	return in, nil
}

func (s *DocumentService) ListIntakes(ctx context.Context, actorID, profileID string) ([]models.Intake, error) {
	if _, err := s.requireRole(ctx, actorID, profileID, anyMember); err != nil {
		return nil, err
	}
	return s.repomanager.Intakes(s.db).ListByProfile(ctx, profileID)
}

func anyMember(role string) bool { return role != "" }

func (s *DocumentService) requireRole(ctx context.Context, actorID, profileID string, can func(string) bool) (*models.Profile, error) {
	p, err := s.repomanager.Profiles(s.db).GetByID(ctx, profileID)
	if err != nil {
		return nil, err
	}
	if !can(p.Role(actorID)) {
		return nil, common.ErrPermissionDenied
	}
	return p, nil
}

func (s *DocumentService) notifyProfile(p *models.Profile) {
	s.notifier.Notify(Event{
		Kind:       EventProfile,
		ScopeID:    p.ID,
		Recipients: recipientsOf(p),
		Profile:    p,
	})
}

func (s *DocumentService) notifyMedication(p *models.Profile, m *models.Medication) {
	s.notifier.Notify(Event{
		Kind:       EventMedication,
		ScopeID:    p.ID,
		Recipients: recipientsOf(p),
		Medication: m,
	})
}

func (s *DocumentService) notifyIntake(p *models.Profile, i *models.Intake) {
	s.notifier.Notify(Event{
		Kind:       EventIntake,
		ScopeID:    p.ID,
		Recipients: recipientsOf(p),
		Intake:     i,
	})
}
