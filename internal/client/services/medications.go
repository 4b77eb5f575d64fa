package services

import (
	"context"
	"fmt"
	"time"

	"github.com/ankravcenko/medikeep/internal/client/models"
	"github.com/ankravcenko/medikeep/internal/client/repositories/intakes"
	"github.com/ankravcenko/medikeep/internal/client/repositories/medications"
	"github.com/ankravcenko/medikeep/internal/client/repositories/profiles"
	"github.com/ankravcenko/medikeep/internal/client/watch"
	"github.com/ankravcenko/medikeep/internal/common"
	"github.com/google/uuid"
)

// MedicationInput carries the fields of the add/edit medication flow.
type MedicationInput struct {
	Name         string
	Form         models.MedicationForm
	Dosage       models.Dosage
	Times        []models.TimeOfDay
	StartDate    models.Date
	EndDate      *models.Date
	DurationDays int
	Importance   models.Importance
	MealRelation models.MealRelation
	Notes        string
}

// Medications implements the medication use cases, gating each mutation on
// the actor's role for the owning profile.
type Medications struct {
	medRepo     medications.Repository
	intakeRepo  intakes.Repository
	profileRepo profiles.Repository
	scheduler   *Scheduler
	reminders   ReminderScheduler
	watcher     *watch.Watcher
	now         func() time.Time
}

func NewMedications(medRepo medications.Repository, intakeRepo intakes.Repository,
	profileRepo profiles.Repository, scheduler *Scheduler, reminders ReminderScheduler,
	watcher *watch.Watcher) *Medications {
	return &Medications{
		medRepo:     medRepo,
		intakeRepo:  intakeRepo,
		profileRepo: profileRepo,
		scheduler:   scheduler,
		reminders:   reminders,
		watcher:     watcher,
		now:         time.Now,
	}
}

// Add creates a medication and immediately populates its near-term
// occurrences and reminders.
func (s *Medications) Add(ctx context.Context, actorId, profileId string, in MedicationInput) (*models.Medication, error) {
	if err := s.requireRole(ctx, actorId, profileId, models.Role.CanEditMedications); err != nil {
		return nil, err
	}
	now := s.now()
	med := &models.Medication{
		Id:           uuid.NewString(),
		ProfileId:    profileId,
		Name:         in.Name,
		Form:         in.Form,
		Dosage:       in.Dosage,
		Times:        in.Times,
		StartDate:    in.StartDate,
		EndDate:      in.EndDate,
		DurationDays: in.DurationDays,
		Active:       true,
		Importance:   in.Importance,
		MealRelation: in.MealRelation,
		Notes:        in.Notes,
		Dirty:        true,
		UpdatedAt:    now,
		CreatedAt:    now,
	}
	if err := s.medRepo.Save(ctx, med); err != nil {
		return nil, fmt.Errorf("failed to save medication: %w", err)
	}
	s.watcher.Publish(watch.Event{Kind: watch.KindMedications, ProfileId: profileId})

	if err := s.scheduler.GenerateWindow(ctx, med); err != nil {
		return nil, fmt.Errorf("failed to generate occurrences: %w", err)
	}
	return med, nil
}

// Update edits a medication in place. Reminders are rebuilt because the
// schedule or meal instruction may have changed.
func (s *Medications) Update(ctx context.Context, actorId, medicationId string, in MedicationInput) error {
	med, err := s.medRepo.GetByID(ctx, medicationId)
	if err != nil {
		return fmt.Errorf("failed to load medication: %w", err)
	}
	if err := s.requireRole(ctx, actorId, med.ProfileId, models.Role.CanEditMedications); err != nil {
		return err
	}
	med.Name = in.Name
	med.Form = in.Form
	med.Dosage = in.Dosage
	med.Times = in.Times
	med.StartDate = in.StartDate
	med.EndDate = in.EndDate
	med.DurationDays = in.DurationDays
	med.Importance = in.Importance
	med.MealRelation = in.MealRelation
	med.Notes = in.Notes
	med.Dirty = true
	med.UpdatedAt = s.now()
	if err := s.medRepo.Save(ctx, med); err != nil {
		return fmt.Errorf("failed to save medication: %w", err)
	}
	s.watcher.Publish(watch.Event{Kind: watch.KindMedications, ProfileId: med.ProfileId})

	s.reminders.CancelAllForMedication(med.Id)
	if err := s.scheduler.GenerateWindow(ctx, med); err != nil {
		return fmt.Errorf("failed to regenerate occurrences: %w", err)
	}
	return nil
}

// SetActive pauses or resumes a medication without touching its history.
func (s *Medications) SetActive(ctx context.Context, actorId, medicationId string, active bool) error {
	med, err := s.medRepo.GetByID(ctx, medicationId)
	if err != nil {
		return fmt.Errorf("failed to load medication: %w", err)
	}
	if err := s.requireRole(ctx, actorId, med.ProfileId, models.Role.CanEditMedications); err != nil {
		return err
	}
	med.Active = active
	med.Dirty = true
	med.UpdatedAt = s.now()
	if err := s.medRepo.Save(ctx, med); err != nil {
		return fmt.Errorf("failed to save medication: %w", err)
	}
	if !active {
		s.reminders.CancelAllForMedication(med.Id)
	}
	s.watcher.Publish(watch.Event{Kind: watch.KindMedications, ProfileId: med.ProfileId})
	return nil
}

// Delete soft-deletes the medication and its occurrences, preserving intake
// history for sync, and cancels all pending reminders.
func (s *Medications) Delete(ctx context.Context, actorId, medicationId string) error {
	med, err := s.medRepo.GetByID(ctx, medicationId)
	if err != nil {
		return fmt.Errorf("failed to load medication: %w", err)
	}
	if err := s.requireRole(ctx, actorId, med.ProfileId, models.Role.CanEditMedications); err != nil {
		return err
	}
	now := s.now()
	if err := s.medRepo.SoftDelete(ctx, medicationId, now); err != nil {
		return err
	}
	if err := s.intakeRepo.SoftDeleteByMedication(ctx, medicationId, now); err != nil {
		return err
	}
	s.reminders.CancelAllForMedication(medicationId)
	s.watcher.Publish(watch.Event{Kind: watch.KindMedications, ProfileId: med.ProfileId})
	s.watcher.Publish(watch.Event{Kind: watch.KindIntakes, ProfileId: med.ProfileId})
	return nil
}

func (s *Medications) ListByProfile(ctx context.Context, profileId string) ([]models.Medication, error) {
	return s.medRepo.GetAllByProfile(ctx, profileId)
}

// MarkTaken records an intake as taken, gated on the actor's marking
// capability.
func (s *Medications) MarkTaken(ctx context.Context, actorId, intakeId string, takenAt time.Time) error {
	if err := s.requireIntakeRole(ctx, actorId, intakeId); err != nil {
		return err
	}
	return s.scheduler.MarkTaken(ctx, intakeId, takenAt)
}

func (s *Medications) MarkMissed(ctx context.Context, actorId, intakeId string) error {
	if err := s.requireIntakeRole(ctx, actorId, intakeId); err != nil {
		return err
	}
	return s.scheduler.MarkMissed(ctx, intakeId)
}

func (s *Medications) MarkSkipped(ctx context.Context, actorId, intakeId string) error {
	if err := s.requireIntakeRole(ctx, actorId, intakeId); err != nil {
		return err
	}
	return s.scheduler.MarkSkipped(ctx, intakeId)
}

func (s *Medications) requireIntakeRole(ctx context.Context, actorId, intakeId string) error {
	intake, err := s.intakeRepo.GetByID(ctx, intakeId)
	if err != nil {
		return fmt.Errorf("failed to load occurrence: %w", err)
	}
	return s.requireRole(ctx, actorId, intake.ProfileId, models.Role.CanMarkIntakes)
}

func (s *Medications) requireRole(ctx context.Context, actorId, profileId string, can func(models.Role) bool) error {
	p, err := s.profileRepo.GetByID(ctx, profileId)
	if err != nil {
		return fmt.Errorf("failed to load profile: %w", err)
	}
	role, ok := p.RoleOf(actorId)
	if !ok || !can(role) {
		return common.ErrPermissionDenied
	}
	return nil
}
