// Package services holds the client use cases: profile and medication
// management, intake generation and adherence, sharing, and the sync
// engine. Services sit between the UI layer and the repositories; every
// local mutation marks the row dirty and stamps UpdatedAt, which is the
// contract the sync engine's last-writer-wins rule depends on.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ankravcenko/medikeep/internal/client/models"
	"github.com/ankravcenko/medikeep/internal/client/repositories/intakes"
	"github.com/ankravcenko/medikeep/internal/client/watch"
	"github.com/ankravcenko/medikeep/internal/common"
	"github.com/ankravcenko/medikeep/internal/logging"
	"github.com/google/uuid"
)

// generationHorizonDays bounds forward generation for indefinite
// medications so reminder scheduling never grows without bound.
const generationHorizonDays = 3

// AdherenceReport summarizes planned-versus-taken over a date range.
// Missed is derived arithmetically from the planned/taken counts, not from
// scanning MISSED statuses. Ratio is nil when nothing was planned, which
// is distinct from a 0% ratio.
type AdherenceReport struct {
	Planned int
	Taken   int
	Missed  int
	Ratio   *float64
}

// Scheduler expands medication schedules into concrete intake occurrences,
// wires reminders, records taken/missed marks and computes adherence.
type Scheduler struct {
	intakeRepo intakes.Repository
	reminders  ReminderScheduler
	watcher    *watch.Watcher
	log        logging.Logger
	loc        *time.Location
	now        func() time.Time
}

func NewScheduler(intakeRepo intakes.Repository, reminders ReminderScheduler,
	watcher *watch.Watcher, log logging.Logger, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{
		intakeRepo: intakeRepo,
		reminders:  reminders,
		watcher:    watcher,
		log:        log,
		loc:        loc,
		now:        time.Now,
	}
}

// GenerateForDate creates the planned occurrences of one medication for one
// calendar date. Occurrences that already exist are left untouched, so
// calling this twice produces no duplicates. An empty schedule yields zero
// occurrences, not an error.
func (s *Scheduler) GenerateForDate(ctx context.Context, med *models.Medication, date models.Date) ([]models.Intake, error) {
	if !med.IsActiveOnDate(date) {
		return nil, nil
	}

	var created []models.Intake
	for _, tod := range med.Times {
		plannedAt := date.At(tod, s.loc)

		_, err := s.intakeRepo.GetByMedicationAndPlanned(ctx, med.Id, plannedAt)
		if err == nil {
			continue
		}
		if !errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("occurrence lookup failed: %w", err)
		}

		intake := models.Intake{
			Id:           uuid.NewString(),
			MedicationId: med.Id,
			ProfileId:    med.ProfileId,
			PlannedAt:    plannedAt,
			Status:       models.IntakePlanned,
			Dirty:        true,
			UpdatedAt:    s.now(),
		}
		if err := s.intakeRepo.Save(ctx, &intake); err != nil {
			return nil, fmt.Errorf("failed to save occurrence: %w", err)
		}
		created = append(created, intake)
	}
	if len(created) > 0 {
		s.watcher.Publish(watch.Event{Kind: watch.KindIntakes, ProfileId: med.ProfileId})
	}
	return created, nil
}

// GenerateWindow walks each day from max(today, start date) to the window
// end — the effective end date or a short fixed horizon, whichever comes
// first — creating missing occurrences. New strictly-future occurrences get
// a reminder; past ones are created for historical completeness but never
// fire.
func (s *Scheduler) GenerateWindow(ctx context.Context, med *models.Medication) error {
	today := models.DateOf(s.now().In(s.loc))

	from := today
	if from.Before(med.StartDate) {
		from = med.StartDate
	}
	to := today.AddDays(generationHorizonDays)
	if end := med.EffectiveEndDate(); end != nil && end.Before(to) {
		to = *end
	}

	for day := from; !day.After(to); day = day.AddDays(1) {
		created, err := s.GenerateForDate(ctx, med, day)
		if err != nil {
			return err
		}
		for _, intake := range created {
			s.scheduleReminderIfFuture(med, intake)
		}
	}
	return nil
}

func (s *Scheduler) scheduleReminderIfFuture(med *models.Medication, intake models.Intake) {
	if !s.reminders.RemindersEnabled() {
		return
	}
	if !intake.PlannedAt.After(s.now()) {
		return
	}
	s.reminders.ScheduleReminder(intake.Id, med.Name, string(med.MealRelation), intake.PlannedAt)
}

// MarkTaken transitions a planned occurrence to taken and records the
// actual instant.
func (s *Scheduler) MarkTaken(ctx context.Context, intakeId string, takenAt time.Time) error {
	return s.mark(ctx, intakeId, models.IntakeTaken, &takenAt)
}

func (s *Scheduler) MarkMissed(ctx context.Context, intakeId string) error {
	return s.mark(ctx, intakeId, models.IntakeMissed, nil)
}

func (s *Scheduler) MarkSkipped(ctx context.Context, intakeId string) error {
	return s.mark(ctx, intakeId, models.IntakeSkipped, nil)
}

func (s *Scheduler) mark(ctx context.Context, intakeId string, status models.IntakeStatus, takenAt *time.Time) error {
	intake, err := s.intakeRepo.GetByID(ctx, intakeId)
	if err != nil {
		return fmt.Errorf("failed to load occurrence: %w", err)
	}
	if intake.Status.Terminal() {
		return fmt.Errorf("occurrence %s already %s: %w", intakeId, intake.Status, common.ErrorInternal)
	}
	intake.Status = status
	intake.TakenAt = takenAt
	intake.Dirty = true
	intake.UpdatedAt = s.now()
	if err := s.intakeRepo.Save(ctx, intake); err != nil {
		return fmt.Errorf("failed to save occurrence: %w", err)
	}
	s.reminders.CancelReminder(intake.Id)
	s.watcher.Publish(watch.Event{Kind: watch.KindIntakes, ProfileId: intake.ProfileId})
	return nil
}

// Adherence computes the planned/taken/missed counts for a medication over
// an inclusive date range.
func (s *Scheduler) Adherence(ctx context.Context, med *models.Medication, from, to models.Date) (*AdherenceReport, error) {
	planned := 0
	for day := from; !day.After(to); day = day.AddDays(1) {
		if med.IsActiveOnDate(day) {
			planned += len(med.Times)
		}
	}

	rangeStart := from.At(models.TimeOfDay{}, s.loc)
	rangeEnd := to.AddDays(1).At(models.TimeOfDay{}, s.loc)
	rows, err := s.intakeRepo.ListForMedicationBetween(ctx, med.Id, rangeStart, rangeEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to list occurrences: %w", err)
	}
	taken := 0
	for _, row := range rows {
		if row.Status == models.IntakeTaken {
			taken++
		}
	}

	report := &AdherenceReport{Planned: planned, Taken: taken}
	report.Missed = planned - taken
	if report.Missed < 0 {
		report.Missed = 0
	}
	if planned > 0 {
		ratio := float64(taken) / float64(planned)
		report.Ratio = &ratio
	}
	return report, nil
}
