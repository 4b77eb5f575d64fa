package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/ankravcenko/medikeep/internal/client/models"
	"github.com/ankravcenko/medikeep/internal/client/watch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScheduler(intakeRepo *memIntakeRepo, reminders ReminderScheduler, now time.Time) *Scheduler {
	s := NewScheduler(intakeRepo, reminders, watch.NewWatcher(), testLogger(), time.UTC)
	s.now = func() time.Time { return now }
	return s
}

func twiceDaily(profileId string, start models.Date, durationDays int) *models.Medication {
	return &models.Medication{
		Id:           "med-1",
		ProfileId:    profileId,
		Name:         "Amoxicillin",
		Form:         models.FormTablet,
		Dosage:       models.Dosage{Amount: 500, Unit: "mg"},
		Times:        []models.TimeOfDay{{Hour: 8}, {Hour: 20}},
		StartDate:    start,
		DurationDays: durationDays,
		Active:       true,
	}
}

func TestScheduler_GenerateForDate(t *testing.T) {
	ctx := context.Background()
	today := models.NewDate(2026, time.March, 10)
	now := today.At(models.TimeOfDay{Hour: 12}, time.UTC)

	t.Run("creates one occurrence per scheduled time", func(t *testing.T) {
		repo := newMemIntakeRepo()
		s := newTestScheduler(repo, NopReminderScheduler{}, now)
		med := twiceDaily("prof-1", today, 7)

		created, err := s.GenerateForDate(ctx, med, today)
		require.NoError(t, err)
		require.Len(t, created, 2)
		assert.Equal(t, models.IntakePlanned, created[0].Status)
		assert.True(t, created[0].Dirty)
		assert.Equal(t, today.At(models.TimeOfDay{Hour: 8}, time.UTC), created[0].PlannedAt)
	})

	t.Run("is idempotent", func(t *testing.T) {
		repo := newMemIntakeRepo()
		s := newTestScheduler(repo, NopReminderScheduler{}, now)
		med := twiceDaily("prof-1", today, 7)

		first, err := s.GenerateForDate(ctx, med, today)
		require.NoError(t, err)
		require.Len(t, first, 2)

		second, err := s.GenerateForDate(ctx, med, today)
		require.NoError(t, err)
		assert.Empty(t, second)
	})

	t.Run("inactive date yields nothing", func(t *testing.T) {
		repo := newMemIntakeRepo()
		s := newTestScheduler(repo, NopReminderScheduler{}, now)
		med := twiceDaily("prof-1", today, 1)

		created, err := s.GenerateForDate(ctx, med, today.AddDays(1))
		require.NoError(t, err)
		assert.Empty(t, created)
	})

	t.Run("empty schedule yields nothing", func(t *testing.T) {
		repo := newMemIntakeRepo()
		s := newTestScheduler(repo, NopReminderScheduler{}, now)
		med := twiceDaily("prof-1", today, 7)
		med.Times = nil

		created, err := s.GenerateForDate(ctx, med, today)
		require.NoError(t, err)
		assert.Empty(t, created)
	})
}

func TestScheduler_GenerateWindow(t *testing.T) {
	ctx := context.Background()
	today := models.NewDate(2026, time.March, 10)
	now := today.At(models.TimeOfDay{Hour: 12}, time.UTC)

	t.Run("horizon caps a long course", func(t *testing.T) {
		repo := newMemIntakeRepo()
		s := newTestScheduler(repo, NopReminderScheduler{}, now)
		med := twiceDaily("prof-1", today, 7)

		require.NoError(t, s.GenerateWindow(ctx, med))

		// today through today+3, two times a day
		rows, err := repo.ListForMedicationBetween(ctx, med.Id,
			today.At(models.TimeOfDay{}, time.UTC),
			today.AddDays(10).At(models.TimeOfDay{}, time.UTC))
		require.NoError(t, err)
		assert.Len(t, rows, 8)
	})

	t.Run("one day course gets exactly one day", func(t *testing.T) {
		repo := newMemIntakeRepo()
		s := newTestScheduler(repo, NopReminderScheduler{}, now)
		med := twiceDaily("prof-1", today, 1)

		require.NoError(t, s.GenerateWindow(ctx, med))

		rows, err := repo.ListForMedicationBetween(ctx, med.Id,
			today.At(models.TimeOfDay{}, time.UTC),
			today.AddDays(10).At(models.TimeOfDay{}, time.UTC))
		require.NoError(t, err)
		assert.Len(t, rows, 2)
	})

	t.Run("future start shifts the window", func(t *testing.T) {
		repo := newMemIntakeRepo()
		s := newTestScheduler(repo, NopReminderScheduler{}, now)
		med := twiceDaily("prof-1", today.AddDays(2), 7)

		require.NoError(t, s.GenerateWindow(ctx, med))

		// days today+2 and today+3 only
		rows, err := repo.ListForMedicationBetween(ctx, med.Id,
			today.At(models.TimeOfDay{}, time.UTC),
			today.AddDays(10).At(models.TimeOfDay{}, time.UTC))
		require.NoError(t, err)
		assert.Len(t, rows, 4)
	})

	t.Run("reminders only for future occurrences", func(t *testing.T) {
		repo := newMemIntakeRepo()
		reminders := newRecordingReminders(true)
		s := newTestScheduler(repo, reminders, now)
		med := twiceDaily("prof-1", today, 7)

		require.NoError(t, s.GenerateWindow(ctx, med))

		// 8 occurrences total; today's 08:00 is already past at 12:00.
		assert.Len(t, reminders.scheduled, 7)
		for _, at := range reminders.scheduled {
			assert.True(t, at.After(now))
		}
	})

	t.Run("no reminders when disabled", func(t *testing.T) {
		repo := newMemIntakeRepo()
		reminders := newRecordingReminders(false)
		s := newTestScheduler(repo, reminders, now)
		med := twiceDaily("prof-1", today, 7)

		require.NoError(t, s.GenerateWindow(ctx, med))
		assert.Empty(t, reminders.scheduled)
	})
}

func TestScheduler_Mark(t *testing.T) {
	ctx := context.Background()
	today := models.NewDate(2026, time.March, 10)
	now := today.At(models.TimeOfDay{Hour: 12}, time.UTC)

	seed := func(repo *memIntakeRepo) *models.Intake {
		intake := &models.Intake{
			Id:           "int-1",
			MedicationId: "med-1",
			ProfileId:    "prof-1",
			PlannedAt:    today.At(models.TimeOfDay{Hour: 8}, time.UTC),
			Status:       models.IntakePlanned,
		}
		require.NoError(t, repo.Save(ctx, intake))
		return intake
	}

	t.Run("taken records the instant and cancels the reminder", func(t *testing.T) {
		repo := newMemIntakeRepo()
		reminders := newRecordingReminders(true)
		s := newTestScheduler(repo, reminders, now)
		intake := seed(repo)

		takenAt := now.Add(-time.Hour)
		require.NoError(t, s.MarkTaken(ctx, intake.Id, takenAt))

		got, err := repo.GetByID(ctx, intake.Id)
		require.NoError(t, err)
		assert.Equal(t, models.IntakeTaken, got.Status)
		require.NotNil(t, got.TakenAt)
		assert.True(t, got.TakenAt.Equal(takenAt))
		assert.True(t, got.Dirty)
		assert.Contains(t, reminders.canceled, intake.Id)
	})

	t.Run("terminal occurrences stay terminal", func(t *testing.T) {
		repo := newMemIntakeRepo()
		s := newTestScheduler(repo, newRecordingReminders(true), now)
		intake := seed(repo)

		require.NoError(t, s.MarkSkipped(ctx, intake.Id))
		err := s.MarkTaken(ctx, intake.Id, now)
		assert.Error(t, err)

		got, err := repo.GetByID(ctx, intake.Id)
		require.NoError(t, err)
		assert.Equal(t, models.IntakeSkipped, got.Status)
	})
}

func TestScheduler_Adherence(t *testing.T) {
	ctx := context.Background()
	start := models.NewDate(2026, time.March, 10)
	now := start.AddDays(3).At(models.TimeOfDay{Hour: 12}, time.UTC)

	repo := newMemIntakeRepo()
	s := newTestScheduler(repo, NopReminderScheduler{}, now)
	med := twiceDaily("prof-1", start, 7)

	// Three days, six planned slots: four taken, one skipped, one never
	// touched. Missed derives from planned minus taken.
	slot := 0
	for day := 0; day < 3; day++ {
		for _, tod := range med.Times {
			slot++
			intake := &models.Intake{
				Id:           fmt.Sprintf("int-%d", slot),
				MedicationId: med.Id,
				ProfileId:    med.ProfileId,
				PlannedAt:    start.AddDays(day).At(tod, time.UTC),
				Status:       models.IntakePlanned,
			}
			switch {
			case slot <= 4:
				at := intake.PlannedAt.Add(5 * time.Minute)
				intake.Status = models.IntakeTaken
				intake.TakenAt = &at
			case slot == 5:
				intake.Status = models.IntakeSkipped
			}
			require.NoError(t, repo.Save(ctx, intake))
		}
	}

	report, err := s.Adherence(ctx, med, start, start.AddDays(2))
	require.NoError(t, err)
	assert.Equal(t, 6, report.Planned)
	assert.Equal(t, 4, report.Taken)
	assert.Equal(t, 2, report.Missed)
	require.NotNil(t, report.Ratio)
	assert.InDelta(t, 4.0/6.0, *report.Ratio, 1e-9)

	t.Run("nothing planned means nil ratio", func(t *testing.T) {
		before := start.AddDays(-10)
		report, err := s.Adherence(ctx, med, before, before.AddDays(1))
		require.NoError(t, err)
		assert.Equal(t, 0, report.Planned)
		assert.Nil(t, report.Ratio)
		assert.Equal(t, 0, report.Missed)
	})
}
