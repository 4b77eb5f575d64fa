package services

import "time"

// ReminderScheduler is the platform notification collaborator. The engine
// only ever schedules strictly-future occurrences, and only while
// RemindersEnabled reports true.
type ReminderScheduler interface {
	ScheduleReminder(occurrenceId, medicationName, mealRelationText string, firingAt time.Time)
	CancelReminder(occurrenceId string)
	CancelAllForMedication(medicationId string)
	RemindersEnabled() bool
}

// NopReminderScheduler is used when the host platform provides no reminder
// delivery (headless client, tests).
type NopReminderScheduler struct{}

func (NopReminderScheduler) ScheduleReminder(string, string, string, time.Time) {}
func (NopReminderScheduler) CancelReminder(string)                              {}
func (NopReminderScheduler) CancelAllForMedication(string)                      {}
func (NopReminderScheduler) RemindersEnabled() bool                             { return false }
