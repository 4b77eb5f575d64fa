package models

import "time"

// IntakeStatus is the lifecycle state of a single occurrence.
type IntakeStatus string

const (
	IntakePlanned IntakeStatus = "planned"
	IntakeTaken   IntakeStatus = "taken"
	IntakeMissed  IntakeStatus = "missed"
	IntakeSkipped IntakeStatus = "skipped"
)

// Terminal reports whether the status is final. A terminal intake is never
// moved back to planned.
func (s IntakeStatus) Terminal() bool {
	return s == IntakeTaken || s == IntakeMissed || s == IntakeSkipped
}

// Intake is one concrete occurrence of taking a medication at a planned
// instant. At most one intake exists per (MedicationId, PlannedAt) pair;
// the generator guarantees this by lookup before insert.
type Intake struct {
	Id           string
	RemoteId     string
	MedicationId string
	ProfileId    string
	PlannedAt    time.Time
	TakenAt      *time.Time
	Status       IntakeStatus
	Deleted      bool
	Dirty        bool
	UpdatedAt    time.Time
}
