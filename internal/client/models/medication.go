package models

import "time"

// MedicationForm classifies the physical form of a medication.
type MedicationForm string

const (
	FormTablet    MedicationForm = "tablet"
	FormCapsule   MedicationForm = "capsule"
	FormLiquid    MedicationForm = "liquid"
	FormInjection MedicationForm = "injection"
	FormDrops     MedicationForm = "drops"
	FormOther     MedicationForm = "other"
)

// Importance is the three-tier priority of a medication.
type Importance string

const (
	ImportanceLow    Importance = "low"
	ImportanceNormal Importance = "normal"
	ImportanceHigh   Importance = "high"
)

// MealRelation is the instruction relating an intake to meals.
type MealRelation string

const (
	MealBefore MealRelation = "before_meal"
	MealWith   MealRelation = "with_meal"
	MealAfter  MealRelation = "after_meal"
	MealAny    MealRelation = "no_relation"
)

// Dosage is a single dose: amount plus unit ("2", "ml").
type Dosage struct {
	Amount float64
	Unit   string
}

// Medication is a drug regimen owned by exactly one profile. The schedule
// is the set of times of day at which a dose is planned; StartDate together
// with either DurationDays or EndDate bounds the treatment.
type Medication struct {
	Id           string
	RemoteId     string
	ProfileId    string
	Name         string
	Form         MedicationForm
	Dosage       Dosage
	Times        []TimeOfDay
	StartDate    Date
	EndDate      *Date
	DurationDays int
	Active       bool
	Importance   Importance
	MealRelation MealRelation
	Notes        string
	Deleted      bool
	Dirty        bool
	UpdatedAt    time.Time
	CreatedAt    time.Time
}

// EffectiveEndDate resolves the end of treatment. A positive DurationDays
// takes precedence over an explicit EndDate; the result is
// StartDate + (DurationDays-1), so a one-day course ends on its start date.
// Nil means the medication is indefinite.
func (m *Medication) EffectiveEndDate() *Date {
	if m.DurationDays > 0 {
		end := m.StartDate.AddDays(m.DurationDays - 1)
		return &end
	}
	return m.EndDate
}

// IsActiveOnDate reports whether a dose is due on the given calendar date.
func (m *Medication) IsActiveOnDate(d Date) bool {
	if !m.Active || d.Before(m.StartDate) {
		return false
	}
	if end := m.EffectiveEndDate(); end != nil && d.After(*end) {
		return false
	}
	return true
}

// RemainingDays returns how many treatment days are left counting today,
// or -1 for indefinite medications. Expired medications report 0.
func (m *Medication) RemainingDays(today Date) int {
	end := m.EffectiveEndDate()
	if end == nil {
		return -1
	}
	if today.After(*end) {
		return 0
	}
	from := today
	if from.Before(m.StartDate) {
		from = m.StartDate
	}
	return from.DaysUntil(*end) + 1
}

// IsExpired reports whether the treatment period ended before today.
func (m *Medication) IsExpired(today Date) bool {
	end := m.EffectiveEndDate()
	return end != nil && today.After(*end)
}
