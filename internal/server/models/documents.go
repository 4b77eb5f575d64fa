package models

import "time"

// Profile is the authoritative copy of a tracked person. Members maps a
// user id to a role string; the owner always appears with the owner role.
type Profile struct {
	ID        string
	Name      string
	OwnerID   string
	Members   map[string]string
	Deleted   bool
	UpdatedAt time.Time
	CreatedAt time.Time
}

// Role returns the member's role, or empty when the user is not a member.
func (p *Profile) Role(userID string) string {
	if userID == p.OwnerID {
		return "owner"
	}
	return p.Members[userID]
}

// Medication mirrors the client document. Dates travel as ISO day strings
// and the times-of-day list as "HH:MM" strings; the server stores them
// opaquely and only orders by UpdatedAt.
type Medication struct {
	ID           string
	ProfileID    string
	Name         string
	Form         string
	DoseAmount   float64
	DoseUnit     string
	Times        []string
	StartDate    string
	EndDate      string
	DurationDays int
	Active       bool
	Importance   string
	MealRelation string
	Notes        string
	Deleted      bool
	UpdatedAt    time.Time
	CreatedAt    time.Time
}

type Intake struct {
	ID           string
	MedicationID string
	ProfileID    string
	PlannedAt    time.Time
	TakenAt      *time.Time
	Status       string
	Deleted      bool
	UpdatedAt    time.Time
}
