package models

import "time"

const (
	InvitationPending  = "pending"
	InvitationAccepted = "accepted"
	InvitationCanceled = "canceled"
)

// Invitation is a single-use grant of a role on a profile. Expiry is
// checked at accept time; rows are never rewritten to an expired status.
type Invitation struct {
	ID        string
	ProfileID string
	InviterID string
	Token     string
	Role      string
	Status    string
	CreatedAt time.Time
	ExpiresAt time.Time
}
