package models

import "time"

// InvitationStatus tracks the remote-only invitation lifecycle.
type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationCanceled InvitationStatus = "canceled"
	InvitationExpired  InvitationStatus = "expired"
)

// Invitation is a single-use, expiring grant of a role on a profile. It
// lives only in the remote store; the client never persists it locally.
type Invitation struct {
	Id        string
	ProfileId string
	InviterId string
	Token     string
	Role      Role
	Status    InvitationStatus
	CreatedAt time.Time
	ExpiresAt time.Time
}

// ShareLink encodes the invitation into the link handed to the invitee.
func (i *Invitation) ShareLink() string {
	return "medikeep://invite?id=" + i.Id + "&token=" + i.Token
}
