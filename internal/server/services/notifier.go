package services

import "github.com/ankravcenko/medikeep/internal/server/models"

// Event is one document change fanned out to connected clients. Recipients
// is the set of user ids allowed to see the change (the profile's member
// set at publication time).
type Event struct {
	Kind       string
	ScopeID    string
	Recipients []string
	Profile    *models.Profile
	Medication *models.Medication
	Intake     *models.Intake
}

const (
	EventProfile    = "profile"
	EventMedication = "medication"
	EventIntake     = "intake"
)

// Notifier fans change events out to connected clients.
type Notifier interface {
	Notify(e Event)
}

// NopNotifier drops events. Used in tests and before the hub is attached.
type NopNotifier struct{}

func (NopNotifier) Notify(Event) {}

func recipientsOf(p *models.Profile) []string {
	out := make([]string, 0, len(p.Members)+1)
	seen := map[string]bool{}
	for userID := range p.Members {
		if !seen[userID] {
			seen[userID] = true
			out = append(out, userID)
		}
	}
	if !seen[p.OwnerID] {
		out = append(out, p.OwnerID)
	}
	return out
}
