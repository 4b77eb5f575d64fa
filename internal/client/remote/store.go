// Package remote is the client's view of the cloud backend: an HTTP
// document API scoped per profile plus a websocket change feed. It is the
// only package that talks to the network; everything above it works with
// domain rows and DTOs.
package remote

import (
	"context"

	"github.com/ankravcenko/medikeep/internal/client/models"
)

// TokenPair carries the access/refresh tokens issued at login.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	UserId       string `json:"userId"`
}

// EventKind classifies a change-feed event.
type EventKind string

const (
	EventProfile    EventKind = "profile"
	EventMedication EventKind = "medication"
	EventIntake     EventKind = "intake"
)

// ChangeEvent is one document snapshot pushed by the backend. Exactly one
// of the payload fields matching Kind is set.
type ChangeEvent struct {
	Kind       EventKind      `json:"kind"`
	ScopeId    string         `json:"scopeId"`
	Profile    *ProfileDTO    `json:"profile,omitempty"`
	Medication *MedicationDTO `json:"medication,omitempty"`
	Intake     *IntakeDTO     `json:"intake,omitempty"`
}

// Store is the remote document store consumed by the sync engine and the
// sharing service.
type Store interface {
	Close() error

	// Account / session endpoints.
	Register(ctx context.Context, email, password string) error
	Login(ctx context.Context, email, password string) (*TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	// SetTokens installs tokens restored from local storage.
	SetTokens(access, refresh string)

	// Document upserts return the document with its backend-assigned id.
	UpsertProfile(ctx context.Context, dto ProfileDTO) (*ProfileDTO, error)
	ListProfiles(ctx context.Context) ([]ProfileDTO, error)
	GetProfile(ctx context.Context, remoteId string) (*ProfileDTO, error)

	UpsertMedication(ctx context.Context, profileRemoteId string, dto MedicationDTO) (*MedicationDTO, error)
	ListMedications(ctx context.Context, profileRemoteId string) ([]MedicationDTO, error)

	UpsertIntake(ctx context.Context, profileRemoteId string, dto IntakeDTO) (*IntakeDTO, error)
	ListIntakes(ctx context.Context, profileRemoteId string) ([]IntakeDTO, error)

	// Invitation sub-API.
	CreateInvitation(ctx context.Context, profileRemoteId string, role models.Role) (*models.Invitation, error)
	GetInvitation(ctx context.Context, id string) (*models.Invitation, error)
	AcceptInvitation(ctx context.Context, id, token string) (profileRemoteId string, err error)
	CancelInvitation(ctx context.Context, id string) error

	// Observe opens the change feed for every profile visible to the
	// current identity. The returned channel closes when the connection
	// drops or ctx is cancelled; the caller owns the retry policy.
	Observe(ctx context.Context) (<-chan ChangeEvent, error)
}
