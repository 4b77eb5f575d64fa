package httpapi

import (
	"time"

	"github.com/ankravcenko/medikeep/internal/server/models"
	"github.com/ankravcenko/medikeep/internal/server/services"
)

// Wire shapes for the document API. Timestamps travel as unix milliseconds
// so last-writer-wins comparisons survive the round trip byte-for-byte.

type profileDTO struct {
	Id        string            `json:"id"`
	Name      string            `json:"name"`
	OwnerId   string            `json:"ownerId"`
	Members   map[string]string `json:"members"`
	Deleted   bool              `json:"deleted"`
	UpdatedAt int64             `json:"updatedAt"`
	CreatedAt int64             `json:"createdAt"`
}

type medicationDTO struct {
	Id           string   `json:"id"`
	ProfileId    string   `json:"profileId"`
	Name         string   `json:"name"`
	Form         string   `json:"form"`
	DoseAmount   float64  `json:"doseAmount"`
	DoseUnit     string   `json:"doseUnit"`
	Times        []string `json:"times"`
	StartDate    string   `json:"startDate"`
	EndDate      string   `json:"endDate,omitempty"`
	DurationDays int      `json:"durationDays"`
	Active       bool     `json:"active"`
	Importance   string   `json:"importance"`
	MealRelation string   `json:"mealRelation"`
	Notes        string   `json:"notes"`
	Deleted      bool     `json:"deleted"`
	UpdatedAt    int64    `json:"updatedAt"`
	CreatedAt    int64    `json:"createdAt"`
}

type intakeDTO struct {
	Id           string `json:"id"`
	MedicationId string `json:"medicationId"`
	ProfileId    string `json:"profileId"`
	PlannedAt    int64  `json:"plannedAt"`
	TakenAt      int64  `json:"takenAt,omitempty"`
	Status       string `json:"status"`
	Deleted      bool   `json:"deleted"`
	UpdatedAt    int64  `json:"updatedAt"`
}

type invitationDTO struct {
	Id        string `json:"id"`
	ProfileId string `json:"profileId"`
	InviterId string `json:"inviterId"`
	Token     string `json:"token,omitempty"`
	Role      string `json:"role"`
	Status    string `json:"status"`
	CreatedAt int64  `json:"createdAt"`
	ExpiresAt int64  `json:"expiresAt"`
}

// changeEventDTO is one frame on the websocket feed. Exactly one payload
// field matching Kind is set.
type changeEventDTO struct {
	Kind       string         `json:"kind"`
	ScopeId    string         `json:"scopeId"`
	Profile    *profileDTO    `json:"profile,omitempty"`
	Medication *medicationDTO `json:"medication,omitempty"`
	Intake     *intakeDTO     `json:"intake,omitempty"`
}

func profileToDTO(p *models.Profile) profileDTO {
	return profileDTO{
		Id:        p.ID,
		Name:      p.Name,
		OwnerId:   p.OwnerID,
		Members:   p.Members,
		Deleted:   p.Deleted,
		UpdatedAt: p.UpdatedAt.UnixMilli(),
		CreatedAt: p.CreatedAt.UnixMilli(),
	}
}

func (d profileDTO) toModel() *models.Profile {
	return &models.Profile{
		ID:        d.Id,
		Name:      d.Name,
		OwnerID:   d.OwnerId,
		Members:   d.Members,
		Deleted:   d.Deleted,
		UpdatedAt: time.UnixMilli(d.UpdatedAt).UTC(),
		CreatedAt: time.UnixMilli(d.CreatedAt).UTC(),
	}
}

func medicationToDTO(m *models.Medication) medicationDTO {
	return medicationDTO{
		Id:           m.ID,
		ProfileId:    m.ProfileID,
		Name:         m.Name,
		Form:         m.Form,
		DoseAmount:   m.DoseAmount,
		DoseUnit:     m.DoseUnit,
		Times:        m.Times,
		StartDate:    m.StartDate,
		EndDate:      m.EndDate,
		DurationDays: m.DurationDays,
		Active:       m.Active,
		Importance:   m.Importance,
		MealRelation: m.MealRelation,
		Notes:        m.Notes,
		Deleted:      m.Deleted,
		UpdatedAt:    m.UpdatedAt.UnixMilli(),
		CreatedAt:    m.CreatedAt.UnixMilli(),
	}
}

func (d medicationDTO) toModel() *models.Medication {
	return &models.Medication{
		ID:           d.Id,
		ProfileID:    d.ProfileId,
		Name:         d.Name,
		Form:         d.Form,
		DoseAmount:   d.DoseAmount,
		DoseUnit:     d.DoseUnit,
		Times:        d.Times,
		StartDate:    d.StartDate,
		EndDate:      d.EndDate,
		DurationDays: d.DurationDays,
		Active:       d.Active,
		Importance:   d.Importance,
		MealRelation: d.MealRelation,
		Notes:        d.Notes,
		Deleted:      d.Deleted,
		UpdatedAt:    time.UnixMilli(d.UpdatedAt).UTC(),
		CreatedAt:    time.UnixMilli(d.CreatedAt).UTC(),
	}
}

func intakeToDTO(i *models.Intake) intakeDTO {
	var takenAt int64
	if i.TakenAt != nil {
		takenAt = i.TakenAt.UnixMilli()
	}
	return intakeDTO{
		Id:           i.ID,
		MedicationId: i.MedicationID,
		ProfileId:    i.ProfileID,
		PlannedAt:    i.PlannedAt.UnixMilli(),
		TakenAt:      takenAt,
		Status:       i.Status,
		Deleted:      i.Deleted,
		UpdatedAt:    i.UpdatedAt.UnixMilli(),
	}
}

func (d intakeDTO) toModel() *models.Intake {
	i := &models.Intake{
		ID:           d.Id,
		MedicationID: d.MedicationId,
		ProfileID:    d.ProfileId,
		PlannedAt:    time.UnixMilli(d.PlannedAt).UTC(),
		Status:       d.Status,
		Deleted:      d.Deleted,
		UpdatedAt:    time.UnixMilli(d.UpdatedAt).UTC(),
	}
	if d.TakenAt != 0 {
		t := time.UnixMilli(d.TakenAt).UTC()
		i.TakenAt = &t
	}
	return i
}

func invitationToDTO(inv *models.Invitation) invitationDTO {
	return invitationDTO{
		Id:        inv.ID,
		ProfileId: inv.ProfileID,
		InviterId: inv.InviterID,
		Token:     inv.Token,
		Role:      inv.Role,
		Status:    inv.Status,
		CreatedAt: inv.CreatedAt.UnixMilli(),
		ExpiresAt: inv.ExpiresAt.UnixMilli(),
	}
}

func eventToDTO(e services.Event) changeEventDTO {
	dto := changeEventDTO{Kind: e.Kind, ScopeId: e.ScopeID}
	switch {
	case e.Profile != nil:
		p := profileToDTO(e.Profile)
		dto.Profile = &p
	case e.Medication != nil:
		m := medicationToDTO(e.Medication)
		dto.Medication = &m
	case e.Intake != nil:
		i := intakeToDTO(e.Intake)
		dto.Intake = &i
	}
	return dto
}
