package remote

import (
	"time"

	"github.com/ankravcenko/medikeep/internal/client/models"
)

// DTOs mirror the backend's document shapes. Timestamps travel as unix
// milliseconds so the last-writer-wins comparison is byte-stable across
// devices; membership maps travel as plain string maps and are decoded into
// typed roles at the store boundary.

type ProfileDTO struct {
	Id        string            `json:"id"`
	Name      string            `json:"name"`
	OwnerId   string            `json:"ownerId"`
	Members   map[string]string `json:"members"`
	Deleted   bool              `json:"deleted"`
	UpdatedAt int64             `json:"updatedAt"`
	CreatedAt int64             `json:"createdAt"`
}

type MedicationDTO struct {
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

type IntakeDTO struct {
	Id           string `json:"id"`
	MedicationId string `json:"medicationId"`
	ProfileId    string `json:"profileId"`
	PlannedAt    int64  `json:"plannedAt"`
	TakenAt      int64  `json:"takenAt,omitempty"`
	Status       string `json:"status"`
	Deleted      bool   `json:"deleted"`
	UpdatedAt    int64  `json:"updatedAt"`
}

// ProfileToDTO maps a local row to its remote document. The document id is
// the remote id; empty means the backend assigns one on upsert.
func ProfileToDTO(p *models.Profile) ProfileDTO {
	members := make(map[string]string, len(p.Members))
	for identity, role := range p.Members {
		members[identity] = string(role)
	}
	return ProfileDTO{
		Id:        p.RemoteId,
		Name:      p.Name,
		OwnerId:   p.OwnerId,
		Members:   members,
		Deleted:   p.Deleted,
		UpdatedAt: p.UpdatedAt.UnixMilli(),
		CreatedAt: p.CreatedAt.UnixMilli(),
	}
}

// ApplyToProfile overwrites a local row's fields from the remote document,
// leaving local identity (Id) and bookkeeping to the caller.
func (d ProfileDTO) ApplyToProfile(p *models.Profile) {
	p.RemoteId = d.Id
	p.Name = d.Name
	p.OwnerId = d.OwnerId
	p.Members = make(map[string]models.Role, len(d.Members))
	for identity, role := range d.Members {
		p.Members[identity] = models.ParseRole(role)
	}
	p.NormalizeMembers()
	p.Shared = len(p.Members) > 1
	p.Deleted = d.Deleted
	p.UpdatedAt = time.UnixMilli(d.UpdatedAt).UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.UnixMilli(d.CreatedAt).UTC()
	}
}

func MedicationToDTO(m *models.Medication, profileRemoteId string) MedicationDTO {
	times := make([]string, len(m.Times))
	for i, t := range m.Times {
		times[i] = t.String()
	}
	var endDate string
	if m.EndDate != nil {
		endDate = m.EndDate.String()
	}
	return MedicationDTO{
		Id:           m.RemoteId,
		ProfileId:    profileRemoteId,
		Name:         m.Name,
		Form:         string(m.Form),
		DoseAmount:   m.Dosage.Amount,
		DoseUnit:     m.Dosage.Unit,
		Times:        times,
		StartDate:    m.StartDate.String(),
		EndDate:      endDate,
		DurationDays: m.DurationDays,
		Active:       m.Active,
		Importance:   string(m.Importance),
		MealRelation: string(m.MealRelation),
		Notes:        m.Notes,
		Deleted:      m.Deleted,
		UpdatedAt:    m.UpdatedAt.UnixMilli(),
		CreatedAt:    m.CreatedAt.UnixMilli(),
	}
}

// ApplyToMedication overwrites local fields from the remote document.
// ProfileId is the LOCAL profile id, resolved by the caller before apply.
func (d MedicationDTO) ApplyToMedication(m *models.Medication, localProfileId string) error {
	m.RemoteId = d.Id
	m.ProfileId = localProfileId
	m.Name = d.Name
	m.Form = models.MedicationForm(d.Form)
	m.Dosage = models.Dosage{Amount: d.DoseAmount, Unit: d.DoseUnit}
	m.Times = m.Times[:0]
	for _, s := range d.Times {
		tod, err := models.ParseTimeOfDay(s)
		if err != nil {
			return err
		}
		m.Times = append(m.Times, tod)
	}
	start, err := models.ParseDate(d.StartDate)
	if err != nil {
		return err
	}
	m.StartDate = start
	m.EndDate = nil
	if d.EndDate != "" {
		end, err := models.ParseDate(d.EndDate)
		if err != nil {
			return err
		}
		m.EndDate = &end
	}
	m.DurationDays = d.DurationDays
	m.Active = d.Active
	m.Importance = models.Importance(d.Importance)
	m.MealRelation = models.MealRelation(d.MealRelation)
	m.Notes = d.Notes
	m.Deleted = d.Deleted
	m.UpdatedAt = time.UnixMilli(d.UpdatedAt).UTC()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.UnixMilli(d.CreatedAt).UTC()
	}
	return nil
}

func IntakeToDTO(i *models.Intake, medicationRemoteId, profileRemoteId string) IntakeDTO {
	var takenAt int64
	if i.TakenAt != nil {
		takenAt = i.TakenAt.UnixMilli()
	}
	return IntakeDTO{
		Id:           i.RemoteId,
		MedicationId: medicationRemoteId,
		ProfileId:    profileRemoteId,
		PlannedAt:    i.PlannedAt.UnixMilli(),
		TakenAt:      takenAt,
		Status:       string(i.Status),
		Deleted:      i.Deleted,
		UpdatedAt:    i.UpdatedAt.UnixMilli(),
	}
}

// ApplyToIntake overwrites local fields from the remote document. Both
// parent ids are LOCAL ids resolved by the caller.
func (d IntakeDTO) ApplyToIntake(i *models.Intake, localMedicationId, localProfileId string) {
	i.RemoteId = d.Id
	i.MedicationId = localMedicationId
	i.ProfileId = localProfileId
	i.PlannedAt = time.UnixMilli(d.PlannedAt).UTC()
	i.TakenAt = nil
	if d.TakenAt != 0 {
		t := time.UnixMilli(d.TakenAt).UTC()
		i.TakenAt = &t
	}
	i.Status = models.IntakeStatus(d.Status)
	i.Deleted = d.Deleted
	i.UpdatedAt = time.UnixMilli(d.UpdatedAt).UTC()
}

// InvitationDTO is the wire form of a sharing invitation.
type InvitationDTO struct {
	Id        string `json:"id"`
	ProfileId string `json:"profileId"`
	InviterId string `json:"inviterId"`
	Token     string `json:"token,omitempty"`
	Role      string `json:"role"`
	Status    string `json:"status"`
	CreatedAt int64  `json:"createdAt"`
	ExpiresAt int64  `json:"expiresAt"`
}

func (d InvitationDTO) ToModel() models.Invitation {
	return models.Invitation{
		Id:        d.Id,
		ProfileId: d.ProfileId,
		InviterId: d.InviterId,
		Token:     d.Token,
		Role:      models.ParseRole(d.Role),
		Status:    models.InvitationStatus(d.Status),
		CreatedAt: time.UnixMilli(d.CreatedAt).UTC(),
		ExpiresAt: time.UnixMilli(d.ExpiresAt).UTC(),
	}
}
