package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/ankravcenko/medikeep/internal/client/models"
	"github.com/ankravcenko/medikeep/internal/client/remote"
	"github.com/ankravcenko/medikeep/internal/common"
	"github.com/ankravcenko/medikeep/internal/logging"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// In-memory repositories. They mirror the SQLite semantics the services
// depend on: soft deletes stay resident as dirty tombstones, GetAll-style
// listings skip them, GetAllDirty includes them.

type memProfileRepo struct {
	mu   sync.Mutex
	rows map[string]*models.Profile
}

func newMemProfileRepo() *memProfileRepo {
	return &memProfileRepo{rows: make(map[string]*models.Profile)}
}

func (r *memProfileRepo) Save(_ context.Context, p *models.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	cp.Members = make(map[string]models.Role, len(p.Members))
	for k, v := range p.Members {
		cp.Members[k] = v
	}
	r.rows[p.Id] = &cp
	return nil
}

func (r *memProfileRepo) GetByID(_ context.Context, id string) (*models.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.rows[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *memProfileRepo) GetByRemoteID(_ context.Context, remoteId string) (*models.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.rows {
		if p.RemoteId == remoteId && remoteId != "" {
			cp := *p
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *memProfileRepo) FindByOwnerAndName(_ context.Context, ownerId, name string) ([]models.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Profile
	for _, p := range r.rows {
		if !p.Deleted && p.OwnerId == ownerId && p.Name == name {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *memProfileRepo) GetAll(_ context.Context) ([]models.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Profile
	for _, p := range r.rows {
		if !p.Deleted {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *memProfileRepo) GetAllDirty(_ context.Context) ([]*models.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Profile
	for _, p := range r.rows {
		if p.Dirty {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memProfileRepo) MarkSynced(_ context.Context, id, remoteId string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.rows[id]
	if !ok {
		return common.ErrorNotFound
	}
	p.RemoteId = remoteId
	p.Dirty = false
	return nil
}

func (r *memProfileRepo) SoftDelete(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.rows[id]
	if !ok {
		return common.ErrorNotFound
	}
	p.Deleted = true
	p.Dirty = true
	p.UpdatedAt = at
	return nil
}

func (r *memProfileRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rows, id)
	return nil
}

type memMedicationRepo struct {
	mu   sync.Mutex
	rows map[string]*models.Medication
}

func newMemMedicationRepo() *memMedicationRepo {
	return &memMedicationRepo{rows: make(map[string]*models.Medication)}
}

func (r *memMedicationRepo) Save(_ context.Context, m *models.Medication) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *m
	r.rows[m.Id] = &cp
	return nil
}

func (r *memMedicationRepo) GetByID(_ context.Context, id string) (*models.Medication, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.rows[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *memMedicationRepo) GetByRemoteID(_ context.Context, remoteId string) (*models.Medication, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.rows {
		if m.RemoteId == remoteId && remoteId != "" {
			cp := *m
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *memMedicationRepo) GetAllByProfile(_ context.Context, profileId string) ([]models.Medication, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Medication
	for _, m := range r.rows {
		if !m.Deleted && m.ProfileId == profileId {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (r *memMedicationRepo) GetAllDirty(_ context.Context) ([]*models.Medication, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Medication
	for _, m := range r.rows {
		if m.Dirty {
			cp := *m
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memMedicationRepo) MarkSynced(_ context.Context, id, remoteId string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.rows[id]
	if !ok {
		return common.ErrorNotFound
	}
	m.RemoteId = remoteId
	m.Dirty = false
	return nil
}

func (r *memMedicationRepo) SoftDelete(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.rows[id]
	if !ok {
		return common.ErrorNotFound
	}
	m.Deleted = true
	m.Dirty = true
	m.UpdatedAt = at
	return nil
}

type memIntakeRepo struct {
	mu   sync.Mutex
	rows map[string]*models.Intake
}

func newMemIntakeRepo() *memIntakeRepo {
	return &memIntakeRepo{rows: make(map[string]*models.Intake)}
}

func (r *memIntakeRepo) Save(_ context.Context, i *models.Intake) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *i
	r.rows[i.Id] = &cp
	return nil
}

func (r *memIntakeRepo) GetByID(_ context.Context, id string) (*models.Intake, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.rows[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *i
	return &cp, nil
}

func (r *memIntakeRepo) GetByRemoteID(_ context.Context, remoteId string) (*models.Intake, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, i := range r.rows {
		if i.RemoteId == remoteId && remoteId != "" {
			cp := *i
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *memIntakeRepo) GetByMedicationAndPlanned(_ context.Context, medicationId string, plannedAt time.Time) (*models.Intake, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, i := range r.rows {
		if !i.Deleted && i.MedicationId == medicationId && i.PlannedAt.Equal(plannedAt) {
			cp := *i
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *memIntakeRepo) ListForMedicationBetween(_ context.Context, medicationId string, from, to time.Time) ([]models.Intake, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Intake
	for _, i := range r.rows {
		if i.Deleted || i.MedicationId != medicationId {
			continue
		}
		if !i.PlannedAt.Before(from) && i.PlannedAt.Before(to) {
			out = append(out, *i)
		}
	}
	return out, nil
}

func (r *memIntakeRepo) ListForProfileBetween(_ context.Context, profileId string, from, to time.Time) ([]models.Intake, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Intake
	for _, i := range r.rows {
		if i.Deleted || i.ProfileId != profileId {
			continue
		}
		if !i.PlannedAt.Before(from) && i.PlannedAt.Before(to) {
			out = append(out, *i)
		}
	}
	return out, nil
}

func (r *memIntakeRepo) GetAllDirty(_ context.Context) ([]*models.Intake, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Intake
	for _, i := range r.rows {
		if i.Dirty {
			cp := *i
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memIntakeRepo) MarkSynced(_ context.Context, id, remoteId string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.rows[id]
	if !ok {
		return common.ErrorNotFound
	}
	i.RemoteId = remoteId
	i.Dirty = false
	return nil
}

func (r *memIntakeRepo) SoftDelete(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.rows[id]
	if !ok {
		return common.ErrorNotFound
	}
	i.Deleted = true
	i.Dirty = true
	i.UpdatedAt = at
	return nil
}

func (r *memIntakeRepo) SoftDeleteByMedication(_ context.Context, medicationId string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, i := range r.rows {
		if i.MedicationId == medicationId && !i.Deleted {
			i.Deleted = true
			i.Dirty = true
			i.UpdatedAt = at
		}
	}
	return nil
}

// recordingReminders captures scheduling calls for assertions.
type recordingReminders struct {
	mu        sync.Mutex
	enabled   bool
	scheduled map[string]time.Time
	canceled  []string
}

func newRecordingReminders(enabled bool) *recordingReminders {
	return &recordingReminders{enabled: enabled, scheduled: make(map[string]time.Time)}
}

func (r *recordingReminders) ScheduleReminder(occurrenceId, _, _ string, firingAt time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scheduled[occurrenceId] = firingAt
}

func (r *recordingReminders) CancelReminder(occurrenceId string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.scheduled, occurrenceId)
	r.canceled = append(r.canceled, occurrenceId)
}

func (r *recordingReminders) CancelAllForMedication(medicationId string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.canceled = append(r.canceled, "med:"+medicationId)
}

func (r *recordingReminders) RemindersEnabled() bool { return r.enabled }

// fakeRemoteStore is an in-memory backend. Upserts assign remote ids and
// bump nothing; listings return stored documents. The change feed is a
// plain channel the test feeds by hand.
type fakeRemoteStore struct {
	mu          sync.Mutex
	nextId      int
	profiles    map[string]remote.ProfileDTO
	medications map[string]remote.MedicationDTO
	intakes     map[string]remote.IntakeDTO
	invitations map[string]*models.Invitation

	events     chan remote.ChangeEvent
	observeErr error

	upsertedProfiles int
}

func newFakeRemoteStore() *fakeRemoteStore {
	return &fakeRemoteStore{
		profiles:    make(map[string]remote.ProfileDTO),
		medications: make(map[string]remote.MedicationDTO),
		intakes:     make(map[string]remote.IntakeDTO),
		invitations: make(map[string]*models.Invitation),
		events:      make(chan remote.ChangeEvent, 16),
	}
}

func (s *fakeRemoteStore) assignId(prefix string) string {
	s.nextId++
	return fmt.Sprintf("%s-%d", prefix, s.nextId)
}

func (s *fakeRemoteStore) Close() error { return nil }

func (s *fakeRemoteStore) Register(context.Context, string, string) error { return nil }

func (s *fakeRemoteStore) Login(context.Context, string, string) (*remote.TokenPair, error) {
	return &remote.TokenPair{AccessToken: "a", RefreshToken: "r", UserId: "u"}, nil
}

func (s *fakeRemoteStore) Refresh(context.Context, string) (*remote.TokenPair, error) {
	return &remote.TokenPair{AccessToken: "a2", RefreshToken: "r2", UserId: "u"}, nil
}

func (s *fakeRemoteStore) SetTokens(string, string) {}

func (s *fakeRemoteStore) UpsertProfile(_ context.Context, dto remote.ProfileDTO) (*remote.ProfileDTO, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upsertedProfiles++
	if dto.Id == "" {
		dto.Id = s.assignId("prof")
	}
	s.profiles[dto.Id] = dto
	cp := dto
	return &cp, nil
}

func (s *fakeRemoteStore) ListProfiles(context.Context) ([]remote.ProfileDTO, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]remote.ProfileDTO, 0, len(s.profiles))
	for _, p := range s.profiles {
		out = append(out, p)
	}
	return out, nil
}

func (s *fakeRemoteStore) GetProfile(_ context.Context, remoteId string) (*remote.ProfileDTO, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[remoteId]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := p
	return &cp, nil
}

func (s *fakeRemoteStore) UpsertMedication(_ context.Context, _ string, dto remote.MedicationDTO) (*remote.MedicationDTO, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if dto.Id == "" {
		dto.Id = s.assignId("med")
	}
	s.medications[dto.Id] = dto
	cp := dto
	return &cp, nil
}

func (s *fakeRemoteStore) ListMedications(_ context.Context, profileRemoteId string) ([]remote.MedicationDTO, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []remote.MedicationDTO
	for _, m := range s.medications {
		if m.ProfileId == profileRemoteId {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *fakeRemoteStore) UpsertIntake(_ context.Context, _ string, dto remote.IntakeDTO) (*remote.IntakeDTO, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if dto.Id == "" {
		dto.Id = s.assignId("int")
	}
	s.intakes[dto.Id] = dto
	cp := dto
	return &cp, nil
}

func (s *fakeRemoteStore) ListIntakes(_ context.Context, profileRemoteId string) ([]remote.IntakeDTO, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []remote.IntakeDTO
	for _, i := range s.intakes {
		if i.ProfileId == profileRemoteId {
			out = append(out, i)
		}
	}
	return out, nil
}

func (s *fakeRemoteStore) CreateInvitation(_ context.Context, profileRemoteId string, role models.Role) (*models.Invitation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv := &models.Invitation{
		Id:        s.assignId("inv"),
		ProfileId: profileRemoteId,
		Token:     fmt.Sprintf("tok-%d", s.nextId),
		Role:      role,
		Status:    models.InvitationPending,
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(72 * time.Hour),
	}
	s.invitations[inv.Id] = inv
	return inv, nil
}

func (s *fakeRemoteStore) GetInvitation(_ context.Context, id string) (*models.Invitation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invitations[id]
	if !ok {
		return nil, common.ErrInvitationNotFound
	}
	cp := *inv
	return &cp, nil
}

func (s *fakeRemoteStore) AcceptInvitation(_ context.Context, id, token string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invitations[id]
	if !ok {
		return "", common.ErrInvitationNotFound
	}
	if inv.Token != token {
		return "", common.ErrTokenMismatch
	}
	if time.Now().After(inv.ExpiresAt) {
		return "", common.ErrInvitationExpired
	}
	switch inv.Status {
	case models.InvitationAccepted:
		return "", common.ErrAlreadyAccepted
	case models.InvitationCanceled:
		return "", common.ErrInvitationCanceled
	}
	inv.Status = models.InvitationAccepted
	return inv.ProfileId, nil
}

func (s *fakeRemoteStore) CancelInvitation(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invitations[id]
	if !ok {
		return common.ErrInvitationNotFound
	}
	inv.Status = models.InvitationCanceled
	return nil
}

func (s *fakeRemoteStore) Observe(context.Context) (<-chan remote.ChangeEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.observeErr != nil {
		return nil, s.observeErr
	}
	return s.events, nil
}
