package services

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/ankravcenko/medikeep/internal/common"
	"github.com/ankravcenko/medikeep/internal/dbx"
	"github.com/ankravcenko/medikeep/internal/server/models"
	"github.com/ankravcenko/medikeep/internal/server/repositories/intakes"
	"github.com/ankravcenko/medikeep/internal/server/repositories/invitations"
	"github.com/ankravcenko/medikeep/internal/server/repositories/medications"
	"github.com/ankravcenko/medikeep/internal/server/repositories/profiles"
	"github.com/ankravcenko/medikeep/internal/server/repositories/refreshtokens"
	"github.com/ankravcenko/medikeep/internal/server/repositories/users"
)

// fakeManager vends shared in-memory repositories regardless of the DBTX
// handed in, so service logic can be exercised without a database.
type fakeManager struct {
	users         *memUserRepo
	refreshTokens *memRefreshTokenRepo
	profiles      *memProfileRepo
	medications   *memMedicationRepo
	intakes       *memIntakeRepo
	invitations   *memInvitationRepo
}

func newFakeManager() *fakeManager {
	return &fakeManager{
		users:         &memUserRepo{byEmail: map[string]*models.User{}},
		refreshTokens: &memRefreshTokenRepo{tokens: map[string]*models.RefreshToken{}},
		profiles:      &memProfileRepo{rows: map[string]*models.Profile{}},
		medications:   &memMedicationRepo{rows: map[string]*models.Medication{}},
		intakes:       &memIntakeRepo{rows: map[string]*models.Intake{}},
		invitations:   &memInvitationRepo{rows: map[string]*models.Invitation{}},
	}
}

func (m *fakeManager) Users(dbx.DBTX) users.Repository                 { return m.users }
func (m *fakeManager) RefreshTokens(dbx.DBTX) refreshtokens.Repository { return m.refreshTokens }
func (m *fakeManager) Profiles(dbx.DBTX) profiles.Repository           { return m.profiles }
func (m *fakeManager) Medications(dbx.DBTX) medications.Repository     { return m.medications }
func (m *fakeManager) Intakes(dbx.DBTX) intakes.Repository             { return m.intakes }
func (m *fakeManager) Invitations(dbx.DBTX) invitations.Repository     { return m.invitations }
func (m *fakeManager) RunMigrations(context.Context, *sql.DB) error    { return nil }

// recordingNotifier collects every event for assertions.
type recordingNotifier struct {
	mu     sync.Mutex
	events []Event
}

func (n *recordingNotifier) Notify(e Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
}

func (n *recordingNotifier) all() []Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Event(nil), n.events...)
}

type memUserRepo struct {
	mu      sync.Mutex
	seq     int
	byEmail map[string]*models.User
}

func (r *memUserRepo) Create(_ context.Context, u *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byEmail[u.Email]; ok {
		return nil, common.ErrLoginAlreadyExists
	}
	r.seq++
	u.ID = fmt.Sprintf("u-%d", r.seq)
	u.CreatedAt = time.Now()
	r.byEmail[u.Email] = u
	return u, nil
}

func (r *memUserRepo) GetUserByLogin(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byEmail[email]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return u, nil
}

type memRefreshTokenRepo struct {
	mu     sync.Mutex
	tokens map[string]*models.RefreshToken
}

func (r *memRefreshTokenRepo) Create(_ context.Context, userID, token string, validity time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[token] = &models.RefreshToken{
		UserID:  userID,
		Token:   token,
		Expires: time.Now().Add(validity),
	}
	return nil
}

func (r *memRefreshTokenRepo) Find(_ context.Context, token string) (*models.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return t, nil
}

func (r *memRefreshTokenRepo) Delete(_ context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tokens, token)
	return nil
}

type memProfileRepo struct {
	mu   sync.Mutex
	seq  int
	rows map[string]*models.Profile
}

func copyProfile(p *models.Profile) *models.Profile {
	c := *p
	c.Members = make(map[string]string, len(p.Members))
	for k, v := range p.Members {
		c.Members[k] = v
	}
	return &c
}

func (r *memProfileRepo) Create(_ context.Context, p *models.Profile) (*models.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	p.ID = fmt.Sprintf("p-%d", r.seq)
	p.CreatedAt = time.Now().UTC()
	r.rows[p.ID] = copyProfile(p)
	return p, nil
}

func (r *memProfileRepo) Update(_ context.Context, p *models.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[p.ID]; !ok {
		return common.ErrorNotFound
	}
	stored := copyProfile(p)
	stored.CreatedAt = r.rows[p.ID].CreatedAt
	r.rows[p.ID] = stored
	return nil
}

func (r *memProfileRepo) GetByID(_ context.Context, id string) (*models.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.rows[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return copyProfile(p), nil
}

func (r *memProfileRepo) ListVisible(_ context.Context, userID string) ([]models.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Profile
	for _, p := range r.rows {
		if p.Role(userID) != "" {
			out = append(out, *copyProfile(p))
		}
	}
	return out, nil
}

func (r *memProfileRepo) AddMember(_ context.Context, profileID, userID, role string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.rows[profileID]
	if !ok {
		return common.ErrorNotFound
	}
	if p.Members == nil {
		p.Members = map[string]string{}
	}
	p.Members[userID] = role
	p.UpdatedAt = time.Now().UTC()
	return nil
}

type memMedicationRepo struct {
	mu   sync.Mutex
	seq  int
	rows map[string]*models.Medication
}

func (r *memMedicationRepo) Create(_ context.Context, m *models.Medication) (*models.Medication, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	m.ID = fmt.Sprintf("m-%d", r.seq)
	m.CreatedAt = time.Now().UTC()
	c := *m
	r.rows[m.ID] = &c
	return m, nil
}

func (r *memMedicationRepo) Update(_ context.Context, m *models.Medication) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[m.ID]; !ok {
		return common.ErrorNotFound
	}
	c := *m
	r.rows[m.ID] = &c
	return nil
}

func (r *memMedicationRepo) GetByID(_ context.Context, id string) (*models.Medication, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.rows[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := *m
	return &c, nil
}

func (r *memMedicationRepo) ListByProfile(_ context.Context, profileID string) ([]models.Medication, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Medication
	for _, m := range r.rows {
		if m.ProfileID == profileID {
			out = append(out, *m)
		}
	}
	return out, nil
}

type memIntakeRepo struct {
	mu   sync.Mutex
	seq  int
	rows map[string]*models.Intake
}

func (r *memIntakeRepo) Create(_ context.Context, i *models.Intake) (*models.Intake, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	i.ID = fmt.Sprintf("i-%d", r.seq)
	c := *i
	r.rows[i.ID] = &c
	return i, nil
}

func (r *memIntakeRepo) Update(_ context.Context, i *models.Intake) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[i.ID]; !ok {
		return common.ErrorNotFound
	}
	c := *i
	r.rows[i.ID] = &c
	return nil
}

func (r *memIntakeRepo) GetByID(_ context.Context, id string) (*models.Intake, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.rows[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := *i
	return &c, nil
}

func (r *memIntakeRepo) ListByProfile(_ context.Context, profileID string) ([]models.Intake, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Intake
	for _, i := range r.rows {
		if i.ProfileID == profileID {
			out = append(out, *i)
		}
	}
	return out, nil
}

type memInvitationRepo struct {
	mu   sync.Mutex
	seq  int
	rows map[string]*models.Invitation
}

func (r *memInvitationRepo) Create(_ context.Context, inv *models.Invitation) (*models.Invitation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	inv.ID = fmt.Sprintf("inv-%d", r.seq)
	inv.CreatedAt = time.Now().UTC()
	c := *inv
	r.rows[inv.ID] = &c
	return inv, nil
}

func (r *memInvitationRepo) GetByID(_ context.Context, id string) (*models.Invitation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.rows[id]
	if !ok {
		return nil, common.ErrInvitationNotFound
	}
	c := *inv
	return &c, nil
}

func (r *memInvitationRepo) SetStatus(_ context.Context, id, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.rows[id]
	if !ok {
		return common.ErrInvitationNotFound
	}
	inv.Status = status
	return nil
}
