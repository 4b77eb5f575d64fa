package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ankravcenko/medikeep/internal/client/auth"
	"github.com/ankravcenko/medikeep/internal/client/models"
	"github.com/ankravcenko/medikeep/internal/client/remote"
	"github.com/ankravcenko/medikeep/internal/client/repositories/intakes"
	"github.com/ankravcenko/medikeep/internal/client/repositories/medications"
	"github.com/ankravcenko/medikeep/internal/client/repositories/profiles"
	"github.com/ankravcenko/medikeep/internal/client/watch"
	"github.com/ankravcenko/medikeep/internal/common"
	"github.com/ankravcenko/medikeep/internal/logging"
	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
)

const defaultPushInterval = 30 * time.Second

// SyncManager reconciles the local store with the remote store for the
// profiles visible to the current identity. It is idle while no identity is
// present; a login starts a session, a logout cancels it before any new
// session may begin, so no sync work ever straddles two identities.
type SyncManager struct {
	session     *auth.Session
	store       remote.Store
	profileRepo profiles.Repository
	medRepo     medications.Repository
	intakeRepo  intakes.Repository
	watcher     *watch.Watcher
	log         logging.Logger

	pushInterval time.Duration
	now          func() time.Time
}

func NewSyncManager(session *auth.Session, store remote.Store,
	profileRepo profiles.Repository, medRepo medications.Repository,
	intakeRepo intakes.Repository, watcher *watch.Watcher, log logging.Logger) *SyncManager {
	return &SyncManager{
		session:      session,
		store:        store,
		profileRepo:  profileRepo,
		medRepo:      medRepo,
		intakeRepo:   intakeRepo,
		watcher:      watcher,
		log:          log,
		pushInterval: defaultPushInterval,
		now:          time.Now,
	}
}

// SetPushInterval overrides the default push cadence. Call before Run.
func (m *SyncManager) SetPushInterval(d time.Duration) {
	if d > 0 {
		m.pushInterval = d
	}
}

// Run blocks, reacting to identity transitions until ctx ends.
func (m *SyncManager) Run(ctx context.Context) {
	identities := m.session.Identities(ctx)

	var active *syncSession
	stop := func() {
		if active != nil {
			active.stop()
			active = nil
		}
	}
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return
		case id, ok := <-identities:
			if !ok {
				return
			}
			// Always tear the previous session down first; the new
			// identity must never observe the old one's bookkeeping.
			stop()
			if id != nil {
				active = m.startSession(ctx, id)
			}
		}
	}
}

type syncSession struct {
	m        *SyncManager
	identity *auth.Identity
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	mu       sync.Mutex
	observed map[string]struct{} // remote profile ids seen this session
}

func (m *SyncManager) startSession(parent context.Context, id *auth.Identity) *syncSession {
	ctx, cancel := context.WithCancel(parent)
	s := &syncSession{
		m:        m,
		identity: id,
		cancel:   cancel,
		observed: make(map[string]struct{}),
	}
	m.log.Info(ctx, "sync session starting", "user", id.UserId)

	s.dedupProfiles(ctx)

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		s.observeLoop(ctx)
	}()
	go func() {
		defer s.wg.Done()
		s.pushLoop(ctx)
	}()
	return s
}

func (s *syncSession) stop() {
	s.cancel()
	s.wg.Wait()
}

// observeLoop keeps one change-feed connection alive for the whole session.
// Each (re)connect starts with a full snapshot pull so nothing published
// while disconnected is missed; afterwards incremental events stream in.
// Failures are retried forever while the session lives.
func (s *syncSession) observeLoop(ctx context.Context) {
	bo := backoff.WithContext(backoff.NewExponentialBackOff(
		backoff.WithMaxElapsedTime(0),
	), ctx)

	for {
		if ctx.Err() != nil {
			return
		}
		events, err := s.m.store.Observe(ctx)
		if err != nil {
			s.m.log.Warn(ctx, "change feed unavailable, retrying", "error", err)
			if sleepBackoff(ctx, bo) != nil {
				return
			}
			continue
		}

		if err := s.pullSnapshot(ctx); err != nil {
			s.m.log.Warn(ctx, "snapshot pull failed", "error", err)
		}
		bo.Reset()

		for e := range events {
			s.applyEvent(ctx, e)
		}
		// Feed closed: connection dropped, reconnect.
		if sleepBackoff(ctx, bo) != nil {
			return
		}
	}
}

func sleepBackoff(ctx context.Context, bo backoff.BackOff) error {
	d := bo.NextBackOff()
	if d == backoff.Stop {
		d = time.Minute
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// pushLoop periodically pushes dirty rows, parents before children, since a
// child's payload embeds its parent's remote id.
func (s *syncSession) pushLoop(ctx context.Context) {
	ticker := time.NewTicker(s.m.pushInterval)
	defer ticker.Stop()

	s.pushDirty(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.pushDirty(ctx)
		}
	}
}

func (s *syncSession) pushDirty(ctx context.Context) {
	s.pushDirtyProfiles(ctx)
	s.pushDirtyMedications(ctx)
	s.pushDirtyIntakes(ctx)
}

func (s *syncSession) pushDirtyProfiles(ctx context.Context) {
	rows, err := s.m.profileRepo.GetAllDirty(ctx)
	if err != nil {
		s.m.log.Warn(ctx, "dirty profile scan failed", "error", err)
		return
	}
	for _, p := range rows {
		s.pushProfile(ctx, p)
	}
}

func (s *syncSession) pushProfile(ctx context.Context, p *models.Profile) {
	dto, err := s.m.store.UpsertProfile(ctx, remote.ProfileToDTO(p))
	if err != nil {
		s.m.log.Warn(ctx, "profile push failed", "profile", p.Id, "error", err)
		return
	}
	if err := s.m.profileRepo.MarkSynced(ctx, p.Id, dto.Id); err != nil {
		s.m.log.Warn(ctx, "failed to record pushed profile", "profile", p.Id, "error", err)
	}
}

func (s *syncSession) pushDirtyMedications(ctx context.Context) {
	rows, err := s.m.medRepo.GetAllDirty(ctx)
	if err != nil {
		s.m.log.Warn(ctx, "dirty medication scan failed", "error", err)
		return
	}
	for _, med := range rows {
		parent, err := s.m.profileRepo.GetByID(ctx, med.ProfileId)
		if err != nil || parent.RemoteId == "" {
			// Parent not pushed yet; the next pass will pick this row up.
			continue
		}
		dto, err := s.m.store.UpsertMedication(ctx, parent.RemoteId, remote.MedicationToDTO(med, parent.RemoteId))
		if err != nil {
			s.m.log.Warn(ctx, "medication push failed", "medication", med.Id, "error", err)
			continue
		}
		if err := s.m.medRepo.MarkSynced(ctx, med.Id, dto.Id); err != nil {
			s.m.log.Warn(ctx, "failed to record pushed medication", "medication", med.Id, "error", err)
		}
	}
}

func (s *syncSession) pushDirtyIntakes(ctx context.Context) {
	rows, err := s.m.intakeRepo.GetAllDirty(ctx)
	if err != nil {
		s.m.log.Warn(ctx, "dirty intake scan failed", "error", err)
		return
	}
	for _, intake := range rows {
		parentMed, err := s.m.medRepo.GetByID(ctx, intake.MedicationId)
		if err != nil || parentMed.RemoteId == "" {
			continue
		}
		parentProfile, err := s.m.profileRepo.GetByID(ctx, intake.ProfileId)
		if err != nil || parentProfile.RemoteId == "" {
			continue
		}
		dto, err := s.m.store.UpsertIntake(ctx, parentProfile.RemoteId,
			remote.IntakeToDTO(intake, parentMed.RemoteId, parentProfile.RemoteId))
		if err != nil {
			s.m.log.Warn(ctx, "intake push failed", "intake", intake.Id, "error", err)
			continue
		}
		if err := s.m.intakeRepo.MarkSynced(ctx, intake.Id, dto.Id); err != nil {
			s.m.log.Warn(ctx, "failed to record pushed intake", "intake", intake.Id, "error", err)
		}
	}
}

// pullSnapshot applies the full remote state for the identity: profiles
// first, then each profile's children on first sight.
func (s *syncSession) pullSnapshot(ctx context.Context) error {
	dtos, err := s.m.store.ListProfiles(ctx)
	if err != nil {
		return err
	}
	for i := range dtos {
		s.applyRemoteProfile(ctx, &dtos[i])
	}
	return nil
}

func (s *syncSession) applyEvent(ctx context.Context, e remote.ChangeEvent) {
	switch e.Kind {
	case remote.EventProfile:
		if e.Profile != nil {
			s.applyRemoteProfile(ctx, e.Profile)
		}
	case remote.EventMedication:
		if e.Medication != nil {
			s.applyRemoteMedication(ctx, e.Medication)
		}
	case remote.EventIntake:
		if e.Intake != nil {
			s.applyRemoteIntake(ctx, e.Intake)
		}
	default:
		s.m.log.Warn(ctx, "unknown change event kind", "kind", string(e.Kind))
	}
}

// applyRemoteProfile reconciles one remote profile snapshot into the local
// store using last-writer-wins by UpdatedAt. Ties favor the remote copy.
func (s *syncSession) applyRemoteProfile(ctx context.Context, dto *remote.ProfileDTO) {
	local, err := s.m.profileRepo.GetByRemoteID(ctx, dto.Id)
	if err != nil && errors.Is(err, common.ErrorNotFound) {
		local, err = s.resolveByOwnerAndName(ctx, dto)
	}
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		s.m.log.Warn(ctx, "profile resolution failed", "remote", dto.Id, "error", err)
		return
	}

	remoteUpdated := time.UnixMilli(dto.UpdatedAt).UTC()
	switch {
	case local == nil || errors.Is(err, common.ErrorNotFound):
		p := &models.Profile{Id: uuid.NewString()}
		dto.ApplyToProfile(p)
		p.Dirty = false
		if err := s.m.profileRepo.Save(ctx, p); err != nil {
			s.m.log.Warn(ctx, "failed to materialize remote profile", "remote", dto.Id, "error", err)
			return
		}
		s.noteObserved(ctx, dto.Id)
		s.m.watcher.Publish(watch.Event{Kind: watch.KindProfiles, ProfileId: p.Id})

	case dto.Deleted || remoteUpdated.After(local.UpdatedAt) || remoteUpdated.Equal(local.UpdatedAt):
		// Remote tombstones propagate regardless of local timestamps, so
		// a profile deleted on another device never comes back.
		dto.ApplyToProfile(local)
		local.Dirty = false
		if err := s.m.profileRepo.Save(ctx, local); err != nil {
			s.m.log.Warn(ctx, "failed to apply remote profile", "remote", dto.Id, "error", err)
			return
		}
		s.noteObserved(ctx, dto.Id)
		s.m.watcher.Publish(watch.Event{Kind: watch.KindProfiles, ProfileId: local.Id})

	case local.Dirty:
		// Both sides changed and the local copy is newer: push it. A row
		// matched by owner and name has no remote id yet; bind it first so
		// the push updates the remote document instead of minting another.
		if local.RemoteId == "" {
			local.RemoteId = dto.Id
			if err := s.m.profileRepo.Save(ctx, local); err != nil {
				s.m.log.Warn(ctx, "failed to bind remote profile id", "remote", dto.Id, "error", err)
				return
			}
		}
		s.pushProfile(ctx, local)
		s.noteObserved(ctx, dto.Id)

	default:
		// Local is newer but already synced; nothing to reconcile.
		s.noteObserved(ctx, dto.Id)
	}
}

// resolveByOwnerAndName matches a remote profile to a locally-born row that
// has not been assigned a remote id yet, collapsing duplicates instead of
// materializing a second copy. (owner, name) is not a unique key, so this
// stays best-effort.
func (s *syncSession) resolveByOwnerAndName(ctx context.Context, dto *remote.ProfileDTO) (*models.Profile, error) {
	candidates, err := s.m.profileRepo.FindByOwnerAndName(ctx, dto.OwnerId, dto.Name)
	if err != nil {
		return nil, err
	}
	for i := range candidates {
		if candidates[i].RemoteId == "" {
			return &candidates[i], nil
		}
	}
	return nil, common.ErrorNotFound
}

// noteObserved pulls a profile's children the first time its remote id is
// seen this session.
func (s *syncSession) noteObserved(ctx context.Context, remoteProfileId string) {
	s.mu.Lock()
	_, seen := s.observed[remoteProfileId]
	s.observed[remoteProfileId] = struct{}{}
	s.mu.Unlock()
	if seen {
		return
	}

	meds, err := s.m.store.ListMedications(ctx, remoteProfileId)
	if err != nil {
		s.m.log.Warn(ctx, "medication pull failed", "profile", remoteProfileId, "error", err)
	} else {
		for i := range meds {
			s.applyRemoteMedication(ctx, &meds[i])
		}
	}

	rows, err := s.m.store.ListIntakes(ctx, remoteProfileId)
	if err != nil {
		s.m.log.Warn(ctx, "intake pull failed", "profile", remoteProfileId, "error", err)
	} else {
		for i := range rows {
			s.applyRemoteIntake(ctx, &rows[i])
		}
	}
}

func (s *syncSession) applyRemoteMedication(ctx context.Context, dto *remote.MedicationDTO) {
	parent, err := s.m.profileRepo.GetByRemoteID(ctx, dto.ProfileId)
	if err != nil {
		// Parent not resolved yet; skipped until the next snapshot.
		return
	}

	local, err := s.m.medRepo.GetByRemoteID(ctx, dto.Id)
	remoteUpdated := time.UnixMilli(dto.UpdatedAt).UTC()
	switch {
	case errors.Is(err, common.ErrorNotFound):
		med := &models.Medication{Id: uuid.NewString()}
		if err := dto.ApplyToMedication(med, parent.Id); err != nil {
			s.m.log.Warn(ctx, "malformed remote medication", "remote", dto.Id, "error", err)
			return
		}
		med.Dirty = false
		if err := s.m.medRepo.Save(ctx, med); err != nil {
			s.m.log.Warn(ctx, "failed to materialize remote medication", "remote", dto.Id, "error", err)
			return
		}
		s.m.watcher.Publish(watch.Event{Kind: watch.KindMedications, ProfileId: parent.Id})

	case err != nil:
		s.m.log.Warn(ctx, "medication resolution failed", "remote", dto.Id, "error", err)

	case dto.Deleted || remoteUpdated.After(local.UpdatedAt) || remoteUpdated.Equal(local.UpdatedAt):
		if err := dto.ApplyToMedication(local, parent.Id); err != nil {
			s.m.log.Warn(ctx, "malformed remote medication", "remote", dto.Id, "error", err)
			return
		}
		local.Dirty = false
		if err := s.m.medRepo.Save(ctx, local); err != nil {
			s.m.log.Warn(ctx, "failed to apply remote medication", "remote", dto.Id, "error", err)
			return
		}
		s.m.watcher.Publish(watch.Event{Kind: watch.KindMedications, ProfileId: parent.Id})
	}
}

func (s *syncSession) applyRemoteIntake(ctx context.Context, dto *remote.IntakeDTO) {
	parentProfile, err := s.m.profileRepo.GetByRemoteID(ctx, dto.ProfileId)
	if err != nil {
		return
	}
	parentMed, err := s.m.medRepo.GetByRemoteID(ctx, dto.MedicationId)
	if err != nil {
		return
	}

	local, err := s.m.intakeRepo.GetByRemoteID(ctx, dto.Id)
	remoteUpdated := time.UnixMilli(dto.UpdatedAt).UTC()
	switch {
	case errors.Is(err, common.ErrorNotFound):
		intake := &models.Intake{Id: uuid.NewString()}
		dto.ApplyToIntake(intake, parentMed.Id, parentProfile.Id)
		intake.Dirty = false
		if err := s.m.intakeRepo.Save(ctx, intake); err != nil {
			s.m.log.Warn(ctx, "failed to materialize remote intake", "remote", dto.Id, "error", err)
			return
		}
		s.m.watcher.Publish(watch.Event{Kind: watch.KindIntakes, ProfileId: parentProfile.Id})

	case err != nil:
		s.m.log.Warn(ctx, "intake resolution failed", "remote", dto.Id, "error", err)

	case dto.Deleted || remoteUpdated.After(local.UpdatedAt) || remoteUpdated.Equal(local.UpdatedAt):
		dto.ApplyToIntake(local, parentMed.Id, parentProfile.Id)
		local.Dirty = false
		if err := s.m.intakeRepo.Save(ctx, local); err != nil {
			s.m.log.Warn(ctx, "failed to apply remote intake", "remote", dto.Id, "error", err)
			return
		}
		s.m.watcher.Publish(watch.Event{Kind: watch.KindIntakes, ProfileId: parentProfile.Id})
	}
}

// dedupProfiles is the best-effort cleanup pass run once per session start.
// It removes locally-born duplicates of the same (owner, name) that never
// made it to the remote and hold no medications.
func (s *syncSession) dedupProfiles(ctx context.Context) {
	all, err := s.m.profileRepo.GetAll(ctx)
	if err != nil {
		s.m.log.Warn(ctx, "dedup scan failed", "error", err)
		return
	}
	type key struct{ owner, name string }
	groups := make(map[key][]models.Profile, len(all))
	for _, p := range all {
		k := key{p.OwnerId, p.Name}
		groups[k] = append(groups[k], p)
	}
	for _, group := range groups {
		if len(group) < 2 {
			continue
		}
		// Keep one anchor per group, preferring a row that already has a
		// remote id; remove the remote-less, medication-less rest.
		anchor := group[0]
		for _, p := range group[1:] {
			if anchor.RemoteId == "" && p.RemoteId != "" {
				anchor = p
			}
		}
		for _, p := range group {
			if p.Id == anchor.Id || p.RemoteId != "" {
				continue
			}
			meds, err := s.m.medRepo.GetAllByProfile(ctx, p.Id)
			if err != nil || len(meds) > 0 {
				continue
			}
			if err := s.m.profileRepo.Delete(ctx, p.Id); err != nil {
				s.m.log.Warn(ctx, "dedup delete failed", "profile", p.Id, "error", err)
				continue
			}
			s.m.log.Info(ctx, "collapsed duplicate local profile", "profile", p.Id, "name", p.Name)
		}
	}
}
