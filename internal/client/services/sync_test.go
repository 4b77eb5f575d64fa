package services

import (
	"context"
	"testing"
	"time"

	"github.com/ankravcenko/medikeep/internal/client/models"
	"github.com/ankravcenko/medikeep/internal/client/remote"
	"github.com/ankravcenko/medikeep/internal/client/watch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type syncFixture struct {
	store       *fakeRemoteStore
	profileRepo *memProfileRepo
	medRepo     *memMedicationRepo
	intakeRepo  *memIntakeRepo
	session     *syncSession
}

func newSyncFixture(store *fakeRemoteStore) *syncFixture {
	f := &syncFixture{
		store:       store,
		profileRepo: newMemProfileRepo(),
		medRepo:     newMemMedicationRepo(),
		intakeRepo:  newMemIntakeRepo(),
	}
	m := &SyncManager{
		store:        store,
		profileRepo:  f.profileRepo,
		medRepo:      f.medRepo,
		intakeRepo:   f.intakeRepo,
		watcher:      watch.NewWatcher(),
		log:          testLogger(),
		pushInterval: time.Hour,
		now:          time.Now,
	}
	f.session = &syncSession{m: m, observed: make(map[string]struct{})}
	return f
}

func remoteProfile(id, owner, name string, updatedAt time.Time) remote.ProfileDTO {
	return remote.ProfileDTO{
		Id:        id,
		Name:      name,
		OwnerId:   owner,
		Members:   map[string]string{owner: string(models.RoleOwner)},
		UpdatedAt: updatedAt.UnixMilli(),
		CreatedAt: updatedAt.UnixMilli(),
	}
}

func TestSync_PullSnapshot(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	store := newFakeRemoteStore()
	store.profiles["prof-r1"] = remoteProfile("prof-r1", "alice", "Mom", now)
	store.medications["med-r1"] = remote.MedicationDTO{
		Id:        "med-r1",
		ProfileId: "prof-r1",
		Name:      "Lisinopril",
		Form:      "tablet",
		Times:     []string{"08:00"},
		StartDate: "2026-03-01",
		Active:    true,
		UpdatedAt: now.UnixMilli(),
	}
	store.intakes["int-r1"] = remote.IntakeDTO{
		Id:           "int-r1",
		MedicationId: "med-r1",
		ProfileId:    "prof-r1",
		PlannedAt:    now.UnixMilli(),
		Status:       "planned",
		UpdatedAt:    now.UnixMilli(),
	}

	f := newSyncFixture(store)
	require.NoError(t, f.session.pullSnapshot(ctx))

	p, err := f.profileRepo.GetByRemoteID(ctx, "prof-r1")
	require.NoError(t, err)
	assert.Equal(t, "Mom", p.Name)
	assert.False(t, p.Dirty)
	assert.Equal(t, models.RoleOwner, p.Members["alice"])

	med, err := f.medRepo.GetByRemoteID(ctx, "med-r1")
	require.NoError(t, err)
	assert.Equal(t, p.Id, med.ProfileId)
	assert.False(t, med.Dirty)

	intake, err := f.intakeRepo.GetByRemoteID(ctx, "int-r1")
	require.NoError(t, err)
	assert.Equal(t, med.Id, intake.MedicationId)
	assert.Equal(t, p.Id, intake.ProfileId)

	t.Run("second pull changes nothing", func(t *testing.T) {
		require.NoError(t, f.session.pullSnapshot(ctx))
		all, err := f.profileRepo.GetAll(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)
		dirty, err := f.profileRepo.GetAllDirty(ctx)
		require.NoError(t, err)
		assert.Empty(t, dirty)
	})
}

func TestSync_LastWriterWins(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	t.Run("newer remote overwrites dirty local", func(t *testing.T) {
		store := newFakeRemoteStore()
		f := newSyncFixture(store)
		require.NoError(t, f.profileRepo.Save(ctx, &models.Profile{
			Id:        "local-1",
			RemoteId:  "prof-r1",
			Name:      "Old name",
			OwnerId:   "alice",
			Members:   map[string]models.Role{"alice": models.RoleOwner},
			Dirty:     true,
			UpdatedAt: base,
		}))

		dto := remoteProfile("prof-r1", "alice", "New name", base.Add(time.Minute))
		f.session.applyRemoteProfile(ctx, &dto)

		p, err := f.profileRepo.GetByID(ctx, "local-1")
		require.NoError(t, err)
		assert.Equal(t, "New name", p.Name)
		assert.False(t, p.Dirty)
	})

	t.Run("newer dirty local is pushed instead", func(t *testing.T) {
		store := newFakeRemoteStore()
		f := newSyncFixture(store)
		require.NoError(t, f.profileRepo.Save(ctx, &models.Profile{
			Id:        "local-1",
			RemoteId:  "prof-r1",
			Name:      "Fresh local",
			OwnerId:   "alice",
			Members:   map[string]models.Role{"alice": models.RoleOwner},
			Dirty:     true,
			UpdatedAt: base.Add(time.Minute),
		}))

		dto := remoteProfile("prof-r1", "alice", "Stale remote", base)
		f.session.applyRemoteProfile(ctx, &dto)

		p, err := f.profileRepo.GetByID(ctx, "local-1")
		require.NoError(t, err)
		assert.Equal(t, "Fresh local", p.Name)
		assert.False(t, p.Dirty)
		assert.Equal(t, "Fresh local", store.profiles["prof-r1"].Name)
	})

	t.Run("remote tombstone beats newer dirty local", func(t *testing.T) {
		store := newFakeRemoteStore()
		f := newSyncFixture(store)
		require.NoError(t, f.profileRepo.Save(ctx, &models.Profile{
			Id:        "local-1",
			RemoteId:  "prof-r1",
			Name:      "Mom",
			OwnerId:   "alice",
			Members:   map[string]models.Role{"alice": models.RoleOwner},
			Dirty:     true,
			UpdatedAt: base.Add(time.Minute),
		}))

		// Deleted on another device, before the local edit.
		dto := remoteProfile("prof-r1", "alice", "Mom", base)
		dto.Deleted = true
		f.session.applyRemoteProfile(ctx, &dto)

		p, err := f.profileRepo.GetByID(ctx, "local-1")
		require.NoError(t, err)
		assert.True(t, p.Deleted)
		assert.False(t, p.Dirty)
		assert.Equal(t, 0, store.upsertedProfiles)
	})

	t.Run("tie favors remote", func(t *testing.T) {
		store := newFakeRemoteStore()
		f := newSyncFixture(store)
		require.NoError(t, f.profileRepo.Save(ctx, &models.Profile{
			Id:        "local-1",
			RemoteId:  "prof-r1",
			Name:      "Local",
			OwnerId:   "alice",
			Members:   map[string]models.Role{"alice": models.RoleOwner},
			Dirty:     true,
			UpdatedAt: base,
		}))

		dto := remoteProfile("prof-r1", "alice", "Remote", base)
		f.session.applyRemoteProfile(ctx, &dto)

		p, err := f.profileRepo.GetByID(ctx, "local-1")
		require.NoError(t, err)
		assert.Equal(t, "Remote", p.Name)
		assert.Equal(t, 0, store.upsertedProfiles)
	})
}

func TestSync_CollapsesDuplicateByOwnerAndName(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	store := newFakeRemoteStore()
	f := newSyncFixture(store)

	// Locally-born profile that never got its remote id recorded, for
	// example after a crash between upsert and MarkSynced.
	require.NoError(t, f.profileRepo.Save(ctx, &models.Profile{
		Id:        "local-1",
		Name:      "Mom",
		OwnerId:   "alice",
		Members:   map[string]models.Role{"alice": models.RoleOwner},
		Dirty:     true,
		UpdatedAt: base,
	}))

	dto := remoteProfile("prof-r1", "alice", "Mom", base.Add(time.Minute))
	f.session.applyRemoteProfile(ctx, &dto)

	all, err := f.profileRepo.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "local-1", all[0].Id)
	assert.Equal(t, "prof-r1", all[0].RemoteId)
	assert.False(t, all[0].Dirty)
}

func TestSync_BindsRemoteIdBeforePushingNewerLocal(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	store := newFakeRemoteStore()
	store.profiles["prof-r1"] = remoteProfile("prof-r1", "alice", "Mom", base)
	f := newSyncFixture(store)

	// Locally-born row without a remote id, edited after the remote copy
	// was written. The snapshot matches it by owner and name, and the push
	// must update the existing document rather than mint a second one.
	require.NoError(t, f.profileRepo.Save(ctx, &models.Profile{
		Id:        "local-1",
		Name:      "Mom",
		OwnerId:   "alice",
		Members:   map[string]models.Role{"alice": models.RoleOwner},
		Dirty:     true,
		UpdatedAt: base.Add(time.Minute),
	}))

	dto := remoteProfile("prof-r1", "alice", "Mom", base)
	f.session.applyRemoteProfile(ctx, &dto)

	p, err := f.profileRepo.GetByID(ctx, "local-1")
	require.NoError(t, err)
	assert.Equal(t, "prof-r1", p.RemoteId)
	assert.False(t, p.Dirty)
	assert.Len(t, store.profiles, 1)
}

func TestSync_PushDirty(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	store := newFakeRemoteStore()
	f := newSyncFixture(store)

	require.NoError(t, f.profileRepo.Save(ctx, &models.Profile{
		Id:        "local-p",
		Name:      "Mom",
		OwnerId:   "alice",
		Members:   map[string]models.Role{"alice": models.RoleOwner},
		Dirty:     true,
		UpdatedAt: base,
	}))
	require.NoError(t, f.medRepo.Save(ctx, &models.Medication{
		Id:        "local-m",
		ProfileId: "local-p",
		Name:      "Lisinopril",
		Form:      models.FormTablet,
		Times:     []models.TimeOfDay{{Hour: 8}},
		StartDate: models.NewDate(2026, time.March, 1),
		Active:    true,
		Dirty:     true,
		UpdatedAt: base,
	}))
	require.NoError(t, f.intakeRepo.Save(ctx, &models.Intake{
		Id:           "local-i",
		MedicationId: "local-m",
		ProfileId:    "local-p",
		PlannedAt:    base,
		Status:       models.IntakePlanned,
		Dirty:        true,
		UpdatedAt:    base,
	}))

	// One pass pushes parents before children, so the whole tree lands.
	f.session.pushDirty(ctx)

	p, err := f.profileRepo.GetByID(ctx, "local-p")
	require.NoError(t, err)
	require.NotEmpty(t, p.RemoteId)
	assert.False(t, p.Dirty)

	med, err := f.medRepo.GetByID(ctx, "local-m")
	require.NoError(t, err)
	require.NotEmpty(t, med.RemoteId)
	assert.Equal(t, p.RemoteId, store.medications[med.RemoteId].ProfileId)

	intake, err := f.intakeRepo.GetByID(ctx, "local-i")
	require.NoError(t, err)
	require.NotEmpty(t, intake.RemoteId)
	assert.Equal(t, med.RemoteId, store.intakes[intake.RemoteId].MedicationId)

	t.Run("second pass pushes nothing", func(t *testing.T) {
		before := store.upsertedProfiles
		f.session.pushDirty(ctx)
		assert.Equal(t, before, store.upsertedProfiles)
	})
}

func TestSync_TwoDevicesConverge(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	store := newFakeRemoteStore()
	deviceA := newSyncFixture(store)
	deviceB := newSyncFixture(store)

	// Device A creates a profile with a medication and pushes.
	require.NoError(t, deviceA.profileRepo.Save(ctx, &models.Profile{
		Id:        "a-p",
		Name:      "Mom",
		OwnerId:   "alice",
		Members:   map[string]models.Role{"alice": models.RoleOwner},
		Dirty:     true,
		UpdatedAt: base,
	}))
	require.NoError(t, deviceA.medRepo.Save(ctx, &models.Medication{
		Id:        "a-m",
		ProfileId: "a-p",
		Name:      "Lisinopril",
		Form:      models.FormTablet,
		Times:     []models.TimeOfDay{{Hour: 8}},
		StartDate: models.NewDate(2026, time.March, 1),
		Active:    true,
		Dirty:     true,
		UpdatedAt: base,
	}))
	deviceA.session.pushDirty(ctx)

	// Device B pulls and sees the same tree.
	require.NoError(t, deviceB.session.pullSnapshot(ctx))
	profilesB, err := deviceB.profileRepo.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, profilesB, 1)
	medsB, err := deviceB.medRepo.GetAllByProfile(ctx, profilesB[0].Id)
	require.NoError(t, err)
	require.Len(t, medsB, 1)

	// Device B renames the profile and pushes; device A pulls the rename.
	p := profilesB[0]
	p.Name = "Mother"
	p.Dirty = true
	p.UpdatedAt = base.Add(time.Minute)
	require.NoError(t, deviceB.profileRepo.Save(ctx, &p))
	deviceB.session.pushDirty(ctx)

	require.NoError(t, deviceA.session.pullSnapshot(ctx))
	pa, err := deviceA.profileRepo.GetByID(ctx, "a-p")
	require.NoError(t, err)
	assert.Equal(t, "Mother", pa.Name)
	assert.False(t, pa.Dirty)
}

func TestSync_SkipsChildrenWithUnresolvedParents(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	store := newFakeRemoteStore()
	f := newSyncFixture(store)

	dto := remote.MedicationDTO{
		Id:        "med-r1",
		ProfileId: "prof-unknown",
		Name:      "Lisinopril",
		StartDate: "2026-03-01",
		UpdatedAt: now.UnixMilli(),
	}
	f.session.applyRemoteMedication(ctx, &dto)

	_, err := f.medRepo.GetByRemoteID(ctx, "med-r1")
	assert.Error(t, err)
}

func TestSync_DedupPass(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	store := newFakeRemoteStore()
	f := newSyncFixture(store)

	synced := &models.Profile{
		Id:        "keep",
		RemoteId:  "prof-r1",
		Name:      "Mom",
		OwnerId:   "alice",
		Members:   map[string]models.Role{"alice": models.RoleOwner},
		UpdatedAt: base,
	}
	duplicate := &models.Profile{
		Id:        "dup",
		Name:      "Mom",
		OwnerId:   "alice",
		Members:   map[string]models.Role{"alice": models.RoleOwner},
		Dirty:     true,
		UpdatedAt: base,
	}
	require.NoError(t, f.profileRepo.Save(ctx, synced))
	require.NoError(t, f.profileRepo.Save(ctx, duplicate))

	f.session.dedupProfiles(ctx)

	all, err := f.profileRepo.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
}
