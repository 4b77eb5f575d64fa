// Package app wires the client together: local database, backend store,
// session, use-case services and the sync engine.
package app

import (
	"context"
	"log/slog"
	"os"

	"github.com/ankravcenko/medikeep/internal/client/auth"
	"github.com/ankravcenko/medikeep/internal/client/config"
	"github.com/ankravcenko/medikeep/internal/client/remote"
	"github.com/ankravcenko/medikeep/internal/client/services"
	"github.com/ankravcenko/medikeep/internal/client/watch"
	"github.com/ankravcenko/medikeep/internal/logging"
)

// App is the composed client. The UI layer (CLI, mobile shell) talks to the
// exported services and subscribes to Watcher for refreshes.
type App struct {
	Config      *config.Config
	Log         logging.Logger
	Repos       *Repositories
	Store       remote.Store
	Session     *auth.Session
	Watcher     *watch.Watcher
	Profiles    *services.Profiles
	Medications *services.Medications
	Scheduler   *services.Scheduler
	Sharing     *services.Sharing
	Sync        *services.SyncManager
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	repos, err := InitDatabase(ctx, cfg.DatabaseFile)
	if err != nil {
		return nil, err
	}

	store := remote.NewHTTPStore(cfg.ServerBaseURL, cfg.RequestTimeout)
	watcher := watch.NewWatcher()
	session := auth.NewSession(store, repos.Metadata, log)

	var reminders services.ReminderScheduler = services.NopReminderScheduler{}

	scheduler := services.NewScheduler(repos.Intakes, reminders, watcher, log, nil)
	profiles := services.NewProfiles(repos.Profiles, watcher)
	medications := services.NewMedications(repos.Medications, repos.Intakes, repos.Profiles,
		scheduler, reminders, watcher)
	sharing := services.NewSharing(store, repos.Profiles, watcher, log)
	syncManager := services.NewSyncManager(session, store, repos.Profiles, repos.Medications,
		repos.Intakes, watcher, log)
	syncManager.SetPushInterval(cfg.PushInterval)

	return &App{
		Config:      cfg,
		Log:         log,
		Repos:       repos,
		Store:       store,
		Session:     session,
		Watcher:     watcher,
		Profiles:    profiles,
		Medications: medications,
		Scheduler:   scheduler,
		Sharing:     sharing,
		Sync:        syncManager,
	}, nil
}

// Run restores any persisted session and blocks in the sync engine until
// ctx ends.
func (a *App) Run(ctx context.Context) error {
	if err := a.Session.Restore(ctx); err != nil {
		a.Log.Warn(ctx, "no session restored", "error", err)
	}
	a.Sync.Run(ctx)
	return nil
}

func (a *App) Close() error {
	if err := a.Store.Close(); err != nil {
		return err
	}
	return a.Repos.DB.Close()
}
