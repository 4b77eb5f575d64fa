// Package cli is the interactive terminal front end: a small REPL over the
// client services, intended for development and as a reference consumer of
// the app wiring.
package cli

import (
	"bufio"
	"context"
	"log"
	"os"

	"github.com/ankravcenko/medikeep/internal/client/app"
	"github.com/ankravcenko/medikeep/internal/client/config"
)

type App struct {
	app    *app.App
	reader *bufio.Reader

	// currentProfile scopes medication commands; set by "use".
	currentProfile string
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Printf("error initializing app: %s", err.Error())
		return nil, err
	}
	return &App{app: a, reader: bufio.NewReader(os.Stdin)}, nil
}

// Run starts the sync engine in the background and enters the REPL. It
// returns when the user exits or stdin closes.
func (a *App) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		_ = a.app.Run(ctx)
	}()

	a.Root(ctx)

	if err := a.app.Close(); err != nil {
		log.Printf("error closing app: %s", err.Error())
	}
}

func (a *App) isLoggedIn() bool {
	return a.app.Session.Current() != nil
}

func (a *App) getStatus() string {
	id := a.app.Session.Current()
	if id == nil {
		return ""
	}
	s := "(" + id.Email
	if a.currentProfile != "" {
		s += " / " + a.currentProfile
	}
	return s + ")"
}
