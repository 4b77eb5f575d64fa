// Package httpapi is the server's public HTTP surface: account endpoints,
// the per-profile document API the sync protocol runs over, the sharing
// invitation endpoints and the websocket change feed.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/ankravcenko/medikeep/internal/logging"
	"github.com/ankravcenko/medikeep/internal/server/models"
	"github.com/ankravcenko/medikeep/internal/server/services"
	"github.com/gorilla/mux"
)

// Service surfaces the handlers depend on. The concrete implementations
// live in the services package; tests substitute fakes.

type userService interface {
	Register(ctx context.Context, email, password string) (*models.User, error)
	Login(ctx context.Context, email, password string) (*services.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	UserIDFromToken(token string) (string, error)
}

type documentService interface {
	UpsertProfile(ctx context.Context, actorID string, in *models.Profile) (*models.Profile, error)
	ListProfiles(ctx context.Context, actorID string) ([]models.Profile, error)
	GetProfile(ctx context.Context, actorID, profileID string) (*models.Profile, error)
	UpsertMedication(ctx context.Context, actorID, profileID string, in *models.Medication) (*models.Medication, error)
	ListMedications(ctx context.Context, actorID, profileID string) ([]models.Medication, error)
	UpsertIntake(ctx context.Context, actorID, profileID string, in *models.Intake) (*models.Intake, error)
	ListIntakes(ctx context.Context, actorID, profileID string) ([]models.Intake, error)
}

type invitationService interface {
	Create(ctx context.Context, actorID, profileID, role string) (*models.Invitation, error)
	Get(ctx context.Context, id string) (*models.Invitation, error)
	Accept(ctx context.Context, actorID, id, token string) (string, error)
	Cancel(ctx context.Context, actorID, id string) error
}

type Server struct {
	addr        string
	log         logging.Logger
	users       userService
	documents   documentService
	invitations invitationService
	hub         *Hub

	httpServer *http.Server
}

func NewServer(addr string, log logging.Logger, users userService, documents documentService, invitations invitationService, hub *Hub) *Server {
	s := &Server{
		addr:        addr,
		log:         log,
		users:       users,
		documents:   documents,
		invitations: invitations,
		hub:         hub,
	}
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/auth/register", s.handleRegister).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/login", s.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/refresh", s.handleRefresh).Methods(http.MethodPost)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.authMiddleware)

	api.HandleFunc("/profiles", s.handleListProfiles).Methods(http.MethodGet)
	api.HandleFunc("/profiles", s.handleUpsertProfile).Methods(http.MethodPost)
	api.HandleFunc("/profiles/{id}", s.handleGetProfile).Methods(http.MethodGet)
	api.HandleFunc("/profiles/{id}/medications", s.handleListMedications).Methods(http.MethodGet)
	api.HandleFunc("/profiles/{id}/medications", s.handleUpsertMedication).Methods(http.MethodPost)
	api.HandleFunc("/profiles/{id}/intakes", s.handleListIntakes).Methods(http.MethodGet)
	api.HandleFunc("/profiles/{id}/intakes", s.handleUpsertIntake).Methods(http.MethodPost)

	api.HandleFunc("/invitations", s.handleCreateInvitation).Methods(http.MethodPost)
	api.HandleFunc("/invitations/{id}", s.handleGetInvitation).Methods(http.MethodGet)
	api.HandleFunc("/invitations/{id}", s.handleCancelInvitation).Methods(http.MethodDelete)
	api.HandleFunc("/invitations/{id}/accept", s.handleAcceptInvitation).Methods(http.MethodPost)

	if s.hub != nil {
		api.HandleFunc("/ws", s.hub.serveWS).Methods(http.MethodGet)
	}

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info(ctx, "http server listening", "addr", s.addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}
