// Package auth owns the client's authenticated identity: login, logout,
// token persistence and a stream of identity transitions that the sync
// engine subscribes to.
package auth

import (
	"context"
	"fmt"
	"sync"

	"github.com/ankravcenko/medikeep/internal/client/remote"
	"github.com/ankravcenko/medikeep/internal/client/repositories/metadata"
	"github.com/ankravcenko/medikeep/internal/logging"
)

const (
	keyAccessToken  = "auth.access_token"
	keyRefreshToken = "auth.refresh_token"
	keyUserId       = "auth.user_id"
	keyEmail        = "auth.email"
)

// Identity is the authenticated user, or absent (nil) when logged out.
type Identity struct {
	UserId string
	Email  string
}

// Session tracks the current identity and fans out transitions. Subscribers
// receive the identity in effect at subscription time, then every change.
type Session struct {
	store remote.Store
	meta  metadata.Repository
	log   logging.Logger

	mu      sync.Mutex
	current *Identity
	subs    map[chan *Identity]struct{}
}

func NewSession(store remote.Store, meta metadata.Repository, log logging.Logger) *Session {
	return &Session{
		store: store,
		meta:  meta,
		log:   log,
		subs:  make(map[chan *Identity]struct{}),
	}
}

// Restore loads persisted tokens so the app starts logged in across
// restarts. Missing tokens are not an error; the session just stays absent.
func (s *Session) Restore(ctx context.Context) error {
	access, err := s.meta.Get(ctx, keyAccessToken)
	if err != nil {
		return fmt.Errorf("failed to read stored token: %w", err)
	}
	if access == nil {
		return nil
	}
	refresh, err := s.meta.Get(ctx, keyRefreshToken)
	if err != nil {
		return fmt.Errorf("failed to read stored token: %w", err)
	}
	userId, err := s.meta.Get(ctx, keyUserId)
	if err != nil {
		return fmt.Errorf("failed to read stored identity: %w", err)
	}
	email, _ := s.meta.Get(ctx, keyEmail)

	s.store.SetTokens(string(access), string(refresh))
	s.publish(&Identity{UserId: string(userId), Email: string(email)})
	return nil
}

func (s *Session) Register(ctx context.Context, email, password string) error {
	if err := s.store.Register(ctx, email, password); err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}
	return nil
}

func (s *Session) Login(ctx context.Context, email, password string) error {
	pair, err := s.store.Login(ctx, email, password)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	if err := s.persist(ctx, pair, email); err != nil {
		s.log.Warn(ctx, "failed to persist session tokens", "error", err)
	}
	s.publish(&Identity{UserId: pair.UserId, Email: email})
	return nil
}

// Logout clears all persisted client state for the identity and publishes
// the absent identity, which tears down the running sync session.
func (s *Session) Logout(ctx context.Context) error {
	s.publish(nil)
	s.store.SetTokens("", "")
	if err := s.meta.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear session state: %w", err)
	}
	return nil
}

func (s *Session) Current() *Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Identities streams the current identity followed by every transition.
// The channel closes when ctx is cancelled.
func (s *Session) Identities(ctx context.Context) <-chan *Identity {
	ch := make(chan *Identity, 4)

	s.mu.Lock()
	s.subs[ch] = struct{}{}
	ch <- s.current
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, ch)
		s.mu.Unlock()
		close(ch)
	}()
	return ch
}

func (s *Session) persist(ctx context.Context, pair *remote.TokenPair, email string) error {
	if err := s.meta.Set(ctx, keyAccessToken, []byte(pair.AccessToken)); err != nil {
		return err
	}
	if err := s.meta.Set(ctx, keyRefreshToken, []byte(pair.RefreshToken)); err != nil {
		return err
	}
	if err := s.meta.Set(ctx, keyUserId, []byte(pair.UserId)); err != nil {
		return err
	}
	return s.meta.Set(ctx, keyEmail, []byte(email))
}

func (s *Session) publish(id *Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = id
	for ch := range s.subs {
		select {
		case ch <- id:
		default:
			// The subscriber is behind. Evict the oldest pending
			// transition so the latest one always lands; only the most
			// recent identity matters to a consumer.
			select {
			case <-ch:
			default:
			}
			ch <- id
		}
	}
}
