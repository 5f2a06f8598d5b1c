// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package auth coordinates the authentication lifecycle: login, logout,
// session restore, and the forced logout that follows an unrecoverable
// token refresh.
//
// The session holds the single source of truth for "who is signed in".
// State changes are pushed to subscribers; callbacks run outside the
// session lock so listeners may call back into the session.
package auth

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/antibia/hrchat-tui/internal/api"
	"github.com/antibia/hrchat-tui/internal/logging"
	"github.com/antibia/hrchat-tui/internal/model"
	"github.com/antibia/hrchat-tui/internal/store"
)

// State is the authentication state.
type State string

const (
	// StateAnonymous means no user is signed in.
	StateAnonymous State = "anonymous"
	// StateAuthenticating means a login attempt is in flight.
	StateAuthenticating State = "authenticating"
	// StateAuthenticated means a user is signed in with a valid pair.
	StateAuthenticated State = "authenticated"
)

// Event describes a session state change delivered to subscribers.
type Event struct {
	State State
	User  *model.User
	// Err carries the failure that caused the transition, if any.
	Err error
}

// Session owns the authentication state machine.
type Session struct {
	client *api.Client
	tokens *store.TokenStore
	logger zerolog.Logger

	mu        sync.Mutex
	state     State
	user      *model.User
	listeners []func(Event)
	rotations []func(model.TokenPair)
}

// NewSession creates a session over the given client and token store, and
// wires the client's refresh callbacks: rotated pairs are persisted, and a
// void session forces a local logout.
func NewSession(client *api.Client, tokens *store.TokenStore, logger zerolog.Logger) *Session {
	s := &Session{
		client: client,
		tokens: tokens,
		logger: logger.With().Str("component", "auth").Logger(),
		state:  StateAnonymous,
	}

	client.OnTokensRefreshed(func(pair model.TokenPair) {
		if err := s.tokens.SavePair(pair); err != nil {
			s.logger.Warn().Err(err).Msg("persist refreshed tokens failed")
		}
		s.notifyRotation(pair)
	})
	client.OnSessionVoid(func() {
		s.forceLogout(api.ErrSessionExpired)
	})

	return s
}

// Subscribe registers a listener for session state changes.
func (s *Session) Subscribe(fn func(Event)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// OnTokenRotation registers a listener invoked with the new credential
// pair after every successful refresh, once it has been persisted. The
// realtime channel uses this to re-key its bearer on rotation.
func (s *Session) OnTokenRotation(fn func(model.TokenPair)) {
	s.mu.Lock()
	s.rotations = append(s.rotations, fn)
	s.mu.Unlock()
}

// notifyRotation fans a rotated pair out to listeners outside the lock.
func (s *Session) notifyRotation(pair model.TokenPair) {
	s.mu.Lock()
	fns := make([]func(model.TokenPair), len(s.rotations))
	copy(fns, s.rotations)
	s.mu.Unlock()

	for _, fn := range fns {
		fn(pair)
	}
}

// State returns the current authentication state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// User returns the signed-in user, or nil when anonymous.
func (s *Session) User() *model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// =============================================================================
// LOGIN / LOGOUT
// =============================================================================

// Login authenticates with the backend and persists the session. When
// several logins race, the last one to complete wins; earlier results are
// overwritten, never merged.
func (s *Session) Login(ctx context.Context, email, password string) (*model.User, error) {
	s.transition(StateAuthenticating, nil, nil)

	pair, user, err := s.client.Login(ctx, email, password)
	if err != nil {
		s.transition(StateAnonymous, nil, err)
		return nil, err
	}

	// Persistence failure does not fail the login; the session just won't
	// survive a restart.
	if perr := s.tokens.Save(pair, user); perr != nil {
		s.logger.Warn().Err(perr).Msg("persist session failed")
	}

	s.logger.Info().
		Str("user", user.ID).
		Str("access", logging.Fingerprint(pair.AccessToken)).
		Msg("login")
	s.transition(StateAuthenticated, user, nil)
	return user, nil
}

// Logout signs out. The server call is best effort; local state and
// storage are cleared unconditionally, even when the backend is down.
func (s *Session) Logout(ctx context.Context) {
	if err := s.client.Logout(ctx); err != nil {
		s.logger.Debug().Err(err).Msg("server logout failed, clearing locally")
	}
	if err := s.tokens.Clear(); err != nil {
		s.logger.Warn().Err(err).Msg("clear token store failed")
	}
	s.logger.Info().Msg("logout")
	s.transition(StateAnonymous, nil, nil)
}

// forceLogout clears the session after an unrecoverable refresh failure.
// The server is not called; its refusal is what got us here.
func (s *Session) forceLogout(cause error) {
	s.client.ClearTokens()
	if err := s.tokens.Clear(); err != nil {
		s.logger.Warn().Err(err).Msg("clear token store failed")
	}
	s.logger.Info().Msg("session expired, forced logout")
	s.transition(StateAnonymous, nil, cause)
}

// =============================================================================
// RESTORE
// =============================================================================

// RestoreFromStorage loads a persisted session. Restoration is optimistic:
// the stored pair is trusted immediately so the UI can render, and the
// caller should follow up with VerifyProfile to confirm the tokens are
// still accepted. Returns false when nothing usable is stored.
func (s *Session) RestoreFromStorage() bool {
	pair, user, ok := s.tokens.Load()
	if !ok {
		return false
	}

	s.client.SetTokens(pair)
	s.logger.Info().
		Str("access", logging.Fingerprint(pair.AccessToken)).
		Msg("session restored from storage")
	s.transition(StateAuthenticated, user, nil)
	return true
}

// VerifyProfile confirms a restored session against the backend and
// refreshes the cached profile. An expired session comes back as a forced
// logout through the client's void callback; transient network failures
// leave the optimistic session in place.
func (s *Session) VerifyProfile(ctx context.Context) error {
	user, err := s.client.Profile(ctx)
	if err != nil {
		return err
	}

	if perr := s.tokens.Save(s.client.Tokens(), user); perr != nil {
		s.logger.Warn().Err(perr).Msg("persist verified profile failed")
	}
	s.transition(StateAuthenticated, user, nil)
	return nil
}

// Refresh rotates the token pair ahead of expiry. An unrecoverable
// failure arrives as a forced logout through the client's void callback;
// transient errors leave the session untouched.
func (s *Session) Refresh(ctx context.Context) error {
	_, err := s.client.Refresh(ctx)
	return err
}

// =============================================================================
// STATE TRANSITIONS
// =============================================================================

// transition commits a state change and notifies listeners outside the
// lock.
func (s *Session) transition(state State, user *model.User, err error) {
	s.mu.Lock()
	s.state = state
	s.user = user
	listeners := make([]func(Event), len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	evt := Event{State: state, User: user, Err: err}
	for _, fn := range listeners {
		fn(evt)
	}
}
