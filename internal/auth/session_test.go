// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/antibia/hrchat-tui/internal/api"
	"github.com/antibia/hrchat-tui/internal/model"
	"github.com/antibia/hrchat-tui/internal/store"
)

// authBackend is a minimal HR backend for session tests. Refreshes are
// rejected unless refreshOK is set.
type authBackend struct {
	mu          sync.Mutex
	validAccess map[string]bool
	refreshOK   bool
	logoutCalls int
}

func newAuthBackend() *authBackend {
	return &authBackend{validAccess: map[string]bool{"access-A": true}}
}

func (b *authBackend) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var creds map[string]string
		json.NewDecoder(r.Body).Decode(&creds)
		if creds["password"] != "demo123" {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "invalid credentials"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"data": map[string]any{
				"accessToken":  "access-A",
				"refreshToken": "refresh-A",
				"user":         map[string]string{"id": "u1", "name": "Marie Dupont", "email": creds["email"]},
			},
		})
	})

	mux.HandleFunc("/api/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.logoutCalls++
		b.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	})

	mux.HandleFunc("/api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		ok := b.refreshOK
		if ok {
			b.validAccess["access-B"] = true
		}
		b.mu.Unlock()
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "refresh token expired"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"data":    map[string]string{"accessToken": "access-B", "refreshToken": "refresh-B"},
		})
	})

	mux.HandleFunc("/api/auth/profile", func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		b.mu.Lock()
		valid := b.validAccess[token]
		b.mu.Unlock()
		if !valid {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "token expired"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"data":    map[string]string{"id": "u1", "name": "Marie Dupont", "email": "marie@example.com", "department": "Engineering"},
		})
	})

	return mux
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func newTestSession(t *testing.T, backend *authBackend) (*Session, *store.TokenStore) {
	t.Helper()
	server := httptest.NewServer(backend.handler())
	t.Cleanup(server.Close)

	tokens := store.NewTokenStore(store.NewMemoryKV())
	client := api.NewClient(server.URL)
	return NewSession(client, tokens, zerolog.Nop()), tokens
}

// =============================================================================
// LOGIN / LOGOUT
// =============================================================================

func TestLogin_Authenticates(t *testing.T) {
	session, tokens := newTestSession(t, newAuthBackend())

	user, err := session.Login(context.Background(), "marie@example.com", "demo123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if session.State() != StateAuthenticated {
		t.Errorf("state = %q", session.State())
	}
	if user == nil || user.ID != "u1" {
		t.Errorf("user = %+v", user)
	}

	pair, _, ok := tokens.Load()
	if !ok || pair.AccessToken != "access-A" {
		t.Error("login should persist the credential pair")
	}
}

func TestLogin_RejectedStaysAnonymous(t *testing.T) {
	session, tokens := newTestSession(t, newAuthBackend())

	_, err := session.Login(context.Background(), "marie@example.com", "wrong")
	if !errors.Is(err, api.ErrAuthFailed) {
		t.Fatalf("err = %v, want ErrAuthFailed", err)
	}
	if session.State() != StateAnonymous {
		t.Errorf("state = %q, want anonymous after rejection", session.State())
	}
	if _, _, ok := tokens.Load(); ok {
		t.Error("rejected login must not persist anything")
	}
}

func TestLogout_ClearsEvenWhenServerUnreachable(t *testing.T) {
	tokens := store.NewTokenStore(store.NewMemoryKV())
	client := api.NewClient("http://127.0.0.1:1") // nothing listens here
	session := NewSession(client, tokens, zerolog.Nop())

	if err := tokens.Save(model.TokenPair{AccessToken: "a", RefreshToken: "r"}, &model.User{ID: "u1"}); err != nil {
		t.Fatal(err)
	}
	if !session.RestoreFromStorage() {
		t.Fatal("restore should succeed")
	}

	session.Logout(context.Background())

	if session.State() != StateAnonymous {
		t.Errorf("state = %q, want anonymous", session.State())
	}
	if _, _, ok := tokens.Load(); ok {
		t.Error("logout must clear storage even when the backend is down")
	}
	if client.Tokens().Valid() {
		t.Error("logout must clear the client's tokens")
	}
}

// =============================================================================
// RESTORE
// =============================================================================

func TestRestore_NothingStored(t *testing.T) {
	session, _ := newTestSession(t, newAuthBackend())

	if session.RestoreFromStorage() {
		t.Error("restore with empty storage should report false")
	}
	if session.State() != StateAnonymous {
		t.Errorf("state = %q", session.State())
	}
}

func TestRestore_OptimisticThenVerified(t *testing.T) {
	backend := newAuthBackend()
	session, tokens := newTestSession(t, backend)

	cached := &model.User{ID: "u1", Name: "Marie Dupont"}
	if err := tokens.Save(model.TokenPair{AccessToken: "access-A", RefreshToken: "refresh-A"}, cached); err != nil {
		t.Fatal(err)
	}

	if !session.RestoreFromStorage() {
		t.Fatal("restore should succeed")
	}
	if session.State() != StateAuthenticated {
		t.Error("restore should be optimistic: authenticated before verification")
	}

	if err := session.VerifyProfile(context.Background()); err != nil {
		t.Fatalf("VerifyProfile: %v", err)
	}
	if user := session.User(); user == nil || user.Department != "Engineering" {
		t.Errorf("verified user = %+v, want backend profile", user)
	}
}

func TestRestore_ExpiredTokensForceLogout(t *testing.T) {
	backend := newAuthBackend()
	backend.validAccess = map[string]bool{} // stored token no longer accepted
	session, tokens := newTestSession(t, backend)

	if err := tokens.Save(model.TokenPair{AccessToken: "access-stale", RefreshToken: "refresh-stale"}, &model.User{ID: "u1"}); err != nil {
		t.Fatal(err)
	}

	var events []Event
	var mu sync.Mutex
	session.Subscribe(func(e Event) {
		mu.Lock()
		events = append(events, e)
		mu.Unlock()
	})

	if !session.RestoreFromStorage() {
		t.Fatal("restore should be optimistic")
	}

	// Verification hits 401, refresh is rejected, session voids.
	err := session.VerifyProfile(context.Background())
	if !errors.Is(err, api.ErrSessionExpired) {
		t.Fatalf("err = %v, want ErrSessionExpired", err)
	}
	if session.State() != StateAnonymous {
		t.Errorf("state = %q, want anonymous after forced logout", session.State())
	}
	if _, _, ok := tokens.Load(); ok {
		t.Error("forced logout must clear storage")
	}

	mu.Lock()
	defer mu.Unlock()
	last := events[len(events)-1]
	if last.State != StateAnonymous || !errors.Is(last.Err, api.ErrSessionExpired) {
		t.Errorf("last event = %+v, want anonymous with ErrSessionExpired", last)
	}
}

func TestRefresh_RejectedForcesLogout(t *testing.T) {
	backend := newAuthBackend()
	session, tokens := newTestSession(t, backend)

	if _, err := session.Login(context.Background(), "marie@example.com", "demo123"); err != nil {
		t.Fatal(err)
	}

	// The backend rejects every refresh, so a proactive rotation voids
	// the session.
	err := session.Refresh(context.Background())
	if !errors.Is(err, api.ErrSessionExpired) {
		t.Fatalf("err = %v, want ErrSessionExpired", err)
	}
	if session.State() != StateAnonymous {
		t.Errorf("state = %q, want anonymous", session.State())
	}
	if _, _, ok := tokens.Load(); ok {
		t.Error("rejected refresh must clear storage")
	}
}

func TestRefresh_NotifiesRotationListeners(t *testing.T) {
	backend := newAuthBackend()
	backend.refreshOK = true
	session, tokens := newTestSession(t, backend)

	if _, err := session.Login(context.Background(), "marie@example.com", "demo123"); err != nil {
		t.Fatal(err)
	}

	var rotated model.TokenPair
	var mu sync.Mutex
	session.OnTokenRotation(func(pair model.TokenPair) {
		mu.Lock()
		rotated = pair
		mu.Unlock()
	})

	if err := session.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	mu.Lock()
	got := rotated
	mu.Unlock()
	if got.AccessToken != "access-B" || got.RefreshToken != "refresh-B" {
		t.Errorf("rotation listener got %+v, want rotated pair", got)
	}

	pair, _, ok := tokens.Load()
	if !ok || pair.AccessToken != "access-B" {
		t.Error("rotated pair should be persisted before listeners run")
	}
}

// =============================================================================
// LISTENERS
// =============================================================================

func TestSubscribe_SeesTransitions(t *testing.T) {
	session, _ := newTestSession(t, newAuthBackend())

	var states []State
	var mu sync.Mutex
	session.Subscribe(func(e Event) {
		mu.Lock()
		states = append(states, e.State)
		mu.Unlock()
	})

	if _, err := session.Login(context.Background(), "marie@example.com", "demo123"); err != nil {
		t.Fatal(err)
	}
	session.Logout(context.Background())

	mu.Lock()
	defer mu.Unlock()
	want := []State{StateAuthenticating, StateAuthenticated, StateAnonymous}
	if len(states) != len(want) {
		t.Fatalf("states = %v, want %v", states, want)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Errorf("states[%d] = %q, want %q", i, states[i], want[i])
		}
	}
}
