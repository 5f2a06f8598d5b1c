// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/antibia/hrchat-tui/internal/api"
	"github.com/antibia/hrchat-tui/internal/auth"
	"github.com/antibia/hrchat-tui/internal/config"
	"github.com/antibia/hrchat-tui/internal/hr"
	"github.com/antibia/hrchat-tui/internal/model"
	"github.com/antibia/hrchat-tui/internal/realtime"
	"github.com/antibia/hrchat-tui/internal/store"
)

// newTestModel builds a model against an unreachable backend. Commands
// are never executed in these tests; only Update logic is exercised.
func newTestModel(t *testing.T) *Model {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Backend.WSURL = "ws://localhost:1/ws"
	cfg.Storage.Dir = t.TempDir()

	logger := zerolog.Nop()
	client := api.NewClient("http://localhost:1")
	tokens := store.NewTokenStore(store.NewMemoryKV())
	session := auth.NewSession(client, tokens, logger)

	return New(Deps{
		Config:  cfg,
		Logger:  logger,
		Client:  client,
		Session: session,
		HR:      hr.NewService(client, logger),
	})
}

func TestNew_StartsOnLoginView(t *testing.T) {
	m := newTestModel(t)
	if m.view != viewLogin {
		t.Errorf("view = %v, want login", m.view)
	}
}

func TestResize_MakesViewportReady(t *testing.T) {
	m := newTestModel(t)
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	if !m.ready {
		t.Error("resize should mark the model ready")
	}
	if m.viewport.Width != 100 {
		t.Errorf("viewport width = %d", m.viewport.Width)
	}
}

func TestChannelEvent_MessageAppendsToTranscript(t *testing.T) {
	m := newTestModel(t)
	m.resize(100, 40)
	m.view = viewChat

	msg := model.NewBotMessage("bonjour")
	m.Update(channelEventMsg{note: realtime.Notification{
		Kind:    realtime.KindMessage,
		Message: msg,
	}})

	if len(m.messages) != 1 || m.messages[0].Content != "bonjour" {
		t.Errorf("transcript = %+v", m.messages)
	}
}

func TestChannelEvent_BotActionsReachPanel(t *testing.T) {
	m := newTestModel(t)
	m.resize(100, 40)
	m.view = viewChat

	msg := model.NewBotMessage("voilà")
	msg.Actions = []model.QuickAction{{Label: "Suite", Action: model.ActionHelp}}
	m.Update(channelEventMsg{note: realtime.Notification{
		Kind:    realtime.KindMessage,
		Message: msg,
	}})

	if m.actions.Selected().Label != "Suite" {
		t.Errorf("panel action = %+v", m.actions.Selected())
	}
}

func TestChannelEvent_StateChangeUpdatesStatusBar(t *testing.T) {
	m := newTestModel(t)
	m.resize(100, 40)
	m.view = viewChat

	m.Update(channelEventMsg{note: realtime.Notification{
		Kind:  realtime.KindStateChange,
		State: realtime.StateReconnecting,
	}})

	if out := m.statusBar.View(); !strings.Contains(out, "reconnexion") {
		t.Errorf("status bar = %q", out)
	}
}

func TestSessionEvent_AnonymousLeavesChat(t *testing.T) {
	m := newTestModel(t)
	m.resize(100, 40)
	m.view = viewChat
	m.messages = []*model.Message{model.NewBotMessage("x")}

	m.Update(sessionEventMsg{event: auth.Event{
		State: auth.StateAnonymous,
		Err:   api.ErrSessionExpired,
	}})

	if m.view != viewLogin {
		t.Error("forced logout should return to the login view")
	}
	if len(m.messages) != 0 {
		t.Error("transcript should be cleared on logout")
	}
	if out := m.login.View(); !strings.Contains(out, "session expirée") {
		t.Error("forced logout should explain itself on the form")
	}
}

func TestHistoryLoaded_PrependsAndDedupes(t *testing.T) {
	m := newTestModel(t)
	m.resize(100, 40)
	m.view = viewChat

	live := model.NewBotMessage("bienvenue")
	m.messages = []*model.Message{live}

	cached := model.NewUserMessage("question d'hier")
	m.Update(historyLoadedMsg{messages: []*model.Message{cached, live}})

	if len(m.messages) != 2 {
		t.Fatalf("transcript length = %d, want 2", len(m.messages))
	}
	if m.messages[0].ID != cached.ID || m.messages[1].ID != live.ID {
		t.Error("cached messages should come first, duplicates skipped")
	}
}

func TestTab_TogglesFocusBetweenInputAndActions(t *testing.T) {
	m := newTestModel(t)
	m.resize(100, 40)
	m.view = viewChat

	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	if m.focus != focusActions || !m.actions.Focused() {
		t.Error("tab should focus the action panel")
	}

	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	if m.focus != focusInput || m.actions.Focused() {
		t.Error("tab again should focus the input")
	}
}

func TestLoginErrorText(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{api.ErrAuthFailed, "identifiants invalides"},
		{api.ErrNetwork, "serveur injoignable, réessayez"},
		{api.ErrValidation, "email ou mot de passe manquant"},
		{errors.New("boom"), "connexion impossible"},
	}
	for _, tt := range tests {
		if got := loginErrorText(tt.err); got != tt.want {
			t.Errorf("loginErrorText(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestLoginResult_FailureShowsError(t *testing.T) {
	m := newTestModel(t)
	m.resize(100, 40)

	m.Update(loginResultMsg{err: api.ErrAuthFailed})
	if m.view != viewLogin {
		t.Error("failed login must stay on the login view")
	}
	if out := m.login.View(); !strings.Contains(out, "identifiants invalides") {
		t.Error("login failure should render on the form")
	}
}
