// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/antibia/hrchat-tui/internal/api"
	"github.com/antibia/hrchat-tui/internal/auth"
	"github.com/antibia/hrchat-tui/internal/model"
	"github.com/antibia/hrchat-tui/internal/realtime"
)

// Update is the single message handler of the program.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case loginResultMsg:
		return m.handleLoginResult(msg)

	case profileVerifiedMsg:
		if msg.err != nil && !errors.Is(msg.err, api.ErrSessionExpired) {
			// Transient failure: the optimistic session stays; the forced
			// logout path handles the expired case through session events.
			m.toast = "profil non vérifié, mode hors ligne possible"
		} else if msg.err == nil {
			m.statusBar.SetUser(m.session.User())
		}
		return m, nil

	case channelOpenedMsg:
		if msg.err != nil && !errors.Is(msg.err, realtime.ErrChannelClosed) {
			m.toast = "connexion temps réel impossible"
		}
		return m, nil

	case channelEventMsg:
		return m.handleChannelEvent(msg)

	case sessionEventMsg:
		return m.handleSessionEvent(msg)

	case historyLoadedMsg:
		return m.handleHistoryLoaded(msg)

	case dashboardMsg:
		m.snapshot = msg.snapshot
		m.refreshViewport()
		return m, nil

	case toastMsg:
		m.toast = msg.text
		return m, nil

	case logoutDoneMsg:
		// The session event already switched the view; nothing left to do.
		return m, nil
	}

	// Everything else (spinner ticks, cursor blinks) goes to the
	// components of the active view.
	var cmds []tea.Cmd
	if cmd := m.spinner.Update(msg); cmd != nil {
		cmds = append(cmds, cmd)
	}
	if m.view == viewLogin {
		if cmd := m.login.Update(msg); cmd != nil {
			cmds = append(cmds, cmd)
		}
	} else {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		if cmd != nil {
			cmds = append(cmds, cmd)
		}
	}
	return m, tea.Batch(cmds...)
}

// =============================================================================
// KEYS
// =============================================================================

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, keys.Quit) {
		m.quitting = true
		if m.channel != nil {
			m.channel.Close()
		}
		return m, tea.Quit
	}

	if m.view == viewLogin {
		return m.handleLoginKey(msg)
	}
	return m.handleChatKey(msg)
}

func (m *Model) handleLoginKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Tab):
		m.login.CycleFocus()
		return m, nil
	case key.Matches(msg, keys.Submit):
		if m.login.Busy() || !m.login.Complete() {
			return m, nil
		}
		email, password := m.login.Values()
		m.login.SetBusy(true)
		return m, m.loginCmd(email, password)
	}
	return m, m.login.Update(msg)
}

func (m *Model) handleChatKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Logout):
		return m, m.logoutCmd()

	case key.Matches(msg, keys.Dashboard):
		m.showDashboard = !m.showDashboard
		m.refreshViewport()
		return m, nil

	case key.Matches(msg, keys.Tab):
		if m.focus == focusInput {
			m.focus = focusActions
			m.input.Blur()
			m.actions.Focus()
		} else {
			m.focus = focusInput
			m.actions.Blur()
			m.input.Focus()
		}
		return m, nil
	}

	if m.focus == focusActions {
		switch {
		case key.Matches(msg, keys.Left):
			m.actions.Prev()
			return m, nil
		case key.Matches(msg, keys.Right):
			m.actions.Next()
			return m, nil
		case key.Matches(msg, keys.Escape):
			m.focus = focusInput
			m.actions.Blur()
			m.input.Focus()
			return m, nil
		case key.Matches(msg, keys.Submit):
			return m.fireAction(m.actions.Selected())
		}
		return m, nil
	}

	if key.Matches(msg, keys.Submit) {
		return m.sendInput()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// sendInput submits the typed message over the channel.
func (m *Model) sendInput() (tea.Model, tea.Cmd) {
	if m.channel == nil {
		return m, nil
	}
	content := m.input.Value()

	// The optimistic append reaches the transcript through the channel's
	// own notification; only the error matters here.
	_, err := m.channel.SendMessage(content)
	switch {
	case errors.Is(err, realtime.ErrEmptyMessage):
		return m, nil
	case errors.Is(err, realtime.ErrNotOpen):
		m.toast = "hors ligne : message non envoyé"
		return m, nil
	case errors.Is(err, realtime.ErrRateLimited):
		m.toast = "trop de messages, patientez un instant"
		return m, nil
	}

	m.input.SetValue("")
	m.toast = ""
	if err != nil {
		// Buffer full: the message is in the transcript but may not reach
		// the server.
		m.toast = "envoi retardé, connexion saturée"
	}
	return m, m.spinner.Start("")
}

// fireAction runs the selected quick action.
func (m *Model) fireAction(action model.QuickAction) (tea.Model, tea.Cmd) {
	if m.channel == nil || action.Action == "" {
		return m, nil
	}
	if err := m.channel.ExecuteAction(action.Action, action.Params); err != nil {
		if errors.Is(err, realtime.ErrNotOpen) {
			m.toast = "hors ligne : action indisponible"
		} else {
			m.toast = "action non envoyée"
		}
		return m, nil
	}
	m.toast = ""
	return m, m.spinner.Start("Action en cours")
}

// =============================================================================
// ASYNC RESULTS
// =============================================================================

func (m *Model) handleLoginResult(msg loginResultMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.login.SetError(loginErrorText(msg.err))
		return m, nil
	}

	m.view = viewChat
	m.statusBar.SetUser(msg.user)
	m.input.Focus()
	return m, tea.Batch(m.enterChat()...)
}

func (m *Model) handleChannelEvent(msg channelEventMsg) (tea.Model, tea.Cmd) {
	cmds := []tea.Cmd{m.waitChannelCmd()}

	note := msg.note
	switch note.Kind {
	case realtime.KindMessage:
		if note.Message != nil {
			if note.Message.Role != model.RoleUser {
				m.spinner.Stop()
			}
			m.appendMessage(note.Message)
			if cmd := m.persistMessageCmd(note.Message); cmd != nil {
				cmds = append(cmds, cmd)
			}
		}

	case realtime.KindStateChange:
		m.statusBar.SetConnectionState(note.State)
		if note.State == realtime.StateOpen {
			m.toast = ""
		}

	case realtime.KindLoading:
		if note.Loading {
			cmds = append(cmds, m.spinner.Start("Action en cours"))
		} else {
			m.spinner.Stop()
		}

	case realtime.KindError:
		if note.Err != nil {
			if errors.Is(note.Err, realtime.ErrReconnectFailed) {
				m.toast = "reconnexion impossible, vérifiez le réseau"
			} else {
				m.toast = note.Err.Error()
			}
		}
	}
	return m, tea.Batch(cmds...)
}

func (m *Model) handleSessionEvent(msg sessionEventMsg) (tea.Model, tea.Cmd) {
	cmds := []tea.Cmd{m.waitSessionCmd()}

	if msg.event.State == auth.StateAnonymous && m.view == viewChat {
		m.leaveChat()
		if msg.event.Err != nil {
			m.login.SetError("session expirée, veuillez vous reconnecter")
		}
	}
	return m, tea.Batch(cmds...)
}

func (m *Model) handleHistoryLoaded(msg historyLoadedMsg) (tea.Model, tea.Cmd) {
	if len(msg.messages) == 0 {
		return m, nil
	}

	// Backfill goes in front of whatever already arrived live, skipping
	// anything the live stream delivered twice.
	seen := make(map[string]bool, len(m.messages))
	for _, live := range m.messages {
		seen[live.ID] = true
	}
	var merged []*model.Message
	for _, cached := range msg.messages {
		if !seen[cached.ID] {
			merged = append(merged, cached)
		}
	}
	m.messages = append(merged, m.messages...)
	m.refreshViewport()
	return m, nil
}

// loginErrorText maps login failures to what the form shows.
func loginErrorText(err error) string {
	switch {
	case errors.Is(err, api.ErrAuthFailed):
		return "identifiants invalides"
	case errors.Is(err, api.ErrNetwork):
		return "serveur injoignable, réessayez"
	case errors.Is(err, api.ErrValidation):
		return "email ou mot de passe manquant"
	default:
		return "connexion impossible"
	}
}
