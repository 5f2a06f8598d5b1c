// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/antibia/hrchat-tui/internal/model"
)

// requestTimeout bounds the backend calls issued from commands.
const requestTimeout = 15 * time.Second

// loginCmd performs the login call off the update loop.
func (m *Model) loginCmd(email, password string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		user, err := m.session.Login(ctx, email, password)
		return loginResultMsg{user: user, err: err}
	}
}

// verifyProfileCmd confirms a restored session against the backend.
func (m *Model) verifyProfileCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return profileVerifiedMsg{err: m.session.VerifyProfile(ctx)}
	}
}

// logoutCmd signs out and reports completion.
func (m *Model) logoutCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		m.session.Logout(ctx)
		return logoutDoneMsg{}
	}
}

// openChannelCmd dials the realtime channel.
func (m *Model) openChannelCmd() tea.Cmd {
	channel := m.channel
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return channelOpenedMsg{err: channel.Connect(ctx)}
	}
}

// waitChannelCmd blocks until the channel emits a notification. The
// update loop re-issues it after every event, keeping exactly one reader.
func (m *Model) waitChannelCmd() tea.Cmd {
	channel := m.channel
	return func() tea.Msg {
		note, ok := <-channel.Notifications()
		if !ok {
			return nil
		}
		return channelEventMsg{note: note}
	}
}

// waitSessionCmd blocks until the auth session reports a transition.
func (m *Model) waitSessionCmd() tea.Cmd {
	events := m.sessionEvents
	return func() tea.Msg {
		event, ok := <-events
		if !ok {
			return nil
		}
		return sessionEventMsg{event: event}
	}
}

// loadHistoryCmd backfills the transcript from the local cache.
func (m *Model) loadHistoryCmd() tea.Cmd {
	if m.history == nil {
		return nil
	}
	store, conv := m.history, m.cfg.Chat.ConversationID
	return func() tea.Msg {
		msgs, err := store.Recent(conv, 100)
		if err != nil {
			return toastMsg{text: "historique local indisponible"}
		}
		return historyLoadedMsg{messages: msgs}
	}
}

// persistMessageCmd writes one message to the local cache, silently.
func (m *Model) persistMessageCmd(msg *model.Message) tea.Cmd {
	if m.history == nil {
		return nil
	}
	store, conv := m.history, m.cfg.Chat.ConversationID
	return func() tea.Msg {
		if err := store.Append(conv, msg); err != nil {
			m.logger.Warn().Err(err).Msg("history append failed")
		}
		return nil
	}
}

// refreshDashboardCmd fetches the HR snapshot sections for the cards.
func (m *Model) refreshDashboardCmd() tea.Cmd {
	svc := m.hr
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		// Failures keep last-known values; the snapshot carries staleness.
		svc.RefreshBalance(ctx)
		svc.RefreshPayslips(ctx)
		svc.RefreshTrainings(ctx)
		return dashboardMsg{snapshot: svc.Snapshot()}
	}
}
