// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/antibia/hrchat-tui/internal/model"
	"github.com/antibia/hrchat-tui/internal/realtime"
	"github.com/antibia/hrchat-tui/internal/ui/styles"
	"github.com/antibia/hrchat-tui/internal/util"
)

// StatusBar is the bottom line: connection state, signed-in user and key
// hints.
type StatusBar struct {
	theme *styles.Theme
	width int

	state realtime.State
	user  *model.User
}

// NewStatusBar creates the status bar.
func NewStatusBar(theme *styles.Theme) *StatusBar {
	return &StatusBar{theme: theme, state: realtime.StateClosed}
}

// SetWidth records the terminal width.
func (s *StatusBar) SetWidth(width int) { s.width = width }

// SetConnectionState updates the connection indicator.
func (s *StatusBar) SetConnectionState(state realtime.State) { s.state = state }

// SetUser updates the signed-in user display.
func (s *StatusBar) SetUser(user *model.User) { s.user = user }

// View renders the bar.
func (s *StatusBar) View() string {
	conn := s.connIndicator()

	who := ""
	if s.user != nil {
		who = util.TruncateWidth(s.user.Name, 24)
	}

	hints := strings.Join([]string{
		s.theme.ShortcutKey.Render("tab") + s.theme.ShortcutDesc.Render(" actions"),
		s.theme.ShortcutKey.Render("ctrl+l") + s.theme.ShortcutDesc.Render(" déconnexion"),
		s.theme.ShortcutKey.Render("ctrl+c") + s.theme.ShortcutDesc.Render(" quitter"),
	}, "  ")

	left := conn
	if who != "" {
		left += "  " + s.theme.ShortcutDesc.Render(who)
	}

	gap := s.width - lipgloss.Width(left) - lipgloss.Width(hints) - 2
	if gap < 1 {
		gap = 1
	}
	return s.theme.StatusBar.Width(s.width).Render(left + strings.Repeat(" ", gap) + hints)
}

func (s *StatusBar) connIndicator() string {
	switch s.state {
	case realtime.StateOpen:
		return s.theme.ConnOpen.Render(styles.StatusIndicators.Active + " en ligne")
	case realtime.StateConnecting:
		return s.theme.ConnReconnecting.Render(styles.StatusIndicators.Pending + " connexion")
	case realtime.StateReconnecting:
		return s.theme.ConnReconnecting.Render(styles.StatusIndicators.Warning + " reconnexion")
	default:
		return s.theme.ConnClosed.Render(styles.StatusIndicators.Error + " hors ligne")
	}
}
