// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// View renders the active screen.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "chargement..."
	}
	if m.view == viewLogin {
		return m.loginView()
	}
	return m.chatView()
}

// loginView centers the credential form.
func (m *Model) loginView() string {
	return lipgloss.Place(m.width, m.height,
		lipgloss.Center, lipgloss.Center,
		m.login.View())
}

// chatView stacks header, transcript, spinner, actions, input and status
// bar.
func (m *Model) chatView() string {
	var b strings.Builder

	b.WriteString(m.header.View())
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")

	if line := m.spinner.View(); line != "" {
		b.WriteString(line)
	} else if m.toast != "" {
		b.WriteString(m.theme.ErrorMessage.Render(m.toast))
	}
	b.WriteString("\n")

	b.WriteString(m.actions.View())
	b.WriteString("\n")
	inputLine := m.theme.InputPrompt.Render("> ") + m.input.View()
	if n := len([]rune(m.input.Value())); n > m.input.CharLimit*3/4 {
		inputLine += m.theme.BubbleMeta.Render(fmt.Sprintf(" %d/%d", n, m.input.CharLimit))
	}
	b.WriteString(m.theme.InputContainer.Width(m.width - 2).Render(inputLine))
	b.WriteString("\n")
	b.WriteString(m.statusBar.View())

	return b.String()
}
