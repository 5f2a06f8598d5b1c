// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/antibia/hrchat-tui/internal/ui/styles"
)

// loginField identifies the focused input of the form.
type loginField int

const (
	fieldEmail loginField = iota
	fieldPassword
)

// LoginForm is the credential prompt shown before the chat.
type LoginForm struct {
	theme    *styles.Theme
	email    textinput.Model
	password textinput.Model
	focused  loginField
	errText  string
	busy     bool
	width    int
}

// NewLoginForm creates the form with the email field focused.
func NewLoginForm(theme *styles.Theme) *LoginForm {
	email := textinput.New()
	email.Placeholder = "prenom.nom@entreprise.fr"
	email.CharLimit = 254
	email.Width = 40
	email.Focus()

	password := textinput.New()
	password.Placeholder = "mot de passe"
	password.CharLimit = 128
	password.Width = 40
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'

	return &LoginForm{
		theme:    theme,
		email:    email,
		password: password,
	}
}

// SetWidth records the available width.
func (f *LoginForm) SetWidth(width int) { f.width = width }

// SetError displays a failure message under the form.
func (f *LoginForm) SetError(msg string) {
	f.errText = msg
	f.busy = false
}

// SetBusy marks the form as submitting: inputs keep their content but the
// button shows progress.
func (f *LoginForm) SetBusy(busy bool) { f.busy = busy }

// Busy reports whether a login attempt is in flight.
func (f *LoginForm) Busy() bool { return f.busy }

// Values returns the entered credentials.
func (f *LoginForm) Values() (email, password string) {
	return strings.TrimSpace(f.email.Value()), f.password.Value()
}

// Reset clears the password and any error, keeping the email.
func (f *LoginForm) Reset() {
	f.password.SetValue("")
	f.errText = ""
	f.busy = false
	f.focusField(fieldEmail)
}

// CycleFocus moves focus to the other field.
func (f *LoginForm) CycleFocus() {
	if f.focused == fieldEmail {
		f.focusField(fieldPassword)
	} else {
		f.focusField(fieldEmail)
	}
}

func (f *LoginForm) focusField(field loginField) {
	f.focused = field
	if field == fieldEmail {
		f.email.Focus()
		f.password.Blur()
	} else {
		f.password.Focus()
		f.email.Blur()
	}
}

// Complete reports whether both fields are filled in.
func (f *LoginForm) Complete() bool {
	email, password := f.Values()
	return email != "" && password != ""
}

// Update forwards key events to the focused input.
func (f *LoginForm) Update(msg tea.Msg) tea.Cmd {
	if f.busy {
		return nil
	}
	var cmd tea.Cmd
	if f.focused == fieldEmail {
		f.email, cmd = f.email.Update(msg)
	} else {
		f.password, cmd = f.password.Update(msg)
	}
	return cmd
}

// View renders the form.
func (f *LoginForm) View() string {
	var b strings.Builder
	b.WriteString(f.theme.LoginTitle.Render("Assistant RH — Connexion"))
	b.WriteString("\n\n")
	b.WriteString(f.theme.LoginLabel.Render("Email"))
	b.WriteString("\n")
	b.WriteString(f.email.View())
	b.WriteString("\n\n")
	b.WriteString(f.theme.LoginLabel.Render("Mot de passe"))
	b.WriteString("\n")
	b.WriteString(f.password.View())
	b.WriteString("\n\n")

	if f.busy {
		b.WriteString(f.theme.LoginHint.Render("Connexion en cours..."))
	} else {
		b.WriteString(f.theme.LoginButton.Render(" Se connecter "))
		b.WriteString("  ")
		b.WriteString(f.theme.LoginHint.Render("entrée pour valider · tab pour changer de champ"))
	}

	if f.errText != "" {
		b.WriteString("\n\n")
		b.WriteString(f.theme.LoginError.Render(styles.StatusIndicators.Error + " " + f.errText))
	}

	return f.theme.LoginBox.Render(b.String())
}
