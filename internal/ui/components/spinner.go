// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/antibia/hrchat-tui/internal/ui/styles"
)

// Spinner is the loading indicator shown while the assistant is thinking
// or a quick action is in flight.
type Spinner struct {
	spinner   spinner.Model
	message   string
	startTime time.Time
	active    bool
	showTimer bool
	theme     *styles.Theme
}

// NewSpinner creates a spinner with ASCII-safe frames.
func NewSpinner(theme *styles.Theme) Spinner {
	s := spinner.New()
	s.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 10,
	}
	s.Style = theme.Spinner

	return Spinner{
		spinner:   s,
		message:   "L'assistant réfléchit",
		showTimer: true,
		theme:     theme,
	}
}

// Start activates the spinner and returns its tick command.
func (s *Spinner) Start(message string) tea.Cmd {
	s.active = true
	s.startTime = time.Now()
	if message != "" {
		s.message = message
	}
	return s.spinner.Tick
}

// Stop deactivates the spinner.
func (s *Spinner) Stop() {
	s.active = false
}

// Active reports whether the spinner is running.
func (s *Spinner) Active() bool {
	return s.active
}

// Update advances the animation.
func (s *Spinner) Update(msg tea.Msg) tea.Cmd {
	if !s.active {
		return nil
	}
	var cmd tea.Cmd
	s.spinner, cmd = s.spinner.Update(msg)
	return cmd
}

// View renders the spinner line, empty when inactive.
func (s *Spinner) View() string {
	if !s.active {
		return ""
	}
	line := s.spinner.View() + " " + s.theme.ThinkingText.Render(s.message+"...")
	if s.showTimer {
		elapsed := time.Since(s.startTime).Round(time.Second)
		if elapsed >= time.Second {
			line += " " + s.theme.BubbleMeta.Render(fmt.Sprintf("(%s)", elapsed))
		}
	}
	return line
}
