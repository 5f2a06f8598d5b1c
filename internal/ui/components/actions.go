// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/antibia/hrchat-tui/internal/model"
	"github.com/antibia/hrchat-tui/internal/ui/styles"
)

// ActionPanel is the horizontally navigable row of quick-action buttons
// shown above the input. Tab focuses it, arrows move, Enter fires.
type ActionPanel struct {
	theme   *styles.Theme
	actions []model.QuickAction
	cursor  int
	focused bool
	width   int
}

// NewActionPanel creates the panel with the default action set.
func NewActionPanel(theme *styles.Theme) *ActionPanel {
	return &ActionPanel{
		theme:   theme,
		actions: model.DefaultQuickActions,
	}
}

// SetActions replaces the panel's actions, e.g. with the follow-ups the
// assistant attached to its last answer.
func (p *ActionPanel) SetActions(actions []model.QuickAction) {
	if len(actions) == 0 {
		actions = model.DefaultQuickActions
	}
	p.actions = actions
	if p.cursor >= len(actions) {
		p.cursor = 0
	}
}

// SetWidth records the available width.
func (p *ActionPanel) SetWidth(width int) {
	p.width = width
}

// Focus gives the panel keyboard focus.
func (p *ActionPanel) Focus() { p.focused = true }

// Blur removes keyboard focus.
func (p *ActionPanel) Blur() { p.focused = false }

// Focused reports whether the panel has focus.
func (p *ActionPanel) Focused() bool { return p.focused }

// Next moves the cursor right, wrapping.
func (p *ActionPanel) Next() {
	if len(p.actions) > 0 {
		p.cursor = (p.cursor + 1) % len(p.actions)
	}
}

// Prev moves the cursor left, wrapping.
func (p *ActionPanel) Prev() {
	if len(p.actions) > 0 {
		p.cursor = (p.cursor - 1 + len(p.actions)) % len(p.actions)
	}
}

// Selected returns the action under the cursor.
func (p *ActionPanel) Selected() model.QuickAction {
	if len(p.actions) == 0 {
		return model.QuickAction{}
	}
	return p.actions[p.cursor]
}

// View renders the button row, wrapping onto extra lines when narrow.
func (p *ActionPanel) View() string {
	if len(p.actions) == 0 {
		return ""
	}

	var rows []string
	var row []string
	rowWidth := 0

	for i, a := range p.actions {
		label := a.Label
		if a.Icon != "" {
			label = a.Icon + " " + label
		}

		style := p.theme.ActionButton
		if p.focused && i == p.cursor {
			style = p.theme.ActionButtonSelected
		}
		chip := style.Render(label)

		chipWidth := lipgloss.Width(chip)
		if p.width > 0 && rowWidth+chipWidth > p.width && len(row) > 0 {
			rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, row...))
			row = nil
			rowWidth = 0
		}
		row = append(row, chip)
		rowWidth += chipWidth
	}
	if len(row) > 0 {
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, row...))
	}

	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}
