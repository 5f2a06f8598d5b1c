// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/antibia/hrchat-tui/internal/format"
	"github.com/antibia/hrchat-tui/internal/model"
	"github.com/antibia/hrchat-tui/internal/ui/styles"
)

// MessageRenderer turns transcript messages into styled bubbles. Bot
// messages are rendered through glamour so the assistant can answer with
// markdown (lists, bold, tables).
type MessageRenderer struct {
	theme    *styles.Theme
	width    int
	markdown *glamour.TermRenderer
}

// NewMessageRenderer creates a renderer for the given width.
func NewMessageRenderer(theme *styles.Theme, width int) *MessageRenderer {
	r := &MessageRenderer{theme: theme}
	r.SetWidth(width)
	return r
}

// SetWidth resizes the renderer. The markdown renderer is rebuilt because
// glamour fixes its word wrap at construction time.
func (r *MessageRenderer) SetWidth(width int) {
	if width < 20 {
		width = 20
	}
	r.width = width

	md, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(r.bubbleWidth()),
	)
	if err == nil {
		r.markdown = md
	}
}

// bubbleWidth is the content width inside a bubble.
func (r *MessageRenderer) bubbleWidth() int {
	w := r.width - 10 // borders, padding, margin
	if w < 16 {
		w = 16
	}
	return w
}

// Render produces the styled bubble for one message.
func (r *MessageRenderer) Render(msg *model.Message) string {
	switch msg.Role {
	case model.RoleUser:
		return r.renderUser(msg)
	case model.RoleBot:
		return r.renderBot(msg)
	default:
		return r.renderSystem(msg)
	}
}

func (r *MessageRenderer) renderUser(msg *model.Message) string {
	meta := r.theme.BubbleMeta.Render(msg.Role.DisplayName() + " · " + format.Clock(msg.Timestamp))
	bubble := r.theme.UserBubble.MaxWidth(r.width).Render(msg.Content)
	return lipgloss.JoinVertical(lipgloss.Right, meta, bubble)
}

func (r *MessageRenderer) renderBot(msg *model.Message) string {
	content := msg.Content
	if r.markdown != nil {
		if rendered, err := r.markdown.Render(content); err == nil {
			content = strings.TrimRight(rendered, "\n")
		}
	}

	meta := r.theme.BubbleMeta.Render(msg.Role.DisplayName() + " · " + format.Clock(msg.Timestamp))
	bubble := r.theme.BotBubble.MaxWidth(r.width).Render(content)

	parts := []string{meta, bubble}
	if msg.HasActions() {
		parts = append(parts, r.renderInlineActions(msg.Actions))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (r *MessageRenderer) renderSystem(msg *model.Message) string {
	return r.theme.SystemBubble.MaxWidth(r.width).Render(msg.Content)
}

// renderInlineActions draws the follow-up buttons a bot message carries.
// They are display-only here; activation goes through the action panel.
func (r *MessageRenderer) renderInlineActions(actions []model.QuickAction) string {
	var chips []string
	for _, a := range actions {
		label := a.Label
		if a.Icon != "" {
			label = a.Icon + " " + label
		}
		chips = append(chips, r.theme.ActionButton.Render(label))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, chips...)
}
