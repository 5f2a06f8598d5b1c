// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"github.com/antibia/hrchat-tui/internal/ui/styles"
)

// Header is the top banner of the chat view.
type Header struct {
	theme *styles.Theme
	width int
}

// NewHeader creates the header.
func NewHeader(theme *styles.Theme) *Header {
	return &Header{theme: theme}
}

// SetWidth records the terminal width.
func (h *Header) SetWidth(width int) { h.width = width }

// View renders the banner.
func (h *Header) View() string {
	title := h.theme.HeaderTitle.Render("Assistant RH")
	subtitle := h.theme.HeaderSubtitle.Render("congés · paie · formations")
	return h.theme.Header.Width(h.width - 2).Render(title + "  " + subtitle)
}
