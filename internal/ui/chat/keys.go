// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import "github.com/charmbracelet/bubbles/key"

// keyMap groups the global key bindings.
type keyMap struct {
	Submit    key.Binding
	Tab       key.Binding
	Left      key.Binding
	Right     key.Binding
	Escape    key.Binding
	Dashboard key.Binding
	Logout    key.Binding
	Quit      key.Binding
}

var keys = keyMap{
	Submit: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("entrée", "envoyer"),
	),
	Tab: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "actions"),
	),
	Left: key.NewBinding(
		key.WithKeys("left", "shift+tab"),
		key.WithHelp("←", "précédent"),
	),
	Right: key.NewBinding(
		key.WithKeys("right"),
		key.WithHelp("→", "suivant"),
	),
	Escape: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("échap", "saisie"),
	),
	Dashboard: key.NewBinding(
		key.WithKeys("ctrl+d"),
		key.WithHelp("ctrl+d", "tableau de bord"),
	),
	Logout: key.NewBinding(
		key.WithKeys("ctrl+l"),
		key.WithHelp("ctrl+l", "déconnexion"),
	),
	Quit: key.NewBinding(
		key.WithKeys("ctrl+c"),
		key.WithHelp("ctrl+c", "quitter"),
	),
}
