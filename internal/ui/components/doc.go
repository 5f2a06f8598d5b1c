// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides the visual UI components for the HR chat
// TUI: message bubbles, the quick-action panel, dashboard cards, the
// status bar and the login form.
package components
