// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the main Bubble Tea model of the HR assistant.
//
// The model has two views: the login form and the chat itself. Network
// work never happens in Update; it is wrapped in tea.Cmd functions that
// come back as typed messages. Realtime and session events are pumped
// into the program through long-running wait commands.
package chat
