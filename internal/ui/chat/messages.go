// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/antibia/hrchat-tui/internal/auth"
	"github.com/antibia/hrchat-tui/internal/hr"
	"github.com/antibia/hrchat-tui/internal/model"
	"github.com/antibia/hrchat-tui/internal/realtime"
)

// loginResultMsg reports the outcome of a login attempt.
type loginResultMsg struct {
	user *model.User
	err  error
}

// profileVerifiedMsg reports the outcome of verifying a restored session.
type profileVerifiedMsg struct {
	err error
}

// channelOpenedMsg reports the outcome of opening the realtime channel.
type channelOpenedMsg struct {
	err error
}

// channelEventMsg wraps one realtime notification.
type channelEventMsg struct {
	note realtime.Notification
}

// sessionEventMsg wraps one auth state transition.
type sessionEventMsg struct {
	event auth.Event
}

// historyLoadedMsg carries the cached transcript for backfill.
type historyLoadedMsg struct {
	messages []*model.Message
}

// dashboardMsg carries a refreshed HR snapshot.
type dashboardMsg struct {
	snapshot hr.Snapshot
}

// toastMsg shows a transient error line.
type toastMsg struct {
	text string
}

// logoutDoneMsg reports that logout completed.
type logoutDoneMsg struct{}
