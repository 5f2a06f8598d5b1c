// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/antibia/hrchat-tui/internal/util"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser   Role = "user"
	RoleBot    Role = "bot"
	RoleSystem Role = "system"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleBot:
		return "Assistant"
	case RoleSystem:
		return "System"
	default:
		return string(r)
	}
}

// Valid reports whether the role is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleBot, RoleSystem:
		return true
	}
	return false
}

// =============================================================================
// QUICK ACTION TYPE
// =============================================================================

// QuickAction is a declarative invocation descriptor: a named operation the
// user can trigger with a button instead of free text. Quick actions are not
// persisted on their own; they ride inside a Message or a dashboard card.
type QuickAction struct {
	ID     string         `json:"id"`
	Label  string         `json:"label"`
	Icon   string         `json:"icon,omitempty"`
	Action string         `json:"action"`
	Params map[string]any `json:"params,omitempty"`
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message is a single entry in a conversation transcript.
type Message struct {
	// Identity
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Timestamp time.Time `json:"timestamp"`

	// Content
	Content string `json:"content"`

	// Recognized intent, set on bot responses when the server classified
	// the user's request (e.g. "leave_balance").
	Intent string `json:"intent,omitempty"`

	// Follow-up actions the server attached to this message.
	Actions []QuickAction `json:"actions,omitempty"`

	// Free-form payload carried by action results (card data and the like).
	Metadata map[string]any `json:"metadata,omitempty"`
}

// NewMessage creates a new message with a generated ID.
func NewMessage(role Role, content string) *Message {
	return &Message{
		ID:        generateID(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) *Message {
	return NewMessage(RoleUser, content)
}

// NewBotMessage creates a new bot message.
func NewBotMessage(content string) *Message {
	return NewMessage(RoleBot, content)
}

// NewSystemMessage creates a new system message.
func NewSystemMessage(content string) *Message {
	return NewMessage(RoleSystem, content)
}

// =============================================================================
// MESSAGE METHODS
// =============================================================================

// Preview returns a truncated single-line preview of the message content.
// Uses rune-based truncation to handle Unicode correctly.
func (m *Message) Preview(maxLen int) string {
	content := strings.ReplaceAll(m.Content, "\n", " ")
	return util.TruncateRunes(content, maxLen)
}

// IsEmpty returns true if the message has no content.
func (m *Message) IsEmpty() bool {
	return strings.TrimSpace(m.Content) == ""
}

// HasActions reports whether the message carries quick actions.
func (m *Message) HasActions() bool {
	return len(m.Actions) > 0
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// generateID creates a unique message ID.
func generateID() string {
	return "msg_" + uuid.NewString()
}
