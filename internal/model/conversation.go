// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"

	"github.com/google/uuid"
)

// DefaultConversationID scopes the transcript when no explicit conversation
// is configured. Matches what the backend assumes for a fresh widget.
const DefaultConversationID = "default"

// Conversation is an append-only, receipt-ordered sequence of messages.
//
// Ordering is arrival order, not server-side causal order: under a reconnect
// the server may replay or interleave events, and the transcript records them
// as they arrive. Conversation itself is not goroutine-safe; the realtime
// channel serializes appends under its own lock.
type Conversation struct {
	ID        string     `json:"id"`
	Messages  []*Message `json:"messages"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// NewConversation creates an empty conversation with the given ID.
// An empty ID gets a generated one.
func NewConversation(id string) *Conversation {
	if id == "" {
		id = "conv_" + uuid.NewString()
	}
	now := time.Now()
	return &Conversation{
		ID:        id,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Append adds a message to the end of the transcript.
func (c *Conversation) Append(msg *Message) {
	c.Messages = append(c.Messages, msg)
	c.UpdatedAt = time.Now()
}

// Len returns the number of messages in the transcript.
func (c *Conversation) Len() int {
	return len(c.Messages)
}

// Last returns the most recent message, or nil for an empty transcript.
func (c *Conversation) Last() *Message {
	if len(c.Messages) == 0 {
		return nil
	}
	return c.Messages[len(c.Messages)-1]
}

// Clear drops all messages while keeping the conversation identity.
func (c *Conversation) Clear() {
	c.Messages = nil
	c.UpdatedAt = time.Now()
}

// Snapshot returns a copy of the message slice. The messages themselves are
// shared; callers must treat them as read-only.
func (c *Conversation) Snapshot() []*Message {
	out := make([]*Message, len(c.Messages))
	copy(out, c.Messages)
	return out
}
