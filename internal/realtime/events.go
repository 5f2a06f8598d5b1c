// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package realtime

import (
	"encoding/json"

	"github.com/antibia/hrchat-tui/internal/model"
)

// Wire event names. Outbound events are what this client sends; inbound
// events are what the backend pushes.
const (
	// Outbound.
	EventSendMessage = "send_message"
	EventQuickAction = "quick_action"

	// Inbound.
	EventWelcome      = "welcome"
	EventBotResponse  = "bot_response"
	EventActionResult = "action_result"
	EventActionError  = "action_error"
	EventError        = "error"
)

// envelope is the JSON frame exchanged over the websocket.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// outEnvelope is the outbound frame before marshalling.
type outEnvelope struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// sendMessagePayload is the body of a send_message event.
type sendMessagePayload struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversationId"`
	Timestamp      string `json:"timestamp"`
}

// quickActionPayload is the body of a quick_action event.
type quickActionPayload struct {
	ConversationID string         `json:"conversationId"`
	Action         string         `json:"action"`
	Params         map[string]any `json:"params,omitempty"`
}

// botResponsePayload is the body of welcome and bot_response events.
type botResponsePayload struct {
	ID       string              `json:"id,omitempty"`
	Content  string              `json:"content"`
	Intent   string              `json:"intent,omitempty"`
	Actions  []model.QuickAction `json:"actions,omitempty"`
	Metadata map[string]any      `json:"metadata,omitempty"`
}

// actionResultPayload is the body of an action_result event. The message
// is optional; the result rides into the transcript as metadata.
type actionResultPayload struct {
	Action  string          `json:"action"`
	Result  json.RawMessage `json:"result,omitempty"`
	Message string          `json:"message,omitempty"`
}

// actionErrorPayload is the body of an action_error event.
type actionErrorPayload struct {
	Action string `json:"action"`
	Error  string `json:"error"`
}

// errorPayload is the body of a plain error event.
type errorPayload struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// toMessage synthesizes the transcript entry for an action result: the
// server message when present, a generic confirmation otherwise. The raw
// result rides along as metadata for the dashboard cards.
func (p actionResultPayload) toMessage() *model.Message {
	content := p.Message
	if content == "" {
		content = "Action " + p.Action + " effectuée"
	}
	msg := model.NewBotMessage(content)
	msg.Metadata = map[string]any{"action": p.Action}
	if len(p.Result) > 0 {
		var result any
		if err := json.Unmarshal(p.Result, &result); err == nil {
			msg.Metadata["result"] = result
		}
	}
	return msg
}

// toMessage converts an action failure into a system transcript entry.
func (p actionErrorPayload) toMessage() *model.Message {
	return model.NewSystemMessage("Erreur " + p.Action + ": " + p.Error)
}

// toMessage converts a bot payload into a transcript message.
func (p botResponsePayload) toMessage() *model.Message {
	msg := model.NewBotMessage(p.Content)
	if p.ID != "" {
		msg.ID = p.ID
	}
	msg.Intent = p.Intent
	msg.Actions = p.Actions
	msg.Metadata = p.Metadata
	return msg
}
