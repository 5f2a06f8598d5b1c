// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/antibia/hrchat-tui/internal/model"
)

// =============================================================================
// TEST SERVER
// =============================================================================

// wsBackend is a fake assistant endpoint. Every accepted connection gets a
// welcome frame; send_message is echoed as bot_response, quick_action is
// answered with action_result. A "fail" param triggers action_error, a
// "plainError" param triggers a bare error frame, a "noMessage" param
// makes the action_result carry only a result object.
type wsBackend struct {
	t        *testing.T
	upgrader websocket.Upgrader

	mu      sync.Mutex
	conns   []*websocket.Conn
	bearers []string         // bearer token per accepted connection
	seen    []string         // inbound event names, in order
	sends   []map[string]any // raw send_message bodies, as decoded JSON
}

func newWSBackend(t *testing.T) (*wsBackend, *Channel) {
	b := &wsBackend{t: t}
	server := httptest.NewServer(http.HandlerFunc(b.handle))
	t.Cleanup(server.Close)

	ch := NewChannel(Options{
		URL:            "ws" + strings.TrimPrefix(server.URL, "http"),
		Token:          "access-A",
		ConversationID: "default",
		BackoffBase:    10 * time.Millisecond,
		BackoffMax:     50 * time.Millisecond,
		Logger:         zerolog.Nop(),
	})
	t.Cleanup(ch.Close)
	return b, ch
}

func (b *wsBackend) handle(w http.ResponseWriter, r *http.Request) {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	b.mu.Lock()
	b.conns = append(b.conns, conn)
	b.bearers = append(b.bearers, strings.TrimPrefix(auth, "Bearer "))
	b.mu.Unlock()

	b.writeEvent(conn, EventWelcome, botResponsePayload{
		Content: "Bonjour ! Je suis votre assistant RH.",
		Actions: []model.QuickAction{{ID: "1", Label: "Mes congés", Action: "view_leaves"}},
	})

	for {
		var env envelope
		if err := conn.ReadJSON(&env); err != nil {
			return
		}
		b.mu.Lock()
		b.seen = append(b.seen, env.Event)
		b.mu.Unlock()

		switch env.Event {
		case EventSendMessage:
			var raw map[string]any
			json.Unmarshal(env.Data, &raw)
			b.mu.Lock()
			b.sends = append(b.sends, raw)
			b.mu.Unlock()
			text, _ := raw["message"].(string)
			b.writeEvent(conn, EventBotResponse, botResponsePayload{
				Content: "echo: " + text,
				Intent:  "echo",
			})
		case EventQuickAction:
			var p quickActionPayload
			json.Unmarshal(env.Data, &p)
			switch {
			case p.Params["fail"] == true:
				b.writeEvent(conn, EventActionError, actionErrorPayload{
					Action: p.Action,
					Error:  "enrollment failed",
				})
			case p.Params["plainError"] == true:
				b.writeEvent(conn, EventError, errorPayload{Message: "quota exceeded"})
			case p.Params["noMessage"] == true:
				b.writeEvent(conn, EventActionResult, actionResultPayload{
					Action: p.Action,
					Result: json.RawMessage(`{"enrolled":true}`),
				})
			default:
				b.writeEvent(conn, EventActionResult, actionResultPayload{
					Action:  p.Action,
					Message: "done: " + p.Action,
				})
			}
		}
	}
}

func (b *wsBackend) writeEvent(conn *websocket.Conn, event string, data any) {
	raw, _ := json.Marshal(data)
	conn.WriteJSON(envelope{Event: event, Data: raw})
}

// dropConnections closes every live connection from the server side.
func (b *wsBackend) dropConnections() {
	b.mu.Lock()
	conns := b.conns
	b.conns = nil
	b.mu.Unlock()
	for _, conn := range conns {
		conn.Close()
	}
}

func (b *wsBackend) inboundEvents() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.seen))
	copy(out, b.seen)
	return out
}

func (b *wsBackend) bearersSeen() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.bearers))
	copy(out, b.bearers)
	return out
}

func (b *wsBackend) sentBodies() []map[string]any {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]map[string]any, len(b.sends))
	copy(out, b.sends)
	return out
}

// waitFor polls until cond holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func messageCount(ch *Channel, role model.Role) func() bool {
	return func() bool {
		for _, m := range ch.Messages() {
			if m.Role == role {
				return true
			}
		}
		return false
	}
}

// =============================================================================
// CONNECTION LIFECYCLE
// =============================================================================

func TestConnect_OpensAndWelcomes(t *testing.T) {
	_, ch := newWSBackend(t)

	require.Equal(t, StateClosed, ch.State())
	require.NoError(t, ch.Connect(context.Background()))
	require.Equal(t, StateOpen, ch.State())

	waitFor(t, messageCount(ch, model.RoleBot), "welcome message")
	msgs := ch.Messages()
	require.Len(t, msgs, 1)
	require.Contains(t, msgs[0].Content, "assistant RH")
	require.True(t, msgs[0].HasActions())
}

func TestConnect_AfterCloseFails(t *testing.T) {
	_, ch := newWSBackend(t)
	ch.Close()

	err := ch.Connect(context.Background())
	require.ErrorIs(t, err, ErrChannelClosed)
}

func TestConnect_DialFailure(t *testing.T) {
	ch := NewChannel(Options{
		URL:            "ws://127.0.0.1:1/ws",
		Token:          "t",
		ConversationID: "default",
		Logger:         zerolog.Nop(),
	})
	defer ch.Close()

	err := ch.Connect(context.Background())
	require.Error(t, err)
	require.Equal(t, StateClosed, ch.State())
}

// =============================================================================
// SENDING
// =============================================================================

func TestSendMessage_RequiresOpenChannel(t *testing.T) {
	_, ch := newWSBackend(t)

	_, err := ch.SendMessage("hello")
	require.ErrorIs(t, err, ErrNotOpen)
}

func TestSendMessage_RejectsBlank(t *testing.T) {
	_, ch := newWSBackend(t)
	require.NoError(t, ch.Connect(context.Background()))

	_, err := ch.SendMessage("   \n\t ")
	require.ErrorIs(t, err, ErrEmptyMessage)
}

func TestSendMessage_OptimisticAppendAndEcho(t *testing.T) {
	backend, ch := newWSBackend(t)
	require.NoError(t, ch.Connect(context.Background()))
	waitFor(t, messageCount(ch, model.RoleBot), "welcome")

	msg, err := ch.SendMessage("combien de congés me reste-t-il ?")
	require.NoError(t, err)
	require.Equal(t, model.RoleUser, msg.Role)

	// The user message is in the transcript before any server ack.
	found := false
	for _, m := range ch.Messages() {
		if m.ID == msg.ID {
			found = true
		}
	}
	require.True(t, found, "optimistic append missing")

	waitFor(t, func() bool {
		for _, m := range ch.Messages() {
			if strings.HasPrefix(m.Content, "echo:") {
				return true
			}
		}
		return false
	}, "bot echo")

	// Transcript order: welcome, user message, echo.
	msgs := ch.Messages()
	require.Len(t, msgs, 3)
	require.Equal(t, model.RoleBot, msgs[0].Role)
	require.Equal(t, model.RoleUser, msgs[1].Role)
	require.Equal(t, "echo: combien de congés me reste-t-il ?", msgs[2].Content)

	require.Equal(t, []string{EventSendMessage}, backend.inboundEvents())
}

func TestSendMessage_TrimsContent(t *testing.T) {
	backend, ch := newWSBackend(t)
	require.NoError(t, ch.Connect(context.Background()))
	waitFor(t, messageCount(ch, model.RoleBot), "welcome")

	msg, err := ch.SendMessage("  bonjour  \n")
	require.NoError(t, err)
	require.Equal(t, "bonjour", msg.Content, "transcript entry must hold the trimmed text")

	waitFor(t, func() bool { return len(backend.sentBodies()) > 0 }, "send_message frame")

	sent := backend.sentBodies()[0]
	require.Equal(t, "bonjour", sent["message"])
	require.Equal(t, "default", sent["conversationId"])
	require.NotEmpty(t, sent["timestamp"])
}

func TestSendMessage_RateLimited(t *testing.T) {
	backend := newWSBackendRaw(t)
	server := httptest.NewServer(http.HandlerFunc(backend.handle))
	t.Cleanup(server.Close)

	ch := NewChannel(Options{
		URL:            "ws" + strings.TrimPrefix(server.URL, "http"),
		Token:          "access-A",
		ConversationID: "default",
		SendRate:       1, // 1 msg/s with burst 2
		Logger:         zerolog.Nop(),
	})
	t.Cleanup(ch.Close)
	require.NoError(t, ch.Connect(context.Background()))

	var limited bool
	for i := 0; i < 5; i++ {
		if _, err := ch.SendMessage("spam"); errors.Is(err, ErrRateLimited) {
			limited = true
			break
		}
	}
	require.True(t, limited, "burst of sends should trip the rate limiter")
}

// =============================================================================
// QUICK ACTIONS
// =============================================================================

func TestExecuteAction_LoadingUntilResult(t *testing.T) {
	_, ch := newWSBackend(t)
	require.NoError(t, ch.Connect(context.Background()))
	waitFor(t, messageCount(ch, model.RoleBot), "welcome")

	require.NoError(t, ch.ExecuteAction(model.ActionEnrollTraining, map[string]any{"trainingId": "tr1"}))
	require.True(t, ch.Loading(), "loading flag should be up while the action is in flight")

	waitFor(t, func() bool { return !ch.Loading() }, "action result")

	msgs := ch.Messages()
	last := msgs[len(msgs)-1]
	require.Equal(t, "done: "+model.ActionEnrollTraining, last.Content)
}

func TestExecuteAction_ErrorClearsLoading(t *testing.T) {
	_, ch := newWSBackend(t)
	require.NoError(t, ch.Connect(context.Background()))
	waitFor(t, messageCount(ch, model.RoleBot), "welcome")

	require.NoError(t, ch.ExecuteAction(model.ActionEnrollTraining, map[string]any{"fail": true}))

	waitFor(t, func() bool { return !ch.Loading() }, "action error")

	msgs := ch.Messages()
	last := msgs[len(msgs)-1]
	require.Equal(t, model.RoleSystem, last.Role)
	require.Contains(t, last.Content, "enrollment failed")
}

func TestExecuteAction_ResultWithoutMessage(t *testing.T) {
	_, ch := newWSBackend(t)
	require.NoError(t, ch.Connect(context.Background()))
	waitFor(t, messageCount(ch, model.RoleBot), "welcome")

	require.NoError(t, ch.ExecuteAction(model.ActionEnrollTraining, map[string]any{"noMessage": true}))
	waitFor(t, func() bool { return !ch.Loading() }, "action result")

	// No server message: a generic confirmation is synthesized and the raw
	// result rides along as metadata.
	msgs := ch.Messages()
	last := msgs[len(msgs)-1]
	require.Equal(t, "Action "+model.ActionEnrollTraining+" effectuée", last.Content)
	require.Equal(t, model.ActionEnrollTraining, last.Metadata["action"])

	result, ok := last.Metadata["result"].(map[string]any)
	require.True(t, ok, "result object missing from metadata")
	require.Equal(t, true, result["enrolled"])
}

func TestExecuteAction_PlainErrorClearsLoading(t *testing.T) {
	_, ch := newWSBackend(t)
	require.NoError(t, ch.Connect(context.Background()))
	waitFor(t, messageCount(ch, model.RoleBot), "welcome")

	// The server answers with a bare error frame instead of action_error;
	// the loading flag must still come down.
	require.NoError(t, ch.ExecuteAction(model.ActionEnrollTraining, map[string]any{"plainError": true}))
	waitFor(t, func() bool { return !ch.Loading() }, "error frame")

	msgs := ch.Messages()
	last := msgs[len(msgs)-1]
	require.Equal(t, model.RoleSystem, last.Role)
	require.Contains(t, last.Content, "quota exceeded")
}

func TestExecuteAction_RequiresOpenChannel(t *testing.T) {
	_, ch := newWSBackend(t)

	err := ch.ExecuteAction(model.ActionViewLeaves, nil)
	require.ErrorIs(t, err, ErrNotOpen)
}

// =============================================================================
// RECONNECTION
// =============================================================================

func TestReconnect_AfterServerDisconnect(t *testing.T) {
	backend, ch := newWSBackend(t)
	require.NoError(t, ch.Connect(context.Background()))
	waitFor(t, messageCount(ch, model.RoleBot), "welcome")

	backend.dropConnections()
	waitFor(t, func() bool { return ch.State() == StateOpen }, "reconnect")

	// The channel works again after reconnecting.
	_, err := ch.SendMessage("still there?")
	require.NoError(t, err)
}

func TestReconnect_WelcomeShownOnce(t *testing.T) {
	backend, ch := newWSBackend(t)
	require.NoError(t, ch.Connect(context.Background()))
	waitFor(t, messageCount(ch, model.RoleBot), "welcome")

	for i := 0; i < 3; i++ {
		backend.dropConnections()
		waitFor(t, func() bool { return ch.State() == StateOpen }, "reconnect")
	}

	// Give any late welcome frames time to arrive.
	time.Sleep(50 * time.Millisecond)

	welcomes := 0
	for _, m := range ch.Messages() {
		if strings.Contains(m.Content, "assistant RH") {
			welcomes++
		}
	}
	require.Equal(t, 1, welcomes, "welcome must appear once per channel lifetime")
}

func TestUpdateToken_ReconnectsWithNewBearer(t *testing.T) {
	backend, ch := newWSBackend(t)
	require.NoError(t, ch.Connect(context.Background()))
	waitFor(t, messageCount(ch, model.RoleBot), "welcome")

	require.Equal(t, []string{"access-A"}, backend.bearersSeen())

	ch.UpdateToken("access-B")
	waitFor(t, func() bool { return len(backend.bearersSeen()) == 2 }, "re-keyed connection")
	waitFor(t, func() bool { return ch.State() == StateOpen }, "channel back up")

	bearers := backend.bearersSeen()
	require.Equal(t, "access-B", bearers[1], "second connection must carry the rotated token")

	// The channel is usable on the new connection.
	_, err := ch.SendMessage("toujours là ?")
	require.NoError(t, err)
}

func TestUpdateToken_SameTokenIsNoOp(t *testing.T) {
	backend, ch := newWSBackend(t)
	require.NoError(t, ch.Connect(context.Background()))
	waitFor(t, messageCount(ch, model.RoleBot), "welcome")

	ch.UpdateToken("access-A")
	time.Sleep(50 * time.Millisecond)

	require.Equal(t, StateOpen, ch.State())
	require.Len(t, backend.bearersSeen(), 1, "unchanged token must not drop the connection")
}

func TestClose_IsPermanent(t *testing.T) {
	backend, ch := newWSBackend(t)
	require.NoError(t, ch.Connect(context.Background()))
	waitFor(t, messageCount(ch, model.RoleBot), "welcome")

	ch.Close()
	require.Equal(t, StateClosed, ch.State())

	// No reconnect happens after a client-initiated close.
	time.Sleep(100 * time.Millisecond)
	require.Equal(t, StateClosed, ch.State())

	backend.mu.Lock()
	live := len(backend.conns)
	backend.mu.Unlock()
	require.Zero(t, live, "server should hold no connection after Close")
}

func TestReconnect_AttemptBudget(t *testing.T) {
	upgradeOnce := newWSBackendRaw(t)
	first := httptest.NewServer(http.HandlerFunc(upgradeOnce.handle))
	t.Cleanup(first.Close)

	ch := NewChannel(Options{
		URL:            "ws" + strings.TrimPrefix(first.URL, "http"),
		Token:          "access-A",
		ConversationID: "default",
		BackoffBase:    5 * time.Millisecond,
		BackoffMax:     10 * time.Millisecond,
		MaxAttempts:    3,
		Logger:         zerolog.Nop(),
	})
	t.Cleanup(ch.Close)

	require.NoError(t, ch.Connect(context.Background()))
	waitFor(t, messageCount(ch, model.RoleBot), "welcome")

	// Take the backend down entirely, then drop the live connection.
	first.CloseClientConnections()
	first.Close()

	waitFor(t, func() bool { return ch.State() == StateClosed }, "attempt budget exhausted")
}

// newWSBackendRaw builds a backend without its own server, for tests that
// manage the listener themselves.
func newWSBackendRaw(t *testing.T) *wsBackend {
	return &wsBackend{t: t}
}
