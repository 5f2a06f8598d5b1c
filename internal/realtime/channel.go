// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package realtime implements the websocket channel to the HR assistant.
//
// A Channel is bound to one conversation for its whole lifetime; a new
// login means a new Channel, and a token rotation reopens the connection
// with the new bearer (UpdateToken). The channel owns the conversation
// transcript and pushes Notifications to the UI instead of letting the
// UI poll.
//
// RELIABILITY: a server-initiated disconnect triggers reconnection with
// capped exponential backoff. A client-initiated Close is permanent.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/antibia/hrchat-tui/internal/model"
)

const (
	// writeWait is the deadline for a single websocket write.
	writeWait = 10 * time.Second
	// pongWait is how long a connection may stay silent before it is
	// considered dead.
	pongWait = 60 * time.Second
	// pingPeriod must be shorter than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// maxMessageSize bounds inbound frames.
	maxMessageSize = 512 * 1024

	// sendBuffer is the outbound queue depth per connection.
	sendBuffer = 64
	// notifyBuffer is the notification queue depth toward the UI.
	notifyBuffer = 256
)

// State is the channel connection state.
type State string

const (
	StateClosed       State = "closed"
	StateConnecting   State = "connecting"
	StateOpen         State = "open"
	StateReconnecting State = "reconnecting"
)

// Error variables for channel operations.
var (
	// ErrChannelClosed indicates the channel was permanently closed.
	ErrChannelClosed = errors.New("channel closed")
	// ErrNotOpen indicates a send was attempted while not connected.
	ErrNotOpen = errors.New("channel not open")
	// ErrEmptyMessage indicates a blank outbound message was rejected.
	ErrEmptyMessage = errors.New("empty message")
	// ErrRateLimited indicates the outbound rate cap was hit.
	ErrRateLimited = errors.New("sending too fast")
	// ErrSendBufferFull indicates the outbound queue is saturated.
	ErrSendBufferFull = errors.New("send buffer full")
	// ErrReconnectFailed indicates all reconnect attempts were spent.
	ErrReconnectFailed = errors.New("reconnect attempts exhausted")
)

// NotificationKind classifies a Notification.
type NotificationKind int

const (
	// KindStateChange reports a connection state transition.
	KindStateChange NotificationKind = iota
	// KindMessage reports a message appended to the transcript.
	KindMessage
	// KindLoading reports the quick-action loading flag.
	KindLoading
	// KindError reports a channel-level error.
	KindError
)

// Notification is what the channel pushes to the UI.
type Notification struct {
	Kind    NotificationKind
	State   State
	Message *model.Message
	Loading bool
	Err     error
}

// Options configures a Channel.
type Options struct {
	// URL is the websocket endpoint.
	URL string
	// Token is the access token the channel authenticates with.
	Token string
	// ConversationID scopes the transcript.
	ConversationID string
	// SendRate caps outbound chat messages per second; 0 disables.
	SendRate float64
	// BackoffBase is the initial reconnect delay.
	BackoffBase time.Duration
	// BackoffMax caps the reconnect delay.
	BackoffMax time.Duration
	// MaxAttempts bounds reconnect attempts; 0 means unlimited.
	MaxAttempts int
	// Logger receives channel diagnostics.
	Logger zerolog.Logger
}

// Channel is one live connection to the assistant.
type Channel struct {
	url         string
	convID      string
	logger      zerolog.Logger
	dialer      *websocket.Dialer
	limiter     *rate.Limiter
	backoffBase time.Duration
	backoffMax  time.Duration
	maxAttempts int

	notify chan Notification

	mu       sync.Mutex
	token    string
	state    State
	conn     *websocket.Conn
	conv     *model.Conversation
	send     chan outEnvelope
	done     chan struct{}
	gen      int
	welcomed bool
	loading  bool
	closed   bool
}

// NewChannel creates a channel. Call Connect to open it.
func NewChannel(opts Options) *Channel {
	c := &Channel{
		url:         opts.URL,
		token:       opts.Token,
		convID:      opts.ConversationID,
		logger:      opts.Logger.With().Str("component", "realtime").Logger(),
		dialer:      &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		backoffBase: opts.BackoffBase,
		backoffMax:  opts.BackoffMax,
		maxAttempts: opts.MaxAttempts,
		notify:      make(chan Notification, notifyBuffer),
		state:       StateClosed,
		conv:        model.NewConversation(opts.ConversationID),
	}
	if c.backoffBase <= 0 {
		c.backoffBase = 500 * time.Millisecond
	}
	if c.backoffMax <= 0 {
		c.backoffMax = 30 * time.Second
	}
	if opts.SendRate > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.SendRate), int(opts.SendRate)+1)
	}
	return c
}

// Notifications returns the stream of channel events for the UI.
func (c *Channel) Notifications() <-chan Notification {
	return c.notify
}

// State returns the current connection state.
func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Loading reports whether a quick action is awaiting its result.
func (c *Channel) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// Messages returns a snapshot of the transcript.
func (c *Channel) Messages() []*model.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conv.Snapshot()
}

// =============================================================================
// CONNECT / CLOSE
// =============================================================================

// Connect opens the websocket. It is an error to connect a closed channel
// or one that is already connecting.
func (c *Channel) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrChannelClosed
	}
	if c.state != StateClosed {
		c.mu.Unlock()
		return ErrNotOpen
	}
	c.state = StateConnecting
	c.mu.Unlock()
	c.emitState(StateConnecting)

	conn, err := c.dial(ctx)
	if err != nil {
		c.mu.Lock()
		c.state = StateClosed
		c.mu.Unlock()
		c.emitState(StateClosed)
		return err
	}

	c.startConn(conn)
	return nil
}

// Close tears the channel down for good. A closed channel never
// reconnects; a new Channel must be created for the next session.
func (c *Channel) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.gen++ // invalidate any running pumps
	conn := c.conn
	c.conn = nil
	if c.done != nil {
		close(c.done)
		c.done = nil
	}
	c.state = StateClosed
	c.mu.Unlock()

	if conn != nil {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		conn.Close()
	}
	c.logger.Info().Msg("channel closed")
	c.emitState(StateClosed)
}

// UpdateToken swaps the bearer after a token rotation. An open connection
// is dropped so the next dial authenticates with the new token; the usual
// reconnect path brings the channel back up.
func (c *Channel) UpdateToken(token string) {
	c.mu.Lock()
	if c.closed || token == "" || token == c.token {
		c.mu.Unlock()
		return
	}
	c.token = token
	conn := c.conn
	c.mu.Unlock()

	c.logger.Info().Msg("token rotated, reopening channel")
	if conn != nil {
		conn.Close()
	}
}

// dial opens the websocket handshake with the bearer token and the
// conversation scope.
func (c *Channel) dial(ctx context.Context) (*websocket.Conn, error) {
	url := c.url
	if strings.Contains(url, "?") {
		url += "&conversation_id=" + c.convID
	} else {
		url += "?conversation_id=" + c.convID
	}

	c.mu.Lock()
	token := c.token
	c.mu.Unlock()

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	conn, resp, err := c.dialer.DialContext(ctx, url, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		c.logger.Warn().Err(err).Msg("dial failed")
		return nil, err
	}
	return conn, nil
}

// startConn installs a fresh connection and starts its pumps.
func (c *Channel) startConn(conn *websocket.Conn) {
	c.mu.Lock()
	c.gen++
	gen := c.gen
	c.conn = conn
	c.send = make(chan outEnvelope, sendBuffer)
	c.done = make(chan struct{})
	send, done := c.send, c.done
	c.state = StateOpen
	c.mu.Unlock()

	c.logger.Info().Str("conversation", c.convID).Msg("channel open")
	c.emitState(StateOpen)

	go c.readPump(conn, gen)
	go c.writePump(conn, send, done)
}

// =============================================================================
// PUMPS
// =============================================================================

// readPump reads inbound frames until the connection dies, then hands off
// to the disconnect handler. gen guards against a stale pump acting on a
// newer connection's state.
func (c *Channel) readPump(conn *websocket.Conn, gen int) {
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.handleDisconnect(gen, err)
			return
		}
		c.dispatch(data)
	}
}

// writePump drains the outbound queue and keeps the connection alive with
// pings.
func (c *Channel) writePump(conn *websocket.Conn, send chan outEnvelope, done chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case env := <-send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(env); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleDisconnect reacts to a dropped connection. Client-initiated closes
// were already handled by Close; everything else is a server-initiated
// disconnect and starts the reconnect loop.
func (c *Channel) handleDisconnect(gen int, cause error) {
	c.mu.Lock()
	if gen != c.gen || c.closed {
		c.mu.Unlock()
		return
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	if c.done != nil {
		close(c.done)
		c.done = nil
	}
	c.state = StateReconnecting
	c.mu.Unlock()

	c.logger.Warn().Err(cause).Msg("connection lost, reconnecting")
	c.emitState(StateReconnecting)

	go c.reconnectLoop()
}

// reconnectLoop re-dials with capped exponential backoff until the
// connection is back, the attempt budget is spent, or the channel is
// closed.
func (c *Channel) reconnectLoop() {
	for attempt := 0; ; attempt++ {
		if c.maxAttempts > 0 && attempt >= c.maxAttempts {
			c.mu.Lock()
			c.state = StateClosed
			c.mu.Unlock()
			c.logger.Error().Int("attempts", attempt).Msg("reconnect gave up")
			c.emitError(ErrReconnectFailed)
			c.emitState(StateClosed)
			return
		}

		time.Sleep(c.backoff(attempt))

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), writeWait)
		conn, err := c.dial(ctx)
		cancel()
		if err == nil {
			c.startConn(conn)
			return
		}
		c.logger.Debug().Int("attempt", attempt+1).Err(err).Msg("reconnect attempt failed")
	}
}

// backoff returns the delay before the given attempt: base doubled each
// time, capped at the maximum.
func (c *Channel) backoff(attempt int) time.Duration {
	if attempt > 30 {
		attempt = 30
	}
	d := c.backoffBase << uint(attempt)
	if d > c.backoffMax || d <= 0 {
		d = c.backoffMax
	}
	return d
}

// =============================================================================
// OUTBOUND
// =============================================================================

// SendMessage appends the user's message to the transcript and queues it
// for delivery. The append is optimistic: it happens before the server
// acknowledges, so the user sees their message immediately.
func (c *Channel) SendMessage(content string) (*model.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyMessage
	}

	c.mu.Lock()
	if c.state != StateOpen {
		c.mu.Unlock()
		return nil, ErrNotOpen
	}
	if c.limiter != nil && !c.limiter.Allow() {
		c.mu.Unlock()
		return nil, ErrRateLimited
	}
	msg := model.NewUserMessage(content)
	c.conv.Append(msg)
	send := c.send
	c.mu.Unlock()

	c.emitMessage(msg)

	env := outEnvelope{
		Event: EventSendMessage,
		Data: sendMessagePayload{
			Message:        content,
			ConversationID: c.convID,
			Timestamp:      msg.Timestamp.UTC().Format(time.RFC3339),
		},
	}
	select {
	case send <- env:
		return msg, nil
	default:
		return msg, ErrSendBufferFull
	}
}

// ExecuteAction queues a quick action and raises the loading flag. The
// flag stays up until the server answers with action_result or
// action_error.
func (c *Channel) ExecuteAction(action string, params map[string]any) error {
	c.mu.Lock()
	if c.state != StateOpen {
		c.mu.Unlock()
		return ErrNotOpen
	}
	c.loading = true
	send := c.send
	c.mu.Unlock()

	c.emitLoading(true)

	env := outEnvelope{
		Event: EventQuickAction,
		Data:  quickActionPayload{ConversationID: c.convID, Action: action, Params: params},
	}
	select {
	case send <- env:
		return nil
	default:
		c.mu.Lock()
		c.loading = false
		c.mu.Unlock()
		c.emitLoading(false)
		return ErrSendBufferFull
	}
}

// =============================================================================
// INBOUND DISPATCH
// =============================================================================

// dispatch routes one inbound frame.
func (c *Channel) dispatch(data []byte) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		c.logger.Warn().Err(err).Msg("unparseable frame")
		return
	}

	switch env.Event {
	case EventWelcome:
		c.handleWelcome(env.Data)
	case EventBotResponse:
		c.handleBotResponse(env.Data)
	case EventActionResult:
		c.handleActionResult(env.Data)
	case EventActionError:
		c.handleActionError(env.Data)
	case EventError:
		c.handleError(env.Data)
	default:
		c.logger.Debug().Str("event", env.Event).Msg("unknown event ignored")
	}
}

// handleWelcome appends the greeting exactly once per channel lifetime.
// The server re-sends it on every connect; reconnects must not duplicate
// it in the transcript.
func (c *Channel) handleWelcome(data []byte) {
	var payload botResponsePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return
	}

	c.mu.Lock()
	if c.welcomed {
		c.mu.Unlock()
		return
	}
	c.welcomed = true
	msg := payload.toMessage()
	c.conv.Append(msg)
	c.mu.Unlock()

	c.emitMessage(msg)
}

func (c *Channel) handleBotResponse(data []byte) {
	var payload botResponsePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		c.logger.Warn().Err(err).Msg("bad bot_response payload")
		return
	}

	msg := payload.toMessage()
	c.mu.Lock()
	c.conv.Append(msg)
	c.mu.Unlock()

	c.emitMessage(msg)
}

func (c *Channel) handleActionResult(data []byte) {
	var payload actionResultPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		c.logger.Warn().Err(err).Msg("bad action_result payload")
		return
	}

	msg := payload.toMessage()
	c.mu.Lock()
	c.loading = false
	c.conv.Append(msg)
	c.mu.Unlock()

	c.emitLoading(false)
	c.emitMessage(msg)
}

func (c *Channel) handleActionError(data []byte) {
	var payload actionErrorPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.Error == "" {
		payload.Error = "action failed"
	}

	msg := payload.toMessage()
	c.mu.Lock()
	c.loading = false
	c.conv.Append(msg)
	c.mu.Unlock()

	c.emitLoading(false)
	c.emitMessage(msg)
	c.emitError(errors.New(payload.Error))
}

// handleError also clears the loading flag: the server may answer a quick
// action with a generic error frame instead of action_error.
func (c *Channel) handleError(data []byte) {
	var payload errorPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		payload.Message = "server error"
	}

	msg := model.NewSystemMessage(payload.Message)
	c.mu.Lock()
	c.loading = false
	c.conv.Append(msg)
	c.mu.Unlock()

	c.emitLoading(false)
	c.emitMessage(msg)
	c.emitError(errors.New(payload.Message))
}

// =============================================================================
// NOTIFICATIONS
// =============================================================================

// emit delivers a notification without ever blocking a pump. When the UI
// falls behind the oldest entries are dropped; the transcript itself is
// authoritative.
func (c *Channel) emit(n Notification) {
	select {
	case c.notify <- n:
	default:
		select {
		case <-c.notify:
		default:
		}
		select {
		case c.notify <- n:
		default:
		}
	}
}

func (c *Channel) emitState(s State) {
	c.emit(Notification{Kind: KindStateChange, State: s})
}

func (c *Channel) emitMessage(m *model.Message) {
	c.emit(Notification{Kind: KindMessage, Message: m})
}

func (c *Channel) emitLoading(on bool) {
	c.emit(Notification{Kind: KindLoading, Loading: on})
}

func (c *Channel) emitError(err error) {
	c.emit(Notification{Kind: KindError, Err: err})
}
