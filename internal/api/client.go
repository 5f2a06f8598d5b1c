// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/antibia/hrchat-tui/internal/logging"
	"github.com/antibia/hrchat-tui/internal/model"
)

const (
	// DefaultTimeout is the default timeout for API requests.
	DefaultTimeout = 10 * time.Second

	// MaxResponseSize is the maximum allowed response body size.
	// SECURITY: Response size limit prevents memory exhaustion.
	MaxResponseSize = 4 * 1024 * 1024 // 4MB limit

	userAgent = "hrchat-tui/0.1.0"
)

// envelope is the uniform response wrapper the backend sends.
type envelope struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Data    json.RawMessage     `json:"data"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

// refreshCall is one in-flight token refresh shared by concurrent callers.
type refreshCall struct {
	done chan struct{}
	pair model.TokenPair
	err  error
}

// Client is the HTTP client for the HR backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	logger     zerolog.Logger

	// mu guards the credential pair.
	mu   sync.Mutex
	pair model.TokenPair

	// refreshMu guards the single-flight refresh slot.
	refreshMu sync.Mutex
	inflight  *refreshCall

	// onTokens is invoked after a successful refresh with the new pair.
	onTokens func(model.TokenPair)
	// onVoid is invoked when the session becomes unrecoverable.
	onVoid func()
}

// NewClient creates a backend client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		timeout: DefaultTimeout,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		logger: zerolog.Nop(),
	}
}

// WithTimeout sets the request timeout.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	c.timeout = timeout
	c.httpClient.Timeout = timeout
	return c
}

// WithLogger sets the structured logger.
func (c *Client) WithLogger(logger zerolog.Logger) *Client {
	c.logger = logger.With().Str("component", "api").Logger()
	return c
}

// OnTokensRefreshed registers a callback invoked with the new credential
// pair after every successful refresh. Used to persist rotated tokens.
func (c *Client) OnTokensRefreshed(fn func(model.TokenPair)) {
	c.onTokens = fn
}

// OnSessionVoid registers a callback invoked when a refresh fails or a
// refreshed token is still rejected. The session layer uses it to force a
// local logout.
func (c *Client) OnSessionVoid(fn func()) {
	c.onVoid = fn
}

// SetTokens installs the credential pair used for authenticated requests.
func (c *Client) SetTokens(pair model.TokenPair) {
	c.mu.Lock()
	c.pair = pair
	c.mu.Unlock()
	c.logger.Debug().
		Str("access", logging.Fingerprint(pair.AccessToken)).
		Msg("tokens installed")
}

// Tokens returns the current credential pair.
func (c *Client) Tokens() model.TokenPair {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pair
}

// ClearTokens drops the credential pair.
func (c *Client) ClearTokens() {
	c.mu.Lock()
	c.pair = model.TokenPair{}
	c.mu.Unlock()
}

// =============================================================================
// REQUEST PIPELINE
// =============================================================================

// do performs one backend call. For authed requests a 401 triggers a token
// refresh and a single retry with the new access token; a second 401 or a
// failed refresh voids the session.
func (c *Client) do(ctx context.Context, method, path string, body, out any, authed bool) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
	}

	token := ""
	if authed {
		token = c.Tokens().AccessToken
	}

	status, respBody, err := c.send(ctx, method, path, payload, token)
	if err != nil {
		return err
	}

	if status == http.StatusUnauthorized && authed {
		pair, rerr := c.refresh(ctx)
		if rerr != nil {
			return rerr
		}

		status, respBody, err = c.send(ctx, method, path, payload, pair.AccessToken)
		if err != nil {
			return err
		}
		if status == http.StatusUnauthorized {
			// Fresh token rejected: nothing left to try.
			c.voidSession()
			return ErrSessionExpired
		}
	}

	if status < 200 || status >= 300 {
		return c.handleErrorResponse(status, respBody)
	}
	return decodeData(respBody, out)
}

// send performs a single HTTP round trip and returns the status and body.
func (c *Client) send(ctx context.Context, method, path string, payload []byte, token string) (int, []byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn().Str("method", method).Str("path", path).Err(err).Msg("request failed")
		return 0, nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	body, err := readResponse(resp)
	if err != nil {
		return 0, nil, err
	}

	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("request")

	return resp.StatusCode, body, nil
}

// readResponse reads the response body with a size limit.
func readResponse(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if int64(len(body)) == MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return body, nil
}

// decodeData unwraps the envelope and decodes data into out. A nil out
// discards the payload.
func decodeData(body []byte, out any) error {
	if out == nil {
		return nil
	}
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	if len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("parse response data: %w", err)
	}
	return nil
}

// handleErrorResponse converts backend error responses to Go errors.
func (c *Client) handleErrorResponse(status int, body []byte) error {
	var env envelope
	msg := ""
	if err := json.Unmarshal(body, &env); err == nil {
		msg = env.Message
		if msg == "" {
			for _, msgs := range env.Errors {
				if len(msgs) > 0 {
					msg = msgs[0]
					break
				}
			}
		}
	}

	switch status {
	case http.StatusUnauthorized:
		if msg != "" {
			return fmt.Errorf("%w: %s", ErrAuthFailed, msg)
		}
		return ErrAuthFailed
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		if msg != "" {
			return fmt.Errorf("%w: %s", ErrValidation, msg)
		}
		return ErrValidation
	default:
		return &APIError{Status: status, Message: msg}
	}
}

// =============================================================================
// TOKEN REFRESH (SINGLE-FLIGHT)
// =============================================================================

// Refresh rotates the token pair proactively, outside the 401 path.
// Callers racing an in-flight refresh share its result.
func (c *Client) Refresh(ctx context.Context) (model.TokenPair, error) {
	return c.refresh(ctx)
}

// refresh exchanges the refresh token for a new credential pair. Concurrent
// callers share one in-flight exchange; each refresh token is spent at most
// once. A failed exchange voids the session.
func (c *Client) refresh(ctx context.Context) (model.TokenPair, error) {
	c.refreshMu.Lock()
	if call := c.inflight; call != nil {
		c.refreshMu.Unlock()
		select {
		case <-call.done:
			return call.pair, call.err
		case <-ctx.Done():
			return model.TokenPair{}, ctx.Err()
		}
	}
	call := &refreshCall{done: make(chan struct{})}
	c.inflight = call
	c.refreshMu.Unlock()

	call.pair, call.err = c.doRefresh()

	c.refreshMu.Lock()
	c.inflight = nil
	c.refreshMu.Unlock()
	close(call.done)

	return call.pair, call.err
}

// doRefresh performs the actual refresh exchange. It runs on its own
// timeout so cancelling one of the waiting requests cannot abort the
// refresh for the others.
func (c *Client) doRefresh() (model.TokenPair, error) {
	refresh := c.Tokens().RefreshToken
	if refresh == "" {
		c.voidSession()
		return model.TokenPair{}, ErrSessionExpired
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	payload, err := json.Marshal(map[string]string{"refreshToken": refresh})
	if err != nil {
		return model.TokenPair{}, err
	}

	status, body, err := c.send(ctx, http.MethodPost, "/api/auth/refresh", payload, "")
	if err != nil {
		// Transient network failure: surface it without voiding the
		// session, the refresh token is still unspent.
		return model.TokenPair{}, err
	}
	if status != http.StatusOK {
		c.logger.Info().Int("status", status).Msg("refresh rejected, session void")
		c.voidSession()
		return model.TokenPair{}, ErrSessionExpired
	}

	var pair model.TokenPair
	if err := decodeData(body, &pair); err != nil {
		return model.TokenPair{}, err
	}
	if !pair.Valid() {
		c.voidSession()
		return model.TokenPair{}, ErrSessionExpired
	}

	c.SetTokens(pair)
	c.logger.Info().
		Str("access", logging.Fingerprint(pair.AccessToken)).
		Msg("tokens refreshed")
	if c.onTokens != nil {
		c.onTokens(pair)
	}
	return pair, nil
}

// voidSession clears the local credentials and notifies the session layer.
func (c *Client) voidSession() {
	c.ClearTokens()
	if c.onVoid != nil {
		c.onVoid()
	}
}
