// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/antibia/hrchat-tui/internal/model"
)

// loginResponse is the /api/auth/login data payload.
type loginResponse struct {
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
	User         *model.User `json:"user"`
}

// =============================================================================
// AUTH
// =============================================================================

// Login exchanges credentials for a token pair and the user profile. On
// success the pair is installed on the client.
func (c *Client) Login(ctx context.Context, email, password string) (model.TokenPair, *model.User, error) {
	body := map[string]string{"email": email, "password": password}

	var resp loginResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", body, &resp, false); err != nil {
		return model.TokenPair{}, nil, err
	}

	pair := model.TokenPair{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken}
	if !pair.Valid() || resp.User == nil {
		return model.TokenPair{}, nil, fmt.Errorf("%w: incomplete login response", ErrAuthFailed)
	}

	c.SetTokens(pair)
	return pair, resp.User, nil
}

// Register creates an account and signs it in. The backend answers with
// the same payload as login, so a fresh account is usable immediately.
func (c *Client) Register(ctx context.Context, email, password, name string) (model.TokenPair, *model.User, error) {
	body := map[string]string{"email": email, "password": password, "name": name}

	var resp loginResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", body, &resp, false); err != nil {
		return model.TokenPair{}, nil, err
	}

	pair := model.TokenPair{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken}
	if !pair.Valid() || resp.User == nil {
		return model.TokenPair{}, nil, fmt.Errorf("%w: incomplete register response", ErrAuthFailed)
	}

	c.SetTokens(pair)
	return pair, resp.User, nil
}

// Logout notifies the backend and drops the local credentials. The server
// call is best effort: the credentials are cleared even when it fails.
func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil, true)
	c.ClearTokens()
	if err != nil && !errors.Is(err, ErrSessionExpired) {
		return err
	}
	return nil
}

// Profile fetches the authenticated user's profile. Used to verify a
// restored session.
func (c *Client) Profile(ctx context.Context) (*model.User, error) {
	var user model.User
	if err := c.do(ctx, http.MethodGet, "/api/auth/profile", nil, &user, true); err != nil {
		return nil, err
	}
	return &user, nil
}

// =============================================================================
// LEAVES
// =============================================================================

// LeaveBalance fetches the remaining leave allowance.
func (c *Client) LeaveBalance(ctx context.Context) (*model.LeaveBalance, error) {
	var balance model.LeaveBalance
	if err := c.do(ctx, http.MethodGet, "/api/leaves/balance", nil, &balance, true); err != nil {
		return nil, err
	}
	return &balance, nil
}

// LeaveRequests fetches the employee's leave request history.
func (c *Client) LeaveRequests(ctx context.Context) ([]model.LeaveRequest, error) {
	var requests []model.LeaveRequest
	if err := c.do(ctx, http.MethodGet, "/api/leaves/requests", nil, &requests, true); err != nil {
		return nil, err
	}
	return requests, nil
}

// CreateLeaveRequest submits a new leave request.
func (c *Client) CreateLeaveRequest(ctx context.Context, req model.NewLeaveRequest) (*model.LeaveRequest, error) {
	var created model.LeaveRequest
	if err := c.do(ctx, http.MethodPost, "/api/leaves/request", req, &created, true); err != nil {
		return nil, err
	}
	return &created, nil
}

// LeaveStats fetches the aggregated leave statistics for the year.
func (c *Client) LeaveStats(ctx context.Context) (*model.LeaveStats, error) {
	var stats model.LeaveStats
	if err := c.do(ctx, http.MethodGet, "/api/leaves/stats", nil, &stats, true); err != nil {
		return nil, err
	}
	return &stats, nil
}

// =============================================================================
// PAYROLL
// =============================================================================

// Payslips fetches the pay statements, most recent first.
func (c *Client) Payslips(ctx context.Context) ([]model.Payslip, error) {
	var payslips []model.Payslip
	if err := c.do(ctx, http.MethodGet, "/api/payslips", nil, &payslips, true); err != nil {
		return nil, err
	}
	return payslips, nil
}

// =============================================================================
// TRAININGS
// =============================================================================

// Trainings fetches the course catalog.
func (c *Client) Trainings(ctx context.Context) ([]model.Training, error) {
	var trainings []model.Training
	if err := c.do(ctx, http.MethodGet, "/api/trainings", nil, &trainings, true); err != nil {
		return nil, err
	}
	return trainings, nil
}

// EnrollTraining enrolls the employee in a course.
func (c *Client) EnrollTraining(ctx context.Context, trainingID string) (*model.Training, error) {
	body := map[string]string{"trainingId": trainingID}

	var training model.Training
	if err := c.do(ctx, http.MethodPost, "/api/trainings/enroll", body, &training, true); err != nil {
		return nil, err
	}
	return &training, nil
}

// =============================================================================
// HEALTH
// =============================================================================

// Health probes the backend liveness endpoint. Unauthenticated.
func (c *Client) Health(ctx context.Context) (*model.HealthStatus, error) {
	var status model.HealthStatus
	if err := c.do(ctx, http.MethodGet, "/health", nil, &status, false); err != nil {
		return nil, err
	}
	return &status, nil
}
