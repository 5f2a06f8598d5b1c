// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package hr caches the employee's HR data for the dashboard surfaces.
//
// Each section (balance, requests, stats, payslips, trainings) keeps its
// last successfully fetched value. A failed refresh marks the section
// stale but never discards the previous value, so the UI can keep showing
// known-good data with a staleness hint instead of going blank.
package hr

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/antibia/hrchat-tui/internal/api"
	"github.com/antibia/hrchat-tui/internal/model"
)

// Section names a cached data set.
type Section string

const (
	SectionBalance   Section = "balance"
	SectionRequests  Section = "requests"
	SectionStats     Section = "stats"
	SectionPayslips  Section = "payslips"
	SectionTrainings Section = "trainings"
)

// Snapshot is a point-in-time copy of everything the service holds.
type Snapshot struct {
	Balance   *model.LeaveBalance
	Requests  []model.LeaveRequest
	Stats     *model.LeaveStats
	Payslips  []model.Payslip
	Trainings []model.Training

	// Stale marks sections whose last refresh failed.
	Stale map[Section]bool
	// FetchedAt records when each section last refreshed successfully.
	FetchedAt map[Section]time.Time
}

// Service fetches and caches HR data through the backend client.
type Service struct {
	client *api.Client
	logger zerolog.Logger

	mu        sync.Mutex
	balance   *model.LeaveBalance
	requests  []model.LeaveRequest
	stats     *model.LeaveStats
	payslips  []model.Payslip
	trainings []model.Training
	stale     map[Section]bool
	fetchedAt map[Section]time.Time
}

// NewService creates an HR data service.
func NewService(client *api.Client, logger zerolog.Logger) *Service {
	return &Service{
		client:    client,
		logger:    logger.With().Str("component", "hr").Logger(),
		stale:     map[Section]bool{},
		fetchedAt: map[Section]time.Time{},
	}
}

// Snapshot returns a copy of the cached data.
func (s *Service) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Balance:   s.balance,
		Stats:     s.stats,
		Requests:  append([]model.LeaveRequest(nil), s.requests...),
		Payslips:  append([]model.Payslip(nil), s.payslips...),
		Trainings: append([]model.Training(nil), s.trainings...),
		Stale:     map[Section]bool{},
		FetchedAt: map[Section]time.Time{},
	}
	for k, v := range s.stale {
		snap.Stale[k] = v
	}
	for k, v := range s.fetchedAt {
		snap.FetchedAt[k] = v
	}
	return snap
}

// Reset drops all cached data. Called on logout so the next user never
// sees the previous user's figures.
func (s *Service) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balance = nil
	s.requests = nil
	s.stats = nil
	s.payslips = nil
	s.trainings = nil
	s.stale = map[Section]bool{}
	s.fetchedAt = map[Section]time.Time{}
}

// =============================================================================
// REFRESH
// =============================================================================

// RefreshBalance fetches the leave balance. On failure the previous value
// is kept and the section is marked stale.
func (s *Service) RefreshBalance(ctx context.Context) (*model.LeaveBalance, error) {
	balance, err := s.client.LeaveBalance(ctx)
	if err != nil {
		s.markStale(SectionBalance, err)
		return s.cachedBalance(), err
	}

	s.mu.Lock()
	s.balance = balance
	s.stale[SectionBalance] = false
	s.fetchedAt[SectionBalance] = time.Now()
	s.mu.Unlock()
	return balance, nil
}

// RefreshRequests fetches the leave request history.
func (s *Service) RefreshRequests(ctx context.Context) ([]model.LeaveRequest, error) {
	requests, err := s.client.LeaveRequests(ctx)
	if err != nil {
		s.markStale(SectionRequests, err)
		s.mu.Lock()
		defer s.mu.Unlock()
		return append([]model.LeaveRequest(nil), s.requests...), err
	}

	s.mu.Lock()
	s.requests = requests
	s.stale[SectionRequests] = false
	s.fetchedAt[SectionRequests] = time.Now()
	s.mu.Unlock()
	return requests, nil
}

// RefreshStats fetches the yearly leave statistics.
func (s *Service) RefreshStats(ctx context.Context) (*model.LeaveStats, error) {
	stats, err := s.client.LeaveStats(ctx)
	if err != nil {
		s.markStale(SectionStats, err)
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.stats, err
	}

	s.mu.Lock()
	s.stats = stats
	s.stale[SectionStats] = false
	s.fetchedAt[SectionStats] = time.Now()
	s.mu.Unlock()
	return stats, nil
}

// RefreshPayslips fetches the pay statements.
func (s *Service) RefreshPayslips(ctx context.Context) ([]model.Payslip, error) {
	payslips, err := s.client.Payslips(ctx)
	if err != nil {
		s.markStale(SectionPayslips, err)
		s.mu.Lock()
		defer s.mu.Unlock()
		return append([]model.Payslip(nil), s.payslips...), err
	}

	s.mu.Lock()
	s.payslips = payslips
	s.stale[SectionPayslips] = false
	s.fetchedAt[SectionPayslips] = time.Now()
	s.mu.Unlock()
	return payslips, nil
}

// RefreshTrainings fetches the course catalog.
func (s *Service) RefreshTrainings(ctx context.Context) ([]model.Training, error) {
	trainings, err := s.client.Trainings(ctx)
	if err != nil {
		s.markStale(SectionTrainings, err)
		s.mu.Lock()
		defer s.mu.Unlock()
		return append([]model.Training(nil), s.trainings...), err
	}

	s.mu.Lock()
	s.trainings = trainings
	s.stale[SectionTrainings] = false
	s.fetchedAt[SectionTrainings] = time.Now()
	s.mu.Unlock()
	return trainings, nil
}

// =============================================================================
// MUTATIONS
// =============================================================================

// CreateLeaveRequest submits a leave request and folds the created entry
// into the cached history.
func (s *Service) CreateLeaveRequest(ctx context.Context, req model.NewLeaveRequest) (*model.LeaveRequest, error) {
	created, err := s.client.CreateLeaveRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.requests = append([]model.LeaveRequest{*created}, s.requests...)
	// The balance the server holds has moved; what we cached is stale.
	s.stale[SectionBalance] = true
	s.mu.Unlock()

	s.logger.Info().Str("type", string(req.Type)).Msg("leave request created")
	return created, nil
}

// EnrollTraining enrolls in a course and updates the cached catalog entry.
func (s *Service) EnrollTraining(ctx context.Context, trainingID string) (*model.Training, error) {
	enrolled, err := s.client.EnrollTraining(ctx, trainingID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	for i := range s.trainings {
		if s.trainings[i].ID == enrolled.ID {
			s.trainings[i] = *enrolled
		}
	}
	s.mu.Unlock()

	s.logger.Info().Str("training", trainingID).Msg("enrolled")
	return enrolled, nil
}

// Health probes the backend.
func (s *Service) Health(ctx context.Context) (*model.HealthStatus, error) {
	return s.client.Health(ctx)
}

// =============================================================================
// HELPERS
// =============================================================================

func (s *Service) markStale(section Section, cause error) {
	s.mu.Lock()
	s.stale[section] = true
	s.mu.Unlock()
	s.logger.Warn().Str("section", string(section)).Err(cause).Msg("refresh failed, keeping cached value")
}

func (s *Service) cachedBalance() *model.LeaveBalance {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balance
}
