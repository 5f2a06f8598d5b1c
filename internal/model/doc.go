// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures shared across the client:
// chat messages and conversations, quick actions, and the HR resources
// returned by the backend (leave balances, payslips, trainings).
//
// Everything in this package is plain data. Network and persistence
// concerns live in internal/api, internal/realtime and internal/store.
package model
