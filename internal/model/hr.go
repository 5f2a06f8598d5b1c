// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "time"

// =============================================================================
// USER IDENTITY
// =============================================================================

// User is the authenticated employee identity as returned by the backend.
type User struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Department string `json:"department,omitempty"`
	Role       string `json:"role,omitempty"`
}

// =============================================================================
// LEAVES
// =============================================================================

// LeaveType classifies a leave request.
type LeaveType string

const (
	LeavePaid      LeaveType = "PAID"
	LeaveRTT       LeaveType = "RTT"
	LeaveSick      LeaveType = "SICK"
	LeaveMaternity LeaveType = "MATERNITY"
	LeavePaternity LeaveType = "PATERNITY"
	LeaveSpecial   LeaveType = "SPECIAL"
	LeaveUnpaid    LeaveType = "UNPAID"
)

// LeaveStatus is the approval state of a leave request.
type LeaveStatus string

const (
	LeavePending   LeaveStatus = "PENDING"
	LeaveApproved  LeaveStatus = "APPROVED"
	LeaveRejected  LeaveStatus = "REJECTED"
	LeaveCancelled LeaveStatus = "CANCELLED"
)

// LeaveBalance is the employee's remaining leave allowance, in days.
type LeaveBalance struct {
	ID         string    `json:"id,omitempty"`
	PaidLeave  float64   `json:"paidLeave"`
	RTT        float64   `json:"rtt"`
	SickLeave  float64   `json:"sickLeave"`
	Year       int       `json:"year,omitempty"`
	LastUpdate time.Time `json:"lastUpdate"`
}

// LeaveRequest is one pending or settled leave request.
type LeaveRequest struct {
	ID         string      `json:"id"`
	Type       LeaveType   `json:"type"`
	StartDate  string      `json:"startDate"` // yyyy-mm-dd, as the backend sends it
	EndDate    string      `json:"endDate"`
	Days       float64     `json:"days"`
	Reason     string      `json:"reason,omitempty"`
	Status     LeaveStatus `json:"status"`
	ApprovedBy string      `json:"approvedBy,omitempty"`
	CreatedAt  time.Time   `json:"createdAt"`
}

// NewLeaveRequest is the payload for creating a leave request.
type NewLeaveRequest struct {
	Type      LeaveType `json:"type"`
	StartDate string    `json:"startDate"`
	EndDate   string    `json:"endDate"`
	Reason    string    `json:"reason,omitempty"`
}

// LeaveStats aggregates a year of leave activity.
type LeaveStats struct {
	TotalRequests    int     `json:"totalRequests"`
	UsedDays         float64 `json:"usedDays"`
	PendingRequests  int     `json:"pendingRequests"`
	ApprovedRequests int     `json:"approvedRequests"`
	RejectedRequests int     `json:"rejectedRequests"`
}

// =============================================================================
// PAYROLL
// =============================================================================

// Payslip is one month's pay statement.
type Payslip struct {
	ID          string  `json:"id"`
	Period      string  `json:"period"` // yyyy-mm
	NetSalary   float64 `json:"netSalary"`
	GrossSalary float64 `json:"grossSalary"`
	DownloadURL string  `json:"downloadUrl,omitempty"`
}

// =============================================================================
// TRAININGS
// =============================================================================

// Training is a course the employee can enroll in.
type Training struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Description    string `json:"description,omitempty"`
	Duration       string `json:"duration,omitempty"`
	AvailableSpots int    `json:"availableSpots"`
	Recommended    bool   `json:"recommended,omitempty"`
	Enrolled       bool   `json:"enrolled,omitempty"`
}

// =============================================================================
// HEALTH
// =============================================================================

// HealthStatus is the backend /health response.
type HealthStatus struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Uptime    float64   `json:"uptime,omitempty"`
	Version   string    `json:"version,omitempty"`
}

// Healthy reports whether the backend considers itself up.
func (h HealthStatus) Healthy() bool {
	return h.Status == "ok" || h.Status == "healthy" || h.Status == "UP"
}
