// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// Quick action names understood by the backend. The server matches on these
// strings, so they are part of the wire vocabulary.
const (
	ActionViewLeaves     = "view_leaves"
	ActionRequestLeave   = "request_leave"
	ActionLeaveHistory   = "leave_history"
	ActionViewPayslip    = "view_payslip"
	ActionDownloadPay    = "download_payslip"
	ActionPayslipHistory = "payslip_history"
	ActionViewTrainings  = "view_trainings"
	ActionEnrollTraining = "enroll_training"
	ActionMyTrainings    = "my_trainings"
	ActionHelp           = "help"
	ActionContactHR      = "contact_hr"
)

// DefaultQuickActions is the action panel shown when the transcript is fresh.
// The server may attach more specific actions to individual bot messages.
var DefaultQuickActions = []QuickAction{
	{ID: "qa_leaves", Label: "Leave balance", Icon: "[L]", Action: ActionViewLeaves},
	{ID: "qa_payslip", Label: "Latest payslip", Icon: "[P]", Action: ActionViewPayslip},
	{ID: "qa_trainings", Label: "Trainings", Icon: "[T]", Action: ActionViewTrainings},
	{ID: "qa_help", Label: "Help", Icon: "[?]", Action: ActionHelp},
}

// KnownAction reports whether the name is part of the quick-action
// vocabulary. Unknown names are still sent as-is; the server decides.
func KnownAction(name string) bool {
	switch name {
	case ActionViewLeaves, ActionRequestLeave, ActionLeaveHistory,
		ActionViewPayslip, ActionDownloadPay, ActionPayslipHistory,
		ActionViewTrainings, ActionEnrollTraining, ActionMyTrainings,
		ActionHelp, ActionContactHR:
		return true
	}
	return false
}
