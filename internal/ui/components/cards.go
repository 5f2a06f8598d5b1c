// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/antibia/hrchat-tui/internal/format"
	"github.com/antibia/hrchat-tui/internal/hr"
	"github.com/antibia/hrchat-tui/internal/model"
	"github.com/antibia/hrchat-tui/internal/ui/styles"
)

// CardRenderer draws the HR dashboard cards shown next to action results.
type CardRenderer struct {
	theme *styles.Theme
}

// NewCardRenderer creates a card renderer.
func NewCardRenderer(theme *styles.Theme) *CardRenderer {
	return &CardRenderer{theme: theme}
}

// LeaveBalanceCard renders the remaining leave allowance.
func (c *CardRenderer) LeaveBalanceCard(balance *model.LeaveBalance, stale bool) string {
	if balance == nil {
		return ""
	}

	var b strings.Builder
	b.WriteString(c.theme.CardTitle.Render("Solde de congés"))
	b.WriteString("\n")
	b.WriteString(c.line("Congés payés", format.Days(balance.PaidLeave)))
	b.WriteString(c.line("RTT", format.Days(balance.RTT)))
	b.WriteString(c.line("Maladie", format.Days(balance.SickLeave)))
	if stale {
		b.WriteString(c.theme.CardStale.Render("données possiblement obsolètes"))
	}
	return c.theme.Card.Render(strings.TrimRight(b.String(), "\n"))
}

// LeaveRequestsCard renders the request history.
func (c *CardRenderer) LeaveRequestsCard(requests []model.LeaveRequest, stale bool) string {
	var b strings.Builder
	b.WriteString(c.theme.CardTitle.Render("Demandes de congés"))
	b.WriteString("\n")

	if len(requests) == 0 {
		b.WriteString(c.theme.CardLabel.Render("Aucune demande"))
	}
	for i, req := range requests {
		if i >= 5 {
			b.WriteString(c.theme.CardLabel.Render(fmt.Sprintf("… et %d autres", len(requests)-i)))
			break
		}
		line := fmt.Sprintf("%s → %s (%s) %s",
			format.Date(req.StartDate),
			format.Date(req.EndDate),
			format.Days(req.Days),
			c.statusBadge(req.Status),
		)
		b.WriteString(line + "\n")
	}
	if stale {
		b.WriteString(c.theme.CardStale.Render("données possiblement obsolètes"))
	}
	return c.theme.Card.Render(strings.TrimRight(b.String(), "\n"))
}

// PayslipCard renders the most recent payslips.
func (c *CardRenderer) PayslipCard(payslips []model.Payslip, stale bool) string {
	var b strings.Builder
	b.WriteString(c.theme.CardTitle.Render("Fiches de paie"))
	b.WriteString("\n")

	if len(payslips) == 0 {
		b.WriteString(c.theme.CardLabel.Render("Aucune fiche disponible"))
	}
	for i, p := range payslips {
		if i >= 3 {
			break
		}
		b.WriteString(c.line(format.Period(p.Period),
			fmt.Sprintf("net %s / brut %s", format.Euro(p.NetSalary), format.Euro(p.GrossSalary))))
	}
	if stale {
		b.WriteString(c.theme.CardStale.Render("données possiblement obsolètes"))
	}
	return c.theme.Card.Render(strings.TrimRight(b.String(), "\n"))
}

// TrainingsCard renders the course catalog with enrollment state.
func (c *CardRenderer) TrainingsCard(trainings []model.Training, stale bool) string {
	var b strings.Builder
	b.WriteString(c.theme.CardTitle.Render("Formations"))
	b.WriteString("\n")

	if len(trainings) == 0 {
		b.WriteString(c.theme.CardLabel.Render("Aucune formation au catalogue"))
	}
	for _, t := range trainings {
		marker := c.theme.CardLabel.Render(fmt.Sprintf("%d places", t.AvailableSpots))
		if t.Enrolled {
			marker = c.theme.BadgeOK.Render("inscrit")
		} else if t.Recommended {
			marker = c.theme.BadgePending.Render("recommandée")
		}
		b.WriteString(c.theme.CardValue.Render(t.Title) + " " + marker + "\n")
	}
	if stale {
		b.WriteString(c.theme.CardStale.Render("données possiblement obsolètes"))
	}
	return c.theme.Card.Render(strings.TrimRight(b.String(), "\n"))
}

// StatsCard renders the yearly leave statistics.
func (c *CardRenderer) StatsCard(stats *model.LeaveStats) string {
	if stats == nil {
		return ""
	}

	var b strings.Builder
	b.WriteString(c.theme.CardTitle.Render("Statistiques de l'année"))
	b.WriteString("\n")
	b.WriteString(c.line("Demandes", fmt.Sprintf("%d", stats.TotalRequests)))
	b.WriteString(c.line("Jours pris", format.Days(stats.UsedDays)))
	b.WriteString(c.line("En attente", fmt.Sprintf("%d", stats.PendingRequests)))
	return c.theme.Card.Render(strings.TrimRight(b.String(), "\n"))
}

// Dashboard renders the cards for a full HR snapshot, stacked.
func (c *CardRenderer) Dashboard(snap hr.Snapshot) string {
	var cards []string
	if card := c.LeaveBalanceCard(snap.Balance, snap.Stale[hr.SectionBalance]); card != "" {
		cards = append(cards, card)
	}
	if len(snap.Payslips) > 0 {
		cards = append(cards, c.PayslipCard(snap.Payslips, snap.Stale[hr.SectionPayslips]))
	}
	if len(snap.Trainings) > 0 {
		cards = append(cards, c.TrainingsCard(snap.Trainings, snap.Stale[hr.SectionTrainings]))
	}
	if len(cards) == 0 {
		return ""
	}
	return lipgloss.JoinVertical(lipgloss.Left, cards...)
}

func (c *CardRenderer) line(label, value string) string {
	return c.theme.CardLabel.Render(label+" : ") + c.theme.CardValue.Render(value) + "\n"
}

func (c *CardRenderer) statusBadge(status model.LeaveStatus) string {
	switch status {
	case model.LeaveApproved:
		return c.theme.BadgeOK.Render("approuvée")
	case model.LeaveRejected:
		return c.theme.BadgeError.Render("refusée")
	case model.LeaveCancelled:
		return c.theme.CardLabel.Render("annulée")
	default:
		return c.theme.BadgePending.Render("en attente")
	}
}
