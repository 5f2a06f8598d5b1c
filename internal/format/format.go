// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package format renders HR values for display: euro amounts, French
// dates, leave-day counts and relative timestamps. The backend serves a
// French workforce, so the locale is fixed rather than negotiated.
package format

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.French)

// wireDate is the date layout the backend uses (yyyy-mm-dd).
const wireDate = "2006-01-02"

// displayDate is the layout shown to the user (dd/MM/yyyy).
const displayDate = "02/01/2006"

var frenchMonths = [...]string{
	"janvier", "février", "mars", "avril", "mai", "juin",
	"juillet", "août", "septembre", "octobre", "novembre", "décembre",
}

// Euro renders an amount in euros with French digit grouping.
func Euro(amount float64) string {
	return printer.Sprintf("%.2f", amount) + " €"
}

// Date converts a backend date (yyyy-mm-dd) to dd/MM/yyyy. Unparseable
// input is returned as-is rather than hidden.
func Date(wire string) string {
	t, err := time.Parse(wireDate, wire)
	if err != nil {
		return wire
	}
	return t.Format(displayDate)
}

// Period renders a payslip period (yyyy-mm) as "mois année".
func Period(period string) string {
	t, err := time.Parse("2006-01", period)
	if err != nil {
		return period
	}
	return frenchMonths[t.Month()-1] + " " + strconv.Itoa(t.Year())
}

// Days renders a day count with the right plural: "1 jour", "2,5 jours".
func Days(days float64) string {
	s := strconv.FormatFloat(days, 'f', -1, 64)
	s = strings.ReplaceAll(s, ".", ",")
	if days > 1 {
		return s + " jours"
	}
	return s + " jour"
}

// Relative renders how long ago a timestamp was, coarsely.
func Relative(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "à l'instant"
	case d < time.Hour:
		return plural(int(d.Minutes()), "minute")
	case d < 24*time.Hour:
		return plural(int(d.Hours()), "heure")
	case d < 30*24*time.Hour:
		return plural(int(d.Hours()/24), "jour")
	default:
		return "le " + t.Format(displayDate)
	}
}

func plural(n int, unit string) string {
	if n > 1 {
		return fmt.Sprintf("il y a %d %ss", n, unit)
	}
	return fmt.Sprintf("il y a %d %s", n, unit)
}

// Clock renders a message timestamp for the transcript gutter.
func Clock(t time.Time) string {
	return t.Format("15:04")
}
