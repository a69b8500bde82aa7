// Package billing implements the credit-card invoice engine: billing-cycle
// resolution, installment expansion, invoice aggregation and payment
// reconciliation. All date comparisons take the reference instant as an
// explicit parameter; nothing in this package reads the system clock.
package billing

import (
	"time"

	"mesa/internal/core"
)

// Cycle is the month-bounded billing window a date resolves to.
type Cycle struct {
	ReferenceMonth core.Date // first-of-month marker, the invoice grouping key
	ClosingDate    core.Date
	DueDate        core.Date
}

// ResolveCycle computes which billing cycle a date belongs to for the given
// card configuration. Pure and deterministic.
//
// Without a configured closing day every date maps to its calendar month
// (closing = last day, due = closing), a degenerate one-cycle-per-month
// fallback that still gives the aggregator a grouping key. Otherwise a date
// on/before this month's closing day belongs to this month's cycle; a later
// date rolls to the next month. Day values exceeding the month length clamp
// to the month's last day.
func ResolveCycle(card *core.Card, date core.Date) Cycle {
	if card.ClosingDay < 1 {
		closing := core.ClampDay(date.Year(), time.Month(date.Month()), 31)
		return Cycle{
			ReferenceMonth: core.FirstOfMonth(date),
			ClosingDate:    closing,
			DueDate:        closing,
		}
	}

	closing := core.ClampDay(date.Year(), time.Month(date.Month()), card.ClosingDay)
	if date.After(closing.Time) {
		closing = core.ClampDay(date.Year(), time.Month(date.Month()+1), card.ClosingDay)
	}

	due := closing
	if card.DueDay >= 1 {
		dueMonth := time.Month(closing.Month())
		if card.DueDay < card.ClosingDay {
			// Numerically smaller due day falls after the closing day
			// chronologically, so it lands in the following month.
			dueMonth++
		}
		due = core.ClampDay(closing.Year(), dueMonth, card.DueDay)
	}

	return Cycle{
		ReferenceMonth: core.FirstOfMonth(closing),
		ClosingDate:    closing,
		DueDate:        due,
	}
}
