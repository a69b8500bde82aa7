package services

import (
	"context"
	"log/slog"
	"time"

	"mesa/internal/amqp"
	"mesa/internal/billing"
)

// Notifier publishes billing alerts. The AMQP client satisfies it; a nil
// Notifier disables alerting without disabling the sweep.
type Notifier interface {
	PublishInvoiceClosed(ctx context.Context, msg amqp.InvoiceClosedMessage) error
	PublishEntryOverdue(ctx context.Context, msg amqp.EntryOverdueMessage) error
}

// SweepProcessor runs the periodic maintenance pass: closes open invoices
// past their closing date, extends open-ended recurring series up to the
// horizon, and flags overdue entries. Each pass is idempotent; publish
// failures are logged and never abort the pass.
type SweepProcessor struct {
	store      billing.Store
	expander   *billing.Expander
	aggregator *billing.Aggregator
	notifier   Notifier
}

func NewSweepProcessor(store billing.Store, horizonMonths int, notifier Notifier) *SweepProcessor {
	return &SweepProcessor{
		store:      store,
		expander:   billing.NewExpander(store, horizonMonths),
		aggregator: billing.NewAggregator(store),
		notifier:   notifier,
	}
}

// RunOnce executes a full sweep pass. Partial failures in one stage do not
// prevent the next stage from running; the first error is returned.
func (p *SweepProcessor) RunOnce(ctx context.Context, now time.Time) error {
	var firstErr error

	if _, err := p.CloseDueInvoices(ctx, now); err != nil {
		slog.ErrorContext(ctx, "Sweep: closing invoices failed", "error", err)
		firstErr = err
	}
	if _, err := p.ExtendOpenSeries(ctx, now); err != nil {
		slog.ErrorContext(ctx, "Sweep: extending series failed", "error", err)
		if firstErr == nil {
			firstErr = err
		}
	}
	if _, err := p.NotifyOverdue(ctx, now); err != nil {
		slog.ErrorContext(ctx, "Sweep: overdue notification failed", "error", err)
		if firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// CloseDueInvoices flips open invoices past their closing date to closed and
// publishes one alert per closed invoice. Returns how many were closed.
func (p *SweepProcessor) CloseDueInvoices(ctx context.Context, now time.Time) (int, error) {
	closed, err := p.aggregator.CloseDue(ctx, now)
	if err != nil {
		return 0, err
	}

	for _, inv := range closed {
		p.publishInvoiceClosed(ctx, amqp.InvoiceClosedMessage{
			InvoiceID:      inv.ID,
			CardID:         inv.CardID,
			MesaID:         inv.MesaID,
			ReferenceMonth: inv.ReferenceMonth.Format("2006-01-02"),
			TotalCents:     inv.Provisioned.Cents,
		})
	}

	if len(closed) > 0 {
		slog.InfoContext(ctx, "Sweep closed invoices", "count", len(closed))
	}
	return len(closed), nil
}

// ExtendOpenSeries materializes upcoming occurrences for every open-ended
// recurring series and routes the new entries to their invoices. Returns how
// many entries were created.
func (p *SweepProcessor) ExtendOpenSeries(ctx context.Context, now time.Time) (int, error) {
	groups, err := p.store.OpenSeriesGroups(ctx)
	if err != nil {
		return 0, err
	}

	until := p.expander.HorizonEnd(now)
	total := 0
	for _, groupID := range groups {
		created, err := p.expander.ExtendSeries(ctx, groupID, until)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to extend series",
				"group_id", groupID,
				"error", err)
			continue
		}
		for _, e := range created {
			if _, err := p.aggregator.Assign(ctx, e, now); err != nil {
				slog.ErrorContext(ctx, "Failed to assign extended entry",
					"entry_id", e.ID,
					"error", err)
			}
		}
		total += len(created)
	}
	return total, nil
}

// NotifyOverdue publishes one alert per unpaid entry past its due date and
// marks the entry so the alert fires once. Returns how many were flagged.
func (p *SweepProcessor) NotifyOverdue(ctx context.Context, now time.Time) (int, error) {
	overdue, err := p.store.UnnotifiedOverdueEntries(ctx, now)
	if err != nil {
		return 0, err
	}

	flagged := 0
	for _, e := range overdue {
		p.publishEntryOverdue(ctx, amqp.EntryOverdueMessage{
			EntryID:     e.ID,
			MesaID:      e.MesaID,
			Description: e.Description,
			DueDate:     e.DueDate.Format("2006-01-02"),
			AmountCents: e.Provisioned.Cents,
		})

		e.OverdueNotified = true
		if err := p.store.UpdateEntry(ctx, e); err != nil {
			slog.ErrorContext(ctx, "Failed to mark entry as notified",
				"entry_id", e.ID,
				"error", err)
			continue
		}
		flagged++
	}

	if flagged > 0 {
		slog.InfoContext(ctx, "Sweep flagged overdue entries", "count", flagged)
	}
	return flagged, nil
}

func (p *SweepProcessor) publishInvoiceClosed(ctx context.Context, msg amqp.InvoiceClosedMessage) {
	if p.notifier == nil {
		slog.WarnContext(ctx, "Notifier not available, skipping invoice closed alert",
			"invoice_id", msg.InvoiceID)
		return
	}
	if err := p.notifier.PublishInvoiceClosed(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish invoice closed alert",
			"invoice_id", msg.InvoiceID,
			"error", err)
	}
}

func (p *SweepProcessor) publishEntryOverdue(ctx context.Context, msg amqp.EntryOverdueMessage) {
	if p.notifier == nil {
		slog.WarnContext(ctx, "Notifier not available, skipping overdue alert",
			"entry_id", msg.EntryID)
		return
	}
	if err := p.notifier.PublishEntryOverdue(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish overdue alert",
			"entry_id", msg.EntryID,
			"error", err)
	}
}
