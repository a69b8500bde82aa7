package billing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"mesa/internal/core"
)

// Aggregator keeps invoices consistent with the entries attached to them.
// Invoice totals are always recomputed as a full re-sum of live entry data,
// never incrementally patched, so they cannot drift.
type Aggregator struct {
	store Store
}

func NewAggregator(store Store) *Aggregator {
	return &Aggregator{store: store}
}

// Assign routes a card-linked entry to the invoice of its billing cycle,
// creating the invoice lazily on first use. Called on entry creation and
// whenever the entry's amount or due date changes. Idempotent for an
// unchanged entry. Debit-card and cardless entries are never invoiced.
func (a *Aggregator) Assign(ctx context.Context, entry *core.ExpenseEntry, now time.Time) (*core.Invoice, error) {
	if entry.CardID == nil {
		return nil, nil
	}
	card, err := a.store.GetCard(ctx, *entry.CardID)
	if err != nil {
		return nil, fmt.Errorf("card %d: %w", *entry.CardID, err)
	}
	if !card.IsCredit() {
		return nil, nil
	}

	cycle := ResolveCycle(card, entry.DueDate)
	inv, err := a.store.FindInvoice(ctx, card.ID, cycle.ReferenceMonth)
	if err != nil {
		return nil, fmt.Errorf("find invoice: %w", err)
	}
	if inv == nil {
		inv = &core.Invoice{
			CardID:         card.ID,
			MesaID:         entry.MesaID,
			ReferenceMonth: cycle.ReferenceMonth,
			ClosingDate:    cycle.ClosingDate,
			DueDate:        cycle.DueDate,
			Status:         core.InvoiceOpen,
			Active:         true,
		}
		if err := a.store.CreateInvoice(ctx, inv); err != nil {
			return nil, fmt.Errorf("create invoice: %w", err)
		}
	}

	// An invoice deactivated after losing its last entry comes back once a
	// new entry lands in its cycle.
	if !inv.Active {
		inv.Active = true
	}
	if inv.Status == core.InvoiceOpen && now.After(inv.ClosingDate.Time) {
		inv.Status = core.InvoiceClosed
	}
	if inv.Status != core.InvoiceOpen {
		slog.InfoContext(ctx, "Late addition to a closed invoice",
			"invoice_id", inv.ID,
			"entry_id", entry.ID,
			"status", string(inv.Status))
	}

	var detachedFrom int64
	if entry.InvoiceID != nil && *entry.InvoiceID != inv.ID {
		detachedFrom = *entry.InvoiceID
	}

	invoiceID := inv.ID
	entry.InvoiceID = &invoiceID
	if err := a.store.UpdateEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("attach entry %d: %w", entry.ID, err)
	}

	if detachedFrom != 0 {
		if err := a.refreshByID(ctx, detachedFrom); err != nil {
			return nil, err
		}
	}
	if err := a.Refresh(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// Detach removes an entry from its invoice (soft-delete of the entry, or the
// entry losing its credit card) and re-sums the invoice it left.
func (a *Aggregator) Detach(ctx context.Context, entry *core.ExpenseEntry) error {
	if entry.InvoiceID == nil {
		return nil
	}
	oldID := *entry.InvoiceID
	entry.InvoiceID = nil
	if err := a.store.UpdateEntry(ctx, entry); err != nil {
		return fmt.Errorf("detach entry %d: %w", entry.ID, err)
	}
	return a.refreshByID(ctx, oldID)
}

// Refresh recomputes the invoice's provisioned total from its live entries.
// An unpaid invoice left with no countable entries is deactivated, never
// deleted; querying it by id still returns it with Active=false.
func (a *Aggregator) Refresh(ctx context.Context, inv *core.Invoice) error {
	entries, err := a.store.EntriesByInvoice(ctx, inv.ID)
	if err != nil {
		return fmt.Errorf("list entries of invoice %d: %w", inv.ID, err)
	}

	var sum int64
	count := 0
	for _, e := range entries {
		if !e.CountsForInvoice() {
			continue
		}
		sum += e.Provisioned.Cents
		count++
	}
	inv.Provisioned = core.Money{Cents: sum}
	if count == 0 && inv.Status != core.InvoicePaid {
		inv.Active = false
	}

	if err := a.store.UpdateInvoice(ctx, inv); err != nil {
		return fmt.Errorf("update invoice %d: %w", inv.ID, err)
	}
	return nil
}

// RefreshInvoice re-sums one invoice by id, for callers that only hold the
// id (soft-deletes, sweep corrections).
func (a *Aggregator) RefreshInvoice(ctx context.Context, invoiceID int64) error {
	return a.refreshByID(ctx, invoiceID)
}

func (a *Aggregator) refreshByID(ctx context.Context, invoiceID int64) error {
	inv, err := a.store.GetInvoice(ctx, invoiceID)
	if err != nil {
		return fmt.Errorf("invoice %d: %w", invoiceID, err)
	}
	return a.Refresh(ctx, inv)
}

// CloseDue flips every open invoice whose closing date has passed to closed
// and returns them, so the caller can notify. Safe to run synchronously on
// read or from the periodic sweep.
func (a *Aggregator) CloseDue(ctx context.Context, now time.Time) ([]*core.Invoice, error) {
	due, err := a.store.OpenInvoicesClosedBefore(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("list due invoices: %w", err)
	}

	var closed []*core.Invoice
	for _, inv := range due {
		inv.Status = core.InvoiceClosed
		if err := a.store.UpdateInvoice(ctx, inv); err != nil {
			slog.ErrorContext(ctx, "Failed to close invoice",
				"invoice_id", inv.ID,
				"error", err)
			continue
		}
		closed = append(closed, inv)
	}
	return closed, nil
}
