package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"mesa/internal/billing"
	"mesa/internal/core"
)

// EntryService orchestrates the expense lifecycle: expansion of a creation
// request into dated entries, routing each entry to its invoice, edits,
// soft-deletion, and payment transitions. Handlers talk to this type, never
// to the billing primitives directly.
type EntryService struct {
	store      billing.Store
	expander   *billing.Expander
	aggregator *billing.Aggregator
	reconciler *billing.Reconciler
}

func NewEntryService(store billing.Store, horizonMonths int) *EntryService {
	return &EntryService{
		store:      store,
		expander:   billing.NewExpander(store, horizonMonths),
		aggregator: billing.NewAggregator(store),
		reconciler: billing.NewReconciler(store),
	}
}

// CreateExpense expands the request, persists every produced entry and
// attaches each one to the invoice of its billing cycle. Returns the created
// entries in installment order.
func (s *EntryService) CreateExpense(ctx context.Context, req billing.ExpandRequest, now time.Time) ([]*core.ExpenseEntry, error) {
	entries, err := s.expander.Expand(req, now)
	if err != nil {
		return nil, err
	}

	for _, e := range entries {
		if err := e.Validate(); err != nil {
			return nil, err
		}
	}

	for i, e := range entries {
		if err := s.store.CreateEntry(ctx, e); err != nil {
			return entries[:i], fmt.Errorf("create entry %d of %d: %w", i+1, len(entries), err)
		}
		if _, err := s.aggregator.Assign(ctx, e, now); err != nil {
			return entries[:i+1], fmt.Errorf("assign entry %d: %w", e.ID, err)
		}
	}

	slog.InfoContext(ctx, "Expense created",
		"group_id", entries[0].GroupID,
		"entries", len(entries),
		"total_cents", req.Total.Cents)
	return entries, nil
}

// UpdateEntryRequest carries the editable fields of an unpaid entry. Nil
// fields are left untouched.
type UpdateEntryRequest struct {
	Description *string
	Amount      *core.Money
	DueDate     *core.Date
	CategoryID  *int64
}

// UpdateEntry edits an unpaid entry. A due-date change can move the entry
// across billing cycles; the invoices on both sides are re-summed.
func (s *EntryService) UpdateEntry(ctx context.Context, entryID int64, req UpdateEntryRequest, now time.Time) (*core.ExpenseEntry, error) {
	e, err := s.store.GetEntry(ctx, entryID)
	if err != nil {
		return nil, core.EntryErr(entryID, err)
	}
	if e.Paid {
		return nil, core.EntryErr(entryID, core.ErrAlreadyPaid)
	}
	if e.Cancelled() {
		return nil, core.EntryErr(entryID, core.ErrCancelled)
	}

	if req.Description != nil {
		e.Description = *req.Description
	}
	if req.Amount != nil {
		e.Provisioned = *req.Amount
	}
	if req.DueDate != nil {
		e.DueDate = *req.DueDate
	}
	if req.CategoryID != nil {
		e.CategoryID = req.CategoryID
	}
	if err := e.Validate(); err != nil {
		return nil, core.EntryErr(entryID, err)
	}

	if err := s.store.UpdateEntry(ctx, e); err != nil {
		return nil, core.EntryErr(entryID, err)
	}
	if _, err := s.aggregator.Assign(ctx, e, now); err != nil {
		return nil, err
	}
	return e, nil
}

// DeleteEntry soft-deletes one entry. The entry stays queryable with
// Active=false and leaves its invoice total; an invoice left empty is
// deactivated by the re-sum.
func (s *EntryService) DeleteEntry(ctx context.Context, entryID int64) error {
	e, err := s.store.GetEntry(ctx, entryID)
	if err != nil {
		return core.EntryErr(entryID, err)
	}
	if !e.Active {
		return nil
	}

	e.Active = false
	if err := s.store.UpdateEntry(ctx, e); err != nil {
		return core.EntryErr(entryID, err)
	}

	if e.InvoiceID != nil {
		if err := s.aggregator.RefreshInvoice(ctx, *e.InvoiceID); err != nil {
			return err
		}
	}
	slog.InfoContext(ctx, "Entry soft-deleted", "entry_id", entryID)
	return nil
}

// ExtendSeries materializes further occurrences of an open-ended series up
// to the configured horizon and routes each new occurrence to its invoice.
func (s *EntryService) ExtendSeries(ctx context.Context, groupID string, now time.Time) ([]*core.ExpenseEntry, error) {
	created, err := s.expander.ExtendSeries(ctx, groupID, s.expander.HorizonEnd(now))
	if err != nil {
		return created, err
	}
	for _, e := range created {
		if _, err := s.aggregator.Assign(ctx, e, now); err != nil {
			return created, fmt.Errorf("assign entry %d: %w", e.ID, err)
		}
	}
	return created, nil
}

// MarkPaid pays a single entry.
func (s *EntryService) MarkPaid(ctx context.Context, entryID int64, actual *core.Money, paymentDate core.Date, receiptRef string) (*core.ExpenseEntry, error) {
	return s.reconciler.MarkPaid(ctx, entryID, actual, paymentDate, receiptRef)
}

// UndoPayment reverts a paid entry to unpaid.
func (s *EntryService) UndoPayment(ctx context.Context, entryID int64) (*core.ExpenseEntry, error) {
	return s.reconciler.UndoPayment(ctx, entryID)
}

// CancelOccurrence cancels one occurrence without touching its siblings.
func (s *EntryService) CancelOccurrence(ctx context.Context, entryID int64, cancelDate core.Date) (*core.ExpenseEntry, error) {
	return s.reconciler.CancelOccurrence(ctx, entryID, cancelDate)
}

// RestoreOccurrence clears a cancellation.
func (s *EntryService) RestoreOccurrence(ctx context.Context, entryID int64) (*core.ExpenseEntry, error) {
	return s.reconciler.RestoreOccurrence(ctx, entryID)
}

// PayInvoice pays a whole invoice, cascading to its unpaid entries.
func (s *EntryService) PayInvoice(ctx context.Context, invoiceID int64, actualTotal *core.Money, paymentDate core.Date) (*core.Invoice, error) {
	return s.reconciler.PayInvoice(ctx, invoiceID, actualTotal, paymentDate)
}

// UndoInvoicePayment reverts a paid invoice and its entries to unpaid.
func (s *EntryService) UndoInvoicePayment(ctx context.Context, invoiceID int64) (*core.Invoice, error) {
	return s.reconciler.UndoInvoicePayment(ctx, invoiceID)
}
