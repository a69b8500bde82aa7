package billing

import (
	"context"
	"log/slog"

	"mesa/internal/core"
)

// Reconciler governs payment-state transitions at the entry and invoice
// levels and keeps the two mutually consistent: after every entry-level
// transition on an invoiced entry it re-evaluates the invoice in the same
// operation, so callers never have to remember to sync both.
//
// Entry states: Unpaid -> Paid, Unpaid -> Cancelled, and the two undos.
// Paid and Cancelled are mutually exclusive; each is reachable back only
// through Unpaid.
type Reconciler struct {
	store Store
}

func NewReconciler(store Store) *Reconciler {
	return &Reconciler{store: store}
}

// MarkPaid pays a single entry. The actual amount defaults to the
// provisioned amount when omitted. receiptRef, when non-empty, is stored as
// an opaque reference into the file store.
func (r *Reconciler) MarkPaid(ctx context.Context, entryID int64, actual *core.Money, paymentDate core.Date, receiptRef string) (*core.ExpenseEntry, error) {
	e, err := r.store.GetEntry(ctx, entryID)
	if err != nil {
		return nil, core.EntryErr(entryID, err)
	}
	if e.Cancelled() {
		return nil, core.EntryErr(entryID, core.ErrCancelled)
	}
	if e.Paid {
		return nil, core.EntryErr(entryID, core.ErrAlreadyPaid)
	}

	amount := e.Provisioned
	if actual != nil {
		amount = *actual
	}
	e.Paid = true
	e.Actual = &amount
	e.PaymentDate = &paymentDate
	if receiptRef != "" {
		e.ReceiptRef = receiptRef
	}
	if err := r.store.UpdateEntry(ctx, e); err != nil {
		return nil, core.EntryErr(entryID, err)
	}

	if err := r.syncInvoice(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// UndoPayment reverts a paid entry to unpaid, clearing payment date and
// actual amount. An invoice that had auto-completed reverts to closed.
func (r *Reconciler) UndoPayment(ctx context.Context, entryID int64) (*core.ExpenseEntry, error) {
	e, err := r.store.GetEntry(ctx, entryID)
	if err != nil {
		return nil, core.EntryErr(entryID, err)
	}
	if !e.Paid {
		return nil, core.EntryErr(entryID, core.ErrNotPaid)
	}

	e.Paid = false
	e.Actual = nil
	e.PaymentDate = nil
	e.ReceiptRef = ""
	if err := r.store.UpdateEntry(ctx, e); err != nil {
		return nil, core.EntryErr(entryID, err)
	}

	if err := r.syncInvoice(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// CancelOccurrence cancels one occurrence of a series (or a standalone
// entry) without touching its siblings. A paid occurrence must have its
// payment undone first.
func (r *Reconciler) CancelOccurrence(ctx context.Context, entryID int64, cancelDate core.Date) (*core.ExpenseEntry, error) {
	e, err := r.store.GetEntry(ctx, entryID)
	if err != nil {
		return nil, core.EntryErr(entryID, err)
	}
	if e.Paid {
		return nil, core.EntryErr(entryID, core.ErrAlreadyPaid)
	}
	if e.Cancelled() {
		return nil, core.EntryErr(entryID, core.ErrCancelled)
	}

	e.CancelDate = &cancelDate
	if err := r.store.UpdateEntry(ctx, e); err != nil {
		return nil, core.EntryErr(entryID, err)
	}

	// The cancelled entry leaves the invoice total and may complete the
	// invoice if every remaining entry is already paid.
	if err := r.syncInvoice(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// RestoreOccurrence clears a cancellation. Restoring a non-cancelled entry
// is a no-op.
func (r *Reconciler) RestoreOccurrence(ctx context.Context, entryID int64) (*core.ExpenseEntry, error) {
	e, err := r.store.GetEntry(ctx, entryID)
	if err != nil {
		return nil, core.EntryErr(entryID, err)
	}
	if !e.Cancelled() {
		return e, nil
	}

	e.CancelDate = nil
	if err := r.store.UpdateEntry(ctx, e); err != nil {
		return nil, core.EntryErr(entryID, err)
	}

	if err := r.syncInvoice(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// PayInvoice pays a whole invoice, cascading to every active, non-cancelled
// entry that is not paid yet; each cascaded entry records its own
// provisioned amount as actual. An explicit actualTotal differing from the
// entry sum is stored on the invoice only, never redistributed onto entries.
func (r *Reconciler) PayInvoice(ctx context.Context, invoiceID int64, actualTotal *core.Money, paymentDate core.Date) (*core.Invoice, error) {
	inv, err := r.store.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, core.InvoiceErr(invoiceID, err)
	}
	if inv.Status == core.InvoicePaid {
		return nil, core.InvoiceErr(invoiceID, core.ErrAlreadyPaid)
	}

	entries, err := r.store.EntriesByInvoice(ctx, invoiceID)
	if err != nil {
		return nil, core.InvoiceErr(invoiceID, err)
	}

	var actualSum int64
	for _, e := range entries {
		if !e.CountsForInvoice() {
			continue
		}
		if !e.Paid {
			amount := e.Provisioned
			e.Paid = true
			e.Actual = &amount
			e.PaymentDate = &paymentDate
			if err := r.store.UpdateEntry(ctx, e); err != nil {
				return nil, core.EntryErr(e.ID, err)
			}
		}
		actualSum += e.Actual.Cents
	}

	total := core.Money{Cents: actualSum}
	if actualTotal != nil {
		total = *actualTotal
	}
	inv.Actual = &total
	inv.PaymentDate = &paymentDate
	inv.Status = core.InvoicePaid
	if err := r.store.UpdateInvoice(ctx, inv); err != nil {
		return nil, core.InvoiceErr(invoiceID, err)
	}

	slog.InfoContext(ctx, "Invoice paid",
		"invoice_id", inv.ID,
		"actual_cents", total.Cents,
		"payment_date", paymentDate.Format("2006-01-02"))
	return inv, nil
}

// UndoInvoicePayment reverts a paid invoice and every constituent entry to
// unpaid. The invoice goes back to closed, not open: it has already passed
// its closing date by construction.
func (r *Reconciler) UndoInvoicePayment(ctx context.Context, invoiceID int64) (*core.Invoice, error) {
	inv, err := r.store.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, core.InvoiceErr(invoiceID, err)
	}
	if inv.Status != core.InvoicePaid {
		return nil, core.InvoiceErr(invoiceID, core.ErrNotPaid)
	}

	entries, err := r.store.EntriesByInvoice(ctx, invoiceID)
	if err != nil {
		return nil, core.InvoiceErr(invoiceID, err)
	}
	for _, e := range entries {
		if !e.CountsForInvoice() || !e.Paid {
			continue
		}
		e.Paid = false
		e.Actual = nil
		e.PaymentDate = nil
		if err := r.store.UpdateEntry(ctx, e); err != nil {
			return nil, core.EntryErr(e.ID, err)
		}
	}

	inv.Actual = nil
	inv.PaymentDate = nil
	inv.Status = core.InvoiceClosed
	if err := r.store.UpdateInvoice(ctx, inv); err != nil {
		return nil, core.InvoiceErr(invoiceID, err)
	}
	return inv, nil
}

// syncInvoice re-evaluates the auto-completion rule after an entry-level
// transition: all countable entries paid -> invoice paid with the summed
// actuals; any unpaid -> a paid invoice reverts to closed. The provisioned
// total is re-summed in the same pass.
func (r *Reconciler) syncInvoice(ctx context.Context, e *core.ExpenseEntry) error {
	if e.InvoiceID == nil {
		return nil
	}
	invoiceID := *e.InvoiceID

	inv, err := r.store.GetInvoice(ctx, invoiceID)
	if err != nil {
		return core.InvoiceErr(invoiceID, err)
	}
	entries, err := r.store.EntriesByInvoice(ctx, invoiceID)
	if err != nil {
		return core.InvoiceErr(invoiceID, err)
	}

	var provisioned, actualSum int64
	var lastPaid *core.Date
	countable := 0
	allPaid := true
	for _, en := range entries {
		if !en.CountsForInvoice() {
			continue
		}
		countable++
		provisioned += en.Provisioned.Cents
		if !en.Paid {
			allPaid = false
			continue
		}
		if en.Actual != nil {
			actualSum += en.Actual.Cents
		} else {
			actualSum += en.Provisioned.Cents
		}
		if en.PaymentDate != nil && (lastPaid == nil || en.PaymentDate.After(lastPaid.Time)) {
			lastPaid = en.PaymentDate
		}
	}

	inv.Provisioned = core.Money{Cents: provisioned}
	switch {
	case countable > 0 && allPaid && inv.Status != core.InvoicePaid:
		inv.Status = core.InvoicePaid
		inv.Actual = &core.Money{Cents: actualSum}
		inv.PaymentDate = lastPaid
		slog.InfoContext(ctx, "Invoice auto-completed",
			"invoice_id", inv.ID,
			"actual_cents", actualSum)
	case (countable == 0 || !allPaid) && inv.Status == core.InvoicePaid:
		inv.Status = core.InvoiceClosed
		inv.Actual = nil
		inv.PaymentDate = nil
	}

	if err := r.store.UpdateInvoice(ctx, inv); err != nil {
		return core.InvoiceErr(invoiceID, err)
	}
	return nil
}
