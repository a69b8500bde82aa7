package billing

import (
	"context"
	"testing"
	"time"

	"mesa/internal/core"
	"mesa/internal/storage/memory"
)

func seedCreditCard(t *testing.T, store *memory.Store, closingDay, dueDay int) int64 {
	t.Helper()
	card := creditCard(closingDay, dueDay)
	card.ID = 0
	return store.AddCard(card)
}

func seedEntry(t *testing.T, store *memory.Store, cardID *int64, due core.Date, cents int64) *core.ExpenseEntry {
	t.Helper()
	e := &core.ExpenseEntry{
		MesaID:         1,
		CardID:         cardID,
		Description:    "mercado",
		Kind:           core.KindVariable,
		Provisioned:    core.Money{Cents: cents},
		DueDate:        due,
		InstallmentNum: 1,
		InstallmentCnt: 1,
		GroupID:        "g1",
		Active:         true,
	}
	if err := store.CreateEntry(context.Background(), e); err != nil {
		t.Fatalf("seed entry: %v", err)
	}
	return e
}

func TestAssignSkipsNonCreditEntries(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	agg := NewAggregator(store)
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	// No card at all.
	e := seedEntry(t, store, nil, core.NewDate(2026, 3, 10), 1000)
	inv, err := agg.Assign(ctx, e, now)
	if err != nil || inv != nil {
		t.Fatalf("cardless entry: expected (nil, nil), got (%v, %v)", inv, err)
	}

	// Debit card.
	debit := &core.Card{MesaID: 1, Name: "debit", Type: core.CardDebit, Active: true}
	debitID := store.AddCard(debit)
	e2 := seedEntry(t, store, &debitID, core.NewDate(2026, 3, 10), 1000)
	inv, err = agg.Assign(ctx, e2, now)
	if err != nil || inv != nil {
		t.Fatalf("debit entry: expected (nil, nil), got (%v, %v)", inv, err)
	}
	if e2.InvoiceID != nil {
		t.Fatal("debit entry must never carry an invoice id")
	}
}

func TestAssignCreatesInvoiceLazily(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	agg := NewAggregator(store)
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	cardID := seedCreditCard(t, store, 8, 15)
	e := seedEntry(t, store, &cardID, core.NewDate(2026, 2, 20), 4500)

	inv, err := agg.Assign(ctx, e, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inv == nil {
		t.Fatal("expected an invoice")
	}
	if want := core.NewDate(2026, 3, 1); !inv.ReferenceMonth.Equal(want.Time) {
		t.Errorf("reference month: got %v, want %v", inv.ReferenceMonth, want)
	}
	if inv.Status != core.InvoiceOpen {
		t.Errorf("new invoice must be open, got %s", inv.Status)
	}
	if inv.Provisioned.Cents != 4500 {
		t.Errorf("provisioned: got %d, want 4500", inv.Provisioned.Cents)
	}
	if e.InvoiceID == nil || *e.InvoiceID != inv.ID {
		t.Error("entry not linked to the invoice")
	}
}

func TestAssignIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	agg := NewAggregator(store)
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	cardID := seedCreditCard(t, store, 8, 15)
	e := seedEntry(t, store, &cardID, core.NewDate(2026, 2, 20), 4500)

	first, err := agg.Assign(ctx, e, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := agg.Assign(ctx, e, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("invoice id changed: %d then %d", first.ID, second.ID)
	}
	if first.Provisioned != second.Provisioned {
		t.Errorf("provisioned changed: %d then %d", first.Provisioned.Cents, second.Provisioned.Cents)
	}
}

func TestAssignSumsSiblings(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	agg := NewAggregator(store)
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	cardID := seedCreditCard(t, store, 8, 15)
	a := seedEntry(t, store, &cardID, core.NewDate(2026, 2, 20), 4500)
	b := seedEntry(t, store, &cardID, core.NewDate(2026, 2, 25), 1500)

	if _, err := agg.Assign(ctx, a, now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	inv, err := agg.Assign(ctx, b, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inv.Provisioned.Cents != 6000 {
		t.Errorf("provisioned: got %d, want 6000", inv.Provisioned.Cents)
	}
}

func TestAssignMovesEntryAcrossCycles(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	agg := NewAggregator(store)
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	cardID := seedCreditCard(t, store, 8, 15)
	e := seedEntry(t, store, &cardID, core.NewDate(2026, 2, 20), 4500)

	first, err := agg.Assign(ctx, e, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Move the due date into the next cycle.
	e.DueDate = core.NewDate(2026, 3, 20)
	second, err := agg.Assign(ctx, e, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.ID == first.ID {
		t.Fatal("expected a different invoice after the cycle change")
	}
	if second.Provisioned.Cents != 4500 {
		t.Errorf("new invoice provisioned: got %d, want 4500", second.Provisioned.Cents)
	}

	// The old invoice lost its only entry: total zero, deactivated, still
	// queryable by id.
	old, err := store.GetInvoice(ctx, first.ID)
	if err != nil {
		t.Fatalf("old invoice must remain queryable: %v", err)
	}
	if old.Provisioned.Cents != 0 {
		t.Errorf("old invoice provisioned: got %d, want 0", old.Provisioned.Cents)
	}
	if old.Active {
		t.Error("emptied invoice must be deactivated, not deleted")
	}
}

func TestAssignReactivatesEmptiedInvoice(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	agg := NewAggregator(store)
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	cardID := seedCreditCard(t, store, 8, 15)
	e := seedEntry(t, store, &cardID, core.NewDate(2026, 2, 20), 4500)

	first, err := agg.Assign(ctx, e, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	e.DueDate = core.NewDate(2026, 3, 20)
	if _, err := agg.Assign(ctx, e, now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// A new entry landing in the original cycle brings the invoice back.
	e2 := seedEntry(t, store, &cardID, core.NewDate(2026, 2, 22), 900)
	revived, err := agg.Assign(ctx, e2, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if revived.ID != first.ID {
		t.Fatalf("expected the original invoice %d, got %d", first.ID, revived.ID)
	}
	if !revived.Active {
		t.Error("invoice must be reactivated")
	}
}

func TestAssignLateAdditionToClosedInvoice(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	agg := NewAggregator(store)

	cardID := seedCreditCard(t, store, 8, 15)
	e := seedEntry(t, store, &cardID, core.NewDate(2026, 2, 20), 4500)

	// Assign well past the cycle's closing date: permitted, invoice closes.
	now := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	inv, err := agg.Assign(ctx, e, now)
	if err != nil {
		t.Fatalf("late addition must be permitted: %v", err)
	}
	if inv.Status != core.InvoiceClosed {
		t.Errorf("invoice past closing must be closed, got %s", inv.Status)
	}
	if inv.Provisioned.Cents != 4500 {
		t.Errorf("provisioned: got %d, want 4500", inv.Provisioned.Cents)
	}
}

func TestCloseDue(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	agg := NewAggregator(store)

	cardID := seedCreditCard(t, store, 8, 15)
	e := seedEntry(t, store, &cardID, core.NewDate(2026, 2, 20), 4500)
	if _, err := agg.Assign(ctx, e, time.Date(2026, 2, 21, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Before the closing date nothing closes.
	closed, err := agg.CloseDue(ctx, time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(closed) != 0 {
		t.Fatalf("expected no closures, got %d", len(closed))
	}

	// One day past closing the invoice flips.
	closed, err = agg.CloseDue(ctx, time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(closed) != 1 {
		t.Fatalf("expected 1 closure, got %d", len(closed))
	}
	if closed[0].Status != core.InvoiceClosed {
		t.Errorf("status: got %s, want closed", closed[0].Status)
	}

	// Second sweep finds nothing left to close.
	closed, err = agg.CloseDue(ctx, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(closed) != 0 {
		t.Fatalf("close must be idempotent, got %d more", len(closed))
	}
}
