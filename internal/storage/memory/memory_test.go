package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"mesa/internal/core"
)

func newEntry(due core.Date) *core.ExpenseEntry {
	return &core.ExpenseEntry{
		MesaID:         1,
		Description:    "mercado",
		Kind:           core.KindVariable,
		Provisioned:    core.Money{Cents: 4500},
		DueDate:        due,
		InstallmentNum: 1,
		InstallmentCnt: 1,
		GroupID:        "g1",
		Active:         true,
	}
}

func TestUpdateEntryVersionConflict(t *testing.T) {
	ctx := context.Background()
	s := New()

	e := newEntry(core.NewDate(2026, 3, 10))
	if err := s.CreateEntry(ctx, e); err != nil {
		t.Fatalf("create: %v", err)
	}

	// Two readers load the same version.
	a, err := s.GetEntry(ctx, e.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	b, err := s.GetEntry(ctx, e.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	a.Description = "first writer"
	if err := s.UpdateEntry(ctx, a); err != nil {
		t.Fatalf("first update: %v", err)
	}

	b.Description = "second writer"
	if err := s.UpdateEntry(ctx, b); !errors.Is(err, core.ErrConcurrentModification) {
		t.Fatalf("expected ErrConcurrentModification, got %v", err)
	}

	// The winner can keep writing with its bumped version.
	a.Description = "first writer again"
	if err := s.UpdateEntry(ctx, a); err != nil {
		t.Fatalf("chained update: %v", err)
	}
}

func TestUpdateInvoiceVersionConflict(t *testing.T) {
	ctx := context.Background()
	s := New()

	inv := &core.Invoice{
		CardID: 1, MesaID: 1,
		ReferenceMonth: core.NewDate(2026, 3, 1),
		ClosingDate:    core.NewDate(2026, 3, 8),
		DueDate:        core.NewDate(2026, 3, 15),
		Status:         core.InvoiceOpen,
		Active:         true,
	}
	if err := s.CreateInvoice(ctx, inv); err != nil {
		t.Fatalf("create: %v", err)
	}

	stale, err := s.GetInvoice(ctx, inv.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	inv.Provisioned = core.Money{Cents: 100}
	if err := s.UpdateInvoice(ctx, inv); err != nil {
		t.Fatalf("update: %v", err)
	}

	stale.Provisioned = core.Money{Cents: 200}
	if err := s.UpdateInvoice(ctx, stale); !errors.Is(err, core.ErrConcurrentModification) {
		t.Fatalf("expected ErrConcurrentModification, got %v", err)
	}
}

func TestEntriesByPeriodFiltersInactive(t *testing.T) {
	ctx := context.Background()
	s := New()

	active := newEntry(core.NewDate(2026, 3, 10))
	if err := s.CreateEntry(ctx, active); err != nil {
		t.Fatalf("create: %v", err)
	}
	inactive := newEntry(core.NewDate(2026, 3, 12))
	inactive.Active = false
	if err := s.CreateEntry(ctx, inactive); err != nil {
		t.Fatalf("create: %v", err)
	}
	outside := newEntry(core.NewDate(2026, 4, 2))
	if err := s.CreateEntry(ctx, outside); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := s.EntriesByPeriod(ctx, 1, core.NewDate(2026, 3, 1), core.NewDate(2026, 3, 31))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].ID != active.ID {
		t.Fatalf("expected only the active in-period entry, got %d entries", len(got))
	}
}

func TestGetEntryReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := New()

	e := newEntry(core.NewDate(2026, 3, 10))
	if err := s.CreateEntry(ctx, e); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, _ := s.GetEntry(ctx, e.ID)
	got.Description = "mutated"

	again, _ := s.GetEntry(ctx, e.ID)
	if again.Description != "mercado" {
		t.Error("mutating a returned entry must not leak into the store")
	}
}

func TestFindInvoiceNoMatchReturnsNil(t *testing.T) {
	s := New()
	inv, err := s.FindInvoice(context.Background(), 1, core.NewDate(2026, 3, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inv != nil {
		t.Fatal("expected nil invoice for an unknown cycle")
	}
}

func TestUnnotifiedOverdueEntries(t *testing.T) {
	ctx := context.Background()
	s := New()

	overdue := newEntry(core.NewDate(2026, 3, 5))
	paid := newEntry(core.NewDate(2026, 3, 5))
	paid.Paid = true
	flagged := newEntry(core.NewDate(2026, 3, 5))
	flagged.OverdueNotified = true
	future := newEntry(core.NewDate(2026, 3, 20))

	for _, e := range []*core.ExpenseEntry{overdue, paid, flagged, future} {
		if err := s.CreateEntry(ctx, e); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	got, err := s.UnnotifiedOverdueEntries(ctx, time.Date(2026, 3, 6, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].ID != overdue.ID {
		t.Fatalf("expected only the unpaid unflagged overdue entry, got %d", len(got))
	}
}
