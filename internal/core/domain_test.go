package core

import (
	"errors"
	"strings"
	"testing"
)

func validEntry() ExpenseEntry {
	return ExpenseEntry{
		MesaID:      1,
		Description: "mercado",
		Kind:        KindVariable,
		Provisioned: Money{Cents: 4500},
		DueDate:     NewDate(2026, 3, 10),
		Active:      true,
	}
}

func TestExpenseEntryValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*ExpenseEntry)
		wantErr error
	}{
		{"valid", func(e *ExpenseEntry) {}, nil},
		{"zero date", func(e *ExpenseEntry) { e.DueDate = Date{} }, ErrInvalidDate},
		{"empty description", func(e *ExpenseEntry) { e.Description = "  " }, ErrEmptyDescription},
		{"zero amount", func(e *ExpenseEntry) { e.Provisioned = Money{} }, ErrInvalidAmount},
		{"negative amount", func(e *ExpenseEntry) { e.Provisioned = Money{Cents: -100} }, ErrInvalidAmount},
		{"unknown kind", func(e *ExpenseEntry) { e.Kind = "loan" }, ErrInvalidKind},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := validEntry()
			tc.mutate(&e)
			err := e.Validate()
			if tc.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestExpenseEntryValidateLongDescription(t *testing.T) {
	e := validEntry()
	e.Description = strings.Repeat("x", 201)
	if err := e.Validate(); err == nil {
		t.Fatal("expected error for description over 200 characters")
	}
}

func TestCountsForInvoice(t *testing.T) {
	e := validEntry()
	if !e.CountsForInvoice() {
		t.Fatal("active entry must count")
	}

	cancelled := validEntry()
	d := NewDate(2026, 3, 12)
	cancelled.CancelDate = &d
	if cancelled.CountsForInvoice() {
		t.Fatal("cancelled entry must not count")
	}

	deleted := validEntry()
	deleted.Active = false
	if deleted.CountsForInvoice() {
		t.Fatal("soft-deleted entry must not count")
	}
}

func TestCardValidate(t *testing.T) {
	card := Card{Name: "nubank", Type: CardCredit, ClosingDay: 8, DueDay: 15}
	if err := card.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	bad := []Card{
		{Name: "", Type: CardCredit},
		{Name: "x", Type: "voucher"},
		{Name: "x", Type: CardCredit, ClosingDay: 32},
		{Name: "x", Type: CardCredit, DueDay: -1},
	}
	for i, c := range bad {
		if err := c.Validate(); err == nil {
			t.Errorf("case %d: expected error", i)
		}
	}
}

func TestIsCredit(t *testing.T) {
	if (&Card{Type: CardDebit}).IsCredit() {
		t.Fatal("debit card reported as credit")
	}
	if !(&Card{Type: CardCredit}).IsCredit() {
		t.Fatal("credit card not reported as credit")
	}
}
