package billing

import (
	"testing"

	"mesa/internal/core"
)

func creditCard(closingDay, dueDay int) *core.Card {
	return &core.Card{
		ID:         1,
		MesaID:     1,
		Name:       "nubank",
		Type:       core.CardCredit,
		ClosingDay: closingDay,
		DueDay:     dueDay,
		Active:     true,
	}
}

func TestResolveCycle(t *testing.T) {
	cases := []struct {
		name         string
		card         *core.Card
		date         core.Date
		wantRefMonth core.Date
		wantClosing  core.Date
		wantDue      core.Date
	}{
		{
			name:         "on closing day stays in month",
			card:         creditCard(8, 15),
			date:         core.NewDate(2026, 3, 8),
			wantRefMonth: core.NewDate(2026, 3, 1),
			wantClosing:  core.NewDate(2026, 3, 8),
			wantDue:      core.NewDate(2026, 3, 15),
		},
		{
			name:         "day after closing rolls to next month",
			card:         creditCard(8, 15),
			date:         core.NewDate(2026, 3, 9),
			wantRefMonth: core.NewDate(2026, 4, 1),
			wantClosing:  core.NewDate(2026, 4, 8),
			wantDue:      core.NewDate(2026, 4, 15),
		},
		{
			name:         "late february date rolls into march cycle",
			card:         creditCard(8, 15),
			date:         core.NewDate(2026, 2, 20),
			wantRefMonth: core.NewDate(2026, 3, 1),
			wantClosing:  core.NewDate(2026, 3, 8),
			wantDue:      core.NewDate(2026, 3, 15),
		},
		{
			name:         "due day before closing day lands next month",
			card:         creditCard(25, 5),
			date:         core.NewDate(2026, 3, 10),
			wantRefMonth: core.NewDate(2026, 3, 1),
			wantClosing:  core.NewDate(2026, 3, 25),
			wantDue:      core.NewDate(2026, 4, 5),
		},
		{
			name:         "closing day 31 clamps in february",
			card:         creditCard(31, 31),
			date:         core.NewDate(2026, 2, 10),
			wantRefMonth: core.NewDate(2026, 2, 1),
			wantClosing:  core.NewDate(2026, 2, 28),
			wantDue:      core.NewDate(2026, 2, 28),
		},
		{
			name:         "december rollover crosses the year",
			card:         creditCard(8, 15),
			date:         core.NewDate(2026, 12, 20),
			wantRefMonth: core.NewDate(2027, 1, 1),
			wantClosing:  core.NewDate(2027, 1, 8),
			wantDue:      core.NewDate(2027, 1, 15),
		},
		{
			name:         "no closing day falls back to calendar month",
			card:         creditCard(0, 0),
			date:         core.NewDate(2026, 3, 20),
			wantRefMonth: core.NewDate(2026, 3, 1),
			wantClosing:  core.NewDate(2026, 3, 31),
			wantDue:      core.NewDate(2026, 3, 31),
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ResolveCycle(tc.card, tc.date)
			if !got.ReferenceMonth.Equal(tc.wantRefMonth.Time) {
				t.Errorf("reference month: got %v, want %v", got.ReferenceMonth, tc.wantRefMonth)
			}
			if !got.ClosingDate.Equal(tc.wantClosing.Time) {
				t.Errorf("closing date: got %v, want %v", got.ClosingDate, tc.wantClosing)
			}
			if !got.DueDate.Equal(tc.wantDue.Time) {
				t.Errorf("due date: got %v, want %v", got.DueDate, tc.wantDue)
			}
		})
	}
}

func TestResolveCycleDeterministic(t *testing.T) {
	card := creditCard(8, 15)
	date := core.NewDate(2026, 3, 8)
	a := ResolveCycle(card, date)
	b := ResolveCycle(card, date)
	if a != b {
		t.Fatalf("same inputs produced different cycles: %v vs %v", a, b)
	}
}
