// Package memory provides an in-memory implementation of the billing store,
// used by tests and by the memory data backend.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"mesa/internal/core"
)

type Store struct {
	mu       sync.Mutex
	entries  map[int64]*core.ExpenseEntry
	invoices map[int64]*core.Invoice
	cards    map[int64]*core.Card
	incomes  map[int64]*core.Income
	mesas    map[int64]string

	nextEntryID   int64
	nextInvoiceID int64
	nextCardID    int64
	nextIncomeID  int64
	nextMesaID    int64
}

func New() *Store {
	return &Store{
		entries:  make(map[int64]*core.ExpenseEntry),
		invoices: make(map[int64]*core.Invoice),
		cards:    make(map[int64]*core.Card),
		incomes:  make(map[int64]*core.Income),
		mesas:    make(map[int64]string),
	}
}

func cloneEntry(e *core.ExpenseEntry) *core.ExpenseEntry {
	c := *e
	return &c
}

func cloneInvoice(inv *core.Invoice) *core.Invoice {
	c := *inv
	return &c
}

func (s *Store) CreateEntry(_ context.Context, e *core.ExpenseEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextEntryID++
	e.ID = s.nextEntryID
	e.Version = 1
	s.entries[e.ID] = cloneEntry(e)
	return nil
}

func (s *Store) GetEntry(_ context.Context, id int64) (*core.ExpenseEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return nil, core.ErrEntryNotFound
	}
	return cloneEntry(e), nil
}

func (s *Store) UpdateEntry(_ context.Context, e *core.ExpenseEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.entries[e.ID]
	if !ok {
		return core.ErrEntryNotFound
	}
	if stored.Version != e.Version {
		return core.ErrConcurrentModification
	}
	e.Version++
	s.entries[e.ID] = cloneEntry(e)
	return nil
}

func (s *Store) EntriesByGroup(_ context.Context, groupID string) ([]*core.ExpenseEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*core.ExpenseEntry
	for _, e := range s.entries {
		if e.GroupID == groupID {
			out = append(out, cloneEntry(e))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InstallmentNum < out[j].InstallmentNum })
	return out, nil
}

func (s *Store) EntriesByInvoice(_ context.Context, invoiceID int64) ([]*core.ExpenseEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*core.ExpenseEntry
	for _, e := range s.entries {
		if e.InvoiceID != nil && *e.InvoiceID == invoiceID {
			out = append(out, cloneEntry(e))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) EntriesByPeriod(_ context.Context, mesaID int64, from, to core.Date) ([]*core.ExpenseEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*core.ExpenseEntry
	for _, e := range s.entries {
		if e.MesaID != mesaID || !e.Active {
			continue
		}
		if e.DueDate.Before(from.Time) || e.DueDate.After(to.Time) {
			continue
		}
		out = append(out, cloneEntry(e))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) CreateInvoice(_ context.Context, inv *core.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextInvoiceID++
	inv.ID = s.nextInvoiceID
	inv.Version = 1
	s.invoices[inv.ID] = cloneInvoice(inv)
	return nil
}

func (s *Store) GetInvoice(_ context.Context, id int64) (*core.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invoices[id]
	if !ok {
		return nil, core.ErrInvoiceNotFound
	}
	return cloneInvoice(inv), nil
}

func (s *Store) FindInvoice(_ context.Context, cardID int64, referenceMonth core.Date) (*core.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, inv := range s.invoices {
		if inv.CardID == cardID && core.SameMonth(inv.ReferenceMonth, referenceMonth) {
			return cloneInvoice(inv), nil
		}
	}
	return nil, nil
}

func (s *Store) UpdateInvoice(_ context.Context, inv *core.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.invoices[inv.ID]
	if !ok {
		return core.ErrInvoiceNotFound
	}
	if stored.Version != inv.Version {
		return core.ErrConcurrentModification
	}
	inv.Version++
	s.invoices[inv.ID] = cloneInvoice(inv)
	return nil
}

func (s *Store) OpenInvoicesClosedBefore(_ context.Context, now time.Time) ([]*core.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*core.Invoice
	for _, inv := range s.invoices {
		if inv.Active && inv.Status == core.InvoiceOpen && now.After(inv.ClosingDate.Time) {
			out = append(out, cloneInvoice(inv))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) InvoicesByMesa(_ context.Context, mesaID int64) ([]*core.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*core.Invoice
	for _, inv := range s.invoices {
		if inv.MesaID == mesaID && inv.Active {
			out = append(out, cloneInvoice(inv))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) CreateCard(_ context.Context, c *core.Card) error {
	s.AddCard(c)
	return nil
}

// AddCard seeds a card without a context, for tests.
func (s *Store) AddCard(c *core.Card) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextCardID++
	c.ID = s.nextCardID
	copied := *c
	s.cards[c.ID] = &copied
	return c.ID
}

func (s *Store) GetCard(_ context.Context, id int64) (*core.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cards[id]
	if !ok {
		return nil, core.ErrCardNotFound
	}
	copied := *c
	return &copied, nil
}

func (s *Store) CardsByMesa(_ context.Context, mesaID int64) ([]*core.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*core.Card
	for _, c := range s.cards {
		if c.MesaID == mesaID && c.Active {
			copied := *c
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) CreateIncome(_ context.Context, in *core.Income) error {
	s.AddIncome(in)
	return nil
}

func (s *Store) CreateMesa(_ context.Context, name string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextMesaID++
	s.mesas[s.nextMesaID] = name
	return s.nextMesaID, nil
}

// AddIncome seeds an income record for the dashboard read side.
func (s *Store) AddIncome(in *core.Income) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextIncomeID++
	in.ID = s.nextIncomeID
	copied := *in
	s.incomes[in.ID] = &copied
	return in.ID
}

func (s *Store) IncomesByPeriod(_ context.Context, mesaID int64, from, to core.Date) ([]*core.Income, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*core.Income
	for _, in := range s.incomes {
		if in.MesaID != mesaID || !in.Active {
			continue
		}
		if in.DueDate.Before(from.Time) || in.DueDate.After(to.Time) {
			continue
		}
		copied := *in
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) OpenSeriesGroups(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[string]struct{}{}
	var out []string
	for _, e := range s.entries {
		if e.Recurring && e.InstallmentCnt == 0 && e.Active {
			if _, ok := seen[e.GroupID]; ok {
				continue
			}
			seen[e.GroupID] = struct{}{}
			out = append(out, e.GroupID)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) UnnotifiedOverdueEntries(_ context.Context, now time.Time) ([]*core.ExpenseEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*core.ExpenseEntry
	for _, e := range s.entries {
		if !e.Active || e.Paid || e.Cancelled() || e.OverdueNotified {
			continue
		}
		if now.After(e.DueDate.Time) {
			out = append(out, cloneEntry(e))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
