package billing

import (
	"context"
	"time"

	"mesa/internal/core"
)

// Store is the persistence port the billing engine drives. Implementations
// must serialize writes per entity: Update* compares the loaded Version and
// fails with core.ErrConcurrentModification on a lost race, bumping the
// version on success.
type Store interface {
	// Entries
	CreateEntry(ctx context.Context, e *core.ExpenseEntry) error
	GetEntry(ctx context.Context, id int64) (*core.ExpenseEntry, error)
	UpdateEntry(ctx context.Context, e *core.ExpenseEntry) error
	EntriesByGroup(ctx context.Context, groupID string) ([]*core.ExpenseEntry, error)
	EntriesByInvoice(ctx context.Context, invoiceID int64) ([]*core.ExpenseEntry, error)

	// Invoices
	CreateInvoice(ctx context.Context, inv *core.Invoice) error
	GetInvoice(ctx context.Context, id int64) (*core.Invoice, error)
	// FindInvoice returns (nil, nil) when no invoice exists for the pair;
	// absence is the normal lazy-initialization path, not an error.
	FindInvoice(ctx context.Context, cardID int64, referenceMonth core.Date) (*core.Invoice, error)
	UpdateInvoice(ctx context.Context, inv *core.Invoice) error
	OpenInvoicesClosedBefore(ctx context.Context, now time.Time) ([]*core.Invoice, error)

	// Cards
	GetCard(ctx context.Context, id int64) (*core.Card, error)

	// Sweep support
	OpenSeriesGroups(ctx context.Context) ([]string, error)
	UnnotifiedOverdueEntries(ctx context.Context, now time.Time) ([]*core.ExpenseEntry, error)
}
