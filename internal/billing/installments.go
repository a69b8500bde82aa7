package billing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"mesa/internal/core"
)

// DefaultHorizonMonths bounds how far ahead an open-ended recurring series
// is materialized. Later occurrences are created lazily by ExtendSeries.
const DefaultHorizonMonths = 3

// ExpandRequest describes one expense creation request, possibly spawning
// several dated entries.
type ExpandRequest struct {
	MesaID          int64
	Description     string
	Kind            core.EntryKind
	Total           core.Money
	FirstDueDate    core.Date
	CardID          *int64
	CategoryID      *int64
	PaymentMethodID *int64
	Installments    int // 0 defaults to 1
	Recurring       bool
}

// Expander turns creation requests into ordered sets of dated entries
// sharing a group id, and extends open-ended series up to a horizon.
type Expander struct {
	store   Store
	horizon int
}

func NewExpander(store Store, horizonMonths int) *Expander {
	if horizonMonths < 1 {
		horizonMonths = DefaultHorizonMonths
	}
	return &Expander{store: store, horizon: horizonMonths}
}

// HorizonEnd returns the materialization bound for open-ended series.
func (x *Expander) HorizonEnd(now time.Time) core.Date {
	return core.AddMonthsClamped(core.NewDate(now.Year(), int(now.Month()), now.Day()), x.horizon)
}

func (r ExpandRequest) validate() error {
	if r.Installments < 0 {
		return fmt.Errorf("%w: negative installment count", core.ErrInvalidInstallmentPlan)
	}
	if r.Total.Cents <= 0 {
		return fmt.Errorf("%w: total must be positive", core.ErrInvalidInstallmentPlan)
	}
	if !r.Kind.Valid() {
		return fmt.Errorf("%w: unknown kind %q", core.ErrInvalidInstallmentPlan, r.Kind)
	}
	if r.Kind == core.KindSubscription && r.Installments > 1 {
		return fmt.Errorf("%w: subscription with finite installment count", core.ErrInvalidInstallmentPlan)
	}
	if err := r.FirstDueDate.Validate(); err != nil {
		return fmt.Errorf("%w: %v", core.ErrInvalidInstallmentPlan, err)
	}
	return nil
}

// Expand produces the ordered set of entries for the request. Pure: nothing
// is persisted. The sum of the produced provisioned amounts equals the
// request total exactly; the rounding remainder sits on the last installment.
//
// An open-ended recurring request (recurring flag without a finite count)
// materializes occurrences only up to now + horizon; ExtendSeries appends the
// rest on demand.
func (x *Expander) Expand(req ExpandRequest, now time.Time) ([]*core.ExpenseEntry, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	count := req.Installments
	if count == 0 {
		count = 1
	}

	groupID := uuid.NewString()

	if req.Recurring && count <= 1 {
		return x.expandSeries(req, groupID, now), nil
	}

	parts := req.Total.Split(count)
	entries := make([]*core.ExpenseEntry, count)
	for i := 0; i < count; i++ {
		entries[i] = x.entryFromRequest(req, groupID, i+1, count, parts[i],
			core.AddMonthsClamped(req.FirstDueDate, i))
	}
	return entries, nil
}

// expandSeries materializes an open-ended series up to the horizon. Every
// occurrence carries the full amount; InstallmentCnt 0 marks the series as
// unbounded.
func (x *Expander) expandSeries(req ExpandRequest, groupID string, now time.Time) []*core.ExpenseEntry {
	until := x.HorizonEnd(now)
	var entries []*core.ExpenseEntry
	for i := 0; ; i++ {
		due := core.AddMonthsClamped(req.FirstDueDate, i)
		if i > 0 && due.After(until.Time) {
			break
		}
		entries = append(entries, x.entryFromRequest(req, groupID, i+1, 0, req.Total, due))
	}
	return entries
}

func (x *Expander) entryFromRequest(req ExpandRequest, groupID string, num, count int, amount core.Money, due core.Date) *core.ExpenseEntry {
	return &core.ExpenseEntry{
		MesaID:          req.MesaID,
		CardID:          req.CardID,
		Description:     req.Description,
		Kind:            req.Kind,
		Provisioned:     amount,
		DueDate:         due,
		Recurring:       req.Recurring,
		InstallmentNum:  num,
		InstallmentCnt:  count,
		GroupID:         groupID,
		CategoryID:      req.CategoryID,
		PaymentMethodID: req.PaymentMethodID,
		Active:          true,
	}
}

// ExtendSeries appends occurrences to an open-ended series until the last
// due date passes the bound. Safe to call repeatedly, from a read path or
// the periodic sweep. Returns the newly created entries.
//
// Creation is per entry: a failure mid-batch leaves the already-created
// occurrences valid, and a later call picks up where this one stopped.
func (x *Expander) ExtendSeries(ctx context.Context, groupID string, until core.Date) ([]*core.ExpenseEntry, error) {
	existing, err := x.store.EntriesByGroup(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("load series %s: %w", groupID, err)
	}
	if len(existing) == 0 {
		return nil, fmt.Errorf("series %s: %w", groupID, core.ErrEntryNotFound)
	}

	last := existing[len(existing)-1]
	if last.InstallmentCnt != 0 || !last.Recurring {
		// Finite plans are fully materialized at creation; nothing to extend.
		return nil, nil
	}
	first := existing[0]

	var created []*core.ExpenseEntry
	for num := last.InstallmentNum + 1; ; num++ {
		due := core.AddMonthsClamped(first.DueDate, num-1)
		if due.After(until.Time) {
			break
		}
		e := &core.ExpenseEntry{
			MesaID:          last.MesaID,
			CardID:          last.CardID,
			Description:     last.Description,
			Kind:            last.Kind,
			Provisioned:     last.Provisioned,
			DueDate:         due,
			Recurring:       true,
			InstallmentNum:  num,
			InstallmentCnt:  0,
			GroupID:         groupID,
			CategoryID:      last.CategoryID,
			PaymentMethodID: last.PaymentMethodID,
			Active:          true,
		}
		if err := x.store.CreateEntry(ctx, e); err != nil {
			return created, fmt.Errorf("extend series %s at occurrence %d: %w", groupID, num, err)
		}
		created = append(created, e)
	}

	if len(created) > 0 {
		slog.InfoContext(ctx, "Extended recurring series",
			"group_id", groupID,
			"created", len(created),
			"until", until.Format("2006-01-02"))
	}
	return created, nil
}
