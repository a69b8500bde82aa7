// Package dashboard is the read side: it summarizes entries, incomes and
// invoices over a period for reporting. It introduces no invariants of its
// own and tolerates empty datasets.
package dashboard

import (
	"context"
	"fmt"
	"sort"
	"time"

	"mesa/internal/billing"
	"mesa/internal/core"
)

// AlertRatio is the limit-usage threshold that raises a card alert.
const AlertRatio = 0.9

// RecentLimit caps the most-recent confirmed movements list.
const RecentLimit = 10

// TrendMonths is the length of the monthly trend series.
const TrendMonths = 6

// Reader is the data access the aggregator needs; both storage backends
// satisfy it.
type Reader interface {
	EntriesByPeriod(ctx context.Context, mesaID int64, from, to core.Date) ([]*core.ExpenseEntry, error)
	IncomesByPeriod(ctx context.Context, mesaID int64, from, to core.Date) ([]*core.Income, error)
	CardsByMesa(ctx context.Context, mesaID int64) ([]*core.Card, error)
	FindInvoice(ctx context.Context, cardID int64, referenceMonth core.Date) (*core.Invoice, error)
	EntriesByInvoice(ctx context.Context, invoiceID int64) ([]*core.ExpenseEntry, error)
}

type (
	Totals struct {
		ConfirmedCents   int64 `json:"confirmed_cents"`
		ProvisionedCents int64 `json:"provisioned_cents"`
	}

	CardUsage struct {
		CardID         int64   `json:"card_id"`
		Name           string  `json:"name"`
		UsedCents      int64   `json:"used_cents"`
		LimitCents     int64   `json:"limit_cents"`
		Ratio          float64 `json:"ratio"`           // true ratio, kept for alerting
		DisplayPercent int     `json:"display_percent"` // clamped at 100
		Alert          bool    `json:"alert"`
	}

	CategoryTotal struct {
		CategoryID int64 `json:"category_id"` // 0 = uncategorized
		PaidCents  int64 `json:"paid_cents"`
	}

	MonthTotal struct {
		Year      int   `json:"year"`
		Month     int   `json:"month"`
		PaidCents int64 `json:"paid_cents"`
	}

	DayBalance struct {
		Day             int   `json:"day"`
		CumulativeCents int64 `json:"cumulative_cents"`
	}

	Movement struct {
		Description string    `json:"description"`
		AmountCents int64     `json:"amount_cents"` // negative for expenses
		PaymentDate core.Date `json:"payment_date"`
	}

	Summary struct {
		Year             int             `json:"year"`
		Month            int             `json:"month"`
		Expenses         Totals          `json:"expenses"`
		Incomes          Totals          `json:"incomes"`
		BalanceReal      int64           `json:"balance_real_cents"`
		BalanceProjected int64           `json:"balance_projected_cents"`
		Cards            []CardUsage     `json:"cards"`
		TopCategories    []CategoryTotal `json:"top_categories"`
		Trend            []MonthTotal    `json:"trend"`
		DailyFlow        []DayBalance    `json:"daily_flow"`
		Recent           []Movement      `json:"recent"`
	}
)

type Aggregator struct {
	reader Reader
}

func NewAggregator(reader Reader) *Aggregator {
	return &Aggregator{reader: reader}
}

// Summary computes the dashboard aggregate for one mesa and month. now is
// the reference instant for resolving each card's current billing cycle.
func (a *Aggregator) Summary(ctx context.Context, mesaID int64, year, month int, now time.Time) (*Summary, error) {
	from := core.NewDate(year, month, 1)
	to := core.ClampDay(year, time.Month(month), 31)

	entries, err := a.reader.EntriesByPeriod(ctx, mesaID, from, to)
	if err != nil {
		return nil, fmt.Errorf("entries for period: %w", err)
	}
	incomes, err := a.reader.IncomesByPeriod(ctx, mesaID, from, to)
	if err != nil {
		return nil, fmt.Errorf("incomes for period: %w", err)
	}

	s := &Summary{Year: year, Month: month}
	byCategory := map[int64]int64{}

	for _, e := range entries {
		if e.Cancelled() {
			continue
		}
		s.Expenses.ProvisionedCents += e.Provisioned.Cents
		if !e.Paid {
			continue
		}
		paid := e.Provisioned.Cents
		if e.Actual != nil {
			paid = e.Actual.Cents
		}
		s.Expenses.ConfirmedCents += paid
		var cat int64
		if e.CategoryID != nil {
			cat = *e.CategoryID
		}
		byCategory[cat] += paid
	}

	for _, in := range incomes {
		s.Incomes.ProvisionedCents += in.Provisioned.Cents
		if !in.Paid {
			continue
		}
		if in.Actual != nil {
			s.Incomes.ConfirmedCents += in.Actual.Cents
		} else {
			s.Incomes.ConfirmedCents += in.Provisioned.Cents
		}
	}

	s.BalanceReal = s.Incomes.ConfirmedCents - s.Expenses.ConfirmedCents
	s.BalanceProjected = s.Incomes.ProvisionedCents - s.Expenses.ProvisionedCents
	s.TopCategories = topCategories(byCategory, 5)

	if s.Cards, err = a.cardUsage(ctx, mesaID, now); err != nil {
		return nil, err
	}
	if s.Trend, err = a.trend(ctx, mesaID, year, month); err != nil {
		return nil, err
	}
	s.DailyFlow = dailyFlow(entries, incomes, year, month)
	s.Recent = recentMovements(entries, incomes, RecentLimit)

	return s, nil
}

// cardUsage computes percent-of-limit per credit card for the cycle the
// reference instant falls in: (cycle spend + pending) / limit. The display
// percentage clamps at 100 while the true ratio is kept for alerting.
func (a *Aggregator) cardUsage(ctx context.Context, mesaID int64, now time.Time) ([]CardUsage, error) {
	cards, err := a.reader.CardsByMesa(ctx, mesaID)
	if err != nil {
		return nil, fmt.Errorf("cards for mesa %d: %w", mesaID, err)
	}

	var usages []CardUsage
	today := core.NewDate(now.Year(), int(now.Month()), now.Day())
	for _, c := range cards {
		if !c.IsCredit() || c.LimitCents == nil || *c.LimitCents <= 0 {
			continue
		}
		cycle := billing.ResolveCycle(c, today)
		var used int64
		inv, err := a.reader.FindInvoice(ctx, c.ID, cycle.ReferenceMonth)
		if err != nil {
			return nil, fmt.Errorf("invoice for card %d: %w", c.ID, err)
		}
		if inv != nil {
			attached, err := a.reader.EntriesByInvoice(ctx, inv.ID)
			if err != nil {
				return nil, fmt.Errorf("entries of invoice %d: %w", inv.ID, err)
			}
			for _, e := range attached {
				if !e.CountsForInvoice() {
					continue
				}
				if e.Paid && e.Actual != nil {
					used += e.Actual.Cents
				} else {
					used += e.Provisioned.Cents
				}
			}
		}

		ratio := float64(used) / float64(*c.LimitCents)
		display := int(ratio*100 + 0.5)
		if display > 100 {
			display = 100
		}
		usages = append(usages, CardUsage{
			CardID:         c.ID,
			Name:           c.Name,
			UsedCents:      used,
			LimitCents:     *c.LimitCents,
			Ratio:          ratio,
			DisplayPercent: display,
			Alert:          ratio >= AlertRatio,
		})
	}
	return usages, nil
}

// trend returns paid expense totals for the TrendMonths months ending at the
// requested month, oldest first, keyed by payment date.
func (a *Aggregator) trend(ctx context.Context, mesaID int64, year, month int) ([]MonthTotal, error) {
	end := core.ClampDay(year, time.Month(month), 31)
	start := core.NewDate(year, month-(TrendMonths-1), 1)

	entries, err := a.reader.EntriesByPeriod(ctx, mesaID, start, end)
	if err != nil {
		return nil, fmt.Errorf("entries for trend: %w", err)
	}

	totals := make([]MonthTotal, TrendMonths)
	index := map[string]int{}
	for i := 0; i < TrendMonths; i++ {
		m := core.NewDate(year, month-(TrendMonths-1)+i, 1)
		totals[i] = MonthTotal{Year: m.Year(), Month: m.Month()}
		index[monthKey(m.Year(), m.Month())] = i
	}

	for _, e := range entries {
		if !e.Paid || e.Cancelled() || e.PaymentDate == nil {
			continue
		}
		i, ok := index[monthKey(e.PaymentDate.Year(), e.PaymentDate.Month())]
		if !ok {
			continue
		}
		if e.Actual != nil {
			totals[i].PaidCents += e.Actual.Cents
		} else {
			totals[i].PaidCents += e.Provisioned.Cents
		}
	}
	return totals, nil
}

func monthKey(year, month int) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}

// dailyFlow builds a cumulative confirmed cash-flow series over the month's
// days: paid incomes add, paid expenses subtract, keyed by payment date.
func dailyFlow(entries []*core.ExpenseEntry, incomes []*core.Income, year, month int) []DayBalance {
	days := core.LastDayOfMonth(year, time.Month(month))
	perDay := make([]int64, days+1)

	inMonth := func(d *core.Date) bool {
		return d != nil && d.Year() == year && d.Month() == month
	}

	for _, e := range entries {
		if !e.Paid || e.Cancelled() || !inMonth(e.PaymentDate) {
			continue
		}
		amount := e.Provisioned.Cents
		if e.Actual != nil {
			amount = e.Actual.Cents
		}
		perDay[e.PaymentDate.Day()] -= amount
	}
	for _, in := range incomes {
		if !in.Paid || !inMonth(in.PaymentDate) {
			continue
		}
		amount := in.Provisioned.Cents
		if in.Actual != nil {
			amount = in.Actual.Cents
		}
		perDay[in.PaymentDate.Day()] += amount
	}

	out := make([]DayBalance, days)
	var running int64
	for d := 1; d <= days; d++ {
		running += perDay[d]
		out[d-1] = DayBalance{Day: d, CumulativeCents: running}
	}
	return out
}

func recentMovements(entries []*core.ExpenseEntry, incomes []*core.Income, limit int) []Movement {
	var out []Movement
	for _, e := range entries {
		if !e.Paid || e.Cancelled() || e.PaymentDate == nil {
			continue
		}
		amount := e.Provisioned.Cents
		if e.Actual != nil {
			amount = e.Actual.Cents
		}
		out = append(out, Movement{
			Description: e.Description,
			AmountCents: -amount,
			PaymentDate: *e.PaymentDate,
		})
	}
	for _, in := range incomes {
		if !in.Paid || in.PaymentDate == nil {
			continue
		}
		amount := in.Provisioned.Cents
		if in.Actual != nil {
			amount = in.Actual.Cents
		}
		out = append(out, Movement{
			Description: in.Description,
			AmountCents: amount,
			PaymentDate: *in.PaymentDate,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].PaymentDate.After(out[j].PaymentDate.Time)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func topCategories(byCategory map[int64]int64, limit int) []CategoryTotal {
	out := make([]CategoryTotal, 0, len(byCategory))
	for id, cents := range byCategory {
		out = append(out, CategoryTotal{CategoryID: id, PaidCents: cents})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PaidCents != out[j].PaidCents {
			return out[i].PaidCents > out[j].PaidCents
		}
		return out[i].CategoryID < out[j].CategoryID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
