package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"mesa/internal/core"

	_ "modernc.org/sqlite"
)

// SQLiteRepository implements the billing store and the dashboard reader on
// a single sqlite database. Optimistic locking: every UPDATE on entries and
// invoices carries `AND version = ?`; zero affected rows on an existing row
// means a lost race and surfaces core.ErrConcurrentModification.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// --- Entries ---

func (r *SQLiteRepository) CreateEntry(ctx context.Context, e *core.ExpenseEntry) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO entries (
			mesa_id, card_id, description, kind, provisioned_cents, actual_cents,
			due_date, payment_date, cancel_date, paid, recurring, installment_num,
			installment_cnt, group_id, invoice_id, category_id, payment_method_id,
			receipt_ref, overdue_notified, active, version
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)`,
		e.MesaID, ptrArg(e.CardID), e.Description, string(e.Kind), e.Provisioned.Cents,
		centsPtr(e.Actual), fmtDate(e.DueDate), fmtDatePtr(e.PaymentDate),
		fmtDatePtr(e.CancelDate), e.Paid, e.Recurring, e.InstallmentNum,
		e.InstallmentCnt, e.GroupID, ptrArg(e.InvoiceID), ptrArg(e.CategoryID),
		ptrArg(e.PaymentMethodID), e.ReceiptRef, e.OverdueNotified, e.Active,
	)
	if err != nil {
		return fmt.Errorf("create entry: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("create entry id: %w", err)
	}
	e.ID = id
	e.Version = 1
	return nil
}

func (r *SQLiteRepository) GetEntry(ctx context.Context, id int64) (*core.ExpenseEntry, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM entries WHERE id = ?`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get entry %d: %w", id, err)
	}
	return e, nil
}

func (r *SQLiteRepository) UpdateEntry(ctx context.Context, e *core.ExpenseEntry) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE entries SET
			mesa_id = ?, card_id = ?, description = ?, kind = ?,
			provisioned_cents = ?, actual_cents = ?, due_date = ?,
			payment_date = ?, cancel_date = ?, paid = ?, recurring = ?,
			installment_num = ?, installment_cnt = ?, group_id = ?,
			invoice_id = ?, category_id = ?, payment_method_id = ?,
			receipt_ref = ?, overdue_notified = ?, active = ?,
			version = version + 1
		WHERE id = ? AND version = ?`,
		e.MesaID, ptrArg(e.CardID), e.Description, string(e.Kind),
		e.Provisioned.Cents, centsPtr(e.Actual), fmtDate(e.DueDate),
		fmtDatePtr(e.PaymentDate), fmtDatePtr(e.CancelDate), e.Paid, e.Recurring,
		e.InstallmentNum, e.InstallmentCnt, e.GroupID,
		ptrArg(e.InvoiceID), ptrArg(e.CategoryID), ptrArg(e.PaymentMethodID),
		e.ReceiptRef, e.OverdueNotified, e.Active,
		e.ID, e.Version,
	)
	if err != nil {
		return fmt.Errorf("update entry %d: %w", e.ID, err)
	}
	return r.checkVersioned(ctx, res, "entries", e.ID, core.ErrEntryNotFound, func() { e.Version++ })
}

func (r *SQLiteRepository) EntriesByGroup(ctx context.Context, groupID string) ([]*core.ExpenseEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM entries WHERE group_id = ? ORDER BY installment_num`,
		groupID)
	if err != nil {
		return nil, fmt.Errorf("entries by group %s: %w", groupID, err)
	}
	return collectEntries(rows)
}

func (r *SQLiteRepository) EntriesByInvoice(ctx context.Context, invoiceID int64) ([]*core.ExpenseEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM entries WHERE invoice_id = ? ORDER BY id`,
		invoiceID)
	if err != nil {
		return nil, fmt.Errorf("entries by invoice %d: %w", invoiceID, err)
	}
	return collectEntries(rows)
}

func (r *SQLiteRepository) EntriesByPeriod(ctx context.Context, mesaID int64, from, to core.Date) ([]*core.ExpenseEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM entries
		 WHERE mesa_id = ? AND active = 1 AND due_date BETWEEN ? AND ?
		 ORDER BY due_date, id`,
		mesaID, fmtDate(from), fmtDate(to))
	if err != nil {
		return nil, fmt.Errorf("entries by period: %w", err)
	}
	return collectEntries(rows)
}

func (r *SQLiteRepository) OpenSeriesGroups(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT group_id FROM entries
		WHERE recurring = 1 AND installment_cnt = 0 AND active = 1
		ORDER BY group_id`)
	if err != nil {
		return nil, fmt.Errorf("open series groups: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var g string
		if err := rows.Scan(&g); err != nil {
			return nil, fmt.Errorf("scan group id: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) UnnotifiedOverdueEntries(ctx context.Context, now time.Time) ([]*core.ExpenseEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM entries
		 WHERE active = 1 AND paid = 0 AND cancel_date IS NULL
		   AND overdue_notified = 0 AND due_date < ?
		 ORDER BY id`,
		now.Format(dateLayout))
	if err != nil {
		return nil, fmt.Errorf("unnotified overdue entries: %w", err)
	}
	return collectEntries(rows)
}

// --- Invoices ---

func (r *SQLiteRepository) CreateInvoice(ctx context.Context, inv *core.Invoice) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO invoices (
			card_id, mesa_id, reference_month, closing_date, due_date,
			provisioned_cents, actual_cents, payment_date, status, active, version
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)`,
		inv.CardID, inv.MesaID, fmtDate(inv.ReferenceMonth), fmtDate(inv.ClosingDate),
		fmtDate(inv.DueDate), inv.Provisioned.Cents, centsPtr(inv.Actual),
		fmtDatePtr(inv.PaymentDate), string(inv.Status), inv.Active,
	)
	if err != nil {
		return fmt.Errorf("create invoice: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("create invoice id: %w", err)
	}
	inv.ID = id
	inv.Version = 1
	return nil
}

func (r *SQLiteRepository) GetInvoice(ctx context.Context, id int64) (*core.Invoice, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE id = ?`, id)
	inv, err := scanInvoice(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrInvoiceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get invoice %d: %w", id, err)
	}
	return inv, nil
}

func (r *SQLiteRepository) FindInvoice(ctx context.Context, cardID int64, referenceMonth core.Date) (*core.Invoice, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE card_id = ? AND reference_month = ?`,
		cardID, fmtDate(core.FirstOfMonth(referenceMonth)))
	inv, err := scanInvoice(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find invoice card=%d month=%s: %w",
			cardID, fmtDate(referenceMonth), err)
	}
	return inv, nil
}

func (r *SQLiteRepository) UpdateInvoice(ctx context.Context, inv *core.Invoice) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE invoices SET
			card_id = ?, mesa_id = ?, reference_month = ?, closing_date = ?,
			due_date = ?, provisioned_cents = ?, actual_cents = ?,
			payment_date = ?, status = ?, active = ?,
			version = version + 1
		WHERE id = ? AND version = ?`,
		inv.CardID, inv.MesaID, fmtDate(inv.ReferenceMonth), fmtDate(inv.ClosingDate),
		fmtDate(inv.DueDate), inv.Provisioned.Cents, centsPtr(inv.Actual),
		fmtDatePtr(inv.PaymentDate), string(inv.Status), inv.Active,
		inv.ID, inv.Version,
	)
	if err != nil {
		return fmt.Errorf("update invoice %d: %w", inv.ID, err)
	}
	return r.checkVersioned(ctx, res, "invoices", inv.ID, core.ErrInvoiceNotFound, func() { inv.Version++ })
}

func (r *SQLiteRepository) OpenInvoicesClosedBefore(ctx context.Context, now time.Time) ([]*core.Invoice, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+invoiceColumns+` FROM invoices
		 WHERE active = 1 AND status = 'open' AND closing_date < ?
		 ORDER BY id`,
		now.Format(dateLayout))
	if err != nil {
		return nil, fmt.Errorf("open invoices past closing: %w", err)
	}
	defer rows.Close()

	var out []*core.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) InvoicesByMesa(ctx context.Context, mesaID int64) ([]*core.Invoice, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE mesa_id = ? AND active = 1 ORDER BY id`,
		mesaID)
	if err != nil {
		return nil, fmt.Errorf("invoices by mesa %d: %w", mesaID, err)
	}
	defer rows.Close()

	var out []*core.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

// --- Cards ---

func (r *SQLiteRepository) CreateCard(ctx context.Context, c *core.Card) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO cards (mesa_id, name, type, closing_day, due_day, limit_cents, active)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.MesaID, c.Name, string(c.Type), c.ClosingDay, c.DueDay, ptrArg(c.LimitCents), c.Active,
	)
	if err != nil {
		return fmt.Errorf("create card: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("create card id: %w", err)
	}
	c.ID = id
	return nil
}

func (r *SQLiteRepository) GetCard(ctx context.Context, id int64) (*core.Card, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, mesa_id, name, type, closing_day, due_day, limit_cents, active
		FROM cards WHERE id = ?`, id)
	c, err := scanCard(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrCardNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get card %d: %w", id, err)
	}
	return c, nil
}

func (r *SQLiteRepository) CardsByMesa(ctx context.Context, mesaID int64) ([]*core.Card, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, mesa_id, name, type, closing_day, due_day, limit_cents, active
		FROM cards WHERE mesa_id = ? AND active = 1 ORDER BY id`, mesaID)
	if err != nil {
		return nil, fmt.Errorf("cards by mesa %d: %w", mesaID, err)
	}
	defer rows.Close()

	var out []*core.Card
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("scan card: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// --- Incomes ---

func (r *SQLiteRepository) CreateIncome(ctx context.Context, in *core.Income) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO incomes (mesa_id, description, provisioned_cents, actual_cents,
			due_date, payment_date, paid, active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		in.MesaID, in.Description, in.Provisioned.Cents, centsPtr(in.Actual),
		fmtDate(in.DueDate), fmtDatePtr(in.PaymentDate), in.Paid, in.Active,
	)
	if err != nil {
		return fmt.Errorf("create income: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("create income id: %w", err)
	}
	in.ID = id
	return nil
}

func (r *SQLiteRepository) IncomesByPeriod(ctx context.Context, mesaID int64, from, to core.Date) ([]*core.Income, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, mesa_id, description, provisioned_cents, actual_cents,
			due_date, payment_date, paid, active
		FROM incomes
		WHERE mesa_id = ? AND active = 1 AND due_date BETWEEN ? AND ?
		ORDER BY due_date, id`,
		mesaID, fmtDate(from), fmtDate(to))
	if err != nil {
		return nil, fmt.Errorf("incomes by period: %w", err)
	}
	defer rows.Close()

	var out []*core.Income
	for rows.Next() {
		in, err := scanIncome(rows)
		if err != nil {
			return nil, fmt.Errorf("scan income: %w", err)
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

// --- Mesas ---

func (r *SQLiteRepository) CreateMesa(ctx context.Context, name string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `INSERT INTO mesas (name) VALUES (?)`, name)
	if err != nil {
		return 0, fmt.Errorf("create mesa: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("create mesa id: %w", err)
	}
	return id, nil
}

// --- helpers ---

// checkVersioned distinguishes a missing row from a lost version race.
func (r *SQLiteRepository) checkVersioned(ctx context.Context, res sql.Result, table string, id int64, notFound error, bump func()) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n > 0 {
		bump()
		return nil
	}

	var exists int
	err = r.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM `+table+` WHERE id = ?`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check %s %d: %w", table, id, err)
	}
	if exists == 0 {
		return notFound
	}
	return core.ErrConcurrentModification
}

func collectEntries(rows *sql.Rows) ([]*core.ExpenseEntry, error) {
	defer rows.Close()
	var out []*core.ExpenseEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func ptrArg(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}
