package storage

import (
	"database/sql"
	"fmt"
	"time"

	"mesa/internal/core"
)

const dateLayout = "2006-01-02"

const entryColumns = `id, mesa_id, card_id, description, kind, provisioned_cents,
	actual_cents, due_date, payment_date, cancel_date, paid, recurring,
	installment_num, installment_cnt, group_id, invoice_id, category_id,
	payment_method_id, receipt_ref, overdue_notified, active, version`

const invoiceColumns = `id, card_id, mesa_id, reference_month, closing_date,
	due_date, provisioned_cents, actual_cents, payment_date, status, active, version`

type rowScanner interface {
	Scan(dest ...any) error
}

func fmtDate(d core.Date) string {
	return d.Format(dateLayout)
}

func fmtDatePtr(d *core.Date) any {
	if d == nil {
		return nil
	}
	return d.Format(dateLayout)
}

func centsPtr(m *core.Money) any {
	if m == nil {
		return nil
	}
	return m.Cents
}

func parseDate(s string) (core.Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return core.Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return core.Date{Time: t}, nil
}

func parseDateNull(s sql.NullString) (*core.Date, error) {
	if !s.Valid {
		return nil, nil
	}
	d, err := parseDate(s.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func moneyNull(n sql.NullInt64) *core.Money {
	if !n.Valid {
		return nil
	}
	return &core.Money{Cents: n.Int64}
}

func int64Null(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func scanEntry(row rowScanner) (*core.ExpenseEntry, error) {
	var (
		e                                 core.ExpenseEntry
		cardID, actual                    sql.NullInt64
		invoiceID, categoryID, paymentMID sql.NullInt64
		dueDate                           string
		paymentDate, cancelDate           sql.NullString
	)
	err := row.Scan(
		&e.ID, &e.MesaID, &cardID, &e.Description, &e.Kind, &e.Provisioned.Cents,
		&actual, &dueDate, &paymentDate, &cancelDate, &e.Paid, &e.Recurring,
		&e.InstallmentNum, &e.InstallmentCnt, &e.GroupID, &invoiceID, &categoryID,
		&paymentMID, &e.ReceiptRef, &e.OverdueNotified, &e.Active, &e.Version,
	)
	if err != nil {
		return nil, err
	}

	e.CardID = int64Null(cardID)
	e.Actual = moneyNull(actual)
	e.InvoiceID = int64Null(invoiceID)
	e.CategoryID = int64Null(categoryID)
	e.PaymentMethodID = int64Null(paymentMID)

	if e.DueDate, err = parseDate(dueDate); err != nil {
		return nil, err
	}
	if e.PaymentDate, err = parseDateNull(paymentDate); err != nil {
		return nil, err
	}
	if e.CancelDate, err = parseDateNull(cancelDate); err != nil {
		return nil, err
	}
	return &e, nil
}

func scanInvoice(row rowScanner) (*core.Invoice, error) {
	var (
		inv                                core.Invoice
		actual                             sql.NullInt64
		referenceMonth, closingDate, dueDt string
		paymentDate                        sql.NullString
	)
	err := row.Scan(
		&inv.ID, &inv.CardID, &inv.MesaID, &referenceMonth, &closingDate, &dueDt,
		&inv.Provisioned.Cents, &actual, &paymentDate, &inv.Status, &inv.Active,
		&inv.Version,
	)
	if err != nil {
		return nil, err
	}

	inv.Actual = moneyNull(actual)
	if inv.ReferenceMonth, err = parseDate(referenceMonth); err != nil {
		return nil, err
	}
	if inv.ClosingDate, err = parseDate(closingDate); err != nil {
		return nil, err
	}
	if inv.DueDate, err = parseDate(dueDt); err != nil {
		return nil, err
	}
	if inv.PaymentDate, err = parseDateNull(paymentDate); err != nil {
		return nil, err
	}
	return &inv, nil
}

func scanIncome(row rowScanner) (*core.Income, error) {
	var (
		in          core.Income
		actual      sql.NullInt64
		dueDate     string
		paymentDate sql.NullString
	)
	err := row.Scan(
		&in.ID, &in.MesaID, &in.Description, &in.Provisioned.Cents, &actual,
		&dueDate, &paymentDate, &in.Paid, &in.Active,
	)
	if err != nil {
		return nil, err
	}

	in.Actual = moneyNull(actual)
	if in.DueDate, err = parseDate(dueDate); err != nil {
		return nil, err
	}
	if in.PaymentDate, err = parseDateNull(paymentDate); err != nil {
		return nil, err
	}
	return &in, nil
}

func scanCard(row rowScanner) (*core.Card, error) {
	var (
		c     core.Card
		limit sql.NullInt64
	)
	err := row.Scan(&c.ID, &c.MesaID, &c.Name, &c.Type, &c.ClosingDay, &c.DueDay, &limit, &c.Active)
	if err != nil {
		return nil, err
	}
	c.LimitCents = int64Null(limit)
	return &c, nil
}
