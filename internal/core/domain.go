package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	KindVariable     EntryKind = "variable"
	KindFixed        EntryKind = "fixed"
	KindSubscription EntryKind = "subscription"
)

const (
	CardCredit CardType = "credito"
	CardDebit  CardType = "debito"
)

const (
	InvoiceOpen   InvoiceStatus = "open"
	InvoiceClosed InvoiceStatus = "closed"
	InvoicePaid   InvoiceStatus = "paid"
)

type (
	EntryKind     string
	CardType      string
	InvoiceStatus string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Card is collaborator data: the engine reads closing/due days and the
	// limit but never mutates a card.
	Card struct {
		ID         int64
		MesaID     int64
		Name       string
		Type       CardType
		ClosingDay int // 1-31, credit cards only; 0 means not configured
		DueDay     int // 1-31, credit cards only
		LimitCents *int64
		Active     bool
	}

	// ExpenseEntry is one dated occurrence of an expense. Entries spawned
	// from a single installment or recurring request share a GroupID.
	ExpenseEntry struct {
		ID              int64
		MesaID          int64
		CardID          *int64
		Description     string
		Kind            EntryKind
		Provisioned     Money
		Actual          *Money // set only once paid; may differ from Provisioned
		DueDate         Date
		PaymentDate     *Date
		CancelDate      *Date
		Paid            bool
		Recurring       bool
		InstallmentNum  int // 1-based
		InstallmentCnt  int // 0 means open-ended recurring series
		GroupID         string
		InvoiceID       *int64 // set iff the entry's card is a credit card
		CategoryID      *int64
		PaymentMethodID *int64
		ReceiptRef      string // opaque reference into the file store
		OverdueNotified bool
		Active          bool
		Version         int64
	}

	// Invoice is the billing-cycle aggregate for one credit card in one
	// reference month ("fatura").
	Invoice struct {
		ID             int64
		CardID         int64
		MesaID         int64
		ReferenceMonth Date // first-of-month marker
		ClosingDate    Date
		DueDate        Date
		Provisioned    Money  // always a full re-sum of attached entries
		Actual         *Money // set when paid in bulk or on auto-completion
		PaymentDate    *Date
		Status         InvoiceStatus
		Active         bool
		Version        int64
	}

	Income struct {
		ID          int64
		MesaID      int64
		Description string
		Provisioned Money
		Actual      *Money
		DueDate     Date
		PaymentDate *Date
		Paid        bool
		Active      bool
	}
)

var (
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyDescription = errors.New("empty description")
	ErrInvalidKind      = errors.New("invalid entry kind")
)

// NewDate creates a Date from year, month, day at midnight UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month as an int
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (k EntryKind) Valid() bool {
	switch k {
	case KindVariable, KindFixed, KindSubscription:
		return true
	default:
		return false
	}
}

// Cancelled reports whether this occurrence was cancelled.
func (e *ExpenseEntry) Cancelled() bool {
	return e.CancelDate != nil
}

// CountsForInvoice reports whether the entry participates in invoice totals
// and in the paid-completeness check.
func (e *ExpenseEntry) CountsForInvoice() bool {
	return e.Active && !e.Cancelled()
}

func (e *ExpenseEntry) Validate() error {
	if err := e.DueDate.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(e.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(e.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if err := e.Provisioned.Validate(); err != nil {
		return err
	}
	if !e.Kind.Valid() {
		return ErrInvalidKind
	}
	if e.InstallmentCnt > 0 {
		if e.InstallmentNum < 1 || e.InstallmentNum > e.InstallmentCnt {
			return errors.New("installment index out of range")
		}
	} else if e.InstallmentNum < 1 {
		return errors.New("installment index out of range")
	}
	if e.GroupID == "" {
		return errors.New("missing installment group id")
	}
	return nil
}

// IsCredit reports whether entries on this card are grouped into invoices.
func (c *Card) IsCredit() bool {
	return c.Type == CardCredit
}

func (c *Card) Validate() error {
	if len(strings.TrimSpace(c.Name)) == 0 {
		return errors.New("card name is required")
	}
	if c.Type != CardCredit && c.Type != CardDebit {
		return fmt.Errorf("unknown card type %q", c.Type)
	}
	if c.ClosingDay < 0 || c.ClosingDay > 31 {
		return fmt.Errorf("closing day %d out of range", c.ClosingDay)
	}
	if c.DueDay < 0 || c.DueDay > 31 {
		return fmt.Errorf("due day %d out of range", c.DueDay)
	}
	if c.LimitCents != nil && *c.LimitCents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}
