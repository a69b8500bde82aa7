package amqp

import (
	"encoding/json"
	"time"
)

const (
	TypeInvoiceClosed = "invoice_closed"
	TypeEntryOverdue  = "entry_overdue"
)

// InvoiceClosedMessage announces that a billing cycle has closed.
type InvoiceClosedMessage struct {
	InvoiceID      int64  `json:"invoice_id"`
	CardID         int64  `json:"card_id"`
	MesaID         int64  `json:"mesa_id"`
	ReferenceMonth string `json:"reference_month"` // YYYY-MM-DD, first of month
	TotalCents     int64  `json:"total_cents"`
}

// EntryOverdueMessage announces an unpaid entry past its due date.
type EntryOverdueMessage struct {
	EntryID     int64  `json:"entry_id"`
	MesaID      int64  `json:"mesa_id"`
	Description string `json:"description"`
	DueDate     string `json:"due_date"`
	AmountCents int64  `json:"amount_cents"`
}

// Notification is the envelope published to the alerting queue. Consumers
// dispatch on Type; exactly one payload field is set.
type Notification struct {
	Type          string                `json:"type"`
	InvoiceClosed *InvoiceClosedMessage `json:"invoice_closed,omitempty"`
	EntryOverdue  *EntryOverdueMessage  `json:"entry_overdue,omitempty"`
	Timestamp     time.Time             `json:"timestamp"`
}

func (n *Notification) ToJSON() ([]byte, error) {
	return json.Marshal(n)
}

func NotificationFromJSON(data []byte) (*Notification, error) {
	var n Notification
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, err
	}
	return &n, nil
}
