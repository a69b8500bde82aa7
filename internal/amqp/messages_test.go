package amqp

import (
	"testing"
	"time"
)

func TestNotificationEnvelopeDispatch(t *testing.T) {
	n := &Notification{
		Type: TypeInvoiceClosed,
		InvoiceClosed: &InvoiceClosedMessage{
			InvoiceID:      7,
			CardID:         3,
			MesaID:         1,
			ReferenceMonth: "2026-03-01",
			TotalCents:     4500,
		},
		Timestamp: time.Date(2026, 3, 9, 6, 0, 0, 0, time.UTC),
	}

	body, err := n.ToJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	got, err := NotificationFromJSON(body)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Type != TypeInvoiceClosed {
		t.Errorf("type: got %s, want %s", got.Type, TypeInvoiceClosed)
	}
	if got.InvoiceClosed == nil {
		t.Fatal("invoice_closed payload missing")
	}
	if got.EntryOverdue != nil {
		t.Error("exactly one payload field must be set")
	}
	if got.InvoiceClosed.TotalCents != 4500 || got.InvoiceClosed.ReferenceMonth != "2026-03-01" {
		t.Errorf("payload mismatch: %+v", got.InvoiceClosed)
	}
}

func TestNotificationFromJSONMalformed(t *testing.T) {
	if _, err := NotificationFromJSON([]byte("{not json")); err == nil {
		t.Fatal("expected an error for malformed payload")
	}
}
