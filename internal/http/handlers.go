package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"mesa/internal/backend"
	"mesa/internal/cache"
	"mesa/internal/core"
	"mesa/internal/dashboard"
	"mesa/internal/services"
)

// SummaryCacheTTL bounds how stale a cached dashboard can be.
const SummaryCacheTTL = 30 * time.Second

const summaryCacheSize = 256

// Handlers holds the HTTP surface of the billing engine.
type Handlers struct {
	store        backend.Store
	service      *services.EntryService
	dashboards   *dashboard.Aggregator
	summaryCache *cache.LRUCache[*dashboard.Summary]
}

func NewHandlers(store backend.Store, service *services.EntryService) *Handlers {
	return &Handlers{
		store:        store,
		service:      service,
		dashboards:   dashboard.NewAggregator(store),
		summaryCache: cache.NewLRUCache[*dashboard.Summary](summaryCacheSize, SummaryCacheTTL),
	}
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func idParam(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}

func parseDate(s string) (core.Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return core.Date{}, err
	}
	return core.Date{Time: t}, nil
}

func fmtDate(d core.Date) string {
	return d.Format("2006-01-02")
}

func fmtDatePtr(d *core.Date) *string {
	if d == nil {
		return nil
	}
	s := d.Format("2006-01-02")
	return &s
}

func centsPtr(m *core.Money) *int64 {
	if m == nil {
		return nil
	}
	return &m.Cents
}

type entryResponse struct {
	ID               int64   `json:"id"`
	MesaID           int64   `json:"mesa_id"`
	CardID           *int64  `json:"card_id,omitempty"`
	Description      string  `json:"description"`
	Kind             string  `json:"kind"`
	ProvisionedCents int64   `json:"provisioned_cents"`
	ActualCents      *int64  `json:"actual_cents,omitempty"`
	DueDate          string  `json:"due_date"`
	PaymentDate      *string `json:"payment_date,omitempty"`
	CancelDate       *string `json:"cancel_date,omitempty"`
	Paid             bool    `json:"paid"`
	Recurring        bool    `json:"recurring"`
	InstallmentNum   int     `json:"installment_num"`
	InstallmentCnt   int     `json:"installment_cnt"`
	GroupID          string  `json:"group_id"`
	InvoiceID        *int64  `json:"invoice_id,omitempty"`
	CategoryID       *int64  `json:"category_id,omitempty"`
	ReceiptRef       string  `json:"receipt_ref,omitempty"`
	Active           bool    `json:"active"`
}

func toEntryResponse(e *core.ExpenseEntry) entryResponse {
	return entryResponse{
		ID:               e.ID,
		MesaID:           e.MesaID,
		CardID:           e.CardID,
		Description:      e.Description,
		Kind:             string(e.Kind),
		ProvisionedCents: e.Provisioned.Cents,
		ActualCents:      centsPtr(e.Actual),
		DueDate:          fmtDate(e.DueDate),
		PaymentDate:      fmtDatePtr(e.PaymentDate),
		CancelDate:       fmtDatePtr(e.CancelDate),
		Paid:             e.Paid,
		Recurring:        e.Recurring,
		InstallmentNum:   e.InstallmentNum,
		InstallmentCnt:   e.InstallmentCnt,
		GroupID:          e.GroupID,
		InvoiceID:        e.InvoiceID,
		CategoryID:       e.CategoryID,
		ReceiptRef:       e.ReceiptRef,
		Active:           e.Active,
	}
}

func toEntryResponses(entries []*core.ExpenseEntry) []entryResponse {
	out := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toEntryResponse(e))
	}
	return out
}

type invoiceResponse struct {
	ID               int64           `json:"id"`
	CardID           int64           `json:"card_id"`
	MesaID           int64           `json:"mesa_id"`
	ReferenceMonth   string          `json:"reference_month"`
	ClosingDate      string          `json:"closing_date"`
	DueDate          string          `json:"due_date"`
	ProvisionedCents int64           `json:"provisioned_cents"`
	ActualCents      *int64          `json:"actual_cents,omitempty"`
	PaymentDate      *string         `json:"payment_date,omitempty"`
	Status           string          `json:"status"`
	Active           bool            `json:"active"`
	Entries          []entryResponse `json:"entries,omitempty"`
}

func toInvoiceResponse(inv *core.Invoice) invoiceResponse {
	return invoiceResponse{
		ID:               inv.ID,
		CardID:           inv.CardID,
		MesaID:           inv.MesaID,
		ReferenceMonth:   fmtDate(inv.ReferenceMonth),
		ClosingDate:      fmtDate(inv.ClosingDate),
		DueDate:          fmtDate(inv.DueDate),
		ProvisionedCents: inv.Provisioned.Cents,
		ActualCents:      centsPtr(inv.Actual),
		PaymentDate:      fmtDatePtr(inv.PaymentDate),
		Status:           string(inv.Status),
		Active:           inv.Active,
	}
}
