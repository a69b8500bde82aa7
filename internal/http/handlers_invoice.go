package http

import (
	"net/http"

	"mesa/internal/core"
)

func (h *Handlers) GetInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "invalid invoice id")
		return
	}

	inv, err := h.store.GetInvoice(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	entries, err := h.store.EntriesByInvoice(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := toInvoiceResponse(inv)
	resp.Entries = toEntryResponses(entries)
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) ListInvoices(w http.ResponseWriter, r *http.Request) {
	mesaID, err := idParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "invalid mesa id")
		return
	}

	invoices, err := h.store.InvoicesByMesa(r.Context(), mesaID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	out := make([]invoiceResponse, 0, len(invoices))
	for _, inv := range invoices {
		out = append(out, toInvoiceResponse(inv))
	}
	writeJSON(w, http.StatusOK, map[string]any{"invoices": out})
}

type payInvoiceRequest struct {
	Amount      *string `json:"amount"` // defaults to the sum of entry actuals
	PaymentDate string  `json:"payment_date"`
}

func (h *Handlers) PayInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "invalid invoice id")
		return
	}
	var req payInvoiceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid json body")
		return
	}

	paymentDate, err := parseDate(req.PaymentDate)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid_date", "invalid payment_date")
		return
	}
	var actual *core.Money
	if req.Amount != nil {
		cents, err := core.ParseDecimalToCents(*req.Amount)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "invalid_amount", "invalid amount")
			return
		}
		actual = &core.Money{Cents: cents}
	}

	inv, err := h.service.PayInvoice(r.Context(), id, actual, paymentDate)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toInvoiceResponse(inv))
}

func (h *Handlers) UnpayInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "invalid invoice id")
		return
	}
	inv, err := h.service.UndoInvoicePayment(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toInvoiceResponse(inv))
}
