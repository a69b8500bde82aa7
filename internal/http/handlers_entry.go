package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"mesa/internal/billing"
	"mesa/internal/core"
	"mesa/internal/services"
)

type createExpenseRequest struct {
	MesaID          int64  `json:"mesa_id"`
	Description     string `json:"description"`
	Kind            string `json:"kind"`
	Amount          string `json:"amount"` // decimal, dot or comma separator
	FirstDueDate    string `json:"first_due_date"`
	CardID          *int64 `json:"card_id"`
	CategoryID      *int64 `json:"category_id"`
	PaymentMethodID *int64 `json:"payment_method_id"`
	Installments    int    `json:"installments"`
	Recurring       bool   `json:"recurring"`
}

func (h *Handlers) CreateExpense(w http.ResponseWriter, r *http.Request) {
	var req createExpenseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid json body")
		return
	}

	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid_amount", "invalid amount")
		return
	}
	due, err := parseDate(req.FirstDueDate)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid_date", "invalid first_due_date")
		return
	}

	entries, err := h.service.CreateExpense(r.Context(), billing.ExpandRequest{
		MesaID:          req.MesaID,
		Description:     req.Description,
		Kind:            core.EntryKind(req.Kind),
		Total:           core.Money{Cents: cents},
		FirstDueDate:    due,
		CardID:          req.CardID,
		CategoryID:      req.CategoryID,
		PaymentMethodID: req.PaymentMethodID,
		Installments:    req.Installments,
		Recurring:       req.Recurring,
	}, time.Now())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"group_id": entries[0].GroupID,
		"entries":  toEntryResponses(entries),
	})
}

func (h *Handlers) GetEntry(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "invalid entry id")
		return
	}

	e, err := h.store.GetEntry(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryResponse(e))
}

type updateEntryRequest struct {
	Description *string `json:"description"`
	Amount      *string `json:"amount"`
	DueDate     *string `json:"due_date"`
	CategoryID  *int64  `json:"category_id"`
}

func (h *Handlers) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "invalid entry id")
		return
	}
	var req updateEntryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid json body")
		return
	}

	patch := services.UpdateEntryRequest{
		Description: req.Description,
		CategoryID:  req.CategoryID,
	}
	if req.Amount != nil {
		cents, err := core.ParseDecimalToCents(*req.Amount)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "invalid_amount", "invalid amount")
			return
		}
		patch.Amount = &core.Money{Cents: cents}
	}
	if req.DueDate != nil {
		due, err := parseDate(*req.DueDate)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "invalid_date", "invalid due_date")
			return
		}
		patch.DueDate = &due
	}

	e, err := h.service.UpdateEntry(r.Context(), id, patch, time.Now())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryResponse(e))
}

func (h *Handlers) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "invalid entry id")
		return
	}
	if err := h.service.DeleteEntry(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type payEntryRequest struct {
	Amount      *string `json:"amount"` // defaults to the provisioned amount
	PaymentDate string  `json:"payment_date"`
	ReceiptRef  string  `json:"receipt_ref"`
}

func (h *Handlers) PayEntry(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "invalid entry id")
		return
	}
	var req payEntryRequest
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

	e, err := h.service.MarkPaid(r.Context(), id, actual, paymentDate, req.ReceiptRef)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryResponse(e))
}

func (h *Handlers) UnpayEntry(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "invalid entry id")
		return
	}
	e, err := h.service.UndoPayment(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryResponse(e))
}

type cancelEntryRequest struct {
	CancelDate string `json:"cancel_date"`
}

func (h *Handlers) CancelEntry(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "invalid entry id")
		return
	}
	var req cancelEntryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid json body")
		return
	}
	cancelDate, err := parseDate(req.CancelDate)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid_date", "invalid cancel_date")
		return
	}

	e, err := h.service.CancelOccurrence(r.Context(), id, cancelDate)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryResponse(e))
}

func (h *Handlers) RestoreEntry(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "invalid entry id")
		return
	}
	e, err := h.service.RestoreOccurrence(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryResponse(e))
}

// ListEntries returns a mesa's active entries due inside [from, to]. The
// range defaults to the current calendar month.
func (h *Handlers) ListEntries(w http.ResponseWriter, r *http.Request) {
	mesaID, err := idParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "invalid mesa id")
		return
	}

	now := time.Now()
	from := core.NewDate(now.Year(), int(now.Month()), 1)
	to := core.ClampDay(now.Year(), now.Month(), 31)
	if v := r.URL.Query().Get("from"); v != "" {
		if from, err = parseDate(v); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "invalid from date")
			return
		}
	}
	if v := r.URL.Query().Get("to"); v != "" {
		if to, err = parseDate(v); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "invalid to date")
			return
		}
	}

	entries, err := h.store.EntriesByPeriod(r.Context(), mesaID, from, to)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": toEntryResponses(entries)})
}

func (h *Handlers) ListSeries(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "group_id")
	entries, err := h.store.EntriesByGroup(r.Context(), groupID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": toEntryResponses(entries)})
}

func (h *Handlers) ExtendSeries(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "group_id")
	created, err := h.service.ExtendSeries(r.Context(), groupID, time.Now())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"created": toEntryResponses(created)})
}
