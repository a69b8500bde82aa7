package http

import (
	"net/http"

	"mesa/internal/core"
)

type createMesaRequest struct {
	Name string `json:"name"`
}

func (h *Handlers) CreateMesa(w http.ResponseWriter, r *http.Request) {
	var req createMesaRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid json body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusUnprocessableEntity, "invalid_request", "name is required")
		return
	}

	id, err := h.store.CreateMesa(r.Context(), req.Name)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": id, "name": req.Name})
}

type createCardRequest struct {
	MesaID     int64  `json:"mesa_id"`
	Name       string `json:"name"`
	Type       string `json:"type"`
	ClosingDay int    `json:"closing_day"`
	DueDay     int    `json:"due_day"`
	Limit      *string `json:"limit"`
}

func (h *Handlers) CreateCard(w http.ResponseWriter, r *http.Request) {
	var req createCardRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid json body")
		return
	}

	card := &core.Card{
		MesaID:     req.MesaID,
		Name:       req.Name,
		Type:       core.CardType(req.Type),
		ClosingDay: req.ClosingDay,
		DueDay:     req.DueDay,
		Active:     true,
	}
	if req.Limit != nil {
		cents, err := core.ParseDecimalToCents(*req.Limit)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "invalid_amount", "invalid limit")
			return
		}
		card.LimitCents = &cents
	}
	if err := card.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid_request", err.Error())
		return
	}

	if err := h.store.CreateCard(r.Context(), card); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": card.ID})
}

type createIncomeRequest struct {
	MesaID      int64  `json:"mesa_id"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	DueDate     string `json:"due_date"`
}

func (h *Handlers) CreateIncome(w http.ResponseWriter, r *http.Request) {
	var req createIncomeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid json body")
		return
	}

	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid_amount", "invalid amount")
		return
	}
	due, err := parseDate(req.DueDate)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid_date", "invalid due_date")
		return
	}
	if req.Description == "" {
		writeError(w, http.StatusUnprocessableEntity, "invalid_request", "description is required")
		return
	}

	income := &core.Income{
		MesaID:      req.MesaID,
		Description: req.Description,
		Provisioned: core.Money{Cents: cents},
		DueDate:     due,
		Active:      true,
	}
	if err := h.store.CreateIncome(r.Context(), income); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": income.ID})
}
