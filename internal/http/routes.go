package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

func NewRouter(h *Handlers) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)

		r.Post("/mesas", h.CreateMesa)
		r.Get("/mesas/{id}/entries", h.ListEntries)
		r.Get("/mesas/{id}/invoices", h.ListInvoices)
		r.Get("/mesas/{id}/dashboard", h.Dashboard)

		r.Post("/cards", h.CreateCard)
		r.Post("/incomes", h.CreateIncome)

		r.Post("/entries", h.CreateExpense)
		r.Get("/entries/{id}", h.GetEntry)
		r.Patch("/entries/{id}", h.UpdateEntry)
		r.Delete("/entries/{id}", h.DeleteEntry)
		r.Post("/entries/{id}/pay", h.PayEntry)
		r.Post("/entries/{id}/unpay", h.UnpayEntry)
		r.Post("/entries/{id}/cancel", h.CancelEntry)
		r.Post("/entries/{id}/restore", h.RestoreEntry)

		r.Get("/series/{group_id}", h.ListSeries)
		r.Post("/series/{group_id}/extend", h.ExtendSeries)

		r.Get("/invoices/{id}", h.GetInvoice)
		r.Post("/invoices/{id}/pay", h.PayInvoice)
		r.Post("/invoices/{id}/unpay", h.UnpayInvoice)
	})

	return r
}

// NewServer wraps the router in an http.Server with sane timeouts.
func NewServer(port string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
