package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"mesa/internal/services"
	"mesa/internal/storage/memory"
)

func newTestServer(t *testing.T) (*httptest.Server, *memory.Store) {
	t.Helper()
	store := memory.New()
	service := services.NewEntryService(store, 3)
	handlers := NewHandlers(store, service)
	srv := httptest.NewServer(NewRouter(handlers))
	t.Cleanup(srv.Close)
	return srv, store
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/health")
	if err != nil {
		t.Fatalf("GET /api/health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: got %d, want 200", resp.StatusCode)
	}
}

func TestCreateExpenseEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/entries", map[string]any{
		"mesa_id":        1,
		"description":    "notebook",
		"kind":           "variable",
		"amount":         "100.00",
		"first_due_date": "2026-09-15",
		"installments":   3,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status: got %d, want 201", resp.StatusCode)
	}

	var body struct {
		GroupID string          `json:"group_id"`
		Entries []entryResponse `json:"entries"`
	}
	decodeBody(t, resp, &body)
	if body.GroupID == "" {
		t.Error("missing group id")
	}
	if len(body.Entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(body.Entries))
	}
	wantCents := []int64{3333, 3333, 3334}
	for i, e := range body.Entries {
		if e.ProvisionedCents != wantCents[i] {
			t.Errorf("entry %d: %d cents, want %d", i, e.ProvisionedCents, wantCents[i])
		}
	}
}

func TestCreateExpenseRejectsBadInput(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct {
		name       string
		body       map[string]any
		wantStatus int
	}{
		{
			name: "invalid amount",
			body: map[string]any{
				"mesa_id": 1, "description": "x", "kind": "variable",
				"amount": "abc", "first_due_date": "2026-09-15",
			},
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name: "invalid date",
			body: map[string]any{
				"mesa_id": 1, "description": "x", "kind": "variable",
				"amount": "10.00", "first_due_date": "15/09/2026",
			},
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name: "unknown kind",
			body: map[string]any{
				"mesa_id": 1, "description": "x", "kind": "loan",
				"amount": "10.00", "first_due_date": "2026-09-15",
			},
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name: "subscription with finite installments",
			body: map[string]any{
				"mesa_id": 1, "description": "x", "kind": "subscription",
				"amount": "10.00", "first_due_date": "2026-09-15", "installments": 12,
			},
			wantStatus: http.StatusUnprocessableEntity,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, srv.URL+"/api/entries", tt.body)
			defer resp.Body.Close()
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status: got %d, want %d", resp.StatusCode, tt.wantStatus)
			}
		})
	}
}

func TestCreateExpenseRejectsMalformedJSON(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Post(srv.URL+"/api/entries", "application/json", bytes.NewReader([]byte("{not json")))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400", resp.StatusCode)
	}
}

func TestEntryPaymentEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/entries", map[string]any{
		"mesa_id":        1,
		"description":    "mercado",
		"kind":           "variable",
		"amount":         "45.00",
		"first_due_date": "2026-09-15",
	})
	var created struct {
		Entries []entryResponse `json:"entries"`
	}
	decodeBody(t, resp, &created)
	id := created.Entries[0].ID

	payURL := fmt.Sprintf("%s/api/entries/%d/pay", srv.URL, id)
	resp = postJSON(t, payURL, map[string]any{
		"amount":       "44.50",
		"payment_date": "2026-09-14",
		"receipt_ref":  "pix-123",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("pay status: got %d, want 200", resp.StatusCode)
	}
	var paid entryResponse
	decodeBody(t, resp, &paid)
	if !paid.Paid {
		t.Error("entry must be paid")
	}
	if paid.ActualCents == nil || *paid.ActualCents != 4450 {
		t.Errorf("actual: got %v, want 4450", paid.ActualCents)
	}
	if paid.ReceiptRef != "pix-123" {
		t.Errorf("receipt ref: got %s", paid.ReceiptRef)
	}

	// Double payment conflicts.
	resp = postJSON(t, payURL, map[string]any{"payment_date": "2026-09-15"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("double pay status: got %d, want 409", resp.StatusCode)
	}

	resp = postJSON(t, fmt.Sprintf("%s/api/entries/%d/unpay", srv.URL, id), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unpay status: got %d, want 200", resp.StatusCode)
	}
	var unpaid entryResponse
	decodeBody(t, resp, &unpaid)
	if unpaid.Paid || unpaid.ActualCents != nil || unpaid.PaymentDate != nil {
		t.Errorf("undo must clear the payment, got %+v", unpaid)
	}
}

func TestListEntriesByPeriod(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, due := range []string{"2026-09-05", "2026-09-20", "2026-10-02"} {
		resp := postJSON(t, srv.URL+"/api/entries", map[string]any{
			"mesa_id":        1,
			"description":    "conta",
			"kind":           "variable",
			"amount":         "10.00",
			"first_due_date": due,
		})
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("create status: got %d", resp.StatusCode)
		}
		resp.Body.Close()
	}

	resp, err := http.Get(srv.URL + "/api/mesas/1/entries?from=2026-09-01&to=2026-09-30")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: got %d, want 200", resp.StatusCode)
	}
	var body struct {
		Entries []entryResponse `json:"entries"`
	}
	decodeBody(t, resp, &body)
	if len(body.Entries) != 2 {
		t.Fatalf("expected 2 entries in September, got %d", len(body.Entries))
	}
}

func TestGetEntryNotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/entries/999")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status: got %d, want 404", resp.StatusCode)
	}

	var envelope errorEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if envelope.Error.Code != "entry_not_found" {
		t.Errorf("error code: got %s", envelope.Error.Code)
	}
}

func TestCreateCardEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/cards", map[string]any{
		"mesa_id":     1,
		"name":        "nubank",
		"type":        "credito",
		"closing_day": 8,
		"due_day":     15,
		"limit":       "500.00",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status: got %d, want 201", resp.StatusCode)
	}
	resp.Body.Close()

	// Unknown card type is rejected.
	resp = postJSON(t, srv.URL+"/api/cards", map[string]any{
		"mesa_id": 1, "name": "bad", "type": "voucher",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status: got %d, want 422", resp.StatusCode)
	}
}

func TestDashboardEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/mesas", map[string]any{"name": "casa"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create mesa status: got %d, want 201", resp.StatusCode)
	}
	resp.Body.Close()

	r, err := http.Get(srv.URL + "/api/mesas/1/dashboard?year=2026&month=3")
	if err != nil {
		t.Fatalf("GET dashboard: %v", err)
	}
	defer r.Body.Close()
	if r.StatusCode != http.StatusOK {
		t.Fatalf("status: got %d, want 200", r.StatusCode)
	}

	var summary map[string]any
	if err := json.NewDecoder(r.Body).Decode(&summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}

	r, err = http.Get(srv.URL + "/api/mesas/1/dashboard?year=2026&month=13")
	if err != nil {
		t.Fatalf("GET dashboard: %v", err)
	}
	defer r.Body.Close()
	if r.StatusCode != http.StatusBadRequest {
		t.Fatalf("invalid month status: got %d, want 400", r.StatusCode)
	}
}
