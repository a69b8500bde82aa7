package http

import (
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// Dashboard serves the monthly summary for a mesa. Summaries are cached per
// (mesa, year, month) with a short TTL; a slightly stale dashboard is
// acceptable, a recomputation per page load is not.
func (h *Handlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	mesaID, err := idParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "invalid mesa id")
		return
	}

	now := time.Now()
	year, month := now.Year(), int(now.Month())
	if v := r.URL.Query().Get("year"); v != "" {
		if year, err = strconv.Atoi(v); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "invalid year")
			return
		}
	}
	if v := r.URL.Query().Get("month"); v != "" {
		if month, err = strconv.Atoi(v); err != nil || month < 1 || month > 12 {
			writeError(w, http.StatusBadRequest, "invalid_request", "invalid month")
			return
		}
	}

	key := fmt.Sprintf("%d:%d-%02d", mesaID, year, month)
	if summary, ok := h.summaryCache.Get(key); ok {
		writeJSON(w, http.StatusOK, summary)
		return
	}

	summary, err := h.dashboards.Summary(r.Context(), mesaID, year, month, now)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	h.summaryCache.Set(key, summary)
	writeJSON(w, http.StatusOK, summary)
}
