package handler

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"time"

	"github.com/Luca89aa/video-analyzer/internal/repository"
)

// HealthHandler serves liveness and operator endpoints.
type HealthHandler struct {
	journal  *repository.Journal
	adminKey string
	logger   *slog.Logger
}

// NewHealthHandler creates a new health handler. journal may be nil; an empty
// adminKey disables the operator endpoints.
func NewHealthHandler(journal *repository.Journal, adminKey string, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		journal:  journal,
		adminKey: adminKey,
		logger:   logger,
	}
}

// Live handles GET /health.
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// OpenReservations handles GET /api/admin/reservations: journaled debits
// that never settled, for manual reconciliation. Guarded by a dedicated admin
// key so the ledger's service credential never doubles as a dashboard
// password; without a configured key the endpoint does not exist.
func (h *HealthHandler) OpenReservations(w http.ResponseWriter, r *http.Request) {
	if h.adminKey == "" {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}

	key := r.Header.Get("X-Admin-Key")
	if key == "" || subtle.ConstantTimeCompare([]byte(key), []byte(h.adminKey)) != 1 {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid admin key"})
		return
	}

	if h.journal == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"reservations": []struct{}{}})
		return
	}

	open, err := h.journal.ListOpen(r.Context())
	if err != nil {
		h.logger.Error("open reservations query failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "journal query failed"})
		return
	}

	type entry struct {
		ID        string `json:"id"`
		UserID    string `json:"user_id"`
		VideoURL  string `json:"video_url"`
		CreatedAt string `json:"created_at"`
	}
	out := make([]entry, 0, len(open))
	for _, res := range open {
		out = append(out, entry{
			ID:        res.ID,
			UserID:    res.UserID,
			VideoURL:  res.VideoURL,
			CreatedAt: res.CreatedAt.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"reservations": out})
}
