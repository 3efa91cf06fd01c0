package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/Luca89aa/video-analyzer/internal/auth"
	"github.com/Luca89aa/video-analyzer/pkg/supabase"
)

// SessionHandler exposes the session token and the user-init hook.
type SessionHandler struct {
	resolver *auth.Resolver
	ledger   supabase.Client
	logger   *slog.Logger
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(resolver *auth.Resolver, ledger supabase.Client, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		resolver: resolver,
		ledger:   ledger,
		logger:   logger,
	}
}

// Get handles GET /api/session: echoes the access token carried by the
// session cookie so browser code can use it as a bearer credential.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	token := h.resolver.SessionToken(r)
	if token == "" {
		writeJSON(w, http.StatusOK, map[string]interface{}{"token": nil})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// InitUserRequest is the JSON body of the sign-up hook.
type InitUserRequest struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// InitUser handles POST /api/users/init: upserts the initial ledger row for
// a freshly registered user.
func (h *SessionHandler) InitUser(w http.ResponseWriter, r *http.Request) {
	var req InitUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" || req.Email == "" {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"error":   "user_id/email mancanti",
		})
		return
	}

	if err := h.ledger.EnsureUser(r.Context(), req.UserID, req.Email); err != nil {
		h.logger.Error("user init failed", "user_id", req.UserID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"error":   "Inizializzazione utente fallita",
			"details": err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
