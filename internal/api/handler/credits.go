package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Luca89aa/video-analyzer/internal/auth"
	"github.com/Luca89aa/video-analyzer/internal/domain"
	"github.com/Luca89aa/video-analyzer/pkg/supabase"
)

// CreditsHandler exposes the user's balance and an explicit debit endpoint.
type CreditsHandler struct {
	resolver *auth.Resolver
	ledger   supabase.Client
	logger   *slog.Logger
}

// NewCreditsHandler creates a new credits handler.
func NewCreditsHandler(resolver *auth.Resolver, ledger supabase.Client, logger *slog.Logger) *CreditsHandler {
	return &CreditsHandler{
		resolver: resolver,
		ledger:   ledger,
		logger:   logger,
	}
}

// Get handles GET /api/credits. The balance is read fresh from the ledger on
// every call; it is display data, never a debit gate.
func (h *CreditsHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, err := h.resolver.Resolve(r, "")
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Non autenticato"})
		return
	}

	credits, err := h.ledger.GetBalance(r.Context(), userID)
	if err != nil {
		h.logger.Error("balance read failed", "user_id", userID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Servizio crediti non disponibile"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"credits": credits})
}

// DecrementRequest is the JSON body for explicit debits.
type DecrementRequest struct {
	Amount int `json:"amount"`
}

// Decrement handles POST /api/credits/decrement.
func (h *CreditsHandler) Decrement(w http.ResponseWriter, r *http.Request) {
	userID, err := h.resolver.Resolve(r, "")
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Non autenticato"})
		return
	}

	var req DecrementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Amount <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Valore amount non valido"})
		return
	}

	if err := h.ledger.Debit(r.Context(), userID, req.Amount); err != nil {
		if errors.Is(err, domain.ErrInsufficientCredits) {
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "Crediti esauriti", "redirect": "/pricing"})
			return
		}
		h.logger.Error("debit failed", "user_id", userID, "amount", req.Amount, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Servizio crediti non disponibile"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
