package handler

import (
	"log/slog"
	"net/http"

	"github.com/Luca89aa/video-analyzer/pkg/supabase"
)

// creditPackages maps PayPal hosted button ids to purchased credits.
var creditPackages = map[string]int{
	"TGN8YDER4R258": 5,
	"CSJPDWHV5P22L": 10,
	"PX2MVFSBL7W5G": 25,
	"9A4HDSCXUF9U6": 50,
	"VQYV8839QN7HQ": 100,
}

// PayPalHandler receives IPN purchase notifications and credits the ledger.
type PayPalHandler struct {
	ledger supabase.Client
	logger *slog.Logger
}

// NewPayPalHandler creates a new PayPal IPN handler.
func NewPayPalHandler(ledger supabase.Client, logger *slog.Logger) *PayPalHandler {
	return &PayPalHandler{
		ledger: ledger,
		logger: logger,
	}
}

// IPN handles POST /api/paypal/ipn. PayPal posts form-urlencoded data; the
// custom field carries the buyer's user id. IPN retries on non-2xx, so
// unrecognized notifications are logged and acknowledged anyway.
func (h *PayPalHandler) IPN(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]bool{"success": false})
		return
	}

	txnID := r.PostFormValue("txn_id")
	payerEmail := r.PostFormValue("payer_email")
	amount := r.PostFormValue("mc_gross")
	currency := r.PostFormValue("mc_currency")
	userID := r.PostFormValue("custom")
	buttonID := r.PostFormValue("hosted_button_id")

	credits := creditPackages[buttonID]

	h.logger.Info("paypal ipn received",
		"txn_id", txnID,
		"payer", payerEmail,
		"amount", amount,
		"currency", currency,
		"button_id", buttonID,
		"credits", credits,
	)

	switch {
	case credits == 0:
		h.logger.Error("unrecognized paypal button", "button_id", buttonID, "txn_id", txnID)
	case userID == "":
		h.logger.Error("ipn without user id, credits not applied", "txn_id", txnID, "payer", payerEmail)
	default:
		if err := h.ledger.AddCredits(r.Context(), userID, credits); err != nil {
			h.logger.Error("purchase crediting failed",
				"user_id", userID,
				"txn_id", txnID,
				"credits", credits,
				"error", err,
			)
			// Acknowledged anyway; the transaction id is logged for manual replay.
		}
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
