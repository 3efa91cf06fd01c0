package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Luca89aa/video-analyzer/internal/auth"
	"github.com/Luca89aa/video-analyzer/internal/domain"
	"github.com/Luca89aa/video-analyzer/internal/service"
)

// AnalyzeHandler handles credit-gated video analysis requests.
type AnalyzeHandler struct {
	resolver    *auth.Resolver
	analysisSvc *service.AnalysisService
	logger      *slog.Logger
}

// NewAnalyzeHandler creates a new analyze handler.
func NewAnalyzeHandler(resolver *auth.Resolver, analysisSvc *service.AnalysisService, logger *slog.Logger) *AnalyzeHandler {
	return &AnalyzeHandler{
		resolver:    resolver,
		analysisSvc: analysisSvc,
		logger:      logger,
	}
}

// AnalyzeRequest is the JSON request body for analysis. videoUrl and url are
// aliases; accessToken is the body-carried credential fallback.
type AnalyzeRequest struct {
	VideoURL    string `json:"videoUrl"`
	URL         string `json:"url"`
	AccessToken string `json:"accessToken,omitempty"`
}

// AnalyzeResponse is the JSON response for analysis.
type AnalyzeResponse struct {
	Success  bool   `json:"success"`
	Text     string `json:"text,omitempty"`
	Error    string `json:"error,omitempty"`
	Details  string `json:"details,omitempty"`
	Redirect string `json:"redirect,omitempty"`
}

// Analyze handles POST /api/analyze.
func (h *AnalyzeHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, AnalyzeResponse{Success: false, Error: "Richiesta non valida"})
		return
	}

	userID, err := h.resolver.Resolve(r, req.AccessToken)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, AnalyzeResponse{Success: false, Error: "Non autenticato"})
		return
	}

	videoURL := req.VideoURL
	if videoURL == "" {
		videoURL = req.URL
	}

	text, err := h.analysisSvc.Analyze(r.Context(), userID, videoURL)
	if err != nil {
		h.writeFailure(w, userID, err)
		return
	}

	writeJSON(w, http.StatusOK, AnalyzeResponse{Success: true, Text: text})
}

// writeFailure maps a pipeline error onto a stable category, an Italian
// user-facing message, and a detail string preserving the upstream
// diagnostic payload.
func (h *AnalyzeHandler) writeFailure(w http.ResponseWriter, userID string, err error) {
	var (
		status   int
		message  string
		redirect string
	)

	switch {
	case errors.Is(err, domain.ErrMissingInput):
		status, message = http.StatusBadRequest, "URL mancante"
	case errors.Is(err, domain.ErrInsufficientCredits):
		status, message = http.StatusForbidden, "Crediti esauriti"
		redirect = "/pricing"
	case errors.Is(err, domain.ErrNotAVideo):
		status, message = http.StatusBadRequest, "L'URL non restituisce un video"
	case errors.Is(err, domain.ErrPayloadTooLarge):
		status, message = http.StatusBadRequest, "Video troppo grande"
	case errors.Is(err, domain.ErrFetchFailed):
		status, message = http.StatusBadRequest, "Download del video fallito"
	case errors.Is(err, domain.ErrMediaNotReady):
		status, message = http.StatusInternalServerError, "File non ACTIVE dopo l'attesa massima"
	case errors.Is(err, domain.ErrUploadStartFailed), errors.Is(err, domain.ErrUploadFinalizeFailed):
		status, message = http.StatusInternalServerError, "Caricamento del video al provider fallito"
	case errors.Is(err, domain.ErrLedgerUnavailable):
		status, message = http.StatusInternalServerError, "Servizio crediti non disponibile"
	case errors.Is(err, domain.ErrInferenceFailed):
		status, message = http.StatusInternalServerError, "Analisi del video fallita"
	default:
		status, message = http.StatusInternalServerError, "Errore interno"
	}

	if status == http.StatusInternalServerError {
		h.logger.Error("analysis failed", "user_id", userID, "error", err)
	} else {
		h.logger.Info("analysis rejected", "user_id", userID, "status", status, "error", err)
	}

	writeJSON(w, status, AnalyzeResponse{
		Success:  false,
		Error:    message,
		Details:  err.Error(),
		Redirect: redirect,
	})
}
