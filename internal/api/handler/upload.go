package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/Luca89aa/video-analyzer/internal/auth"
	"github.com/Luca89aa/video-analyzer/internal/domain"
	"github.com/Luca89aa/video-analyzer/internal/service"
)

// maxUploadBytes bounds the multipart body accepted by the upload endpoint.
const maxUploadBytes = 256 << 20

// UploadHandler handles multipart video uploads into object storage.
type UploadHandler struct {
	resolver  *auth.Resolver
	uploadSvc *service.UploadService
	logger    *slog.Logger
}

// NewUploadHandler creates a new upload handler.
func NewUploadHandler(resolver *auth.Resolver, uploadSvc *service.UploadService, logger *slog.Logger) *UploadHandler {
	return &UploadHandler{
		resolver:  resolver,
		uploadSvc: uploadSvc,
		logger:    logger,
	}
}

// UploadResponse is the JSON response for uploads.
type UploadResponse struct {
	Success bool   `json:"success"`
	URL     string `json:"url,omitempty"`
	Error   string `json:"error,omitempty"`
	Details string `json:"details,omitempty"`
}

// Upload handles POST /api/upload.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, UploadResponse{Success: false, Error: "Richiesta multipart non valida", Details: err.Error()})
		return
	}

	userID, err := h.resolver.Resolve(r, r.FormValue("accessToken"))
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, UploadResponse{Success: false, Error: "Non autenticato"})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, UploadResponse{Success: false, Error: "File mancante"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, UploadResponse{Success: false, Error: "Lettura del file fallita", Details: err.Error()})
		return
	}

	url, err := h.uploadSvc.Store(r.Context(), userID, header.Filename, header.Header.Get("Content-Type"), data)
	if err != nil {
		if errors.Is(err, domain.ErrNotAVideo) {
			writeJSON(w, http.StatusBadRequest, UploadResponse{Success: false, Error: "Il file non è un video", Details: err.Error()})
			return
		}
		if errors.Is(err, domain.ErrMissingInput) {
			writeJSON(w, http.StatusBadRequest, UploadResponse{Success: false, Error: "File vuoto"})
			return
		}
		h.logger.Error("upload failed", "user_id", userID, "error", err)
		writeJSON(w, http.StatusInternalServerError, UploadResponse{Success: false, Error: "Upload fallito", Details: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, UploadResponse{Success: true, URL: url})
}
