package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Luca89aa/video-analyzer/internal/domain"
	"github.com/Luca89aa/video-analyzer/internal/fetcher"
	"github.com/Luca89aa/video-analyzer/pkg/gemini"
)

// analysisPrompt is the fixed instruction sent with every video. The product
// targets Italian TikTok creators; output language and structure are part of
// the prompt contract.
const analysisPrompt = `Sei un esperto analyst specializzato in video virali TikTok.

GUARDA il video e restituisci TUTTO questo in un unico output:

1. ANALISI COMPLETA DEL VIDEO
- Descrizione dettagliata della scena
- Azioni principali
- Elementi visivi rilevanti
- Contesto
- Interpretazione narrativa/emotiva

2. HOOK ANALYSIS
- Cos'è che cattura l'attenzione?
- Efficacia da 1 a 10
- Come migliorarlo

3. BODY ANALYSIS
- Struttura narrativa
- Momentum
- Retention
- Punti di forza e debolezza

4. CTA ANALYSIS
- Quale CTA è ideale per questo video?
- 3 CTA brevi e pronte all'uso

5. PUNTI DA MIGLIORARE
- Montaggio, ritmo, luce, storytelling, composizione

6. CAPTION PER TIKTOK
Breve, virale, max 3 righe.

7. HASHTAG
20 hashtag:
- 10 generici per viralità
- 10 specifici per il contenuto del video

Rispondi SEMPRE in italiano con stile pulito e professionale.`

// Ledger is the subset of the credit ledger the controller needs.
type Ledger interface {
	Reserve(ctx context.Context, userID string) error
	Refund(ctx context.Context, userID string) error
}

// ReservationJournal records reservations for manual reconciliation.
type ReservationJournal interface {
	Record(ctx context.Context, userID, videoURL string) (string, error)
	MarkCompleted(ctx context.Context, id string) error
	MarkRefunded(ctx context.Context, id string) error
}

// AnalysisConfig holds the controller's tunables.
type AnalysisConfig struct {
	// InlineMax is the largest payload sent inline; anything above it goes
	// through the resumable upload/poll path.
	InlineMax int64
	// Models is the ordered candidate list: each is tried in sequence until
	// one produces text.
	Models []string
}

// AnalysisService orchestrates the credit-gated analysis pipeline:
// reserve a credit, fetch the media, run inference, refund on any failure
// after the reservation.
type AnalysisService struct {
	ledger  Ledger
	fetcher fetcher.Fetcher
	ai      gemini.Client
	journal ReservationJournal
	cfg     AnalysisConfig
	logger  *slog.Logger
}

// NewAnalysisService creates a new analysis service. journal may be nil.
func NewAnalysisService(
	ledger Ledger,
	f fetcher.Fetcher,
	ai gemini.Client,
	journal ReservationJournal,
	cfg AnalysisConfig,
	logger *slog.Logger,
) *AnalysisService {
	return &AnalysisService{
		ledger:  ledger,
		fetcher: f,
		ai:      ai,
		journal: journal,
		cfg:     cfg,
		logger:  logger,
	}
}

// Analyze runs the full pipeline for one request. The credit is debited
// before any work; every failure after the debit triggers exactly one
// best-effort refund. ErrInsufficientCredits returns before anything is
// reserved, so no refund is attempted for it.
func (s *AnalysisService) Analyze(ctx context.Context, userID, videoURL string) (string, error) {
	if videoURL == "" {
		return "", domain.ErrMissingInput
	}

	if err := s.ledger.Reserve(ctx, userID); err != nil {
		return "", err
	}

	journalID := s.recordReservation(ctx, userID, videoURL)

	text, err := s.analyzeReserved(ctx, videoURL)
	if err != nil {
		s.refund(ctx, userID, journalID, err)
		return "", err
	}

	if journalID != "" && s.journal != nil {
		if err := s.journal.MarkCompleted(ctx, journalID); err != nil {
			s.logger.Warn("journal completion failed", "reservation_id", journalID, "error", err)
		}
	}
	return text, nil
}

// analyzeReserved is the billable part of the flow: fetch, dispatch by size,
// generate with model fallback.
func (s *AnalysisService) analyzeReserved(ctx context.Context, videoURL string) (string, error) {
	media, err := s.fetcher.Fetch(ctx, videoURL)
	if err != nil {
		return "", err
	}

	var file *gemini.FileHandle
	inline := media.Size() <= s.cfg.InlineMax
	if !inline {
		file, err = s.ai.Upload(ctx, media.Bytes, media.MimeType)
		if err != nil {
			return "", err
		}
	}

	var attempts []error
	for _, model := range s.cfg.Models {
		var text string
		if inline {
			text, err = s.ai.GenerateInline(ctx, model, media.Bytes, media.MimeType, analysisPrompt)
		} else {
			text, err = s.ai.GenerateWithFile(ctx, model, file, analysisPrompt)
		}
		if err == nil {
			return text, nil
		}
		s.logger.Warn("model attempt failed", "model", model, "error", err)
		attempts = append(attempts, fmt.Errorf("%s: %w", model, err))
	}
	if len(attempts) == 0 {
		return "", fmt.Errorf("%w: no candidate models configured", domain.ErrInferenceFailed)
	}
	return "", errors.Join(attempts...)
}

// refund is the single compensating action for a committed reservation. It
// runs at most once; its own failure is logged and swallowed so it never
// masks the error that triggered it.
func (s *AnalysisService) refund(ctx context.Context, userID, journalID string, cause error) {
	if err := s.ledger.Refund(ctx, userID); err != nil {
		s.logger.Error("refund failed, reservation stays debited",
			"user_id", userID,
			"reservation_id", journalID,
			"cause", cause,
			"error", err,
		)
		return
	}
	s.logger.Info("credit refunded", "user_id", userID, "cause", cause)
	if journalID != "" && s.journal != nil {
		if err := s.journal.MarkRefunded(ctx, journalID); err != nil {
			s.logger.Warn("journal refund mark failed", "reservation_id", journalID, "error", err)
		}
	}
}

// recordReservation journals the debit best-effort; a journal failure never
// affects the request.
func (s *AnalysisService) recordReservation(ctx context.Context, userID, videoURL string) string {
	if s.journal == nil {
		return ""
	}
	id, err := s.journal.Record(ctx, userID, videoURL)
	if err != nil {
		s.logger.Warn("journal record failed", "user_id", userID, "error", err)
		return ""
	}
	return id
}
