package api

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Luca89aa/video-analyzer/internal/api/handler"
	mw "github.com/Luca89aa/video-analyzer/internal/api/middleware"
)

// NewRouter creates the HTTP router with all routes configured.
// requestTimeout is the outer per-request ceiling; the upload/poll loop's own
// deadline must sit below it.
func NewRouter(
	analyzeHandler *handler.AnalyzeHandler,
	uploadHandler *handler.UploadHandler,
	creditsHandler *handler.CreditsHandler,
	sessionHandler *handler.SessionHandler,
	paypalHandler *handler.PayPalHandler,
	healthHandler *handler.HealthHandler,
	requestTimeout time.Duration,
) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.CleanPath)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.Logger)
	r.Use(mw.Recovery)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(mw.CORS)

	r.Get("/health", healthHandler.Live)

	r.Route("/api", func(r chi.Router) {
		r.Post("/analyze", analyzeHandler.Analyze)
		r.Post("/upload", uploadHandler.Upload)

		r.Get("/credits", creditsHandler.Get)
		r.Post("/credits/decrement", creditsHandler.Decrement)

		r.Get("/session", sessionHandler.Get)
		r.Post("/users/init", sessionHandler.InitUser)

		// PayPal posts IPN notifications here; must stay unauthenticated.
		r.Post("/paypal/ipn", paypalHandler.IPN)

		r.Get("/admin/reservations", healthHandler.OpenReservations)
	})

	return r
}
