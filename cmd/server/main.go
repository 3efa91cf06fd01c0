package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Luca89aa/video-analyzer/internal/api"
	"github.com/Luca89aa/video-analyzer/internal/api/handler"
	"github.com/Luca89aa/video-analyzer/internal/auth"
	"github.com/Luca89aa/video-analyzer/internal/config"
	"github.com/Luca89aa/video-analyzer/internal/fetcher"
	"github.com/Luca89aa/video-analyzer/internal/repository"
	"github.com/Luca89aa/video-analyzer/internal/service"
	"github.com/Luca89aa/video-analyzer/internal/storage"
	"github.com/Luca89aa/video-analyzer/pkg/gemini"
	"github.com/Luca89aa/video-analyzer/pkg/supabase"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	configPath := flag.String("config", "", "Path to config file")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("video-analyzer %s (built %s)\n", Version, BuildTime)
		os.Exit(0)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("starting video-analyzer",
		"version", Version,
		"build_time", BuildTime,
	)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Clients are constructed here and injected; no package-level singletons.
	supaClient := supabase.NewClient(cfg.Supabase)
	geminiClient := gemini.NewClient(cfg.Gemini)
	mediaFetcher := fetcher.NewHTTPFetcher(cfg.Fetch)

	objectStore, err := storage.NewR2Store(context.Background(), cfg.Storage)
	if err != nil {
		logger.Error("failed to init object storage", "error", err)
		os.Exit(1)
	}

	var journal *repository.Journal
	if cfg.Journal.Path != "" {
		journal, err = repository.NewJournal(cfg.Journal.Path)
		if err != nil {
			// The journal is a reconciliation aid, not a dependency.
			logger.Warn("reservation journal disabled", "error", err)
			journal = nil
		} else {
			defer journal.Close()
		}
	}

	resolver := auth.NewResolver(supaClient, cfg.Supabase.CookieName)

	var journalDep service.ReservationJournal
	if journal != nil {
		journalDep = journal
	}
	analysisSvc := service.NewAnalysisService(
		supaClient,
		mediaFetcher,
		geminiClient,
		journalDep,
		service.AnalysisConfig{
			InlineMax: cfg.Fetch.InlineMax,
			Models:    []string{cfg.Gemini.Model, cfg.Gemini.FallbackModel},
		},
		logger,
	)
	uploadSvc := service.NewUploadService(objectStore, logger)

	analyzeHandler := handler.NewAnalyzeHandler(resolver, analysisSvc, logger)
	uploadHandler := handler.NewUploadHandler(resolver, uploadSvc, logger)
	creditsHandler := handler.NewCreditsHandler(resolver, supaClient, logger)
	sessionHandler := handler.NewSessionHandler(resolver, supaClient, logger)
	paypalHandler := handler.NewPayPalHandler(supaClient, logger)
	healthHandler := handler.NewHealthHandler(journal, cfg.Server.AdminKey, logger)

	router := api.NewRouter(
		analyzeHandler,
		uploadHandler,
		creditsHandler,
		sessionHandler,
		paypalHandler,
		healthHandler,
		cfg.Server.RequestTimeout,
	)

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("starting HTTP server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}
