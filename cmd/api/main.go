package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/dvloznov/bankx-client/internal/api/handlers"
	"github.com/dvloznov/bankx-client/internal/api/middleware"
	"github.com/dvloznov/bankx-client/internal/config"
	"github.com/dvloznov/bankx-client/internal/export"
	"github.com/dvloznov/bankx-client/internal/gateway"
	"github.com/dvloznov/bankx-client/internal/jobs/inmemory"
	"github.com/dvloznov/bankx-client/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New("info").Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Parse command-line flags
	var (
		port      = flag.String("port", cfg.Port, "HTTP server port (or set PORT env)")
		apiURL    = flag.String("api-url", cfg.APIURL, "Bank API base URL (or set BANKX_API_URL env)")
		exportDir = flag.String("export-dir", "exports", "Directory for CSV exports")
	)
	flag.Parse()

	// Initialize logger
	log := logger.New(cfg.LogLevel)

	ctx := context.Background()

	gw := gateway.New(gateway.Config{
		BaseURL: *apiURL,
		Timeout: cfg.Timeout,
		Logger:  log,
		Mask:    cfg.Production(),
	})

	sinks, err := export.Open(ctx, export.Options{
		Dir:             *exportDir,
		Bucket:          cfg.ExportBucket,
		Prefix:          cfg.ExportPrefix,
		BQProject:       cfg.BQProject,
		BQDataset:       cfg.BQDataset,
		BQTable:         cfg.BQTable,
		CredentialsFile: cfg.CredentialsFile,
		NewID:           uuid.NewString,
		EnsureTable:     true,
	}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to set up export sinks")
	}
	defer sinks.Close()

	if cfg.ExportBucket == "" {
		log.Warn().Msg("No export bucket configured - GCS exports will be disabled")
	}

	// Initialize job infrastructure
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, jobStore,
		inmemory.WithWorkers(cfg.ExportWorkers),
		inmemory.WithLogger(log),
	)

	// Start worker in background to process jobs
	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	log.Info().Int("workers", cfg.ExportWorkers).Msg("Starting export workers")
	if err := jobQueue.Start(workerCtx, newExportHandler(gw, sinks, log)); err != nil {
		log.Fatal().Err(err).Msg("Failed to start export workers")
	}

	// Initialize handlers
	backend := handlers.NewBackend(gw, log)
	routes := handlers.Routes{
		Session:      handlers.NewSessionHandler(backend, log),
		Views:        handlers.NewViewsHandler(backend, log),
		Accounts:     handlers.NewAccountsHandler(backend, log),
		Transactions: handlers.NewTransactionsHandler(backend, log),
		Exports:      handlers.NewExportsHandler(jobQueue, sinks.Available(), log),
		Jobs:         handlers.NewJobsHandler(jobStore, log),
		Health:       handlers.NewHealthHandler(backend, log),
	}

	// Create router
	mux := http.NewServeMux()
	routes.Register(mux, middleware.Auth(gw, log))

	// Apply middleware
	handler := middleware.Recovery(log)(
		middleware.RequestID(
			middleware.Logger(log)(
				middleware.CORS(cfg.AllowedOrigins)(mux),
			),
		),
	)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", *port).Str("api_url", gw.BaseURL()).Msg("Starting portal server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Stop job queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}
	cancelWorker()

	log.Info().Msg("Server exited")
}
