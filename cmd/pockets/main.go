package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"pockets/internal/amqp"
	"pockets/internal/config"
	pockhttp "pockets/internal/http"
	"pockets/internal/identity"
	"pockets/internal/log"
	"pockets/internal/services"
	"pockets/internal/sheets"
	"pockets/internal/sheets/google"
	"pockets/internal/storage"
)

func main() {
	// Load .env for local development; production sets real env vars.
	_ = godotenv.Load()

	logger := log.Setup("pockets")
	logger.Info("Starting pockets API server")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPEventsQueue, cfg.AMQPRolloverQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without events", "error", err)
			amqpClient = nil
		} else {
			defer amqpClient.Close()
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var reportWriter sheets.ReportWriter
	if cfg.SheetsEnabled() {
		writer, err := google.NewFromEnv(ctx)
		if err != nil {
			logger.Warn("Failed to initialize Sheets report writer", "error", err)
		} else {
			reportWriter = writer
		}
	}

	ids := identity.NewStoreProvider(repo)
	var reports *services.ReportService
	if reportWriter != nil {
		reports = services.NewReportService(repo, ids, reportWriter)
	}

	server := pockhttp.NewServer(":"+cfg.Port, pockhttp.Deps{
		Verifier: identity.NewTokenVerifier(cfg.JWTSecret),
		Registry: services.NewRegistryService(repo, ids),
		Budgets:  services.NewAllocationService(repo, ids),
		Ledger:   services.NewLedgerService(repo, ids, amqpClient),
		Payments: services.NewPaymentsService(repo, ids),
		Reports:  reports,
	})

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("HTTP server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped")
}
