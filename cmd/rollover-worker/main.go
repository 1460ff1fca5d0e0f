package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"pockets/internal/amqp"
	"pockets/internal/config"
	"pockets/internal/core"
	"pockets/internal/log"
	"pockets/internal/services"
	"pockets/internal/storage"
)

const retryDelay = 2 * time.Second

// The worker rolls the monthly payment tasks over. It reacts to month-tick
// messages from AMQP and, as a safety net, re-runs on a timer so a missed
// tick only delays the rollover instead of losing it. Both paths are
// idempotent.
func main() {
	_ = godotenv.Load()

	logger := log.Setup("rollover-worker")
	logger.Info("Starting rollover worker")

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

	processor := services.NewRolloverProcessor(repo)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPEventsQueue, cfg.AMQPRolloverQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, running on timer only", "error", err)
			amqpClient = nil
		} else {
			defer amqpClient.Close()
		}
	}

	run := func(now time.Time) {
		result, err := processor.PerformMonthlyRollover(ctx, now)
		if err != nil && core.IsRetryable(err) {
			// A busy or locked store clears quickly; one more attempt
			// usually suffices and the rollover is idempotent anyway.
			logger.Warn("Rollover hit a transient store error, retrying", "error", err)
			time.Sleep(retryDelay)
			result, err = processor.PerformMonthlyRollover(ctx, now)
		}
		if err != nil {
			logger.Error("Rollover failed", "error", err)
			return
		}
		logger.Info("Rollover run complete",
			"month", result.Month,
			"year", result.Year,
			"reset", result.Reset,
			"created", result.Created)
	}

	// Catch up on whatever the worker missed while it was down.
	logger.Info("Running initial rollover")
	run(time.Now())

	if amqpClient != nil {
		go func() {
			err := amqpClient.ConsumeMonthTicks(ctx, func(ctx context.Context, msg *amqp.MonthTickMessage) error {
				result, err := processor.PerformMonthlyRollover(ctx, time.Now())
				if err != nil {
					if core.IsRetryable(err) {
						return err
					}
					// Requeueing cannot fix this one; the timer run
					// will pick the month up again regardless.
					logger.Error("Rollover from month tick failed", "error", err)
					return nil
				}
				logger.Info("Rollover triggered by month tick",
					"tick_month", msg.Month,
					"tick_year", msg.Year,
					"reset", result.Reset,
					"created", result.Created)
				return nil
			})
			if err != nil && ctx.Err() == nil {
				logger.Error("Month tick consumer stopped", "error", err)
			}
		}()
	}

	ticker := time.NewTicker(cfg.RolloverInterval)
	defer ticker.Stop()

	logger.Info("Rollover worker configured",
		"interval", cfg.RolloverInterval,
		"amqp", amqpClient != nil,
		"sqlite_db", cfg.SQLiteDBPath)

	for {
		select {
		case <-ctx.Done():
			logger.Info("Shutdown signal received")
			return
		case now := <-ticker.C:
			run(now)
		}
	}
}
