package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"mesa/internal/amqp"
	"mesa/internal/backend"
	"mesa/internal/config"
	applog "mesa/internal/log"
	"mesa/internal/services"
	"mesa/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.Config{
		Level:     slog.LevelInfo,
		Component: "worker",
	})
	applog.SetDefault(logger)

	logger.Info("Starting mesa-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}

	factory := backend.NewFactory(logger.Logger)
	result, err := factory.CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	if result.Cleanup != nil {
		defer func() {
			if err := result.Cleanup(); err != nil {
				logger.Error("Backend cleanup failed", "error", err)
			}
		}()
	}

	// AMQP is optional: without it the sweep still runs, alerts are skipped.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without alerts", "error", err)
			amqpClient = nil
		} else {
			defer amqpClient.Close()
			logger.Info("Initialized AMQP client",
				"exchange", cfg.AMQPExchange,
				"queue", cfg.AMQPQueue)
		}
	}

	var notifier services.Notifier
	if amqpClient != nil {
		notifier = amqpClient
	}

	processor := services.NewSweepProcessor(result.Store, cfg.RecurringHorizonMonths, notifier)
	sweep := worker.NewSweepWorker(processor, cfg.SweepInterval)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return sweep.Run(ctx)
	})

	if amqpClient != nil {
		g.Go(func() error {
			return amqpClient.ConsumeNotifications(ctx, func(n *amqp.Notification) error {
				switch n.Type {
				case amqp.TypeInvoiceClosed:
					logger.Info("Invoice closed",
						"invoice_id", n.InvoiceClosed.InvoiceID,
						"card_id", n.InvoiceClosed.CardID,
						"total_cents", n.InvoiceClosed.TotalCents)
				case amqp.TypeEntryOverdue:
					logger.Info("Entry overdue",
						"entry_id", n.EntryOverdue.EntryID,
						"due_date", n.EntryOverdue.DueDate,
						"amount_cents", n.EntryOverdue.AmountCents)
				default:
					logger.Warn("Unknown notification type", "type", n.Type)
				}
				return nil
			})
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}
