package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dre/internal/amqp"
	"dre/internal/cli"
	"dre/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()

	logger.Info("Starting dre-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	// The audit worker always writes to SQLite, regardless of the server's
	// configured backend: the audit trail has to survive restarts.
	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	auditWorker := worker.NewAuditWorker(repo)

	// Catch up on anything missed while the worker was down.
	logger.Info("Performing startup reconciliation...")
	if err := auditWorker.Reconcile(ctx); err != nil {
		logger.Error("Startup reconciliation failed", "error", err)
		// Don't exit - the event stream still works.
	}

	go func() {
		err := amqpClient.ConsumeEvents(ctx,
			func(ev *amqp.OverrideEvent) error {
				return auditWorker.HandleOverrideEvent(ctx, ev)
			},
			func(ev *amqp.DataClearedEvent) error {
				return auditWorker.HandleDataCleared(ctx, ev)
			})
		if err != nil && err != context.Canceled {
			logger.Error("Event consumption failed", "error", err)
		}
		cancel()
	}()

	go auditWorker.RunReconcileLoop(ctx, cfg.ReconcileInterval)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	logger.Info("Shutting down worker...")
	cancel()

	select {
	case <-shutdownCtx.Done():
		logger.Warn("Shutdown timeout reached")
	case <-time.After(5 * time.Second):
		logger.Info("Worker shutdown complete")
	}
}
