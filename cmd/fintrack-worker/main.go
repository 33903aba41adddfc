package main

import (
	"context"
	"os"
	"time"

	"fintrack/internal/cli"
	applog "fintrack/internal/log"
	"fintrack/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentWorker)
	logger.Info("Starting fintrack-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	mirror := cli.InitSavingsMirror(context.Background(), logger, cfg)

	w := worker.NewSnapshotWorker(repo, mirror, cfg.SweepInterval)

	ctx, done := cli.GracefulShutdown(logger, 10*time.Second, nil)

	if cfg.AMQPURL == "" {
		logger.Info("AMQP disabled - running sweep only", "sweep_interval", cfg.SweepInterval)
	}
	if err := w.Run(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue); err != nil {
		logger.Error("Worker failed", "error", err)
		os.Exit(1)
	}

	<-done
	logger.Info("Worker stopped gracefully")
}
