package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"forecast-mailer/internal/app"
	"forecast-mailer/internal/config"
	"forecast-mailer/internal/logging"
	natsclient "forecast-mailer/internal/nats"
	"forecast-mailer/internal/tracing"
	"forecast-mailer/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New("info").Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.LogLevel)

	stop := tracing.Start(cfg.Tracing, "worker")
	defer stop()

	runner, err := app.NewRunner(cfg, logger)
	if err != nil {
		logger.Error("failed to create runner", "error", err)
		os.Exit(1)
	}

	nc, js, err := natsclient.Setup(cfg.NATSURL, logger)
	if err != nil {
		logger.Error("failed to set up NATS", "url", cfg.NATSURL, "error", err)
		os.Exit(1)
	}
	defer nc.Close()

	w, err := worker.New(js, runner, logger)
	if err != nil {
		logger.Error("failed to create worker", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	w.Run(ctx)
}
