// Package main is the entrypoint for the scheduled forecast mail Lambda.
//
// An EventBridge rule invokes the function once a day. Each invocation runs
// the full job and returns the delivery summary as its result.
//
// The handler never returns an error, so Lambda's asynchronous retries cannot
// send the same forecasts twice. A failed run is logged and its error text is
// returned as the result. Keep MaximumRetryAttempts=0 on the function's event
// invoke config anyway, since a timeout or crash is still retried.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"forecast-mailer/internal/app"
	"forecast-mailer/internal/config"
	"forecast-mailer/internal/job"
	"forecast-mailer/internal/logging"
	"forecast-mailer/internal/tracing"
)

type runner interface {
	Run(ctx context.Context) (string, error)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New("info").Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.LogLevel)
	logger.Info("forecast mailer Lambda initializing (cold start)")

	stop := tracing.Start(cfg.Tracing, "lambda")
	defer stop()

	r, err := app.NewRunner(cfg, logger)
	if err != nil {
		logger.Error("failed to create runner", "error", err)
		os.Exit(1)
	}

	lambda.Start(newHandler(r, logger))
}

func newHandler(r runner, logger *slog.Logger) func(ctx context.Context, event events.CloudWatchEvent) (string, error) {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, event events.CloudWatchEvent) (string, error) {
		logger.InfoContext(ctx, "scheduled forecast run invoked",
			"event_id", event.ID,
			"source", event.Source,
			"time", event.Time,
		)

		report, err := r.Run(ctx)
		if err != nil {
			logger.ErrorContext(ctx, "forecast run failed", "error", err)
			return failureText(err), nil
		}

		logger.InfoContext(ctx, "forecast run complete", "summary", report)
		return report, nil
	}
}

func failureText(err error) string {
	var jobErr *job.Error
	if errors.As(err, &jobErr) {
		return jobErr.Message
	}
	return fmt.Sprintf("forecast run failed: %v", err)
}
