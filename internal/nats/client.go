package nats

import (
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
)

const (
	StreamName     = "FORECASTS"
	StreamSubj     = "FORECASTS.*"
	RunRequested   = "FORECASTS.run"
	RunSummarySubj = "FORECASTS.summary"
)

// Setup connects to NATS and makes sure the FORECASTS stream exists.
func Setup(natsURL string, logger *slog.Logger) (*nats.Conn, nats.JetStreamContext, error) {
	if logger == nil {
		logger = slog.Default()
	}
	nc, err := nats.Connect(natsURL, nats.Name("forecast-mailer"))
	if err != nil {
		return nil, nil, fmt.Errorf("error connecting to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("error creating JetStream context: %w", err)
	}

	_, err = js.AddStream(&nats.StreamConfig{
		Name:     StreamName,
		Subjects: []string{StreamSubj},
	})
	if err != nil {
		logger.Warn("could not create stream (it likely already exists)", "stream", StreamName, "error", err)
	}

	return nc, js, nil
}
