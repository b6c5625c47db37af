// Package worker executes forecast mail runs requested over NATS JetStream.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"forecast-mailer/internal/job"
	"forecast-mailer/internal/models"
	natsclient "forecast-mailer/internal/nats"
)

const ConsumerName = "FORECAST_MAILER"

// Runner executes one forecast mail run.
type Runner interface {
	Run(ctx context.Context) (string, error)
}

type fetcher interface {
	Fetch(batch int, opts ...nats.PullOpt) ([]*nats.Msg, error)
}

type publisher interface {
	Publish(subj string, data []byte, opts ...nats.PubOpt) (*nats.PubAck, error)
}

// Worker pulls run requests one at a time and publishes a RunSummary for each.
type Worker struct {
	js        nats.JetStreamContext
	sub       fetcher
	pub       publisher
	runner    Runner
	logger    *slog.Logger
	now       func() time.Time
	ackSync   func(msg *nats.Msg) error
	fetchWait time.Duration
	completed atomic.Uint64
	failed    atomic.Uint64
	discarded atomic.Uint64
}

// New subscribes to run requests on js. opts are passed to the pull
// subscription, e.g. nats.AckWait.
func New(js nats.JetStreamContext, runner Runner, logger *slog.Logger, opts ...nats.SubOpt) (*Worker, error) {
	sub, err := js.PullSubscribe(natsclient.RunRequested, ConsumerName, opts...)
	if err != nil {
		return nil, err
	}
	w := newWorker(sub, js, runner, logger)
	w.js = js
	return w, nil
}

func newWorker(sub fetcher, pub publisher, runner Runner, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		sub:       sub,
		pub:       pub,
		runner:    runner,
		logger:    logger,
		now:       time.Now,
		ackSync:   func(msg *nats.Msg) error { return msg.AckSync() },
		fetchWait: 10 * time.Second,
	}
}

// Run polls for run requests until ctx is cancelled. Requests are processed
// one at a time.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("worker started, waiting for forecast run requests")
	go w.logSummary(ctx)

	for ctx.Err() == nil {
		msgs, err := w.sub.Fetch(1, nats.MaxWait(w.fetchWait))
		if err != nil {
			if errors.Is(err, nats.ErrTimeout) {
				continue
			}
			w.logger.Error("error fetching message", "error", err)
			select {
			case <-ctx.Done():
			case <-time.After(2 * time.Second):
			}
			continue
		}
		for _, msg := range msgs {
			w.processMessage(ctx, msg)
		}
	}
	w.logger.Info("worker stopped")
}

func (w *Worker) logSummary(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		attrs := []any{
			"completed", w.completed.Load(),
			"failed", w.failed.Load(),
			"discarded", w.discarded.Load(),
		}
		if w.js != nil {
			if info, err := w.js.ConsumerInfo(natsclient.StreamName, ConsumerName); err == nil {
				attrs = append(attrs, "pending", info.NumPending)
			}
		}
		w.logger.Info("worker summary", attrs...)
	}
}

// processMessage runs the job for one request and publishes its summary.
// The request is acked before the run starts so a run longer than AckWait is
// never redelivered. A request that cannot be acked is not run.
func (w *Worker) processMessage(ctx context.Context, msg *nats.Msg) {
	var req models.RunRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		w.discarded.Add(1)
		w.logger.Error("could not unmarshal run request, discarding", "error", err)
		if err := w.ackSync(msg); err != nil {
			w.logger.Warn("failed to ack message", "error", err)
		}
		return
	}
	if req.RunID == "" {
		req.RunID = uuid.NewString()
	}
	logger := w.logger.With("run_id", req.RunID, "requested_by", req.RequestedBy)

	if err := w.ackSync(msg); err != nil {
		w.failed.Add(1)
		logger.Error("could not ack run request, skipping run", "error", err)
		return
	}
	logger.Info("processing forecast run request")

	report, err := w.runner.Run(ctx)
	result := models.RunSummary{RunID: req.RunID, Summary: report, FinishedAt: w.now().UTC()}
	if err != nil {
		w.failed.Add(1)
		result.Error = err.Error()
		var jobErr *job.Error
		if errors.As(err, &jobErr) {
			result.Error = jobErr.Message
			result.ErrorKind = string(jobErr.Kind)
		}
		logger.Error("forecast run failed", "error", err)
	} else {
		w.completed.Add(1)
		logger.Info("forecast run complete")
	}

	data, _ := json.Marshal(result)
	if _, err := w.pub.Publish(natsclient.RunSummarySubj, data); err != nil {
		logger.Error("failed to publish run summary", "error", err)
	}
}
