package main

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forecast-mailer/internal/job"
)

type stubRunner struct {
	report string
	err    error
}

func (s stubRunner) Run(ctx context.Context) (string, error) {
	return s.report, s.err
}

func scheduledEvent() events.CloudWatchEvent {
	return events.CloudWatchEvent{
		ID:         "evt-1",
		DetailType: "Scheduled Event",
		Source:     "aws.events",
		Time:       time.Date(2024, 6, 1, 2, 0, 0, 0, time.UTC),
	}
}

func TestHandler_Success(t *testing.T) {
	h := newHandler(stubRunner{report: "Wind emails sent to a@x.io"}, nil)

	got, err := h(context.Background(), scheduledEvent())
	require.NoError(t, err)
	assert.Equal(t, "Wind emails sent to a@x.io", got)
}

func TestHandler_FailureReturnsTextWithoutError(t *testing.T) {
	runErr := &job.Error{Kind: job.KindUpstreamToken, Message: "OCF token error: denied"}
	h := newHandler(stubRunner{err: runErr}, nil)

	got, err := h(context.Background(), scheduledEvent())
	require.NoError(t, err)
	assert.Equal(t, "OCF token error: denied", got)
}

func TestHandler_InterruptedRunIsNotRetried(t *testing.T) {
	runErr := fmt.Errorf("run interrupted after 1 of 3 recipients: %w", context.DeadlineExceeded)
	h := newHandler(stubRunner{err: runErr}, nil)

	got, err := h(context.Background(), scheduledEvent())
	require.NoError(t, err)
	assert.Contains(t, got, "run interrupted after 1 of 3 recipients")
}
