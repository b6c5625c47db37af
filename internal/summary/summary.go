// Package summary renders the delivery report returned by a forecast mail run.
//
// Both helpers are folds: the caller owns the running message and threads it
// through one call per recipient, in ascending index order, with a constant
// length.
package summary

import (
	"log/slog"

	"forecast-mailer/internal/models"
)

// Separator terminates every recorded delivery error and joins the per-source
// sections of a run report.
const Separator = " \n---\n "

// BuildFromList appends item to message so that successive calls over a list
// produce "a, b and c". An empty list leaves message untouched.
func BuildFromList(item string, index, length int, message string) string {
	switch {
	case length <= 0:
		return message
	case length == 1, index == 0:
		return message + item
	case index == length-1:
		return message + " and " + item
	default:
		return message + ", " + item
	}
}

// Aggregator records provider responses into a running summary.
type Aggregator struct {
	logger *slog.Logger
}

// NewAggregator returns an Aggregator that logs each response to logger.
func NewAggregator(logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{logger: logger}
}

// CheckSentAndBuild appends the outcome of one send to message. A failed send
// records the provider error followed by Separator; a successful one adds the
// recipient to the sentence.
func (a *Aggregator) CheckSentAndBuild(message, label string, result models.DeliveryResult, recipient string, recipientCount, index int) string {
	if result.IsError() {
		a.logger.Warn("email not sent",
			"source", label,
			"recipient", recipient,
			"error", result.Error.Message,
		)
		return message + result.Error.Message + Separator
	}

	var id string
	if result.Data != nil {
		id = result.Data.ID
	}
	a.logger.Info("email provider response",
		"source", label,
		"recipient", recipient,
		"id", id,
	)
	return BuildFromList(recipient, index, recipientCount, message)
}
