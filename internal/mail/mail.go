// Package mail delivers forecast emails through a pluggable provider.
//
// Providers never return Go errors from Send: every failure, including
// transport failures, is reported in the DeliveryResult so that a run can
// record it and move on to the next recipient.
package mail

import (
	"context"

	"forecast-mailer/internal/models"
)

// CSVContentType is the MIME type of forecast attachments.
const CSVContentType = `text/csv; charset="UTF-8"`

// ErrNameApplication names failures that happened on our side of the wire.
const ErrNameApplication = "application_error"

// Attachment is a file sent along with a Message.
type Attachment struct {
	Filename    string
	Content     []byte
	ContentType string
}

// Tag is a provider side label used to group sends.
type Tag struct {
	Name  string
	Value string
}

// Message is one outgoing email.
type Message struct {
	From        string
	ReplyTo     string
	To          []string
	Subject     string
	HTML        string
	Attachments []Attachment
	Tags        []Tag
}

// Sender sends a Message.
type Sender interface {
	Send(ctx context.Context, msg Message) models.DeliveryResult
}

func applicationError(err error) models.DeliveryResult {
	return models.Failed(ErrNameApplication, err.Error())
}
