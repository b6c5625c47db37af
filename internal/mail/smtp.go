package mail

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"

	"github.com/google/uuid"
	"github.com/jordan-wright/email"

	"forecast-mailer/internal/models"
)

type SMTPConfig struct {
	Addr     string // host:port
	Username string
	Password string
	Logger   *slog.Logger
}

// SMTPClient sends mail over SMTP with PLAIN auth.
type SMTPClient struct {
	addr   string
	auth   smtp.Auth
	send   func(e *email.Email, addr string, auth smtp.Auth) error
	logger *slog.Logger
}

func NewSMTPClient(cfg SMTPConfig) *SMTPClient {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	var auth smtp.Auth
	if cfg.Username != "" {
		host, _, err := net.SplitHostPort(cfg.Addr)
		if err != nil {
			host = cfg.Addr
		}
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, host)
	}
	return &SMTPClient{
		addr:   cfg.Addr,
		auth:   auth,
		send:   func(e *email.Email, addr string, auth smtp.Auth) error { return e.Send(addr, auth) },
		logger: logger,
	}
}

func buildSMTPEmail(msg Message, id string) (*email.Email, error) {
	e := email.NewEmail()
	e.From = msg.From
	e.To = msg.To
	e.Subject = msg.Subject
	e.HTML = []byte(msg.HTML)
	if msg.ReplyTo != "" {
		e.ReplyTo = []string{msg.ReplyTo}
	}
	e.Headers.Set("X-Entity-Ref-ID", id)
	for _, t := range msg.Tags {
		e.Headers.Add("X-Tag", t.Name+"="+t.Value)
	}
	for _, a := range msg.Attachments {
		if _, err := e.Attach(bytes.NewReader(a.Content), a.Filename, a.ContentType); err != nil {
			return nil, fmt.Errorf("failed to attach %s: %w", a.Filename, err)
		}
	}
	return e, nil
}

// Send delivers msg to the SMTP relay. The returned ID is generated locally and
// carried in the X-Entity-Ref-ID header.
func (c *SMTPClient) Send(ctx context.Context, msg Message) models.DeliveryResult {
	id := uuid.NewString()
	e, err := buildSMTPEmail(msg, id)
	if err != nil {
		return applicationError(err)
	}
	if err := ctx.Err(); err != nil {
		return applicationError(err)
	}
	if err := c.send(e, c.addr, c.auth); err != nil {
		c.logger.WarnContext(ctx, "smtp delivery failed", "addr", c.addr, "error", err)
		return models.Failed("smtp_error", err.Error())
	}
	return models.Sent(id)
}
