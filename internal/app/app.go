// Package app wires the forecast mail runner from configuration. Every binary
// shares it so that the HTTP, Lambda, queue and CLI triggers behave alike.
package app

import (
	"fmt"
	"log/slog"

	"forecast-mailer/internal/config"
	"forecast-mailer/internal/job"
	"forecast-mailer/internal/mail"
	"forecast-mailer/internal/ocf"
	"forecast-mailer/internal/tracing"
)

// NewRunner builds a job.Runner backed by the OCF API and the configured
// email provider.
func NewRunner(cfg *config.Config, logger *slog.Logger, opts ...job.Option) (*job.Runner, error) {
	httpClient := tracing.HTTPClient(cfg.Upstream.Timeout)

	upstream := ocf.NewClient(httpClient, ocf.Config{
		APIURL:     cfg.Upstream.APIURL,
		Region:     cfg.Upstream.Region,
		AuthDomain: cfg.Upstream.AuthDomain,
		Credentials: ocf.Credentials{
			Username: cfg.Upstream.Username,
			Password: cfg.Upstream.Password.Reveal(),
			ClientID: cfg.Upstream.ClientID,
			Audience: cfg.Upstream.Audience,
		},
		Logger: logger,
	})

	sender, err := mail.NewSender(cfg.Email, httpClient, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create email sender: %w", err)
	}

	return job.NewRunner(upstream, sender, job.SettingsFromConfig(cfg), logger, opts...), nil
}
