package mail

import (
	"fmt"
	"log/slog"
	"net/http"

	"forecast-mailer/internal/config"
)

// NewSender builds the provider selected by cfg.Provider.
func NewSender(cfg config.EmailConfig, httpClient *http.Client, logger *slog.Logger) (Sender, error) {
	switch cfg.Provider {
	case config.ProviderResend, "":
		return NewResendClient(httpClient, ResendConfig{
			APIKey:  cfg.ResendAPIKey.Reveal(),
			BaseURL: cfg.ResendBaseURL,
			Logger:  logger,
		}), nil
	case config.ProviderGraph:
		return NewGraphClient(httpClient, GraphConfig{
			TenantID:     cfg.TenantID,
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret.Reveal(),
			SenderEmail:  cfg.SenderEmail,
			Logger:       logger,
		}), nil
	case config.ProviderSMTP:
		return NewSMTPClient(SMTPConfig{
			Addr:     cfg.SMTPAddr,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword.Reveal(),
			Logger:   logger,
		}), nil
	default:
		return nil, fmt.Errorf("unknown email provider %q", cfg.Provider)
	}
}
