// Package config loads the forecast mailer configuration from the environment.
// The Config is built once at process start and treated as immutable.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Secret is a string that never prints its value.
type Secret string

func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return "[REDACTED]"
}

// GoString keeps %#v from leaking the value.
func (s Secret) GoString() string { return s.String() }

// Reveal returns the underlying value.
func (s Secret) Reveal() string { return string(s) }

// Batching strategies for recipient delivery.
const (
	BatchPerRecipient = "per-recipient"
	BatchAll          = "batch"
)

// Email providers.
const (
	ProviderResend = "resend"
	ProviderGraph  = "graph"
	ProviderSMTP   = "smtp"
)

type Config struct {
	Environment string `envconfig:"APP_ENV" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
	Port        string `envconfig:"PORT" default:"8080"`
	CronSecret  Secret `envconfig:"CRON_SECRET"`
	NATSURL     string `envconfig:"NATS_URL" default:"nats://127.0.0.1:4222"`

	Upstream UpstreamConfig
	Email    EmailConfig
	Tracing  TracingConfig
}

// UpstreamConfig holds the OCF forecast API and its Auth0 tenant.
type UpstreamConfig struct {
	APIURL     string        `envconfig:"OCF_API_URL" validate:"required,url"`
	Region     string        `envconfig:"OCF_REGION" default:"ruvnl"`
	Sources    []string      `envconfig:"FORECAST_SOURCES" default:"wind,solar" validate:"min=1,dive,required"`
	AuthDomain string        `envconfig:"AUTH0_DOMAIN" validate:"required,url"`
	Username   string        `envconfig:"AUTH0_USERNAME" validate:"required"`
	Password   Secret        `envconfig:"AUTH0_PASSWORD" validate:"required"`
	ClientID   string        `envconfig:"AUTH0_CLIENT_ID" validate:"required"`
	Audience   string        `envconfig:"AUTH0_AUDIENCE"`
	Timeout    time.Duration `envconfig:"UPSTREAM_TIMEOUT" default:"30s"`
}

// EmailConfig selects the delivery provider and describes the outgoing mail.
type EmailConfig struct {
	Provider   string        `envconfig:"EMAIL_PROVIDER" default:"resend" validate:"oneof=resend graph smtp"`
	From       string        `envconfig:"EMAIL_FROM" default:"Quartz Energy <notifications@mail.quartz.energy>"`
	ReplyTo    string        `envconfig:"EMAIL_REPLY_TO" default:"quartz.support@openclimatefix.org"`
	Tag        string        `envconfig:"EMAIL_TAG" default:"ruvnl_email"`
	Recipients string        `envconfig:"EMAIL_RECIPIENTS"`
	Batching   string        `envconfig:"EMAIL_BATCHING" default:"per-recipient" validate:"oneof=per-recipient batch"`
	SendDelay  time.Duration `envconfig:"SEND_DELAY" default:"2s"`

	ResendAPIKey  Secret `envconfig:"RESEND_API_KEY" validate:"required_if=Provider resend"`
	ResendBaseURL string `envconfig:"RESEND_BASE_URL" default:"https://api.resend.com"`

	TenantID     string `envconfig:"TENANT_ID" validate:"required_if=Provider graph"`
	ClientID     string `envconfig:"CLIENT_ID" validate:"required_if=Provider graph"`
	ClientSecret Secret `envconfig:"CLIENT_SECRET" validate:"required_if=Provider graph"`
	SenderEmail  string `envconfig:"SENDER_EMAIL" validate:"required_if=Provider graph"`

	SMTPAddr     string `envconfig:"SMTP_ADDR" validate:"required_if=Provider smtp"`
	SMTPUsername string `envconfig:"SMTP_USERNAME"`
	SMTPPassword Secret `envconfig:"SMTP_PASSWORD"`
}

// TracingConfig configures the Datadog tracer.
type TracingConfig struct {
	Service string `envconfig:"DD_SERVICE" default:"forecast-mailer"`
	Env     string `envconfig:"DD_ENV"`
}

// RecipientList splits the comma separated recipient string. An empty string
// yields a single empty recipient so a run still issues one send.
func (c EmailConfig) RecipientList() []string {
	return SplitRecipients(c.Recipients)
}

// SplitRecipients splits raw on commas and trims each entry.
func SplitRecipients(raw string) []string {
	parts := strings.Split(raw, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

// Load reads an optional .env file, populates Config from the environment and
// validates it.
func Load() (*Config, error) {
	// A missing .env is the normal case outside local development.
	_ = godotenv.Load()
	return load()
}

func load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to read configuration: %w", err)
	}
	cfg.Upstream.Sources = compact(cfg.Upstream.Sources)
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// ValidateAPI checks the settings only the HTTP trigger needs.
func (c *Config) ValidateAPI() error {
	if c.CronSecret == "" {
		return errors.New("invalid configuration: CRON_SECRET is required for the API")
	}
	return nil
}

// compact trims every entry and drops the empty ones.
func compact(list []string) []string {
	out := make([]string, 0, len(list))
	for _, v := range list {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
