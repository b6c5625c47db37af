package config

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("CRON_SECRET", "cron-secret")
	t.Setenv("OCF_API_URL", "https://api.quartz.solar/v0")
	t.Setenv("AUTH0_DOMAIN", "https://nowcasting.eu.auth0.com")
	t.Setenv("AUTH0_USERNAME", "ops@example.com")
	t.Setenv("AUTH0_PASSWORD", "hunter2")
	t.Setenv("AUTH0_CLIENT_ID", "client-123")
	t.Setenv("RESEND_API_KEY", "re_test")
}

func TestLoad_Defaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "ruvnl", cfg.Upstream.Region)
	assert.Equal(t, []string{"wind", "solar"}, cfg.Upstream.Sources)
	assert.Equal(t, 30*time.Second, cfg.Upstream.Timeout)
	assert.Equal(t, ProviderResend, cfg.Email.Provider)
	assert.Equal(t, BatchPerRecipient, cfg.Email.Batching)
	assert.Equal(t, 2*time.Second, cfg.Email.SendDelay)
	assert.Equal(t, "ruvnl_email", cfg.Email.Tag)
	assert.Equal(t, "hunter2", cfg.Upstream.Password.Reveal())
}

func TestLoad_Overrides(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("FORECAST_SOURCES", "solar")
	t.Setenv("EMAIL_BATCHING", "batch")
	t.Setenv("SEND_DELAY", "250ms")
	t.Setenv("EMAIL_RECIPIENTS", "a@x.io, b@x.io")

	cfg, err := load()
	require.NoError(t, err)

	assert.Equal(t, []string{"solar"}, cfg.Upstream.Sources)
	assert.Equal(t, BatchAll, cfg.Email.Batching)
	assert.Equal(t, 250*time.Millisecond, cfg.Email.SendDelay)
	assert.Equal(t, []string{"a@x.io", "b@x.io"}, cfg.Email.RecipientList())
}

func TestLoad_MissingRequired(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("AUTH0_USERNAME", "")

	_, err := load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Username")
}

func TestLoad_CronSecretOnlyRequiredByAPI(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("CRON_SECRET", "")

	cfg, err := load()
	require.NoError(t, err)

	err = cfg.ValidateAPI()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CRON_SECRET")

	cfg.CronSecret = "cron-secret"
	assert.NoError(t, cfg.ValidateAPI())
}

func TestLoad_BlankSourcesRejected(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("FORECAST_SOURCES", " , ")

	_, err := load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Sources")
}

func TestLoad_SourcesTrimmed(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("FORECAST_SOURCES", " wind , ,solar ")

	cfg, err := load()
	require.NoError(t, err)
	assert.Equal(t, []string{"wind", "solar"}, cfg.Upstream.Sources)
}

func TestLoad_InvalidProvider(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("EMAIL_PROVIDER", "pigeon")

	_, err := load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Provider")
}

func TestLoad_GraphRequiresTenant(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("EMAIL_PROVIDER", "graph")

	_, err := load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TenantID")

	t.Setenv("TENANT_ID", "tenant")
	t.Setenv("CLIENT_ID", "graph-client")
	t.Setenv("CLIENT_SECRET", "graph-secret")
	t.Setenv("SENDER_EMAIL", "forecasts@example.com")

	cfg, err := load()
	require.NoError(t, err)
	assert.Equal(t, "tenant", cfg.Email.TenantID)
}

func TestSplitRecipients(t *testing.T) {
	assert.Equal(t, []string{""}, SplitRecipients(""))
	assert.Equal(t, []string{"a@x.io"}, SplitRecipients("a@x.io"))
	assert.Equal(t, []string{"a@x.io", "b@x.io", "c@x.io"}, SplitRecipients("a@x.io,b@x.io , c@x.io"))
}

func TestSecret_Redacted(t *testing.T) {
	s := Secret("top-secret")
	assert.Equal(t, "[REDACTED]", s.String())
	assert.Equal(t, "[REDACTED]", fmt.Sprintf("%v", s))
	assert.Equal(t, "[REDACTED]", fmt.Sprintf("%#v", s))
	assert.Equal(t, "", Secret("").String())
}
