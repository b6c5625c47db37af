// Package ocf talks to the Open Climate Fix forecast API and the Auth0 tenant
// that guards it.
package ocf

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
)

// Credentials are exchanged for an access token with the password grant.
type Credentials struct {
	Username string
	Password string
	ClientID string
	Audience string
}

// Config holds the settings for a Client.
type Config struct {
	APIURL      string
	Region      string
	AuthDomain  string
	Credentials Credentials
	Logger      *slog.Logger
}

// Forecast is one downloaded CSV file.
type Forecast struct {
	Source   string
	Filename string
	Content  []byte
}

// StatusError is returned when the API answers with a non-2xx status.
// Body holds the raw response text.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d: %s", e.Op, e.StatusCode, e.Body)
}

type tokenRequest struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	ClientID  string `json:"client_id"`
	Audience  string `json:"audience,omitempty"`
	GrantType string `json:"grant_type"`
}

// TokenResponse is the body of a successful token exchange.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	Scope       string `json:"scope"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

type Client struct {
	cfg    Config
	client *http.Client
	logger *slog.Logger
}

// NewClient creates a Client. A nil httpClient uses http.DefaultClient.
func NewClient(httpClient *http.Client, cfg Config) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg.APIURL = strings.TrimSuffix(cfg.APIURL, "/")
	cfg.AuthDomain = strings.TrimSuffix(cfg.AuthDomain, "/")
	return &Client{cfg: cfg, client: httpClient, logger: logger}
}

// Token performs the password-grant exchange and returns the access token.
func (c *Client) Token(ctx context.Context) (token string, err error) {
	span, ctx := tracer.StartSpanFromContext(ctx, "ocf.token")
	defer func() { span.Finish(tracer.WithError(err)) }()

	body, err := json.Marshal(tokenRequest{
		Username:  c.cfg.Credentials.Username,
		Password:  c.cfg.Credentials.Password,
		ClientID:  c.cfg.Credentials.ClientID,
		Audience:  c.cfg.Credentials.Audience,
		GrantType: "password",
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.AuthDomain+"/oauth/token", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text, _ := io.ReadAll(resp.Body)
		return "", &StatusError{Op: "token exchange", StatusCode: resp.StatusCode, Body: string(text)}
	}

	var tr TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	c.logger.InfoContext(ctx, "OCF token received",
		"token_type", tr.TokenType,
		"scope", tr.Scope,
		"expires_in", tr.ExpiresIn,
	)
	return tr.AccessToken, nil
}

// FetchCSV downloads the day-ahead forecast CSV for source.
func (c *Client) FetchCSV(ctx context.Context, token, source string) (fc Forecast, err error) {
	span, ctx := tracer.StartSpanFromContext(ctx, "ocf.forecast_csv", tracer.ResourceName(source))
	defer func() { span.Finish(tracer.WithError(err)) }()

	url := fmt.Sprintf("%s/%s/%s/forecast/csv", c.cfg.APIURL, source, c.cfg.Region)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Forecast{}, fmt.Errorf("failed to create forecast request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return Forecast{}, fmt.Errorf("failed to send forecast request: %w", err)
	}
	defer resp.Body.Close()

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return Forecast{}, fmt.Errorf("failed to read forecast response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Forecast{}, &StatusError{Op: source + " forecast fetch", StatusCode: resp.StatusCode, Body: string(content)}
	}

	fc = Forecast{
		Source:   source,
		Filename: FilenameFromDisposition(resp.Header.Get("Content-Disposition")),
		Content:  content,
	}
	c.logger.InfoContext(ctx, "OCF forecast received", "source", source, "filename", fc.Filename, "bytes", len(content))
	return fc, nil
}

// FilenameFromDisposition returns the text after "filename=" in a
// Content-Disposition header, without surrounding quotes.
func FilenameFromDisposition(header string) string {
	_, name, ok := strings.Cut(header, "filename=")
	if !ok {
		return ""
	}
	if i := strings.IndexByte(name, ';'); i >= 0 {
		name = name[:i]
	}
	return strings.Trim(strings.TrimSpace(name), `"`)
}
