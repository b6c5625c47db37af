package mail

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"forecast-mailer/internal/models"
)

const resendAPIBase = "https://api.resend.com"

type ResendConfig struct {
	APIKey  string
	BaseURL string
	Logger  *slog.Logger
}

// ResendClient sends mail through the Resend HTTP API.
type ResendClient struct {
	client  *http.Client
	apiKey  string
	baseURL string
	logger  *slog.Logger
}

func NewResendClient(httpClient *http.Client, cfg ResendConfig) *ResendClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = resendAPIBase
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ResendClient{
		client:  httpClient,
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		logger:  logger,
	}
}

type resendEmail struct {
	From        string             `json:"from"`
	To          []string           `json:"to"`
	Subject     string             `json:"subject"`
	HTML        string             `json:"html"`
	ReplyTo     string             `json:"reply_to,omitempty"`
	Attachments []resendAttachment `json:"attachments,omitempty"`
	Tags        []resendTag        `json:"tags,omitempty"`
}

type resendAttachment struct {
	Filename    string `json:"filename"`
	Content     string `json:"content"`
	ContentType string `json:"content_type,omitempty"`
}

type resendTag struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type resendError struct {
	StatusCode int    `json:"statusCode"`
	Name       string `json:"name"`
	Message    string `json:"message"`
}

func buildResendEmail(msg Message) resendEmail {
	email := resendEmail{
		From:    msg.From,
		To:      msg.To,
		Subject: msg.Subject,
		HTML:    msg.HTML,
		ReplyTo: msg.ReplyTo,
	}
	for _, a := range msg.Attachments {
		email.Attachments = append(email.Attachments, resendAttachment{
			Filename:    a.Filename,
			Content:     base64.StdEncoding.EncodeToString(a.Content),
			ContentType: a.ContentType,
		})
	}
	for _, t := range msg.Tags {
		email.Tags = append(email.Tags, resendTag{Name: t.Name, Value: t.Value})
	}
	return email
}

// Send posts msg to /emails.
func (c *ResendClient) Send(ctx context.Context, msg Message) models.DeliveryResult {
	body, err := json.Marshal(buildResendEmail(msg))
	if err != nil {
		return applicationError(fmt.Errorf("failed to marshal email: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return applicationError(fmt.Errorf("failed to create email request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return applicationError(fmt.Errorf("failed to send email request: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return applicationError(fmt.Errorf("failed to read email response: %w", err))
	}

	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		var data models.SendResponse
		if err := json.Unmarshal(respBody, &data); err != nil {
			return applicationError(fmt.Errorf("failed to decode email response: %w", err))
		}
		return models.DeliveryResult{Data: &data}
	}

	var re resendError
	if err := json.Unmarshal(respBody, &re); err != nil || re.Message == "" {
		c.logger.WarnContext(ctx, "unexpected Resend error body", "status", resp.StatusCode)
		return models.Failed(ErrNameApplication, fmt.Sprintf("resend returned status %d: %s", resp.StatusCode, string(respBody)))
	}
	return models.Failed(re.Name, re.Message)
}
