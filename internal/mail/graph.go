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
	netmail "net/mail"
	"net/url"
	"strings"

	"forecast-mailer/internal/models"
)

const (
	graphAPIBase   = "https://graph.microsoft.com/v1.0"
	graphLoginBase = "https://login.microsoftonline.com"
)

// GraphConfig holds the Microsoft Entra app registration used for
// client-credential access to the Graph sendMail endpoint.
type GraphConfig struct {
	TenantID     string
	ClientID     string
	ClientSecret string
	SenderEmail  string

	APIBaseURL   string
	LoginBaseURL string
	Logger       *slog.Logger
}

// GraphClient sends mail as SenderEmail through Microsoft Graph.
type GraphClient struct {
	cfg    GraphConfig
	client *http.Client
	logger *slog.Logger
}

type oAuthTokenResponse struct {
	AccessToken string `json:"access_token"`
}

type graphEmail struct {
	Message         graphMessage `json:"message"`
	SaveToSentItems bool         `json:"saveToSentItems"`
}

type graphMessage struct {
	Subject      string            `json:"subject"`
	Body         graphBody         `json:"body"`
	ToRecipients []graphRecipient  `json:"toRecipients"`
	ReplyTo      []graphRecipient  `json:"replyTo,omitempty"`
	Attachments  []graphAttachment `json:"attachments,omitempty"`
}

type graphBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

type graphRecipient struct {
	EmailAddress graphAddress `json:"emailAddress"`
}

type graphAddress struct {
	Address string `json:"address"`
	Name    string `json:"name,omitempty"`
}

type graphAttachment struct {
	ODataType    string `json:"@odata.type"`
	Name         string `json:"name"`
	ContentType  string `json:"contentType"`
	ContentBytes string `json:"contentBytes"`
}

type graphErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func NewGraphClient(httpClient *http.Client, cfg GraphConfig) *GraphClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = graphAPIBase
	}
	if cfg.LoginBaseURL == "" {
		cfg.LoginBaseURL = graphLoginBase
	}
	cfg.APIBaseURL = strings.TrimSuffix(cfg.APIBaseURL, "/")
	cfg.LoginBaseURL = strings.TrimSuffix(cfg.LoginBaseURL, "/")

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("graph client initialised", "tenant_id", cfg.TenantID, "client_id", cfg.ClientID)
	return &GraphClient{cfg: cfg, client: httpClient, logger: logger}
}

func graphAddressFor(s string) graphAddress {
	if a, err := netmail.ParseAddress(s); err == nil {
		return graphAddress{Address: a.Address, Name: a.Name}
	}
	return graphAddress{Address: s}
}

func buildGraphEmail(msg Message) graphEmail {
	m := graphMessage{
		Subject: msg.Subject,
		Body:    graphBody{ContentType: "HTML", Content: msg.HTML},
	}
	for _, to := range msg.To {
		m.ToRecipients = append(m.ToRecipients, graphRecipient{EmailAddress: graphAddressFor(to)})
	}
	if msg.ReplyTo != "" {
		m.ReplyTo = []graphRecipient{{EmailAddress: graphAddressFor(msg.ReplyTo)}}
	}
	for _, a := range msg.Attachments {
		m.Attachments = append(m.Attachments, graphAttachment{
			ODataType:    "#microsoft.graph.fileAttachment",
			Name:         a.Filename,
			ContentType:  a.ContentType,
			ContentBytes: base64.StdEncoding.EncodeToString(a.Content),
		})
	}
	return graphEmail{Message: m, SaveToSentItems: true}
}

// Send posts msg to the sender's sendMail endpoint. The From header of msg is
// ignored because Graph always sends as the mailbox owner.
func (c *GraphClient) Send(ctx context.Context, msg Message) models.DeliveryResult {
	accessToken, err := c.getAccessToken(ctx)
	if err != nil {
		return applicationError(fmt.Errorf("authentication failed: %w", err))
	}

	emailBytes, err := json.Marshal(buildGraphEmail(msg))
	if err != nil {
		return applicationError(fmt.Errorf("failed to marshal email message: %w", err))
	}

	endpoint := fmt.Sprintf("%s/users/%s/sendMail", c.cfg.APIBaseURL, url.PathEscape(c.cfg.SenderEmail))
	c.logger.DebugContext(ctx, "sending email via Graph API", "endpoint", endpoint)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(emailBytes))
	if err != nil {
		return applicationError(fmt.Errorf("failed to create email request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return applicationError(fmt.Errorf("failed to send email request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusAccepted {
		return models.Sent(resp.Header.Get("request-id"))
	}

	bodyBytes, _ := io.ReadAll(resp.Body)
	var ge graphErrorResponse
	if err := json.Unmarshal(bodyBytes, &ge); err == nil && ge.Error.Message != "" {
		return models.Failed(ge.Error.Code, ge.Error.Message)
	}
	return models.Failed(ErrNameApplication, fmt.Sprintf("graph returned status %d: %s", resp.StatusCode, string(bodyBytes)))
}

// getAccessToken fetches an app-only token from the Microsoft identity platform.
func (c *GraphClient) getAccessToken(ctx context.Context) (string, error) {
	tokenURL := fmt.Sprintf("%s/%s/oauth2/v2.0/token", c.cfg.LoginBaseURL, c.cfg.TenantID)
	form := url.Values{
		"client_id":     {c.cfg.ClientID},
		"client_secret": {c.cfg.ClientSecret},
		"scope":         {"https://graph.microsoft.com/.default"},
		"grant_type":    {"client_credentials"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("failed to get token, status: %d, response: %s", resp.StatusCode, string(bodyBytes))
	}

	var tokenResponse oAuthTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResponse); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	return tokenResponse.AccessToken, nil
}
