// internal/mailer/mailer.go

// Package mailer sends account emails through the SendGrid REST API.
package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mantra-fm/backend/internal/logger"
)

type Client struct {
	log        *logger.Logger
	apiKey     string
	baseURL    string
	fromEmail  string
	fromName   string
	appBaseURL string
	httpClient *http.Client
}

// NewFromEnv builds a client from SENDGRID_* environment variables.
func NewFromEnv(log *logger.Logger) (*Client, error) {
	apiKey := strings.TrimSpace(os.Getenv("SENDGRID_API_KEY"))
	if apiKey == "" {
		return nil, fmt.Errorf("missing SENDGRID_API_KEY")
	}
	baseURL := strings.TrimSpace(os.Getenv("SENDGRID_BASE_URL"))
	if baseURL == "" {
		baseURL = "https://api.sendgrid.com"
	}
	fromEmail := strings.TrimSpace(os.Getenv("SENDGRID_FROM_EMAIL"))
	if fromEmail == "" {
		fromEmail = "no-reply@mantra-fm.app"
	}
	appBaseURL := strings.TrimSpace(os.Getenv("APP_BASE_URL"))
	if appBaseURL == "" {
		appBaseURL = "http://localhost:8080"
	}

	return &Client{
		log:        log.With("client", "MailerClient"),
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		fromEmail:  fromEmail,
		fromName:   strings.TrimSpace(os.Getenv("SENDGRID_FROM_NAME")),
		appBaseURL: strings.TrimRight(appBaseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

type emailAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type personalization struct {
	To []emailAddress `json:"to"`
}

type content struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sendRequest struct {
	Personalizations []personalization `json:"personalizations"`
	From             emailAddress      `json:"from"`
	Subject          string            `json:"subject"`
	Content          []content         `json:"content"`
}

// SendVerification emails the signup verification link.
func (c *Client) SendVerification(ctx context.Context, toEmail, name, token string) error {
	link := fmt.Sprintf("%s/api/verify?token=%s", c.appBaseURL, token)
	body := fmt.Sprintf("Hi %s,\n\nPlease confirm your email address:\n\n%s\n", name, link)

	payload := sendRequest{
		Personalizations: []personalization{{To: []emailAddress{{Email: toEmail, Name: name}}}},
		From:             emailAddress{Email: c.fromEmail, Name: c.fromName},
		Subject:          "Confirm your email",
		Content:          []content{{Type: "text/plain", Value: body}},
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v3/mail/send", bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("sendgrid returned status %d", resp.StatusCode)
	}

	c.log.Info("verification email sent", "to", toEmail)
	return nil
}
