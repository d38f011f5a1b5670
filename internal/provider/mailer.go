package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// BrevoMailer sends transactional email through the Brevo HTTP API.
type BrevoMailer struct {
	baseURL  string
	apiKey   string
	from     string
	fromName string
	logger   *slog.Logger
	client   *http.Client
}

// NewBrevoMailer creates a Brevo mailer.
func NewBrevoMailer(baseURL, apiKey, from, fromName string, logger *slog.Logger) *BrevoMailer {
	return &BrevoMailer{
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiKey:   apiKey,
		from:     from,
		fromName: fromName,
		logger:   logger,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
}

type brevoAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type brevoEmail struct {
	Sender      brevoAddress   `json:"sender"`
	To          []brevoAddress `json:"to"`
	Subject     string         `json:"subject"`
	HTMLContent string         `json:"htmlContent"`
}

// SendEmail delivers one HTML email. It does not retry.
func (m *BrevoMailer) SendEmail(ctx context.Context, to, subject, html string) error {
	if m.apiKey == "" {
		return fmt.Errorf("brevo api key not configured")
	}

	body, _ := json.Marshal(brevoEmail{
		Sender:      brevoAddress{Email: m.from, Name: m.fromName},
		To:          []brevoAddress{{Email: to}},
		Subject:     subject,
		HTMLContent: html,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/v3/smtp/email", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("api-key", m.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("brevo api call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("brevo error (status %d): %s", resp.StatusCode, string(respBody[:min(200, len(respBody))]))
	}

	m.logger.Debug("email sent", "to", to, "subject", subject)
	return nil
}
