package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rpupo63/blog-cms-backend/config"
	"github.com/rpupo63/blog-cms-backend/errs"
)

const resendEndpoint = "https://api.resend.com/emails"

// Email is a single outbound message.
type Email struct {
	To      []string
	Subject string
	HTML    string
	Text    string
}

// Mailer hands a message off for delivery.
type Mailer interface {
	Send(ctx context.Context, email Email) error
}

// NewMailer returns a Resend-backed mailer when RESEND_API_KEY is set and a
// logging mailer otherwise.
func NewMailer(c map[string]string) Mailer {
	apiKey := config.GetString(c, "RESEND_API_KEY", "")
	if apiKey == "" {
		log.Warn().Msg("RESEND_API_KEY not set, outgoing e-mail will only be logged")
		return LogMailer{logger: log.With().Str("service", "mailer").Logger()}
	}
	return &ResendMailer{
		APIKey:   apiKey,
		From:     config.GetString(c, "RESEND_FROM_EMAIL", "Blog <no-reply@localhost>"),
		Endpoint: resendEndpoint,
		Client:   &http.Client{Timeout: 15 * time.Second},
	}
}

// ResendEmailRequest represents the request payload for Resend API
type ResendEmailRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Html    string   `json:"html,omitempty"`
	Text    string   `json:"text,omitempty"`
}

// ResendEmailResponse represents the response from Resend API
type ResendEmailResponse struct {
	ID string `json:"id"`
}

// ResendErrorResponse represents an error response from Resend API
type ResendErrorResponse struct {
	Message string `json:"message"`
}

type ResendMailer struct {
	APIKey   string
	From     string
	Endpoint string
	Client   *http.Client
}

func (m *ResendMailer) Send(ctx context.Context, email Email) error {
	if len(email.To) == 0 {
		return fmt.Errorf("at least one recipient is required")
	}

	payload := ResendEmailRequest{
		From:    m.From,
		To:      email.To,
		Subject: email.Subject,
		Html:    email.HTML,
		Text:    email.Text,
	}
	jsonPayload, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal email payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.Endpoint, bytes.NewReader(jsonPayload))
	if err != nil {
		return fmt.Errorf("failed to create Resend API request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+m.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.Client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request to Resend API: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read Resend API response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errorResp ResendErrorResponse
		cause := fmt.Errorf("%s", bodyBytes)
		if err := json.Unmarshal(bodyBytes, &errorResp); err == nil && errorResp.Message != "" {
			cause = fmt.Errorf("%s", errorResp.Message)
		}
		return errs.NewExternalServiceError("resend", resp.StatusCode, cause)
	}

	var emailResponse ResendEmailResponse
	if err := json.Unmarshal(bodyBytes, &emailResponse); err != nil {
		log.Warn().Err(err).Msg("Failed to parse Resend email response, but email was sent")
	} else {
		log.Info().Str("emailId", emailResponse.ID).Msg("Successfully sent email via Resend")
	}
	return nil
}

// LogMailer writes messages to the log instead of sending them.
type LogMailer struct {
	logger zerolog.Logger
}

func (m LogMailer) Send(ctx context.Context, email Email) error {
	m.logger.Info().
		Strs("to", email.To).
		Str("subject", email.Subject).
		Str("text", email.Text).
		Msg("e-mail not sent, no delivery provider configured")
	return nil
}
