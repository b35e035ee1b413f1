// Package whatsapp implements the Twilio WhatsApp channel: inbound
// webhook, per-user rate limiting, and ordered outbound delivery.
package whatsapp

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	twilioMessagesURL = "https://api.twilio.com/2010-04-01/Accounts/%s/Messages.json"
	twilioTypingURL   = "https://messaging.twilio.com/v2/Indicators/Typing.json"
)

// Sender delivers ordered chunks to a WhatsApp recipient.
type Sender interface {
	Send(ctx context.Context, to string, chunks []string) error
	Typing(ctx context.Context, messageSID string)
}

// TwilioSender sends messages through the Twilio REST API.
type TwilioSender struct {
	accountSID string
	authToken  string
	from       string
	http       *http.Client
	logger     *slog.Logger
}

// NewTwilioSender creates a sender for the given Twilio account and
// WhatsApp number.
func NewTwilioSender(accountSID, authToken, from string, logger *slog.Logger) *TwilioSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &TwilioSender{
		accountSID: accountSID,
		authToken:  authToken,
		from:       from,
		http:       &http.Client{Timeout: 15 * time.Second},
		logger:     logger,
	}
}

// Send delivers chunks in order, stopping at the first failure so the
// recipient never sees chunk N+1 without chunk N.
func (s *TwilioSender) Send(ctx context.Context, to string, chunks []string) error {
	for i, chunk := range chunks {
		form := url.Values{
			"From": {"whatsapp:" + s.from},
			"To":   {"whatsapp:" + to},
			"Body": {chunk},
		}
		if err := s.post(ctx, fmt.Sprintf(twilioMessagesURL, s.accountSID), form); err != nil {
			return fmt.Errorf("send chunk %d/%d: %w", i+1, len(chunks), err)
		}
		s.logger.Info("Sent WhatsApp chunk", "to", to, "chunk", i+1, "total", len(chunks))
	}
	return nil
}

// Typing sends a typing indicator for the inbound message. Failures are
// logged and ignored.
func (s *TwilioSender) Typing(ctx context.Context, messageSID string) {
	form := url.Values{
		"messageId": {messageSID},
		"channel":   {"whatsapp"},
	}
	if err := s.post(ctx, twilioTypingURL, form); err != nil {
		s.logger.Warn("Typing indicator failed", "error", err)
	}
}

func (s *TwilioSender) post(ctx context.Context, endpoint string, form url.Values) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build twilio request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(s.accountSID, s.authToken)

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("twilio request: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			s.logger.Debug("failed to close twilio response body", "error", closeErr)
		}
	}()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("twilio status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}
