package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// LogNotifier writes messages to the log instead of delivering them.
type LogNotifier struct {
	logger zerolog.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With().Str("component", "notifier").Logger()}
}

// Notify logs the message.
func (n *LogNotifier) Notify(_ context.Context, phone, message string) error {
	n.logger.Info().Str("to", phone).Str("body", message).Msg("notification")
	return nil
}

// WebhookNotifier posts messages to an HTTP endpoint as {"to", "body"}.
type WebhookNotifier struct {
	client *http.Client
	url    string
}

// NewWebhookNotifier creates a WebhookNotifier. A nil client gets one bounded by timeout.
func NewWebhookNotifier(client *http.Client, url string, timeout time.Duration) (*WebhookNotifier, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, fmt.Errorf("webhook url required")
	}
	if client == nil {
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &WebhookNotifier{client: client, url: url}, nil
}

type webhookPayload struct {
	To   string `json:"to"`
	Body string `json:"body"`
}

// Notify delivers the message. Any non-2xx status is an error.
func (n *WebhookNotifier) Notify(ctx context.Context, phone, message string) error {
	body, err := json.Marshal(webhookPayload{To: phone, Body: message})
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("notification request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notification status %d", resp.StatusCode)
	}
	return nil
}
