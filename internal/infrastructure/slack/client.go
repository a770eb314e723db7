package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"pragent/internal/bootstrap/config"
	"pragent/internal/errs"
	"pragent/internal/ports"
)

// Client posts messages to a Slack incoming-webhook URL. One Send is one
// attempt; retry policy lives in the dispatcher.
type Client struct {
	webhookURL string
	httpClient *http.Client
}

func NewClient(cfg config.SlackConfig) *Client {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		webhookURL: strings.TrimSpace(cfg.WebhookURL),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// webhookPayload is the incoming-webhook document Slack expects.
type webhookPayload struct {
	Text   string `json:"text"`
	Mrkdwn bool   `json:"mrkdwn"`
}

func (c *Client) Send(ctx context.Context, message ports.NotificationMessage) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if c.webhookURL == "" {
		return &SendError{Reason: "slack webhook url is not configured"}
	}

	body, err := json.Marshal(webhookPayload{
		Text:   message.Body,
		Mrkdwn: true,
	})
	if err != nil {
		return errs.Wrap(err, "marshal slack payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(body))
	if err != nil {
		return errs.Wrap(err, "build slack request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Network errors and timeouts are transient by assumption.
		return &SendError{Reason: err.Error(), Transient: true}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &SendError{
			StatusCode: resp.StatusCode,
			Reason:     strings.TrimSpace(string(detail)),
		}
	}
	return nil
}

// SendError classifies a failed delivery attempt. A zero StatusCode means
// the request never completed (connection error or timeout).
type SendError struct {
	StatusCode int
	Reason     string
	Transient  bool
}

func (e *SendError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("slack send failed: %s", e.Reason)
	}
	return fmt.Sprintf("slack send failed: status %d: %s", e.StatusCode, e.Reason)
}

// Retryable reports whether another attempt can succeed: connection
// failures, 429 and 5xx are transient; other 4xx and local
// misconfiguration are permanent.
func (e *SendError) Retryable() bool {
	if e.StatusCode == 0 {
		return e.Transient
	}
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}
