// Package slack provides alert notification delivery to Slack incoming webhooks.
package slack

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

	"golang.org/x/time/rate"

	"github.com/okutsev/fleetwatch/internal/alerts"
	"github.com/okutsev/fleetwatch/internal/domain"
)

// Config holds Slack sender configuration.
type Config struct {
	Enabled   bool
	Username  string
	IconURL   string
	RateLimit float64
	Timeout   time.Duration
}

// Sender implements the Slack notification sender.
// The notification recipient is the incoming webhook URL.
type Sender struct {
	config  Config
	client  *http.Client
	limiter *rate.Limiter
}

// webhookPayload is the Slack incoming webhook message format.
type webhookPayload struct {
	Text     string `json:"text"`
	Username string `json:"username,omitempty"`
	IconURL  string `json:"icon_url,omitempty"`
}

// NewSender creates a new Slack sender.
func NewSender(config Config) *Sender {
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	if config.RateLimit == 0 {
		config.RateLimit = 1
	}

	slog.Info("slack sender configured",
		"enabled", config.Enabled,
		"rate_limit", config.RateLimit,
		"timeout", config.Timeout,
	)

	return &Sender{
		config:  config,
		client:  &http.Client{Timeout: config.Timeout},
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
	}
}

// Type returns the channel type.
func (s *Sender) Type() domain.NotificationChannel {
	return domain.ChannelSlack
}

// Send posts the message to the recipient webhook URL.
func (s *Sender) Send(ctx context.Context, msg alerts.Message) error {
	if !s.config.Enabled {
		slog.Warn("slack sender disabled, skipping send", "webhook_url", maskWebhookURL(msg.Recipient))
		return nil
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	payload := webhookPayload{
		Text:     fmt.Sprintf("*%s*\n%s", msg.Subject, msg.Body),
		Username: s.config.Username,
		IconURL:  s.config.IconURL,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, msg.Recipient, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	return handleResponse(resp)
}

// handleResponse maps the webhook HTTP response to an error.
func handleResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
}

// maskWebhookURL hides the webhook token for logging.
func maskWebhookURL(url string) string {
	idx := strings.LastIndex(url, "/")
	if idx == -1 || idx == len(url)-1 {
		return url
	}
	return url[:idx+1] + "***"
}
