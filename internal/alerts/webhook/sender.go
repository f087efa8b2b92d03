// Package webhook provides alert notification delivery to arbitrary HTTP
// endpoints as JSON POST requests.
package webhook

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

	"github.com/okutsev/fleetwatch/internal/alerts"
	"github.com/okutsev/fleetwatch/internal/domain"
)

// Config holds webhook sender configuration.
type Config struct {
	Enabled bool
	Timeout time.Duration
}

// Sender implements the generic webhook notification sender.
// The notification recipient is the target URL.
type Sender struct {
	config Config
	client *http.Client
}

// payload is the JSON body posted to the target endpoint.
type payload struct {
	Subject string         `json:"subject"`
	Body    string         `json:"body"`
	Alert   map[string]any `json:"alert,omitempty"`
}

// NewSender creates a new webhook sender.
func NewSender(config Config) *Sender {
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}

	slog.Info("webhook sender configured", "enabled", config.Enabled, "timeout", config.Timeout)

	return &Sender{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
	}
}

// Type returns the channel type.
func (s *Sender) Type() domain.NotificationChannel {
	return domain.ChannelWebhook
}

// Send posts the message to the recipient URL.
func (s *Sender) Send(ctx context.Context, msg alerts.Message) error {
	if !s.config.Enabled {
		slog.Warn("webhook sender disabled, skipping send", "url", msg.Recipient)
		return nil
	}

	body, err := json.Marshal(payload{
		Subject: msg.Subject,
		Body:    msg.Body,
		Alert:   msg.Payload,
	})
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

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("endpoint returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	return nil
}
