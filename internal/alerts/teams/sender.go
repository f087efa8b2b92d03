// Package teams provides alert notification delivery to Microsoft Teams
// incoming webhooks using the MessageCard format.
package teams

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

// Config holds Teams sender configuration.
type Config struct {
	Enabled bool
	Timeout time.Duration
}

// Sender implements the Microsoft Teams notification sender.
// The notification recipient is the incoming webhook URL.
type Sender struct {
	config Config
	client *http.Client
}

// messageCard is the legacy Teams MessageCard payload.
type messageCard struct {
	Type       string `json:"@type"`
	Context    string `json:"@context"`
	Title      string `json:"title"`
	Text       string `json:"text"`
	ThemeColor string `json:"themeColor,omitempty"`
}

// NewSender creates a new Teams sender.
func NewSender(config Config) *Sender {
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}

	slog.Info("teams sender configured", "enabled", config.Enabled, "timeout", config.Timeout)

	return &Sender{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
	}
}

// Type returns the channel type.
func (s *Sender) Type() domain.NotificationChannel {
	return domain.ChannelTeams
}

// Send posts a MessageCard to the recipient webhook URL.
func (s *Sender) Send(ctx context.Context, msg alerts.Message) error {
	if !s.config.Enabled {
		slog.Warn("teams sender disabled, skipping send")
		return nil
	}

	card := messageCard{
		Type:       "MessageCard",
		Context:    "http://schema.org/extensions",
		Title:      msg.Subject,
		Text:       strings.ReplaceAll(msg.Body, "\n", "\n\n"),
		ThemeColor: themeColor(msg.Severity),
	}

	body, err := json.Marshal(card)
	if err != nil {
		return fmt.Errorf("marshal card: %w", err)
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
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	return nil
}

// themeColor picks a card accent color from the alert severity.
func themeColor(severity domain.Severity) string {
	switch severity {
	case domain.SeverityCritical:
		return "D93025"
	case domain.SeverityWarning:
		return "F9AB00"
	default:
		return "1A73E8"
	}
}
