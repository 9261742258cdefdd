package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dmitriz/mtbuild/internal/core/config"
	"github.com/dmitriz/mtbuild/pkg/logger"
)

type WebhookMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type webhookPayload struct {
	Title      string `json:"title"`
	Body       string `json:"body"`
	Level      Level  `json:"level"`
	DurationMs int64  `json:"duration_ms"`
}

// WebhookNotifier posts notifications as JSON to a URL, for chat
// integrations or CI dashboards.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		url: url,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (w *WebhookNotifier) Send(ctx context.Context, msg Message, opts config.NotifyConfig) error {
	log := logger.WithComponent("webhook")

	payload, err := json.Marshal(webhookPayload{
		Title:      msg.Title,
		Body:       msg.Body,
		Level:      msg.Level,
		DurationMs: opts.Duration.Milliseconds(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}
	body, err := json.Marshal(WebhookMessage{Type: "notification", Payload: payload})
	if err != nil {
		return fmt.Errorf("failed to marshal webhook message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("webhook request failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	log.Debug().Str("url", w.url).Str("level", string(msg.Level)).Msg("Notification delivered")
	return nil
}
