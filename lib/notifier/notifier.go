package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/monitoria-simple/lib/logger"
)

// Message is one notification addressed to a recipient
type Message struct {
	TemplateID     string                 `json:"templateId"`
	Recipient      string                 `json:"recipient"`
	Data           map[string]interface{} `json:"data"`
	IdempotencyKey string                 `json:"idempotencyKey"`
}

// Notifier delivers messages. Delivery is at-least-once; receivers
// deduplicate on the idempotency key.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// WebhookNotifier posts messages as JSON to a webhook endpoint
type WebhookNotifier struct {
	url    string
	client *http.Client
}

// NewWebhookNotifier creates a webhook notifier with a bounded request timeout
func NewWebhookNotifier(url string, timeout time.Duration) *WebhookNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookNotifier{url: url, client: &http.Client{Timeout: timeout}}
}

// Send posts msg; any non-2xx answer is an error
func (n *WebhookNotifier) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", msg.IdempotencyKey)

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// LogNotifier only logs messages
type LogNotifier struct {
	log *logger.Logger
}

// NewLogNotifier creates a notifier that writes messages to the log
func NewLogNotifier(log *logger.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

// Send logs msg and always succeeds
func (n *LogNotifier) Send(ctx context.Context, msg Message) error {
	n.log.FromContext(ctx).
		WithField("template_id", msg.TemplateID).
		WithField("recipient", msg.Recipient).
		WithField("idempotency_key", msg.IdempotencyKey).
		Info("notification sent")
	return nil
}
