package publishers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/Adda-Baaj/khobor-reader/pkg/httpclient"
)

// Webhook request headers. Receivers dedupe on the idempotency key, which is
// the event id and stays the same across retries.
const (
	HeaderEventKind      = "X-Khobor-Event"
	HeaderIdempotencyKey = "Idempotency-Key"

	webhookRetryWait = 200 * time.Millisecond
)

type webhookPublisher struct {
	id      string
	method  string
	url     string
	headers map[string]string
	client  *resty.Client
	log     Logger
}

func newWebhookPublisher(_ context.Context, cfg PublisherConfig, log Logger) (Publisher, error) {
	w := cfg.Webhook
	if w == nil {
		return nil, fmt.Errorf("publisher %q missing webhook configuration", cfg.ID)
	}

	client := httpclient.NewRestyHTTPClient(
		time.Duration(w.TimeoutSeconds)*time.Second,
		httpclient.WithRetries(w.Retries, webhookRetryWait),
	)
	return &webhookPublisher{
		id:      cfg.ID,
		method:  w.Method,
		url:     w.URL,
		headers: w.Headers,
		client:  client,
		log:     ensureLogger(log),
	}, nil
}

func (h *webhookPublisher) ID() string   { return h.id }
func (h *webhookPublisher) Type() string { return TypeWebhook }

func (h *webhookPublisher) Publish(ctx context.Context, evt Event) error {
	req := h.client.R().
		SetContext(ctx).
		SetHeaders(h.headers).
		SetHeader("Content-Type", "application/json").
		SetHeader(HeaderEventKind, evt.Kind).
		SetHeader(HeaderIdempotencyKey, evt.ID).
		SetBody(evt)

	resp, err := req.Execute(h.method, h.url)
	if err != nil {
		return fmt.Errorf("webhook request: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("webhook response status %d: %s", resp.StatusCode(), bodySnippet(resp.Body()))
	}
	h.log.DebugObj("webhook delivered event", "publisher_webhook_delivery", map[string]any{
		"publisher_id": h.id,
		"event_id":     evt.ID,
		"item_guid":    evt.Item.GUID,
		"status":       resp.StatusCode(),
	})
	return nil
}

func bodySnippet(body []byte) string {
	const maxLen = 512
	if len(body) > maxLen {
		body = body[:maxLen]
	}
	return strings.TrimSpace(string(body))
}
