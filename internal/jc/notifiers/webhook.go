// Package notifiers provides concrete jc.Notifier implementations: an HTTP
// webhook and a websocket broadcaster. Grounded on
// internal/achem/notifiers/{webhook,websocket}.go, repointed at
// jc.ReactionEvent.
package notifiers

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/winitzki/chymyst-go/internal/jc"
)

// WebhookNotifier POSTs each ReactionEvent as JSON to a configured URL.
type WebhookNotifier struct {
	id      string
	url     string
	client  *http.Client
	headers map[string]string
}

func NewWebhookNotifier(id, url string) *WebhookNotifier {
	return &WebhookNotifier{
		id:      id,
		url:     url,
		client:  &http.Client{Timeout: 10 * time.Second},
		headers: map[string]string{},
	}
}

func (w *WebhookNotifier) SetHeader(key, value string) {
	w.headers[key] = value
}

func (w *WebhookNotifier) ID() string   { return w.id }
func (w *WebhookNotifier) Type() string { return "webhook" }

func (w *WebhookNotifier) Notify(ctx context.Context, event jc.ReactionEvent) error {
	payload, err := event.JSON()
	if err != nil {
		return fmt.Errorf("webhook %s: encoding event: %w", w.id, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("webhook %s: building request: %w", w.id, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range w.headers {
		req.Header.Set(k, v)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook %s: request failed: %w", w.id, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook %s: unexpected status %d", w.id, resp.StatusCode)
	}
	return nil
}

func (w *WebhookNotifier) Close() error { return nil }
