package notification

import (
	"context"
	"net/http"
	"time"
)

// WebhookPayload is the JSON body posted for every alert.
type WebhookPayload struct {
	Level   AlertLevel     `json:"level"`
	Title   string         `json:"title,omitempty"`
	Message string         `json:"message"`
	Text    string         `json:"text"` // Title and Message as sent to chat backends
	TS      string         `json:"ts"`
	Fields  map[string]any `json:"fields,omitempty"`
}

// WebhookNotifier posts alerts to a generic HTTP endpoint, e.g. a Slack or
// Discord relay.
type WebhookNotifier struct {
	url    string
	client *http.Client
	now    func() time.Time
}

func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{url: url, client: &http.Client{Timeout: sendTimeout}, now: time.Now}
}

func (w *WebhookNotifier) Send(ctx context.Context, alert Alert) error {
	return postJSON(ctx, w.client, "webhook", w.url, WebhookPayload{
		Level:   alert.Level,
		Title:   alert.Title,
		Message: alert.Message,
		Text:    Text(alert),
		TS:      w.now().UTC().Format(time.RFC3339Nano),
		Fields:  alert.Fields,
	})
}
