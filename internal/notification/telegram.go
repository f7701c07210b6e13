package notification

import (
	"context"
	"net/http"
)

const defaultTelegramURL = "https://api.telegram.org"

// TelegramNotifier posts alerts as plain-text Bot API messages. Signal texts
// are sent unformatted so prices and symbols need no escaping.
type TelegramNotifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
}

func NewTelegramNotifier(botToken, chatID string) *TelegramNotifier {
	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  defaultTelegramURL,
		client:   &http.Client{Timeout: sendTimeout},
	}
}

// WithBaseURL points the notifier at another Bot API host.
func (t *TelegramNotifier) WithBaseURL(u string) *TelegramNotifier {
	t.baseURL = u
	return t
}

// Text renders an alert as one message: title and message on separate
// lines, or whichever of the two is set.
func Text(alert Alert) string {
	switch {
	case alert.Title == "":
		return alert.Message
	case alert.Message == "":
		return alert.Title
	}
	return alert.Title + "\n" + alert.Message
}

type telegramMessage struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview,omitempty"`
}

func (t *TelegramNotifier) Send(ctx context.Context, alert Alert) error {
	msg := telegramMessage{ChatID: t.chatID, Text: Text(alert), DisableWebPagePreview: true}
	return postJSON(ctx, t.client, "telegram", t.baseURL+"/bot"+t.botToken+"/sendMessage", msg)
}
