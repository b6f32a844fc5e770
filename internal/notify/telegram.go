// Package notify delivers operator alerts and run summaries.
package notify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Notifier sends operator-facing messages.
type Notifier interface {
	Notify(ctx context.Context, text string) error
	Alert(ctx context.Context, text string) error
}

// Telegram posts messages to an operators chat via the bot API.
type Telegram struct {
	botToken string
	chatID   string
	client   *http.Client
}

var _ Notifier = (*Telegram)(nil)

// NewTelegram registers bot token and chat identifier.
func NewTelegram(botToken, chatID string) *Telegram {
	return &Telegram{
		botToken: botToken,
		chatID:   chatID,
		client:   &http.Client{Timeout: 5 * time.Second},
	}
}

// Notify posts an informational message.
func (t *Telegram) Notify(ctx context.Context, text string) error {
	return t.send(ctx, text)
}

// Alert posts a failure message. Same transport, prefixed so operators
// can filter.
func (t *Telegram) Alert(ctx context.Context, text string) error {
	return t.send(ctx, "[alert] "+text)
}

func (t *Telegram) send(ctx context.Context, text string) error {
	if t.botToken == "" || t.chatID == "" {
		return fmt.Errorf("telegram notifier misconfigured")
	}

	endpoint := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.botToken)
	form := url.Values{}
	form.Set("chat_id", t.chatID)
	form.Set("text", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram error: %s", resp.Status)
	}
	return nil
}

// Nop discards all notifications; used when no channel is configured.
type Nop struct{}

var _ Notifier = Nop{}

// Notify implements Notifier.
func (Nop) Notify(ctx context.Context, text string) error { return nil }

// Alert implements Notifier.
func (Nop) Alert(ctx context.Context, text string) error { return nil }
