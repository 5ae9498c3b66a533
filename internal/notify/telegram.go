package notify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// TelegramNotifier posts the rendered message to a Telegram bot chat via
// the sendMessage API. It is the production Notifier; §7 names
// "telegram_failed" as the heartbeat field recorded on delivery failure.
type TelegramNotifier struct {
	httpClient *http.Client
	botToken   string
	chatID     string
	apiBase    string
}

func NewTelegramNotifier(botToken, chatID string) *TelegramNotifier {
	return &TelegramNotifier{
		httpClient: &http.Client{Timeout: 8 * time.Second},
		botToken:   botToken,
		chatID:     chatID,
		apiBase:    "https://api.telegram.org",
	}
}

func (t *TelegramNotifier) Name() string { return "telegram" }

func (t *TelegramNotifier) Send(ctx context.Context, message string) error {
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", t.apiBase, t.botToken)
	form := url.Values{}
	form.Set("chat_id", t.chatID)
	form.Set("text", message)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build telegram request: %w", err)
	}
	req.URL.RawQuery = form.Encode()

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram responded with status %d", resp.StatusCode)
	}
	return nil
}
