package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ContentEnricher/internal/ports"
)

const defaultBaseURL = "https://api.telegram.org"

// Notifier sends operator alerts to a Telegram chat via bot API.
type Notifier struct {
	baseURL  string
	botToken string
	chatID   string
	client   *http.Client
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier registers bot token and chat identifier. An empty baseURL
// selects the public bot API.
func NewNotifier(baseURL, botToken, chatID string) *Notifier {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Notifier{
		baseURL:  strings.TrimRight(baseURL, "/"),
		botToken: botToken,
		chatID:   chatID,
		client:   &http.Client{Timeout: 5 * time.Second},
	}
}

// Configured reports whether alerts can be delivered.
func (n *Notifier) Configured() bool {
	return n != nil && n.botToken != "" && n.chatID != ""
}

// PublishAlert posts a plain-text message to the chat.
func (n *Notifier) PublishAlert(ctx context.Context, message string) error {
	if !n.Configured() || n.client == nil {
		return fmt.Errorf("telegram notifier misconfigured")
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	form := url.Values{}
	form.Set("chat_id", n.chatID)
	form.Set("text", message)
	form.Set("disable_web_page_preview", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("telegram error: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	return nil
}
