package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// defaultBaseURL is the Telegram Bot API endpoint.
const defaultBaseURL = "https://api.telegram.org"

// TelegramNotifier sends fire-and-forget messages through the Telegram Bot
// API. Delivery is best effort; callers log and drop failures.
type TelegramNotifier struct {
	botToken string
	baseURL  string
	client   *http.Client
}

// NewTelegramNotifier constructs a TelegramNotifier for the given bot token.
func NewTelegramNotifier(botToken string) *TelegramNotifier {
	return &TelegramNotifier{
		botToken: botToken,
		baseURL:  defaultBaseURL,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// NewTelegramNotifierWithBaseURL constructs a notifier against a custom API
// endpoint. Used by tests.
func NewTelegramNotifierWithBaseURL(botToken, baseURL string) *TelegramNotifier {
	n := NewTelegramNotifier(botToken)
	n.baseURL = baseURL
	return n
}

// sendMessageRequest is the Bot API sendMessage body.
type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// send posts one Markdown message to the user's chat.
func (n *TelegramNotifier) send(ctx context.Context, userID, text string) error {
	body, errMarshal := json.Marshal(sendMessageRequest{
		ChatID:    userID,
		Text:      text,
		ParseMode: "Markdown",
	})
	if errMarshal != nil {
		return fmt.Errorf("notify: marshal message: %w", errMarshal)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, errReq := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if errReq != nil {
		return fmt.Errorf("notify: build request: %w", errReq)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, errDo := n.client.Do(req)
	if errDo != nil {
		return fmt.Errorf("notify: send telegram message: %w", errDo)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notify: telegram responded %d", resp.StatusCode)
	}
	return nil
}

// PaymentSuccess informs the user that the purchase settled and the quota was
// credited.
func (n *TelegramNotifier) PaymentSuccess(ctx context.Context, userID, planName string, added, newBalance int) error {
	text := fmt.Sprintf(
		"✅ *Pembayaran Berhasil!*\n\n"+
			"📦 Paket: %s\n"+
			"➕ Kuota Ditambah: +%d\n"+
			"🎫 *Total Kuota Sekarang: %d*\n\n"+
			"Selamat menganalisis! 🚀",
		planName, added, newBalance,
	)
	return n.send(ctx, userID, text)
}

// PaymentFailed informs the user that the purchase was cancelled, denied or
// expired.
func (n *TelegramNotifier) PaymentFailed(ctx context.Context, userID, planName, gatewayStatus string) error {
	text := fmt.Sprintf(
		"❌ *Pembayaran Gagal/Kadaluarsa*\n\n"+
			"📦 Paket: %s\n"+
			"Status: %s\n\n"+
			"Silakan lakukan pemesanan ulang jika masih berminat.",
		planName, titleCase(gatewayStatus),
	)
	return n.send(ctx, userID, text)
}

// titleCase uppercases the first byte of an ASCII status word.
func titleCase(s string) string {
	if s == "" {
		return s
	}
	if s[0] >= 'a' && s[0] <= 'z' {
		return string(s[0]-'a'+'A') + s[1:]
	}
	return s
}
