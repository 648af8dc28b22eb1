package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"restockbot/pkg/config"
	"restockbot/pkg/logger"

	"go.uber.org/zap"
)

// TelegramNotifier pushes tracker alerts and purchase reports to the
// operator's chat.
type TelegramNotifier struct {
	config     *config.TelegramConfig
	httpClient *http.Client
}

// TelegramMessage represents a message to be sent via Telegram
type TelegramMessage struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode,omitempty"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview,omitempty"`
}

// TelegramResponse represents Telegram API response
type TelegramResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description,omitempty"`
	ErrorCode   int             `json:"error_code,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
}

// NewTelegramNotifier creates a new Telegram notifier
func NewTelegramNotifier(cfg *config.TelegramConfig) *TelegramNotifier {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30
	}
	return &TelegramNotifier{
		config: cfg,
		httpClient: &http.Client{
			// Long-poll requests need headroom beyond their own timeout.
			Timeout: time.Duration(timeout+90) * time.Second,
		},
	}
}

// Notify joins a title and detail lines into one Markdown message and sends
// it. Delivery failures are logged, never propagated: trackers must not
// stall because the notification channel is down.
func (t *TelegramNotifier) Notify(title string, lines ...string) {
	parts := append([]string{title}, lines...)
	message := strings.Join(parts, "\n")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := t.SendMessage(ctx, message); err != nil {
		logger.Warn("notification delivery failed", zap.Error(err))
	}
}

// SendMessage sends a message via Telegram
func (t *TelegramNotifier) SendMessage(ctx context.Context, message string) error {
	if !t.config.Enabled {
		logger.Debug("Telegram notifications disabled")
		return nil
	}

	if t.config.BotToken == "" || t.config.ChatID == "" {
		logger.Warn("Telegram bot token or chat ID not configured")
		return fmt.Errorf("telegram bot token or chat ID not configured")
	}

	telegramMsg := TelegramMessage{
		ChatID:    t.config.ChatID,
		Text:      message,
		ParseMode: "Markdown",
		// Item alerts embed shop links; previews would bloat the chat.
		DisableWebPagePreview: true,
	}

	return t.sendTelegramMessage(ctx, &telegramMsg)
}

// sendTelegramMessage sends message to Telegram API
func (t *TelegramNotifier) sendTelegramMessage(ctx context.Context, message *TelegramMessage) error {
	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.config.BotToken)

	jsonData, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	logger.Debug("Sending Telegram message",
		zap.String("chat_id", message.ChatID),
		zap.String("text", message.Text[:min(100, len(message.Text))]))

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	var telegramResp TelegramResponse
	if err := json.NewDecoder(resp.Body).Decode(&telegramResp); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if !telegramResp.OK {
		return fmt.Errorf("telegram API error: %s (code: %d)", telegramResp.Description, telegramResp.ErrorCode)
	}

	logger.Debug("Telegram message sent successfully")
	return nil
}

// ValidateConfig validates Telegram configuration
func (t *TelegramNotifier) ValidateConfig() error {
	if !t.config.Enabled {
		return nil
	}

	if t.config.BotToken == "" {
		return fmt.Errorf("telegram bot token is required when enabled")
	}

	if t.config.ChatID == "" {
		return fmt.Errorf("telegram chat ID is required when enabled")
	}

	return nil
}

// TestConnection tests Telegram bot connection
func (t *TelegramNotifier) TestConnection(ctx context.Context) error {
	if !t.config.Enabled {
		return fmt.Errorf("telegram notifications are disabled")
	}

	return t.SendMessage(ctx, "Restock bot connectivity check, all good!")
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
