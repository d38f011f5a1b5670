package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// TelegramBot posts messages through the Telegram Bot API.
type TelegramBot struct {
	baseURL string
	token   string
	logger  *slog.Logger
	client  *http.Client
}

// NewTelegramBot creates a Telegram bot client.
func NewTelegramBot(baseURL, token string, logger *slog.Logger) *TelegramBot {
	return &TelegramBot{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		logger:  logger,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
}

// SendMessage posts an HTML-formatted message to a chat. It does not retry.
func (b *TelegramBot) SendMessage(ctx context.Context, chatID, text string) error {
	if b.token == "" {
		return fmt.Errorf("telegram bot token not configured")
	}

	body, _ := json.Marshal(map[string]interface{}{
		"chat_id":                  chatID,
		"text":                     text,
		"parse_mode":               "HTML",
		"disable_web_page_preview": true,
	})

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", b.baseURL, b.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		// The URL embeds the bot token; keep it out of logs.
		return fmt.Errorf("telegram api call: %w", redactURLError(err))
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	var tr telegramResponse
	_ = json.Unmarshal(respBody, &tr)

	if resp.StatusCode != http.StatusOK || !tr.OK {
		return fmt.Errorf("telegram error (status %d): %s", resp.StatusCode, tr.Description)
	}

	b.logger.Debug("chat message sent", "chat_id", chatID)
	return nil
}

func redactURLError(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return uerr.Err
	}
	return err
}
