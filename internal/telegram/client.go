// Package telegram sends run-summary notifications via the Telegram Bot API.
package telegram

import (
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/rewired-gh/autoinvest/internal/models"
)

// Client handles Telegram notifications.
type Client struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewClient creates a new Telegram client.
func NewClient(botToken, chatID string) (*Client, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}

	return &Client{
		bot:    bot,
		chatID: chatIDInt,
	}, nil
}

// sendMarkdownV2 sends a MarkdownV2 message.
func (c *Client) sendMarkdownV2(text string) error {
	msg := tgbotapi.NewMessage(c.chatID, text)
	msg.ParseMode = "MarkdownV2"
	if _, err := c.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send Telegram message: %w", err)
	}
	return nil
}

// SendError sends a pipeline error notification.
func (c *Client) SendError(runErr error) error {
	text := fmt.Sprintf("⚠️ *Pipeline error*\n`%s`", escapeMarkdownV2(runErr.Error()))
	return c.sendMarkdownV2(text)
}

// SendRunSummary sends the ranked recommendations and any recorded
// simulated purchases.
func (c *Client) SendRunSummary(assets []string, records []models.PurchaseRecord) error {
	return c.sendMarkdownV2(c.formatSummary(assets, records))
}

// formatSummary formats a run result into a Telegram MarkdownV2 message.
func (c *Client) formatSummary(assets []string, records []models.PurchaseRecord) string {
	var b strings.Builder
	b.WriteString("📊 *Recommended Assets*\n\n")

	if len(assets) == 0 {
		b.WriteString("No recommendations this run\\.\n")
	}
	for i, asset := range assets {
		fmt.Fprintf(&b, "%d\\. *%s*\n", i+1, escapeMarkdownV2(asset))
	}

	if len(records) > 0 {
		b.WriteString("\n💰 *Simulated Purchases*\n\n")
		for _, r := range records {
			priceStr := escapeMarkdownV2(fmt.Sprintf("%.2f", r.Price))
			if r.Price == models.SentinelPrice {
				priceStr = "price unavailable"
			}
			fmt.Fprintf(&b, "• %s: %s x%s, expires %s\n",
				escapeMarkdownV2(r.Asset),
				priceStr,
				escapeMarkdownV2(fmt.Sprintf("%.1f", r.Quantity)),
				escapeMarkdownV2(r.Expiration.Format(models.ExpirationLayout)),
			)
		}
	}

	return b.String()
}

// escapeMarkdownV2 escapes special characters for Telegram MarkdownV2.
func escapeMarkdownV2(text string) string {
	var b strings.Builder
	b.Grow(len(text) + len(text)/4)
	for _, char := range text {
		switch char {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!':
			b.WriteByte('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}
