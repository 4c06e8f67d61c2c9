// Package telegram provides a client for sending alert notifications via the
// Telegram Bot API.
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"edgescout/internal/models"
)

// Client handles Telegram notifications.
type Client struct {
	bot            *tgbotapi.BotAPI
	chatID         int64
	maxRetries     int
	retryDelayBase time.Duration
}

// NewClient creates a new Telegram client.
func NewClient(botToken, chatID string, maxRetries int, retryDelayBase time.Duration) (*Client, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}

	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}

	return &Client{
		bot:            bot,
		chatID:         chatIDInt,
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
	}, nil
}

// ListenForCommands starts a goroutine that polls for Telegram updates and
// handles bot commands. It returns immediately; the goroutine stops when ctx
// is cancelled. Only useful in interval mode where the process stays alive.
func (c *Client) ListenForCommands(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := c.bot.GetUpdatesChan(u)

	go func() {
		for {
			select {
			case <-ctx.Done():
				c.bot.StopReceivingUpdates()
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				if update.Message != nil && update.Message.IsCommand() {
					c.handleCommand(update.Message)
				}
			}
		}
	}()
}

func (c *Client) handleCommand(msg *tgbotapi.Message) {
	switch msg.Command() {
	case "ping":
		reply := tgbotapi.NewMessage(msg.Chat.ID, "Pong")
		c.bot.Send(reply) //nolint:errcheck
	}
}

// sendMarkdownV2 sends a MarkdownV2 message with linear-backoff retry.
func (c *Client) sendMarkdownV2(text string) error {
	msg := tgbotapi.NewMessage(c.chatID, text)
	msg.ParseMode = "MarkdownV2"

	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		if _, err := c.bot.Send(msg); err == nil {
			return nil
		} else {
			lastErr = err
		}
		time.Sleep(c.retryDelayBase * time.Duration(i+1))
	}
	return fmt.Errorf("failed after %d retries: %w", c.maxRetries, lastErr)
}

// SendValueAlert dispatches a value-bet notification.
func (c *Client) SendValueAlert(a models.ValueAlert) error {
	return c.sendMarkdownV2(formatValueAlert(a))
}

// SendTrendAlert dispatches a scoring-trend notification.
func (c *Client) SendTrendAlert(a models.TrendAlert) error {
	return c.sendMarkdownV2(formatTrendAlert(a))
}

// SendError sends a scan-cycle error notification.
// Call this only on the first occurrence of a consecutive error sequence.
func (c *Client) SendError(cycleErr error) error {
	text := fmt.Sprintf("⚠️ *Scan error*\n`%s`", escapeMarkdownV2(cycleErr.Error()))
	return c.sendMarkdownV2(text)
}

// SendRecovery sends a recovery notification after consecutive failures.
func (c *Client) SendRecovery(failureCount int) error {
	text := fmt.Sprintf("✅ *Scanning recovered* after %d consecutive failure\\(s\\)", failureCount)
	return c.sendMarkdownV2(text)
}

func formatValueAlert(a models.ValueAlert) string {
	lines := []string{
		"🎾 Tennis value alert",
		fmt.Sprintf("%s vs %s", a.AwayTeam, a.HomeTeam),
		a.CommenceTime.Local().Format("02/01 15:04"),
		fmt.Sprintf("Market h2h - %s", a.Outcome),
		fmt.Sprintf("%s %.2f - edge %.1f%%", a.Book, a.Price, a.Edge*100),
		fmt.Sprintf("Fair prob %.1f%% - Kelly %.1f%%", a.FairProb*100, a.Kelly*100),
		fmt.Sprintf("Fair basis: %s", a.Basis),
	}
	return joinEscaped(lines)
}

func formatTrendAlert(a models.TrendAlert) string {
	pts := make([]string, len(a.Points))
	for i, p := range a.Points {
		pts[i] = strconv.Itoa(p)
	}
	lines := []string{
		"🏀 NBA scoring trend",
		fmt.Sprintf("Player: %s", a.PlayerName),
		fmt.Sprintf("Last 5 games: %s points", strings.Join(pts, ", ")),
		fmt.Sprintf("Pattern: %s", describePattern(a.Pattern)),
	}
	return joinEscaped(lines)
}

func describePattern(pattern string) string {
	switch pattern {
	case "sustained-five":
		return "five straight games at or above the points threshold"
	case "four-then-drop":
		return "four straight games above the threshold, then a drop"
	default:
		return pattern
	}
}

func joinEscaped(lines []string) string {
	escaped := make([]string, 0, len(lines))
	for _, l := range lines {
		if l == "" {
			continue
		}
		escaped = append(escaped, escapeMarkdownV2(l))
	}
	return strings.Join(escaped, "\n")
}

// escapeMarkdownV2 escapes special characters for Telegram MarkdownV2.
func escapeMarkdownV2(text string) string {
	var b strings.Builder
	b.Grow(len(text) + len(text)/4) // pre-allocate with room for escapes
	for _, char := range text {
		switch char {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!':
			b.WriteByte('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}
