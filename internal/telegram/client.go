// Package telegram sends the daily community digest via the Telegram Bot API.
// It formats the feed's top sectors, leading runners and sector shifts into a
// MarkdownV2 message and handles delivery with retry logic.
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/rewired-gh/sectorflow/internal/models"
	"github.com/rewired-gh/sectorflow/internal/monitor"
)

// digestRunners is the number of runners listed in a digest.
const digestRunners = 5

// sender is the subset of the bot API the client uses.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Client handles Telegram notifications
type Client struct {
	bot            sender
	chatID         int64
	maxRetries     int
	retryDelayBase time.Duration
}

// Digest is the content of one notification. Report is nil when no earlier
// snapshot was available for comparison.
type Digest struct {
	Feed   models.CommunityFeed
	Report *monitor.Report
}

// NewClient creates a new Telegram client
func NewClient(botToken, chatID string, maxRetries int, retryDelayBase time.Duration) (*Client, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	return newClient(bot, chatID, maxRetries, retryDelayBase)
}

func newClient(bot sender, chatID string, maxRetries int, retryDelayBase time.Duration) (*Client, error) {
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

// SendDigest sends the digest message.
func (c *Client) SendDigest(ctx context.Context, d Digest) error {
	msg := tgbotapi.NewMessage(c.chatID, formatDigest(d))
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	msg.DisableWebPagePreview = true

	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		_, err := c.bot.Send(msg)
		if err == nil {
			return nil
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.retryDelayBase * time.Duration(i+1)):
		}
	}

	return fmt.Errorf("failed to send message after %d retries: %w", c.maxRetries, lastErr)
}

// formatDigest renders d as a MarkdownV2 message.
func formatDigest(d Digest) string {
	var b strings.Builder
	f := d.Feed

	b.WriteString("📊 *Community Sector Digest*\n")
	fmt.Fprintf(&b, "📅 As of: %s\n\n", escapeMarkdownV2(f.AsOf))

	b.WriteString("*Top sectors*\n")
	if len(f.TopSectors) == 0 {
		b.WriteString("No sector data\n")
	}
	for i, sw := range f.TopSectors {
		fmt.Fprintf(&b, "%d\\. %s %s\n", i+1, escapeMarkdownV2(sw.Sector), escapeMarkdownV2(formatPct(sw.Weight)))
	}

	if len(f.CommunityRunners) > 0 {
		b.WriteString("\n*Leading runners*\n")
		for i, r := range f.CommunityRunners {
			if i >= digestRunners {
				break
			}
			fmt.Fprintf(&b, "%d\\. *%s* %s \\(%s\\)\n   %s\n",
				i+1,
				escapeMarkdownV2(r.Ticker),
				escapeMarkdownV2(formatSignedPct(r.Return30d)),
				escapeMarkdownV2(r.Sector),
				escapeMarkdownV2(r.Signal))
		}
	}

	if d.Report != nil && len(d.Report.Shifts) > 0 {
		fmt.Fprintf(&b, "\n*Shifts since %s*\n", escapeMarkdownV2(d.Report.PrevAsOf))
		for _, s := range d.Report.Shifts {
			b.WriteString(formatShift(s))
		}
	}

	return b.String()
}

func formatShift(s models.SectorShift) string {
	emoji := "📈"
	if s.WeightDelta < 0 {
		emoji = "📉"
	}
	delta := escapeMarkdownV2(fmt.Sprintf("%+.1fpp", s.WeightDelta*100))
	sector := escapeMarkdownV2(s.Sector)

	var line string
	switch s.Kind {
	case models.ShiftEntered:
		line = fmt.Sprintf("%s %s entered at \\#%d \\(%s\\)", emoji, sector, s.NewRank, delta)
	case models.ShiftExited:
		line = fmt.Sprintf("%s %s dropped out from \\#%d \\(%s\\)", emoji, sector, s.OldRank, delta)
	case models.ShiftMoved:
		line = fmt.Sprintf("%s %s \\#%d → \\#%d \\(%s\\)", emoji, sector, s.OldRank, s.NewRank, delta)
	default:
		line = fmt.Sprintf("%s %s held \\#%d \\(%s\\)", emoji, sector, s.NewRank, delta)
	}
	if s.NewLeader {
		line += " 👑"
	}
	return line + "\n"
}

func formatPct(v float64) string {
	return fmt.Sprintf("%.1f%%", v*100)
}

func formatSignedPct(v float64) string {
	return fmt.Sprintf("%+.1f%%", v*100)
}

// escapeMarkdownV2 escapes special characters for Telegram MarkdownV2
func escapeMarkdownV2(text string) string {
	// Characters that need escaping in MarkdownV2:
	// _ * [ ] ( ) ~ ` > # + - = | { } . !
	var b strings.Builder
	for _, char := range text {
		switch char {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!':
			b.WriteRune('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}
