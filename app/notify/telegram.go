package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type Sender interface {
	Send(ctx context.Context, m Message) error
}

const defaultSendTimeout = 30 * time.Second

type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type TelegramSender struct {
	bot       botAPI
	channel   string
	formatter *Formatter
}

var _ Sender = (*TelegramSender)(nil)

// NewTelegramSender connects to the Bot API. An empty endpoint selects the
// public API; otherwise it is a format like "http://host/bot%s/%s". Every
// request, including the plain-text retry, is bounded by timeout.
func NewTelegramSender(token, channel, endpoint string, timeout time.Duration, formatter *Formatter) (*TelegramSender, error) {
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}

	bot, err := tgbotapi.NewBotAPIWithClient(token, endpoint, &http.Client{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Telegram: %w", err)
	}

	slog.Info("Connected to Telegram", "bot", bot.Self.UserName, "channel", channel)

	return newTelegramSender(bot, channel, formatter), nil
}

func newTelegramSender(bot botAPI, channel string, formatter *Formatter) *TelegramSender {
	if formatter == nil {
		formatter = NewFormatter(nil)
	}
	return &TelegramSender{
		bot:       bot,
		channel:   channel,
		formatter: formatter,
	}
}

// Send posts the MarkdownV2 message and retries once as plain text when
// Telegram rejects it.
func (s *TelegramSender) Send(ctx context.Context, m Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	text := s.formatter.Format(m)

	msg := s.newMessage(text)
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	_, err := s.bot.Send(msg)
	if err == nil {
		return nil
	}

	slog.Warn("Telegram rejected formatted message, retrying as plain text", "source", m.SourceName, "error", err)

	if _, plainErr := s.bot.Send(s.newMessage(PlainText(text, m.Link))); plainErr != nil {
		return fmt.Errorf("failed to send message: %w", plainErr)
	}

	slog.Info("Message sent as plain text", "source", m.SourceName)
	return nil
}

func (s *TelegramSender) newMessage(text string) tgbotapi.MessageConfig {
	var msg tgbotapi.MessageConfig
	if chatID, err := strconv.ParseInt(s.channel, 10, 64); err == nil {
		msg = tgbotapi.NewMessage(chatID, text)
	} else {
		msg = tgbotapi.NewMessageToChannel(s.channel, text)
	}
	msg.DisableWebPagePreview = false
	return msg
}
