package notifier

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/benny59/architetti/internal/logger"
)

// Sender delivers one formatted message to a destination.
type Sender interface {
	Send(ctx context.Context, chatID int64, text string) error
}

// TelegramSender posts HTML messages through the Bot API.
type TelegramSender struct {
	bot *tgbotapi.BotAPI
}

// NewTelegramSender authenticates the bot token against the Bot API.
func NewTelegramSender(token string) (*TelegramSender, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return &TelegramSender{bot: bot}, nil
}

// NewTelegramSenderWithBot wraps an already configured bot.
func NewTelegramSenderWithBot(bot *tgbotapi.BotAPI) *TelegramSender {
	return &TelegramSender{bot: bot}
}

// Send posts text to chatID in HTML parse mode.
func (s *TelegramSender) Send(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := s.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

// LogSender writes messages to the log instead of a channel. Used for dry runs.
type LogSender struct {
	log logger.Logger
}

// NewLogSender constructs a dry-run sender.
func NewLogSender(log logger.Logger) *LogSender {
	return &LogSender{log: log.With(logger.Component("dry-run"))}
}

// Send logs the message and never fails.
func (s *LogSender) Send(_ context.Context, chatID int64, text string) error {
	s.log.Info("Notification (dry run)",
		logger.Int64("chat_id", chatID),
		logger.String("text", text),
	)
	return nil
}
