package notify

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// botAPI is the slice of the Telegram client the notifier uses.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier delivers reminders to the user's linked Telegram chat.
// Users without a linked chat fall through to the fallback notifier.
type TelegramNotifier struct {
	api      botAPI
	fallback Notifier
	log      *zap.Logger
}

// NewTelegramNotifier connects to the Telegram Bot API with the given token.
func NewTelegramNotifier(token string, fallback Notifier, log *zap.Logger) (*TelegramNotifier, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to telegram: %w", err)
	}
	log.Info("telegram_notifier_connected", zap.String("bot", api.Self.UserName))
	return &TelegramNotifier{api: api, fallback: fallback, log: log}, nil
}

// Send delivers the reminder to the user's chat, or to the fallback when the
// account has no linked chat.
func (n *TelegramNotifier) Send(ctx context.Context, reminder *Reminder) error {
	if reminder.User.TelegramChatID == nil {
		if n.fallback != nil {
			return n.fallback.Send(ctx, reminder)
		}
		return nil
	}

	text := reminder.Subject
	if reminder.Body != "" {
		text += "\n" + reminder.Body
	}

	msg := tgbotapi.NewMessage(*reminder.User.TelegramChatID, text)
	if _, err := n.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}

	n.log.Info("reminder_delivered",
		zap.String("channel", "telegram"),
		zap.String("user_id", reminder.User.ID.String()),
		zap.Int64("chat_id", *reminder.User.TelegramChatID),
	)
	return nil
}
