package notify

import (
	"context"

	"github.com/planora/planora-api/internal/models"
	"go.uber.org/zap"
)

// Reminder is one outbound reminder message for a user.
type Reminder struct {
	User    *models.User
	Subject string
	Body    string
}

// Notifier delivers reminders to users. Implementations must be safe for
// concurrent use; the worker sends from multiple job handlers.
type Notifier interface {
	Send(ctx context.Context, reminder *Reminder) error
}

// LogNotifier writes reminders to the structured log. It is the fallback
// when no delivery channel is configured and the default in development.
type LogNotifier struct {
	log *zap.Logger
}

// NewLogNotifier creates a log-backed notifier
func NewLogNotifier(log *zap.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

// Send logs the reminder
func (n *LogNotifier) Send(ctx context.Context, reminder *Reminder) error {
	n.log.Info("reminder_delivered",
		zap.String("channel", "log"),
		zap.String("user_id", reminder.User.ID.String()),
		zap.String("subject", reminder.Subject),
		zap.String("body", reminder.Body),
	)
	return nil
}
