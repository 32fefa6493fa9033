package notify

import (
	"context"
	"errors"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/planora/planora-api/internal/models"
	"go.uber.org/zap"
)

type fakeBotAPI struct {
	sent    []tgbotapi.MessageConfig
	sendErr error
}

func (f *fakeBotAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if f.sendErr != nil {
		return tgbotapi.Message{}, f.sendErr
	}
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, msg)
	}
	return tgbotapi.Message{}, nil
}

type recordingNotifier struct {
	reminders []*Reminder
}

func (r *recordingNotifier) Send(ctx context.Context, reminder *Reminder) error {
	r.reminders = append(r.reminders, reminder)
	return nil
}

func TestTelegramNotifierSend(t *testing.T) {
	t.Parallel()

	chatID := int64(12345)
	api := &fakeBotAPI{}
	n := &TelegramNotifier{api: api, log: zap.NewNop()}

	reminder := &Reminder{
		User:    &models.User{ID: uuid.New(), TelegramChatID: &chatID},
		Subject: "Exam in 3 days",
		Body:    "CS101 Midterm",
	}
	if err := n.Send(context.Background(), reminder); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	if len(api.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(api.sent))
	}
	if api.sent[0].ChatID != chatID {
		t.Errorf("chat id = %d, want %d", api.sent[0].ChatID, chatID)
	}
	if api.sent[0].Text != "Exam in 3 days\nCS101 Midterm" {
		t.Errorf("text = %q", api.sent[0].Text)
	}
}

func TestTelegramNotifierFallsBackWithoutChat(t *testing.T) {
	t.Parallel()

	api := &fakeBotAPI{}
	fallback := &recordingNotifier{}
	n := &TelegramNotifier{api: api, fallback: fallback, log: zap.NewNop()}

	reminder := &Reminder{
		User:    &models.User{ID: uuid.New()},
		Subject: "Overdue Task",
	}
	if err := n.Send(context.Background(), reminder); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	if len(api.sent) != 0 {
		t.Errorf("sent %d telegram messages for unlinked user, want 0", len(api.sent))
	}
	if len(fallback.reminders) != 1 {
		t.Errorf("fallback received %d reminders, want 1", len(fallback.reminders))
	}
}

func TestTelegramNotifierSendError(t *testing.T) {
	t.Parallel()

	chatID := int64(12345)
	api := &fakeBotAPI{sendErr: errors.New("telegram unavailable")}
	n := &TelegramNotifier{api: api, log: zap.NewNop()}

	reminder := &Reminder{
		User:    &models.User{ID: uuid.New(), TelegramChatID: &chatID},
		Subject: "Due today",
	}
	if err := n.Send(context.Background(), reminder); err == nil {
		t.Fatal("Send() expected error")
	}
}
