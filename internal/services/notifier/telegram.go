package notifier

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/kronevakt/kronevakt/internal/domain"
	"github.com/kronevakt/kronevakt/pkg/retrier"
)

// TelegramNotifier delivers change notifications as Telegram messages.
type TelegramNotifier struct {
	api     *tgbotapi.BotAPI
	retrier *retrier.Retrier
	logger  *zap.Logger
}

// NewTelegramNotifier wraps an authorized bot API client.
func NewTelegramNotifier(api *tgbotapi.BotAPI, logger *zap.Logger) *TelegramNotifier {
	return &TelegramNotifier{
		api: api,
		retrier: retrier.New(
			retrier.WithMaxRetries(3),
			retrier.WithInitialInterval(time.Second),
		),
		logger: logger,
	}
}

// Notify sends the change message to the event's user, retrying transient
// Telegram API failures.
func (n *TelegramNotifier) Notify(ctx context.Context, event domain.NotificationEvent) error {
	msg := tgbotapi.NewMessage(event.UserID, FormatChangeMessage(event))
	msg.ParseMode = tgbotapi.ModeMarkdown

	err := n.retrier.Do(ctx, func(_ context.Context) error {
		_, sendErr := n.api.Send(msg)
		return sendErr
	})
	if err != nil {
		return errors.Wrapf(err, "send notification to user %d", event.UserID)
	}

	n.logger.Info("notification delivered",
		zap.Int64("user_id", event.UserID),
		zap.String("event_id", event.ID))

	return nil
}
