package notify

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"marketplace-payments/internal/config"
	"marketplace-payments/internal/domain/ports/adapter"
)

var _ adapter.OpsAlerter = (*TelegramAlerter)(nil)

type botSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramAlerter posts alerts to the configured admin chats.
type TelegramAlerter struct {
	bot   botSender
	chats []int64
}

func NewTelegramAlerter(cfg config.TelegramConfig) (*TelegramAlerter, error) {
	if cfg.Token == "" {
		return nil, errors.New("telegram token empty")
	}
	if len(cfg.AdminChatIDs) == 0 {
		return nil, errors.New("telegram admin chats empty")
	}
	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, err
	}
	return &TelegramAlerter{bot: bot, chats: cfg.AdminChatIDs}, nil
}

func (a *TelegramAlerter) Alert(ctx context.Context, subject, body string) error {
	text := fmt.Sprintf("ALERT: %s\n\n%s", subject, body)
	var errs []error
	for _, id := range a.chats {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg := tgbotapi.NewMessage(id, text)
		msg.DisableWebPagePreview = true
		if _, err := a.bot.Send(msg); err != nil {
			errs = append(errs, fmt.Errorf("chat %d: %w", id, err))
		}
	}
	return errors.Join(errs...)
}
