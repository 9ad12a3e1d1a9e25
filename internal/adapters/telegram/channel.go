package telegram

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"tg-relay-bot/internal/domain"
	"tg-relay-bot/internal/infra/metrics"
)

// Sender покрывает отправку сообщений Bot API, чтобы канал можно было
// проверять без живого бота.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Channel доставляет текст одному пользователю Telegram. Тексты длиннее
// лимита Bot API отправляются несколькими сообщениями.
type Channel struct {
	bot Sender
}

var _ domain.DeliveryChannel = (*Channel)(nil)

// NewChannel создаёт канал доставки поверх Bot API.
func NewChannel(bot Sender) *Channel {
	return &Channel{bot: bot}
}

// Deliver отправляет content адресату. Вызов ограничен дедлайном контекста:
// по его истечении доставка фиксируется как timeout.
func (c *Channel) Deliver(ctx context.Context, recipient domain.Recipient, content string) domain.DeliveryOutcome {
	outcome := domain.DeliveryOutcome{Recipient: recipient}

	done := make(chan error, 1)
	go func() {
		var err error
		for _, part := range SplitMessage(content) {
			start := time.Now()
			_, err = c.bot.Send(tgbotapi.NewMessage(recipient.TGUserID, part))
			metrics.ObserveNetworkRequest("telegram", "send_message", "bot_api", start, err)
			if err != nil {
				break
			}
		}
		done <- err
	}()

	select {
	case <-ctx.Done():
		outcome.Failure = domain.FailureTimeout
		outcome.Error = ctx.Err().Error()
	case err := <-done:
		if err != nil {
			outcome.Failure = domain.FailureUnreachable
			outcome.Error = err.Error()
		} else {
			outcome.OK = true
		}
	}
	return outcome
}
