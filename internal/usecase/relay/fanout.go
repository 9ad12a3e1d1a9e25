package relay

import (
	"context"
	"sync"
	"time"

	"tg-relay-bot/internal/domain"
)

const defaultDeliveryTimeout = 5 * time.Second

// Coordinator выполняет веерную рассылку: по одной горутине на адресата,
// ожидание всех доставок перед возвратом. Отказ одного адресата не влияет
// на остальных и не прерывает рассылку.
type Coordinator struct {
	timeout time.Duration
}

// NewCoordinator создаёт координатор с таймаутом на одну доставку.
func NewCoordinator(timeout time.Duration) *Coordinator {
	if timeout <= 0 {
		timeout = defaultDeliveryTimeout
	}
	return &Coordinator{timeout: timeout}
}

// Fanout конкурентно доставляет content каждому адресату через channel.
// Возвращает ровно len(recipients) исходов в порядке переданных адресатов.
func (c *Coordinator) Fanout(ctx context.Context, recipients []domain.Recipient, content string, channel domain.DeliveryChannel) domain.FanoutResult {
	outcomes := make([]domain.DeliveryOutcome, len(recipients))

	var wg sync.WaitGroup
	for i, recipient := range recipients {
		wg.Add(1)
		go func(i int, recipient domain.Recipient) {
			defer wg.Done()
			callCtx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()
			outcomes[i] = channel.Deliver(callCtx, recipient, content)
		}(i, recipient)
	}
	wg.Wait()

	result := domain.FanoutResult{Outcomes: outcomes, Attempted: len(recipients)}
	for _, outcome := range outcomes {
		if outcome.OK {
			result.Succeeded++
		} else {
			result.Failed++
		}
	}
	return result
}
