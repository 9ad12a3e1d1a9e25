package forward

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"tg-relay-bot/internal/domain"
	"tg-relay-bot/internal/infra/metrics"
)

// Channel пересылает содержимое сообщения на внешний HTTP-адрес JSON-постом
// вида {"message": content}. Пересылка строго best-effort: любой отказ
// фиксируется в исходе и никогда не эскалируется.
type Channel struct {
	client *http.Client
}

var _ domain.DeliveryChannel = (*Channel)(nil)

// NewChannel создаёт канал внешней пересылки.
func NewChannel(timeout time.Duration) *Channel {
	return &Channel{client: &http.Client{Timeout: timeout}}
}

type forwardPayload struct {
	Message string `json:"message"`
}

// Deliver отправляет content на адрес получателя.
func (c *Channel) Deliver(ctx context.Context, recipient domain.Recipient, content string) domain.DeliveryOutcome {
	outcome := domain.DeliveryOutcome{Recipient: recipient}

	body, err := json.Marshal(forwardPayload{Message: content})
	if err != nil {
		outcome.Failure = domain.FailureUnreachable
		outcome.Error = err.Error()
		return outcome
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, recipient.Address, bytes.NewReader(body))
	if err != nil {
		outcome.Failure = domain.FailureUnreachable
		outcome.Error = err.Error()
		return outcome
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	metrics.ObserveNetworkRequest("forward", "post", req.URL.Host, start, err)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			outcome.Failure = domain.FailureTimeout
		} else {
			outcome.Failure = domain.FailureUnreachable
		}
		outcome.Error = err.Error()
		return outcome
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		outcome.Failure = domain.FailureNonSuccessStatus
		outcome.Error = fmt.Sprintf("status %d", resp.StatusCode)
		return outcome
	}
	outcome.OK = true
	return outcome
}
