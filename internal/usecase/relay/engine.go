package relay

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"tg-relay-bot/internal/domain"
	"tg-relay-bot/internal/infra/metrics"
)

// RelayRequest — один входящий запрос на ретрансляцию.
type RelayRequest struct {
	Raw      string
	SenderID int64
	// SaveToDB включает сохранение для адресных и широковещательных
	// отправок. Пересылки на внешний адрес сохраняются всегда.
	SaveToDB bool
}

// RelaySummary — итог обработки запроса: распознанное намерение, результаты
// доставки и сохранённое сообщение, если запись выполнялась.
type RelaySummary struct {
	Intent  domain.DeliveryIntent
	Result  domain.FanoutResult
	Message *domain.Message
}

// Engine связывает классификатор, реестр получателей, каналы доставки и
// запись сообщений: classify → resolve → fan-out → record.
type Engine struct {
	directory domain.UserDirectory
	recorder  domain.MessageRecorder
	direct    domain.DeliveryChannel
	forward   domain.DeliveryChannel
	fanout    *Coordinator
	log       zerolog.Logger
}

// NewEngine создаёт движок ретрансляции.
func NewEngine(directory domain.UserDirectory, recorder domain.MessageRecorder, direct, forward domain.DeliveryChannel, fanout *Coordinator, log zerolog.Logger) *Engine {
	return &Engine{
		directory: directory,
		recorder:  recorder,
		direct:    direct,
		forward:   forward,
		fanout:    fanout,
		log:       log,
	}
}

// Relay обрабатывает один запрос. Ошибки классификации и резолва прерывают
// обработку до диспетчеризации. Отказы доставки не прерывают запрос и видны
// только в FanoutResult. Ошибка записи возвращается вместе с результатами
// уже состоявшихся доставок — откат доставки невозможен.
func (e *Engine) Relay(ctx context.Context, req RelayRequest) (RelaySummary, error) {
	intent := Classify(req.Raw)
	summary := RelaySummary{Intent: intent}
	metrics.IncRelayRequest(string(intent.Kind))

	if intent.Kind == domain.IntentUnrecognized {
		metrics.IncRelayFailure("bad_command")
		return summary, fmt.Errorf("%w: %s", domain.ErrBadCommand, intent.Reason)
	}

	recipients, channel, err := e.resolve(ctx, intent)
	if err != nil {
		return summary, err
	}

	summary.Result = e.fanout.Fanout(ctx, recipients, intent.Content, channel)
	metrics.ObserveFanout(string(intent.Kind), summary.Result)
	for _, outcome := range summary.Result.Outcomes {
		if !outcome.OK {
			e.log.Warn().
				Int64("recipient", outcome.Recipient.TGUserID).
				Str("address", outcome.Recipient.Address).
				Str("failure", string(outcome.Failure)).
				Str("detail", outcome.Error).
				Msg("доставка не удалась")
		}
	}

	if intent.Kind == domain.IntentExternalForward || req.SaveToDB {
		msg, err := e.recorder.RecordMessage(ctx, req.SenderID, intent.Content)
		if err != nil {
			metrics.IncRelayFailure("persist_error")
			return summary, fmt.Errorf("запись сообщения: %w", err)
		}
		summary.Message = &msg
	}
	return summary, nil
}

func (e *Engine) resolve(ctx context.Context, intent domain.DeliveryIntent) ([]domain.Recipient, domain.DeliveryChannel, error) {
	switch intent.Kind {
	case domain.IntentDirectUser:
		user, found, err := e.directory.ResolveByUsername(ctx, intent.TargetUsername)
		if err != nil {
			metrics.IncRelayFailure("store_unavailable")
			return nil, nil, fmt.Errorf("резолв получателя: %w", err)
		}
		if !found {
			metrics.IncRelayFailure("unknown_recipient")
			return nil, nil, fmt.Errorf("%w: @%s", domain.ErrUnknownRecipient, intent.TargetUsername)
		}
		return []domain.Recipient{{TGUserID: user.TGUserID}}, e.direct, nil
	case domain.IntentBroadcast:
		ids, err := e.directory.ResolveAll(ctx)
		if err != nil {
			metrics.IncRelayFailure("store_unavailable")
			return nil, nil, fmt.Errorf("снимок реестра: %w", err)
		}
		recipients := make([]domain.Recipient, 0, len(ids))
		for _, id := range ids {
			recipients = append(recipients, domain.Recipient{TGUserID: id})
		}
		return recipients, e.direct, nil
	default:
		// Пересылка без адреса: сообщение только сохраняется.
		if intent.Address == "" {
			return nil, e.forward, nil
		}
		return []domain.Recipient{{Address: intent.Address}}, e.forward, nil
	}
}
