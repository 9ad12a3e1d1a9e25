package relay

import (
	"regexp"
	"strings"

	"tg-relay-bot/internal/domain"
)

var (
	forwardRe = regexp.MustCompile(`(?s)^/user_send\s*(https?://\S+)?\s*(.*)$`)
	directRe  = regexp.MustCompile(`(?s)^/bot_send\s+(?:(@\w+)\s+)?(.+)$`)
)

// Classify разбирает сырую команду в типизированное намерение доставки.
//
// Префиксы чувствительны к регистру и распознаются в начале строки:
// /user_send с необязательным абсолютным URL — пересылка на внешний адрес,
// /bot_send с необязательным @username — адресная отправка или рассылка.
// Текст без распознанного префикса трактуется как рассылка всем — это
// политика маршрутизации по умолчанию, а не ошибка разбора.
func Classify(raw string) domain.DeliveryIntent {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return unrecognized("empty")
	}

	switch {
	case strings.HasPrefix(trimmed, "/user_send"):
		m := forwardRe.FindStringSubmatch(trimmed)
		content := strings.TrimSpace(m[2])
		if content == "" {
			return unrecognized("no content")
		}
		return domain.DeliveryIntent{
			Kind:    domain.IntentExternalForward,
			Address: m[1],
			Content: content,
		}
	case strings.HasPrefix(trimmed, "/bot_send"):
		m := directRe.FindStringSubmatch(trimmed)
		if m == nil {
			return unrecognized("no content")
		}
		content := strings.TrimSpace(m[2])
		if content == "" {
			return unrecognized("no content")
		}
		if username := strings.TrimPrefix(m[1], "@"); username != "" {
			return domain.DeliveryIntent{
				Kind:           domain.IntentDirectUser,
				TargetUsername: username,
				Content:        content,
			}
		}
		return domain.DeliveryIntent{Kind: domain.IntentBroadcast, Content: content}
	default:
		return domain.DeliveryIntent{Kind: domain.IntentBroadcast, Content: trimmed}
	}
}

func unrecognized(reason string) domain.DeliveryIntent {
	return domain.DeliveryIntent{Kind: domain.IntentUnrecognized, Reason: reason}
}
