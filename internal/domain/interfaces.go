package domain

import (
	"context"
	"time"
)

// UserDirectory — реестр получателей поверх долговременного хранилища.
type UserDirectory interface {
	// ResolveAll возвращает идентификаторы всех зарегистрированных
	// пользователей. Порядок не специфицирован, но стабилен в рамках вызова.
	ResolveAll(ctx context.Context) ([]int64, error)
	// ResolveByUsername ищет пользователя по точному совпадению username.
	// Возвращает found=false, если пользователь не найден.
	ResolveByUsername(ctx context.Context, username string) (user User, found bool, err error)
	// UpsertUser создаёт пользователя при первом контакте или обновляет
	// username, имя и время последней активности. Возвращает created=true,
	// если запись была создана.
	UpsertUser(ctx context.Context, tgUserID int64, username, name string, activityTime time.Time) (user User, created bool, err error)
}

// MessageRecorder сохраняет успешно маршрутизированное сообщение.
type MessageRecorder interface {
	// RecordMessage повторно проверяет существование отправителя и атомарно
	// записывает сообщение. При отсутствии отправителя возвращает
	// ErrUnknownSender, ничего не сохранив.
	RecordMessage(ctx context.Context, senderID int64, content string) (Message, error)
}

// DeliveryChannel выполняет одну единицу доставки одному адресату.
// Вызов ограничен дедлайном переданного контекста.
type DeliveryChannel interface {
	Deliver(ctx context.Context, recipient Recipient, content string) DeliveryOutcome
}

// RelayQueue — очередь отложенных задач ретрансляции.
type RelayQueue interface {
	Enqueue(ctx context.Context, job RelayJob) error
	// Pop блокирующе читает следующую задачу из очереди.
	Pop(ctx context.Context) (RelayJob, error)
}

// Cache используется для простых TTL-хранилищ.
type Cache interface {
	// Once выполняет функцию, если ключ ещё не был задан.
	Once(key string, ttl time.Duration, fn func() error) error
	Set(key string, value []byte, ttl time.Duration) error
	Get(key string) ([]byte, error)
}
