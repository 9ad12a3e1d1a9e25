package domain

import "time"

// User описывает зарегистрированного пользователя Telegram.
type User struct {
	ID            int64
	TGUserID      int64
	Username      string
	Name          string
	LastStartTime time.Time
}

// Message представляет сохранённое сообщение. После записи не изменяется.
type Message struct {
	ID        int64
	Content   string
	SenderID  int64
	CreatedAt time.Time
}

// IntentKind определяет режим доставки, распознанный классификатором.
type IntentKind string

const (
	// IntentDirectUser — отправка одному пользователю по @username.
	IntentDirectUser IntentKind = "direct_user"
	// IntentBroadcast — отправка всем зарегистрированным пользователям.
	IntentBroadcast IntentKind = "broadcast"
	// IntentExternalForward — пересылка на внешний HTTP-адрес.
	IntentExternalForward IntentKind = "external_forward"
	// IntentUnrecognized — команда не распознана, доставка не выполняется.
	IntentUnrecognized IntentKind = "unrecognized"
)

// DeliveryIntent — типизированный результат разбора сырой команды.
// Content обрезан и непуст для всех вариантов, кроме IntentUnrecognized.
type DeliveryIntent struct {
	Kind IntentKind
	// TargetUsername заполнен для IntentDirectUser (без ведущей @).
	TargetUsername string
	// Address заполнен для IntentExternalForward. Пустой адрес означает,
	// что сообщение только сохраняется, без внешней отправки.
	Address string
	Content string
	// Reason заполнен для IntentUnrecognized.
	Reason string
}

// Recipient — один адресат доставки: либо пользователь Telegram,
// либо внешний HTTP-адрес.
type Recipient struct {
	TGUserID int64
	Address  string
}

// FailureKind классифицирует неуспешную доставку.
type FailureKind string

const (
	FailureUnreachable      FailureKind = "unreachable"
	FailureTimeout          FailureKind = "timeout"
	FailureNonSuccessStatus FailureKind = "non_success_status"
)

// DeliveryOutcome — результат одной попытки доставки одному адресату.
type DeliveryOutcome struct {
	Recipient Recipient
	OK        bool
	Failure   FailureKind
	Error     string
}

// FanoutResult агрегирует результаты веерной рассылки. Порядок Outcomes
// совпадает с порядком адресатов при диспетчеризации.
type FanoutResult struct {
	Outcomes  []DeliveryOutcome
	Attempted int
	Succeeded int
	Failed    int
}
