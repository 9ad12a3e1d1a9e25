package domain

import "errors"

var (
	// ErrBadCommand — входная строка пуста или не содержит полезного текста.
	ErrBadCommand = errors.New("команда не распознана")
	// ErrUnknownRecipient — указанный @username не найден в реестре.
	ErrUnknownRecipient = errors.New("получатель не найден")
	// ErrUnknownSender — отправитель отсутствует в реестре на момент записи.
	ErrUnknownSender = errors.New("отправитель не найден")
	// ErrStoreUnavailable — ошибка ввода-вывода долговременного хранилища.
	ErrStoreUnavailable = errors.New("хранилище недоступно")
)
