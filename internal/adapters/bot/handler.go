package bot

import (
	"context"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"tg-relay-bot/internal/adapters/telegram"
	"tg-relay-bot/internal/domain"
)

// RelayAPI покрывает вызовы входной двери ретрансляции.
type RelayAPI interface {
	UserSend(ctx context.Context, content string, fromUserID int64) (string, error)
	BotSend(ctx context.Context, content string, fromUserID int64, saveToDB bool) (string, error)
	DefaultSend(ctx context.Context, content string, fromUserID int64) (string, error)
}

// Handler обслуживает вебхук бота: регистрирует пользователей по /start и
// передаёт остальные сообщения в API ретрансляции.
type Handler struct {
	bot       telegram.Sender
	log       zerolog.Logger
	api       RelayAPI
	directory domain.UserDirectory
	// jobs — необязательная очередь для повторной обработки, когда API
	// недоступен. При nil отказ сразу сообщается пользователю.
	jobs domain.RelayQueue
}

// NewHandler создаёт обработчик.
func NewHandler(bot telegram.Sender, log zerolog.Logger, api RelayAPI, directory domain.UserDirectory, jobs domain.RelayQueue) *Handler {
	return &Handler{bot: bot, log: log, api: api, directory: directory, jobs: jobs}
}

// HandleUpdate обрабатывает входящий апдейт.
func (h *Handler) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.Message != nil {
		h.handleMessage(ctx, upd.Message)
	}
}

func (h *Handler) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		h.reply(msg.Chat.ID, "Не удалось определить пользователя")
		return
	}
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		h.log.Warn().Int64("user", msg.From.ID).Msg("пустое сообщение пропущено")
		return
	}
	if strings.HasPrefix(text, "/start") {
		h.handleStart(ctx, msg)
		return
	}
	h.relay(ctx, msg.Chat.ID, msg.From.ID, text)
}

func (h *Handler) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	name := strings.TrimSpace(msg.From.FirstName + " " + msg.From.LastName)
	_, created, err := h.directory.UpsertUser(ctx, msg.From.ID, msg.From.UserName, name, time.Now().UTC())
	if err != nil {
		h.log.Error().Err(err).Int64("user", msg.From.ID).Msg("регистрация не удалась")
		h.reply(msg.Chat.ID, "Произошла ошибка.")
		return
	}
	if created {
		h.reply(msg.Chat.ID, "Привет, "+name+"! Ты успешно зарегистрирован.")
		return
	}
	h.reply(msg.Chat.ID, "Добро пожаловать снова, "+name+"!")
}

func (h *Handler) relay(ctx context.Context, chatID, fromUserID int64, text string) {
	var err error
	switch {
	case strings.HasPrefix(text, "/user_send"):
		_, err = h.api.UserSend(ctx, text, fromUserID)
	case strings.HasPrefix(text, "/bot_send"):
		_, err = h.api.BotSend(ctx, text, fromUserID, false)
	default:
		_, err = h.api.DefaultSend(ctx, text, fromUserID)
	}
	if err == nil {
		h.reply(chatID, "Сообщение успешно обработано.")
		return
	}
	h.log.Error().Err(err).Int64("user", fromUserID).Msg("ошибка при отправке данных в API")

	if h.jobs != nil {
		job := domain.RelayJob{
			ID:          uuid.NewString(),
			Raw:         text,
			SenderID:    fromUserID,
			RequestedAt: time.Now().UTC(),
			Source:      domain.RelaySourceGateway,
		}
		if enqErr := h.jobs.Enqueue(ctx, job); enqErr == nil {
			h.reply(chatID, "Сообщение поставлено в повторную обработку.")
			return
		}
		h.log.Error().Int64("user", fromUserID).Msg("не удалось поставить задачу в очередь")
	}
	h.reply(chatID, "Ошибка при обработке сообщения.")
}

func (h *Handler) reply(chatID int64, text string) {
	if _, err := h.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		h.log.Error().Err(err).Int64("chat", chatID).Msg("не удалось отправить ответ")
	}
}
