package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	chi "github.com/go-chi/chi/v5"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/redis/go-redis/v9"

	"tg-relay-bot/internal/adapters/bot"
	"tg-relay-bot/internal/adapters/relayclient"
	"tg-relay-bot/internal/adapters/repo"
	"tg-relay-bot/internal/domain"
	"tg-relay-bot/internal/infra/config"
	"tg-relay-bot/internal/infra/db"
	"tg-relay-bot/internal/infra/log"
	"tg-relay-bot/internal/infra/queue"
)

func main() {
	cfg := config.Load()
	logger := log.NewLogger(cfg.AppEnv)

	pool, err := db.Connect(cfg.PGDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("не удалось подключиться к БД")
	}
	defer pool.Close()

	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		logger.Fatal().Err(err).Msg("не удалось создать бота")
	}

	if cfg.Telegram.WebhookURL != "" {
		wh, err := tgbotapi.NewWebhook(cfg.Telegram.WebhookURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("некорректный адрес вебхука")
		}
		if _, err := botAPI.Request(wh); err != nil {
			logger.Fatal().Err(err).Msg("не удалось установить вебхук")
		}
	}

	apiClient, err := relayclient.New(cfg.RelayAPIURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("некорректный адрес API")
	}

	var jobs domain.RelayQueue
	switch {
	case cfg.AMQPURL != "":
		rabbit, err := queue.NewRabbitRelayQueue(cfg.AMQPURL, cfg.Queues.Relay)
		if err != nil {
			logger.Fatal().Err(err).Msg("не удалось подключиться к RabbitMQ")
		}
		defer rabbit.Close()
		jobs = rabbit
	case cfg.RedisAddr != "":
		jobs = queue.NewRedisRelayQueue(redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}), cfg.Queues.Relay)
	}

	repoAdapter := repo.NewPostgres(pool)
	h := bot.NewHandler(botAPI, logger.With().Str("component", "bot").Logger(), apiClient, repoAdapter, jobs)

	r := chi.NewRouter()
	r.Post("/bot/webhook", func(w http.ResponseWriter, r *http.Request) {
		var update tgbotapi.Update
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.HandleUpdate(r.Context(), update)
		w.WriteHeader(http.StatusOK)
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Port), Handler: r}
	go func() {
		logger.Info().Msg("бот-гейтвей запущен")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("HTTP сервер остановлен")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGTERM, syscall.SIGINT)
	<-stop
	logger.Info().Msg("остановка бота")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}
