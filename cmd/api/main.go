package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"

	"tg-relay-bot/internal/adapters/forward"
	"tg-relay-bot/internal/adapters/repo"
	"tg-relay-bot/internal/adapters/telegram"
	"tg-relay-bot/internal/domain"
	"tg-relay-bot/internal/infra/config"
	"tg-relay-bot/internal/infra/db"
	httpinfra "tg-relay-bot/internal/infra/http"
	"tg-relay-bot/internal/infra/log"
	"tg-relay-bot/internal/infra/metrics"
	"tg-relay-bot/internal/usecase/relay"
)

func main() {
	cfg := config.Load()
	logger := log.NewLogger(cfg.AppEnv)

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(cfg.PGDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: нет подключения к БД")
	}
	defer pool.Close()

	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: не удалось создать бота")
	}

	repoAdapter := repo.NewPostgres(pool)
	directChannel := telegram.NewChannel(botAPI)
	forwardChannel := forward.NewChannel(cfg.Timeouts.Forward)
	coordinator := relay.NewCoordinator(cfg.Timeouts.Delivery)
	engine := relay.NewEngine(repoAdapter, repoAdapter, directChannel, forwardChannel, coordinator, logger.With().Str("component", "relay").Logger())

	srv := httpinfra.NewServer(logger)
	srv.Router.Post("/user_send", handleUserSend(engine))
	srv.Router.Post("/bot_send", handleBotSend(engine))
	srv.Router.Post("/default_send", handleDefaultSend(engine))

	metrics.StartServer(ctx, logger.With().Str("component", "metrics").Logger(), cfg.MetricsAddr)
	go func() {
		if err := srv.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("api: сервер остановлен")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("api: остановка")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

type userSendRequest struct {
	Content    string `json:"content"`
	SenderID   int64  `json:"sender_id"`
	FromUserID int64  `json:"from_user_id"`
}

type botSendRequest struct {
	Content    string `json:"content"`
	FromUserID int64  `json:"from_user_id"`
	SaveToDB   bool   `json:"save_to_db"`
}

type defaultSendRequest struct {
	Content    string `json:"content"`
	FromUserID int64  `json:"from_user_id"`
}

func handleUserSend(engine *relay.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		var req userSendRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "некорректное тело запроса")
			return
		}
		sender := req.SenderID
		if sender == 0 {
			sender = req.FromUserID
		}
		runRelay(w, r, engine, relay.RelayRequest{Raw: req.Content, SenderID: sender, SaveToDB: true})
	}
}

func handleBotSend(engine *relay.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		var req botSendRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "некорректное тело запроса")
			return
		}
		runRelay(w, r, engine, relay.RelayRequest{Raw: req.Content, SenderID: req.FromUserID, SaveToDB: req.SaveToDB})
	}
}

func handleDefaultSend(engine *relay.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		var req defaultSendRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "некорректное тело запроса")
			return
		}
		runRelay(w, r, engine, relay.RelayRequest{Raw: req.Content, SenderID: req.FromUserID})
	}
}

func runRelay(w http.ResponseWriter, r *http.Request, engine *relay.Engine, req relay.RelayRequest) {
	summary, err := engine.Relay(r.Context(), req)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, map[string]string{"message": summaryText(summary)})
}

func summaryText(summary relay.RelaySummary) string {
	switch summary.Intent.Kind {
	case domain.IntentDirectUser:
		return fmt.Sprintf("Сообщение отправлено пользователю %s", summary.Intent.TargetUsername)
	case domain.IntentBroadcast:
		return "Сообщение отправлено всем пользователям"
	default:
		return "Сообщение обработано."
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrBadCommand):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnknownRecipient), errors.Is(err, domain.ErrUnknownSender):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": msg})
}
