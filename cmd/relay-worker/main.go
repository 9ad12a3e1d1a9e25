package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"tg-relay-bot/internal/adapters/forward"
	"tg-relay-bot/internal/adapters/repo"
	"tg-relay-bot/internal/adapters/telegram"
	"tg-relay-bot/internal/domain"
	"tg-relay-bot/internal/infra/cache"
	"tg-relay-bot/internal/infra/config"
	"tg-relay-bot/internal/infra/db"
	"tg-relay-bot/internal/infra/log"
	"tg-relay-bot/internal/infra/metrics"
	"tg-relay-bot/internal/infra/queue"
	"tg-relay-bot/internal/usecase/relay"
)

const jobDedupTTL = 24 * time.Hour

func main() {
	cfg := config.Load()
	logger := log.NewLogger(cfg.AppEnv)

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(cfg.PGDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: нет подключения к БД")
	}
	defer pool.Close()

	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: не удалось создать бота")
	}

	repoAdapter := repo.NewPostgres(pool)
	coordinator := relay.NewCoordinator(cfg.Timeouts.Delivery)
	engine := relay.NewEngine(
		repoAdapter,
		repoAdapter,
		telegram.NewChannel(botAPI),
		forward.NewChannel(cfg.Timeouts.Forward),
		coordinator,
		logger.With().Str("component", "relay").Logger(),
	)

	var jobs domain.RelayQueue
	var dedup domain.Cache
	switch {
	case cfg.AMQPURL != "":
		rabbit, err := queue.NewRabbitRelayQueue(cfg.AMQPURL, cfg.Queues.Relay)
		if err != nil {
			logger.Fatal().Err(err).Msg("worker: не удалось подключиться к RabbitMQ")
		}
		defer rabbit.Close()
		jobs = rabbit
	case cfg.RedisAddr != "":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		jobs = queue.NewRedisRelayQueue(client, cfg.Queues.Relay)
		dedup = cache.NewRedis(client)
	default:
		logger.Fatal().Msg("worker: не задан ни AMQP_URL, ни REDIS_ADDR")
	}
	if cfg.AMQPURL != "" && cfg.RedisAddr != "" {
		dedup = cache.NewRedis(redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}))
	}

	metrics.StartServer(ctx, logger.With().Str("component", "metrics").Logger(), cfg.MetricsAddr)
	logger.Info().Str("queue", cfg.Queues.Relay).Msg("worker: старт")

	for {
		job, err := jobs.Pop(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				logger.Info().Msg("worker: остановка")
				return
			}
			logger.Error().Err(err).Msg("worker: ошибка чтения очереди")
			continue
		}
		process(ctx, logger, engine, dedup, job)
	}
}

func process(ctx context.Context, logger zerolog.Logger, engine *relay.Engine, dedup domain.Cache, job domain.RelayJob) {
	run := func() error {
		_, err := engine.Relay(ctx, relay.RelayRequest{Raw: job.Raw, SenderID: job.SenderID, SaveToDB: job.SaveToDB})
		return err
	}
	var err error
	if dedup != nil && job.ID != "" {
		err = dedup.Once("relay_job:"+job.ID, jobDedupTTL, run)
	} else {
		err = run()
	}
	if err != nil {
		logger.Error().Err(err).
			Str("job", job.ID).
			Int64("sender", job.SenderID).
			Str("source", string(job.Source)).
			Msg("worker: задача не обработана")
	}
}
