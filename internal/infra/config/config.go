package config

import (
	"log"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// AppConfig описывает конфигурацию сервисов.
type AppConfig struct {
	AppEnv string `envconfig:"APP_ENV" default:"dev"`
	Port   int    `envconfig:"PORT" default:"8080"`

	Telegram struct {
		Token      string `envconfig:"TG_BOT_TOKEN"`
		WebhookURL string `envconfig:"TG_WEBHOOK_URL"`
	} `envconfig:""`

	PGDSN string `envconfig:"PG_DSN"`

	RedisAddr string `envconfig:"REDIS_ADDR"`
	AMQPURL   string `envconfig:"AMQP_URL"`

	RelayAPIURL string `envconfig:"RELAY_API_URL" default:"http://127.0.0.1:8080"`

	Timeouts struct {
		Delivery time.Duration `envconfig:"DELIVERY_TIMEOUT" default:"5s"`
		Forward  time.Duration `envconfig:"FORWARD_TIMEOUT" default:"5s"`
	} `envconfig:""`

	Queues struct {
		Relay string `envconfig:"RELAY_QUEUE_KEY" default:"relay_jobs"`
	} `envconfig:""`

	MetricsAddr string `envconfig:"METRICS_ADDR" default:":9090"`
}

// Load загружает конфиг из окружения.
func Load() AppConfig {
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("не удалось загрузить конфиг: %v", err)
	}
	return cfg
}
