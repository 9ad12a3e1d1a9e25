package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"tg-relay-bot/internal/domain"
)

var (
	RelayRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_requests_total",
		Help: "Запросы на ретрансляцию по распознанному намерению",
	}, []string{"intent"})

	RelayFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_failures_total",
		Help: "Отказы обработки запросов по причинам",
	}, []string{"reason"})

	FanoutSize = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "relay_fanout_size",
		Help:    "Число адресатов одной веерной рассылки",
		Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
	}, []string{"intent"})

	DeliveryFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_delivery_failures_total",
		Help: "Неудачные доставки по видам отказа",
	}, []string{"failure"})

	NetworkRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "network_request_duration_seconds",
		Help:    "Длительность сетевых запросов",
		Buckets: prometheus.DefBuckets,
	}, []string{"component", "operation", "target", "status"})

	NetworkRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "network_request_total",
		Help: "Количество сетевых запросов",
	}, []string{"component", "operation", "target", "status"})
)

// MustRegister регистрирует метрики.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		RelayRequestsTotal,
		RelayFailuresTotal,
		FanoutSize,
		DeliveryFailuresTotal,
		NetworkRequestDuration,
		NetworkRequestTotal,
	)
}

// StartServer запускает HTTP сервер с эндпоинтом /metrics.
func StartServer(ctx context.Context, logger zerolog.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownTimeout); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: graceful shutdown failed")
		}
	}()

	go func() {
		logger.Info().Str("addr", addr).Msg("metrics: server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: server stopped")
		}
	}()
}

// ObserveNetworkRequest записывает длительность и статус сетевого запроса.
func ObserveNetworkRequest(component, operation, target string, start time.Time, err error) {
	if component == "" {
		component = "unknown"
	}
	if operation == "" {
		operation = "unknown"
	}
	if target == "" {
		target = "unknown"
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	duration := time.Since(start).Seconds()
	NetworkRequestDuration.WithLabelValues(component, operation, target, status).Observe(duration)
	NetworkRequestTotal.WithLabelValues(component, operation, target, status).Inc()
}

// IncRelayRequest увеличивает счётчик запросов по намерению.
func IncRelayRequest(intent string) {
	RelayRequestsTotal.WithLabelValues(intent).Inc()
}

// IncRelayFailure увеличивает счётчик отказов по причине.
func IncRelayFailure(reason string) {
	RelayFailuresTotal.WithLabelValues(reason).Inc()
}

// ObserveFanout записывает размер рассылки и неудачные доставки.
func ObserveFanout(intent string, result domain.FanoutResult) {
	FanoutSize.WithLabelValues(intent).Observe(float64(result.Attempted))
	for _, outcome := range result.Outcomes {
		if !outcome.OK {
			DeliveryFailuresTotal.WithLabelValues(string(outcome.Failure)).Inc()
		}
	}
}
