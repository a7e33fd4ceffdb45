package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/rescuehq-core/internal/adapter/dispatch"
	"github.com/couchcryptid/rescuehq-core/internal/adapter/gemini"
	"github.com/couchcryptid/rescuehq-core/internal/adapter/httpapi"
	kafkaadapter "github.com/couchcryptid/rescuehq-core/internal/adapter/kafka"
	"github.com/couchcryptid/rescuehq-core/internal/adapter/mapbox"
	"github.com/couchcryptid/rescuehq-core/internal/adapter/openmeteo"
	"github.com/couchcryptid/rescuehq-core/internal/adapter/sms"
	"github.com/couchcryptid/rescuehq-core/internal/alert"
	"github.com/couchcryptid/rescuehq-core/internal/config"
	"github.com/couchcryptid/rescuehq-core/internal/connectivity"
	"github.com/couchcryptid/rescuehq-core/internal/domain"
	"github.com/couchcryptid/rescuehq-core/internal/observability"
	"github.com/couchcryptid/rescuehq-core/internal/queue"
	"github.com/couchcryptid/rescuehq-core/internal/submit"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	q, err := queue.Open(cfg.QueuePath, metrics, logger)
	if err != nil {
		logger.Error("failed to open durable queue", "error", err)
		os.Exit(1)
	}
	defer q.Close()

	monitor := connectivity.NewMonitor(metrics)
	store := dispatch.NewClient(cfg.DispatchURL, cfg.BlobURL, cfg.DispatchAPIKey, cfg.DispatchTimeout, logger)

	// Geocoding is feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN.
	var geocoder domain.Geocoder
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, metrics, logger)
		geocoder = mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox geocoding disabled")
	}

	var notifier submit.Notifier
	if cfg.SMSEnabled {
		notifier = sms.NewNotifier(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber, cfg.AdminPhones, metrics, logger)
		logger.Info("sms notifications enabled", "admins", len(cfg.AdminPhones))
	} else {
		logger.Info("sms notifications disabled")
	}

	pipeline := submit.NewPipeline(store, q, monitor, geocoder, notifier, cfg.SubmitTimeout, metrics, logger)
	syncer := submit.NewSyncer(q, store, monitor, cfg.SyncInterval, metrics, logger)

	weather := openmeteo.NewClient(cfg.WeatherURL, cfg.Latitude, cfg.Longitude, cfg.WeatherTimeout, logger)

	var analyzer *alert.Analyzer
	if cfg.AIEnabled {
		model := gemini.NewClient(cfg.GeminiURL, cfg.GeminiAPIKey, cfg.GeminiTimeout, logger)
		analyzer = alert.NewAnalyzer(model, cfg.AICacheTTL, metrics, logger)
		logger.Info("ai risk analysis enabled", "cache_ttl", cfg.AICacheTTL)
	} else {
		logger.Info("ai risk analysis disabled, using threshold engine")
	}

	var publisher alert.Publisher
	if cfg.KafkaEnabled {
		kp := kafkaadapter.NewPublisher(cfg.KafkaBrokers, cfg.KafkaAlertsTopic, logger)
		defer kp.Close()
		publisher = kp
		logger.Info("kafka alert fan-out enabled", "topic", cfg.KafkaAlertsTopic)
	}

	orchestrator := alert.NewOrchestrator(weather, analyzer, store, publisher, cfg.AlertRefreshInterval, metrics, logger)

	handler := httpapi.NewHandler(pipeline, syncer, q, orchestrator, monitor, logger)
	srv := httpapi.NewServer(cfg.HTTPAddr, handler, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil {
			logger.Error("http server error", "error", err)
		}
	}()

	go orchestrator.Run(ctx)
	go syncer.Run(ctx)

	probeURL := cfg.ProbeURL
	if probeURL == "" {
		probeURL = cfg.DispatchURL + "/health"
	}
	prober := connectivity.NewProber(probeURL, cfg.ProbeInterval, monitor, logger)
	go prober.Run(ctx)

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}
