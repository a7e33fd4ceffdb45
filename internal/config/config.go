package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Durable queue and submission pipeline.
	QueuePath     string
	SubmitTimeout time.Duration
	SyncInterval  time.Duration

	// Dispatch store and blob store collaborators.
	DispatchURL     string
	DispatchAPIKey  string
	DispatchTimeout time.Duration
	BlobURL         string

	// Weather forecast source and the monitored location.
	WeatherURL     string
	WeatherTimeout time.Duration
	Latitude       float64
	Longitude      float64

	// Gemini risk analysis.
	GeminiAPIKey  string
	GeminiURL     string
	GeminiTimeout time.Duration
	AIEnabled     bool
	AICacheTTL    time.Duration

	// Alert engine cadence.
	AlertRefreshInterval time.Duration

	// Connectivity probing.
	ProbeURL      string
	ProbeInterval time.Duration

	// Mapbox reverse geocoding.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration
	MapboxCacheSize int

	// Optional Kafka fan-out of alert cycles.
	KafkaBrokers     []string
	KafkaAlertsTopic string
	KafkaEnabled     bool

	// Twilio SMS notification of admins.
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string
	AdminPhones      []string
	SMSEnabled       bool
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	durations := map[string]*struct {
		def string
		val time.Duration
	}{
		"SUBMIT_TIMEOUT":         {def: "15s"},
		"SYNC_INTERVAL":          {def: "5m"},
		"DISPATCH_TIMEOUT":       {def: "10s"},
		"WEATHER_TIMEOUT":        {def: "10s"},
		"GEMINI_TIMEOUT":         {def: "20s"},
		"AI_CACHE_TTL":           {def: "10m"},
		"ALERT_REFRESH_INTERVAL": {def: "30m"},
		"PROBE_INTERVAL":         {def: "30s"},
		"MAPBOX_TIMEOUT":         {def: "5s"},
	}
	for key, d := range durations {
		v, perr := time.ParseDuration(sharedcfg.EnvOrDefault(key, d.def))
		if perr != nil || v <= 0 {
			return nil, fmt.Errorf("invalid %s", key)
		}
		d.val = v
	}

	lat, err := parseCoord("LATITUDE", "6.9271")
	if err != nil {
		return nil, err
	}
	lon, err := parseCoord("LONGITUDE", "79.8612")
	if err != nil {
		return nil, err
	}

	geminiKey := os.Getenv("GEMINI_API_KEY")
	aiEnabled := geminiKey != ""
	if v := os.Getenv("AI_ENABLED"); v != "" {
		aiEnabled = v == "true"
	}

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	brokers := sharedcfg.ParseBrokers(os.Getenv("KAFKA_BROKERS"))
	kafkaEnabled := len(brokers) > 0
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	twilioSID := os.Getenv("TWILIO_ACCOUNT_SID")
	twilioToken := os.Getenv("TWILIO_AUTH_TOKEN")
	twilioFrom := os.Getenv("TWILIO_FROM_NUMBER")
	adminPhones := splitPhones(os.Getenv("ADMIN_PHONE_NUMBERS"))
	smsEnabled := twilioSID != "" && twilioToken != "" && twilioFrom != ""
	if v := os.Getenv("SMS_ENABLED"); v != "" {
		smsEnabled = v == "true"
	}

	dispatchURL := sharedcfg.EnvOrDefault("DISPATCH_URL", "")

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		QueuePath:     sharedcfg.EnvOrDefault("QUEUE_PATH", "data/queue"),
		SubmitTimeout: durations["SUBMIT_TIMEOUT"].val,
		SyncInterval:  durations["SYNC_INTERVAL"].val,

		DispatchURL:     dispatchURL,
		DispatchAPIKey:  os.Getenv("DISPATCH_API_KEY"),
		DispatchTimeout: durations["DISPATCH_TIMEOUT"].val,
		BlobURL:         sharedcfg.EnvOrDefault("BLOB_URL", ""),

		WeatherURL:     sharedcfg.EnvOrDefault("WEATHER_URL", "https://api.open-meteo.com/v1/forecast"),
		WeatherTimeout: durations["WEATHER_TIMEOUT"].val,
		Latitude:       lat,
		Longitude:      lon,

		GeminiAPIKey:  geminiKey,
		GeminiURL:     sharedcfg.EnvOrDefault("GEMINI_URL", "https://generativelanguage.googleapis.com/v1beta/models/gemini-2.0-flash:generateContent"),
		GeminiTimeout: durations["GEMINI_TIMEOUT"].val,
		AIEnabled:     aiEnabled,
		AICacheTTL:    durations["AI_CACHE_TTL"].val,

		AlertRefreshInterval: durations["ALERT_REFRESH_INTERVAL"].val,

		ProbeURL:      sharedcfg.EnvOrDefault("PROBE_URL", ""),
		ProbeInterval: durations["PROBE_INTERVAL"].val,

		MapboxToken:     mapboxToken,
		MapboxEnabled:   mapboxEnabled,
		MapboxTimeout:   durations["MAPBOX_TIMEOUT"].val,
		MapboxCacheSize: parseMapboxCacheSize(),

		KafkaBrokers:     brokers,
		KafkaAlertsTopic: sharedcfg.EnvOrDefault("KAFKA_ALERTS_TOPIC", "weather-alerts"),
		KafkaEnabled:     kafkaEnabled,

		TwilioAccountSID: twilioSID,
		TwilioAuthToken:  twilioToken,
		TwilioFromNumber: twilioFrom,
		AdminPhones:      adminPhones,
		SMSEnabled:       smsEnabled,
	}

	if cfg.DispatchURL == "" {
		return nil, errors.New("DISPATCH_URL is required")
	}
	if cfg.AIEnabled && cfg.GeminiAPIKey == "" {
		return nil, errors.New("AI_ENABLED is true but GEMINI_API_KEY is not set")
	}
	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return nil, errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}
	if cfg.SMSEnabled {
		if cfg.TwilioAccountSID == "" || cfg.TwilioAuthToken == "" || cfg.TwilioFromNumber == "" {
			return nil, errors.New("SMS_ENABLED is true but Twilio credentials are incomplete")
		}
		if len(cfg.AdminPhones) == 0 {
			return nil, errors.New("SMS_ENABLED is true but ADMIN_PHONE_NUMBERS is not set")
		}
	}

	return cfg, nil
}

func parseCoord(key, def string) (float64, error) {
	v, err := strconv.ParseFloat(sharedcfg.EnvOrDefault(key, def), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return v, nil
}

func splitPhones(s string) []string {
	var phones []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			phones = append(phones, p)
		}
	}
	return phones
}

func parseMapboxCacheSize() int {
	if s := os.Getenv("MAPBOX_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}
