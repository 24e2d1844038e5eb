package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers     []string
	KafkaSourceTopic string
	KafkaSinkTopic   string
	KafkaGroupID     string
	HTTPAddr         string
	LogLevel         string
	LogFormat        string
	ShutdownTimeout  time.Duration

	BatchSize          int
	BatchFlushInterval time.Duration

	// Air quality provider configuration.
	AirQualityAPIKey    string
	AirQualityEnabled   bool
	AirQualityBaseURL   string
	AirQualityTimeout   time.Duration
	AirQualityCacheSize int
	AirQualityCacheTTL  time.Duration

	// Persistence.
	DBPath        string
	ProfilesFile  string
	ProfilesWatch bool
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	aqTimeout, err := parsePositiveDuration("AIRQUALITY_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}

	aqCacheTTL, err := parsePositiveDuration("AIRQUALITY_CACHE_TTL", "10m")
	if err != nil {
		return nil, err
	}

	apiKey := os.Getenv("AIRQUALITY_API_KEY")
	aqEnabled := apiKey != ""
	if v := os.Getenv("AIRQUALITY_ENABLED"); v != "" {
		aqEnabled = v == "true"
	}

	cfg := &Config{
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "raw-aqi-readings"),
		KafkaSinkTopic:     sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "aqi-advisories"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "aqi-advisory"),
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		AirQualityAPIKey:    apiKey,
		AirQualityEnabled:   aqEnabled,
		AirQualityBaseURL:   sharedcfg.EnvOrDefault("AIRQUALITY_BASE_URL", "https://airquality.googleapis.com/v1"),
		AirQualityTimeout:   aqTimeout,
		AirQualityCacheSize: parsePositiveInt("AIRQUALITY_CACHE_SIZE", 1000),
		AirQualityCacheTTL:  aqCacheTTL,

		DBPath:        sharedcfg.EnvOrDefault("DB_PATH", "data/aqi.db"),
		ProfilesFile:  os.Getenv("PROFILES_FILE"),
		ProfilesWatch: os.Getenv("PROFILES_WATCH") == "true",
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaSourceTopic == "" {
		return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
	}
	if cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required")
	}
	if cfg.AirQualityEnabled && cfg.AirQualityAPIKey == "" {
		return nil, errors.New("AIRQUALITY_ENABLED is true but AIRQUALITY_API_KEY is not set")
	}
	if cfg.DBPath == "" {
		return nil, errors.New("DB_PATH is required")
	}
	if cfg.ProfilesWatch && cfg.ProfilesFile == "" {
		return nil, errors.New("PROFILES_WATCH is true but PROFILES_FILE is not set")
	}

	return cfg, nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, errors.New("invalid " + key)
	}
	return d, nil
}

func parsePositiveInt(key string, def int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return def
}
