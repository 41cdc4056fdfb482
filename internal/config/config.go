package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/simaogato/ratewatch/internal/domain"
	"github.com/simaogato/ratewatch/internal/usecase/variation"
	"github.com/sirupsen/logrus"
)

// PostgresConfig holds the database connection settings.
type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// ConnString renders the lib/pq connection string.
func (c PostgresConfig) ConnString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// KafkaConfig holds the broker and topic settings for both the trigger
// consumer and the notification producer.
type KafkaConfig struct {
	Broker            string
	TriggerTopic      string
	TriggerGroupID    string
	NotificationTopic string
}

// FeedConfig holds the CoinMarketCap client settings.
type FeedConfig struct {
	BaseURL string
	APIKey  string
}

// DetectionConfig holds the variation detection tunables.
type DetectionConfig struct {
	ReferenceCurrency string
	Threshold         decimal.Decimal
	LookbackWindow    time.Duration
	EvictionMargin    time.Duration
}

// Config is the process configuration, loaded from the environment with
// an optional .env file.
type Config struct {
	Postgres  PostgresConfig
	Kafka     KafkaConfig
	Feed      FeedConfig
	Detection DetectionConfig
}

// Load reads configuration from the environment. Every value has a
// development default except the CoinMarketCap API key, which must be set
// for the feed to authenticate.
func Load(logger *logrus.Logger) *Config {
	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file found, using environment variables")
	}

	return &Config{
		Postgres: PostgresConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "ratewatch"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Kafka: KafkaConfig{
			Broker:            getEnv("KAFKA_BROKER", "localhost:9092"),
			TriggerTopic:      getEnv("KAFKA_TRIGGER_TOPIC", "rates-service-trigger"),
			TriggerGroupID:    getEnv("KAFKA_TRIGGER_GROUP_ID", "ratewatch"),
			NotificationTopic: getEnv("KAFKA_NOTIFICATION_TOPIC", "rate-change-notifications"),
		},
		Feed: FeedConfig{
			BaseURL: getEnv("CMC_BASE_URL", ""),
			APIKey:  getEnv("CMC_API_KEY", ""),
		},
		Detection: DetectionConfig{
			ReferenceCurrency: getEnv("REFERENCE_CURRENCY", "USD"),
			Threshold:         getEnvAsDecimal(logger, "VARIATION_THRESHOLD", variation.DefaultThreshold),
			LookbackWindow:    getEnvAsDuration(logger, "LOOKBACK_WINDOW", domain.DefaultLookbackWindow),
			EvictionMargin:    getEnvAsDuration(logger, "EVICTION_MARGIN", domain.DefaultEvictionMargin),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(logger *logrus.Logger, key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		logger.WithField("key", key).Warn("invalid duration value, using default")
		return defaultValue
	}
	return value
}

func getEnvAsDecimal(logger *logrus.Logger, key string, defaultValue decimal.Decimal) decimal.Decimal {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := decimal.NewFromString(valueStr)
	if err != nil {
		logger.WithField("key", key).Warn("invalid decimal value, using default")
		return defaultValue
	}
	return value
}
