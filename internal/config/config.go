// Package config loads engine configuration from the environment.
// An optional .env file in the working directory is read first so local
// development does not need exported variables.
package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	// HTTPAddr is the listen address of the REST surface.
	HTTPAddr string

	// SQLitePath is the path of the backing SQLite database file.
	SQLitePath string

	// RedisAddr enables the order read cache when non-empty.
	RedisAddr string

	// KafkaBrokers enables the order event publisher when non-empty.
	KafkaBrokers []string
	KafkaTopic   string

	// OTLPEndpoint is the OTel collector address (host:port).
	OTLPEndpoint string

	ServiceName string
}

// Load reads configuration with sensible local defaults.
func Load() Config {
	// Missing .env is fine; the environment still applies.
	_ = godotenv.Load()

	cfg := Config{
		HTTPAddr:     getEnv("HTTP_ADDR", ":8080"),
		SQLitePath:   getEnv("SQLITE_PATH", "./data/orders.db"),
		RedisAddr:    os.Getenv("REDIS_ADDR"),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "order-events"),
		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		ServiceName:  getEnv("SERVICE_NAME", "order-engine"),
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
