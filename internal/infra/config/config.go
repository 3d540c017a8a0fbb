package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates application configuration values loaded from environment variables.
type Config struct {
	Env              string
	HTTPAddr         string
	MongoURI         string
	MongoDB          string
	KafkaBrokers     []string
	KafkaTopicPrefix string
	IdempotencyTTL   time.Duration

	OutboxPollInterval time.Duration
	RetryBackoff       []time.Duration

	// Marketplace policy constants. The defaults are product decisions
	// (10% service fee, 8% tax, 1/5/7 day cancellation notice) and
	// should only change on a product requirement.
	ServiceFeeBP   int64
	TaxRateBP      int64
	NoticeFlexible int
	NoticeModerate int
	NoticeStrict   int
}

// Load parses configuration from the current environment. Mongo and
// Kafka settings are optional; when absent the binary falls back to the
// in-memory wiring.
func Load() (Config, error) {
	cfg := Config{
		Env:              getEnv("APP_ENV", "dev"),
		HTTPAddr:         getEnv("HTTP_ADDR", ":8080"),
		MongoURI:         os.Getenv("MONGO_URI"),
		MongoDB:          getEnv("MONGO_DB", "staynest"),
		KafkaTopicPrefix: getEnv("KAFKA_TOPIC_PREFIX", ""),
	}
	brokers := getEnv("KAFKA_BROKERS", "")
	if brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}

	idempotencyTTL, err := parseDurationEnv("IDEMP_TTL", 168*time.Hour)
	if err != nil {
		return Config{}, err
	}
	cfg.IdempotencyTTL = idempotencyTTL

	poll, err := parseDurationEnv("OUTBOX_POLL_INTERVAL", 500*time.Millisecond)
	if err != nil {
		return Config{}, err
	}
	cfg.OutboxPollInterval = poll

	retryStr := getEnv("RETRY_BACKOFF", "1s,5s,30s")
	for _, raw := range strings.Split(retryStr, ",") {
		val := strings.TrimSpace(raw)
		if val == "" {
			continue
		}
		d, err := time.ParseDuration(val)
		if err != nil {
			return Config{}, fmt.Errorf("invalid RETRY_BACKOFF component %q: %w", raw, err)
		}
		cfg.RetryBackoff = append(cfg.RetryBackoff, d)
	}

	if cfg.ServiceFeeBP, err = parseIntEnv("SERVICE_FEE_BP", 1000); err != nil {
		return Config{}, err
	}
	if cfg.TaxRateBP, err = parseIntEnv("TAX_RATE_BP", 800); err != nil {
		return Config{}, err
	}
	flexible, err := parseIntEnv("NOTICE_FLEXIBLE_DAYS", 1)
	if err != nil {
		return Config{}, err
	}
	moderate, err := parseIntEnv("NOTICE_MODERATE_DAYS", 5)
	if err != nil {
		return Config{}, err
	}
	strict, err := parseIntEnv("NOTICE_STRICT_DAYS", 7)
	if err != nil {
		return Config{}, err
	}
	cfg.NoticeFlexible = int(flexible)
	cfg.NoticeModerate = int(moderate)
	cfg.NoticeStrict = int(strict)

	if cfg.ServiceFeeBP < 0 || cfg.TaxRateBP < 0 {
		return Config{}, fmt.Errorf("fee rates cannot be negative")
	}
	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s duration: %w", key, err)
	}
	return d, nil
}

func parseIntEnv(key string, def int64) (int64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s integer: %w", key, err)
	}
	return v, nil
}
