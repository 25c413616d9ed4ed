package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv string
	Port   string

	// Directory upstream
	DirectoryURL           string
	DownstreamReadTimeout  time.Duration
	DownstreamWriteTimeout time.Duration

	// License enrichment
	EnrichConcurrency   int
	EnrichLookupTimeout time.Duration

	// Admin session tokens
	JWTSecret string
	JWTTTL    time.Duration

	// Redis (optional: token store + rate limit)
	RedisAddr string
	RedisPass string
	RedisDB   int

	// Postgres (optional: review decision log)
	DatabaseURL string

	// RabbitMQ (optional: notification publishing)
	RabbitURL      string
	RabbitExchange string

	// Rate limit
	RLEnabled bool
	RLLimit   int
	RLWindow  time.Duration

	CORSAllowedOrigins []string

	// Tracing
	OTELEnabled     bool
	OTELEndpoint    string
	OTELSampleRatio float64
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv: getEnv("APP_ENV", "dev"),
		Port:   getEnv("HTTP_PORT", "8080"),

		DirectoryURL:           getEnv("DIRECTORY_URL", "http://localhost:8132/api"),
		DownstreamReadTimeout:  getDuration("DOWNSTREAM_READ_TIMEOUT", 2*time.Second),
		DownstreamWriteTimeout: getDuration("DOWNSTREAM_WRITE_TIMEOUT", 5*time.Second),

		EnrichConcurrency:   getInt("ENRICH_CONCURRENCY", 8),
		EnrichLookupTimeout: getDuration("ENRICH_LOOKUP_TIMEOUT", 3*time.Second),

		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTTTL:    getDuration("JWT_TTL", 12*time.Hour),

		RedisAddr: getEnv("REDIS_ADDR", ""),
		RedisPass: getEnv("REDIS_PASSWORD", ""),
		RedisDB:   getInt("REDIS_DB", 0),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		RabbitURL:      firstNonEmpty(getEnv("RABBITMQ_URL", ""), getEnv("RABBIT_URL", "")),
		RabbitExchange: getEnv("RABBITMQ_EXCHANGE", "roadside.notifications"),

		RLLimit:  getInt("RL_REQUESTS_LIMIT", 120),
		RLWindow: time.Duration(getInt("RL_WINDOW_SECONDS", 60)) * time.Second,

		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173")),

		OTELEndpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTELSampleRatio: getFloat("OTEL_SAMPLE_RATIO", 1),
	}

	var err error
	if cfg.RLEnabled, err = getBool("RL_ENABLED", true); err != nil {
		return nil, err
	}
	if cfg.OTELEnabled, err = getBool("OTEL_ENABLED", false); err != nil {
		return nil, err
	}

	if cfg.JWTSecret == "" {
		if cfg.AppEnv != "dev" {
			return nil, fmt.Errorf("missing JWT_SECRET (required when APP_ENV != dev)")
		}
		cfg.JWTSecret = "change-me-secret"
	}
	if cfg.EnrichConcurrency < 1 {
		return nil, fmt.Errorf("ENRICH_CONCURRENCY must be >= 1, got %d", cfg.EnrichConcurrency)
	}

	return cfg, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getInt(k string, def int) int {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getBool(k string, def bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def, nil
	}
	switch strings.ToLower(v) {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return def, fmt.Errorf("invalid boolean env %s=%q", k, v)
	}
}

func getFloat(k string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getDuration(k string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
