package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration, loaded once from the environment.
type Config struct {
	Port      string
	DataDir   string
	JWTSecret string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	StripeSecretKey     string
	StripeWebhookSecret string

	AllowedOrigins []string

	IPLimitPerMin      int
	ScoringLimitPerDay int

	CacheTTL       time.Duration
	RequestTimeout time.Duration
}

// Load reads configuration from the environment with sensible defaults.
func Load() Config {
	return Config{
		Port:      getEnvOrDefault("PORT", "8080"),
		DataDir:   getEnvOrDefault("DATA_DIR", "./data"),
		JWTSecret: getEnvOrDefault("JWT_SECRET", "change-me-in-production"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		StripeSecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),

		AllowedOrigins: getEnvList("ALLOWED_ORIGINS", []string{"http://localhost:5173"}),

		IPLimitPerMin:      getEnvInt("IP_LIMIT_PER_MIN", 120),
		ScoringLimitPerDay: getEnvInt("SCORING_LIMIT_PER_DAY", 50),

		CacheTTL:       getEnvDuration("CACHE_TTL", 15*time.Minute),
		RequestTimeout: getEnvDuration("REQUEST_TIMEOUT", 30*time.Second),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}
