package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultHTTPAddr       = ":8080"
	defaultDatabaseURL    = "casevault.db"
	defaultJWTSecret      = "change-me-jwt-secret"
	defaultJWTTTL         = "24h"
	defaultClaimTimeout   = "5m"
	defaultMaxVisible     = "3"
	defaultExpirySchedule = "@every 30s"
)

// Config is the full runtime configuration of the API server.
type Config struct {
	AppEnv        string
	HTTPAddr      string
	DatabaseURL   string
	JWTSecret     string
	JWTTTL        time.Duration
	InternalToken string

	// ClaimTimeout is how long a claim request stays actionable after
	// creation. Applied uniformly to every claim at creation time.
	ClaimTimeout time.Duration

	// MaxVisibleNotifications caps how many notifications a staff client
	// renders individually before collapsing the rest into an overflow badge.
	MaxVisibleNotifications int

	// ExpirySweepSchedule is the cron spec for the server-side expiry sweep.
	ExpirySweepSchedule string

	// RedisURL enables the cross-instance event bridge when set.
	RedisURL string
}

// Load reads configuration from the environment. A .env file is honored
// when present so local development matches production wiring.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = "dev"
	}
	cfg.AppEnv = strings.ToLower(appEnv)

	cfg.HTTPAddr = strings.TrimSpace(getEnv("HTTP_ADDR", defaultHTTPAddr))
	cfg.DatabaseURL = strings.TrimSpace(getEnv("DATABASE_URL", defaultDatabaseURL))
	cfg.JWTSecret = strings.TrimSpace(getEnv("JWT_SECRET", defaultJWTSecret))
	cfg.InternalToken = strings.TrimSpace(os.Getenv("INTERNAL_TOKEN"))
	cfg.ExpirySweepSchedule = strings.TrimSpace(getEnv("EXPIRY_SWEEP_SCHEDULE", defaultExpirySchedule))
	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))

	var err error
	cfg.JWTTTL, err = parseDurationEnv("JWT_TTL", defaultJWTTTL)
	if err != nil {
		return nil, err
	}

	cfg.ClaimTimeout, err = parseDurationEnv("CLAIM_TIMEOUT", defaultClaimTimeout)
	if err != nil {
		return nil, err
	}

	cfg.MaxVisibleNotifications, err = parseIntEnv("MAX_VISIBLE_NOTIFICATIONS", defaultMaxVisible)
	if err != nil {
		return nil, err
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	log.Printf("config: env=%s claim_timeout=%s max_visible=%d sweep=%q redis=%t",
		cfg.AppEnv, cfg.ClaimTimeout, cfg.MaxVisibleNotifications, cfg.ExpirySweepSchedule, cfg.RedisURL != "")

	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.ClaimTimeout <= 0 {
		return fmt.Errorf("CLAIM_TIMEOUT must be > 0")
	}
	if cfg.MaxVisibleNotifications <= 0 {
		return fmt.Errorf("MAX_VISIBLE_NOTIFICATIONS must be > 0")
	}
	if cfg.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be > 0")
	}
	if cfg.ExpirySweepSchedule == "" {
		return fmt.Errorf("EXPIRY_SWEEP_SCHEDULE must not be empty")
	}
	if isProdLike(cfg.AppEnv) {
		if cfg.JWTSecret == "" || cfg.JWTSecret == defaultJWTSecret {
			return fmt.Errorf("in prod/release JWT_SECRET must be set and not default")
		}
		if cfg.InternalToken == "" {
			return fmt.Errorf("in prod/release INTERNAL_TOKEN must be set")
		}
	}
	return nil
}

func isProdLike(env string) bool {
	env = strings.ToLower(strings.TrimSpace(env))
	return env == "prod" || env == "production" || env == "release"
}

func parseDurationEnv(name, fallback string) (time.Duration, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return d, nil
}

func parseIntEnv(name, fallback string) (int, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return n, nil
}

func getEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
