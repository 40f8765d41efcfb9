package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAppName        = "NextGenATM"
	defaultAppEnv         = "development"
	defaultPort           = "8080"
	defaultLogLevel       = "info"
	defaultTapAddr        = ":12345"
	defaultTapBudget      = 30 * time.Second
	defaultTapPollStep    = 100 * time.Millisecond
	defaultTapReadWindow  = 3 * time.Second
	defaultUPILimit       = 10_000
	defaultUPICountdown   = 300 * time.Second
	defaultUPIPayee       = "atm@bank"
	defaultUPIPayeeName   = "ATM Machine Simulation"
	defaultShutdownDelay  = 10 * time.Second
	defaultIdempotencyTTL = 24 * time.Hour

	tapBudgetSecondsEnvVar = "TAP_BUDGET_SECONDS"
	tapBudgetDurEnvVar     = "TAP_BUDGET"
	upiSecondsEnvVar       = "UPI_COUNTDOWN_SECONDS"
	upiDurEnvVar           = "UPI_COUNTDOWN"
	shutdownSecondsEnvVar  = "SHUTDOWN_TIMEOUT_SECONDS"
	shutdownDurationEnvVar = "SHUTDOWN_TIMEOUT"
	idemTTLSecondsEnvVar   = "IDEMPOTENCY_TTL_SECONDS"
	idemTTLDurEnvVar       = "IDEMPOTENCY_TTL"
)

// Config captures terminal runtime configuration loaded from environment variables.
type Config struct {
	AppName  string
	AppEnv   string
	Port     string
	LogLevel string

	// DatabaseURL selects the Postgres account directory when set; the
	// terminal falls back to the seeded in-memory directory otherwise.
	DatabaseURL string
	// RedisURL enables idempotency on transaction endpoints when set.
	RedisURL string

	// Contactless tap listener.
	TapAddr       string
	TapBudget     time.Duration
	TapPollStep   time.Duration
	TapReadWindow time.Duration

	// UPI withdrawal flow.
	UPILimit     int64
	UPICountdown time.Duration
	UPIPayee     string
	UPIPayeeName string

	ShutdownPeriod time.Duration
	IdempotencyTTL time.Duration
}

// Load reads configuration values from the environment and populates a Config instance.
func Load() (Config, error) {
	cfg := Config{
		AppName:        getEnv("APP_NAME", defaultAppName),
		AppEnv:         getEnv("APP_ENV", defaultAppEnv),
		Port:           getEnv("PORT", defaultPort),
		LogLevel:       strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisURL:       os.Getenv("REDIS_URL"),
		TapAddr:        getEnv("TAP_ADDR", defaultTapAddr),
		TapBudget:      defaultTapBudget,
		TapPollStep:    defaultTapPollStep,
		TapReadWindow:  defaultTapReadWindow,
		UPILimit:       defaultUPILimit,
		UPICountdown:   defaultUPICountdown,
		UPIPayee:       getEnv("UPI_PAYEE", defaultUPIPayee),
		UPIPayeeName:   getEnv("UPI_PAYEE_NAME", defaultUPIPayeeName),
		ShutdownPeriod: defaultShutdownDelay,
		IdempotencyTTL: defaultIdempotencyTTL,
	}

	var err error
	if cfg.TapBudget, err = durationEnv(tapBudgetSecondsEnvVar, tapBudgetDurEnvVar, cfg.TapBudget); err != nil {
		return Config{}, err
	}
	if cfg.UPICountdown, err = durationEnv(upiSecondsEnvVar, upiDurEnvVar, cfg.UPICountdown); err != nil {
		return Config{}, err
	}
	if cfg.ShutdownPeriod, err = durationEnv(shutdownSecondsEnvVar, shutdownDurationEnvVar, cfg.ShutdownPeriod); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = durationEnv(idemTTLSecondsEnvVar, idemTTLDurEnvVar, cfg.IdempotencyTTL); err != nil {
		return Config{}, err
	}

	if v := os.Getenv("TAP_POLL_STEP_MS"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid TAP_POLL_STEP_MS: %w", err)
		}
		cfg.TapPollStep = time.Duration(ms) * time.Millisecond
	}

	if v := os.Getenv("UPI_LIMIT"); v != "" {
		limit, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("invalid UPI_LIMIT: %w", err)
		}
		cfg.UPILimit = limit
	}

	if cfg.TapPollStep <= 0 || cfg.TapBudget < cfg.TapPollStep {
		return Config{}, fmt.Errorf("tap budget %s must cover at least one %s poll step", cfg.TapBudget, cfg.TapPollStep)
	}

	return cfg, nil
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

func durationEnv(secondsVar, durVar string, fallback time.Duration) (time.Duration, error) {
	if v := os.Getenv(secondsVar); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", secondsVar, err)
		}
		return time.Duration(seconds) * time.Second, nil
	}
	if v := os.Getenv(durVar); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", durVar, err)
		}
		return d, nil
	}
	return fallback, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
