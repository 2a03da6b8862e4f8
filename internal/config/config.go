package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	// Timezone all forecasts are computed and labelled in.
	Timezone string
	Location *time.Location

	// DefaultCadence applies when the request omits the time parameter.
	DefaultCadence string

	// SystemLoss is the combined loss fraction applied to DC power.
	SystemLoss float64

	// HorizonDays is the forecast span in whole days.
	HorizonDays int

	// CacheTTL bounds both cache entries and tracker liveness.
	CacheTTL time.Duration

	// Refresh loop.
	RefreshEnabled  bool
	RefreshInterval time.Duration

	// Rate limiting.
	RateLimitPerMinute int

	// MaxBodyBytes caps inbound request bodies.
	MaxBodyBytes int

	// Shared key-value store.
	RedisAddr    string
	StoreTimeout time.Duration

	// TrackerMaxEntries bounds the seen-specs map.
	TrackerMaxEntries int

	Port string
}

// Load reads configuration from environment with sensible defaults.
// Malformed values fail fast here rather than surfacing at request time.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	cfg.Timezone = getenvDefault("TZ", "Europe/Berlin")
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TZ %q: %w", cfg.Timezone, err)
	}
	cfg.Location = loc

	cfg.DefaultCadence = getenvDefault("DEFAULT_RESOLUTION", "60m")

	cfg.SystemLoss, err = getenvFloat("SYSTEM_LOSS", 0.14)
	if err != nil {
		return nil, err
	}
	if cfg.SystemLoss < 0 || cfg.SystemLoss >= 1 {
		return nil, fmt.Errorf("SYSTEM_LOSS must be in [0,1), got %v", cfg.SystemLoss)
	}

	cfg.HorizonDays = getenvInt("MAX_HORIZON_DAYS", 6)
	if cfg.HorizonDays < 1 {
		return nil, fmt.Errorf("MAX_HORIZON_DAYS must be positive, got %d", cfg.HorizonDays)
	}

	cfg.CacheTTL, err = getenvDuration("CACHE_TTL", 15*time.Minute)
	if err != nil {
		return nil, err
	}

	cfg.RefreshEnabled = getenvBool("REFRESH_ENABLED", true)
	cfg.RefreshInterval, err = getenvDuration("REFRESH_INTERVAL", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	cfg.RateLimitPerMinute = getenvInt("RATE_LIMIT_PER_MINUTE", 120)
	cfg.MaxBodyBytes = getenvInt("MAX_BODY_BYTES", 4096)

	cfg.RedisAddr = getenvDefault("REDIS_ADDR", "localhost:6379")
	cfg.StoreTimeout, err = getenvDuration("STORE_TIMEOUT", 250*time.Millisecond)
	if err != nil {
		return nil, err
	}

	cfg.TrackerMaxEntries = getenvInt("TRACKER_MAX_ENTRIES", 1000)
	cfg.Port = getenvDefault("PORT", "8080")

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getenvFloat(key string, def float64) (float64, error) {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", key, err)
		}
		return f, nil
	}
	return def, nil
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", key, err)
		}
		return d, nil
	}
	return def, nil
}
