package infra

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv            string
	Port              string
	DatabaseURL       string
	DBConnectAttempts int
	TriggerURL        string
	TriggerToken      string
	TriggerTimeout    time.Duration
	PollInterval      time.Duration
	PollMaxAttempts   int
	SessionTTL        time.Duration
	RedisURL          string
	RedisChannel      string
	StoragePath       string
	StorageBaseURL    string
	GeoIPDBPath       string
	DefaultLocale     string
	AllowedOrigins    []string
	HTTPReadTimeout   time.Duration
	HTTPWriteTimeout  time.Duration
	HTTPIdleTimeout   time.Duration
	RateLimitPerMin   int
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	port := getEnv("PORT", "8080")
	cfg := &Config{
		AppEnv:            getEnv("APP_ENV", "development"),
		Port:              port,
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		DBConnectAttempts: getEnvInt("DB_CONNECT_ATTEMPTS", 5),
		TriggerURL:        getEnv("TRIGGER_URL", "http://localhost:5678/webhook/generate-storybook"),
		TriggerToken:      strings.TrimSpace(os.Getenv("TRIGGER_TOKEN")),
		TriggerTimeout:    getEnvDuration("TRIGGER_TIMEOUT", 30*time.Second),
		PollInterval:      getEnvDuration("POLL_INTERVAL", 5*time.Second),
		PollMaxAttempts:   getEnvInt("POLL_MAX_ATTEMPTS", 240),
		SessionTTL:        getEnvDuration("SESSION_TTL", 30*time.Minute),
		RedisURL:          strings.TrimSpace(os.Getenv("REDIS_URL")),
		RedisChannel:      getEnv("REDIS_CHANNEL", "storystudio:progress"),
		StoragePath:       getEnv("STORAGE_PATH", "./storage"),
		StorageBaseURL:    getEnv("STORAGE_BASE_URL", "http://localhost:"+port+"/static"),
		GeoIPDBPath:       os.Getenv("GEOIP_DB_PATH"),
		DefaultLocale:     getEnv("DEFAULT_LOCALE", "en"),
		AllowedOrigins:    getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		HTTPReadTimeout:   time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:  time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:   time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:   getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("POLL_INTERVAL must be positive")
	}
	if cfg.PollMaxAttempts <= 0 {
		return nil, fmt.Errorf("POLL_MAX_ATTEMPTS must be positive")
	}
	if _, err := url.ParseRequestURI(cfg.TriggerURL); err != nil {
		return nil, fmt.Errorf("TRIGGER_URL is invalid: %w", err)
	}
	if cfg.DBConnectAttempts <= 0 {
		cfg.DBConnectAttempts = 1
	}

	return cfg, nil
}

// PollBudget is the longest a single attempt waits for a terminal status.
func (c *Config) PollBudget() time.Duration {
	return c.PollInterval * time.Duration(c.PollMaxAttempts)
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

// getEnvDuration accepts Go duration strings ("5s", "2m") or a bare number of seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return fallback
	}
	v = strings.TrimSpace(v)
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if i, err := strconv.Atoi(v); err == nil {
		return time.Duration(i) * time.Second
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
