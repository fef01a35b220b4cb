// Package config loads service configuration from the environment.
// main loads a .env file first via godotenv, so local development only
// needs a file next to the binary.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config carries every runtime setting.
type Config struct {
	AppEnv    string
	LogLevel  string
	LogFormat string

	HTTPListenAddr   string
	PublicBasePath   string
	MetricsNamespace string

	// StoreBackend selects the persistent local store: bbolt (default),
	// sqlite or postgres.
	StoreBackend   string
	StorePath      string
	DatabaseURL    string
	DatabaseSchema string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisTLS      bool
	CacheTTL      time.Duration

	NotifyEndpoint  string
	NotifyAccessKey string
	AdminEmail      string
	NotifyTimeout   time.Duration

	WhatsAppEnabled   bool
	WhatsAppStorePath string
	WhatsAppLogLevel  string
	WhatsAppAdminJID  string
}

// Load reads configuration from the environment, applying defaults.
func Load() (*Config, error) {
	cfg := &Config{
		AppEnv:    getEnv("APP_ENV", "development"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		HTTPListenAddr:   getEnv("HTTP_LISTEN_ADDR", ":8080"),
		PublicBasePath:   getEnv("PUBLIC_BASE_PATH", ""),
		MetricsNamespace: getEnv("METRICS_NAMESPACE", "estatehub"),

		StoreBackend:   strings.ToLower(getEnv("STORE_BACKEND", "bbolt")),
		StorePath:      getEnv("STORE_PATH", "data/estate-hub.db"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		DatabaseSchema: getEnv("DATABASE_SCHEMA", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getInt("REDIS_DB", 0),
		RedisTLS:      getBool("REDIS_TLS", false),
		CacheTTL:      getDuration("CACHE_TTL", 5*time.Minute),

		NotifyEndpoint:  getEnv("NOTIFY_ENDPOINT", ""),
		NotifyAccessKey: getEnv("NOTIFY_ACCESS_KEY", ""),
		AdminEmail:      getEnv("ADMIN_EMAIL", ""),
		NotifyTimeout:   getDuration("NOTIFY_TIMEOUT", 15*time.Second),

		WhatsAppEnabled:   getBool("WHATSAPP_ENABLED", false),
		WhatsAppStorePath: getEnv("WHATSAPP_STORE_PATH", "data/whatsapp.db"),
		WhatsAppLogLevel:  getEnv("WHATSAPP_LOG_LEVEL", "INFO"),
		WhatsAppAdminJID:  getEnv("WHATSAPP_ADMIN_JID", ""),
	}

	switch cfg.StoreBackend {
	case "bbolt", "sqlite":
		if cfg.StorePath == "" {
			return nil, fmt.Errorf("STORE_PATH is required for backend %s", cfg.StoreBackend)
		}
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required for backend postgres")
		}
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND: %s", cfg.StoreBackend)
	}

	if cfg.WhatsAppEnabled && cfg.WhatsAppAdminJID == "" {
		return nil, fmt.Errorf("WHATSAPP_ADMIN_JID is required when WHATSAPP_ENABLED is set")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func getInt(key string, fallback int) int {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func getBool(key string, fallback bool) bool {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return value
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return value
}
