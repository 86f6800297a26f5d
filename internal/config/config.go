// Package config loads application settings from the environment.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"yatube/internal/forms"
)

type Config struct {
	Port           string
	DBPath         string
	MediaRoot      string
	SessionKey     string
	SessionTTL     time.Duration
	CookieSecure   bool
	CacheTTL       time.Duration
	MaxUploadBytes int64
}

// Load reads an optional .env file, then the environment. Invalid values
// fall back to defaults with a warning.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, using environment")
	}

	cfg := &Config{
		Port:         getEnv("PORT", "8080"),
		DBPath:       getEnv("DB_PATH", "./data/yatube.db"),
		MediaRoot:    getEnv("MEDIA_ROOT", "./media"),
		SessionKey:   getEnv("SESSION_KEY", "development-key"),
		CookieSecure: getEnv("COOKIE_SECURE", "false") == "true",
	}

	sessionHours := getInt("SESSION_HOURS", 24)
	cfg.SessionTTL = time.Duration(sessionHours) * time.Hour

	cacheSeconds := getInt("YATUBE_CACHE_TTL", 20)
	cfg.CacheTTL = time.Duration(cacheSeconds) * time.Second

	cfg.MaxUploadBytes = int64(getInt("MAX_UPLOAD_MB", forms.DefaultMaxUpload>>20)) << 20

	return cfg
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	raw, exists := os.LookupEnv(key)
	if !exists || raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		slog.Warn("Invalid setting, using default", "key", key, "value", raw, "default", fallback)
		return fallback
	}
	return n
}
