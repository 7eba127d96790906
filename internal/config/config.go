package config

import (
	"log/slog"
	"os"
	"strings"
)

type Config struct {
	StoriesDir   string
	TemplatesDir string
	SavesDir     string
	RedisAddr    string
	Environment  string
	LogLevel     slog.Level
}

func Load() *Config {
	return &Config{
		StoriesDir:   getEnv("STORIES_DIR", "stories"),
		TemplatesDir: getEnv("TEMPLATES_DIR", "templates"),
		SavesDir:     getEnv("SAVES_DIR", "saves"),
		RedisAddr:    getEnv("REDIS_ADDR", ""),
		Environment:  getEnv("ENVIRONMENT", "development"),
		LogLevel:     parseLogLevel(getEnv("LOG_LEVEL", "info")),
	}
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
