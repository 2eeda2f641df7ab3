package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the deadline tracker service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string
	AllowAnyOrigin   bool

	// Timezone names the zone deadlines are read in; Location is the loaded
	// zone.
	Timezone string
	Location *time.Location

	TaskStore    string
	TaskFilePath string
	DatabaseURL  string
	SQLitePath   string

	ReminderChannelID  string
	ReminderInterval   time.Duration
	SessionIdleTimeout time.Duration

	GroqAPIKey        string
	GroqURL           string
	GroqModel         string
	ExtractionTimeout time.Duration
	IngestMinChars    int
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:          envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace:  envOrDefault("APP_METRICS_NAMESPACE", "deadliner"),
		AllowAnyOrigin:    false,
		Timezone:          envOrDefault("APP_TIMEZONE", "Local"),
		TaskStore:         strings.ToLower(envOrDefault("TASK_STORE", "auto")),
		TaskFilePath:      envOrDefault("TASK_FILE_PATH", "tasks.json"),
		DatabaseURL:       stringsTrimSpace("DATABASE_URL"),
		SQLitePath:        envOrDefault("SQLITE_PATH", "tasks.db"),
		ReminderChannelID: stringsTrimSpace("REMINDER_CHANNEL_ID"),
		GroqAPIKey:        stringsTrimSpace("GROQ_API_KEY"),
		GroqURL:           envOrDefault("GROQ_URL", "https://api.groq.com/openai/v1/chat/completions"),
		GroqModel:         envOrDefault("GROQ_MODEL", "llama-3.3-70b-versatile"),
		IngestMinChars:    20,
		ShutdownTimeout:   15 * time.Second,
		ReminderInterval:  60 * time.Second,
		// 0 keeps pending conversations until they finish.
		SessionIdleTimeout: 10 * time.Minute,
		ExtractionTimeout:  30 * time.Second,
	}
	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.ReminderInterval, err = durationFromEnv("REMINDER_INTERVAL", cfg.ReminderInterval)
	if err != nil {
		return Config{}, err
	}
	cfg.SessionIdleTimeout, err = durationFromEnv("SESSION_IDLE_TIMEOUT", cfg.SessionIdleTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.ExtractionTimeout, err = durationFromEnv("EXTRACTION_TIMEOUT", cfg.ExtractionTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.IngestMinChars, err = intFromEnv("INGEST_MIN_CHARS", cfg.IngestMinChars)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}

	cfg.Location, err = time.LoadLocation(cfg.Timezone)
	if err != nil {
		return Config{}, fmt.Errorf("APP_TIMEZONE parse error: %w", err)
	}

	switch cfg.TaskStore {
	case "auto", "file", "postgres", "sqlite":
	default:
		return Config{}, fmt.Errorf("TASK_STORE must be one of auto, file, postgres, sqlite")
	}
	if cfg.TaskStore == "postgres" && cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL is required when TASK_STORE=postgres")
	}
	if cfg.ReminderInterval < time.Second {
		return Config{}, fmt.Errorf("REMINDER_INTERVAL must be at least 1s")
	}
	if cfg.SessionIdleTimeout < 0 {
		return Config{}, fmt.Errorf("SESSION_IDLE_TIMEOUT must be >= 0")
	}
	if cfg.ExtractionTimeout <= 0 {
		return Config{}, fmt.Errorf("EXTRACTION_TIMEOUT must be positive")
	}
	if cfg.IngestMinChars <= 0 {
		return Config{}, fmt.Errorf("INGEST_MIN_CHARS must be positive")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(stringsTrimSpace(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
