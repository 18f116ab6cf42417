package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	TelegramToken string
	DatabaseURL   string

	// AI generator
	GeminiAPIKey   string
	GeminiModel    string
	AIMaxAttempts  int
	AIBaseDelay    time.Duration

	// Calendar
	CalendarBackend    string // "google" or "caldav"
	GoogleClientID     string
	GoogleClientSecret string
	GoogleCalendarID   string
	CalDAVEndpoint     string
	CalDAVUsername     string
	CalDAVPassword     string
	CalDAVCalendar     string

	DefaultTimezone string
	PendingTTL      time.Duration

	LogLevel       string
	LogFormat      string
	PrometheusPort string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		GeminiModel:      getEnvOrDefault("GEMINI_MODEL", "gemini-1.5-flash"),
		CalendarBackend:  getEnvOrDefault("CALENDAR_BACKEND", "google"),
		GoogleCalendarID: getEnvOrDefault("GOOGLE_CALENDAR_ID", "primary"),
		CalDAVEndpoint:   getEnvOrDefault("CALDAV_ENDPOINT", "https://caldav.icloud.com/"),
		DefaultTimezone:  getEnvOrDefault("DEFAULT_TIMEZONE", "UTC"),
		LogLevel:         getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:        getEnvOrDefault("LOG_FORMAT", "text"),
		PrometheusPort:   getEnvOrDefault("PROMETHEUS_PORT", "9090"),
	}

	// Required environment variables
	if cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN"); cfg.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_TOKEN environment variable is required")
	}

	if cfg.DatabaseURL = os.Getenv("DATABASE_URL"); cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}

	if cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY"); cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable is required")
	}

	cfg.GoogleClientID = os.Getenv("GOOGLE_CLIENT_ID")
	cfg.GoogleClientSecret = os.Getenv("GOOGLE_CLIENT_SECRET")
	cfg.CalDAVUsername = os.Getenv("CALDAV_USERNAME")
	cfg.CalDAVPassword = os.Getenv("CALDAV_PASSWORD")
	cfg.CalDAVCalendar = os.Getenv("CALDAV_CALENDAR")

	switch cfg.CalendarBackend {
	case "google":
		if cfg.GoogleClientID == "" || cfg.GoogleClientSecret == "" {
			return nil, fmt.Errorf("GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET are required for the google backend")
		}
	case "caldav":
		if cfg.CalDAVUsername == "" || cfg.CalDAVPassword == "" || cfg.CalDAVCalendar == "" {
			return nil, fmt.Errorf("CALDAV_USERNAME, CALDAV_PASSWORD and CALDAV_CALENDAR are required for the caldav backend")
		}
	default:
		return nil, fmt.Errorf("unknown CALENDAR_BACKEND %q (expected google or caldav)", cfg.CalendarBackend)
	}

	var err error
	cfg.AIMaxAttempts, err = getEnvInt("AI_MAX_ATTEMPTS", 3)
	if err != nil {
		return nil, err
	}

	baseDelayMs, err := getEnvInt("AI_BASE_DELAY_MS", 500)
	if err != nil {
		return nil, err
	}
	cfg.AIBaseDelay = time.Duration(baseDelayMs) * time.Millisecond

	ttlMin, err := getEnvInt("PENDING_TTL_MINUTES", 10)
	if err != nil {
		return nil, err
	}
	cfg.PendingTTL = time.Duration(ttlMin) * time.Minute

	return cfg, nil
}

// getEnvOrDefault returns environment variable value or default if not set
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt parses an integer environment variable, falling back to def.
func getEnvInt(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return v, nil
}
