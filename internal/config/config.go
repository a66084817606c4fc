package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr        string
	LogLevel        slog.Level
	PublicURL       string
	GeminiAPIKey    string
	GeminiBaseURL   string
	TextModel       string
	ImageModel      string
	LLMTimeout      time.Duration
	SessionCapacity int
	SessionTTL      time.Duration
}

// Load reads the environment, after merging a .env file when one exists.
// A missing API key is not an error: generation calls report it instead.
func Load() (Config, error) {
	_ = godotenv.Load()

	c := Config{
		HTTPAddr:        envOr("HTTP_ADDR", ":8080"),
		PublicURL:       strings.TrimRight(os.Getenv("PUBLIC_URL"), "/"),
		GeminiAPIKey:    firstNonEmpty(os.Getenv("GEMINI_API_KEY"), os.Getenv("API_KEY"), os.Getenv("GOOGLE_API_KEY")),
		GeminiBaseURL:   os.Getenv("GEMINI_BASE_URL"),
		TextModel:       envOr("TEXT_MODEL", "gemini-2.5-flash"),
		ImageModel:      envOr("IMAGE_MODEL", "gemini-2.5-flash-image"),
		SessionCapacity: 1024,
		SessionTTL:      time.Hour,
	}

	var err error
	if c.LLMTimeout, err = durationEnv("LLM_TIMEOUT", 0); err != nil {
		return Config{}, err
	}
	if c.SessionTTL, err = durationEnv("SESSION_TTL", c.SessionTTL); err != nil {
		return Config{}, err
	}

	if v := os.Getenv("SESSION_CAPACITY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return Config{}, fmt.Errorf("invalid SESSION_CAPACITY %q", v)
		}
		c.SessionCapacity = n
	}

	level, err := parseLogLevel(envOr("LOG_LEVEL", "info"))
	if err != nil {
		return Config{}, err
	}
	c.LogLevel = level

	return c, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s %q: must not be negative", key, v)
	}
	return d, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid LOG_LEVEL %q", s)
	}
}
