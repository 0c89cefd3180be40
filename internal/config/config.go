// Package config handles application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	TelegramBotToken string
	TMDBAPIKey       string
	TMDBLanguage     string
	DatabasePath     string
	LogLevel         string

	// Weekly trending digest schedule.
	DigestDay    time.Weekday
	DigestHour   int
	DigestMinute int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}

	apiKey := os.Getenv("TMDB_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("TMDB_API_KEY is required")
	}

	language := os.Getenv("TMDB_LANGUAGE")
	if language == "" {
		language = "en-US"
	}

	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		dbPath = "./data/bot.db"
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	day, err := parseWeekday(envOrDefault("DIGEST_DAY", "monday"))
	if err != nil {
		return nil, err
	}

	hour, minute, err := parseClock(envOrDefault("DIGEST_TIME", "09:00"))
	if err != nil {
		return nil, err
	}

	return &Config{
		TelegramBotToken: token,
		TMDBAPIKey:       apiKey,
		TMDBLanguage:     language,
		DatabasePath:     dbPath,
		LogLevel:         logLevel,
		DigestDay:        day,
		DigestHour:       hour,
		DigestMinute:     minute,
	}, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

func parseWeekday(s string) (time.Weekday, error) {
	day, ok := weekdays[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return 0, fmt.Errorf("invalid DIGEST_DAY %q, use a full weekday name", s)
	}
	return day, nil
}

func parseClock(s string) (hour, minute int, err error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid DIGEST_TIME %q, use HH:MM", s)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid DIGEST_TIME %q, hour must be 00-23", s)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid DIGEST_TIME %q, minute must be 00-59", s)
	}
	return hour, minute, nil
}
