package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// ErrMissingToken is returned when LICHESS_TOKEN is absent.
var ErrMissingToken = errors.New("LICHESS_TOKEN is required")

type AppConfig struct {
	LichessToken   string
	LichessBaseURL string
	HTTPTimeout    time.Duration

	SearchDepth        int
	OpeningMaxFullMove int
	BookPath           string

	MoveThrottle time.Duration
	FailurePause time.Duration

	RedisURL     string
	GameLeaseTTL time.Duration

	ChatEnabled bool
	MessagesDir string
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		LichessBaseURL:     "https://lichess.org",
		HTTPTimeout:        10 * time.Second,
		SearchDepth:        3,
		OpeningMaxFullMove: 10,
		BookPath:           filepath.Join("data", "opening.bin"),
		MoveThrottle:       200 * time.Millisecond,
		FailurePause:       time.Second,
		GameLeaseTTL:       3 * time.Hour,
		ChatEnabled:        true,
	}

	cfg.LichessToken = strings.TrimSpace(os.Getenv("LICHESS_TOKEN"))
	if cfg.LichessToken == "" {
		return nil, ErrMissingToken
	}

	if v := strings.TrimSpace(os.Getenv("LICHESS_BASE_URL")); v != "" {
		cfg.LichessBaseURL = strings.TrimRight(v, "/")
	}
	if n, ok := positiveInt("HTTP_TIMEOUT_SEC"); ok {
		cfg.HTTPTimeout = time.Duration(n) * time.Second
	}

	// Engine
	if n, ok := positiveInt("SEARCH_DEPTH"); ok {
		cfg.SearchDepth = n
	}
	if n, ok := positiveInt("OPENING_MAX_FULLMOVE"); ok {
		cfg.OpeningMaxFullMove = n
	}
	if v := strings.TrimSpace(os.Getenv("BOOK_PATH")); v != "" {
		cfg.BookPath = v
	}

	// Session pacing
	if n, ok := nonNegativeInt("MOVE_THROTTLE_MS"); ok {
		cfg.MoveThrottle = time.Duration(n) * time.Millisecond
	}
	if n, ok := nonNegativeInt("FAILURE_PAUSE_MS"); ok {
		cfg.FailurePause = time.Duration(n) * time.Millisecond
	}

	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	if n, ok := positiveInt("GAME_LEASE_TTL_SEC"); ok {
		cfg.GameLeaseTTL = time.Duration(n) * time.Second
	}

	if v := strings.TrimSpace(os.Getenv("CHAT_ENABLED")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.ChatEnabled = b
		}
	}
	cfg.MessagesDir = strings.TrimSpace(os.Getenv("MESSAGES_DIR"))

	return cfg, nil
}

func positiveInt(key string) (int, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func nonNegativeInt(key string) (int, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
