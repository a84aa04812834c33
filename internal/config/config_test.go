package config

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadRequiresToken(t *testing.T) {
	t.Setenv("LICHESS_TOKEN", "  ")
	_, err := Load()
	if !errors.Is(err, ErrMissingToken) {
		t.Fatalf("expected ErrMissingToken, got %v", err)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("LICHESS_TOKEN", "lip_secret")
	for _, k := range []string{"LICHESS_BASE_URL", "SEARCH_DEPTH", "OPENING_MAX_FULLMOVE", "BOOK_PATH", "MOVE_THROTTLE_MS", "FAILURE_PAUSE_MS", "REDIS_URL", "CHAT_ENABLED", "HTTP_TIMEOUT_SEC", "GAME_LEASE_TTL_SEC"} {
		t.Setenv(k, "")
	}
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "lip_secret", cfg.LichessToken)
	require.Equal(t, "https://lichess.org", cfg.LichessBaseURL)
	require.Equal(t, 3, cfg.SearchDepth)
	require.Equal(t, 10, cfg.OpeningMaxFullMove)
	require.Equal(t, 200*time.Millisecond, cfg.MoveThrottle)
	require.Equal(t, time.Second, cfg.FailurePause)
	require.True(t, cfg.ChatEnabled)
	require.Empty(t, cfg.RedisURL)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("LICHESS_TOKEN", "tok")
	t.Setenv("LICHESS_BASE_URL", "http://localhost:8080/")
	t.Setenv("SEARCH_DEPTH", "4")
	t.Setenv("OPENING_MAX_FULLMOVE", "bogus")
	t.Setenv("MOVE_THROTTLE_MS", "0")
	t.Setenv("CHAT_ENABLED", "false")
	t.Setenv("BOOK_PATH", "/tmp/book.bin")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "http://localhost:8080", cfg.LichessBaseURL)
	require.Equal(t, 4, cfg.SearchDepth)
	require.Equal(t, 10, cfg.OpeningMaxFullMove, "invalid values keep the default")
	require.Equal(t, time.Duration(0), cfg.MoveThrottle)
	require.False(t, cfg.ChatEnabled)
	require.Equal(t, "/tmp/book.bin", cfg.BookPath)
}
