// Package lease keeps a game from being driven twice, either by a repeated
// gameStart event or by a second bot process sharing the same account.
package lease

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix  = "lichess:game:lease:"
	DefaultTTL = 3 * time.Hour
)

// Store hands out one lease per game id.
type Store interface {
	// Acquire returns false when another owner holds the game.
	Acquire(ctx context.Context, gameID, owner string) (bool, error)
	// Release drops the lease if owner still holds it.
	Release(ctx context.Context, gameID, owner string) error
	Close() error
}

// Noop always grants the lease. Used when no Redis is configured.
type Noop struct{}

func (Noop) Acquire(context.Context, string, string) (bool, error) { return true, nil }
func (Noop) Release(context.Context, string, string) error         { return nil }
func (Noop) Close() error                                          { return nil }

// releaseScript deletes the key only while it still carries our owner token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedis connects to rawURL (redis:// or rediss://) and pings it.
func NewRedis(ctx context.Context, rawURL string, ttl time.Duration) (*RedisStore, error) {
	opts, err := parseRedisURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisFromClient(rdb, ttl), nil
}

func NewRedisFromClient(rdb *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func key(gameID string) string { return keyPrefix + strings.TrimSpace(gameID) }

func (s *RedisStore) Acquire(ctx context.Context, gameID, owner string) (bool, error) {
	if strings.TrimSpace(gameID) == "" {
		return false, fmt.Errorf("lease: empty game id")
	}
	ok, err := s.rdb.SetNX(ctx, key(gameID), owner, s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("lease acquire %s: %w", gameID, err)
	}
	return ok, nil
}

func (s *RedisStore) Release(ctx context.Context, gameID, owner string) error {
	if err := releaseScript.Run(ctx, s.rdb, []string{key(gameID)}, owner).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("lease release %s: %w", gameID, err)
	}
	return nil
}

func (s *RedisStore) Close() error { return s.rdb.Close() }

func parseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	host := u.Host
	if u.Port() == "" {
		host = u.Hostname() + ":6379"
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid db %q", p)
		}
		db = n
	}
	pass, _ := u.User.Password()
	opts := &redis.Options{Addr: host, Username: u.User.Username(), Password: pass, DB: db}
	if u.Scheme == "rediss" {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12, ServerName: u.Hostname()}
	}
	return opts, nil
}
