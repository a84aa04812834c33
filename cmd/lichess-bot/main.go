package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/park285/cheese-lichess-bot/internal/chess"
	"github.com/park285/cheese-lichess-bot/internal/chess/openingbook"
	appcfg "github.com/park285/cheese-lichess-bot/internal/config"
	"github.com/park285/cheese-lichess-bot/internal/dispatch"
	"github.com/park285/cheese-lichess-bot/internal/lease"
	"github.com/park285/cheese-lichess-bot/internal/lichess"
	"github.com/park285/cheese-lichess-bot/internal/msgcat"
	"github.com/park285/cheese-lichess-bot/internal/obslog"
	"github.com/park285/cheese-lichess-bot/internal/session"
	"go.uber.org/zap"
)

func main() {
	// 토큰이 없으면 네트워크 호출 전에 종료
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Printf("logger init error (using fallback): %v", err)
	}
	logger := obslog.L()
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := lichess.NewClient(cfg.LichessBaseURL, cfg.LichessToken, lichess.WithTimeout(cfg.HTTPTimeout))

	actx, acancel := context.WithTimeout(ctx, 15*time.Second)
	identity, err := client.GetAccount(actx)
	acancel()
	if err != nil {
		logger.Fatal("account_lookup_failed", zap.Error(err))
	}
	logger.Info("bot_identity", zap.String("id", identity.ID), zap.String("username", identity.Username))

	book := openingbook.New(cfg.BookPath, logger.Named("book"))
	engine := chess.NewEngine(book, chess.Options{
		SearchDepth:        cfg.SearchDepth,
		OpeningMaxFullMove: cfg.OpeningMaxFullMove,
	}, logger.Named("engine"))

	var store lease.Store = lease.Noop{}
	if cfg.RedisURL != "" {
		rctx, rcancel := context.WithTimeout(ctx, 5*time.Second)
		rs, err := lease.NewRedis(rctx, cfg.RedisURL, cfg.GameLeaseTTL)
		rcancel()
		if err != nil {
			logger.Fatal("lease_store_init_failed", zap.Error(err))
		}
		store = rs
	}
	defer func() { _ = store.Close() }()

	var messages session.Messages
	if cfg.ChatEnabled {
		cat, err := msgcat.New(cfg.MessagesDir)
		if err != nil {
			logger.Warn("message_catalog_unavailable", zap.Error(err))
		} else {
			messages = cat
		}
	}

	driver := session.NewDriver(session.Deps{
		API:      client,
		Chooser:  engine,
		Messages: messages,
		Lease:    store,
		Identity: identity,
		Options: session.Options{
			MoveThrottle: cfg.MoveThrottle,
			FailurePause: cfg.FailurePause,
			ChatEnabled:  cfg.ChatEnabled,
		},
		Logger: logger.Named("session"),
	})
	dispatcher := dispatch.New(client, driver, store, logger.Named("dispatch"))

	// The event stream read blocks; a signal exits without waiting for it.
	done := make(chan error, 1)
	go func() { done <- dispatcher.Run(ctx) }()

	select {
	case err := <-done:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("event_stream_failed", zap.Error(err))
			_ = logger.Sync()
			os.Exit(1)
		}
		logger.Warn("event_stream_ended")
	case <-ctx.Done():
		logger.Info("shutdown_signal")
	}
}
