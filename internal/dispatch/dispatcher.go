// Package dispatch consumes the account event stream: it accepts
// challenges and starts one session per game.
package dispatch

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/park285/cheese-lichess-bot/internal/lease"
	"github.com/park285/cheese-lichess-bot/internal/lichess"
	"go.uber.org/zap"
)

type AccountAPI interface {
	StreamEvents(ctx context.Context) (lichess.EventStream, error)
	AcceptChallenge(ctx context.Context, challengeID string) error
}

// GameRunner runs one game to completion.
type GameRunner interface {
	Run(ctx context.Context, gameID, runID string) error
}

type Dispatcher struct {
	api    AccountAPI
	runner GameRunner
	lease  lease.Store
	logger *zap.Logger

	newRunID func() string
	wg       sync.WaitGroup
}

func New(api AccountAPI, runner GameRunner, store lease.Store, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if store == nil {
		store = lease.Noop{}
	}
	return &Dispatcher{
		api:      api,
		runner:   runner,
		lease:    store,
		logger:   logger,
		newRunID: uuid.NewString,
	}
}

// Run reads the account stream until it ends (nil) or fails (error). There is
// no reconnect: the caller decides what a lost stream means. Sessions started
// here keep running after Run returns.
func (d *Dispatcher) Run(ctx context.Context) error {
	stream, err := d.api.StreamEvents(ctx)
	if err != nil {
		return err
	}
	defer stream.Close()
	d.logger.Info("event_stream_open")

	for {
		ev, err := stream.Next(ctx)
		if err != nil {
			if errors.Is(err, lichess.ErrInvalidEvent) {
				d.logger.Warn("account_event_invalid", zap.Error(err))
				continue
			}
			if errors.Is(err, io.EOF) {
				d.logger.Warn("event_stream_closed")
				return nil
			}
			return err
		}

		switch e := ev.(type) {
		case lichess.Challenge:
			d.accept(ctx, e)
		case lichess.GameStart:
			d.start(ctx, e)
		}
	}
}

// Wait blocks until every session started by Run has returned.
func (d *Dispatcher) Wait() { d.wg.Wait() }

func (d *Dispatcher) accept(ctx context.Context, ch lichess.Challenge) {
	logger := d.logger.With(zap.String("challenge_id", ch.ID), zap.String("challenger", ch.Challenger.Name))
	if err := d.api.AcceptChallenge(ctx, ch.ID); err != nil {
		logger.Warn("challenge_accept_failed", zap.Error(err))
		return
	}
	logger.Info("challenge_accepted", zap.String("variant", ch.Variant), zap.String("speed", ch.Speed))
}

func (d *Dispatcher) start(ctx context.Context, gs lichess.GameStart) {
	runID := d.newRunID()
	logger := d.logger.With(zap.String("game_id", gs.GameID), zap.String("run_id", runID))

	ok, err := d.lease.Acquire(ctx, gs.GameID, runID)
	if err != nil {
		// 락 저장소 장애로 게임을 버리지 않는다
		logger.Warn("lease_acquire_failed", zap.Error(err))
	} else if !ok {
		logger.Info("game_already_running")
		return
	}

	logger.Info("game_start")
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.runner.Run(ctx, gs.GameID, runID); err != nil {
			logger.Warn("session_error", zap.Error(err))
		}
	}()
}
