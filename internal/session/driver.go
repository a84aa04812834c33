// Package session drives one lichess game: it follows the game stream,
// rebuilds the board from the move list and plays whenever it is our turn.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime/debug"
	"strings"
	"time"

	corechess "github.com/corentings/chess/v2"
	"github.com/park285/cheese-lichess-bot/internal/chess"
	"github.com/park285/cheese-lichess-bot/internal/domain"
	"github.com/park285/cheese-lichess-bot/internal/lease"
	"github.com/park285/cheese-lichess-bot/internal/lichess"
	"github.com/park285/cheese-lichess-bot/internal/msgcat"
	"go.uber.org/zap"
)

// GameAPI is the part of the lichess client a session needs.
type GameAPI interface {
	StreamGame(ctx context.Context, gameID string) (lichess.EventStream, error)
	MakeMove(ctx context.Context, gameID, uci string) error
	PostChat(ctx context.Context, gameID, room, text string) error
}

type MoveChooser interface {
	ChooseMove(ctx context.Context, b *chess.Board) (chess.Choice, error)
}

type Messages interface {
	Render(key string, data any) (string, error)
}

type Options struct {
	MoveThrottle time.Duration
	FailurePause time.Duration
	ChatEnabled  bool
}

// Deps wires a Driver. API, Chooser and Identity are required.
type Deps struct {
	API      GameAPI
	Chooser  MoveChooser
	Messages Messages
	Lease    lease.Store
	Identity domain.Identity
	Options  Options
	Logger   *zap.Logger
}

// Driver runs game sessions. It holds no per-game state, so one Driver
// serves every game; each Run owns its own board.
type Driver struct {
	api      GameAPI
	chooser  MoveChooser
	messages Messages
	lease    lease.Store
	identity domain.Identity
	opts     Options
	logger   *zap.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

func NewDriver(d Deps) *Driver {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Lease == nil {
		d.Lease = lease.Noop{}
	}
	if d.Options.MoveThrottle < 0 {
		d.Options.MoveThrottle = 0
	}
	if d.Options.FailurePause < 0 {
		d.Options.FailurePause = 0
	}
	return &Driver{
		api:      d.API,
		chooser:  d.Chooser,
		messages: d.Messages,
		lease:    d.Lease,
		identity: d.Identity,
		opts:     d.Options,
		logger:   d.Logger,
		sleep:    sleepWithContext,
	}
}

// Run follows gameID until a terminal status, the end of the stream or ctx
// cancellation. runID identifies this session in logs and owns the lease.
// Errors inside a single turn never end the session.
func (d *Driver) Run(ctx context.Context, gameID, runID string) (err error) {
	g := &game{id: gameID, runID: runID, state: AwaitingColor}
	logger := d.logger.With(zap.String("game_id", gameID), zap.String("run_id", runID))

	defer func() {
		if r := recover(); r != nil {
			logger.Error("session_panic", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
			err = fmt.Errorf("session %s panic: %v", gameID, r)
		}
		d.releaseLease(g, logger)
	}()

	stream, err := d.api.StreamGame(ctx, gameID)
	if err != nil {
		logger.Warn("game_stream_open_failed", zap.Error(err))
		return err
	}
	defer stream.Close()
	logger.Info("session_started")

	for {
		ev, err := stream.Next(ctx)
		if err != nil {
			if errors.Is(err, lichess.ErrInvalidEvent) {
				logger.Warn("game_event_invalid", zap.Error(err))
				continue
			}
			if errors.Is(err, io.EOF) {
				logger.Info("game_stream_closed", zap.String("state", g.state.String()))
				return nil
			}
			logger.Warn("game_stream_failed", zap.Error(err))
			return err
		}
		if done := d.handle(ctx, g, ev, logger); done {
			logger.Info("session_ended",
				zap.String("status", string(g.status)),
				zap.String("color", string(g.color)),
				zap.Int("moves_submitted", g.submitted),
			)
			return nil
		}
	}
}

// handle applies one event and reports whether the session is over.
func (d *Driver) handle(ctx context.Context, g *game, ev lichess.Event, logger *zap.Logger) bool {
	switch e := ev.(type) {
	case lichess.GameFull:
		if g.state == AwaitingColor {
			g.initialFEN = e.InitialFEN
			g.color, g.opponent = d.resolveColor(e.White, e.Black)
			g.state = Active
			if g.color == domain.NoColor {
				logger.Warn("session_colorless", zap.String("white", e.White.Name), zap.String("black", e.Black.Name))
			} else {
				logger.Info("session_color", zap.String("color", string(g.color)), zap.String("opponent", g.opponent))
				d.greet(ctx, g, logger)
			}
		}
		g.moves, g.status = e.State.Moves, e.State.Status
	case lichess.GameState:
		g.moves, g.status = e.Moves, e.Status
	default:
		return false
	}

	if g.status.IsTerminal() {
		g.state = Ended
		d.farewell(ctx, g, logger)
		return true
	}
	if g.state == Active && g.color != domain.NoColor {
		d.playTurn(ctx, g, logger)
	}
	return false
}

func (d *Driver) resolveColor(white, black lichess.Player) (domain.Color, string) {
	switch {
	case d.identity.Matches(white.ID, white.Name):
		return domain.White, playerLabel(black)
	case d.identity.Matches(black.ID, black.Name):
		return domain.Black, playerLabel(white)
	default:
		return domain.NoColor, ""
	}
}

func playerLabel(p lichess.Player) string {
	if name := strings.TrimSpace(p.Name); name != "" {
		return name
	}
	if p.AILevel > 0 {
		return fmt.Sprintf("Stockfish level %d", p.AILevel)
	}
	return "opponent"
}

// playTurn moves if the rebuilt board says it is our turn. Failures are
// logged and followed by FailurePause.
func (d *Driver) playTurn(ctx context.Context, g *game, logger *zap.Logger) {
	err := d.tryMove(ctx, g, logger)
	switch {
	case err == nil:
	case errors.Is(err, errNoTurn):
		return
	case ctx.Err() != nil:
		return
	default:
		logger.Warn("move_failed", zap.Error(err), zap.String("moves", g.moves))
		_ = d.sleep(ctx, d.opts.FailurePause)
		return
	}
	_ = d.sleep(ctx, d.opts.MoveThrottle)
}

// errNoTurn means there is nothing to play in this position.
var errNoTurn = errors.New("no move due")

func (d *Driver) tryMove(ctx context.Context, g *game, logger *zap.Logger) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while choosing move: %v", r)
		}
	}()

	b, applied, err := chess.Replay(g.initialFEN, g.moves)
	if err != nil {
		return fmt.Errorf("rebuild board: %w", err)
	}
	if total := len(strings.Fields(g.moves)); applied < total {
		logger.Debug("replay_truncated", zap.Int("applied", applied), zap.Int("total", total))
	}
	if toDomain(b.Turn()) != g.color {
		return errNoTurn
	}
	if b.IsTerminal() {
		logger.Debug("board_terminal_without_status", zap.String("fen", b.FEN()))
		return errNoTurn
	}

	choice, err := d.chooser.ChooseMove(ctx, b)
	if err != nil {
		return fmt.Errorf("choose move: %w", err)
	}
	if err := d.api.MakeMove(ctx, g.id, choice.UCI); err != nil {
		return fmt.Errorf("submit %s: %w", choice.UCI, err)
	}
	g.submitted++
	logger.Info("move_submitted",
		zap.String("move", choice.UCI),
		zap.String("source", string(choice.Source)),
		zap.Int("score", choice.Score),
		zap.Int("nodes", choice.Nodes),
		zap.Duration("took", choice.Duration),
	)
	return nil
}

func toDomain(c corechess.Color) domain.Color {
	switch c {
	case corechess.White:
		return domain.White
	case corechess.Black:
		return domain.Black
	default:
		return domain.NoColor
	}
}

func (d *Driver) releaseLease(g *game, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := d.lease.Release(ctx, g.id, g.runID); err != nil {
		logger.Warn("lease_release_failed", zap.Error(err))
	}
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

var _ Messages = (*msgcat.Catalog)(nil)
