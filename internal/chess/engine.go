package chess

import (
	"context"
	"math/rand"
	"sync"
	"time"

	corechess "github.com/corentings/chess/v2"
	"github.com/park285/cheese-lichess-bot/internal/chess/openingbook"
	"go.uber.org/zap"
)

const (
	defaultSearchDepth        = 3
	defaultOpeningMaxFullMove = 10
)

// Source tells where a chosen move came from.
type Source string

const (
	SourceBook   Source = "book"
	SourceSearch Source = "search"
)

// BookLookup is the opening book capability the engine consults.
type BookLookup interface {
	Lookup(fen string, r *rand.Rand) (openingbook.Result, bool)
}

type Options struct {
	SearchDepth        int
	OpeningMaxFullMove int
}

// Choice is the engine's answer for one position.
type Choice struct {
	Move     corechess.Move
	UCI      string
	Source   Source
	Score    int
	Nodes    int
	Duration time.Duration
}

// Engine composes the opening book and the searcher. It is safe for
// concurrent use: each call gets its own Searcher and random stream.
type Engine struct {
	book   BookLookup
	opts   Options
	randMu sync.Mutex
	rand   *rand.Rand
	logger *zap.Logger
}

func NewEngine(book BookLookup, opts Options, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		book:   book,
		opts:   normalizeOptions(opts),
		rand:   rand.New(rand.NewSource(time.Now().UnixNano())),
		logger: logger,
	}
}

func normalizeOptions(opts Options) Options {
	if opts.SearchDepth <= 0 {
		opts.SearchDepth = defaultSearchDepth
	}
	if opts.OpeningMaxFullMove <= 0 {
		opts.OpeningMaxFullMove = defaultOpeningMaxFullMove
	}
	return opts
}

func (e *Engine) Options() Options { return e.opts }

func (e *Engine) SetRandomSeed(seed int64) {
	e.randMu.Lock()
	e.rand = rand.New(rand.NewSource(seed))
	e.randMu.Unlock()
}

func (e *Engine) random() *rand.Rand {
	e.randMu.Lock()
	seed := e.rand.Int63()
	e.randMu.Unlock()
	return rand.New(rand.NewSource(seed))
}

// ChooseMove returns a legal move for the side to move in b. The caller must
// not pass a terminal position.
func (e *Engine) ChooseMove(ctx context.Context, b *Board) (Choice, error) {
	if err := ctx.Err(); err != nil {
		return Choice{}, err
	}
	start := time.Now()

	if choice, ok := e.tryBookMove(b); ok {
		choice.Duration = time.Since(start)
		return choice, nil
	}

	searcher := NewSearcher()
	res, err := searcher.Search(b, e.opts.SearchDepth)
	if err != nil {
		return Choice{}, err
	}
	mv := res.Move
	return Choice{
		Move:     mv,
		UCI:      mv.String(),
		Source:   SourceSearch,
		Score:    res.Score,
		Nodes:    res.Nodes,
		Duration: time.Since(start),
	}, nil
}

func (e *Engine) tryBookMove(b *Board) (Choice, bool) {
	if e.book == nil {
		return Choice{}, false
	}
	if b.FullMoveNumber() > e.opts.OpeningMaxFullMove {
		return Choice{}, false
	}
	res, ok := e.book.Lookup(b.FEN(), e.random())
	if !ok || res.Move == "" {
		return Choice{}, false
	}
	mv, legal := b.FindMove(res.Move)
	if !legal {
		e.logger.Debug("book_move_rejected", zap.String("move", res.Move), zap.String("fen", b.FEN()))
		return Choice{}, false
	}
	return Choice{Move: mv, UCI: mv.String(), Source: SourceBook}, true
}
